// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command opensort is a high-throughput replacement for the classic sort
// coreutil: it sorts, merges, or checks the order of line- or
// NUL-terminated records, falling back to an external sort with a k-way
// merge when the input won't fit in memory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/opensort/opensort/engine"
)

var (
	dashn bool
	dashg bool
	dashh bool
	dashM bool
	dashV bool
	dashR bool

	dashr bool
	dashu bool
	dashs bool
	dashf bool
	dashd bool
	dashb bool
	dashi bool
	dashz bool

	dasht string
	dasho string
	dashT string
	dashS string

	dashc bool
	dashC bool
	dashm bool

	dashParallel int
	dashFilesFrom string
	dashDebug     bool
	dashProfile   string

	keyDefs keyDefList
)

func init() {
	flag.BoolVar(&dashn, "n", false, "compare keys as bounded integers")
	flag.BoolVar(&dashg, "g", false, "compare keys as general floating point")
	flag.BoolVar(&dashh, "h", false, "compare keys as human-readable sizes (1K, 2M, ...)")
	flag.BoolVar(&dashM, "M", false, "compare keys as calendar months")
	flag.BoolVar(&dashV, "V", false, "compare keys as version strings")
	flag.BoolVar(&dashR, "R", false, "compare keys by a random per-run hash")

	flag.BoolVar(&dashr, "r", false, "reverse the result of comparisons")
	flag.BoolVar(&dashu, "u", false, "output only the first of an equal run")
	flag.BoolVar(&dashs, "s", false, "stabilize sort by disabling the whole-record tie-break")
	flag.BoolVar(&dashf, "f", false, "fold uppercase to lowercase characters")
	flag.BoolVar(&dashd, "d", false, "consider only blanks and alphanumeric characters")
	flag.BoolVar(&dashb, "b", false, "ignore leading blanks in keys")
	flag.BoolVar(&dashi, "i", false, "consider only printable characters")
	flag.BoolVar(&dashz, "z", false, "records are NUL-terminated, not newline-terminated")

	flag.StringVar(&dasht, "t", "", "use SEP as the field separator (single byte)")
	flag.StringVar(&dasho, "o", "-", "write result to FILE instead of standard output")
	flag.StringVar(&dashT, "T", "", "use DIR for temporary run files")
	flag.StringVar(&dashS, "S", "", "approximate memory budget (SIZE, with b/K/M/G/T or % suffix)")

	flag.BoolVar(&dashc, "c", false, "check that input is sorted; exit nonzero and diagnose if not")
	flag.BoolVar(&dashC, "C", false, "same as -c")
	flag.BoolVar(&dashm, "m", false, "merge already-sorted inputs instead of sorting")

	flag.IntVar(&dashParallel, "parallel", 0, "number of sort threads to use (default: CPU count)")
	flag.StringVar(&dashFilesFrom, "files0-from", "", "read NUL-separated input paths from FILE")
	flag.BoolVar(&dashDebug, "debug", false, "log the dispatcher's algorithm and pattern choice")
	flag.StringVar(&dashProfile, "profile", "", "load a YAML profile of default options from FILE")

	flag.Var(&keyDefs, "k", "sort key F[.C][OPTS][,F[.C][OPTS]] (repeatable)")
}

func exitf(code int, f string, args ...interface{}) {
	if !strings.HasSuffix(f, "\n") {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, "opensort: "+f, args...)
	os.Exit(code)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options] [file ...]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  sorts, merges (-m), or checks (-c/-C) line- or NUL-terminated (-z) records\n")
	flag.PrintDefaults()
}

// selectMode resolves the mutually exclusive mode flags, also reporting
// whether any were actually given, so a loaded profile's own mode only
// applies when the command line left the mode unset.
func selectMode() (mode engine.Mode, explicit bool) {
	type choice struct {
		set  bool
		mode engine.Mode
	}
	choices := []choice{
		{dashn, engine.ModeInteger},
		{dashg, engine.ModeGeneralFloating},
		{dashh, engine.ModeHumanSuffix},
		{dashM, engine.ModeMonth},
		{dashV, engine.ModeVersion},
		{dashR, engine.ModeRandom},
	}
	mode = engine.ModeLexicographic
	n := 0
	for _, c := range choices {
		if c.set {
			mode = c.mode
			n++
		}
	}
	if n > 1 {
		exitf(1, "mode flags -n/-g/-h/-M/-V/-R are mutually exclusive")
	}
	return mode, n > 0
}

func fieldSeparator() *byte {
	if dasht == "" {
		return nil
	}
	if len(dasht) != 1 {
		exitf(1, "-t separator must be exactly one byte, got %q", dasht)
	}
	b := dasht[0]
	return &b
}

// collectArgs splits the positional arguments into input file names,
// recognizing the historical "+POS1 [-POS2]" key syntax among them
// (spec.md §6 doesn't require it, but SPEC_FULL.md's supplemented surface
// restores it from the original implementation).
func collectArgs(args []string) (files []string, legacyKeys []engine.KeySpec, err error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if isLegacyPos(a) {
			end := ""
			if i+1 < len(args) && strings.HasPrefix(args[i+1], "-") && legacyEndRe.MatchString(args[i+1]) {
				end = args[i+1]
				i++
			}
			ks, ok, kerr := translateLegacyPos(a, end)
			if kerr != nil {
				return nil, nil, kerr
			}
			if ok {
				legacyKeys = append(legacyKeys, ks)
				i++
				continue
			}
		}
		files = append(files, a)
		i++
	}
	return files, legacyKeys, nil
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if dashc && dashC {
		exitf(1, "-c and -C are mutually exclusive")
	}
	if (dashc || dashC) && dashm {
		exitf(1, "-c/-C and -m are mutually exclusive")
	}

	mode, modeExplicit := selectMode()
	opts := &engine.GlobalOptions{
		Mode:                mode,
		Reverse:             dashr,
		Unique:              dashu,
		Stable:              dashs,
		IgnoreCase:          dashf,
		DictionaryOrder:     dashd,
		IgnoreLeadingBlanks: dashb,
		IgnoreNonprinting:   dashi,
		FieldSeparator:      fieldSeparator(),
		ZeroTerminated:      dashz,
		Check:               dashc || dashC,
		Merge:               dashm,
		ParallelThreads:     dashParallel,
		TempDir:             dashT,
		Debug:               dashDebug,
	}

	if dashDebug {
		opts.Logger = log.New(os.Stderr, "", 0)
	}

	if dashProfile != "" {
		if err := engine.LoadProfile(dashProfile, opts); err != nil {
			exitf(1, "%s", err)
		}
		if modeExplicit {
			opts.Mode = mode
		}
	}

	for _, raw := range keyDefs {
		ks, err := parseKeyDef(raw)
		if err != nil {
			exitf(1, "%s", err)
		}
		opts.Keys = append(opts.Keys, ks)
	}

	files, legacyKeys, err := collectArgs(flag.Args())
	if err != nil {
		exitf(1, "%s", err)
	}
	opts.Keys = append(opts.Keys, legacyKeys...)

	if dashFilesFrom != "" {
		if len(files) > 0 {
			exitf(1, "--files0-from cannot be combined with positional file arguments")
		}
		files, err = readFiles0From(dashFilesFrom)
		if err != nil {
			exitf(2, "reading --files0-from %s: %s", dashFilesFrom, err)
		}
	}

	if dashS != "" {
		hints := engine.SystemHints(engine.DefaultHints{})
		mb, serr := parseSize(dashS, hints.AvailableMemoryMB())
		if serr != nil {
			exitf(1, "-S: %s", serr)
		}
		opts.Hints = fixedMemoryHints{SystemHints: hints, mb: mb / (1 << 20)}
	}

	var runErr error
	switch {
	case opts.Check:
		runErr = engine.Check(files, opts)
	case opts.Merge:
		runErr = engine.MergeFiles(files, dasho, opts)
	default:
		runErr = engine.Sort(files, dasho, opts)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		os.Exit(engine.ExitCode(runErr))
	}
}
