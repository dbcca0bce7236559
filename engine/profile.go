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

package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

// Profile is a YAML-loadable bundle of sort options (SPEC_FULL.md §3.1's
// "configuration" ambient concern): a named, reusable preset for the mode,
// key list and modifiers a site wants to standardize on, instead of
// repeating the same -k/-n/-f flags on every invocation.
type Profile struct {
	Mode                string   `json:"mode,omitempty"`
	Keys                []string `json:"keys,omitempty"`
	Reverse             bool     `json:"reverse,omitempty"`
	Unique              bool     `json:"unique,omitempty"`
	Stable              bool     `json:"stable,omitempty"`
	IgnoreCase          bool     `json:"ignoreCase,omitempty"`
	DictionaryOrder     bool     `json:"dictionaryOrder,omitempty"`
	IgnoreLeadingBlanks bool     `json:"ignoreLeadingBlanks,omitempty"`
	IgnoreNonprinting   bool     `json:"ignoreNonprinting,omitempty"`
	FieldSeparator      string   `json:"fieldSeparator,omitempty"`
	ZeroTerminated      bool     `json:"zeroTerminated,omitempty"`
	ParallelThreads     int      `json:"parallelThreads,omitempty"`
	CompressTemp        bool     `json:"compressTemp,omitempty"`
}

// modeNames maps a Profile's textual mode onto the engine's Mode enum;
// LoadProfile accepts the same vocabulary as the CLI's mode flags so a
// profile reads like the flags it replaces.
var modeNames = map[string]Mode{
	"":             ModeLexicographic,
	"lexicographic": ModeLexicographic,
	"integer":       ModeInteger,
	"general":       ModeGeneralFloating,
	"human":         ModeHumanSuffix,
	"month":         ModeMonth,
	"version":       ModeVersion,
	"random":        ModeRandom,
}

// LoadProfile reads a YAML profile from path and merges it onto opts: a
// non-empty profile mode replaces opts.Mode, profile keys are appended to
// opts.Keys, each boolean modifier is OR'd in (a profile can turn one on,
// never off), and FieldSeparator and ParallelThreads are taken from the
// profile only when opts leaves them unset. A zero-valued profile field
// changes nothing. sigs.k8s.io/yaml is used so the profile can be written in plain
// YAML while still decoding through the stricter encoding/json struct tags.
func LoadProfile(path string, opts *GlobalOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wrapErr(ErrIo, path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return newErr(ErrConflictingOptions, fmt.Sprintf("profile %s: %s", path, err))
	}
	return p.applyTo(opts)
}

func (p *Profile) applyTo(opts *GlobalOptions) error {
	if p.Mode != "" {
		mode, ok := modeNames[strings.ToLower(p.Mode)]
		if !ok {
			return newErr(ErrConflictingOptions, fmt.Sprintf("profile: unknown mode %q", p.Mode))
		}
		opts.Mode = mode
	}
	for _, raw := range p.Keys {
		ks, err := parseProfileKey(raw)
		if err != nil {
			return newErr(ErrConflictingOptions, fmt.Sprintf("profile: %s", err))
		}
		opts.Keys = append(opts.Keys, ks)
	}
	opts.Reverse = opts.Reverse || p.Reverse
	opts.Unique = opts.Unique || p.Unique
	opts.Stable = opts.Stable || p.Stable
	opts.IgnoreCase = opts.IgnoreCase || p.IgnoreCase
	opts.DictionaryOrder = opts.DictionaryOrder || p.DictionaryOrder
	opts.IgnoreLeadingBlanks = opts.IgnoreLeadingBlanks || p.IgnoreLeadingBlanks
	opts.IgnoreNonprinting = opts.IgnoreNonprinting || p.IgnoreNonprinting
	opts.ZeroTerminated = opts.ZeroTerminated || p.ZeroTerminated
	opts.CompressTemp = opts.CompressTemp || p.CompressTemp
	if p.FieldSeparator != "" && opts.FieldSeparator == nil {
		if len(p.FieldSeparator) != 1 {
			return newErr(ErrConflictingOptions, "profile: fieldSeparator must be exactly one byte")
		}
		b := p.FieldSeparator[0]
		opts.FieldSeparator = &b
	}
	if p.ParallelThreads != 0 && opts.ParallelThreads == 0 {
		opts.ParallelThreads = p.ParallelThreads
	}
	return nil
}

// parseProfileKey parses the same F[.C][OPTS][,F[.C][OPTS]] grammar as the
// CLI's -k flag (cmd/opensort/args.go's parseKeyDef), duplicated here in
// the engine package since a Profile is loaded independently of any CLI
// front end and must not import one.
func parseProfileKey(s string) (KeySpec, error) {
	parts := strings.SplitN(s, ",", 2)
	start, startOpts, err := parseProfileKeyPos(parts[0])
	if err != nil {
		return KeySpec{}, fmt.Errorf("invalid key %q: %w", s, err)
	}
	ks := KeySpec{StartField: start.field, StartChar: start.char, Options: startOpts}
	if len(parts) == 2 {
		end, endOpts, err := parseProfileKeyPos(parts[1])
		if err != nil {
			return KeySpec{}, fmt.Errorf("invalid key %q: %w", s, err)
		}
		ks.EndField = end.field
		ks.EndChar = end.char
		ks.Options |= endOpts
	}
	return ks, nil
}

type profileKeyPos struct{ field, char int }

func parseProfileKeyPos(s string) (profileKeyPos, KeyOption, error) {
	n := len(s)
	i := 0
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return profileKeyPos{}, 0, fmt.Errorf("missing field number")
	}
	field, err := strconv.Atoi(s[:i])
	if err != nil {
		return profileKeyPos{}, 0, err
	}
	pos := profileKeyPos{field: field}

	if i < n && s[i] == '.' {
		i++
		j := i
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i {
			return profileKeyPos{}, 0, fmt.Errorf("missing char offset after '.'")
		}
		c, err := strconv.Atoi(s[i:j])
		if err != nil {
			return profileKeyPos{}, 0, err
		}
		pos.char = c
		i = j
	}

	var opts KeyOption
	for ; i < n; i++ {
		bit, ok := profileKeyOptionBit(s[i])
		if !ok {
			return profileKeyPos{}, 0, fmt.Errorf("unknown key option %q", s[i])
		}
		opts |= bit
	}
	return pos, opts, nil
}

func profileKeyOptionBit(c byte) (KeyOption, bool) {
	switch c {
	case 'b':
		return OptIgnoreLeadingBlanks, true
	case 'd':
		return OptDictionaryOrder, true
	case 'f':
		return OptIgnoreCase, true
	case 'g':
		return OptGeneralNumeric, true
	case 'i':
		return OptIgnoreNonprinting, true
	case 'M':
		return OptMonth, true
	case 'n':
		return OptNumeric, true
	case 'R':
		return OptRandom, true
	case 'r':
		return OptReverse, true
	case 'V':
		return OptVersion, true
	case 'z':
		return 0, true
	}
	return 0, false
}
