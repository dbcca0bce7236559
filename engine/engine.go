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

// Package engine implements the sort engine: the in-memory sort
// pipeline, the adaptive algorithm dispatcher, the external (out-of-core)
// sort with k-way merge, and the comparison/key model that glues them
// together. Argument parsing, locale glue, temp-file bookkeeping and
// environment probing are supplied by the caller through the Collator,
// TempSpace and SystemHints capabilities.
package engine

import (
	"os"
)

// defaultParallelThreads resolves Options.ParallelThreads, falling back
// to the SystemHints' reported CPU count (spec.md §6 SystemHints.cpu_count).
func defaultParallelThreads(opts *GlobalOptions, hints SystemHints) int {
	if opts.ParallelThreads > 0 {
		return opts.ParallelThreads
	}
	n := hints.CPUCount()
	if n < 1 {
		n = 1
	}
	return n
}

func prepareOptions(opts *GlobalOptions) (SystemHints, TempSpace, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	hints := opts.Hints
	if hints == nil {
		hints = DefaultHints{}
	}
	temp := opts.TempSpace
	if temp == nil {
		t, err := NewDirTempSpace(opts.TempDir)
		if err != nil {
			return nil, nil, err
		}
		temp = t
	}
	if opts.Collator == nil {
		opts.Collator = ByteCollator{}
	}
	return hints, temp, nil
}

// Sort implements the non-merge top-level pipeline (spec.md §2): read
// every source, either sort fully in memory or fall back to the
// External Sorter plus Merger when the combined input exceeds the
// computed memory budget, then write the result to outPath ("-" for
// standard output).
func Sort(sources []string, outPath string, opts *GlobalOptions) (err error) {
	if len(sources) == 0 {
		sources = []string{"-"}
	}
	if len(sources) > MaxInputFiles {
		return newErr(ErrConflictingOptions, "too many input files")
	}

	hints, temp, perr := prepareOptions(opts)
	if perr != nil {
		return perr
	}
	ownedTemp, ownsTemp := temp.(*DirTempSpace)
	if ownsTemp {
		defer ownedTemp.Release()
	}

	salt := newSalt()
	threads := defaultParallelThreads(opts, hints)

	type openedSource struct {
		store *Store
		spans []recordSpan
	}
	opened := make([]openedSource, 0, len(sources))
	defer func() {
		for _, o := range opened {
			o.store.Close()
		}
	}()

	var totalBytes int64
	for i, name := range sources {
		store, spans, oerr := OpenSource(name, opts.Terminator(), 0)
		if oerr != nil {
			return oerr
		}
		opened = append(opened, openedSource{store, spans})
		totalBytes += int64(len(store.data))
		_ = i
	}

	useExternal := totalBytes > safeMemoryBytes(hints) && totalBytes > 0

	aliasesInput := outputAliasesAnyInput(outPath, sources)
	sink, oerr := OpenOutputSink(outPath, opts.Terminator(), int(opts.BufferSize), aliasesInput)
	if oerr != nil {
		return oerr
	}
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()

	cmp := NewComparator(opts, salt)

	if !useExternal {
		var all []Record
		for i, o := range opened {
			all = append(all, recordsFromSpans(o.store, o.spans, uint32(i))...)
		}
		sortInMemory(all, opts, cmp, threads)
		if opts.Unique {
			all = dedupInPlace(all, cmp)
		}
		for _, r := range all {
			if werr := sink.WriteRecord(r.Bytes()); werr != nil {
				return wrapErr(ErrIo, outPath, werr)
			}
		}
		return nil
	}

	es := &externalSorter{opts: opts, cmp: cmp, threads: threads, hints: hints, temp: temp, salt: salt}
	var runs []run
	for i, o := range opened {
		rs, rerr := es.buildRuns(o.store, o.spans, uint32(i))
		if rerr != nil {
			return rerr
		}
		runs = append(runs, rs...)
	}

	merger := NewMerger(opts, salt)
	mergeSources := make([]*mergeSource, 0, len(runs))
	for i, r := range runs {
		if r.count == 0 {
			continue
		}
		if verr := verifyRun(r); verr != nil {
			return verr
		}
		ms, merr := newMergeSource(i, r.path, opts.Terminator(), r.compressed)
		if merr != nil {
			return merr
		}
		mergeSources = append(mergeSources, ms)
	}
	return merger.Merge(mergeSources, sink)
}

// MergeFiles implements Merge mode (spec.md §4.7, §6 -m): inputs are
// already sorted; feed them directly to the Merger, skipping the sort
// stage entirely.
func MergeFiles(sources []string, outPath string, opts *GlobalOptions) (err error) {
	if len(sources) == 0 {
		sources = []string{"-"}
	}
	salt := newSalt()

	sink, serr := OpenOutputSink(outPath, opts.Terminator(), int(opts.BufferSize), outputAliasesAnyInput(outPath, sources))
	if serr != nil {
		return serr
	}
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()

	mergeSources := make([]*mergeSource, 0, len(sources))
	for i, name := range sources {
		ms, merr := newMergeSource(i, name, opts.Terminator(), false)
		if merr != nil {
			return merr
		}
		mergeSources = append(mergeSources, ms)
	}

	merger := NewMerger(opts, salt)
	return merger.Merge(mergeSources, sink)
}

func outputAliasesAnyInput(outPath string, sources []string) bool {
	if outPath == "" || outPath == "-" {
		return false
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return false
	}
	for _, s := range sources {
		if s == "-" {
			continue
		}
		if si, err := os.Stat(s); err == nil && os.SameFile(outInfo, si) {
			return true
		}
	}
	return false
}

// sortInMemory implements the In-Memory Sorter's dispatch (spec.md §4.5):
// it asks the Adaptive Dispatcher for a plan and runs the selected
// algorithm. threads bounds how many OS threads a parallel algorithm may
// use; each parallel algorithm owns its pool for the duration of this
// one call.
func sortInMemory(recs []Record, opts *GlobalOptions, cmp *Comparator, threads int) {
	if len(recs) < 2 {
		return
	}

	p := dispatch(recs, opts, cmp, threads)
	if opts.Debug {
		opts.logf("dispatch: pattern=%s algorithm=%s parallel=%v n=%d", p.pattern, p.algorithm, p.parallel, len(recs))
	}

	if len(opts.Keys) == 0 && len(recs) >= 8192 {
		var cachePool ThreadPool
		if p.parallel && threads > 1 {
			cp := NewThreadPool(threads)
			cachePool = cp
			defer cp.Close(nil)
		}
		if cache := buildCache(recs, opts, cmp.salt, cachePool); cache != nil {
			cmp = cmp.WithCache(cache)
		}
	}

	switch p.algorithm {
	case algInsertion:
		insertionSort(recs, cmp)
	case algThreeWay:
		threeWaySort(recs, cmp, threads, p.parallel)
	case algRadix:
		radixSort(recs, opts, cmp, opts.FieldSeparator, threads, p.parallel)
	default:
		if p.pattern == patternMostlyReversed {
			reverseInPlace(recs)
		}
		comparisonSort(recs, cmp, threads, p.parallel)
	}
}

// dedupInPlace implements uniqueness (spec.md §4.5, §9 Open Questions):
// equality is judged over all keys plus, unless Stable is set, the
// whole-record byte tie-break, never a KeySpec prefix. The Origin
// tie-break is left out, as in the Merger's rawComparator, since it would
// make every pair of records unequal.
func dedupInPlace(recs []Record, cmp *Comparator) []Record {
	if len(recs) < 2 {
		return recs
	}
	raw := &rawComparator{opts: cmp.opts, inner: cmp}
	out := recs[:1]
	for i := 1; i < len(recs); i++ {
		if raw.compare(out[len(out)-1].Bytes(), recs[i].Bytes()) != Equal {
			out = append(out, recs[i])
		}
	}
	return out
}
