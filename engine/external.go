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
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/s2"
	"golang.org/x/crypto/blake2b"
)

// run is one bounded, sorted temp file produced during external sort
// (spec.md §3 GLOSSARY), with a checksum that Sort verifies before the
// Merger reads it (a supplement beyond spec.md; see SPEC_FULL.md §4.6).
type run struct {
	path       string
	count      int
	checksum   [blake2b.Size256]byte
	compressed bool
}

// safeMemoryBytes reduces SystemHints.AvailableMemoryMB for safety
// headroom; it is the "computed memory budget" spec.md §4.6 compares the
// input size against to decide whether external sort is needed at all.
func safeMemoryBytes(hints SystemHints) int64 {
	mb := hints.AvailableMemoryMB()
	if mb <= 0 {
		mb = 1024
	}
	// Reserve a quarter of reported available memory as headroom for the
	// process itself (thread stacks, the record index, comparison cache).
	return mb * 1024 * 1024 * 3 / 4
}

// runBudgetBytes implements the External Sorter's per-run budget
// (spec.md §4.6): >1 GiB input uses ~10% of safe memory per run;
// >200 MiB uses ~12%; otherwise ~25%.
func runBudgetBytes(inputSize int64, hints SystemHints) int64 {
	safeBytes := safeMemoryBytes(hints)

	var frac int64
	switch {
	case inputSize > 1<<30:
		frac = 10
	case inputSize > 200<<20:
		frac = 12
	default:
		frac = 25
	}
	budget := safeBytes * frac / 100
	if budget < 1<<20 {
		budget = 1 << 20
	}
	return budget
}

// externalSorter streams a Record Source too large to sort in memory,
// building bounded sorted runs and handing them to the Merger
// (spec.md §4.6).
type externalSorter struct {
	opts    *GlobalOptions
	cmp     *Comparator
	threads int
	hints   SystemHints
	temp    TempSpace
	salt    [16]byte
}

// buildRuns implements run generation (spec.md §4.6): repeatedly fill a
// chunk up to the byte budget by reading whole records, sort it with the
// in-memory pipeline, optionally dedup, then write it to a new temp file.
func (e *externalSorter) buildRuns(store *Store, spans []recordSpan, sourceOrdinal uint32) ([]run, error) {
	budget := runBudgetBytes(int64(len(store.data)), e.hints)

	var runs []run
	i := 0
	for i < len(spans) {
		var chunkSpans []recordSpan
		var used int64
		for i < len(spans) {
			sp := spans[i]
			cost := int64(sp.len) + 1
			if used > 0 && used+cost > budget {
				break
			}
			chunkSpans = append(chunkSpans, sp)
			used += cost
			i++
		}
		if len(chunkSpans) == 0 {
			// A single record larger than the whole budget still forms
			// its own run.
			chunkSpans = append(chunkSpans, spans[i])
			i++
		}

		recs := recordsFromSpans(store, chunkSpans, sourceOrdinal)
		// recordsFromSpans numbers the chunk's records from 0; shift them
		// to their in-file positions so Origins stay unique per source.
		base := uint64(i - len(chunkSpans))
		for k := range recs {
			recs[k].Origin += base
		}
		sortInMemory(recs, e.opts, e.cmp, e.threads)
		if e.opts.Unique {
			recs = dedupInPlace(recs, e.cmp)
		}

		r, err := e.writeRun(recs)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func (e *externalSorter) writeRun(recs []Record) (run, error) {
	f, path, err := e.temp.NewRun()
	if err != nil {
		return run{}, err
	}

	hasher, _ := blake2b.New256(nil)
	term := e.opts.Terminator()

	var w *bufio.Writer
	var sw *s2.Writer
	if e.opts.CompressTemp {
		sw = s2.NewWriter(f)
		w = bufio.NewWriterSize(sw, 256*1024)
	} else {
		w = bufio.NewWriterSize(f, 256*1024)
	}

	for _, r := range recs {
		b := r.Bytes()
		if _, err := w.Write(b); err != nil {
			f.Close()
			return run{}, wrapErr(ErrIo, path, err)
		}
		if err := w.WriteByte(term); err != nil {
			f.Close()
			return run{}, wrapErr(ErrIo, path, err)
		}
		hasher.Write(b)
		hasher.Write([]byte{term})
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return run{}, wrapErr(ErrIo, path, err)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			f.Close()
			return run{}, wrapErr(ErrIo, path, err)
		}
	}
	if err := f.Close(); err != nil {
		return run{}, wrapErr(ErrIo, path, err)
	}

	var sum [blake2b.Size256]byte
	copy(sum[:], hasher.Sum(nil))
	return run{path: path, count: len(recs), checksum: sum, compressed: e.opts.CompressTemp}, nil
}

// verifyRun re-hashes a run file and compares against the recorded
// checksum before the Merger reads it (SPEC_FULL.md §4.6 supplement).
func verifyRun(r run) error {
	f, err := os.Open(r.path)
	if err != nil {
		return classifyOpenErr(r.path, err)
	}
	defer f.Close()

	hasher, _ := blake2b.New256(nil)
	var src io.Reader = f
	if r.compressed {
		src = s2.NewReader(f)
	}
	if _, err := io.Copy(hasher, src); err != nil {
		return wrapErr(ErrIo, r.path, err)
	}

	var sum [blake2b.Size256]byte
	copy(sum[:], hasher.Sum(nil))
	if sum != r.checksum {
		return newErr(ErrIo, r.path+": run checksum mismatch")
	}
	return nil
}
