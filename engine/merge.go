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
	"bytes"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/opensort/opensort/internal/rheap"
)

// mergeSource is one input to the Merger: a buffered reader over a
// sorted byte stream (a run file or a pre-sorted user file in merge
// mode), plus the record it is currently holding.
type mergeSource struct {
	idx     int
	r       *bufio.Reader
	closer  io.Closer
	term    byte
	front   []byte
	hasData bool
	path    string
}

func newMergeSource(idx int, path string, term byte, compressed bool) (*mergeSource, error) {
	f, closer, err := openForStreaming(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f
	if compressed {
		r = s2.NewReader(f)
	}
	ms := &mergeSource{idx: idx, r: bufio.NewReaderSize(r, 256*1024), closer: closer, term: term, path: path}
	if err := ms.advance(); err != nil {
		closer.Close()
		return nil, err
	}
	return ms, nil
}

func (m *mergeSource) advance() error {
	line, err := m.r.ReadBytes(m.term)
	if err == io.EOF {
		if len(line) == 0 {
			m.hasData = false
			return nil
		}
		m.front = line
		m.hasData = true
		return nil
	}
	if err != nil {
		return wrapErr(ErrIo, m.path, err)
	}
	m.front = line[:len(line)-1]
	m.hasData = true
	return nil
}

func (m *mergeSource) close() error {
	return m.closer.Close()
}

// heapEntry is the payload ordered by the Merger's min-heap: the source
// index breaks ties so that, per spec.md §4.7, "earlier input wins".
type heapEntry struct {
	source *mergeSource
}

// Merger implements the k-way merge (spec.md §4.7): a min-heap keyed by
// the comparator holds one entry per non-exhausted source; ties are
// broken by source index; output goes through the Output Sink; when
// Unique is set, adjacent-equal records are dropped.
type Merger struct {
	opts *GlobalOptions
	cmp  *rawComparator
}

// rawComparator compares raw record bytes (no Record/Origin wrapper),
// since merge sources read directly off disk rather than through a
// Store. Stability across the merge is provided structurally: runs are
// written in stable order by the external sorter, and ties here are
// broken by source index, matching "global input position . . . combines
// source-file index with in-file position" (spec.md §5).
type rawComparator struct {
	opts  *GlobalOptions
	inner *Comparator
}

func newRawComparator(opts *GlobalOptions, salt [16]byte) *rawComparator {
	return &rawComparator{opts: opts, inner: NewComparator(opts, salt)}
}

func (c *rawComparator) compare(a, b []byte) Ordering {
	keys := c.opts.Keys
	if len(keys) == 0 {
		keys = []KeySpec{{}}
	}
	for _, ks := range keys {
		ord := c.inner.compareKey(a, b, ks)
		if ord != Equal {
			if ks.has(OptReverse) {
				ord = -ord
			}
			if c.opts.Reverse {
				ord = -ord
			}
			return ord
		}
	}
	if c.opts.Stable {
		return Equal
	}
	ord := Ordering(bytes.Compare(a, b))
	if c.opts.Reverse {
		ord = -ord
	}
	return ord
}

// NewMerger builds a Merger bound to opts; salt seeds Random-mode hashing
// exactly as Comparator does.
func NewMerger(opts *GlobalOptions, salt [16]byte) *Merger {
	return &Merger{opts: opts, cmp: newRawComparator(opts, salt)}
}

// Merge drains sources (already open, positioned at their first record)
// in sorted order into sink, applying uniqueness when configured. It
// closes every source before returning, regardless of outcome.
func (m *Merger) Merge(sources []*mergeSource, sink *OutputSink) error {
	defer func() {
		for _, s := range sources {
			s.close()
		}
	}()

	less := func(a, b heapEntry) bool {
		ord := m.cmp.compare(a.source.front, b.source.front)
		if ord != Equal {
			return ord == Less
		}
		return a.source.idx < b.source.idx
	}

	heap := make([]heapEntry, 0, len(sources))
	for _, s := range sources {
		if s.hasData {
			heap = append(heap, heapEntry{s})
		}
	}
	rheap.OrderSlice(heap, less)

	var last []byte
	haveLast := false

	for len(heap) > 0 {
		top := heap[0]
		rec := top.source.front

		emit := true
		if m.opts.Unique && haveLast {
			if m.cmp.compare(last, rec) == Equal {
				emit = false
			}
		}
		if emit {
			if err := sink.WriteRaw(rec); err != nil {
				return wrapErr(ErrMergeFailed, top.source.path, err)
			}
			last = append(last[:0], rec...)
			haveLast = true
		}

		if err := top.source.advance(); err != nil {
			return err
		}
		if !top.source.hasData {
			rheap.PopSlice(&heap, less)
		} else {
			rheap.FixSlice(heap, 0, less)
		}
	}
	return nil
}
