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
	"fmt"
	"io"
	"os"
)

// Store is a Backing Store (spec.md §3): an immutable byte region that
// Records borrow from for the lifetime of a sort operation. It is either
// a memory-mapped file region or an owned chunk buffer filled by a
// streamed reader.
type Store struct {
	data   []byte
	mapped bool
	file   *os.File
	name   string
}

// Name returns the source name used in diagnostics (the path, or "-" for
// standard input).
func (s *Store) Name() string { return s.name }

// Close releases the backing region, unmapping it if it was mmap'd.
func (s *Store) Close() error {
	var err error
	if s.mapped {
		err = munmap(s.data)
	}
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// OpenSource opens name ("-" meaning standard input) and returns a Store
// plus the list of record spans it contains, per spec.md §4.1. Files are
// memory-mapped (Mapped variant); "-" and any non-regular file fall back
// to the Streamed variant.
func OpenSource(name string, term byte, maxStreamBuf int64) (*Store, []recordSpan, error) {
	if maxStreamBuf <= 0 {
		maxStreamBuf = MaxStreamBuffer
	}

	if name == "-" {
		store, err := newStreamedStore("-", os.Stdin, maxStreamBuf)
		if err != nil {
			return nil, nil, err
		}
		spans := scan(store.data, term)
		return store, spans, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, classifyOpenErr(name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, wrapErr(ErrIo, name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, &Error{Kind: ErrIsDirectory, Path: name}
	}
	if info.Size() > MaxSingleInputBytes {
		f.Close()
		return nil, nil, newErr(ErrInvalidBufferSize, fmt.Sprintf("%s: exceeds %d byte input cap", name, MaxSingleInputBytes))
	}

	if info.Size() == 0 && info.Mode().IsRegular() {
		f.Close()
		store := &Store{data: nil, name: name}
		return store, nil, nil
	}

	data, ok := mmap(f, info.Size())
	if !ok {
		store, err := newStreamedStore(name, f, maxStreamBuf)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		spans := scan(store.data, term)
		return store, spans, nil
	}

	store := &Store{data: data, mapped: true, file: f, name: name}
	spans := scan(store.data, term)
	return store, spans, nil
}

func newStreamedStore(name string, r io.Reader, maxBuf int64) (*Store, error) {
	buf := make([]byte, 0, 64*1024)
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		if int64(len(buf)) >= maxBuf {
			return nil, newErr(ErrInvalidBufferSize, fmt.Sprintf("%s: exceeds stream buffer cap of %d bytes", name, maxBuf))
		}
		if len(buf) == cap(buf) {
			grown := make([]byte, len(buf), grow(cap(buf), maxBuf))
			copy(grown, buf)
			buf = grown
		}
		n, err := reader.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapErr(ErrIo, name, err)
		}
	}
	return &Store{data: buf, name: name}, nil
}

func grow(cur int, max int64) int {
	next := cur * 2
	if next == 0 {
		next = 64 * 1024
	}
	if int64(next) > max {
		next = int(max)
	}
	return next
}

// openForStreaming opens name ("-" for standard input) for sequential
// reading without building a record index, used by Check mode and by
// every merge source, which never buffer whole files (spec.md §4.8).
func openForStreaming(name string) (io.Reader, io.Closer, error) {
	if name == "-" {
		return os.Stdin, io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, classifyOpenErr(name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, wrapErr(ErrIo, name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, &Error{Kind: ErrIsDirectory, Path: name}
	}
	return f, f, nil
}

func classifyOpenErr(name string, err error) error {
	if os.IsNotExist(err) {
		return &Error{Kind: ErrFileNotFound, Path: name}
	}
	if os.IsPermission(err) {
		return &Error{Kind: ErrPermissionDenied, Path: name}
	}
	return wrapErr(ErrIo, name, err)
}

// recordSpan is a (offset, length) pair produced by scan; length excludes
// the terminator.
type recordSpan struct {
	off, len int
}

// scan builds the record index for data in one pass, splitting on term.
// A trailing record lacking a terminator is still included, per spec.md
// §4.1.
func scan(data []byte, term byte) []recordSpan {
	if len(data) == 0 {
		return nil
	}
	spans := make([]recordSpan, 0, len(data)/32+1)
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == term {
			spans = append(spans, recordSpan{start, i - start})
			start = i + 1
		}
	}
	if start < len(data) {
		spans = append(spans, recordSpan{start, len(data) - start})
	}
	return spans
}

// recordsFromSpans materializes Records over store for the given spans,
// tagging each with its global Origin index (sourceOrdinal in the high
// 32 bits, in-file position in the low 32 bits, per spec.md §9).
func recordsFromSpans(store *Store, spans []recordSpan, sourceOrdinal uint32) []Record {
	recs := make([]Record, len(spans))
	for i, sp := range spans {
		recs[i] = Record{
			store:  store,
			off:    sp.off,
			len:    sp.len,
			Origin: uint64(sourceOrdinal)<<32 | uint64(uint32(i)),
		}
	}
	return recs
}
