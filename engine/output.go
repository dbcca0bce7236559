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
	"path/filepath"
	"syscall"
)

// DefaultOutputBufferSize is the Output Sink's default buffer (spec.md §4.9).
const DefaultOutputBufferSize = 64 * 1024

// OutputSink is the buffered writer to a file or standard output
// (spec.md §4.9): writes each record followed by the terminator, flushes
// on completion.
type OutputSink struct {
	w       *bufio.Writer
	term    byte
	closer  io.Closer
	spoolAt string // non-empty when writing to a spool that must be renamed into place
	target  string
}

// OpenOutputSink opens path ("-" for standard output) for writing. If
// path names one of the input sources, it instead spools to a sibling
// temp file and renames it over path once Close succeeds, so the engine
// never overwrites an input before finishing reading it (spec.md §4.9).
func OpenOutputSink(path string, term byte, bufSize int, aliasesInput bool) (*OutputSink, error) {
	if bufSize <= 0 {
		bufSize = DefaultOutputBufferSize
	}

	if path == "-" || path == "" {
		return &OutputSink{w: bufio.NewWriterSize(os.Stdout, bufSize), term: term, closer: nopCloser{}}, nil
	}

	if !aliasesInput {
		f, err := os.Create(path)
		if err != nil {
			return nil, classifyOpenErr(path, err)
		}
		return &OutputSink{w: bufio.NewWriterSize(f, bufSize), term: term, closer: f, target: path}, nil
	}

	dir := filepath.Dir(path)
	spool, err := os.CreateTemp(dir, ".opensort-spool-*")
	if err != nil {
		return nil, wrapErr(ErrIo, path, err)
	}
	return &OutputSink{
		w:       bufio.NewWriterSize(spool, bufSize),
		term:    term,
		closer:  spool,
		spoolAt: spool.Name(),
		target:  path,
	}, nil
}

// WriteRecord writes rec followed by the configured terminator.
func (s *OutputSink) WriteRecord(rec []byte) error {
	if _, err := s.w.Write(rec); err != nil {
		return err
	}
	return s.w.WriteByte(s.term)
}

// WriteRaw writes a record byte slice with its terminator already
// stripped (the shape mergeSource.front holds), then the configured
// terminator, same as WriteRecord.
func (s *OutputSink) WriteRaw(rec []byte) error {
	_, err := s.w.Write(rec)
	if err == nil {
		err = s.w.WriteByte(s.term)
	}
	return err
}

// Close flushes buffered output and, for a spooled write, atomically
// renames the spool over the target path (falling back to a buffered
// copy across filesystem boundaries, per spec.md §9's Open Question
// resolution).
func (s *OutputSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.closer.Close()
		return wrapErr(ErrIo, s.target, err)
	}
	if err := s.closer.Close(); err != nil {
		return wrapErr(ErrIo, s.target, err)
	}
	if s.spoolAt == "" {
		return nil
	}
	if err := os.Rename(s.spoolAt, s.target); err != nil {
		if isCrossDevice(err) {
			return copyAcrossDevices(s.spoolAt, s.target)
		}
		return wrapErr(ErrIo, s.target, err)
	}
	return nil
}

func isCrossDevice(err error) bool {
	linkErr, ok := err.(*os.LinkError)
	if !ok {
		return false
	}
	errno, ok := linkErr.Err.(syscall.Errno)
	return ok && errno == syscall.EXDEV
}

func copyAcrossDevices(spoolPath, target string) error {
	src, err := os.Open(spoolPath)
	if err != nil {
		return wrapErr(ErrIo, target, err)
	}
	defer src.Close()
	defer os.Remove(spoolPath)

	dst, err := os.Create(target)
	if err != nil {
		return wrapErr(ErrIo, target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return wrapErr(ErrIo, target, err)
	}
	if err := dst.Close(); err != nil {
		return wrapErr(ErrIo, target, err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
