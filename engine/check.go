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
)

// Check implements Check Mode (spec.md §4.8): reads each named source
// sequentially (never whole-file buffered), and for each adjacent pair
// requires compare(prev, cur) != Greater. On the first violation it
// returns a NotSorted error carrying the 1-based line number and source
// name; it never produces sorted output.
func Check(sources []string, opts *GlobalOptions) error {
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	salt := newSalt()
	cmp := newRawComparator(opts, salt)

	for _, name := range sources {
		if err := checkOne(name, opts, cmp); err != nil {
			return err
		}
	}
	return nil
}

func checkOne(name string, opts *GlobalOptions, cmp *rawComparator) error {
	r, closer, err := openForStreaming(name)
	if err != nil {
		return err
	}
	defer closer.Close()

	term := opts.Terminator()
	reader := bufio.NewReaderSize(r, 256*1024)

	var prev []byte
	havePrev := false
	line := 0

	for {
		chunk, rerr := reader.ReadBytes(term)
		if len(chunk) == 0 && rerr == io.EOF {
			break
		}
		cur := chunk
		if rerr == nil {
			cur = chunk[:len(chunk)-1]
		}
		line++

		if havePrev {
			if cmp.compare(prev, cur) == Greater {
				return notSortedErr(name, line)
			}
		}
		prev = append(prev[:0], cur...)
		havePrev = true

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return wrapErr(ErrIo, name, rerr)
		}
	}
	return nil
}
