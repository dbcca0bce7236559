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

import "strings"

// recordsFromLines builds an in-memory Store and Records over lines joined
// by '\n', mirroring what OpenSource produces for a real file, without
// touching the filesystem.
func recordsFromLines(lines ...string) []Record {
	data := []byte(strings.Join(lines, "\n"))
	if len(lines) > 0 {
		data = append(data, '\n')
	}
	store := &Store{data: data}
	spans := scan(store.data, '\n')
	return recordsFromSpans(store, spans, 0)
}

func recordStrings(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r.Bytes())
	}
	return out
}

func isSortedBy(recs []Record, cmp *Comparator) bool {
	for i := 1; i < len(recs); i++ {
		if cmp.Compare(recs[i-1], recs[i]) == Greater {
			return false
		}
	}
	return true
}

// isPermutationOf reports whether got is a permutation of want (as
// multisets of strings), the Permutation invariant from spec.md §8.
func isPermutationOf(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	counts := make(map[string]int, len(want))
	for _, w := range want {
		counts[w]++
	}
	for _, g := range got {
		counts[g]--
		if counts[g] < 0 {
			return false
		}
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
