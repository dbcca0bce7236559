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

// insertionSort implements the Insertion algorithm (spec.md §4.5):
// O(n^2) worst case, O(n) on nearly-sorted input, used under the
// MostlySorted pattern heuristic. It is stable by construction (shifts
// preserve relative order of equal elements).
func insertionSort(recs []Record, cmp *Comparator) {
	for i := 1; i < len(recs); i++ {
		cur := recs[i]
		j := i - 1
		for j >= 0 && cmp.Compare(recs[j], cur) == Greater {
			recs[j+1] = recs[j]
			j--
		}
		recs[j+1] = cur
	}
}

// reverseInPlace reverses recs, used for the MostlyReversed pattern
// before continuing as Random (spec.md §4.4).
func reverseInPlace(recs []Record) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}
