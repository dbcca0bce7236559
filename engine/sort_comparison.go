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

import "sort"

type comparisonArgs struct {
	recs     []Record
	cmp      *Comparator
	consumer SortedDataConsumer
}

// comparisonSort implements the Comparison sort (spec.md §4.5): unstable
// sort.Sort as the primary algorithm; when parallel is true, subranges are
// split with threeWayPartition and enqueued on a pool, with sort.Sort
// below QuicksortSplitThreshold. The stable
// variant falls out automatically: when opts.Stable is set, Comparator
// already appends the record's origin index as a final tie-break, so the
// same unstable algorithm produces a stable result.
func comparisonSort(recs []Record, cmp *Comparator, threads int, parallel bool) {
	if len(recs) < 2 {
		return
	}
	if !parallel || threads < 2 {
		sort.Sort(&recordSlice{recs, cmp})
		return
	}

	pool := NewThreadPool(threads)
	consumer := NewAsyncConsumer(noopWriter{}, 0, len(recs))
	consumer.Start(pool)
	args := comparisonArgs{recs: recs, cmp: cmp, consumer: consumer}
	pool.Enqueue(0, len(recs)-1, comparisonSortThreadFunc, args)
	pool.Wait()
}

func comparisonSortThreadFunc(left, right int, rawArgs interface{}, pool ThreadPool) {
	args := rawArgs.(comparisonArgs)

	if right-left+1 < QuicksortSplitThreshold {
		sub := args.recs[left : right+1]
		sort.Sort(&recordSlice{sub, args.cmp})
		args.consumer.Notify(left, right+1)
		return
	}

	lt, gt := threeWayPartition(args.recs, args.cmp, left, right)

	if left < lt {
		pool.Enqueue(left, lt-1, comparisonSortThreadFunc, args)
	}
	if gt < right {
		pool.Enqueue(gt+1, right, comparisonSortThreadFunc, args)
	}
	args.consumer.Notify(lt, gt+1)
}

// recordSlice adapts a []Record + Comparator pair to sort.Interface for
// the sequential fallback and below-threshold leaves.
type recordSlice struct {
	recs []Record
	cmp  *Comparator
}

func (s *recordSlice) Len() int           { return len(s.recs) }
func (s *recordSlice) Less(i, j int) bool { return s.cmp.Compare(s.recs[i], s.recs[j]) == Less }
func (s *recordSlice) Swap(i, j int)      { s.recs[i], s.recs[j] = s.recs[j], s.recs[i] }
