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

// Package radix sorts (key uint64, index uint64) pairs in place, where key
// is a fixed-width numeric encoding of a record's comparison key and index
// is the record's position in the original input. It provides a
// sequential LSD byte-radix sort and a parallel partition-based quicksort;
// the quicksort's thread pool contract is defined locally to avoid an
// import cycle with package engine.
package radix

// SortingFunction sorts the index range [left, right] of a
// scalarSortArgumentsUint64 payload, optionally recursing by enqueuing
// subranges on pool.
type SortingFunction func(left, right int, args interface{}, pool ThreadPool)

// ThreadPool is the subset of engine.ThreadPool this package needs. Any
// type satisfying engine's ThreadPool interface also satisfies this one.
type ThreadPool interface {
	Enqueue(start, end int, fun SortingFunction, args interface{})
}

// Notifier receives completion notice for a contiguous sorted range
// [left, right], both ends inclusive. engine.SortedDataConsumer's Notify
// takes a half-open range, so the engine wraps its consumer in an adapter
// before passing it here.
type Notifier interface {
	Notify(start, end int)
}

type scalarSortArgumentsUint64 struct {
	keys        []uint64
	indices     []uint64
	mindistance int
	consumer    Notifier
}

// QuicksortAscUint64 parallel-sorts keys/indices (in place, by ascending
// key) using pool to fan out partitions wider than mindistance entries,
// notifying consumer as contiguous ranges finish.
func QuicksortAscUint64(keys, indices []uint64, mindistance int, pool ThreadPool, consumer Notifier) {
	args := scalarSortArgumentsUint64{keys, indices, mindistance, consumer}
	scalarQuicksortAscUint64(0, len(keys)-1, args, pool)
}

// QuicksortDescUint64 is the descending-key counterpart of QuicksortAscUint64.
func QuicksortDescUint64(keys, indices []uint64, mindistance int, pool ThreadPool, consumer Notifier) {
	args := scalarSortArgumentsUint64{keys, indices, mindistance, consumer}
	scalarQuicksortDescUint64(0, len(keys)-1, args, pool)
}

func scalarQuicksortAscUint64(left int, right int, args interface{}, pool ThreadPool) {
	arguments := args.(scalarSortArgumentsUint64)

	distance := right - left + 1
	if distance < arguments.mindistance {
		scalarQuicksortAscUint64SingleThread(arguments.keys, arguments.indices, left, right)
		arguments.consumer.Notify(left, right)
		return
	}

	pivot := arguments.keys[(left+right)/2]

	i, j := scalarPartitionAscUint64(arguments.keys, arguments.indices, pivot, left, right)

	if left <= j {
		pool.Enqueue(left, j, scalarQuicksortAscUint64, args)
	}

	if i <= right {
		pool.Enqueue(i, right, scalarQuicksortAscUint64, args)
	}

	if j+1 <= i-1 {
		arguments.consumer.Notify(j+1, i-1)
	}
}

func scalarQuicksortAscUint64SingleThread(keys []uint64, indices []uint64, left int, right int) {
	if left >= right {
		return
	}

	pivot := keys[(left+right)/2]

	i, j := scalarPartitionAscUint64(keys, indices, pivot, left, right)

	if left < j {
		scalarQuicksortAscUint64SingleThread(keys, indices, left, j)
	}

	if i < right {
		scalarQuicksortAscUint64SingleThread(keys, indices, i, right)
	}
}

func scalarPartitionAscUint64(keys []uint64, indices []uint64, pivot uint64, left int, right int) (int, int) {
	for left <= right {
		for keys[left] < pivot {
			left++
		}

		for keys[right] > pivot {
			right--
		}

		if left <= right {
			keys[left], keys[right] = keys[right], keys[left]
			indices[left], indices[right] = indices[right], indices[left]

			left++
			right--
		}
	}

	return left, right
}

func scalarQuicksortDescUint64(left int, right int, args interface{}, pool ThreadPool) {
	arguments := args.(scalarSortArgumentsUint64)

	distance := right - left + 1
	if distance < arguments.mindistance {
		scalarQuicksortDescUint64SingleThread(arguments.keys, arguments.indices, left, right)
		arguments.consumer.Notify(left, right)
		return
	}

	pivot := arguments.keys[(left+right)/2]

	i, j := scalarPartitionDescUint64(arguments.keys, arguments.indices, pivot, left, right)

	if left <= j {
		pool.Enqueue(left, j, scalarQuicksortDescUint64, args)
	}

	if i <= right {
		pool.Enqueue(i, right, scalarQuicksortDescUint64, args)
	}

	if j+1 <= i-1 {
		arguments.consumer.Notify(j+1, i-1)
	}
}

func scalarQuicksortDescUint64SingleThread(keys []uint64, indices []uint64, left int, right int) {
	if left >= right {
		return
	}

	pivot := keys[(left+right)/2]

	i, j := scalarPartitionDescUint64(keys, indices, pivot, left, right)

	if left < j {
		scalarQuicksortDescUint64SingleThread(keys, indices, left, j)
	}

	if i < right {
		scalarQuicksortDescUint64SingleThread(keys, indices, i, right)
	}
}

func scalarPartitionDescUint64(keys []uint64, indices []uint64, pivot uint64, left int, right int) (int, int) {
	for left <= right {
		for keys[left] > pivot {
			left++
		}

		for keys[right] < pivot {
			right--
		}

		if left <= right {
			keys[left], keys[right] = keys[right], keys[left]
			indices[left], indices[right] = indices[right], indices[left]

			left++
			right--
		}
	}

	return left, right
}
