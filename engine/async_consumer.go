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
	"container/heap"
	"sync"
)

// indicesRange is a half-open interval [start, end) of indices.
//
// A valid range holds start <= end.
type indicesRange struct {
	start, end int
}

// disjoint checks if ranges don't share any indices.
func (r *indicesRange) disjoint(r2 indicesRange) bool {
	return r.end <= r2.start || r.start >= r2.end
}

// AsyncConsumer reassembles the out-of-order completion notifications
// produced by the parallel in-memory sorters into an in-order stream of
// writes, regardless of which subrange finished sorting first. Those
// sorters sort in place and pair it with noopWriter, using it only to
// learn when every subrange has finished.
type AsyncConsumer struct {
	writer    SortedDataWriter
	pool      ThreadPool
	all       indicesRange     // full range of indices being sorted
	remaining indicesRange     // tail of `all` that is left to write
	queue     sortedRangeQueue // sorted subranges not yet contiguous with remaining.start
	mutex     sync.Mutex
	cond      *sync.Cond
}

// NewAsyncConsumer creates a consumer responsible for writing out the
// sorted range [start:end) in order, once each of its subranges has been
// sorted by the thread pool.
func NewAsyncConsumer(writer SortedDataWriter, start, end int) SortedDataConsumer {
	consumer := AsyncConsumer{
		writer:    writer,
		queue:     sortedRangeQueue{},
		all:       indicesRange{start, end},
		remaining: indicesRange{start, end},
	}

	heap.Init(&consumer.queue)
	consumer.cond = sync.NewCond(&consumer.mutex)

	return &consumer
}

// Notify informs the consumer that range [start:end) of records is sorted.
//
// Incoming ranges are assumed disjoint and their union is a.all.
func (a *AsyncConsumer) Notify(start, end int) {
	a.mutex.Lock()
	heap.Push(&a.queue, indicesRange{start, end})
	a.cond.Broadcast()
	a.mutex.Unlock()
}

// Start implements SortedDataConsumer.
func (a *AsyncConsumer) Start(pool ThreadPool) {
	a.pool = pool

	go func() {
		canWrite := func() bool {
			if len(a.queue) == 0 {
				return false
			}
			return (a.queue)[0].start == a.remaining.start
		}

		writeAllReadyChunks := func() error {
			for {
				a.mutex.Lock()
				if !canWrite() {
					a.mutex.Unlock()
					return nil
				}

				r := heap.Pop(&a.queue).(indicesRange)
				a.mutex.Unlock()

				if err := a.writer.Write(r.start, r.end); err != nil {
					return err
				}

				a.remaining.start = r.end
			}
		}

		var err error
		for {
			err = writeAllReadyChunks()
			if err != nil {
				break
			}

			if a.remaining.start >= a.all.end {
				break
			}

			a.mutex.Lock()
			for len(a.queue) == 0 {
				a.cond.Wait()
			}
			a.mutex.Unlock()
		}

		a.pool.Close(err)
	}()
}

// sortedRangeQueue keeps sort ranges ordered by start index.
type sortedRangeQueue []indicesRange

func (r sortedRangeQueue) Len() int            { return len(r) }
func (r sortedRangeQueue) Less(i, j int) bool  { return r[i].start < r[j].start }
func (r sortedRangeQueue) Swap(i, j int)       { r[i], r[j] = r[j], r[i] }
func (r *sortedRangeQueue) Push(x interface{}) { *r = append(*r, x.(indicesRange)) }

func (r *sortedRangeQueue) Pop() interface{} {
	old := *r
	n := len(old)
	x := old[n-1]
	*r = old[0 : n-1]
	return x
}
