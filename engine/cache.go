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
	"math"
	"sync"
)

// ComparisonCache is the optional parallel-computed per-record side
// table from spec.md §3: parsed numeric value and random hash, keyed by
// Record.Origin rather than array position. Keying by Origin (instead of
// the record's current slice index) is required because in-place sorts
// swap records around as they run; a position-indexed cache would go
// stale the moment the first swap happened. It is written once (a
// parallel fill across disjoint index ranges) and read-only thereafter,
// per the concurrency model in spec.md §5.
type ComparisonCache struct {
	Numeric   map[uint64]float64
	HasNumber map[uint64]bool
	Hash      map[uint64]uint64
}

// buildCache decides whether opts.Mode benefits from pre-computing
// per-record values once up front instead of re-parsing on every
// comparison, and if so fills the cache across recs. When pool is
// non-nil and recs is large enough, the fill is split into chunks
// enqueued on pool; a single mutex guards the cache maps since Go maps
// reject concurrent writes even to disjoint keys.
func buildCache(recs []Record, opts *GlobalOptions, salt [16]byte, pool ThreadPool) *ComparisonCache {
	numericMode := opts.Mode == ModeInteger || opts.Mode == ModeGeneralFloating
	randomMode := opts.Mode == ModeRandom
	if !numericMode && !randomMode {
		return nil
	}

	n := len(recs)
	cache := &ComparisonCache{}
	if numericMode {
		cache.Numeric = make(map[uint64]float64, n)
		cache.HasNumber = make(map[uint64]bool, n)
	}
	if randomMode {
		cache.Hash = make(map[uint64]uint64, n)
	}

	const chunkSize = 4096
	if pool == nil || n <= chunkSize {
		fillCacheRange(recs, opts, salt, cache, 0, n, nil)
		return cache
	}

	var mu sync.Mutex
	chunks := 0
	for start := 0; start < n; start += chunkSize {
		chunks++
	}
	done := make(chan struct{}, chunks)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		pool.Enqueue(start, end, func(start, end int, _ interface{}, _ ThreadPool) {
			fillCacheRange(recs, opts, salt, cache, start, end, &mu)
			done <- struct{}{}
		}, nil)
	}
	for i := 0; i < chunks; i++ {
		<-done
	}
	return cache
}

func fillCacheRange(recs []Record, opts *GlobalOptions, salt [16]byte, cache *ComparisonCache, start, end int, mu *sync.Mutex) {
	for i := start; i < end; i++ {
		r := recs[i]
		b := r.Bytes()

		var num float64
		var hasNum bool
		if cache.Numeric != nil {
			switch opts.Mode {
			case ModeInteger:
				if v, ok := parseBoundedInt(b); ok {
					num, hasNum = float64(v), true
				}
			case ModeGeneralFloating:
				if v, ok := parseFloatPrefix(b); ok {
					num, hasNum = v, true
				} else {
					num = math.NaN()
				}
			}
		}
		var hash uint64
		if cache.Hash != nil {
			hash = siphash64(salt, b)
		}

		if mu != nil {
			mu.Lock()
		}
		if cache.Numeric != nil {
			cache.Numeric[r.Origin] = num
			cache.HasNumber[r.Origin] = hasNum
		}
		if cache.Hash != nil {
			cache.Hash[r.Origin] = hash
		}
		if mu != nil {
			mu.Unlock()
		}
	}
}
