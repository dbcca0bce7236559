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

// pattern classifies a sampled slice of the input, per spec.md §4.4.
type pattern int

const (
	patternRandom pattern = iota
	patternMostlySorted
	patternMostlyReversed
	patternManyDuplicates
)

func (p pattern) String() string {
	switch p {
	case patternMostlySorted:
		return "mostly-sorted"
	case patternMostlyReversed:
		return "mostly-reversed"
	case patternManyDuplicates:
		return "many-duplicates"
	default:
		return "random"
	}
}

// algorithm is the in-memory algorithm the dispatcher selects.
type algorithm int

const (
	algInsertion algorithm = iota
	algThreeWay
	algRadix
	algComparison
)

func (a algorithm) String() string {
	switch a {
	case algInsertion:
		return "insertion"
	case algThreeWay:
		return "three-way"
	case algRadix:
		return "radix"
	default:
		return "comparison"
	}
}

// plan is the dispatcher's decision for one in-memory sort.
type plan struct {
	pattern   pattern
	algorithm algorithm
	parallel  bool
}

// detectPattern samples up to 1000 positions uniformly and classifies the
// input per spec.md §4.4's thresholds: >=80% ascending/descending,
// >=50% equal-adjacent, else Random.
func detectPattern(recs []Record, cmp *Comparator) pattern {
	n := len(recs)
	if n < 2 {
		return patternMostlySorted
	}

	sampleSize := n
	if sampleSize > 1000 {
		sampleSize = 1000
	}
	if sampleSize < 2 {
		sampleSize = 2
	}
	stride := n / sampleSize
	if stride < 1 {
		stride = 1
	}

	var ascending, descending, equal, total int
	prev := -1
	for i := 0; i < n && total < sampleSize; i += stride {
		if prev >= 0 {
			ord := cmp.Compare(recs[prev], recs[i])
			switch {
			case ord == Less:
				ascending++
			case ord == Greater:
				descending++
			default:
				equal++
			}
			total++
		}
		prev = i
	}
	if total == 0 {
		return patternMostlySorted
	}

	if ascending*10 >= total*8 {
		return patternMostlySorted
	}
	if descending*10 >= total*8 {
		return patternMostlyReversed
	}
	if equal*2 >= total {
		return patternManyDuplicates
	}
	return patternRandom
}

// dispatch implements the Adaptive Dispatcher's selection rules
// (spec.md §4.4).
func dispatch(recs []Record, opts *GlobalOptions, cmp *Comparator, cpuCount int) plan {
	n := len(recs)
	pat := detectPattern(recs, cmp)

	p := plan{pattern: pat}

	switch {
	case pat == patternMostlySorted && n < 100000:
		p.algorithm = algInsertion
	case pat == patternMostlyReversed:
		// Reverse in place, then continue as Random (handled by caller).
		p.algorithm = algComparison
	case pat == patternManyDuplicates && opts.Mode == ModeLexicographic:
		p.algorithm = algThreeWay
	case opts.Mode == ModeInteger && n >= 1000 && radixEligible(opts):
		p.algorithm = algRadix
	default:
		p.algorithm = algComparison
	}

	p.parallel = n >= 8192 && cpuCount > 1
	return p
}

// radixEligible reports whether the Radix algorithm's integer-magnitude
// fast path can still reproduce the full Comparator's total order: it
// only ever encodes a single key (the first -k, or the whole record) plus
// the global reverse flag, so a second -k or a per-key 'r' on the first
// key would silently be dropped if radix were selected for them.
func radixEligible(opts *GlobalOptions) bool {
	if len(opts.Keys) > 1 {
		return false
	}
	if len(opts.Keys) == 1 && opts.Keys[0].has(OptReverse) {
		return false
	}
	return true
}
