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

package radix

// SortUint64 performs an 8-pass, 8-bit-digit LSD radix sort of keys,
// carrying indices along in lockstep, and is stable on the supplied keys
// (ties preserve relative index order). Keys must already be encoded so
// that unsigned numeric order matches the desired key order (callers flip
// the sign bit of signed quantities before calling, and invert all bits
// for descending order).
//
// This is the counting-sort-based path the engine's radix sorter uses for
// numeric keys below its very-large threshold, once the dispatcher has
// picked radix for a slice (including each chunk the external sorter
// sorts in memory).
func SortUint64(keys, indices []uint64) {
	n := len(keys)
	if n < 2 {
		return
	}

	keysTmp := make([]uint64, n)
	indicesTmp := make([]uint64, n)

	src, srcIdx := keys, indices
	dst, dstIdx := keysTmp, indicesTmp

	var counts [256]int
	for shift := 0; shift < 64; shift += 8 {
		for i := range counts {
			counts[i] = 0
		}
		for _, k := range src {
			counts[byte(k>>shift)]++
		}

		sum := 0
		for i := 0; i < 256; i++ {
			c := counts[i]
			counts[i] = sum
			sum += c
		}

		for i := 0; i < n; i++ {
			b := byte(src[i] >> shift)
			pos := counts[b]
			dst[pos] = src[i]
			dstIdx[pos] = srcIdx[i]
			counts[b]++
		}

		src, dst = dst, src
		srcIdx, dstIdx = dstIdx, srcIdx
	}

	// After 8 passes (even count) src/srcIdx already alias the caller's
	// keys/indices slices; copy back only if an odd number of swaps
	// happened to leave the result in the scratch buffers.
	if &src[0] != &keys[0] {
		copy(keys, src)
		copy(indices, srcIdx)
	}
}
