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
	"bytes"

	"golang.org/x/sys/cpu"
)

// prefixStride is how many bytes of a common prefix ByteCollator.Compare
// skips per loop iteration before falling back to a byte-at-a-time scan.
// AVX2 cores chew through a 32-byte block about as cheap as an 8-byte one,
// so widen the stride when the host advertises it; narrower hosts still
// get the 8-byte word-at-a-time skip.
var prefixStride = func() int {
	if cpu.X86.HasAVX2 {
		return 32
	}
	return 8
}()

// commonPrefixLen returns how many leading bytes of a and b are identical,
// scanning in prefixStride-sized blocks so long equal prefixes (common in
// mostly-sorted or dictionary-like input) are skipped without a per-byte
// compare.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i+prefixStride <= n && bytes.Equal(a[i:i+prefixStride], b[i:i+prefixStride]) {
		i += prefixStride
	}
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Collator is the locale capability the engine consumes (spec.md §6):
// the engine embeds no locale tables and calls out to whatever Collator
// the caller supplies.
type Collator interface {
	// Compare orders a against b, optionally folding ASCII/locale case.
	Compare(a, b []byte, ignoreCase bool) int
	// IsPrintable reports whether b counts as printable for -i
	// (ignore-nonprinting); left to the collator per spec.md §9's Open
	// Question on locale-dependent semantics.
	IsPrintable(b byte) bool
}

// ByteCollator is the default Collator: plain byte-order comparison, with
// ASCII-only case folding, and the C-locale printable range for -i
// (bytes below 0x20 and 0x7f are non-printing). A LocaleCollator
// backed by ICU or the host's LC_COLLATE tables would implement the
// same interface; none is shipped (spec.md Non-goals).
type ByteCollator struct{}

func (ByteCollator) Compare(a, b []byte, ignoreCase bool) int {
	if !ignoreCase {
		i := commonPrefixLen(a, b)
		switch {
		case i == len(a) && i == len(b):
			return 0
		case i == len(a):
			return -1
		case i == len(b):
			return 1
		case a[i] < b[i]:
			return -1
		default:
			return 1
		}
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := foldASCII(a[i]), foldASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func foldASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func (ByteCollator) IsPrintable(b byte) bool {
	return b >= 0x20 && b != 0x7f
}
