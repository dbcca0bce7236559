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

// extractKey implements the Key Extractor (spec.md §4.2): given a record
// and a KeySpec, returns the byte sub-slice used for comparison under
// that key.
func extractKey(rec []byte, spec KeySpec, sep *byte) []byte {
	if spec.WholeRecord() {
		return rec
	}

	fields := tokenize(rec, sep)

	startField := spec.StartField
	if startField < 1 {
		startField = 1
	}
	if startField > len(fields) {
		return nil
	}

	endField := spec.EndField
	if endField == 0 || endField > len(fields) {
		endField = len(fields)
	}
	if endField < startField {
		endField = startField
	}

	start := fields[startField-1].start
	if spec.StartChar > 0 {
		cand := fields[startField-1].charBase + spec.StartChar - 1
		if cand > start {
			start = cand
		}
	}

	end := fields[endField-1].end
	if spec.EndChar > 0 {
		cand := fields[endField-1].charBase + spec.EndChar
		if cand < end {
			end = cand
		}
	}
	if start > len(rec) {
		start = len(rec)
	}
	if end > len(rec) {
		end = len(rec)
	}
	if end < start {
		end = start
	}

	out := rec[start:end]
	if spec.has(OptIgnoreLeadingBlanks) {
		out = trimLeadingBlanks(out)
	}
	return out
}

// field is one tokenized field span. charBase is where character counting
// (start_char/end_char) begins for this field: the first byte of the
// field when a field separator is configured, or the first blank byte of
// the preceding separator run when blank-run tokenization is in effect
// (spec.md §4.2's "reference semantics" clarification).
type field struct {
	start, end int
	charBase   int
}

// tokenize splits rec into fields per spec.md §4.2: with an explicit
// separator byte, fields are the regions between separator bytes; without
// one, a field is a maximal non-blank run and the separator is the blank
// run preceding it.
func tokenize(rec []byte, sep *byte) []field {
	if sep != nil {
		return tokenizeBySeparator(rec, *sep)
	}
	return tokenizeByBlanks(rec)
}

func tokenizeBySeparator(rec []byte, sep byte) []field {
	var fields []field
	start := 0
	for i := 0; i <= len(rec); i++ {
		if i == len(rec) || rec[i] == sep {
			fields = append(fields, field{start: start, end: i, charBase: start})
			start = i + 1
		}
	}
	return fields
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

func tokenizeByBlanks(rec []byte) []field {
	var fields []field
	i := 0
	n := len(rec)
	for i < n {
		blankStart := i
		for i < n && isBlank(rec[i]) {
			i++
		}
		if i >= n {
			break
		}
		fieldStart := i
		for i < n && !isBlank(rec[i]) {
			i++
		}
		charBase := blankStart
		if len(fields) == 0 {
			// The reference semantics: character counting for the first
			// field starts at the first blank of the run preceding it;
			// when there is no leading blank run, that is the field start
			// itself.
			charBase = blankStart
		}
		fields = append(fields, field{start: fieldStart, end: i, charBase: charBase})
	}
	return fields
}

func trimLeadingBlanks(b []byte) []byte {
	i := 0
	for i < len(b) && isBlank(b[i]) {
		i++
	}
	return b[i:]
}

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
