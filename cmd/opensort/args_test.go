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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opensort/opensort/engine"
)

func TestParseKeyDefWholeField(t *testing.T) {
	ks, err := parseKeyDef("2")
	if err != nil {
		t.Fatalf("parseKeyDef: %v", err)
	}
	want := engine.KeySpec{StartField: 2}
	if ks != want {
		t.Errorf("parseKeyDef(2) = %+v, want %+v", ks, want)
	}
}

func TestParseKeyDefRange(t *testing.T) {
	ks, err := parseKeyDef("2.3,4.1")
	if err != nil {
		t.Fatalf("parseKeyDef: %v", err)
	}
	want := engine.KeySpec{StartField: 2, StartChar: 3, EndField: 4, EndChar: 1}
	if ks != want {
		t.Errorf("parseKeyDef(2.3,4.1) = %+v, want %+v", ks, want)
	}
}

func TestParseKeyDefWithOptions(t *testing.T) {
	ks, err := parseKeyDef("1nr")
	if err != nil {
		t.Fatalf("parseKeyDef: %v", err)
	}
	want := engine.OptNumeric | engine.OptReverse
	if ks.Options != want {
		t.Errorf("parseKeyDef(1nr).Options = %v, want %v", ks.Options, want)
	}
}

func TestParseKeyDefErrors(t *testing.T) {
	cases := []string{"", "abc", "1.", "1q"}
	for _, c := range cases {
		if _, err := parseKeyDef(c); err == nil {
			t.Errorf("parseKeyDef(%q) = nil error, want error", c)
		}
	}
}

func TestParseSizePlainIsKiB(t *testing.T) {
	got, err := parseSize("10", 0)
	if err != nil {
		t.Fatalf("parseSize: %v", err)
	}
	if want := int64(10 * 1024); got != want {
		t.Errorf("parseSize(10) = %d, want %d", got, want)
	}
}

func TestParseSizeSuffixes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100b", 100},
		{"2K", 2 << 10},
		{"3M", 3 << 20},
		{"1G", 1 << 30},
	}
	for _, c := range cases {
		got, err := parseSize(c.in, 0)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("parseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseSizePercent(t *testing.T) {
	got, err := parseSize("50%", 1024)
	if err != nil {
		t.Fatalf("parseSize: %v", err)
	}
	want := int64(1024 * 1024 * 1024 * 50 / 100)
	if got != want {
		t.Errorf("parseSize(50%%) = %d, want %d", got, want)
	}
}

func TestParseSizeInvalid(t *testing.T) {
	if _, err := parseSize("", 0); err == nil {
		t.Error("parseSize(\"\") = nil error, want error")
	}
	if _, err := parseSize("abc", 0); err == nil {
		t.Error("parseSize(\"abc\") = nil error, want error")
	}
}

func TestFixedMemoryHintsOverridesMemoryOnly(t *testing.T) {
	h := fixedMemoryHints{engine.DefaultHints{}, 42}
	if got := h.AvailableMemoryMB(); got != 42 {
		t.Errorf("AvailableMemoryMB() = %d, want 42", got)
	}
	if got := h.CPUCount(); got != (engine.DefaultHints{}).CPUCount() {
		t.Errorf("CPUCount() = %d, want %d", got, engine.DefaultHints{}.CPUCount())
	}
}

// TestTranslateLegacyPosShiftsToOneBased matches the historical "+1 -3"
// syntax: 0-based skip counts become 1-based KeySpec fields.
func TestTranslateLegacyPosShiftsToOneBased(t *testing.T) {
	ks, ok, err := translateLegacyPos("+1", "-3")
	if err != nil {
		t.Fatalf("translateLegacyPos: %v", err)
	}
	if !ok {
		t.Fatal("translateLegacyPos ok = false, want true")
	}
	want := engine.KeySpec{StartField: 2, EndField: 4}
	if ks != want {
		t.Errorf("translateLegacyPos(+1, -3) = %+v, want %+v", ks, want)
	}
}

func TestTranslateLegacyPosWithCharOffsetAndOptions(t *testing.T) {
	ks, ok, err := translateLegacyPos("+0.2nr", "")
	if err != nil {
		t.Fatalf("translateLegacyPos: %v", err)
	}
	if !ok {
		t.Fatal("translateLegacyPos ok = false, want true")
	}
	want := engine.KeySpec{StartField: 1, StartChar: 3, Options: engine.OptNumeric | engine.OptReverse}
	if ks != want {
		t.Errorf("translateLegacyPos(+0.2nr) = %+v, want %+v", ks, want)
	}
}

func TestTranslateLegacyPosNotLegacy(t *testing.T) {
	_, ok, err := translateLegacyPos("somefile.txt", "")
	if err != nil {
		t.Fatalf("translateLegacyPos: %v", err)
	}
	if ok {
		t.Error("translateLegacyPos(\"somefile.txt\") ok = true, want false")
	}
}

func TestIsLegacyPos(t *testing.T) {
	if !isLegacyPos("+1") {
		t.Error("isLegacyPos(+1) = false, want true")
	}
	if isLegacyPos("-1") {
		t.Error("isLegacyPos(-1) = true, want false")
	}
	if isLegacyPos("file.txt") {
		t.Error("isLegacyPos(file.txt) = true, want false")
	}
}

func TestReadFiles0From(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte("a.txt\x00b.txt\x00"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := readFiles0From(path)
	if err != nil {
		t.Fatalf("readFiles0From: %v", err)
	}
	want := []string{"a.txt", "b.txt"}
	if len(got) != len(want) {
		t.Fatalf("readFiles0From = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("readFiles0From[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeyDefListSetAppends(t *testing.T) {
	var l keyDefList
	if err := l.Set("1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := l.Set("2nr"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(l) != 2 || l[0] != "1" || l[1] != "2nr" {
		t.Errorf("keyDefList after two Set calls = %v, want [1 2nr]", l)
	}
}
