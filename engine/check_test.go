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
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// TestCheckDisorder matches spec.md §8 scenario 6: "1\n3\n2\n" under -c
// must fail on line 3 with exit code 1.
func TestCheckDisorder(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "in.txt", "1\n3\n2\n")

	opts := &GlobalOptions{}
	err := Check([]string{path}, opts)
	if err == nil {
		t.Fatal("expected disorder error, got nil")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Kind != ErrNotSorted || e.Line != 3 {
		t.Errorf("got Kind=%v Line=%d, want ErrNotSorted Line=3", e.Kind, e.Line)
	}
	if code := ExitCode(err); code != 1 {
		t.Errorf("ExitCode = %d, want 1", code)
	}
}

// TestCheckSorted is the non-disorder control for the above.
func TestCheckSorted(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "in.txt", "1\n2\n3\n")

	opts := &GlobalOptions{}
	if err := Check([]string{path}, opts); err != nil {
		t.Errorf("Check on sorted input = %v, want nil", err)
	}
}

// TestCheckReverse exercises Check against a -r sorted file: the
// rawComparator used by Check must honor global reverse exactly as the
// main Comparator does.
func TestCheckReverse(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "in.txt", "c\nb\na\n")

	opts := &GlobalOptions{Reverse: true}
	if err := Check([]string{path}, opts); err != nil {
		t.Errorf("Check on reverse-sorted input = %v, want nil", err)
	}
}
