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
	"sync"

	"github.com/google/uuid"
)

// TempSpace is the temp-file lifecycle capability the engine consumes
// (spec.md §6): new_run() returns a writable handle and path; scope
// drop deletes all handles created through it.
type TempSpace interface {
	NewRun() (*os.File, string, error)
	Release() error
}

// DirTempSpace is the default TempSpace: a directory (TMPDIR, -T, or the
// system default) holding one file per run, named with a random UUID to
// avoid cross-process collisions. The registry of created paths is
// append-only under a mutex, matching the cross-worker push discipline
// spec.md §5 requires of the temp run registry.
type DirTempSpace struct {
	dir     string
	mutex   sync.Mutex
	paths   []string
	ownsDir bool
}

// NewDirTempSpace creates (or adopts) dir as the scope for this sort
// operation's runs. An empty dir selects os.TempDir() (which itself
// honors TMPDIR).
func NewDirTempSpace(dir string) (*DirTempSpace, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	scoped, err := os.MkdirTemp(dir, "opensort-")
	if err != nil {
		return nil, wrapErr(ErrIo, dir, err)
	}
	return &DirTempSpace{dir: scoped, ownsDir: true}, nil
}

func (t *DirTempSpace) NewRun() (*os.File, string, error) {
	name := filepath.Join(t.dir, "run-"+uuid.NewString()+".tmp")
	f, err := os.Create(name)
	if err != nil {
		return nil, "", wrapErr(ErrIo, name, err)
	}
	t.mutex.Lock()
	t.paths = append(t.paths, name)
	t.mutex.Unlock()
	return f, name, nil
}

// Release deletes every run created through this space. It is safe to
// call on every exit path (success, error, or cancellation) since it
// only removes files this scope itself created.
func (t *DirTempSpace) Release() error {
	t.mutex.Lock()
	paths := t.paths
	t.paths = nil
	t.mutex.Unlock()

	var first error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	if t.ownsDir {
		if err := os.Remove(t.dir); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}
