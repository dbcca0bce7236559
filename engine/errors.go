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

import "fmt"

// ErrorKind classifies an Error independently of the underlying wrapped
// error, so callers can branch on category without string matching.
type ErrorKind int

const (
	ErrUnspecified ErrorKind = iota
	ErrIo
	ErrPermissionDenied
	ErrFileNotFound
	ErrIsDirectory
	ErrInvalidKeySpec
	ErrInvalidFieldSeparator
	ErrInvalidBufferSize
	ErrConflictingOptions
	ErrOutOfMemory
	ErrNotSorted
	ErrMergeFailed
	ErrThreadPoolError
	ErrParseError
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIo:
		return "io error"
	case ErrPermissionDenied:
		return "permission denied"
	case ErrFileNotFound:
		return "no such file or directory"
	case ErrIsDirectory:
		return "is a directory"
	case ErrInvalidKeySpec:
		return "invalid key specification"
	case ErrInvalidFieldSeparator:
		return "invalid field separator"
	case ErrInvalidBufferSize:
		return "invalid buffer size"
	case ErrConflictingOptions:
		return "conflicting options"
	case ErrOutOfMemory:
		return "memory allocation failed"
	case ErrNotSorted:
		return "input is not sorted"
	case ErrMergeFailed:
		return "merge operation failed"
	case ErrThreadPoolError:
		return "thread pool error"
	case ErrParseError:
		return "parse error"
	case ErrInternal:
		return "internal error"
	default:
		return "error"
	}
}

// Error is the engine's single error type. Path and Line are populated
// where the kind makes them meaningful (ErrIo, ErrNotSorted); Err carries
// the wrapped cause when one exists.
type Error struct {
	Kind ErrorKind
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNotSorted:
		return fmt.Sprintf("sort: %s:%d: disorder", e.Path, e.Line)
	case ErrIo, ErrPermissionDenied, ErrFileNotFound, ErrIsDirectory:
		if e.Path != "" {
			if e.Err != nil {
				return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
			}
			return fmt.Sprintf("%s: %s", e.Kind, e.Path)
		}
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapErr(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func notSortedErr(path string, line int) *Error {
	return &Error{Kind: ErrNotSorted, Path: path, Line: line}
}

// ExitCode maps an engine error to the process exit code specified for
// the CLI front-end: validation failures and NotSorted exit 1; I/O and
// internal failures exit 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return 2
	}
	switch e.Kind {
	case ErrInvalidKeySpec, ErrInvalidFieldSeparator, ErrInvalidBufferSize,
		ErrConflictingOptions, ErrNotSorted, ErrParseError:
		return 1
	default:
		return 2
	}
}
