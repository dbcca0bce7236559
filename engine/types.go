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

// Record is a view over a contiguous byte span borrowed from a Store. It
// owns no bytes and must not outlive the store it was taken from. The
// terminator is excluded from Bytes.
type Record struct {
	store *Store
	off   int
	len   int
	// Origin is the stable global input position (source-file ordinal
	// combined with in-file record number) used as the final tie-break
	// key when Options.Stable is set, so stability survives chunking
	// through the external sort and k-way merge.
	Origin uint64
}

// Bytes returns the record's content, excluding its terminator.
func (r Record) Bytes() []byte {
	return r.store.data[r.off : r.off+r.len]
}

func (r Record) Len() int { return r.len }

// Mode selects the top-level comparison semantics (spec.md §3
// GlobalOptions.mode / §4.3).
type Mode int

const (
	ModeLexicographic Mode = iota
	ModeInteger
	ModeGeneralFloating
	ModeHumanSuffix
	ModeMonth
	ModeVersion
	ModeRandom
)

// KeyOption is a per-key modifier bit, drawn from KeySpec.Options.
type KeyOption int

const (
	OptNumeric KeyOption = 1 << iota
	OptGeneralNumeric
	OptHumanNumeric
	OptMonth
	OptVersion
	OptRandom
	OptReverse
	OptIgnoreCase
	OptDictionaryOrder
	OptIgnoreLeadingBlanks
	OptIgnoreNonprinting
)

// KeySpec describes one -k key definition: a field/char range (1-based,
// as in the CLI surface) plus per-key modifiers. A zero-value KeySpec
// (StartField == 0) denotes "whole record" and is the implicit key when
// none are specified.
type KeySpec struct {
	StartField int
	StartChar  int // 0 means "from the start of the field"
	EndField   int // 0 means "through the end of the record"
	EndChar    int // 0 means "through the end of the end field"
	Options    KeyOption
}

func (k KeySpec) has(opt KeyOption) bool { return k.Options&opt != 0 }

// WholeRecord reports whether this KeySpec falls back to whole-record
// comparison (spec.md §3: "If no keys are specified, the whole record is
// the key.").
func (k KeySpec) WholeRecord() bool { return k.StartField == 0 }

// GlobalOptions mirrors spec.md §3 GlobalOptions exactly; it is the
// engine's full configuration surface, independent of how the CLI front
// end gathers it.
type GlobalOptions struct {
	Mode                 Mode
	Keys                 []KeySpec
	Reverse              bool
	Unique               bool
	Stable               bool
	IgnoreCase           bool
	DictionaryOrder      bool
	IgnoreLeadingBlanks  bool
	IgnoreNonprinting    bool
	FieldSeparator       *byte
	ZeroTerminated       bool
	Check                bool
	Merge                bool
	BufferSize           int64
	ParallelThreads      int
	TempDir              string
	CompressTemp         bool // supplement: see SPEC_FULL.md §4.6
	Debug                bool // supplement: see SPEC_FULL.md §6

	Logger    Logger
	Hints     SystemHints
	TempSpace TempSpace
	Collator  Collator
}

// Terminator returns the configured record terminator byte.
func (o *GlobalOptions) Terminator() byte {
	if o.ZeroTerminated {
		return 0
	}
	return '\n'
}

func (o *GlobalOptions) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Logger is the minimal logging capability the engine accepts; nil means
// discard. Grounded on the teacher's tenant/dcache Logger interface.
type Logger interface {
	Printf(format string, args ...any)
}

const (
	// MaxInputFiles is the resource cap from spec.md §5.
	MaxInputFiles = 10000
	// MaxSingleInputBytes is the resource cap from spec.md §5 (100 GiB).
	MaxSingleInputBytes = 100 << 30
	// MaxStreamBuffer is the default cap on owned-buffer growth for
	// Streamed sources (spec.md §4.1).
	MaxStreamBuffer = 2 << 30
	// MinBufferSize and MaxBufferSize bound Options.BufferSize (spec.md §5).
	MinBufferSize = 1 << 10
	MaxBufferSize = 8 << 30
	// MinThreads and MaxThreads bound Options.ParallelThreads (spec.md §5).
	MinThreads = 1
	MaxThreads = 1024
)

// Validate enforces the resource caps and option-conflict rules from
// spec.md §5 and §7 before any work begins.
func (o *GlobalOptions) Validate() error {
	if o.Check && o.Merge {
		return newErr(ErrConflictingOptions, "-c/-C and -m are mutually exclusive")
	}
	if o.Check && o.Unique {
		return newErr(ErrConflictingOptions, "-c/-C and -u are mutually exclusive")
	}
	if o.BufferSize != 0 && (o.BufferSize < MinBufferSize || o.BufferSize > MaxBufferSize) {
		return newErr(ErrInvalidBufferSize, "buffer size out of range")
	}
	if o.ParallelThreads != 0 && (o.ParallelThreads < MinThreads || o.ParallelThreads > MaxThreads) {
		return newErr(ErrConflictingOptions, "parallel thread count out of range")
	}
	return nil
}
