// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package failure defines the typed error kinds shared by every docrc layer.
package failure

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind classifies a failure so callers can decide what to do with it
type Kind int

const (
	KindUnknown Kind = iota
	NotInitialized
	OutsideProjectBoundary
	PathNotFound
	PermissionDenied
	BackupCreationFailed
	GenerationFailed
	CommitFailed
	RollbackFailed
	UnrecoverableFailure
	ConflictUnresolved
	Busy          // another git process holds the isolated index
	InvalidConfig // configuration or ignore file could not be loaded
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	NotInitialized:         "NotInitialized",
	OutsideProjectBoundary: "OutsideProjectBoundary",
	PathNotFound:           "PathNotFound",
	PermissionDenied:       "PermissionDenied",
	BackupCreationFailed:   "BackupCreationFailed",
	GenerationFailed:       "GenerationFailed",
	CommitFailed:           "CommitFailed",
	RollbackFailed:         "RollbackFailed",
	UnrecoverableFailure:   "UnrecoverableFailure",
	ConflictUnresolved:     "ConflictUnresolved",
	Busy:                   "Busy",
	InvalidConfig:          "InvalidConfig",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// 🔁 TriggersRollback reports whether the kind describes an execution-stage problem
func (k Kind) TriggersRollback() bool {
	return k == GenerationFailed || k == CommitFailed
}

// ❌ Error is a classified docrc failure
type Error struct {
	Kind  Kind
	Path  string // project-relative path the failure concerns, if any
	Stage string // workflow stage in which it happened, if any
	Err   error
}

// 🏭 New creates a classified error with a formatted message
func New(kind Kind, path string, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Path: path,
		Err:  errors.Errorf(format, args...),
	}
}

// 🎁 Wrap classifies an existing error. A nil err yields nil.
func Wrap(kind Kind, path string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// WithStage returns a copy of e annotated with the stage it happened in.
func (e *Error) WithStage(stage string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Stage = stage
	return &cp
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" [")
		b.WriteString(e.Path)
		b.WriteString("]")
	}
	if e.Stage != "" {
		b.WriteString(" during ")
		b.WriteString(e.Stage)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: X}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// 🔍 KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// 🧭 Category groups kinds for batch summaries
type Category string

const (
	CategoryPermission Category = "permission"
	CategoryConflict   Category = "conflict"
	CategoryGeneration Category = "generation"
	CategoryOther      Category = "other"
)

// CategoryOf maps a kind into the summary taxonomy.
func CategoryOf(kind Kind) Category {
	switch kind {
	case PermissionDenied:
		return CategoryPermission
	case ConflictUnresolved:
		return CategoryConflict
	case GenerationFailed:
		return CategoryGeneration
	default:
		return CategoryOther
	}
}
