// Package apperr defines the error taxonomy shared by the note store, the
// search index and the note service.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrIndexCorrupt   = errors.New("index corrupt")
	ErrCommitFailed   = errors.New("index commit failed")
	ErrStoreIO        = errors.New("store i/o error")
	ErrPartialFailure = errors.New("partial failure")
)

// Stage names the store that an operation failed in.
type Stage string

const (
	StageStore Stage = "store"
	StageIndex Stage = "index"
)

// StageError attributes a failure to the store or the index.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports that the store mutation for ID succeeded but
// the matching index mutation did not. The note is authoritative in the
// store; a rebuild or reindex brings the index back in line.
type PartialFailureError struct {
	Op  string
	ID  string
	Err error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("index: %s note %s: store updated but index was not: %v", e.Op, e.ID, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// StageOf reports the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return StageIndex, true
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
