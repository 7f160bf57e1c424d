package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/lldsync/internal/ir"
)

// ProblemCode categorizes row and entity problems.
type ProblemCode string

const (
	// ErrCodeResolution indicates an item prototype the row does not link.
	ErrCodeResolution ProblemCode = "RESOLUTION_FAILED"

	// ErrCodeSubstitution indicates a macro that could not be substituted.
	ErrCodeSubstitution ProblemCode = "SUBSTITUTION_FAILED"

	// ErrCodeInvalidUTF8 indicates a field value with invalid UTF-8.
	ErrCodeInvalidUTF8 ProblemCode = "INVALID_UTF8"

	// ErrCodeTooLong indicates a field value over its length limit.
	ErrCodeTooLong ProblemCode = "TOO_LONG"

	// ErrCodeEmptyName indicates a graph without a name.
	ErrCodeEmptyName ProblemCode = "EMPTY_NAME"

	// ErrCodeDuplicate indicates a uniqueness violation.
	ErrCodeDuplicate ProblemCode = "DUPLICATE"
)

// Problem is a row or entity level failure. It never aborts the
// evaluation: the row is skipped, or the entity is rolled back or dropped.
type Problem struct {
	Code ProblemCode `json:"code"`
	Kind ir.Kind     `json:"kind"`

	// Op is "create" or "update".
	Op string `json:"op"`

	// EntityID is zero for entities that were never persisted.
	EntityID uint64 `json:"entity_id,omitempty"`

	Message string `json:"message"`
}

// Error implements the error interface.
func (p Problem) Error() string {
	return p.Message
}

func opName(isNew bool) string {
	if isNew {
		return "create"
	}
	return "update"
}

// EvaluationError aborts an evaluation. Nothing of the evaluation is
// committed when it is returned.
type EvaluationError struct {
	// Code identifies the error category.
	Code EvaluationErrorCode

	Kind        ir.Kind
	PrototypeID uint64

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// EvaluationErrorCode categorizes evaluation errors.
type EvaluationErrorCode string

const (
	// ErrCodePrototypeNotFound indicates the prototype does not exist.
	ErrCodePrototypeNotFound EvaluationErrorCode = "PROTOTYPE_NOT_FOUND"

	// ErrCodeLoadFailed indicates a read failed before any write.
	ErrCodeLoadFailed EvaluationErrorCode = "LOAD_FAILED"

	// ErrCodePersistenceFailed indicates the write transaction was rolled back.
	ErrCodePersistenceFailed EvaluationErrorCode = "PERSISTENCE_FAILED"
)

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s prototype=%d): %v", e.Code, e.Message, e.Kind, e.PrototypeID, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s prototype=%d)", e.Code, e.Message, e.Kind, e.PrototypeID)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the prototype of the evaluation does not exist.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePrototypeNotFound
	}
	return false
}

// IsPersistenceError returns true if the write transaction failed.
// Uses errors.As to handle wrapped errors.
func IsPersistenceError(err error) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePersistenceFailed
	}
	return false
}

func (ev *evaluation) notFound() *EvaluationError {
	return &EvaluationError{
		Code:        ErrCodePrototypeNotFound,
		Kind:        ev.kind,
		PrototypeID: ev.prototypeID,
		Message:     fmt.Sprintf("%s prototype not found", ev.kind),
	}
}

func (ev *evaluation) loadError(what string, err error) *EvaluationError {
	return &EvaluationError{
		Code:        ErrCodeLoadFailed,
		Kind:        ev.kind,
		PrototypeID: ev.prototypeID,
		Message:     "cannot load " + what,
		Err:         err,
	}
}

func (ev *evaluation) persistenceError(err error) *EvaluationError {
	return &EvaluationError{
		Code:        ErrCodePersistenceFailed,
		Kind:        ev.kind,
		PrototypeID: ev.prototypeID,
		Message:     "transaction rolled back",
		Err:         err,
	}
}
