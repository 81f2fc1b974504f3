// Package errclass defines the stable error classes reported by tidy.
package errclass

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// TidyError is a stable, machine-readable error class.
type TidyError struct {
	Code    string
	Message string
}

func (e *TidyError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TidyError) Is(target error) bool {
	t, ok := target.(*TidyError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new TidyError with the same Code but a specific message.
func (e *TidyError) WithMessage(msg string) *TidyError {
	return &TidyError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new TidyError with a formatted message.
func (e *TidyError) WithMessagef(format string, args ...any) *TidyError {
	return &TidyError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	ErrNotFound           = &TidyError{Code: "E_NOT_FOUND"}
	ErrAlreadyExists      = &TidyError{Code: "E_ALREADY_EXISTS"}
	ErrPermissionOrIO     = &TidyError{Code: "E_PERMISSION_OR_IO"}
	ErrNonEmptyDirectory  = &TidyError{Code: "E_NON_EMPTY_DIRECTORY"}
	ErrArtifactCorrupt    = &TidyError{Code: "E_ARTIFACT_CORRUPT"}
	ErrNameInvalid        = &TidyError{Code: "E_NAME_INVALID"}
	ErrLockConflict       = &TidyError{Code: "E_LOCK_CONFLICT"}
	ErrHistoryChainBroken = &TidyError{Code: "E_HISTORY_CHAIN_BROKEN"}
)

// Classify maps a platform error onto one of the filesystem error classes.
// Errors that already carry a class are returned unchanged; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var te *TidyError
	if errors.As(err, &te) {
		return err
	}
	var w *wrapped
	if errors.As(err, &w) {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &wrapped{class: ErrNotFound, err: err}
	case errors.Is(err, syscall.ENOTEMPTY):
		// ENOTEMPTY also satisfies fs.ErrExist, so it is checked first.
		return &wrapped{class: ErrNonEmptyDirectory, err: err}
	case errors.Is(err, fs.ErrExist):
		return &wrapped{class: ErrAlreadyExists, err: err}
	default:
		return &wrapped{class: ErrPermissionOrIO, err: err}
	}
}

// Code returns the class code of err, or "" when err carries no class.
func Code(err error) string {
	var te *TidyError
	if errors.As(err, &te) {
		return te.Code
	}
	var w *wrapped
	if errors.As(err, &w) {
		return w.class.Code
	}
	return ""
}

// wrapped attaches a class to an underlying platform error without hiding it.
type wrapped struct {
	class *TidyError
	err   error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %v", w.class.Code, w.err)
}

func (w *wrapped) Is(target error) bool {
	return w.class.Is(target)
}

func (w *wrapped) Unwrap() error {
	return w.err
}
