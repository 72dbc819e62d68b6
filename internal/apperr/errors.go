// Package apperr holds the sentinel errors shared by storage, services and front ends.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrPathEscape      = errors.New("path escapes managed root")
	ErrIO              = errors.New("storage failure")
	ErrCanceled        = errors.New("canceled by user")
	ErrConflict        = errors.New("conflict")
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrInvalidCategory = errors.New("invalid category")

	// ErrExists is a conflict with a different report already stored under
	// the target name.
	ErrExists = fmt.Errorf("report already exists: %w", ErrConflict)
)

// Message returns the single user-facing message for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "report not found"
	case errors.Is(err, ErrPathEscape):
		return "invalid report path"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrExists):
		return "a report with this title already exists for this date"
	case errors.Is(err, ErrConflict):
		return "report changed on disk since it was loaded"
	case errors.Is(err, ErrSaveInProgress):
		return "a save is already in progress"
	case errors.Is(err, ErrInvalidCategory):
		return "invalid category name"
	default:
		return "unable to access report storage"
	}
}
