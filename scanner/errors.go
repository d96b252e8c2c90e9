package scanner

import (
	"errors"
	"fmt"
)

// ScanErrorKind classifies a scan failure.
type ScanErrorKind string

const (
	// ScanErrorIO is an I/O failure while listing or inspecting entries.
	ScanErrorIO ScanErrorKind = "io"
	// ScanErrorPermissionDenied is a sidecar that exists but cannot be accessed.
	ScanErrorPermissionDenied ScanErrorKind = "permission_denied"
)

// ScanError is returned for fatal scan failures and recorded in the
// scanner's error log for non-fatal ones.
type ScanError struct {
	Kind ScanErrorKind `json:"kind"`
	Path string        `json:"path,omitempty"`
	Err  error         `json:"-"`
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ScanErrorPermissionDenied:
		return fmt.Sprintf("scanner: permission denied accessing path: %s", e.Path)
	default:
		if e.Path == "" {
			return fmt.Sprintf("scanner: io error scanning directory: %v", e.Err)
		}
		return fmt.Sprintf("scanner: io error scanning directory %s: %v", e.Path, e.Err)
	}
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ScanError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newIOError(path string, err error) *ScanError {
	return &ScanError{Kind: ScanErrorIO, Path: path, Err: err}
}

func newPermissionDeniedError(path string, err error) *ScanError {
	return &ScanError{Kind: ScanErrorPermissionDenied, Path: path, Err: err}
}

// IsPermissionDenied reports whether err is a permission-denied scan error.
func IsPermissionDenied(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr) && scanErr.Kind == ScanErrorPermissionDenied
}
