package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a modman error code.
type ErrorCode string

const (
	ErrInvalidRequest           ErrorCode = "INVALID_REQUEST"            // 400
	ErrPathOutsideManagedRoot   ErrorCode = "PATH_OUTSIDE_MANAGED_ROOT"  // 403
	ErrTrackedRecordNotFound    ErrorCode = "TRACKED_RECORD_NOT_FOUND"   // 404
	ErrArchiveFormatUnsupported ErrorCode = "ARCHIVE_FORMAT_UNSUPPORTED" // 415
	ErrMalformedDescriptor      ErrorCode = "MALFORMED_DESCRIPTOR"       // 422
	ErrDirectoryReadFailed      ErrorCode = "DIRECTORY_READ_FAILED"      // 500
	ErrFileReadFailed           ErrorCode = "FILE_READ_FAILED"           // 500
	ErrExtractionFailed         ErrorCode = "EXTRACTION_FAILED"          // 500
	ErrInternal                 ErrorCode = "INTERNAL"                   // 500
)

// ModError represents a structured error with code, status, and details.
type ModError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *ModError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ModError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ModError {
	return &ModError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewPathOutsideManagedRoot creates a 403 error for a mutation that would escape the mods root.
func NewPathOutsideManagedRoot(root, path string) *ModError {
	return &ModError{
		Code:    ErrPathOutsideManagedRoot,
		Status:  403,
		Message: fmt.Sprintf("path %q is outside the managed root %q", path, root),
		Details: map[string]any{"root": root, "path": path},
	}
}

// NewTrackedRecordNotFound creates a 404 error for an identifier absent from the store.
func NewTrackedRecordNotFound(identifier string) *ModError {
	return &ModError{
		Code:    ErrTrackedRecordNotFound,
		Status:  404,
		Message: fmt.Sprintf("tracked mod not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewArchiveFormatUnsupported creates a 415 error for containers other than zip, tar and tar.gz.
func NewArchiveFormatUnsupported(source string) *ModError {
	return &ModError{
		Code:    ErrArchiveFormatUnsupported,
		Status:  415,
		Message: fmt.Sprintf("unsupported archive format: %s", source),
		Details: map[string]any{"source": source},
	}
}

// NewMalformedDescriptor creates a 422 error for an unparseable or reserved descriptor.
// Detection never surfaces it; parsers use it for logging.
func NewMalformedDescriptor(path string, err error) *ModError {
	msg := "malformed descriptor"
	if err != nil {
		msg = err.Error()
	}
	return &ModError{
		Code:    ErrMalformedDescriptor,
		Status:  422,
		Message: fmt.Sprintf("%s: %s", path, msg),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewDirectoryReadFailed creates a 500 error for a directory that could not be enumerated.
func NewDirectoryReadFailed(path string, err error) *ModError {
	return &ModError{
		Code:    ErrDirectoryReadFailed,
		Status:  500,
		Message: fmt.Sprintf("failed to read directory %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewFileReadFailed creates a 500 error for a file that could not be opened or read.
func NewFileReadFailed(path string, err error) *ModError {
	return &ModError{
		Code:    ErrFileReadFailed,
		Status:  500,
		Message: fmt.Sprintf("failed to read file %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewExtractionFailed creates a 500 error for an archive entry that failed to write.
func NewExtractionFailed(entry string, err error) *ModError {
	return &ModError{
		Code:    ErrExtractionFailed,
		Status:  500,
		Message: fmt.Sprintf("failed to extract %s: %v", entry, err),
		Details: map[string]any{"entry": entry},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ModError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ModError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is a ModError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *ModError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}
