package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"
)

func TestModError_Error(t *testing.T) {
	err := &ModError{
		Code:    ErrTrackedRecordNotFound,
		Status:  404,
		Message: "tracked mod not found: foo",
	}

	expected := "TRACKED_RECORD_NOT_FOUND: tracked mod not found: foo"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors(t *testing.T) {
	cause := os.ErrPermission

	tests := []struct {
		name   string
		err    *ModError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("name is required"), ErrInvalidRequest, 400},
		{"outside root", NewPathOutsideManagedRoot("/a/Mods", "/a/Mods2"), ErrPathOutsideManagedRoot, 403},
		{"not found", NewTrackedRecordNotFound("Talisman"), ErrTrackedRecordNotFound, 404},
		{"unsupported archive", NewArchiveFormatUnsupported("mod.rar"), ErrArchiveFormatUnsupported, 415},
		{"malformed", NewMalformedDescriptor("/a/Mods/x/x.json", cause), ErrMalformedDescriptor, 422},
		{"dir read", NewDirectoryReadFailed("/a/Mods/x", cause), ErrDirectoryReadFailed, 500},
		{"file read", NewFileReadFailed("/a/Mods/x/x.lua", cause), ErrFileReadFailed, 500},
		{"extraction", NewExtractionFailed("x/x.lua", cause), ErrExtractionFailed, 500},
		{"internal", NewInternal(cause), ErrInternal, 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("Code = %q, want %q", tc.err.Code, tc.code)
			}
			if tc.err.Status != tc.status {
				t.Errorf("Status = %d, want %d", tc.err.Status, tc.status)
			}
			if tc.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestNewPathOutsideManagedRoot_Details(t *testing.T) {
	err := NewPathOutsideManagedRoot("/a/Mods", "/a/Mods2/x")

	if err.Details["root"] != "/a/Mods" {
		t.Errorf("Details[root] = %v, want /a/Mods", err.Details["root"])
	}
	if err.Details["path"] != "/a/Mods2/x" {
		t.Errorf("Details[path] = %v, want /a/Mods2/x", err.Details["path"])
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestUnwrap(t *testing.T) {
	err := NewExtractionFailed("x/y.lua", os.ErrPermission)
	if !stderrors.Is(err, os.ErrPermission) {
		t.Error("expected errors.Is to see the wrapped cause")
	}
}

func TestIs(t *testing.T) {
	err := NewTrackedRecordNotFound("foo")

	if !Is(err, ErrTrackedRecordNotFound) {
		t.Error("Is() = false, want true for matching code")
	}
	if Is(err, ErrInternal) {
		t.Error("Is() = true, want false for different code")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is() = true for non-ModError")
	}

	wrapped := fmt.Errorf("cascade: %w", err)
	if !Is(wrapped, ErrTrackedRecordNotFound) {
		t.Error("Is() = false for wrapped ModError")
	}

	joined := stderrors.Join(fmt.Errorf("other"), err)
	if !Is(joined, ErrTrackedRecordNotFound) {
		t.Error("Is() = false for joined ModError")
	}
}
