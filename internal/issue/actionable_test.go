// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "link descriptors"},
			want: "failed to link descriptors",
		},
		{
			name: "operation and resource",
			err:  &ActionableError{Operation: "load module descriptor", Resource: "./go.mod"},
			want: "failed to load module descriptor: ./go.mod",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "unpack artifact",
				Resource:  "dep.zip",
				Cause:     errors.New("not a zip file"),
			},
			want: "failed to unpack artifact: dep.zip: not a zip file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapWithOperation(cause, "restore descriptor")
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the wrapped cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	err := &ActionableError{
		Operation:   "acquire session lock",
		Suggestions: []string{"Stop the hung sibling build", "Retry after the staleness cutoff"},
		Cause:       errors.New("context deadline exceeded"),
	}

	plain := err.Format(false)
	if !strings.Contains(plain, "• Stop the hung sibling build") {
		t.Errorf("Format(false) should list suggestions:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "1. context deadline exceeded") {
		t.Errorf("Format(true) should include the error chain:\n%s", verbose)
	}
}

func TestErrorContext_Build(t *testing.T) {
	cause := errors.New("boom")
	err := NewErrorContext().
		WithOperation("unpack artifact").
		WithResource("dep.zip").
		WithSuggestion("Delete the cached artifact").
		Wrap(cause).
		Build()

	if err == nil {
		t.Fatal("Build() = nil for a complete context")
	}
	if err.Operation != "unpack artifact" || err.Resource != "dep.zip" {
		t.Errorf("built error = %+v", err)
	}
	if !err.HasSuggestions() {
		t.Error("HasSuggestions() = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("built error should wrap the cause")
	}
}

func TestErrorContext_BuildRequiresOperation(t *testing.T) {
	if err := NewErrorContext().WithResource("x").Build(); err != nil {
		t.Errorf("Build() without operation = %v, want nil", err)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestWrapHelpers_NilCause(t *testing.T) {
	if err := WrapWithOperation(nil, "anything"); err != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", err)
	}
	if err := WrapWithContext(nil, "anything", "res"); err != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", err)
	}
}
