package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "api_url not found in configuration").
			WithSeverity(SeverityFatal).
			WithContext("field", "api_url").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		field, exists := err.Context().GetString("field")
		if !exists || field != "api_url" {
			t.Errorf("expected context field=api_url, got %v", field)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		base := StorageError("failed to write build log").Build()
		wrapped := fmt.Errorf("on submit: %w", base)

		if !IsClassified(wrapped) {
			t.Error("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryStorage) {
			t.Error("expected storage category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified errors to default to internal")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	original := errors.New("connection refused")
	err := FetchError("failed to download archive").
		WithCause(original).
		WithContext("url", "https://git.example.org/a/b/archive/abc.zip").
		Build()

	if !errors.Is(err, original) {
		t.Error("expected error to wrap original error")
	}
	if !err.CanRetry() {
		t.Error("expected fetch errors to be retryable")
	}
	if !err.IsFatal() {
		t.Error("expected fetch errors to be fatal for the invocation")
	}
	if got := err.Error(); got != "[fetch:fatal] failed to download archive: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestConstructorCategories(t *testing.T) {
	cases := []struct {
		name string
		err  *ClassifiedError
		want ErrorCategory
	}{
		{"config", ConfigError("x").Build(), CategoryConfig},
		{"manifest", ManifestError("x").Build(), CategoryManifest},
		{"fetch", FetchError("x").Build(), CategoryFetch},
		{"expand", ExpandError("x").Build(), CategoryExpand},
		{"remote", RemoteError("x").Build(), CategoryRemote},
		{"storage", StorageError("x").Build(), CategoryStorage},
		{"validation", ValidationError("x").Build(), CategoryValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Category() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, tc.err.Category())
			}
		})
	}
}

func TestIsMatchesCategoryAndMessage(t *testing.T) {
	sentinel := ManifestError("no usable files").Build()
	other := ManifestError("no usable files").WithContext("dir", "/tmp/x").Build()
	if !errors.Is(other, sentinel) {
		t.Error("expected errors with same category and message to match")
	}
	if errors.Is(RemoteError("no usable files").Build(), sentinel) {
		t.Error("expected different categories not to match")
	}
}
