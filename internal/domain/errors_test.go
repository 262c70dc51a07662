package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "typed not found", err: NotFound(EntityOrder, 1), want: true},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", NotFound(EntityClient, 2)), want: true},
		{name: "sentinel", err: ErrNotFound, want: true},
		{name: "invalid state", err: NotDeleted(EntityOrder, 1), want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	if got := NotFound(EntityProduct, 5).Error(); got != "Product not found." {
		t.Fatalf("unexpected not found message: %q", got)
	}
	if got := NotDeleted(EntityClient, 5).Error(); got != "Client is not deleted." {
		t.Fatalf("unexpected state message: %q", got)
	}
	if !errors.Is(NotDeleted(EntityClient, 5), ErrInvalidState) {
		t.Fatal("state error must unwrap to ErrInvalidState")
	}
	conflict := &ConflictError{Field: "email", Message: "The email has already been taken."}
	if !errors.Is(conflict, ErrConflict) {
		t.Fatal("conflict error must unwrap to ErrConflict")
	}
}

func TestValidationError(t *testing.T) {
	verr := NewValidationError()
	if verr.Err() != nil {
		t.Fatal("empty validation error must return nil")
	}

	verr.Add("name", "The name field is required.")
	verr.Add("email", "The email field is required.")

	err := verr.Err()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := err.Error(); got != "validation failed: email: The email field is required.; name: The name field is required." {
		t.Fatalf("unexpected message: %q", got)
	}

	merged := NewValidationError()
	merged.Merge(err)
	merged.Merge(errors.New("plain"))
	if len(merged.Fields) != 2 {
		t.Fatalf("expected 2 merged fields, got %d", len(merged.Fields))
	}
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "idempotency already exists", err: ErrIdempotencyKeyAlreadyExists, want: true},
		{name: "idempotency hash mismatch", err: ErrIdempotencyHashMismatch, want: true},
		{name: "wrapped idempotency conflict", err: errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")), want: true},
		{name: "non idempotency error", err: ErrConflict, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdempotencyConflict(tt.err); got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
