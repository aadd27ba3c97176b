package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedClassification(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("select save location first: %w", fmt.Errorf("%w: %w", ErrValidation, ErrNoDestination))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation class, got %v", err)
	}
	if !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected no destination, got %v", err)
	}
	if errors.Is(err, ErrEngine) {
		t.Fatalf("did not expect engine class")
	}
}
