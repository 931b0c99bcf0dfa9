package sky

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	errs := []error{
		ErrIO,
		ErrCorruptFormat,
		ErrCorruptState,
		ErrChecksum,
		ErrLockConflict,
		ErrLockViolation,
		ErrExhausted,
		ErrClosed,
		ErrAlreadyOpen,
		ErrInvalidName,
		ErrInvalidObjectID,
	}

	seen := make(map[string]int)
	for i, err := range errs {
		if err == nil {
			t.Fatalf("error at index %d is nil", i)
		}
		msg := err.Error()
		if prev, ok := seen[msg]; ok {
			t.Errorf("error at index %d has same message as index %d: %q", i, prev, msg)
		}
		seen[msg] = i
	}
}

func TestErrorsWrapBothCauses(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("%w: write header: %w", ErrIO, cause)
	if !errors.Is(err, ErrIO) {
		t.Error("errors.Is(err, ErrIO) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
}
