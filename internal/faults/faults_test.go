package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsPermanent(Permanent(base)))
	assert.False(t, IsPermanent(Transient(base)))

	// Unclassified errors are treated as transient so they stay retryable.
	assert.False(t, IsPermanent(base))
	assert.False(t, IsPermanent(nil))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("step failed: %w", Permanent(errors.New("bad input")))

	assert.True(t, IsPermanent(err))
	assert.ErrorContains(t, err, "bad input")
}

func TestUnwrap(t *testing.T) {
	base := errors.New("boom")
	assert.ErrorIs(t, Transient(base), base)
}
