package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-123")

	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedRunIDGenerator_EmptyUsesDefault(t *testing.T) {
	gen := NewFixedRunIDGenerator("")
	assert.Equal(t, "test-run-default", gen.Generate())
}
