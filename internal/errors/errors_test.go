package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	plain := Input("base amount is required")
	assert.Equal(t, "[INPUT_ERROR] base amount is required", plain.Error())

	wrapped := Schema("decode schema", fmt.Errorf("unexpected EOF"))
	assert.Equal(t, "[SCHEMA_ERROR] decode schema: unexpected EOF", wrapped.Error())
}

func TestIsTypeSeesThroughWrapping(t *testing.T) {
	inner := Derivation("UNIT_TIMES_COUNT", stderrors.New("option missing"))
	outer := fmt.Errorf("quote: %w", inner)

	require.True(t, IsType(outer, TypeDerivation))
	require.False(t, IsType(outer, TypeSchema))
	require.False(t, IsType(stderrors.New("plain"), TypeInternal))
}

func TestWithContext(t *testing.T) {
	err := NotFound("schema file", "door.json").WithContext("path", "/tmp/door.json")
	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, "/tmp/door.json", err.Context["path"])
}
