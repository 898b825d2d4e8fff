package brickqlerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrors_SetKind(t *testing.T) {
	assert.Equal(t, KindParse, NewParseError("parse.x", "m", nil).Kind)
	assert.Equal(t, KindValidation, NewValidationError("validate.x", "m", nil).Kind)
	assert.Equal(t, KindCompilation, NewCompilationError("compile.x", "m", nil).Kind)
	assert.Equal(t, KindProfileConfig, NewProfileConfigError("profile.x", "m", nil).Kind)
}

func TestError_ToErrorResponse(t *testing.T) {
	err := NewValidationError("validate.unknown_table", "table 'x' does not exist", map[string]any{"table": "x"})
	resp := err.ToErrorResponse()
	assert.Equal(t, "validation", resp["kind"])
	assert.Equal(t, "validate.unknown_table", resp["code"])
	assert.Equal(t, "table 'x' does not exist", resp["message"])
	assert.Equal(t, map[string]any{"table": "x"}, resp["details"])
}

func TestError_WithCauseAndUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewCompilationError("compile.x", "m", nil).WithCause(cause)
	assert.Same(t, cause, err.Unwrap())
	require.ErrorIs(t, err, cause)
}

func TestIsKind(t *testing.T) {
	err := NewParseError("parse.x", "m", nil)
	assert.True(t, IsKind(err, KindParse))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindParse))
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewCompilationError("compile.x", "failed", nil).WithCause(cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "compile.x")
}
