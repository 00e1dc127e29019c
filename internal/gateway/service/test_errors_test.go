package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := Invalid("type", "unsupported value %q", "x")
	assert.Equal(t, `type: unsupported value "x"`, err.Error())
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", err)))
	assert.False(t, IsValidation(fmt.Errorf("plain")))
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}
