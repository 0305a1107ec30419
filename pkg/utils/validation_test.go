package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(signup{Email: "a@b.co", Password: "hunter22x"}))

	err := ValidateStruct(signup{Email: "", Password: "hunter22x"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "email is required", vErr.Reason)
	assert.ErrorIs(t, err, ErrValidation)

	err = ValidateStruct(signup{Email: "a@b.co", Password: "short1"})
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Reason, "password")
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("abcdefg1"))
	assert.False(t, IsStrongPassword("abcdefgh"))
	assert.False(t, IsStrongPassword("12345678"))
	assert.False(t, IsStrongPassword("ab1"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dev@example.com", NormalizeEmail("  Dev@Example.COM "))
}
