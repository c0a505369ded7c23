package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_ProducesPHCFormat(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.Len(t, strings.Split(hash, "$"), 6)
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_OversizedPassword(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_CorrectPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-real-hash", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)
}
