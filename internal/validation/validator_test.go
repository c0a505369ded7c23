package validation

import (
	"testing"

	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"display_name,omitempty" validate:"max=100"`
}

func TestValidate_ValidStruct(t *testing.T) {
	v := New()

	err := v.Validate(registerRequest{
		Email:    "reader@example.com",
		Password: "longenough",
	})

	assert.NoError(t, err)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	v := New()

	err := v.Validate(registerRequest{
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "must be a valid email address", domainErr.Details["email"])
	assert.Equal(t, "must be at least 8 characters", domainErr.Details["password"])
}

func TestValidate_UsesJSONTagNames(t *testing.T) {
	v := New()

	err := v.Validate(registerRequest{
		Email:    "reader@example.com",
		Password: "longenough",
		Name:     string(make([]byte, 101)),
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	// The omitempty option must be stripped from the reported field name.
	assert.Contains(t, domainErr.Details, "display_name")
}
