package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2,max=10"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&sampleRequest{Email: "a@b.co", Name: "Ann"}))
	assert.Error(t, v.Validate(&sampleRequest{Email: "not-an-email", Name: "Ann"}))
}

func TestFieldErrors(t *testing.T) {
	v := New()

	t.Run("valid input returns nil", func(t *testing.T) {
		assert.Nil(t, v.FieldErrors(&sampleRequest{Email: "a@b.co", Name: "Ann"}))
	})

	t.Run("fields are keyed by json name", func(t *testing.T) {
		errs := v.FieldErrors(&sampleRequest{Name: "A"})
		assert.Equal(t, "This field is required", errs["email"])
		assert.Equal(t, "Must be at least 2 characters", errs["name"])
	})

	t.Run("messages never echo input values", func(t *testing.T) {
		errs := v.FieldErrors(&sampleRequest{Email: "<script>alert(1)</script>", Name: "Ann"})
		for _, msg := range errs {
			assert.NotContains(t, msg, "<script>")
		}
	})

	t.Run("role enum", func(t *testing.T) {
		errs := v.FieldErrors(&sampleRequest{Email: "a@b.co", Name: "Ann", Role: "OVERLORD"})
		assert.Equal(t, "Unknown role", errs["role"])

		assert.Nil(t, v.FieldErrors(&sampleRequest{Email: "a@b.co", Name: "Ann", Role: "ADMIN"}))
	})
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", Sanitize("  <b>hi</b>  "))
}
