package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpress/internal/apperr"
)

type sample struct {
	Email string  `json:"email" validate:"required,email,max=20"`
	Name  string  `json:"name" validate:"max=5"`
	Sex   *string `json:"sex" validate:"omitempty,oneof=M F"`
	Pass  string  `json:"password" validate:"min=8"`
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@example.com", Name: "Ada", Pass: "longenough"}))
}

func TestStructMessages(t *testing.T) {
	sex := "X"
	err := Struct(sample{Email: "", Name: "toolong", Sex: &sex, Pass: "short"})
	v, ok := apperr.AsValidation(err)
	require.True(t, ok, "expected a ValidationError, got %v", err)

	assert.Equal(t, []string{MsgBlank}, v.Fields["email"])
	assert.Equal(t, []string{"Ensure this field has no more than 5 characters."}, v.Fields["name"])
	require.Len(t, v.Fields["sex"], 1)
	assert.Contains(t, v.Fields["sex"][0], "is not a valid choice.")
	assert.Equal(t, []string{"Ensure this field has at least 8 characters."}, v.Fields["password"])
}

func TestStructEmail(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", Pass: "longenough"})
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{MsgEmail}, v.Fields["email"])
}
