package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/taskboard/internal/model"
)

type signup struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6,max=72"`
	Role       string  `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Nickname   *string `json:"nickname" validate:"omitempty,max=5"`
	AssignedTo string  `validate:"required"`
}

func TestStruct(t *testing.T) {
	err := Struct(signup{Email: "a@example.com", Password: "secret1", AssignedTo: "u1"})
	assert.NoError(t, err)

	long := "abcdefgh"
	err = Struct(signup{Email: "nope", Password: "1", Role: "owner", Nickname: &long})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"email":      "is not a valid email address",
		"password":   "must be at least 6 characters",
		"role":       "must be one of admin, user",
		"nickname":   "cannot be more than 5 characters",
		"assignedTo": "is required",
	}, verr.Fields)
}

func TestStructCountsRunes(t *testing.T) {
	err := Struct(signup{Email: "a@example.com", Password: strings.Repeat("ж", 72), AssignedTo: "u1"})
	assert.NoError(t, err)
}

func TestCollectKeepsEarlierMessages(t *testing.T) {
	verr := model.NewValidationError()
	verr.Add("email", "already taken")

	require.NoError(t, Collect(verr, signup{Email: "nope", Password: "secret1", AssignedTo: "u1"}))
	assert.Equal(t, "already taken", verr.Fields["email"])
}

func TestCollectRejectsNonStruct(t *testing.T) {
	assert.Error(t, Collect(model.NewValidationError(), "not a struct"))
}
