package validation

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindingEngine(t *testing.T) *validator.Validate {
	t.Helper()
	RegisterCustomValidators()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v
}

func TestReviewStatusTagOnBindingEngine(t *testing.T) {
	v := bindingEngine(t)

	for _, status := range []string{"pending", "approved", "rejected", "flagged"} {
		assert.NoError(t, v.Var(status, "review_status"), status)
	}
	assert.Error(t, v.Var("published", "review_status"))
	assert.Error(t, v.Var("", "review_status"))
}

func TestRewardTypeTagOnBindingEngine(t *testing.T) {
	v := bindingEngine(t)

	for _, rt := range []string{"percentage", "fixed", "buy1get1", "free_drink", "free_item"} {
		assert.NoError(t, v.Var(rt, "reward_type"), rt)
	}
	assert.Error(t, v.Var("cashback", "reward_type"))
}

func TestMessage_TranslatesValidatorErrors(t *testing.T) {
	v := bindingEngine(t)

	type req struct {
		Status string `binding:"required,review_status"`
	}

	err := v.Struct(req{Status: "published"})
	require.Error(t, err)
	assert.Contains(t, Message(err), "valid review status")

	err = v.Struct(req{})
	require.Error(t, err)
	assert.Contains(t, Message(err), "required")
}

func TestMessage_PassesThroughOtherErrors(t *testing.T) {
	err := errors.New("unexpected end of JSON input")
	assert.Equal(t, "unexpected end of JSON input", Message(err))
}
