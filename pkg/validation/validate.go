package validation

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterCustomValidators installs the domain validation tags on gin's
// binding engine so struct tags like `binding:"review_status"` work in
// ShouldBindJSON. Must run before the first request is bound; main calls it
// during startup. Idempotent.
func RegisterCustomValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		_ = v.RegisterValidation("review_status", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "pending", "approved", "rejected", "flagged":
				return true
			}
			return false
		})

		_ = v.RegisterValidation("reward_type", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "percentage", "fixed", "buy1get1", "free_drink", "free_item":
				return true
			}
			return false
		})
	})
}

// Message turns a binding error into a client-facing message. Validator
// errors are translated field by field; anything else (malformed JSON, type
// mismatches) passes through as-is.
func Message(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return NewValidationError(errs).Error()
	}
	return err.Error()
}
