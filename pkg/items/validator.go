package items

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StructValidator validates requests with struct tags and the date rules
// tags cannot express.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator creates a validator that reports fields by JSON name.
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &StructValidator{validate: v}
}

func (s *StructValidator) Validate(ctx context.Context, request any) error {
	verr := NewValidationError()

	if err := s.validate.StructCtx(ctx, request); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate request: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe.Namespace()), message(fe))
		}
	}

	var languages map[string]Payload
	switch r := request.(type) {
	case CreateRequest:
		languages = r.Languages
	case *CreateRequest:
		languages = r.Languages
	case UpdateRequest:
		languages = r.Languages
	case *UpdateRequest:
		languages = r.Languages
	}
	for code, p := range languages {
		if p.PublishAt != nil && p.ExpireAt != nil && !p.DisableExpireAt && !p.ExpireAt.After(*p.PublishAt) {
			verr.Add("languages["+code+"].expire_at", "must be after publish_at")
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// fieldPath drops the struct name prefix of a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}
