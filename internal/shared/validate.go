package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BcryptMaxBytes is the longest secret bcrypt accepts.
const BcryptMaxBytes = 72

// Validator wraps go-playground/validator and reports failures as a
// ValidationError keyed by JSON field names.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator that names fields after their json tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= BcryptMaxBytes
	})
	return &Validator{validate: v}
}

// Struct validates s and appends one entry per failing field to errs.
// messages maps "field.tag" or a bare field name to the message reported for
// it; unknown fields fall back to the validator's tag.
func (v *Validator) Struct(errs *ValidationError, s any, messages map[string]string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		name := fe.Field()
		if errs.Has(name) {
			continue
		}
		errs.Add(name, message(messages, name, fe.Tag()))
	}
	return nil
}

// Var validates a single value against tag and records field on failure.
func (v *Validator) Var(errs *ValidationError, field string, value any, tag, msg string) {
	if err := v.validate.Var(value, tag); err != nil {
		if errs.Has(field) {
			return
		}
		if msg == "" {
			msg = "failed on " + tag
		}
		errs.Add(field, msg)
	}
}

func message(messages map[string]string, field, tag string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := messages[field]; ok {
		return msg
	}
	return "failed on the '" + tag + "' rule"
}

// RegisterValidation adds a custom rule usable in tags.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}
