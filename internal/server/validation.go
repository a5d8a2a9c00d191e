package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/emurenMRz/mailmark/internal/validate"
)

// Struct tags bound to the single-value validators.
var kindTags = map[string]validate.Kind{
	"mail_address":    validate.KindEmail,
	"page_url":        validate.KindURL,
	"strong_password": validate.KindPassword,
	"alnum_text":      validate.KindAlphanumeric,
	"mail_domain":     validate.KindEmailDomain,
	"mail_key":        validate.KindEmailKey,
}

var tagMessages = map[string]string{
	"mail_address":    "not a valid email address",
	"page_url":        "not a valid public URL",
	"strong_password": "needs a lower and an upper case letter, a digit and one of " + validate.PasswordSpecials,
	"password_length": "too short",
	"alnum_text":      "only letters, digits and spaces are allowed",
	"mail_domain":     "not a valid email domain",
	"mail_key":        "only letters, digits, '.' and '-' are allowed",
}

func newRequestValidator(passwordMinLength int) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, kind := range kindTags {
		fn := kind.Func()
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	if err := v.RegisterValidation("password_length", func(fl validator.FieldLevel) bool {
		return validate.MinLength(fl.Field().String(), passwordMinLength)
	}); err != nil {
		panic(err)
	}
	return v
}
