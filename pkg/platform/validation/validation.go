// Package validation runs struct-tag validation on decoded request bodies and
// turns failures into domain validation errors with field-level messages.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	dErrors "examsite/pkg/domain-errors"
)

const (
	notBlankTag  = "notblank"
	civilDateTag = "civildate"
	clockTag     = "clock"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func instance() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Report JSON field names rather than Go struct field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation(notBlankTag, notBlank)
		_ = validate.RegisterValidation(civilDateTag, isCivilDate)
		_ = validate.RegisterValidation(clockTag, isClock)

		noop := func(ut.Translator) error { return nil }
		for _, tag := range []string{notBlankTag, civilDateTag, clockTag} {
			_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
		}
	})
	return validate, translator
}

// Struct validates v against its `validate` tags. The returned error carries
// CodeValidation and a deterministic, field-sorted description.
func Struct(v any) error {
	val, trans := instance()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(trans))
	}
	sort.Strings(msgs)
	return dErrors.New(dErrors.CodeValidation, strings.Join(msgs, "; "))
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case civilDateTag:
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case clockTag:
		return fe.Field() + " must be a time in HH:MM format"
	default:
		return fe.Field() + " is invalid"
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func isCivilDate(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := civil.ParseDate(s)
	return err == nil
}

func isClock(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := ParseClock(s)
	return err == nil
}

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (civil.Time, error) {
	if len(s) == len("15:04") {
		s += ":00"
	}
	return civil.ParseTime(s)
}
