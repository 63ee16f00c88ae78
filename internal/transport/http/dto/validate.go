package dto

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	trans        ut.Translator
)

func validatorInstance() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// report json names, not Go field names
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("person_name", validatePersonName)

		english := en.New()
		uni := ut.New(english, english)
		tr, _ := uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, tr)
		_ = v.RegisterTranslation("person_name", tr,
			func(t ut.Translator) error {
				return t.Add("person_name", "{0} may only contain letters and spaces", true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T("person_name", fe.Field())
				return msg
			},
		)

		validate = v
		trans = tr
	})
	return validate, trans
}

// validatePersonName accepts letters and single spaces, nothing else.
func validatePersonName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// Validate checks req against its validate tags. The first failing field
// is returned as VALIDATION_MISSING_FIELD or VALIDATION_INVALID_FIELD.
func Validate(req any) error {
	v, tr := validatorInstance()

	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.ErrInvalidField("body", err.Error())
	}

	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return domain.ErrMissingField(fe.Field())
	}
	return domain.ErrInvalidField(fe.Field(), fe.Translate(tr))
}
