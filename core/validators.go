package core

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MsgRequired is the message of a missing field.
const MsgRequired = "this field is required"

// globalRules are registered on every Validator.
var globalRules = []struct {
	tag  string
	fn   validator.Func
	text string
}{
	{tag: "singleline", fn: singleLineValidation, text: "{0} must fit on a single line"},
}

// Validator bundles the struct validator with its translator.
type Validator struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidator instantiates a Validator with the global rules plus the ones registered by each init func.
func NewValidator(inits ...func(*validator.Validate, ut.Translator)) *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report JSON names, not Go field names
	validate.RegisterTagNameFunc(jsonFieldName)

	RegisterCustomTranslation(validate, translator, "required", MsgRequired, true)
	for _, rule := range globalRules {
		_ = validate.RegisterValidation(rule.tag, rule.fn)
		RegisterCustomTranslation(validate, translator, rule.tag, rule.text)
	}
	for _, init := range inits {
		init(validate, translator)
	}
	return &Validator{Validate: validate, Translator: translator}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Struct runs tag and struct level validations on s.
// The returned *ValidationError is never nil; it is empty when s is valid.
func (v *Validator) Struct(s interface{}) *ValidationError {
	err := v.Validate.Struct(s)
	if err == nil {
		return NewValidationError(nil)
	}
	if fErrs, ok := err.(validator.ValidationErrors); ok {
		return v.Translate(fErrs)
	}
	return NewValidationError(err)
}

// Translate converts validator errors into a ValidationError with human readable messages.
func (v *Validator) Translate(fErrs validator.ValidationErrors) *ValidationError {
	verr := NewValidationError(nil)
	for _, fe := range fErrs {
		verr.Add(fe.Field(), fe.Translate(v.Translator))
	}
	return verr
}

// RegisterCustomTranslation registers text as the message of tag; `{0}` is replaced by the field name.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// singleLineValidation rejects line breaks and other control characters.
func singleLineValidation(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}
