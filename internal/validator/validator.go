// Package validator bridges gin's binding engine with go-playground/validator
// and its English translations, so handlers get ready-to-return field error
// maps instead of raw validator errors.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// Setup wires translations and JSON tag names into gin's validator engine.
// Must run once before the router starts serving.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
}

// jsonFieldName reports a struct field by its json tag so error maps match
// the wire names clients actually sent.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Bind decodes the JSON body into dst. On failure it returns the translated
// field error map; nil means the payload bound and validated cleanly.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// TranslateErrors converts a binding error into field -> message pairs. A
// non-validation error (malformed JSON, wrong types) collapses into a single
// "detail" entry.
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fields
}
