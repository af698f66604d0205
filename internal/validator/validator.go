package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-cbt/internal/model"
)

var (
	trans ut.Translator
	once  sync.Once
)

// customTags are the domain tags registered on top of the built-in ones,
// with their English messages.
var customTags = map[string]struct {
	fn  govalidator.Func
	msg string
}{
	"entry_token": {isEntryToken, "{0} may only contain letters and digits"},
	"focus_signal": {isFocusSignal, "{0} must be tab_hidden or window_blur"},
}

// Setup registers the validator with English translations and the exam tags
// on Gin's binding engine. Safe to call more than once.
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)

		for tag, ct := range customTags {
			_ = v.RegisterValidation(tag, ct.fn)
			registerMessage(v, tag, ct.msg)
		}

		v.RegisterStructValidation(antiCheatRules, model.UpdateAntiCheatRequest{})
		registerMessage(v, "gtefield_freeze", "{0} must be 0 or at least freeze_duration_seconds")
	})
}

func registerMessage(v *govalidator.Validate, tag, msg string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, msg, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		})
}

func isEntryToken(fl govalidator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isFocusSignal(fl govalidator.FieldLevel) bool {
	switch fl.Field().String() {
	case "tab_hidden", "window_blur":
		return true
	}
	return false
}

// A non-zero cap below the base penalty would freeze for less than the first
// violation.
func antiCheatRules(sl govalidator.StructLevel) {
	req := sl.Current().Interface().(model.UpdateAntiCheatRequest)
	if req.MaxFreezeSeconds != 0 && req.MaxFreezeSeconds < req.FreezeDurationSeconds {
		sl.ReportError(req.MaxFreezeSeconds, "max_freeze_seconds", "MaxFreezeSeconds", "gtefield_freeze", "")
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Struct validates an already decoded value, e.g. a WebSocket frame.
func Struct(v any) map[string]string {
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
