package http

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("positive", isPositive); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(fieldName)
	return v
}

// isPositive accepts finite numbers greater than zero.
func isPositive(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch {
	case f.CanFloat():
		x := f.Float()
		return x > 0 && !math.IsInf(x, 1)
	case f.CanInt():
		return f.Int() > 0
	case f.CanUint():
		return f.Uint() > 0
	}
	return false
}

// fieldName reports a field by its json name, then its path param name.
func fieldName(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	if p := sf.Tag.Get("param"); p != "" {
		return p
	}
	return sf.Name
}

// Validate checks v against its validate tags.
func Validate(v interface{}) []ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return toValidationErrors(err)
}

// ReadAndValidateRequest binds the request into req, applies default tags
// and validates it. It returns nil or a []ValidationError.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		out := make([]ValidationError, len(fes))
		for i, fe := range fes {
			out[i] = ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: describe(fe),
				Params:  paramsOf(fe),
			}
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

var tagMessages = map[string]string{
	"required": "%s is required",
	"positive": "%s must be a positive number",
	"uuid4":    "%s must be a valid session id",
}

func describe(fe validator.FieldError) string {
	if tmpl, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
}

func paramsOf(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	}
	return nil
}
