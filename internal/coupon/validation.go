// internal/coupon/validation.go
//
// Field-level validation for coupons.
//
// Context
// -------
// HTTP handlers turn a *ValidationError into a 400 response carrying one
// message per offending field.  Field names follow the JSON tags so API
// clients can map them straight back onto their form inputs.  Besides the
// struct tags, two cross-field rules run at struct level:
//
//   • max_percent  – a percentage amount may not exceed PercentScale
//   • after_start  – ends_at must fall after starts_at

package coupon

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError maps field names to human-readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "coupon: invalid " + strings.Join(names, ", ")
}

// FieldErrors satisfies the interface httperr uses to render 400 bodies.
func (e *ValidationError) FieldErrors() map[string]string { return e.Fields }

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

var (
	codeRE   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("coupon_code", func(fl validator.FieldLevel) bool {
		return codeRE.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(couponRules, Coupon{})
	return v
}

func couponRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Coupon)
	if c.DiscountType == Percentage && c.Amount > PercentScale {
		sl.ReportError(c.Amount, "amount", "Amount", "max_percent", "")
	}
	if c.EndsAt != nil && !c.StartsAt.IsZero() && !c.EndsAt.After(c.StartsAt) {
		sl.ReportError(c.EndsAt, "ends_at", "EndsAt", "after_start", "")
	}
}

// Validate checks c and returns a *ValidationError on failure.
func Validate(c *Coupon) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		if _, seen := out.Fields[fe.Field()]; !seen {
			out.Fields[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "coupon_code":
		return "Only letters, digits, '-' and '_' are allowed."
	case "max_percent":
		return "A percentage discount cannot exceed 100.00%."
	case "after_start":
		return "The end date must be after the start date."
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
