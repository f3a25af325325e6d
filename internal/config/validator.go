// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `LoadFrom` calls `validateStruct` immediately after defaults are applied.
// Any tag mismatch aborts startup, so the binary never runs with partial or
// malformed configuration.  Besides the built-in rules we register one
// custom rule, `dsn_template`, which insists the tenant DSN template carries
// exactly one `%s` verb.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("dsn_template", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || strings.Count(s, "%s") == 1
	})
	return val
}

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return v.Var(c.Database.DSNTemplate, "dsn_template")
}
