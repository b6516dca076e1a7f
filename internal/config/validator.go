// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, so the binary never runs
// with partial, malformed, or missing configuration.
//
// One custom rule is registered here: `dsn_template`, which insists the
// database DSN carries exactly one `%s` verb for the password and parses
// as a MySQL DSN with parseTime=true.  Without parseTime the DATETIME
// columns of the user table cannot scan into time.Time.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("dsn_template", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if strings.Count(s, "%s") != 1 || strings.Count(s, "%") != 1 {
			return false
		}
		cfg, err := mysql.ParseDSN(fmt.Sprintf(s, "placeholder"))
		return err == nil && cfg.ParseTime
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
