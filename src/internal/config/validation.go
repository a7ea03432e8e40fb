package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhsoft/ws02-gateway/src/internal/database"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "cidr":
		return "must be a valid CIDR (e.g., 10.0.0.0/8)"
	case "hostname_port":
		return "must be in format 'host:port'"
	case "hostname_rfc1123|ip":
		return "must be a valid IP address or host name"
	case "dsn":
		return "must be a sqlserver://, postgres:// or SQLite DSN"
	case "encoding_scheme":
		return fmt.Sprintf("must be one of: %s", strings.Join(encodingSchemes, ", "))
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For named items: the name of the item (e.g., "jdbc/DFMDB", "WS01")
	FieldPath string // Dot-notation field path (e.g., "general.listen_addr", "connection.0.dsn")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var encodingSchemes = []string{EncodingHTML, EncodingBase64, EncodingURL, EncodingNone}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("dsn", validateDSN); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("encoding_scheme", validateEncodingScheme); err != nil {
		panic(err)
	}

	// Register function to get field name from "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validator: DSN with a supported database dialect
func validateDSN(fl validator.FieldLevel) bool {
	_, err := database.DialectOf(fl.Field().String())
	return err == nil
}

// Custom validator: known IS_ENCODE scheme
func validateEncodingScheme(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, scheme := range encodingSchemes {
		if value == scheme {
			return true
		}
	}
	return false
}
