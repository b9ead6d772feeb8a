package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/record"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "log.max_file_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the accepted record level names
func ValidLogLevels() []string {
	return []string{"trace", "debug", "information", "warning", "error", "critical", "none"}
}

// ValidFormats returns the accepted on-disk layouts
func ValidFormats() []string {
	return []string{framing.FormatIndented.String(), framing.FormatSingleLine.String()}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator with the config-specific
// rules registered. Field names are reported as their mapstructure keys.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("level", func(fl validator.FieldLevel) bool {
			_, err := record.ParseLevel(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("format", func(fl validator.FieldLevel) bool {
			_, err := framing.ParseFormat(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("size", func(fl validator.FieldLevel) bool {
			_, err := ParseSize(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "config", Value: nil, Message: err.Error()}}
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return errs
}

// fieldPath drops the root struct name: "Config.log.day_to_keep" becomes
// "log.day_to_keep".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "excludesall":
		return "must not contain path separators"
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hostname_port":
		return "must be a host:port address"
	case "level":
		return "must be one of: " + strings.Join(ValidLogLevels(), ", ")
	case "format":
		return "must be one of: " + strings.Join(ValidFormats(), ", ")
	case "size":
		return "must be an integer with an optional K, M or G suffix"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
