package store

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/record"
)

// Options configures a Store's location, rotation policy and layout.
type Options struct {
	// FolderPath holds the active file and its backups. Environment
	// variables are expanded; empty means os.TempDir().
	FolderPath string

	// LogFilename is the active file name, without directories.
	LogFilename string `validate:"required,excludesall=/\\"`

	// MaxFileSizeInByte triggers a rotation once the active file grows past
	// it. 0 disables size rotation.
	MaxFileSizeInByte int64 `validate:"gte=0"`

	// DayToKeep enables day rotation when positive and is the number of
	// backups retained by either trigger.
	DayToKeep int `validate:"gte=0,lte=365"`

	// AutoFlushLevel forces a flush after records at or above it.
	// record.LevelNone never forces one.
	AutoFlushLevel record.Level `validate:"min=0,max=6"`

	// MinLevel is the threshold loggers check before building a record.
	// record.LevelNone disables logging.
	MinLevel record.Level `validate:"min=0,max=6"`

	Format framing.Format `validate:"min=0,max=1"`
}

// DefaultOptions returns options for an application named rootName: a
// "<rootName>.log" file in the temp directory, 10 MiB size limit, seven
// days of backups, flush on Error.
func DefaultOptions(rootName string) Options {
	if rootName == "" {
		rootName = "linelog"
	}
	return Options{
		FolderPath:        os.TempDir(),
		LogFilename:       rootName + ".log",
		MaxFileSizeInByte: 10 << 20,
		DayToKeep:         7,
		AutoFlushLevel:    record.LevelError,
		MinLevel:          record.LevelInformation,
		Format:            framing.FormatIndented,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize expands FolderPath and fills it with the temp directory when
// empty.
func (o Options) Normalize() Options {
	o.FolderPath = strings.TrimSpace(os.ExpandEnv(o.FolderPath))
	if o.FolderPath == "" {
		o.FolderPath = os.TempDir()
	}
	return o
}

// Validate checks o and returns a *errors.ConfigError naming the first
// offending field.
func (o Options) Validate() error {
	err := validatorInstance().Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewConfigError("invalid store options").WithCause(err)
	}
	fe := verrs[0]
	return errors.NewConfigError(describe(fe)).
		WithField(fe.Field()).
		WithValue(fe.Value())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "excludesall":
		return fmt.Sprintf("%s must be a bare file name", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
