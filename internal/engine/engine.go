// Package engine assembles a running log store: the diagnostics sink, the
// rotating store, a reader over its files and the category logger registry.
// Hosts open one Engine at startup and close it on shutdown.
package engine

import (
	"io"
	"sync"

	"github.com/Iron-Ham/linelog/internal/config"
	"github.com/Iron-Ham/linelog/internal/diag"
	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/logging"
	"github.com/Iron-Ham/linelog/internal/reader"
	"github.com/Iron-Ham/linelog/internal/store"
)

// Config describes everything Open needs.
type Config struct {
	Store store.Options
	Host  logging.Host
	Diag  diag.Config

	// Logger overrides the diagnostics logger built from Diag.
	Logger *diag.Logger

	// StoreOptions are passed through to store.New.
	StoreOptions []store.Option
}

// FromConfig converts a loaded configuration.
func FromConfig(c *config.Config) (Config, error) {
	opts, err := c.StoreOptions()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Store: opts,
		Host:  c.Host(),
		Diag:  c.DiagConfig(),
	}, nil
}

// Engine owns the store and everything built on it.
type Engine struct {
	diag     *diag.Logger
	closer   io.Closer
	store    *store.Store
	reader   *reader.Reader
	registry *logging.Registry

	closeOnce sync.Once
	closeErr  error
}

// Open validates cfg and builds the engine. The folder lock is held until
// Close.
func Open(cfg Config) (*Engine, error) {
	if cfg.Host.RootName == "" {
		return nil, errors.NewConfigError("host root name is required").
			WithField("app.root_name")
	}

	d, closer := cfg.Logger, io.Closer(nil)
	if d == nil {
		var err error
		d, closer, err = diag.New(cfg.Diag)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.New(cfg.Store, d, cfg.StoreOptions...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	e := &Engine{
		diag:     d,
		closer:   closer,
		store:    st,
		reader:   reader.New(st.Files(), st),
		registry: logging.NewRegistry(st, cfg.Host),
	}

	opts := st.Options()
	d.Info().
		Str("folder", opts.FolderPath).
		Str("file", opts.LogFilename).
		Int64("max_size", opts.MaxFileSizeInByte).
		Int("day_to_keep", opts.DayToKeep).
		Str("min_level", opts.MinLevel.String()).
		Str("format", opts.Format.String()).
		Msg("log store opened")
	return e, nil
}

// Store returns the rotating file store.
func (e *Engine) Store() *store.Store { return e.store }

// Reader returns a reader that flushes the store before exporting.
func (e *Engine) Reader() *reader.Reader { return e.reader }

// Registry returns the category logger registry.
func (e *Engine) Registry() *logging.Registry { return e.registry }

// Diag returns the diagnostics logger.
func (e *Engine) Diag() *diag.Logger { return e.diag }

// Logger returns the logger for category.
func (e *Engine) Logger(category string) *logging.Logger {
	return e.registry.Logger(category)
}

// Close flushes and closes the store, releases the folder lock and closes
// the diagnostics output. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if err := e.store.Close(); err != nil {
			e.diag.Failure("close", e.store.Files().Active(), err)
			errs = append(errs, err)
		}
		e.diag.Info().Msg("log store closed")
		if e.closer != nil {
			if err := e.closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
