// Package cmd implements the linelog command line: a server exposing a log
// store over HTTP and tools for querying, following, exporting and writing
// its files.
package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/linelog/internal/config"
	"github.com/Iron-Ham/linelog/internal/engine"
	"github.com/Iron-Ham/linelog/internal/reader"
	"github.com/Iron-Ham/linelog/internal/store"
)

// app carries state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "linelog",
		Short: "Rotating structured log files for server and client faults",
		Long: `linelog keeps severity-leveled records from a server process and its
remote clients in rotating, line-framed JSON files, and lets you query,
follow and export them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $HOME/.config/linelog/config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newTailCmd(a),
		newExportCmd(a),
		newWriteCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) initConfig() error {
	// Set defaults first so they're available even without a config file
	config.SetDefaultsOn(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(config.ConfigDir())
		a.v.AddConfigPath(".")
	}

	a.v.AutomaticEnv()
	a.v.SetEnvPrefix("LINELOG")
	// e.g. LINELOG_LOG_FOLDER_PATH for log.folder_path
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := a.v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit one must exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && a.cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.LoadFrom(a.v)
}

// openEngine opens the configured store for writing.
func (a *app) openEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	ecfg, err := engine.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.Open(ecfg)
	if err != nil {
		return nil, nil, err
	}
	return e, cfg, nil
}

// openReader reads the configured store's files without opening it for
// writing.
func (a *app) openReader() (*reader.Reader, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	return reader.New(store.NewFileSet(opts.FolderPath, opts.LogFilename), nil), nil
}
