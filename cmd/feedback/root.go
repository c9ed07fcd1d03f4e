package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
	"github.com/saferoomai/feedback/internal/config"
	"github.com/saferoomai/feedback/internal/platform"
	"github.com/saferoomai/feedback/pkg/core"
)

var (
	verbose    bool
	configPath string
	namespace  string
	apiURL     string
	storePath  string
	adapter    string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and inspect accept/reject feedback on suggestions",
	Long: `feedback records user decisions on suggestions, submits them to the
feedback API and keeps the current decision per suggestion in local storage.
Network failures never block a decision: it is recorded locally instead.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("Error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: feedback.yaml at the project root)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Feedback namespace (UI region)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Base URL of the feedback API")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Directory of the fs store (default: .feedback at the project root)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, memory, redis, sql")
}

// setup loads .env, the config file and the environment, applies flag
// overrides and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if root, err := platform.FindRoot(wd); err == nil {
				path = filepath.Join(root, platform.ConfigFileName)
			}
		}
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if namespace != "" {
		if err := core.ValidateNamespace(namespace); err != nil {
			return err
		}
		c.Namespace = namespace
	}
	if apiURL != "" {
		c.API.BaseURL = apiURL
	}
	if adapter != "" {
		c.Store.Adapter = adapter
	}
	if storePath != "" {
		c.Store.Path = storePath
	}
	if c.Store.Adapter == platform.AdapterFS && c.Store.Path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		c.Store.Path = platform.DefaultStorePath(wd)
	}
	if verbose {
		c.Log.Level = "debug"
	}

	logger, err := newLogger(c.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg = c
	return nil
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func options() []feedback.Option {
	return append(cfg.Options(), feedback.WithLogger(slog.Default()))
}

// openCoordinator builds the coordinator for the configured namespace. The
// caller must Close it.
func openCoordinator() (*feedback.Coordinator, error) {
	coord, err := feedback.New(cfg.Namespace, options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open namespace %s: %w", cfg.Namespace, err)
	}
	return coord, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
