package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/config"
	"github.com/nao1215/claimbot/internal/log"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// getLogFormatFlag retrieves the log format flag when it was set on the
// command line.
func getLogFormatFlag(cmd *cobra.Command) (string, bool) {
	flag := cmd.Flags().Lookup("log-format")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("log-format")
	}
	if flag == nil || !flag.Changed {
		return "", false
	}
	return flag.Value.String(), true
}

// buildConfig creates a Config from defaults, the configuration file,
// the environment and the global flags. Command specific flags are applied
// by the caller.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use the defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s: %w", cfg.ConfigFilePath, config.ErrConfigNotFound)
	}

	cfg.ApplyEnv(os.Getenv)

	if format, ok := getLogFormatFlag(cmd); ok {
		cfg.LogFormat = format
	}

	return cfg, nil
}

// setupLogger creates the secure structured logger used by every command.
// Logs go to stderr so that status lines and reports on stdout stay clean.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

// newLogger returns a secure logger writing cfg.LogFormat records to w.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// apiOptions returns the client settings described by cfg.
func apiOptions(cfg *config.Config, logger *slog.Logger) api.Options {
	return api.Options{
		BaseURL:   cfg.APIBaseURL,
		Origin:    cfg.Origin,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	}
}

// isCancelled reports whether err only says that the run was interrupted.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
