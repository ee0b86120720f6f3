// Command atm-server runs the ATM dashboard backup and restore service.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/waleedsbi/atm-master/internal/config"
)

// Build metadata set via ldflags; the release itself is config.Version.
var (
	commit    = ""
	buildDate = ""
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", config.Version, commit, buildDate)
	}
	return config.Version + "-dev"
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:          "atm-server",
		Short:        "ATM dashboard database backup service",
		Version:      versionString(),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve.RunE,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCreateUserCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// loadConfig reads the environment configuration and builds the logger.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	return cfg, newLogger(cfg), nil
}
