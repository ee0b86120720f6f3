package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/waleedsbi/atm-master/client"
)

// Build-time variables set via ldflags.
var (
	version   = "1.0.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:8080"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("atm version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("atm version %s-dev", version)
}

type configFile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "atm",
		Short:   "Back up and restore the ATM dashboard database",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Server URL (env: ATM_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API key (env: ATM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "table", "Output format: json|table|quiet")

	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newTablesCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig fills flags left at their defaults from the environment,
// then from ~/.atm-master/config.yaml.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("ATM_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("ATM_API_KEY")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(home, ".atm-master", "config.yaml"))
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	resolvedURL, resolvedKey := cfg.URL, cfg.APIKey
	if cfg.Profiles != nil {
		profileName := cfg.ActiveProfile
		if profileName == "" {
			profileName = "default"
		}
		if p, ok := cfg.Profiles[profileName]; ok {
			if p.URL != "" {
				resolvedURL = p.URL
			}
			if p.APIKey != "" {
				resolvedKey = p.APIKey
			}
		}
	}
	if flagURL == defaultURL && resolvedURL != "" {
		flagURL = resolvedURL
	}
	if flagKey == "" && resolvedKey != "" {
		flagKey = resolvedKey
	}
}
