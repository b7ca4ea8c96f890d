package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/config"
	"github.com/perarneng/autoboard/pkg/gmail"
	"github.com/perarneng/autoboard/pkg/googleauth"
	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/logger"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
)

var (
	configFile string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "autoboard",
	Short: "Automated employee onboarding from HR emails",
	Long: `autoboard reads "New Hire Onboarding" emails from a Gmail mailbox,
extracts the new employee's details and creates matching accounts in
Google Workspace and Microsoft 365.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (environment variables still override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.Load()
}

// newLogger applies the flag overrides on top of the configured logging
// section. The returned closer flushes the log file, if any.
func newLogger(cfg *config.Config) (interfaces.Logger, io.Closer, error) {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	path := cfg.Logging.File
	if logFile != "" {
		path = logFile
	}

	if path == "" {
		return logger.New(os.Stdout, nil, logger.ParseLevel(level)), io.NopCloser(nil), nil
	}
	f, err := logger.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger.New(os.Stdout, f, logger.ParseLevel(level)), f, nil
}

func newParser(cfg *config.Config, log interfaces.Logger) *parser.Parser {
	return parser.NewParser(parser.Options{
		Domain:        cfg.Onboarding.Domain,
		SubjectPrefix: cfg.Onboarding.SubjectPrefix,
		Logger:        log,
	})
}

// googleAuth shares one token between the mailbox and the directory, so it
// always asks for both scopes.
func googleAuth(cfg *config.Config) googleauth.Options {
	scopes := append([]string{}, gmail.Scopes...)
	scopes = append(scopes, provision.GoogleScopes...)
	return googleauth.Options{
		CredentialsFile: cfg.Google.CredentialsFile,
		TokenFile:       cfg.Google.TokenFile,
		Scopes:          scopes,
		In:              os.Stdin,
		Out:             os.Stdout,
	}
}

// buildUnified connects whichever providers are configured.
func buildUnified(ctx context.Context, cfg *config.Config, log interfaces.Logger) (*provision.Unified, error) {
	var google interfaces.UserDirectory
	if cfg.GoogleConfigured() && cfg.Google.AdminEnabled {
		dir, err := provision.NewGoogleDirectory(ctx, googleAuth(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Google Workspace: %w", err)
		}
		google = dir
	} else {
		log.Warn("Google Workspace not configured, skipping")
	}

	var microsoft provision.LicensedDirectory
	if cfg.MicrosoftConfigured() {
		microsoft = provision.NewMicrosoft(provision.MicrosoftConfig{
			TenantID:     cfg.Microsoft.TenantID,
			ClientID:     cfg.Microsoft.ClientID,
			ClientSecret: cfg.Microsoft.ClientSecret,
		}, log)
	} else {
		log.Warn("Microsoft 365 not configured, skipping")
	}

	return provision.NewUnified(google, microsoft, log), nil
}

func provisioningOptions(cfg *config.Config) provision.Options {
	return provision.Options{
		AssignLicense:        cfg.Onboarding.AssignLicense,
		LicenseSKU:           cfg.Microsoft.LicenseSKU,
		AdministrativeUnitID: cfg.Microsoft.AdministrativeUnitID,
	}
}
