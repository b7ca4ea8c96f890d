package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
	"github.com/perarneng/autoboard/pkg/ratelimit"
)

var (
	manual        parser.ManualInput
	noLicense     bool
	adminUnit     string
	onboardDryRun bool
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create an account from command line input",
	Long: `Create a new employee in every configured directory from values given on
the command line. Either --first and --last or --full-name is required.`,
	RunE: runOnboard,
}

func init() {
	f := onboardCmd.Flags()
	f.StringVar(&manual.FirstName, "first", "", "Legal first name")
	f.StringVar(&manual.LastName, "last", "", "Legal last name")
	f.StringVar(&manual.FullName, "full-name", "", "Full legal name, split automatically")
	f.StringVar(&manual.PreferredName, "preferred-name", "", "Preferred name")
	f.StringVar(&manual.Email, "email", "", "Override the derived primary email")
	f.StringVar(&manual.Position, "title", "", "Job title")
	f.StringVar(&manual.Department, "department", "", "Department")
	f.StringVar(&manual.Country, "country", "", "Country name or ISO code")
	f.StringVar(&manual.UsageLocation, "usage-location", "", "Override the Microsoft usage location")
	f.BoolVar(&noLicense, "no-license", false, "Do not assign a Microsoft license")
	f.StringVar(&adminUnit, "admin-unit", "", "Add the Microsoft user to this administrative unit")
	f.BoolVar(&onboardDryRun, "dry-run", false, "Print the record without creating anything")

	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	record, err := newParser(cfg, log).Build(manual)
	if errors.Is(err, parser.ErrMissingName) {
		return errors.New("missing required fields: --first and --last, or --full-name")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if onboardDryRun {
		record.Password = ""
		return enc.Encode(record)
	}

	auditLog, err := audit.Open(cfg.Audit.Dir)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)

	// Counts are per process.
	st := limiter.Check("cli")
	if !st.Allowed {
		return errors.New(limiter.Message(st))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	unified, err := buildUnified(ctx, cfg, log)
	if err != nil {
		return err
	}

	opts := provisioningOptions(cfg)
	if noLicense {
		opts.AssignLicense = false
	}
	if adminUnit != "" {
		opts.AdministrativeUnitID = adminUnit
	}

	result, onboardErr := unified.Onboard(ctx, record.Account(), opts)

	event := audit.Event{
		Action:      audit.ActionUserCreated,
		TargetEmail: record.PrimaryEmail,
		PerformedBy: "cli",
		Success:     onboardErr == nil,
		Details:     map[string]any{"source": "cli"},
	}
	if onboardErr != nil {
		event.Action = audit.ActionUserCreationFailed
		event.Details["error"] = onboardErr.Error()
	}
	if _, err := auditLog.Record(event); err != nil {
		log.Error(fmt.Sprintf("Failed to write audit event: %v", err))
	}

	if result != nil {
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	if onboardErr != nil {
		if errors.Is(onboardErr, provision.ErrNotConfigured) {
			return errors.New("no identity provider configured, run: autoboard validate")
		}
		return onboardErr
	}
	return nil
}
