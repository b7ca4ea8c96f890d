package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/provision"
)

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "List the Microsoft 365 licenses of the tenant",
	RunE:  runLicenses,
}

func init() {
	rootCmd.AddCommand(licensesCmd)
}

func runLicenses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !cfg.MicrosoftConfigured() {
		return fmt.Errorf("microsoft 365: %w", provision.ErrNotConfigured)
	}
	ms := provision.NewMicrosoft(provision.MicrosoftConfig{
		TenantID:     cfg.Microsoft.TenantID,
		ClientID:     cfg.Microsoft.ClientID,
		ClientSecret: cfg.Microsoft.ClientSecret,
	}, log)

	licenses, err := provision.NewUnified(nil, ms, log).Licenses(context.Background())
	if errors.Is(err, provision.ErrNotConfigured) {
		return fmt.Errorf("microsoft 365: %w", err)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKU\tTOTAL\tCONSUMED\tREMAINING")
	for _, l := range licenses {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", l.SKUPartNumber, l.Total, l.Consumed, l.Remaining)
	}
	return tw.Flush()
}
