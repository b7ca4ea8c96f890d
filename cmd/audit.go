package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/audit"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit events",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of events to show (0 for all)")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := audit.Open(cfg.Audit.Dir)
	if err != nil {
		return err
	}

	events, err := log.Recent(auditLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tTARGET\tBY\tRESULT")
	for _, e := range events {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.TargetEmail, e.PerformedBy, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s, err := log.DetectSuspicious()
	if err != nil {
		return err
	}
	if s.Suspicious {
		fmt.Fprintln(out, color.RedString("\nSuspicious activity: %s", s.Reason))
	}
	fmt.Fprintf(out, "\n%d event(s) from %s\n", len(events), log.Path())
	return nil
}
