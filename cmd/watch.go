package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/gmail"
	"github.com/perarneng/autoboard/pkg/output"
	"github.com/perarneng/autoboard/pkg/ratelimit"
	"github.com/perarneng/autoboard/pkg/watcher"
)

var (
	watchQuery     string
	watchInterval  time.Duration
	watchOnce      bool
	watchDryRun    bool
	watchOutputDir string
	watchMax       int64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll Gmail for onboarding emails and create the accounts",
	Long: `Poll the configured Gmail mailbox for onboarding requests. Every matching
message is parsed, rate limited per sender, provisioned and then labelled
so it is not picked up again. With --dry-run the parsed records are written
to --output-dir instead and nothing is created or labelled.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&watchQuery, "query", "q", "", "Gmail search query (default from GMAIL_QUERY)")
	f.DurationVarP(&watchInterval, "interval", "i", 0, "Poll interval (default from GMAIL_POLL_INTERVAL)")
	f.BoolVar(&watchOnce, "once", false, "Process the current messages and exit")
	f.BoolVar(&watchDryRun, "dry-run", false, "Write records to --output-dir instead of creating accounts")
	f.StringVarP(&watchOutputDir, "output-dir", "d", "", "Output directory for --dry-run records")
	f.Int64VarP(&watchMax, "max", "c", 0, "Maximum messages per poll (default from GMAIL_MAX_RESULTS)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchQuery != "" {
		cfg.Gmail.Query = watchQuery
	}
	if watchInterval > 0 {
		cfg.Gmail.PollInterval = watchInterval
	}
	if watchMax > 0 {
		cfg.Gmail.MaxResults = watchMax
	}
	if watchDryRun && watchOutputDir == "" {
		return fmt.Errorf("--output-dir is required with --dry-run")
	}

	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditLog, err := audit.Open(cfg.Audit.Dir)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)

	mailbox := gmail.NewClient(googleAuth(cfg), cfg.Gmail.ProcessedLabel)
	log.Info("Connecting to Gmail API...")
	if err := mailbox.Connect(ctx); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Gmail: %v", err))
		return err
	}

	var onboarder watcher.Onboarder
	if !watchDryRun {
		unified, err := buildUnified(ctx, cfg, log)
		if err != nil {
			return err
		}
		onboarder = unified
	}

	w := watcher.New(mailbox, newParser(cfg, log), onboarder, output.NewFileWriter(log), limiter, auditLog, log, watcher.Options{
		Query:           cfg.Gmail.Query,
		MaxResults:      cfg.Gmail.MaxResults,
		DryRun:          watchDryRun,
		OutputDir:       watchOutputDir,
		Provisioning:    provisioningOptions(cfg),
		MessageInterval: 100 * time.Millisecond,
	})

	if watchOnce {
		_, err := w.RunOnce(ctx)
		return err
	}

	log.Info(fmt.Sprintf("Watching mailbox every %s (query %q)", cfg.Gmail.PollInterval, cfg.Gmail.Query))
	return w.Run(ctx, cfg.Gmail.PollInterval)
}
