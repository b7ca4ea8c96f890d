package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/ratelimit"
	"github.com/perarneng/autoboard/pkg/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API used by workflow automation",
	Long: `Serve the onboarding HTTP API. When API_KEY is set, every endpoint except
/healthz requires a matching X-API-Key header.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	report := cfg.Validate()
	for _, w := range report.Warnings {
		log.Warn(w.Var + ": " + w.Message)
	}
	if !report.IsValid() {
		for _, e := range report.Errors {
			log.Error(e.Var + ": " + e.Message)
		}
		return errInvalidConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditLog, err := audit.Open(cfg.Audit.Dir)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	go limiter.Run(ctx)

	unified, err := buildUnified(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(newParser(cfg, log), unified, limiter, auditLog, log, server.Options{
		APIKey:       cfg.Server.APIKey,
		Provisioning: provisioningOptions(cfg),
	})
	return srv.ListenAndServe(ctx, cfg.Server.Listen)
}
