// Package watcher polls the onboarding mailbox and provisions an account for
// every request it finds.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/message"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
	"github.com/perarneng/autoboard/pkg/ratelimit"
)

// Onboarder creates the accounts, normally *provision.Unified.
type Onboarder interface {
	Onboard(ctx context.Context, account interfaces.Account, opts provision.Options) (*provision.Result, error)
}

// Options control one watcher. In dry-run mode records are written to
// OutputDir and nothing is created or labelled.
type Options struct {
	Query        string
	MaxResults   int64
	DryRun       bool
	OutputDir    string
	Provisioning provision.Options
	// MessageInterval spaces out message fetches.
	MessageInterval time.Duration
}

// Summary counts what one pass did.
type Summary struct {
	Listed      int
	Processed   int
	Skipped     int
	Failed      int
	RateLimited int
}

type Watcher struct {
	mailbox   interfaces.MailboxClient
	parser    *parser.Parser
	onboarder Onboarder
	writer    interfaces.RecordWriter
	limiter   *ratelimit.Limiter
	audit     *audit.Log
	pacer     *rate.Limiter
	logger    interfaces.Logger
	opts      Options
}

// New wires a watcher. onboarder may be nil in dry-run mode, writer may be
// nil otherwise; auditLog may be nil.
func New(mailbox interfaces.MailboxClient, p *parser.Parser, onboarder Onboarder, writer interfaces.RecordWriter,
	limiter *ratelimit.Limiter, auditLog *audit.Log, logger interfaces.Logger, opts Options) *Watcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 25
	}
	pace := rate.Inf
	if opts.MessageInterval > 0 {
		pace = rate.Every(opts.MessageInterval)
	}
	return &Watcher{
		mailbox:   mailbox,
		parser:    p,
		onboarder: onboarder,
		writer:    writer,
		limiter:   limiter,
		audit:     auditLog,
		pacer:     rate.NewLimiter(pace, 1),
		logger:    logger,
		opts:      opts,
	}
}

// Run polls every interval until ctx is cancelled. A failed pass is logged
// and retried on the next tick.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error(fmt.Sprintf("Mailbox pass failed: %v", err))
		}
		w.limiter.Sweep()

		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce processes every message currently matching the query.
func (w *Watcher) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary

	if w.opts.DryRun {
		if w.writer == nil {
			return sum, errors.New("dry run needs an output writer")
		}
		if err := w.writer.ValidateOutputDir(w.opts.OutputDir); err != nil {
			return sum, err
		}
	} else if w.onboarder == nil {
		return sum, fmt.Errorf("watcher: %w", provision.ErrNotConfigured)
	}

	w.logger.Info(fmt.Sprintf("Fetching message list (query %q, max %d)...", w.opts.Query, w.opts.MaxResults))
	msgs, err := w.mailbox.ListMessages(ctx, w.opts.Query, w.opts.MaxResults)
	if err != nil {
		return sum, err
	}
	sum.Listed = len(msgs)
	w.logger.Info(fmt.Sprintf("Found %d messages to process", len(msgs)))

	for i, stub := range msgs {
		if err := w.pacer.Wait(ctx); err != nil {
			return sum, err
		}
		w.logger.Info(fmt.Sprintf("Processing message %d/%d (ID: %s)", i+1, len(msgs), stub.Id))

		switch w.process(ctx, stub.Id) {
		case outcomeProcessed:
			sum.Processed++
		case outcomeSkipped:
			sum.Skipped++
		case outcomeRateLimited:
			sum.RateLimited++
		default:
			sum.Failed++
		}
	}

	w.logger.Info(fmt.Sprintf("Pass completed. Processed: %d, Skipped: %d, Rate limited: %d, Failed: %d",
		sum.Processed, sum.Skipped, sum.RateLimited, sum.Failed))

	if sum.Processed == 0 && sum.Skipped == 0 && sum.Failed > 0 && sum.Failed == sum.Listed {
		return sum, errors.New("all messages failed")
	}
	return sum, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeProcessed
	outcomeSkipped
	outcomeRateLimited
)

func (w *Watcher) process(ctx context.Context, id string) outcome {
	raw, err := w.mailbox.GetMessage(ctx, id)
	if err != nil {
		w.logger.Error(fmt.Sprintf("Failed to get message %s: %v", id, err))
		return outcomeFailed
	}
	email, err := message.Decode(raw)
	if err != nil {
		w.logger.Error(fmt.Sprintf("Failed to decode message %s: %v", id, err))
		return outcomeFailed
	}
	sender := senderAddress(email.From)

	record, err := w.parser.Parse(email)
	if err != nil {
		w.logger.Warn(fmt.Sprintf("Skipping message %s: %v", id, err))
		w.record(audit.Event{
			Action:      audit.ActionParseFailed,
			PerformedBy: sender,
			Details:     map[string]any{"messageId": id, "subject": email.Subject, "error": err.Error()},
		})
		// Unparseable requests will not improve on retry.
		w.markProcessed(ctx, id)
		return outcomeFailed
	}

	if w.opts.DryRun {
		if w.writer.Exists(email, w.opts.OutputDir) {
			w.logger.Info(fmt.Sprintf("Record for message %s already written, skipping", id))
			return outcomeSkipped
		}
		if err := w.writer.WriteRecord(ctx, email, record, w.opts.OutputDir); err != nil {
			w.logger.Error(fmt.Sprintf("Failed to write record for %s: %v", id, err))
			return outcomeFailed
		}
		return outcomeProcessed
	}

	st := w.limiter.Check(sender)
	if !st.Allowed {
		w.logger.Warn(fmt.Sprintf("%s (sender %s)", w.limiter.Message(st), sender))
		w.record(audit.Event{
			Action:      audit.ActionRateLimited,
			TargetEmail: record.PrimaryEmail,
			PerformedBy: sender,
			Details:     map[string]any{"messageId": id, "count": st.Count, "limit": st.Limit},
		})
		return outcomeRateLimited
	}

	result, err := w.onboarder.Onboard(ctx, record.Account(), w.opts.Provisioning)
	details := map[string]any{"messageId": id, "source": "email"}
	if result != nil {
		details["google"] = result.Google != nil
		details["microsoft"] = result.Microsoft != nil
		details["errors"] = result.Errors
	}

	// Mark even on failure so a partially created user is not retried.
	w.markProcessed(ctx, id)

	if err != nil {
		w.logger.Error(fmt.Sprintf("Onboarding %s from message %s failed: %v", record.PrimaryEmail, id, err))
		w.record(audit.Event{
			Action:      audit.ActionUserCreationFailed,
			TargetEmail: record.PrimaryEmail,
			PerformedBy: sender,
			Details:     details,
		})
		return outcomeFailed
	}

	for _, msg := range result.Errors {
		w.logger.Warn(fmt.Sprintf("Onboarding %s: %s", record.PrimaryEmail, msg))
	}
	w.record(audit.Event{
		Action:      audit.ActionUserCreated,
		TargetEmail: record.PrimaryEmail,
		PerformedBy: sender,
		Success:     true,
		Details:     details,
	})
	w.warnIfSuspicious()
	return outcomeProcessed
}

func (w *Watcher) markProcessed(ctx context.Context, id string) {
	if w.opts.DryRun {
		return
	}
	if err := w.mailbox.MarkProcessed(ctx, id); err != nil {
		w.logger.Warn(fmt.Sprintf("Failed to label message %s: %v", id, err))
	}
}

func (w *Watcher) record(e audit.Event) {
	if w.audit == nil {
		return
	}
	if _, err := w.audit.Record(e); err != nil {
		w.logger.Error(fmt.Sprintf("Failed to write audit event: %v", err))
	}
}

func (w *Watcher) warnIfSuspicious() {
	if w.audit == nil {
		return
	}
	if s, err := w.audit.DetectSuspicious(); err == nil && s.Suspicious {
		w.logger.Warn(fmt.Sprintf("Suspicious activity: %s", s.Reason))
	}
}

// senderAddress extracts the bare address from a From header.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	if from = strings.TrimSpace(from); from != "" {
		return strings.ToLower(from)
	}
	return "unknown"
}
