// Package audit keeps an append-only JSON Lines trail of account creation.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the trail.
const (
	ActionUserCreated        = "USER_CREATED"
	ActionUserCreationFailed = "USER_CREATION_FAILED"
	ActionParseFailed        = "PARSE_FAILED"
	ActionRateLimited        = "RATE_LIMITED"
)

const (
	// FileName is the trail file inside the audit directory.
	FileName = "audit.log"

	suspiciousWindow    = 10 * time.Minute
	suspiciousThreshold = 5
	suspiciousScan      = 50
)

// Event is one audit entry.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Action      string         `json:"action"`
	TargetEmail string         `json:"target_email"`
	PerformedBy string         `json:"performed_by"`
	IPAddress   string         `json:"ip_address"`
	Success     bool           `json:"success"`
	Details     map[string]any `json:"details"`
}

// Suspicion is the outcome of DetectSuspicious.
type Suspicion struct {
	Suspicious bool   `json:"suspicious"`
	Reason     string `json:"reason,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// Log appends events to <dir>/audit.log. Safe for concurrent use.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Open creates dir (0700) if needed and tightens an existing trail to 0600.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("failed to set audit log permissions: %w", err)
		}
	}
	return &Log{path: path, now: time.Now}, nil
}

func (l *Log) Path() string {
	return l.path
}

// Record fills in ID, Timestamp and the "system"/"unknown" defaults, then
// appends the event as one line.
func (l *Log) Record(e Event) (Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	if e.PerformedBy == "" {
		e.PerformedBy = "system"
	}
	if e.IPAddress == "" {
		e.IPAddress = "unknown"
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return e, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return e, fmt.Errorf("failed to write to audit log: %w", err)
	}
	return e, nil
}

// Recent returns events from the last limit lines, oldest first. Lines that
// do not parse are skipped.
func (l *Log) Recent(limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	events := make([]Event, 0, len(lines))
	for _, line := range lines {
		var e Event
		if json.Unmarshal([]byte(line), &e) == nil {
			events = append(events, e)
		}
	}
	return events, nil
}

// DetectSuspicious flags more than five successful creations within the
// last ten minutes.
func (l *Log) DetectSuspicious() (Suspicion, error) {
	events, err := l.Recent(suspiciousScan)
	if err != nil {
		return Suspicion{}, err
	}

	cutoff := l.now().Add(-suspiciousWindow)
	count := 0
	for _, e := range events {
		if e.Action == ActionUserCreated && e.Success && e.Timestamp.After(cutoff) {
			count++
		}
	}

	if count > suspiciousThreshold {
		return Suspicion{
			Suspicious: true,
			Reason:     fmt.Sprintf("%d users created in the last 10 minutes", count),
			Count:      count,
		}, nil
	}
	return Suspicion{}, nil
}
