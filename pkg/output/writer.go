package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/message"
	"github.com/perarneng/autoboard/pkg/parser"
)

const (
	recordSuffix   = "_record.yaml"
	metadataSuffix = "_metadata.txt"
	bodySuffix     = "_body.txt"
)

var (
	timezoneCommentPattern = regexp.MustCompile(`\s*\([^)]+\)\s*$`)
	invalidFilenamePattern = regexp.MustCompile(`[^\w\s.-]`)
	spacesPattern          = regexp.MustCompile(`\s+`)
	dashesPattern          = regexp.MustCompile(`-+`)
)

var _ interfaces.RecordWriter = (*FileWriter)(nil)

// FileWriter exports parsed onboarding records to one folder per email, for
// dry runs and for review before provisioning.
type FileWriter struct {
	logger interfaces.Logger
	now    func() time.Time
}

func NewFileWriter(logger interfaces.Logger) *FileWriter {
	return &FileWriter{
		logger: logger,
		now:    time.Now,
	}
}

func (w *FileWriter) ValidateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Error(fmt.Sprintf("Output directory does not exist: %s", outputDir))
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("error checking output directory: %w", err)
	}

	if !info.IsDir() {
		w.logger.Error(fmt.Sprintf("Output path is not a directory: %s", outputDir))
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	w.logger.Debug(fmt.Sprintf("Output directory validated: %s", outputDir))
	return nil
}

// GenerateFolderName returns YYYY-MM-DD_HH-MM-SS_subject for the email.
func (w *FileWriter) GenerateFolderName(email *message.Email) string {
	return w.generateFilePrefix(email)
}

// Exists reports whether a record for email was already written.
func (w *FileWriter) Exists(email *message.Email, outputDir string) bool {
	pattern := filepath.Join(outputDir, w.GenerateFolderName(email), "*"+recordSuffix)
	matches, _ := filepath.Glob(pattern)
	return len(matches) > 0
}

// generateFilePrefix keeps names under 255 characters for filesystem
// compatibility.
func (w *FileWriter) generateFilePrefix(email *message.Email) string {
	date := w.parseEmailDate(email.Date)
	dateStr := date.Format("2006-01-02_15-04-05")

	subject := w.sanitizeForFilename(email.Subject)
	if subject == "" {
		subject = "no-subject"
	}

	maxSubjectLen := 200 - len(dateStr) - 1
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}

	return fmt.Sprintf("%s_%s", dateStr, subject)
}

// WriteRecord writes the record as YAML next to the email metadata and the
// body text the parser read. The temporary password is left out.
func (w *FileWriter) WriteRecord(ctx context.Context, email *message.Email, record *interfaces.OnboardingRecord, outputDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := w.generateFilePrefix(email)
	folderPath := filepath.Join(outputDir, prefix)
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return fmt.Errorf("failed to create record folder: %w", err)
	}

	redacted := *record
	redacted.Password = ""
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(folderPath, prefix+recordSuffix), data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	metadata := fmt.Sprintf(`Email ID: %s
Thread ID: %s
Subject: %s
From: %s
To: %s
Date: %s
Record ID: %s
Primary Email: %s
`, email.ID, email.ThreadID, email.Subject, email.From, email.To, email.Date, record.ID, record.PrimaryEmail)
	if err := os.WriteFile(filepath.Join(folderPath, prefix+metadataSuffix), []byte(metadata), 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	body := parser.BodyText(email)
	if err := os.WriteFile(filepath.Join(folderPath, prefix+bodySuffix), []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	date := w.parseEmailDate(email.Date)
	if err := os.Chtimes(folderPath, date, date); err != nil {
		w.logger.Warn(fmt.Sprintf("Failed to set folder timestamp: %v", err))
	}

	w.logger.Info(fmt.Sprintf("Wrote record for %s to %s", record.PrimaryEmail, folderPath))
	return nil
}

func (w *FileWriter) parseEmailDate(dateStr string) time.Time {
	cleanDateStr := timezoneCommentPattern.ReplaceAllString(dateStr, "")

	formats := []string{
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 -0700",
		"02 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, cleanDateStr); err == nil {
			return t
		}
	}

	w.logger.Warn(fmt.Sprintf("Could not parse date '%s', using current time", dateStr))
	return w.now()
}

func (w *FileWriter) sanitizeForFilename(s string) string {
	cleaned := invalidFilenamePattern.ReplaceAllString(s, "")
	cleaned = spacesPattern.ReplaceAllString(cleaned, "-")
	cleaned = dashesPattern.ReplaceAllString(cleaned, "-")
	return strings.Trim(cleaned, "-")
}
