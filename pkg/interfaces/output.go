package interfaces

import (
	"context"

	"github.com/perarneng/autoboard/pkg/message"
)

// RecordWriter exports parsed records instead of provisioning them.
type RecordWriter interface {
	WriteRecord(ctx context.Context, email *message.Email, record *OnboardingRecord, outputDir string) error
	ValidateOutputDir(outputDir string) error
	GenerateFolderName(email *message.Email) string
	Exists(email *message.Email, outputDir string) bool
}
