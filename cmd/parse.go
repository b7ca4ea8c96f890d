package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	gmailv1 "google.golang.org/api/gmail/v1"
	"gopkg.in/yaml.v3"

	"github.com/perarneng/autoboard/pkg/logger"
	"github.com/perarneng/autoboard/pkg/message"
)

var (
	parseFile    string
	parseSubject string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse an onboarding email and print the record",
	Long: `Parse an onboarding email without creating any account. The input is
either a Gmail API message as JSON (format=full) or the plain text body.
Use --file - to read from standard input.`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", "Email file: Gmail message JSON or plain text (required)")
	parseCmd.Flags().StringVarP(&parseSubject, "subject", "s", "", "Subject line for plain text input")
	parseCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if parseFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(parseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	email, err := readEmail(data, parseSubject)
	if err != nil {
		return err
	}

	// Keep stdout clean for the YAML document.
	log := logger.New(os.Stderr, nil, logger.ParseLevel(cfg.Logging.Level))
	record, err := newParser(cfg, log).Parse(email)
	if err != nil {
		return err
	}
	record.Password = ""

	out, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// readEmail accepts a Gmail message JSON document and falls back to treating
// data as the plain text body.
func readEmail(data []byte, subject string) (*message.Email, error) {
	var msg gmailv1.Message
	if err := json.Unmarshal(data, &msg); err == nil && msg.Payload != nil {
		email, err := message.Decode(&msg)
		if err != nil {
			return nil, err
		}
		if subject != "" {
			email.Subject = subject
		}
		return email, nil
	}

	text := string(data)
	return &message.Email{TextPlain: &text, Subject: subject}, nil
}
