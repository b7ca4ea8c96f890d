package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perarneng/autoboard/pkg/config"
)

var errInvalidConfig = errors.New("configuration has critical errors, run: autoboard validate")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and print setup instructions",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := cfg.Validate()
	out := cmd.OutOrStdout()
	if report.IsValid() && len(report.Warnings) == 0 {
		fmt.Fprintln(out, color.GreenString("Configuration is valid."))
		return nil
	}

	fmt.Fprint(out, config.SetupInstructions(report))
	if !report.IsValid() {
		return errInvalidConfig
	}
	fmt.Fprintln(out, color.YellowString("Configuration is usable, see warnings above."))
	return nil
}
