// Package commands implements the pdfmd command-line interface.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docforge/pdfmd/pkg/converter"
)

const version = "1.0.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:     "pdfmd",
	Short:   "Convert PDF documents to Markdown with selective OCR",
	Version: version,
	Long: `pdfmd converts PDF documents to Markdown. Each page is classified by
glyph density and extracted directly, via OCR, or as a hybrid of both.
Results are cached by content fingerprint so repeat conversions are free.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; env vars may come from the shell.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func newClient(cfg converter.Config) (*converter.Client, error) {
	return converter.New(cfg)
}

func loadConfig() (converter.Config, error) {
	cfg, err := converter.LoadConfig(configPath)
	if err != nil {
		return converter.Config{}, err
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}
	return cfg, nil
}
