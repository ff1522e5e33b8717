package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/docforge/pdfmd/internal/domain"
)

var (
	outputDir string
	noCache   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <pdf-file> [<pdf-file>...]",
	Short: "Convert one or more PDF files to Markdown",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for generated .md files")
	convertCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the conversion cache for this run")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Backend = "memory"
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	failures := 0

	for _, path := range args {
		result, err := client.Convert(ctx, path)
		_ = bar.Add(1)
		if err != nil {
			failures++
			color.Red("✗ %s: %v", path, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		outPath := markdownPath(path)
		if err := os.WriteFile(outPath, []byte(result.Markdown), 0o644); err != nil {
			failures++
			color.Red("✗ %s: writing output: %v", path, err)
			continue
		}

		printSummary(path, outPath, result)
	}

	stats := client.CacheStats(ctx)
	fmt.Fprintf(os.Stderr, "\n%d file(s) in %v (cache: %d hits, %d misses)\n",
		len(args), time.Since(start).Round(time.Millisecond), stats.Hits, stats.Misses)

	if failures > 0 {
		return fmt.Errorf("%d of %d conversions failed", failures, len(args))
	}
	return nil
}

func markdownPath(pdfPath string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(outputDir, base+".md")
}

func printSummary(path, outPath string, result *domain.ConversionResult) {
	if result.FromCache {
		color.Cyan("✓ %s → %s (cached)", path, outPath)
		return
	}

	var direct, ocr, hybrid, degraded int
	for _, page := range result.Pages {
		switch page.Classification {
		case domain.ClassifyDirect:
			direct++
		case domain.ClassifyOCR:
			ocr++
		case domain.ClassifyHybrid:
			hybrid++
		}
		if page.OCRFailed {
			degraded++
		}
	}

	color.Green("✓ %s → %s (%d pages: %d direct, %d ocr, %d hybrid)",
		path, outPath, len(result.Pages), direct, ocr, hybrid)
	if degraded > 0 {
		color.Yellow("  %d page(s) degraded: OCR unavailable or failed", degraded)
	}
}
