// Package extract turns classified pages into page records, running OCR and
// table detection as the classification demands.
package extract

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docforge/pdfmd/internal/classify"
	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

// Engine extracts one page at a time. The OCR engine may be nil when no
// usable installation exists; pages that need it are then flagged as
// ocr-failed instead of aborting the document.
type Engine struct {
	ocr    domain.OCREngine
	ocrCfg config.OCRConfig
	tables config.TableConfig
	logger zerolog.Logger
}

func NewEngine(ocr domain.OCREngine, ocrCfg config.OCRConfig, tables config.TableConfig, logger zerolog.Logger) *Engine {
	return &Engine{ocr: ocr, ocrCfg: ocrCfg, tables: tables, logger: logger}
}

// Extract produces the page record for one classified page. Extraction
// failures never fail the document: the record carries empty text and the
// OCRFailed flag instead.
func (e *Engine) Extract(ctx context.Context, page domain.Page, index int, decision classify.Decision) domain.PageRecord {
	record := domain.PageRecord{
		Index:          index,
		Classification: decision.Class,
		Confidence:     decision.Confidence,
	}

	switch decision.Class {
	case domain.ClassifyDirect:
		record.Text = strings.TrimSpace(decision.Text)

	case domain.ClassifyOCR:
		result, ok := e.runOCR(ctx, page, index)
		if !ok {
			record.OCRFailed = true
			break
		}
		record.Text = NormalizeOCR(result.Text)
		record.Confidence = result.MeanConfidence

	case domain.ClassifyHybrid:
		result, ok := e.runOCR(ctx, page, index)
		if !ok {
			// Hybrid degrades to the embedded layer alone.
			record.Text = strings.TrimSpace(decision.Text)
			record.OCRFailed = true
			break
		}
		record.Text = mergeHybrid(strings.TrimSpace(decision.Text), normalizedLines(result))
	}

	record.Tables = detectTables(strings.Split(record.Text, "\n"), index, e.tables)
	return record
}

func (e *Engine) runOCR(ctx context.Context, page domain.Page, index int) (domain.OCRResult, bool) {
	if e.ocr == nil {
		e.logger.Warn().Int("page", index).Msg("no OCR engine available, page degraded")
		return domain.OCRResult{}, false
	}

	img, err := page.Render(e.ocrCfg.DPI)
	if err != nil {
		e.logger.Warn().Err(err).Int("page", index).Msg("page render failed")
		return domain.OCRResult{}, false
	}

	result, err := e.ocr.Recognize(ctx, img, e.ocrCfg.Language)
	if err != nil {
		e.logger.Warn().Err(err).Int("page", index).Msg("OCR failed, page degraded")
		return domain.OCRResult{}, false
	}
	if strings.TrimSpace(result.Text) == "" && len(result.Lines) == 0 {
		e.logger.Warn().Int("page", index).Msg("OCR produced no text")
		return domain.OCRResult{}, false
	}
	return result, true
}

func normalizedLines(result domain.OCRResult) []domain.OCRLine {
	if len(result.Lines) > 0 {
		lines := make([]domain.OCRLine, 0, len(result.Lines))
		for _, l := range result.Lines {
			lines = append(lines, domain.OCRLine{
				Text:       NormalizeOCR(l.Text),
				Confidence: l.Confidence,
			})
		}
		return lines
	}

	// No per-line confidences; fall back to the block text with the mean.
	var lines []domain.OCRLine
	for _, text := range strings.Split(NormalizeOCR(result.Text), "\n") {
		if text == "" {
			continue
		}
		lines = append(lines, domain.OCRLine{Text: text, Confidence: result.MeanConfidence})
	}
	return lines
}
