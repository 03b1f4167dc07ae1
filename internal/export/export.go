package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
)

// ErrNothingToExport is returned when no curve matches the options.
var ErrNothingToExport = errors.New("no curves match the export criteria")

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// Status filters curves by completion.
type Status string

const (
	StatusAll      Status = ""
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	CreatedAfter  time.Time
	CreatedBefore time.Time
	TokenFilter   string // exact token id
	Status        Status
	OutputDir     string
}

// CurveExporter writes curve listings to files.
type CurveExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewCurveExporter creates a new curve exporter
func NewCurveExporter(logger *zap.Logger) *CurveExporter {
	return &CurveExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportCurves writes the records matching options, newest first, and
// returns the created file path.
func (ce *CurveExporter) ExportCurves(records []curve.Record, options ExportOptions) (string, error) {
	filtered := ce.filterCurves(records, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	summaries := make([]curve.Summary, 0, len(filtered))
	for _, rec := range filtered {
		summaries = append(summaries, curve.Summarize(rec))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, ce.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(summaries, outputPath)
	case FormatJSON:
		err = ce.exportToJSON(summaries, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	ce.logger.Info("Curves exported",
		zap.String("file", outputPath),
		zap.Int("count", len(summaries)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (ce *CurveExporter) filterCurves(records []curve.Record, options ExportOptions) []curve.Record {
	var filtered []curve.Record

	for _, rec := range records {
		if !options.CreatedAfter.IsZero() && rec.CreatedAt.Before(options.CreatedAfter) {
			continue
		}
		if !options.CreatedBefore.IsZero() && rec.CreatedAt.After(options.CreatedBefore) {
			continue
		}
		if options.TokenFilter != "" && rec.TokenID != options.TokenFilter {
			continue
		}
		switch options.Status {
		case StatusActive:
			if rec.IsComplete {
				continue
			}
		case StatusComplete:
			if !rec.IsComplete {
				continue
			}
		}
		filtered = append(filtered, rec)
	}

	return filtered
}

func (ce *CurveExporter) generateFilename(options ExportOptions) string {
	timestamp := ce.now().Format("20060102_150405")

	prefix := "curves_all"
	if options.Status != StatusAll {
		prefix = "curves_" + string(options.Status)
	}
	if id := options.TokenFilter; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		prefix += "_" + id
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders lists the columns written by a CSV export.
func CSVHeaders() []string {
	return []string{
		"token_id", "name", "symbol", "price_sol", "progress_percent", "complete",
		"remaining_tokens", "virtual_sol_reserves", "real_sol_reserves", "market_cap_sol", "created_at",
	}
}

func summaryRow(s curve.Summary) []string {
	return []string{
		s.TokenID,
		s.Name,
		s.Symbol,
		s.Price.String(),
		s.ProgressPercent.StringFixed(2),
		fmt.Sprintf("%t", s.IsComplete),
		curve.FormatTokenAmount(s.RemainingTokens),
		curve.FormatAssetAmount(s.VirtualAssetReserves),
		curve.FormatAssetAmount(s.RealAssetReserves),
		s.MarketCap.StringFixed(2),
		s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func exportToCSV(summaries []curve.Summary, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, s := range summaries {
		if err := writer.Write(summaryRow(s)); err != nil {
			return fmt.Errorf("failed to write curve %s: %w", s.TokenID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// CurveJSON is the JSON form of a curve.Summary. Amounts are in whole
// units as decimal strings.
type CurveJSON struct {
	TokenID            string    `json:"token_id"`
	Name               string    `json:"name"`
	Symbol             string    `json:"symbol"`
	PriceSOL           string    `json:"price_sol"`
	ProgressPercent    string    `json:"progress_percent"`
	Complete           bool      `json:"complete"`
	RemainingTokens    string    `json:"remaining_tokens"`
	VirtualSOLReserves string    `json:"virtual_sol_reserves"`
	RealSOLReserves    string    `json:"real_sol_reserves"`
	MarketCapSOL       string    `json:"market_cap_sol"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewCurveJSON converts a summary.
func NewCurveJSON(s curve.Summary) CurveJSON {
	return CurveJSON{
		TokenID:            s.TokenID,
		Name:               s.Name,
		Symbol:             s.Symbol,
		PriceSOL:           s.Price.String(),
		ProgressPercent:    s.ProgressPercent.StringFixed(2),
		Complete:           s.IsComplete,
		RemainingTokens:    curve.FormatTokenAmount(s.RemainingTokens),
		VirtualSOLReserves: curve.FormatAssetAmount(s.VirtualAssetReserves),
		RealSOLReserves:    curve.FormatAssetAmount(s.RealAssetReserves),
		MarketCapSOL:       s.MarketCap.StringFixed(2),
		CreatedAt:          s.CreatedAt.UTC(),
	}
}

// ExportSummary aggregates an exported listing.
type ExportSummary struct {
	TotalCurves        int    `json:"total_curves"`
	CompleteCurves     int    `json:"complete_curves"`
	TotalSOLCollected  string `json:"total_sol_collected"`
	AverageProgress    string `json:"average_progress_percent"`
	LargestMarketCapID string `json:"largest_market_cap_token,omitempty"`
}

func (ce *CurveExporter) exportToJSON(summaries []curve.Summary, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	curves := make([]CurveJSON, 0, len(summaries))
	for _, s := range summaries {
		curves = append(curves, NewCurveJSON(s))
	}

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		CurveCount int           `json:"curve_count"`
		Summary    ExportSummary `json:"summary"`
		Curves     []CurveJSON   `json:"curves"`
	}{
		ExportTime: ce.now().UTC(),
		CurveCount: len(curves),
		Summary:    calculateSummary(summaries),
		Curves:     curves,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func calculateSummary(summaries []curve.Summary) ExportSummary {
	summary := ExportSummary{TotalCurves: len(summaries)}
	if len(summaries) == 0 {
		summary.TotalSOLCollected = "0"
		summary.AverageProgress = "0.00"
		return summary
	}

	collected := decimal.Zero
	progress := decimal.Zero
	var largest curve.Summary
	for i, s := range summaries {
		if s.IsComplete {
			summary.CompleteCurves++
		}
		collected = collected.Add(s.RealAssetReserves)
		progress = progress.Add(s.ProgressPercent)
		if i == 0 || s.MarketCap.GreaterThan(largest.MarketCap) {
			largest = s
		}
	}

	summary.TotalSOLCollected = curve.FormatAssetAmount(collected)
	summary.AverageProgress = progress.DivRound(decimal.NewFromInt(int64(len(summaries))), 2).StringFixed(2)
	summary.LargestMarketCapID = largest.TokenID
	return summary
}
