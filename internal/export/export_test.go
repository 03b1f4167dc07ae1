package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
)

var exportClock = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newTestExporter() *CurveExporter {
	ce := NewCurveExporter(zap.NewNop())
	ce.now = func() time.Time { return exportClock }
	return ce
}

func generateTestCurves(t *testing.T) []curve.Record {
	t.Helper()
	base := time.Now().Add(-time.Hour)

	mk := func(id string, sold decimal.Decimal, collected int64, age time.Duration) curve.Record {
		rec, err := curve.NewRecord(id, curve.DefaultTotalSupply, curve.Metadata{Name: "Token " + id, Symbol: strings.ToUpper(id)}, base.Add(age))
		if err != nil {
			t.Fatalf("NewRecord(%s): %v", id, err)
		}
		rec, err = curve.ApplyTrade(rec, sold, decimal.NewFromInt(collected), curve.Buy)
		if err != nil {
			t.Fatalf("ApplyTrade(%s): %v", id, err)
		}
		return rec
	}

	return []curve.Record{
		mk("alpha", decimal.Zero, 0, 0),
		mk("beta", curve.DefaultTotalSupply.Div(decimal.NewFromInt(2)), 1_500_000_000, 10*time.Minute),
		mk("gamma", curve.DefaultTotalSupply, 4_000_000_000, 20*time.Minute),
	}
}

func TestCurveExportCSV(t *testing.T) {
	exporter := newTestExporter()
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportCurves(generateTestCurves(t), ExportOptions{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export curves: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVHeaders(), ",") {
		t.Errorf("Unexpected header: %v", rows[0])
	}

	// newest first
	if rows[1][0] != "gamma" || rows[3][0] != "alpha" {
		t.Errorf("Unexpected order: %s, %s, %s", rows[1][0], rows[2][0], rows[3][0])
	}

	beta := rows[2]
	if beta[3] != "0.000003375" {
		t.Errorf("beta price = %s, want 0.000003375", beta[3])
	}
	if beta[4] != "50.00" {
		t.Errorf("beta progress = %s, want 50.00", beta[4])
	}
	if beta[8] != "1.5" {
		t.Errorf("beta real reserves = %s, want 1.5", beta[8])
	}
	if rows[1][5] != "true" {
		t.Errorf("gamma should be complete, got %s", rows[1][5])
	}
}

func TestCurveExportJSON(t *testing.T) {
	exporter := newTestExporter()

	outputPath, err := exporter.ExportCurves(generateTestCurves(t), ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export curves: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var doc struct {
		CurveCount int           `json:"curve_count"`
		Summary    ExportSummary `json:"summary"`
		Curves     []CurveJSON   `json:"curves"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if doc.CurveCount != 3 || len(doc.Curves) != 3 {
		t.Fatalf("Expected 3 curves, got %d/%d", doc.CurveCount, len(doc.Curves))
	}
	if doc.Summary.CompleteCurves != 1 {
		t.Errorf("Expected 1 complete curve, got %d", doc.Summary.CompleteCurves)
	}
	if doc.Summary.TotalSOLCollected != "5.5" {
		t.Errorf("Expected 5.5 SOL collected, got %s", doc.Summary.TotalSOLCollected)
	}
	if doc.Summary.AverageProgress != "50.00" {
		t.Errorf("Expected average progress 50.00, got %s", doc.Summary.AverageProgress)
	}
	if doc.Summary.LargestMarketCapID != "gamma" {
		t.Errorf("Expected gamma to lead market cap, got %s", doc.Summary.LargestMarketCapID)
	}
}

func TestCurveExportFilters(t *testing.T) {
	exporter := newTestExporter()
	curves := generateTestCurves(t)

	tests := []struct {
		name    string
		options ExportOptions
		want    int
	}{
		{"active only", ExportOptions{Status: StatusActive}, 2},
		{"complete only", ExportOptions{Status: StatusComplete}, 1},
		{"single token", ExportOptions{TokenFilter: "beta"}, 1},
		{"created window", ExportOptions{CreatedAfter: curves[1].CreatedAt, CreatedBefore: curves[1].CreatedAt}, 1},
		{"created after all", ExportOptions{CreatedAfter: time.Now().Add(time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exporter.filterCurves(curves, tt.options)
			if len(got) != tt.want {
				t.Errorf("filterCurves() returned %d curves, want %d", len(got), tt.want)
			}
		})
	}

	_, err := exporter.ExportCurves(curves, ExportOptions{Format: FormatCSV, TokenFilter: "missing", OutputDir: t.TempDir()})
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}

	_, err = exporter.ExportCurves(curves, ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}

func TestFilenameGeneration(t *testing.T) {
	exporter := newTestExporter()

	tests := []struct {
		options ExportOptions
		want    string
	}{
		{ExportOptions{Format: FormatCSV}, "curves_all_20240501_103000.csv"},
		{ExportOptions{Format: FormatJSON, Status: StatusComplete}, "curves_complete_20240501_103000.json"},
		{ExportOptions{Format: FormatCSV, TokenFilter: "7Y5UnkniiBZYmBt2dMtX1b3KLG7TM6V4SeGBgdoxQoG1"}, "curves_all_7Y5Unkni_20240501_103000.csv"},
		{ExportOptions{Format: FormatCSV, TokenFilter: "abc"}, "curves_all_abc_20240501_103000.csv"},
	}

	for _, tt := range tests {
		if got := exporter.generateFilename(tt.options); got != tt.want {
			t.Errorf("generateFilename() = %s, want %s", got, tt.want)
		}
	}
}
