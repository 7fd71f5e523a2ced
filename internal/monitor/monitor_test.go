package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/quizbank/backend/internal/models"
)

func TestRecordEvictsOldestPastCapacity(t *testing.T) {
	m := New(5, nil)
	for i := 0; i < 12; i++ {
		m.Record(models.PerformanceMetric{
			Strategy: fmt.Sprintf("s%d", i),
			Success:  true,
		})
	}

	if m.Len() != 5 {
		t.Fatalf("expected 5 metrics after eviction, got %d", m.Len())
	}
	metrics := m.Metrics()
	if metrics[0].Strategy != "s7" {
		t.Errorf("expected oldest surviving metric to be s7, got %s", metrics[0].Strategy)
	}
	if metrics[4].Strategy != "s11" {
		t.Errorf("expected newest metric to be s11, got %s", metrics[4].Strategy)
	}
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	m := New(10, nil)
	m.Record(models.PerformanceMetric{Strategy: "standard_block"})
	m.Record(models.PerformanceMetric{Strategy: "numbered"})

	metrics := m.Metrics()
	if metrics[0].ID != 1 || metrics[1].ID != 2 {
		t.Errorf("expected sequential IDs 1,2, got %d,%d", metrics[0].ID, metrics[1].ID)
	}
	if metrics[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be assigned")
	}
}

func TestGenerateReportAggregates(t *testing.T) {
	m := New(100, nil)
	now := time.Now()

	for i := 0; i < 8; i++ {
		m.Record(models.PerformanceMetric{
			Timestamp:        now.Add(-time.Duration(i) * time.Minute),
			Parser:           "import_pipeline",
			Strategy:         "standard_block",
			Success:          i < 6,
			QuestionsCount:   3,
			ProcessingTimeMs: 100,
			Confidence:       0.9,
		})
	}
	for i := 0; i < 4; i++ {
		m.Record(models.PerformanceMetric{
			Timestamp:        now.Add(-time.Duration(i) * time.Minute),
			Parser:           "import_pipeline",
			Strategy:         "ai",
			Success:          true,
			QuestionsCount:   2,
			ProcessingTimeMs: 2000,
			CostCents:        4,
			Confidence:       0.8,
		})
	}

	report := m.GenerateReport(24)

	sb, ok := report.ByStrategy["standard_block"]
	if !ok {
		t.Fatal("expected standard_block aggregate")
	}
	if sb.Requests != 8 {
		t.Errorf("expected 8 requests, got %d", sb.Requests)
	}
	if sb.SuccessRate != 0.75 {
		t.Errorf("expected success rate 0.75, got %.2f", sb.SuccessRate)
	}

	ai := report.ByStrategy["ai"]
	if ai.TotalCostCents != 16 {
		t.Errorf("expected 16 cents spent, got %d", ai.TotalCostCents)
	}
	// 8 questions extracted for 16 cents.
	if ai.CostEfficiency != 0.5 {
		t.Errorf("expected cost efficiency 0.5, got %.2f", ai.CostEfficiency)
	}

	if len(report.Trends) == 0 {
		t.Error("expected at least one trend bucket")
	}
	if _, ok := report.ByParser["import_pipeline"]; !ok {
		t.Error("expected by-parser aggregate for import_pipeline")
	}
}

func TestGenerateReportExcludesOldMetrics(t *testing.T) {
	m := New(100, nil)
	m.Record(models.PerformanceMetric{
		Timestamp: time.Now().Add(-48 * time.Hour),
		Strategy:  "ancient",
		Success:   true,
	})
	m.Record(models.PerformanceMetric{
		Timestamp: time.Now(),
		Strategy:  "recent",
		Success:   true,
	})

	report := m.GenerateReport(24)
	if _, ok := report.ByStrategy["ancient"]; ok {
		t.Error("metrics outside the period should be excluded")
	}
	if _, ok := report.ByStrategy["recent"]; !ok {
		t.Error("metrics inside the period should be included")
	}
}

func TestGenerateReportAlerts(t *testing.T) {
	m := New(100, nil)
	now := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(models.PerformanceMetric{
			Timestamp: now,
			Strategy:  "smart_split",
			Success:   i == 0,
		})
	}

	report := m.GenerateReport(24)
	found := false
	for _, a := range report.Alerts {
		if a.Metric == "success_rate" && a.Level == models.AlertCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a critical success-rate alert, got %+v", report.Alerts)
	}
}
