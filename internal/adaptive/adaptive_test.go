package adaptive

import (
	"testing"
	"time"

	"github.com/quizbank/backend/internal/models"
)

func TestCostOptimizerVetoesOverBudget(t *testing.T) {
	c := NewCostOptimizerWith(10, 100, 5)

	if !c.CanUseAI(3) {
		t.Fatal("3 cents should fit every limit")
	}
	if c.CanUseAI(6) {
		t.Error("6 cents exceeds the per-request limit of 5")
	}

	c.RecordSpend(8)
	if c.CanUseAI(3) {
		t.Error("8 spent + 3 estimated exceeds the daily limit of 10")
	}
	if !c.CanUseAI(2) {
		t.Error("8 spent + 2 estimated fits the daily limit of 10")
	}
}

func TestCostOptimizerZeroLimitMeansUnlimited(t *testing.T) {
	c := NewCostOptimizerWith(0, 0, 0)
	c.RecordSpend(100_000)
	if !c.CanUseAI(100_000) {
		t.Error("zero limits should never veto")
	}
}

func TestCostOptimizerDailyRollover(t *testing.T) {
	c := NewCostOptimizerWith(10, 1000, 0)
	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return day }
	c.usage = models.BudgetUsage{Day: c.dayKey(), Month: c.monthKey()}

	c.RecordSpend(10)
	if c.CanUseAI(1) {
		t.Fatal("daily budget exhausted")
	}

	day = day.Add(2 * time.Hour) // past midnight, same month
	if !c.CanUseAI(1) {
		t.Error("daily spend should reset after midnight")
	}
	if got := c.Status().MonthUsedCents; got != 10 {
		t.Errorf("monthly spend should persist across days, got %d", got)
	}
}

func TestActualCentsRoundsUpWithFloor(t *testing.T) {
	c := NewCostOptimizerWith(0, 0, 0)
	if got := c.ActualCents(100, 50); got != 1 {
		t.Errorf("tiny call should cost at least 1 cent, got %d", got)
	}
	// 1M prompt tokens at 300 cents/M plus 100k output at 1500 cents/M.
	if got := c.ActualCents(1_000_000, 100_000); got != 450 {
		t.Errorf("expected 450 cents, got %d", got)
	}
}

// fakeSource feeds a fixed metric history to the manager.
type fakeSource struct {
	metrics []models.PerformanceMetric
}

func (f *fakeSource) Since(cutoff time.Time) []models.PerformanceMetric {
	var out []models.PerformanceMetric
	for _, m := range f.metrics {
		if m.Timestamp.After(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

func history(strategy string, results ...bool) []models.PerformanceMetric {
	now := time.Now()
	out := make([]models.PerformanceMetric, len(results))
	for i, ok := range results {
		out[i] = models.PerformanceMetric{
			Timestamp: now.Add(-time.Duration(len(results)-i) * time.Minute),
			Strategy:  strategy,
			Success:   ok,
		}
	}
	return out
}

func TestManagerDisablesFailingStrategy(t *testing.T) {
	src := &fakeSource{metrics: history("smart_split",
		false, false, false, false, false, false, false, false, false, true)}
	m := NewManager(src)

	if m.Allowed("smart_split") {
		t.Error("10% success rate over 10 attempts should disable the strategy")
	}
	if !m.Allowed("standard_block") {
		t.Error("strategies with no history stay allowed")
	}
}

func TestManagerPenalizesWithoutDisabling(t *testing.T) {
	src := &fakeSource{metrics: history("numbered",
		true, false, true, false, false, false, false, true, false, false)}
	m := NewManager(src)

	if !m.Allowed("numbered") {
		t.Error("30% success rate penalizes but does not disable")
	}
	found := false
	for _, a := range m.Adjustments() {
		if a.Strategy == "numbered" && a.Kind == models.AdjustPenalize {
			found = true
		}
	}
	if !found {
		t.Error("expected a penalize adjustment for numbered")
	}
}

func TestManagerTrendDetection(t *testing.T) {
	src := &fakeSource{metrics: history("sequential",
		false, false, false, true, false, true, true, true, true, true)}
	m := NewManager(src)

	for _, sp := range m.Snapshots() {
		if sp.Strategy == "sequential" {
			if sp.Trend != models.TrendImproving {
				t.Errorf("expected improving trend, got %s", sp.Trend)
			}
			return
		}
	}
	t.Fatal("no snapshot for sequential")
}

func TestManagerPenalizesLongUnused(t *testing.T) {
	old := time.Now().Add(-8 * time.Hour)
	src := &fakeSource{metrics: []models.PerformanceMetric{
		{Timestamp: old, Strategy: "numbered", Success: true},
		{Timestamp: old.Add(time.Minute), Strategy: "numbered", Success: true},
	}}
	m := NewManager(src)

	if !m.Allowed("numbered") {
		t.Fatal("unused strategies are penalized, not disabled")
	}
	for _, a := range m.Adjustments() {
		if a.Strategy == "numbered" && a.Kind == models.AdjustPenalize {
			return
		}
	}
	t.Error("expected a penalize adjustment for a strategy idle beyond the threshold")
}

func TestManagerAdjustmentExpiry(t *testing.T) {
	src := &fakeSource{metrics: history("smart_split",
		false, false, false, false, false, false, false, false, false, false)}
	m := NewManager(src)

	base := time.Now()
	m.now = func() time.Time { return base }
	if m.Allowed("smart_split") {
		t.Fatal("expected derived disable")
	}

	// Two hours later the disable has expired and the history window has
	// aged past the rule threshold.
	base = base.Add(2 * time.Hour)
	m.cacheTTL = 0
	src.metrics = nil
	if !m.Allowed("smart_split") {
		t.Error("disable adjustment should expire")
	}
}

func TestManagerManualOverrideWins(t *testing.T) {
	src := &fakeSource{metrics: history("smart_split",
		false, false, false, false, false, false, false, false, false, false)}
	m := NewManager(src)

	if m.Allowed("smart_split") {
		t.Fatal("expected derived disable")
	}
	m.Enable("smart_split", time.Hour)
	if !m.Allowed("smart_split") {
		t.Error("manual enable outranks the derived disable")
	}

	m.Disable("rule_based", "testing", time.Hour)
	if m.Allowed("rule_based") {
		t.Error("manual disable blocks the strategy")
	}
}
