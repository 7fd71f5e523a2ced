package adaptive

import (
	"log"
	"sync"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// MetricSource is the read side of the metrics ledger.
type MetricSource interface {
	Since(cutoff time.Time) []models.PerformanceMetric
}

// Rule thresholds for the automatic adjustments.
const (
	minRequestsForRules = 10
	disableSuccessRate  = 0.15
	penalizeSuccessRate = 0.4
	aiAvgCostCentsLimit = 5
	trendMargin         = 0.15
	trendMinPerHalf     = 3
	unusedAfter         = 6 * time.Hour
)

// Manager recomputes per-strategy performance snapshots from the metric
// history and derives time-bounded adjustments from a fixed rule set. It is
// the gate consulted by the parse cascade: a strategy with an active disable
// adjustment is skipped entirely.
//
// Adjustments are advisory except for disable. Manual overrides (explicit
// enable or disable from the settings surface) outrank derived rules.
type Manager struct {
	mu          sync.Mutex
	source      MetricSource
	window      time.Duration
	cacheTTL    time.Duration
	computedAt  time.Time
	snapshots   []models.StrategyPerformance
	adjustments []models.StrategyAdjustment
	overrides   map[string]models.StrategyAdjustment

	now func() time.Time
}

func NewManager(source MetricSource) *Manager {
	return &Manager{
		source:    source,
		window:    24 * time.Hour,
		cacheTTL:  time.Minute,
		overrides: map[string]models.StrategyAdjustment{},
		now:       time.Now,
	}
}

// Allowed reports whether the cascade may try the strategy right now.
func (m *Manager) Allowed(strategy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh()

	now := m.now()
	if o, ok := m.overrides[strategy]; ok && !o.Expired(now) {
		return o.Kind != models.AdjustDisable
	}
	for _, a := range m.adjustments {
		if a.Strategy == strategy && a.Kind == models.AdjustDisable && !a.Expired(now) {
			return false
		}
	}
	return true
}

// Snapshots returns the current per-strategy performance view.
func (m *Manager) Snapshots() []models.StrategyPerformance {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh()
	out := make([]models.StrategyPerformance, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

// Adjustments returns the currently active adjustments, derived and manual.
func (m *Manager) Adjustments() []models.StrategyAdjustment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh()

	now := m.now()
	var out []models.StrategyAdjustment
	for _, a := range m.adjustments {
		if !a.Expired(now) {
			out = append(out, a)
		}
	}
	for _, o := range m.overrides {
		if !o.Expired(now) {
			out = append(out, o)
		}
	}
	return out
}

// Disable manually blocks a strategy for the given duration.
func (m *Manager) Disable(strategy, reason string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[strategy] = models.StrategyAdjustment{
		Strategy:  strategy,
		Kind:      models.AdjustDisable,
		Reason:    reason,
		AppliedAt: m.now(),
		Duration:  d,
	}
	log.Printf("Strategy %s manually disabled: %s", strategy, reason)
}

// Enable manually re-enables a strategy, outranking any derived disable for
// the given duration.
func (m *Manager) Enable(strategy string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[strategy] = models.StrategyAdjustment{
		Strategy:  strategy,
		Kind:      models.AdjustEnable,
		Reason:    "manual enable",
		AppliedAt: m.now(),
		Duration:  d,
	}
}

// refresh recomputes snapshots and derived adjustments when the cache is
// stale. Callers hold the lock.
func (m *Manager) refresh() {
	now := m.now()
	if !m.computedAt.IsZero() && now.Sub(m.computedAt) < m.cacheTTL {
		return
	}
	m.computedAt = now

	for strategy, o := range m.overrides {
		if o.Expired(now) {
			delete(m.overrides, strategy)
		}
	}

	metrics := m.source.Since(now.Add(-m.window))
	m.snapshots = computeSnapshots(metrics)
	m.adjustments = deriveAdjustments(m.snapshots, now)
}

func computeSnapshots(metrics []models.PerformanceMetric) []models.StrategyPerformance {
	type acc struct {
		all      []models.PerformanceMetric
		lastUsed time.Time
	}
	accs := map[string]*acc{}
	var order []string

	for _, pm := range metrics {
		if pm.Strategy == "" {
			continue
		}
		a := accs[pm.Strategy]
		if a == nil {
			a = &acc{}
			accs[pm.Strategy] = a
			order = append(order, pm.Strategy)
		}
		a.all = append(a.all, pm)
		if pm.Timestamp.After(a.lastUsed) {
			a.lastUsed = pm.Timestamp
		}
	}

	snapshots := make([]models.StrategyPerformance, 0, len(order))
	for _, strategy := range order {
		a := accs[strategy]

		var successes, confCount int
		var timeMs int64
		var cost, conf float64
		for _, pm := range a.all {
			if pm.Success {
				successes++
			}
			timeMs += pm.ProcessingTimeMs
			cost += float64(pm.CostCents)
			if pm.Confidence > 0 {
				conf += pm.Confidence
				confCount++
			}
		}

		n := len(a.all)
		sp := models.StrategyPerformance{
			Strategy:     strategy,
			Requests:     n,
			SuccessRate:  float64(successes) / float64(n),
			AvgTimeMs:    float64(timeMs) / float64(n),
			AvgCostCents: cost / float64(n),
			Trend:        computeTrend(a.all),
			LastUsed:     a.lastUsed,
		}
		if confCount > 0 {
			sp.AvgConfidence = conf / float64(confCount)
		}
		snapshots = append(snapshots, sp)
	}
	return snapshots
}

// computeTrend compares success rates between the older and newer half of the
// strategy's attempts. Ledger order is insertion order, which is time order.
func computeTrend(metrics []models.PerformanceMetric) models.Trend {
	half := len(metrics) / 2
	if half < trendMinPerHalf {
		return models.TrendStable
	}
	older, newer := metrics[:half], metrics[half:]

	rate := func(ms []models.PerformanceMetric) float64 {
		s := 0
		for _, pm := range ms {
			if pm.Success {
				s++
			}
		}
		return float64(s) / float64(len(ms))
	}

	diff := rate(newer) - rate(older)
	switch {
	case diff > trendMargin:
		return models.TrendImproving
	case diff < -trendMargin:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func deriveAdjustments(snapshots []models.StrategyPerformance, now time.Time) []models.StrategyAdjustment {
	var out []models.StrategyAdjustment
	add := func(strategy string, kind models.AdjustmentKind, amount float64, reason string, d time.Duration) {
		out = append(out, models.StrategyAdjustment{
			Strategy:  strategy,
			Kind:      kind,
			Amount:    amount,
			Reason:    reason,
			AppliedAt: now,
			Duration:  d,
		})
	}

	for _, sp := range snapshots {
		if !sp.LastUsed.IsZero() && now.Sub(sp.LastUsed) > unusedAfter {
			add(sp.Strategy, models.AdjustPenalize, 0.1, "not used recently", time.Hour)
		}
		if sp.Requests < minRequestsForRules {
			continue
		}
		switch {
		case sp.SuccessRate < disableSuccessRate:
			add(sp.Strategy, models.AdjustDisable, 1.0, "success rate critically low", time.Hour)
		case sp.SuccessRate < penalizeSuccessRate:
			add(sp.Strategy, models.AdjustPenalize, 0.2, "success rate low", time.Hour)
		}
		switch sp.Trend {
		case models.TrendDeclining:
			add(sp.Strategy, models.AdjustPenalize, 0.1, "success rate declining", 30*time.Minute)
		case models.TrendImproving:
			add(sp.Strategy, models.AdjustBoost, 0.1, "success rate improving", 30*time.Minute)
		}
		if sp.Strategy == "ai" && sp.AvgCostCents > aiAvgCostCentsLimit {
			add(sp.Strategy, models.AdjustPenalize, 0.3, "average AI cost above limit", time.Hour)
		}
	}
	return out
}
