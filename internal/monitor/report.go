package monitor

import (
	"fmt"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Report-level alert thresholds, applied to aggregates rather than single
// attempts.
const (
	alertMinSuccessRate  = 0.5
	alertMaxAvgTimeMs    = 5000
	alertMinRequests     = 5
	alertCriticalSuccess = 0.2
)

// GenerateReport aggregates the metrics recorded in the last periodHours into
// per-parser and per-strategy statistics, hourly trend buckets, and alerts for
// aggregates that crossed a threshold.
func (m *Monitor) GenerateReport(periodHours int) models.PerformanceReport {
	if periodHours <= 0 {
		periodHours = 24
	}
	now := time.Now()
	metrics := m.Since(now.Add(-time.Duration(periodHours) * time.Hour))

	report := models.PerformanceReport{
		PeriodHours: periodHours,
		GeneratedAt: now,
		ByParser:    aggregate(metrics, func(pm models.PerformanceMetric) string { return pm.Parser }),
		ByStrategy:  aggregate(metrics, func(pm models.PerformanceMetric) string { return pm.Strategy }),
		Trends:      trendBuckets(metrics),
	}
	report.Alerts = buildAlerts(report.ByStrategy)
	return report
}

func aggregate(metrics []models.PerformanceMetric, keyOf func(models.PerformanceMetric) string) map[string]models.AggregateStats {
	type acc struct {
		requests   int
		successes  int
		questions  int
		timeMs     int64
		costCents  int
		confidence float64
		confCount  int
	}
	accs := map[string]*acc{}

	for _, pm := range metrics {
		key := keyOf(pm)
		if key == "" {
			continue
		}
		a := accs[key]
		if a == nil {
			a = &acc{}
			accs[key] = a
		}
		a.requests++
		a.timeMs += pm.ProcessingTimeMs
		a.costCents += pm.CostCents
		if pm.Success {
			a.successes++
			a.questions += pm.QuestionsCount
		}
		if pm.Confidence > 0 {
			a.confidence += pm.Confidence
			a.confCount++
		}
	}

	out := make(map[string]models.AggregateStats, len(accs))
	for key, a := range accs {
		stats := models.AggregateStats{
			Requests:       a.requests,
			SuccessRate:    float64(a.successes) / float64(a.requests),
			AvgTimeMs:      float64(a.timeMs) / float64(a.requests),
			TotalCostCents: a.costCents,
		}
		if a.confCount > 0 {
			stats.AvgConfidence = a.confidence / float64(a.confCount)
		}
		if a.costCents > 0 {
			stats.CostEfficiency = float64(a.questions) / float64(a.costCents)
		}
		out[key] = stats
	}
	return out
}

// trendBuckets groups metrics into hourly buckets, oldest first. Hours with no
// attempts produce no bucket.
func trendBuckets(metrics []models.PerformanceMetric) []models.TrendPoint {
	type acc struct {
		requests  int
		successes int
		timeMs    int64
	}
	accs := map[time.Time]*acc{}

	for _, pm := range metrics {
		bucket := pm.Timestamp.Truncate(time.Hour)
		a := accs[bucket]
		if a == nil {
			a = &acc{}
			accs[bucket] = a
		}
		a.requests++
		a.timeMs += pm.ProcessingTimeMs
		if pm.Success {
			a.successes++
		}
	}

	buckets := make([]time.Time, 0, len(accs))
	for b := range accs {
		buckets = append(buckets, b)
	}
	for i := 0; i < len(buckets); i++ {
		for j := i + 1; j < len(buckets); j++ {
			if buckets[j].Before(buckets[i]) {
				buckets[i], buckets[j] = buckets[j], buckets[i]
			}
		}
	}

	points := make([]models.TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		a := accs[b]
		points = append(points, models.TrendPoint{
			Bucket:      b,
			Requests:    a.requests,
			SuccessRate: float64(a.successes) / float64(a.requests),
			AvgTimeMs:   float64(a.timeMs) / float64(a.requests),
		})
	}
	return points
}

func buildAlerts(byStrategy map[string]models.AggregateStats) []models.PerformanceAlert {
	var alerts []models.PerformanceAlert
	for strategy, stats := range byStrategy {
		if stats.Requests < alertMinRequests {
			continue
		}
		switch {
		case stats.SuccessRate < alertCriticalSuccess:
			alerts = append(alerts, models.PerformanceAlert{
				Level:   models.AlertCritical,
				Message: fmt.Sprintf("strategy %s success rate %.0f%% over %d requests", strategy, stats.SuccessRate*100, stats.Requests),
				Metric:  "success_rate",
				Value:   stats.SuccessRate,
			})
		case stats.SuccessRate < alertMinSuccessRate:
			alerts = append(alerts, models.PerformanceAlert{
				Level:   models.AlertWarning,
				Message: fmt.Sprintf("strategy %s success rate %.0f%% over %d requests", strategy, stats.SuccessRate*100, stats.Requests),
				Metric:  "success_rate",
				Value:   stats.SuccessRate,
			})
		}
		if stats.AvgTimeMs > alertMaxAvgTimeMs {
			alerts = append(alerts, models.PerformanceAlert{
				Level:   models.AlertWarning,
				Message: fmt.Sprintf("strategy %s averaging %.0fms per attempt", strategy, stats.AvgTimeMs),
				Metric:  "avg_time_ms",
				Value:   stats.AvgTimeMs,
			})
		}
	}
	return alerts
}
