package monitor

import (
	"log"
	"sync"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Monitor is the process-wide metrics ledger for parse attempts. One shared
// instance is constructed at startup and injected wherever metrics are
// recorded or read; it serializes all access internally.
//
// The ledger is insertion-ordered and capacity-bounded: past the configured
// maximum the oldest entries are evicted first. Recording never blocks or
// fails the caller; persistence and threshold checks are best-effort.
type Monitor struct {
	mu       sync.Mutex
	capacity int
	metrics  []models.PerformanceMetric
	nextID   int64
	store    *Store

	maxTimeMs     int64
	minConfidence float64
}

const DefaultCapacity = 1000

// New creates a monitor. store may be nil (in-memory only, used by tests).
// Previously persisted metrics are loaded so reports survive restarts.
func New(capacity int, store *Store) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Monitor{
		capacity:      capacity,
		store:         store,
		maxTimeMs:     10_000,
		minConfidence: 0.4,
		nextID:        1,
	}

	if store != nil {
		loaded, err := store.LoadRecent(capacity)
		if err != nil {
			log.Printf("WARN: monitor could not load metric history: %v", err)
		} else {
			m.metrics = loaded
			for _, metric := range loaded {
				if metric.ID >= m.nextID {
					m.nextID = metric.ID + 1
				}
			}
		}
	}
	return m
}

// SetThresholds overrides the real-time alerting thresholds.
func (m *Monitor) SetThresholds(maxTimeMs int64, minConfidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxTimeMs = maxTimeMs
	m.minConfidence = minConfidence
}

// Record appends one metric, evicting the oldest entry past capacity.
func (m *Monitor) Record(metric models.PerformanceMetric) {
	m.mu.Lock()
	metric.ID = m.nextID
	m.nextID++
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	m.metrics = append(m.metrics, metric)
	if len(m.metrics) > m.capacity {
		m.metrics = m.metrics[len(m.metrics)-m.capacity:]
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(metric); err != nil {
			log.Printf("WARN: persist metric: %v", err)
		}
	}
	m.checkThresholds(metric)
}

// checkThresholds logs real-time alerts. Purely informational.
func (m *Monitor) checkThresholds(metric models.PerformanceMetric) {
	if metric.ProcessingTimeMs > m.maxTimeMs {
		log.Printf("WARN: strategy %s took %dms (threshold %dms)", metric.Strategy, metric.ProcessingTimeMs, m.maxTimeMs)
	}
	if metric.Success && metric.Confidence > 0 && metric.Confidence < m.minConfidence {
		log.Printf("WARN: strategy %s succeeded with low confidence %.2f", metric.Strategy, metric.Confidence)
	}
}

// Len reports the current ledger size.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.metrics)
}

// Metrics returns a copy of the ledger, oldest first.
func (m *Monitor) Metrics() []models.PerformanceMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PerformanceMetric, len(m.metrics))
	copy(out, m.metrics)
	return out
}

// Since returns a copy of the metrics recorded after the cutoff.
func (m *Monitor) Since(cutoff time.Time) []models.PerformanceMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PerformanceMetric
	for _, metric := range m.metrics {
		if metric.Timestamp.After(cutoff) {
			out = append(out, metric)
		}
	}
	return out
}
