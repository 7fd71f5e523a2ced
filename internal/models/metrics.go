package models

import "time"

// PerformanceMetric is one immutable, append-only record per parse attempt.
type PerformanceMetric struct {
	ID               int64             `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Parser           string            `json:"parser"`
	Strategy         string            `json:"strategy"`
	InputType        InputKind         `json:"input_type"`
	InputSize        int               `json:"input_size"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Success          bool              `json:"success"`
	QuestionsCount   int               `json:"questions_count"`
	Confidence       float64           `json:"confidence"`
	CostCents        int               `json:"cost_cents"`
	Errors           []string          `json:"errors,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// StrategyPerformance is a derived snapshot recomputed on demand from the
// metric history.
type StrategyPerformance struct {
	Strategy      string    `json:"strategy"`
	Requests      int       `json:"requests"`
	SuccessRate   float64   `json:"success_rate"`
	AvgTimeMs     float64   `json:"avg_time_ms"`
	AvgCostCents  float64   `json:"avg_cost_cents"`
	AvgConfidence float64   `json:"avg_confidence"`
	Trend         Trend     `json:"trend"`
	LastUsed      time.Time `json:"last_used"`
}

type AdjustmentKind string

const (
	AdjustBoost    AdjustmentKind = "boost"
	AdjustPenalize AdjustmentKind = "penalize"
	AdjustDisable  AdjustmentKind = "disable"
	AdjustEnable   AdjustmentKind = "enable"
)

// StrategyAdjustment is a time-bounded bias on a strategy's selection score.
// Expired adjustments are ignored and pruned on the next recompute.
type StrategyAdjustment struct {
	Strategy  string         `json:"strategy"`
	Kind      AdjustmentKind `json:"kind"`
	Amount    float64        `json:"amount"`
	Reason    string         `json:"reason"`
	AppliedAt time.Time      `json:"applied_at"`
	Duration  time.Duration  `json:"duration"`
}

// Expired reports whether the adjustment's validity window has passed.
func (a StrategyAdjustment) Expired(now time.Time) bool {
	return a.Duration > 0 && now.After(a.AppliedAt.Add(a.Duration))
}

// ── Reports ─────────────────────────────────────────────

// AggregateStats summarizes attempts grouped by parser or by strategy.
type AggregateStats struct {
	Requests       int     `json:"requests"`
	SuccessRate    float64 `json:"success_rate"`
	AvgTimeMs      float64 `json:"avg_time_ms"`
	TotalCostCents int     `json:"total_cost_cents"`
	AvgConfidence  float64 `json:"avg_confidence"`
	// CostEfficiency is successful questions extracted per cent spent.
	CostEfficiency float64 `json:"cost_efficiency"`
}

type TrendPoint struct {
	Bucket      time.Time `json:"bucket"`
	Requests    int       `json:"requests"`
	SuccessRate float64   `json:"success_rate"`
	AvgTimeMs   float64   `json:"avg_time_ms"`
}

type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

type PerformanceAlert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
	Metric  string     `json:"metric"`
	Value   float64    `json:"value"`
}

type PerformanceReport struct {
	PeriodHours int                       `json:"period_hours"`
	GeneratedAt time.Time                 `json:"generated_at"`
	ByParser    map[string]AggregateStats `json:"by_parser"`
	ByStrategy  map[string]AggregateStats `json:"by_strategy"`
	Trends      []TrendPoint              `json:"trends"`
	Alerts      []PerformanceAlert        `json:"alerts"`
}

// ── Budget / Cost ───────────────────────────────────────

// BudgetUsage is the persisted cumulative spend, all in integer cents.
type BudgetUsage struct {
	Day        string `json:"day"`   // YYYY-MM-DD
	Month      string `json:"month"` // YYYY-MM
	DayCents   int    `json:"day_cents"`
	MonthCents int    `json:"month_cents"`
}

type BudgetStatus struct {
	DailyLimitCents      int  `json:"daily_limit_cents"`
	MonthlyLimitCents    int  `json:"monthly_limit_cents"`
	PerRequestLimitCents int  `json:"per_request_limit_cents"`
	DayUsedCents         int  `json:"day_used_cents"`
	MonthUsedCents       int  `json:"month_used_cents"`
	AIEnabled            bool `json:"ai_enabled"`
}
