package adaptive

import (
	"database/sql"
	"fmt"

	"github.com/quizbank/backend/internal/models"
)

// BudgetStore persists cumulative AI spend keyed by calendar day and month.
type BudgetStore struct {
	db *sql.DB
}

func NewBudgetStore(db *sql.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

// Load reads the spend for the given day and month, zero when absent.
func (s *BudgetStore) Load(day, month string) (models.BudgetUsage, error) {
	usage := models.BudgetUsage{Day: day, Month: month}

	err := s.db.QueryRow(
		`SELECT cents FROM budget_usage WHERE period_kind = 'day' AND period_key = $1`, day,
	).Scan(&usage.DayCents)
	if err != nil && err != sql.ErrNoRows {
		return usage, fmt.Errorf("load daily budget: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT cents FROM budget_usage WHERE period_kind = 'month' AND period_key = $1`, month,
	).Scan(&usage.MonthCents)
	if err != nil && err != sql.ErrNoRows {
		return usage, fmt.Errorf("load monthly budget: %w", err)
	}

	return usage, nil
}

// Save upserts both period rows.
func (s *BudgetStore) Save(usage models.BudgetUsage) error {
	const upsert = `
		INSERT INTO budget_usage (period_kind, period_key, cents, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (period_kind, period_key)
		DO UPDATE SET cents = EXCLUDED.cents, updated_at = NOW()`

	if _, err := s.db.Exec(upsert, "day", usage.Day, usage.DayCents); err != nil {
		return fmt.Errorf("save daily budget: %w", err)
	}
	if _, err := s.db.Exec(upsert, "month", usage.Month, usage.MonthCents); err != nil {
		return fmt.Errorf("save monthly budget: %w", err)
	}
	return nil
}
