package monitor

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/quizbank/backend/internal/models"
)

// Store persists parse metrics to PostgreSQL so reports survive restarts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Save(m models.PerformanceMetric) error {
	errorsJSON, err := json.Marshal(m.Errors)
	if err != nil {
		return fmt.Errorf("marshal metric errors: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO parse_metrics
			(recorded_at, parser, strategy, input_type, input_size,
			 processing_time_ms, success, questions_count, confidence,
			 cost_cents, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.Timestamp, m.Parser, m.Strategy, string(m.InputType), m.InputSize,
		m.ProcessingTimeMs, m.Success, m.QuestionsCount, m.Confidence,
		m.CostCents, errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert parse metric: %w", err)
	}
	return nil
}

// LoadRecent returns up to limit metrics, oldest first.
func (s *Store) LoadRecent(limit int) ([]models.PerformanceMetric, error) {
	rows, err := s.db.Query(`
		SELECT id, recorded_at, parser, strategy, input_type, input_size,
		       processing_time_ms, success, questions_count, confidence,
		       cost_cents, errors
		FROM parse_metrics
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query parse metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.PerformanceMetric
	for rows.Next() {
		var m models.PerformanceMetric
		var inputType string
		var errorsJSON []byte
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.Parser, &m.Strategy, &inputType,
			&m.InputSize, &m.ProcessingTimeMs, &m.Success, &m.QuestionsCount,
			&m.Confidence, &m.CostCents, &errorsJSON); err != nil {
			return nil, fmt.Errorf("scan parse metric: %w", err)
		}
		m.InputType = models.InputKind(inputType)
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &m.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal metric errors: %w", err)
			}
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parse metrics: %w", err)
	}

	// Reverse to oldest-first.
	for i, j := 0, len(metrics)-1; i < j; i, j = i+1, j-1 {
		metrics[i], metrics[j] = metrics[j], metrics[i]
	}
	return metrics, nil
}
