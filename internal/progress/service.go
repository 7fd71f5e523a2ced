package progress

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Service derives per-user study statistics from the answer records and the
// wrong-question ledger. Everything is recomputed from the tables on demand;
// no separate counters to keep in sync.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Stats(userID int64) (*models.StudyStats, error) {
	stats := &models.StudyStats{}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct)
		 FROM answer_records WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalAnswered, &stats.TotalCorrect)
	if err != nil {
		return nil, fmt.Errorf("answer totals: %w", err)
	}
	if stats.TotalAnswered > 0 {
		stats.Accuracy = float64(stats.TotalCorrect) / float64(stats.TotalAnswered)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM answer_records
		 WHERE user_id = $1 AND answered_at::date = CURRENT_DATE`,
		userID,
	).Scan(&stats.AnsweredToday)
	if err != nil {
		return nil, fmt.Errorf("answered today: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FILTER (WHERE NOT is_mastered), COUNT(*) FILTER (WHERE is_mastered)
		 FROM wrong_questions WHERE user_id = $1`,
		userID,
	).Scan(&stats.WrongOpen, &stats.WrongMastered)
	if err != nil {
		return nil, fmt.Errorf("wrong-question counts: %w", err)
	}

	streak, err := s.streakDays(userID)
	if err != nil {
		return nil, err
	}
	stats.StudyStreakDays = streak

	return stats, nil
}

// streakDays counts consecutive study days ending today or yesterday. A day
// counts when at least one answer was recorded.
func (s *Service) streakDays(userID int64) (int, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT answered_at::date AS day
		 FROM answer_records
		 WHERE user_id = $1 AND answered_at > NOW() - INTERVAL '366 days'
		 ORDER BY day DESC`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("streak days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("scan streak day: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return countStreak(days, time.Now()), nil
}

// countStreak walks the distinct study days, newest first. The streak is
// alive if the newest day is today or yesterday; a day off yesterday keeps
// today's streak at whatever was accumulated before plus today.
func countStreak(days []time.Time, now time.Time) int {
	if len(days) == 0 {
		return 0
	}

	today := now.Truncate(24 * time.Hour)
	newest := days[0].Truncate(24 * time.Hour)
	gap := int(today.Sub(newest).Hours() / 24)
	if gap > 1 {
		return 0
	}

	streak := 1
	prev := newest
	for _, d := range days[1:] {
		d = d.Truncate(24 * time.Hour)
		if int(prev.Sub(d).Hours()/24) != 1 {
			break
		}
		streak++
		prev = d
	}
	return streak
}
