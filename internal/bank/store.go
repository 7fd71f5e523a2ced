package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/quizbank/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Banks ───────────────────────────────────────────────

func (s *Store) CreateBank(userID int64, req models.CreateBankRequest) (*models.QuestionBank, error) {
	var bank models.QuestionBank
	err := s.db.QueryRow(
		`INSERT INTO question_banks (user_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, name, COALESCE(description, ''), created_at, updated_at`,
		userID, req.Name, req.Description,
	).Scan(&bank.ID, &bank.UserID, &bank.Name, &bank.Description, &bank.CreatedAt, &bank.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create bank: %w", err)
	}
	return &bank, nil
}

func (s *Store) ListBanks(userID int64) ([]models.QuestionBank, error) {
	rows, err := s.db.Query(
		`SELECT b.id, b.user_id, b.name, COALESCE(b.description, ''),
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id),
		        b.created_at, b.updated_at
		 FROM question_banks b
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	var banks []models.QuestionBank
	for rows.Next() {
		var b models.QuestionBank
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Description,
			&b.QuestionCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (s *Store) GetBank(userID, bankID int64) (*models.QuestionBank, error) {
	var b models.QuestionBank
	err := s.db.QueryRow(
		`SELECT b.id, b.user_id, b.name, COALESCE(b.description, ''),
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id),
		        b.created_at, b.updated_at
		 FROM question_banks b
		 WHERE b.id = $1 AND b.user_id = $2`,
		bankID, userID,
	).Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) DeleteBank(userID, bankID int64) error {
	res, err := s.db.Exec(
		`DELETE FROM question_banks WHERE id = $1 AND user_id = $2`,
		bankID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete bank: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ── Chapters ────────────────────────────────────────────

func (s *Store) CreateChapter(bankID int64, req models.CreateChapterRequest) (*models.Chapter, error) {
	var c models.Chapter
	err := s.db.QueryRow(
		`INSERT INTO chapters (bank_id, name, position)
		 VALUES ($1, $2, $3)
		 RETURNING id, bank_id, name, position, created_at`,
		bankID, req.Name, req.Position,
	).Scan(&c.ID, &c.BankID, &c.Name, &c.Position, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	return &c, nil
}

func (s *Store) ListChapters(bankID int64) ([]models.Chapter, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.bank_id, c.name, c.position,
		        (SELECT COUNT(*) FROM questions q WHERE q.chapter_id = c.id),
		        c.created_at
		 FROM chapters c
		 WHERE c.bank_id = $1
		 ORDER BY c.position, c.id`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []models.Chapter
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.ID, &c.BankID, &c.Name, &c.Position, &c.QuestionCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// ChapterBankID resolves the owning bank of a chapter.
func (s *Store) ChapterBankID(chapterID int64) (int64, error) {
	var bankID int64
	err := s.db.QueryRow(`SELECT bank_id FROM chapters WHERE id = $1`, chapterID).Scan(&bankID)
	return bankID, err
}

// ── Questions ───────────────────────────────────────────

const questionCols = `id, bank_id, chapter_id, title, options, correct_answer,
	        COALESCE(explanation, ''), COALESCE(difficulty, ''), tags,
	        status, wrong_count, is_mastered, created_at, updated_at`

func scanQuestion(row interface{ Scan(...interface{}) error }) (models.Question, error) {
	var q models.Question
	var optionsJSON, tagsJSON []byte
	err := row.Scan(&q.ID, &q.BankID, &q.ChapterID, &q.Title, &optionsJSON, &q.CorrectAnswer,
		&q.Explanation, &q.Difficulty, &tagsJSON,
		&q.Status, &q.WrongCount, &q.IsMastered, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return q, fmt.Errorf("decode options: %w", err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &q.Tags); err != nil {
			return q, fmt.Errorf("decode tags: %w", err)
		}
	}
	return q, nil
}

// InsertQuestion persists one imported question into a chapter.
func (s *Store) InsertQuestion(ctx context.Context, chapterID int64, data models.ImportQuestionData) (models.Question, error) {
	bankID, err := s.ChapterBankID(chapterID)
	if err != nil {
		return models.Question{}, fmt.Errorf("resolve chapter %d: %w", chapterID, err)
	}

	optionsJSON, err := json.Marshal(data.Options)
	if err != nil {
		return models.Question{}, fmt.Errorf("encode options: %w", err)
	}
	var tagsJSON []byte
	if len(data.Tags) > 0 {
		tagsJSON, _ = json.Marshal(data.Tags)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO questions (bank_id, chapter_id, title, options, correct_answer, explanation, difficulty, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		 RETURNING `+questionCols,
		bankID, chapterID, data.Title, optionsJSON, data.CorrectAnswer,
		data.Explanation, string(data.Difficulty), tagsJSON,
	)
	q, err := scanQuestion(row)
	if err != nil {
		return q, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *Store) GetQuestion(questionID int64) (*models.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionCols+` FROM questions WHERE id = $1`, questionID)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Store) ListQuestions(chapterID int64, limit, offset int) ([]models.Question, int, error) {
	var total int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM questions WHERE chapter_id = $1`, chapterID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+questionCols+` FROM questions
		 WHERE chapter_id = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`,
		chapterID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

func (s *Store) DeleteQuestion(questionID int64) error {
	res, err := s.db.Exec(`DELETE FROM questions WHERE id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ── Answers & Wrong-Question Ledger ─────────────────────

func (s *Store) RecordAnswer(userID, questionID int64, selected int, correct bool) error {
	_, err := s.db.Exec(
		`INSERT INTO answer_records (user_id, question_id, selected, correct)
		 VALUES ($1, $2, $3, $4)`,
		userID, questionID, selected, correct,
	)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

// MarkWrong bumps the per-question wrong counter and upserts the ledger
// entry. A wrong answer reopens a mastered entry.
func (s *Store) MarkWrong(userID int64, q *models.Question) (int, error) {
	var wrongCount int
	err := s.db.QueryRow(
		`INSERT INTO wrong_questions (user_id, question_id, bank_id, chapter_id, wrong_count, last_wrong)
		 VALUES ($1, $2, $3, $4, 1, NOW())
		 ON CONFLICT (user_id, question_id)
		 DO UPDATE SET wrong_count = wrong_questions.wrong_count + 1,
		               is_mastered = FALSE,
		               last_wrong = NOW()
		 RETURNING wrong_count`,
		userID, q.ID, q.BankID, q.ChapterID,
	).Scan(&wrongCount)
	if err != nil {
		return 0, fmt.Errorf("mark wrong: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE questions
		 SET wrong_count = wrong_count + 1, status = 'learning', is_mastered = FALSE, updated_at = NOW()
		 WHERE id = $1`,
		q.ID,
	)
	if err != nil {
		return wrongCount, fmt.Errorf("bump question wrong count: %w", err)
	}
	return wrongCount, nil
}

func (s *Store) MarkAnswered(questionID int64) error {
	_, err := s.db.Exec(
		`UPDATE questions SET status = 'learning', updated_at = NOW()
		 WHERE id = $1 AND status = 'new'`,
		questionID,
	)
	return err
}

func (s *Store) ListWrong(userID int64, bankID, chapterID *int64, includeMastered bool) ([]models.WrongQuestion, error) {
	query := `SELECT id, user_id, question_id, bank_id, chapter_id, wrong_count, is_mastered, last_wrong, created_at
	          FROM wrong_questions WHERE user_id = $1`
	args := []interface{}{userID}

	if bankID != nil {
		args = append(args, *bankID)
		query += fmt.Sprintf(" AND bank_id = $%d", len(args))
	}
	if chapterID != nil {
		args = append(args, *chapterID)
		query += fmt.Sprintf(" AND chapter_id = $%d", len(args))
	}
	if !includeMastered {
		query += " AND is_mastered = FALSE"
	}
	query += " ORDER BY last_wrong DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wrong questions: %w", err)
	}
	defer rows.Close()

	var wrong []models.WrongQuestion
	for rows.Next() {
		var w models.WrongQuestion
		if err := rows.Scan(&w.ID, &w.UserID, &w.QuestionID, &w.BankID, &w.ChapterID,
			&w.WrongCount, &w.IsMastered, &w.LastWrong, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wrong question: %w", err)
		}
		wrong = append(wrong, w)
	}
	return wrong, rows.Err()
}

func (s *Store) SetMastered(userID, questionID int64, mastered bool) error {
	res, err := s.db.Exec(
		`UPDATE wrong_questions SET is_mastered = $1
		 WHERE user_id = $2 AND question_id = $3`,
		mastered, userID, questionID,
	)
	if err != nil {
		return fmt.Errorf("set mastered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	status := "learning"
	if mastered {
		status = "mastered"
	}
	_, err = s.db.Exec(
		`UPDATE questions SET is_mastered = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		mastered, status, questionID,
	)
	return err
}

// ── Study Plans ─────────────────────────────────────────

func (s *Store) UpsertStudyPlan(userID, bankID int64, dailyTarget int, targetDate *string) (*models.StudyPlan, error) {
	var p models.StudyPlan
	err := s.db.QueryRow(
		`INSERT INTO study_plans (user_id, bank_id, daily_target, target_date)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, bank_id)
		 DO UPDATE SET daily_target = EXCLUDED.daily_target,
		               target_date = EXCLUDED.target_date,
		               updated_at = NOW()
		 RETURNING id, user_id, bank_id, daily_target, target_date::text, created_at, updated_at`,
		userID, bankID, dailyTarget, targetDate,
	).Scan(&p.ID, &p.UserID, &p.BankID, &p.DailyTarget, &p.TargetDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert study plan: %w", err)
	}
	return &p, nil
}

func (s *Store) GetStudyPlan(userID, bankID int64) (*models.StudyPlan, error) {
	var p models.StudyPlan
	err := s.db.QueryRow(
		`SELECT id, user_id, bank_id, daily_target, target_date::text, created_at, updated_at
		 FROM study_plans WHERE user_id = $1 AND bank_id = $2`,
		userID, bankID,
	).Scan(&p.ID, &p.UserID, &p.BankID, &p.DailyTarget, &p.TargetDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
