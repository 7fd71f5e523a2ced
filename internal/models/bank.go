package models

import "time"

type QuestionStatus string

const (
	StatusNew      QuestionStatus = "new"
	StatusLearning QuestionStatus = "learning"
	StatusMastered QuestionStatus = "mastered"
)

// Question is a fully formed, persistence-ready record produced by a
// confirmed import or manual entry.
type Question struct {
	ID            int64          `json:"id"`
	BankID        int64          `json:"bank_id"`
	ChapterID     int64          `json:"chapter_id"`
	Title         string         `json:"title"`
	Options       []string       `json:"options"`
	CorrectAnswer int            `json:"correct_answer"`
	Explanation   string         `json:"explanation,omitempty"`
	Difficulty    Difficulty     `json:"difficulty,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Status        QuestionStatus `json:"status"`
	WrongCount    int            `json:"wrong_count"`
	IsMastered    bool           `json:"is_mastered"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type QuestionBank struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Chapter struct {
	ID            int64     `json:"id"`
	BankID        int64     `json:"bank_id"`
	Name          string    `json:"name"`
	Position      int       `json:"position"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnswerRecord is one answer submission against a question.
type AnswerRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	Selected   int       `json:"selected"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// WrongQuestion is an entry in the wrong-question ledger. Mastered means the
// user has asserted the question no longer needs review.
type WrongQuestion struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	BankID     int64     `json:"bank_id"`
	ChapterID  int64     `json:"chapter_id"`
	WrongCount int       `json:"wrong_count"`
	IsMastered bool      `json:"is_mastered"`
	LastWrong  time.Time `json:"last_wrong"`
	CreatedAt  time.Time `json:"created_at"`
}

type StudyPlan struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	BankID         int64     `json:"bank_id"`
	DailyTarget    int       `json:"daily_target"`
	TargetDate     *string   `json:"target_date,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ── Request/Response Types ──────────────────────────────

type CreateBankRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateChapterRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
}

type SubmitAnswerRequest struct {
	Selected int `json:"selected"`
}

type SubmitAnswerResponse struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	WrongCount    int    `json:"wrong_count"`
}

type QuestionListResponse struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

// StudyStats is the derived per-user progress snapshot.
type StudyStats struct {
	TotalAnswered   int     `json:"total_answered"`
	TotalCorrect    int     `json:"total_correct"`
	Accuracy        float64 `json:"accuracy"`
	WrongOpen       int     `json:"wrong_open"`
	WrongMastered   int     `json:"wrong_mastered"`
	StudyStreakDays int     `json:"study_streak_days"`
	AnsweredToday   int     `json:"answered_today"`
}
