package bank

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quizbank/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("not the owner")
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() *Store { return s.store }

// ── Banks & Chapters ────────────────────────────────────

func (s *Service) CreateBank(userID int64, req models.CreateBankRequest) (*models.QuestionBank, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("bank name is required")
	}
	return s.store.CreateBank(userID, req)
}

func (s *Service) ListBanks(userID int64) ([]models.QuestionBank, error) {
	return s.store.ListBanks(userID)
}

func (s *Service) DeleteBank(userID, bankID int64) error {
	err := s.store.DeleteBank(userID, bankID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireBank checks the bank exists and belongs to the user.
func (s *Service) requireBank(userID, bankID int64) error {
	_, err := s.store.GetBank(userID, bankID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) CreateChapter(userID, bankID int64, req models.CreateChapterRequest) (*models.Chapter, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("chapter name is required")
	}
	if err := s.requireBank(userID, bankID); err != nil {
		return nil, err
	}
	return s.store.CreateChapter(bankID, req)
}

func (s *Service) ListChapters(userID, bankID int64) ([]models.Chapter, error) {
	if err := s.requireBank(userID, bankID); err != nil {
		return nil, err
	}
	return s.store.ListChapters(bankID)
}

// ── Questions ───────────────────────────────────────────

func (s *Service) ListQuestions(userID, chapterID int64, page, pageSize int) (*models.QuestionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	bankID, err := s.store.ChapterBankID(chapterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.requireBank(userID, bankID); err != nil {
		return nil, err
	}

	questions, total, err := s.store.ListQuestions(chapterID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &models.QuestionListResponse{
		Questions: questions,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

func (s *Service) getOwnedQuestion(userID, questionID int64) (*models.Question, error) {
	q, err := s.store.GetQuestion(questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.requireBank(userID, q.BankID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(userID, questionID int64) error {
	if _, err := s.getOwnedQuestion(userID, questionID); err != nil {
		return err
	}
	return s.store.DeleteQuestion(questionID)
}

// ── Answering ───────────────────────────────────────────

// SubmitAnswer records the attempt, maintains the wrong-question ledger, and
// reveals the correct answer with its explanation.
func (s *Service) SubmitAnswer(userID, questionID int64, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	q, err := s.getOwnedQuestion(userID, questionID)
	if err != nil {
		return nil, err
	}
	if req.Selected < 0 || req.Selected >= len(q.Options) {
		return nil, fmt.Errorf("selected option out of range")
	}

	correct := req.Selected == q.CorrectAnswer
	if err := s.store.RecordAnswer(userID, questionID, req.Selected, correct); err != nil {
		return nil, err
	}

	resp := &models.SubmitAnswerResponse{
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		WrongCount:    q.WrongCount,
	}

	if correct {
		if err := s.store.MarkAnswered(questionID); err != nil {
			return nil, err
		}
		return resp, nil
	}

	wrongCount, err := s.store.MarkWrong(userID, q)
	if err != nil {
		return nil, err
	}
	resp.WrongCount = wrongCount
	return resp, nil
}

func (s *Service) ListWrong(userID int64, bankID, chapterID *int64, includeMastered bool) ([]models.WrongQuestion, error) {
	return s.store.ListWrong(userID, bankID, chapterID, includeMastered)
}

func (s *Service) SetMastered(userID, questionID int64, mastered bool) error {
	if _, err := s.getOwnedQuestion(userID, questionID); err != nil {
		return err
	}
	err := s.store.SetMastered(userID, questionID, mastered)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ── Study Plans ─────────────────────────────────────────

type StudyPlanRequest struct {
	DailyTarget int     `json:"daily_target"`
	TargetDate  *string `json:"target_date,omitempty"`
}

func (s *Service) UpsertStudyPlan(userID, bankID int64, req StudyPlanRequest) (*models.StudyPlan, error) {
	if req.DailyTarget <= 0 {
		return nil, fmt.Errorf("daily_target must be positive")
	}
	if err := s.requireBank(userID, bankID); err != nil {
		return nil, err
	}
	return s.store.UpsertStudyPlan(userID, bankID, req.DailyTarget, req.TargetDate)
}

func (s *Service) GetStudyPlan(userID, bankID int64) (*models.StudyPlan, error) {
	if err := s.requireBank(userID, bankID); err != nil {
		return nil, err
	}
	p, err := s.store.GetStudyPlan(userID, bankID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}
