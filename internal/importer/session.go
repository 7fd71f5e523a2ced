package importer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/parser"
)

// Parser is the parse entry point the session machine drives.
type Parser interface {
	Parse(ctx context.Context, in parser.Input) models.ParseResult
}

var (
	ErrSessionNotFound = errors.New("import session not found")
	ErrInvalidState    = errors.New("operation not allowed in current session state")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// SessionManager owns the import session state machine:
//
//	idle → parsing → preview_editing → confirm_import → idle
//	         ↓                ↓
//	       failed ←───────────┘ (cancel)
//
// Preview edits are only legal in preview_editing; each edit re-validates the
// touched question so the preview's valid flags never go stale.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	parser   Parser
	importer *Importer
}

type session struct {
	models.ImportSession
	job      *Job
	progress ImportEvent
	result   *models.ImportResult
}

func NewSessionManager(p Parser, im *Importer) *SessionManager {
	return &SessionManager{
		sessions: map[string]*session{},
		parser:   p,
		importer: im,
	}
}

func newSessionID() string {
	b := make([]byte, 12)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Create opens a new idle session bound to a chapter.
func (sm *SessionManager) Create(chapterID int64) models.ImportSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	s := &session{ImportSession: models.ImportSession{
		ID:        newSessionID(),
		State:     models.StateIdle,
		ChapterID: chapterID,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	sm.sessions[s.ID] = s
	return s.ImportSession
}

// Get returns a snapshot of the session.
func (sm *SessionManager) Get(id string) (models.ImportSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return models.ImportSession{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

func (s *session) snapshot() models.ImportSession {
	out := s.ImportSession
	out.Preview = make([]models.PreviewQuestion, len(s.Preview))
	copy(out.Preview, s.Preview)
	return out
}

// Parse runs the cascade on the input and moves the session to
// preview_editing or failed. A failed session may retry; a session already in
// preview keeps its edits unless re-parsed explicitly.
func (sm *SessionManager) Parse(ctx context.Context, id string, in parser.Input) (models.ImportSession, error) {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if !ok {
		sm.mu.Unlock()
		return models.ImportSession{}, ErrSessionNotFound
	}
	switch s.State {
	case models.StateIdle, models.StateFailed, models.StatePreviewEditing:
	default:
		sm.mu.Unlock()
		return models.ImportSession{}, fmt.Errorf("%w: %s", ErrInvalidState, s.State)
	}
	s.State = models.StateParsing
	s.UpdatedAt = time.Now()
	sm.mu.Unlock()

	// Parsing runs without the lock: AI and OCR attempts can take seconds.
	result := sm.parser.Parse(ctx, in)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	s.UpdatedAt = time.Now()
	if !result.Success || len(result.Questions) == 0 {
		s.State = models.StateFailed
		s.Errors = result.Errors
		return s.snapshot(), nil
	}

	// Answers were already normalized by the cascade; lingering raw answers
	// come from partial extractions and are resolved as one-based here.
	s.State = models.StatePreviewEditing
	s.Errors = nil
	s.Preview = parser.BuildPreview(result.Questions, models.OneBased)
	return s.snapshot(), nil
}

// UpdateQuestion replaces one preview entry and re-validates it.
func (sm *SessionManager) UpdateQuestion(id string, index int, q models.ImportQuestionData) (models.PreviewQuestion, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return models.PreviewQuestion{}, ErrSessionNotFound
	}
	if s.State != models.StatePreviewEditing {
		return models.PreviewQuestion{}, fmt.Errorf("%w: %s", ErrInvalidState, s.State)
	}
	if index < 0 || index >= len(s.Preview) {
		return models.PreviewQuestion{}, ErrIndexOutOfRange
	}

	errs := parser.ValidateQuestion(&q, models.OneBased)
	s.Preview[index] = models.PreviewQuestion{
		Question: q,
		Valid:    len(errs) == 0,
		Errors:   errs,
	}
	s.UpdatedAt = time.Now()
	return s.Preview[index], nil
}

// RemoveQuestion drops one preview entry.
func (sm *SessionManager) RemoveQuestion(id string, index int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.State != models.StatePreviewEditing {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.State)
	}
	if index < 0 || index >= len(s.Preview) {
		return ErrIndexOutOfRange
	}
	s.Preview = append(s.Preview[:index], s.Preview[index+1:]...)
	s.UpdatedAt = time.Now()
	return nil
}

// Confirm starts the batch import for the current preview.
func (sm *SessionManager) Confirm(ctx context.Context, id string) (models.ImportSession, error) {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if !ok {
		sm.mu.Unlock()
		return models.ImportSession{}, ErrSessionNotFound
	}
	if s.State != models.StatePreviewEditing {
		state := s.State
		sm.mu.Unlock()
		return models.ImportSession{}, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	s.State = models.StateConfirmImport
	s.UpdatedAt = time.Now()

	preview := make([]models.PreviewQuestion, len(s.Preview))
	copy(preview, s.Preview)
	sm.mu.Unlock()

	// The job may emit synchronously, so the lock is released while it runs.
	// Detached from the request context: the job outlives the confirm call.
	job := sm.importer.Start(context.WithoutCancel(ctx), s.ChapterID, preview, func(ev ImportEvent) {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		s.progress = ev
		s.UpdatedAt = time.Now()
		switch ev.Kind {
		case EventComplete:
			// Import done: the session returns to idle and may parse again.
			// The result stays available through Progress.
			s.result = ev.Result
			s.State = models.StateIdle
		case EventError:
			s.State = models.StateFailed
			s.Errors = append(s.Errors, ev.Error)
		}
	})

	sm.mu.Lock()
	defer sm.mu.Unlock()
	s.job = job
	return s.snapshot(), nil
}

// Progress reports the latest event and, once complete, the final result.
func (sm *SessionManager) Progress(id string) (ImportEvent, *models.ImportResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return ImportEvent{}, nil, ErrSessionNotFound
	}
	return s.progress, s.result, nil
}

// Cancel destroys any running job and fails the session. The job stops at its
// next batch boundary; already-imported questions stay imported.
func (sm *SessionManager) Cancel(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.job != nil {
		s.job.Destroy()
	}
	s.State = models.StateFailed
	s.Errors = append(s.Errors, "已取消导入")
	s.UpdatedAt = time.Now()
	return nil
}
