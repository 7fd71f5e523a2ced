package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// InputKind classifies what kind of raw input a parse attempt received.
type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
	InputPDF   InputKind = "pdf"
)

// AnswerIndexing declares how a strategy's numeric raw answers are counted.
// Human-authored quiz text ("答案：2") is one-based; the AI response schema
// requests a zero-based index.
type AnswerIndexing int

const (
	OneBased AnswerIndexing = iota
	ZeroBased
)

// ImportQuestionData is a candidate question extracted from raw text.
// Strategies fill Title, Options and RawAnswer; normalization resolves
// RawAnswer into the zero-based CorrectAnswer index. After a question is
// accepted for import it is never mutated again.
type ImportQuestionData struct {
	Title         string     `json:"title"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correct_answer"`
	RawAnswer     string     `json:"raw_answer,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

// ParseMetadata describes how a ParseResult was produced.
type ParseMetadata struct {
	Parser           string    `json:"parser"`
	Strategy         string    `json:"strategy"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CostCents        int       `json:"cost_cents"`
	OCRConfidence    float64   `json:"ocr_confidence,omitempty"`
	DetectedFormat   string    `json:"detected_format,omitempty"`
	InputType        InputKind `json:"input_type,omitempty"`
}

// ParseResult is the outcome of one strategy invocation. It is immutable
// after creation: the orchestrator either accepts it wholesale or discards it.
type ParseResult struct {
	Success    bool                 `json:"success"`
	Questions  []ImportQuestionData `json:"questions"`
	Confidence float64              `json:"confidence"`
	Errors     []string             `json:"errors,omitempty"`
	Metadata   ParseMetadata        `json:"metadata"`
}

// PreviewQuestion pairs a candidate with its validation errors so invalid
// questions stay visible in the preview instead of being dropped.
type PreviewQuestion struct {
	Question ImportQuestionData `json:"question"`
	Valid    bool               `json:"valid"`
	Errors   []string           `json:"errors,omitempty"`
}

// ImportResult is the final, user-facing report of one import operation.
type ImportResult struct {
	TotalCount   int        `json:"total_count"`
	SuccessCount int        `json:"success_count"`
	FailedCount  int        `json:"failed_count"`
	Errors       []string   `json:"errors,omitempty"`
	Questions    []Question `json:"questions"`
}

// ── Error Recovery Taxonomy ─────────────────────────────

type ErrorType string

const (
	ErrParseFailed    ErrorType = "parse_failed"
	ErrFormatError    ErrorType = "format_error"
	ErrIncompleteData ErrorType = "incomplete_data"
	ErrAIError        ErrorType = "ai_error"
	ErrValidation     ErrorType = "validation_error"
)

// ErrorContext carries everything the recovery engine needs to decide how to
// retry a failed parse attempt. Discarded once recovery succeeds or every
// strategy is exhausted.
type ErrorContext struct {
	OriginalText    string        `json:"original_text"`
	ErrorType       ErrorType     `json:"error_type"`
	ErrorMessage    string        `json:"error_message"`
	AttemptCount    int           `json:"attempt_count"`
	PreviousResults []ParseResult `json:"previous_results,omitempty"`
	Confidence      float64       `json:"confidence,omitempty"`
}

// ── Import Session State Machine ────────────────────────

type ImportState string

const (
	StateIdle           ImportState = "idle"
	StateParsing        ImportState = "parsing"
	StatePreviewEditing ImportState = "preview_editing"
	StateConfirmImport  ImportState = "confirm_import"
	StateFailed         ImportState = "failed"
)

type ImportSession struct {
	ID        string            `json:"id"`
	State     ImportState       `json:"state"`
	ChapterID int64             `json:"chapter_id"`
	Preview   []PreviewQuestion `json:"preview,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
