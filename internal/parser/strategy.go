package parser

import (
	"context"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Hints carry optional context about the input, forwarded to the AI parser.
type Hints struct {
	Language      string
	MultiQuestion bool
	OCRNoise      bool
}

// Input is one unit of raw material handed to the pipeline.
type Input struct {
	Kind  models.InputKind
	Text  string
	Data  []byte // image or PDF bytes; empty for pasted text
	Hints Hints
}

// Strategy is one self-contained algorithm for turning raw input into
// structured questions.
//
// Contract: Parse returns success=false with empty questions for anything it
// cannot handle; it never returns an error and never panics intentionally.
// Metadata.Strategy and Metadata.ProcessingTimeMs are always populated.
// Purely local strategies are deterministic; only the AI strategy is not.
type Strategy interface {
	Name() string
	InputTypes() []models.InputKind
	Supports(in Input) bool
	Parse(ctx context.Context, in Input) models.ParseResult

	// AnswerIndexing declares how this strategy's numeric raw answers are
	// counted, so the orchestrator normalizes them correctly.
	AnswerIndexing() models.AnswerIndexing
}

// failure builds the conventional empty failure result.
func failure(strategy string, started time.Time, errs ...string) models.ParseResult {
	return models.ParseResult{
		Success: false,
		Errors:  errs,
		Metadata: models.ParseMetadata{
			Parser:           parserName,
			Strategy:         strategy,
			ProcessingTimeMs: time.Since(started).Milliseconds(),
		},
	}
}

// success builds a populated result.
func success(strategy string, started time.Time, questions []models.ImportQuestionData, confidence float64) models.ParseResult {
	return models.ParseResult{
		Success:    true,
		Questions:  questions,
		Confidence: confidence,
		Metadata: models.ParseMetadata{
			Parser:           parserName,
			Strategy:         strategy,
			ProcessingTimeMs: time.Since(started).Milliseconds(),
		},
	}
}

const parserName = "import_pipeline"

func textOnly() []models.InputKind { return []models.InputKind{models.InputText} }

func isText(in Input) bool { return in.Kind == models.InputText && in.Text != "" }
