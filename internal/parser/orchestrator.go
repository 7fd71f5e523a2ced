package parser

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// MetricRecorder receives one performance metric per strategy attempt.
// Recording must never block or fail the caller.
type MetricRecorder interface {
	Record(metric models.PerformanceMetric)
}

// StrategyGate lets the adaptive layer veto a strategy for this attempt.
type StrategyGate interface {
	Allowed(strategy string) bool
}

const budgetVetoMsg = "AI解析已跳过：超出预算限制"

// Pipeline tries strategies strictly in priority order, accepts the first
// non-empty success, normalizes its answers, and otherwise hands the failure
// to the recovery engine. The priority table is fixed at construction.
type Pipeline struct {
	local    []Strategy // purely local text strategies, priority order
	all      []Strategy // local + ai + ocr
	ai       *AIStrategy
	recovery *RecoveryEngine
	metrics  MetricRecorder
	gate     StrategyGate
	cost     CostModel
}

// NewPipeline wires the strategy table. ai may be nil (AI parsing disabled),
// ocr may be nil (no recognition engine available); metrics, gate and cost
// are optional collaborators.
func NewPipeline(ai *AIStrategy, ocr OCREngine, cost CostModel, metrics MetricRecorder, gate StrategyGate) *Pipeline {
	p := &Pipeline{
		ai:      ai,
		metrics: metrics,
		gate:    gate,
		cost:    cost,
	}

	p.local = []Strategy{
		&RuleBasedStrategy{},
		&StandardBlockStrategy{},
		&NumberedStrategy{},
		&SequentialStrategy{},
		&WordCleanupStrategy{},
		&PDFCleanupStrategy{},
		&SmartSplitStrategy{},
	}

	p.all = append(p.all, p.local...)
	if ai != nil {
		p.all = append(p.all, ai)
	}
	p.all = append(p.all, NewOCRStrategy(ocr, p.ParseLocal))

	p.recovery = NewRecoveryEngine(ai, p.ParseLocal)
	return p
}

// Strategies exposes the priority table for inspection and tests.
func (p *Pipeline) Strategies() []Strategy { return p.all }

// Parse runs the full cascade, including AI, OCR and recovery.
func (p *Pipeline) Parse(ctx context.Context, in Input) models.ParseResult {
	if in.Kind == models.InputText && strings.TrimSpace(in.Text) == "" && len(in.Data) == 0 {
		return models.ParseResult{
			Success: false,
			Errors:  []string{string(models.ErrParseFailed) + ": empty input"},
			Metadata: models.ParseMetadata{
				Parser:   parserName,
				Strategy: "none",
			},
		}
	}

	result, errs := p.parseWith(ctx, p.all, in)
	if result != nil {
		return *result
	}

	// Every strategy failed. Classify and hand off to recovery.
	ec := models.ErrorContext{
		OriginalText: in.Text,
		ErrorType:    classifyErrors(errs),
		ErrorMessage: strings.Join(errs, "; "),
		AttemptCount: 0,
	}
	recovered, ok := p.recovery.Recover(ctx, ec)
	p.record(in, recovered)
	if ok {
		return recovered
	}

	errs = append(errs, recovered.Errors...)
	return models.ParseResult{
		Success: false,
		Errors:  errs,
		Metadata: models.ParseMetadata{
			Parser:   parserName,
			Strategy: "aggregate",
		},
	}
}

// ParseLocal runs only the deterministic local strategies: no AI, no OCR, no
// recovery. Used by the OCR wrapper, chunked recovery and preview re-parsing.
func (p *Pipeline) ParseLocal(ctx context.Context, in Input) models.ParseResult {
	result, errs := p.parseWith(ctx, p.local, in)
	if result != nil {
		return *result
	}
	return models.ParseResult{
		Success: false,
		Errors:  errs,
		Metadata: models.ParseMetadata{
			Parser:   parserName,
			Strategy: "aggregate",
		},
	}
}

// parseWith tries the given strategies in order. On acceptance it returns the
// normalized result; otherwise nil plus every collected error.
func (p *Pipeline) parseWith(ctx context.Context, strategies []Strategy, in Input) (*models.ParseResult, []string) {
	var errs []string

	for _, s := range strategies {
		if p.gate != nil && !p.gate.Allowed(s.Name()) {
			continue
		}
		if p.cost != nil && s.Name() == "ai" {
			estimate := p.cost.EstimateCents(len(in.Text))
			if !p.cost.CanUseAI(estimate) {
				log.Printf("WARN: skipping AI strategy, estimated %d cents over budget", estimate)
				errs = append(errs, budgetVetoMsg)
				continue
			}
		}
		if !s.Supports(in) {
			continue
		}

		result := p.runStrategy(ctx, s, in)
		p.record(in, result)

		if result.Success && len(result.Questions) > 0 {
			NormalizeAnswers(result.Questions, s.AnswerIndexing())
			return &result, errs
		}
		for _, e := range result.Errors {
			errs = append(errs, s.Name()+": "+e)
		}
	}
	return nil, errs
}

// runStrategy times one attempt and turns a panicking strategy into a plain
// failure so the next strategy still runs.
func (p *Pipeline) runStrategy(ctx context.Context, s Strategy, in Input) (result models.ParseResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARN: strategy %s panicked: %v", s.Name(), r)
			result = failure(s.Name(), started, fmt.Sprintf("strategy panic: %v", r))
		}
	}()

	result = s.Parse(ctx, in)
	if result.Metadata.Strategy == "" {
		result.Metadata.Strategy = s.Name()
	}
	if result.Metadata.ProcessingTimeMs == 0 {
		result.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
	}
	return result
}

func (p *Pipeline) record(in Input, result models.ParseResult) {
	if p.metrics == nil {
		return
	}
	inputType := in.Kind
	if inputType == "" {
		inputType = models.InputText
	}
	p.metrics.Record(models.PerformanceMetric{
		Timestamp:        time.Now(),
		Parser:           result.Metadata.Parser,
		Strategy:         result.Metadata.Strategy,
		InputType:        inputType,
		InputSize:        len(in.Text) + len(in.Data),
		ProcessingTimeMs: result.Metadata.ProcessingTimeMs,
		Success:          result.Success,
		QuestionsCount:   len(result.Questions),
		Confidence:       result.Confidence,
		CostCents:        result.Metadata.CostCents,
		Errors:           result.Errors,
	})
}

// classifyErrors maps the collected strategy errors onto the recovery
// taxonomy. AI failures outrank the generic classifications because recovery
// picks its strategies off this type.
func classifyErrors(errs []string) models.ErrorType {
	joined := strings.Join(errs, "\n")
	switch {
	case strings.Contains(joined, "ai_error"):
		return models.ErrAIError
	case strings.Contains(joined, "incomplete_data"):
		return models.ErrIncompleteData
	case strings.Contains(joined, "format_error"):
		return models.ErrFormatError
	default:
		return models.ErrParseFailed
	}
}
