package parser

import (
	"context"
	"sync"
	"testing"

	"github.com/quizbank/backend/internal/models"
)

// ── Test doubles ───────────────────────────────────────────

type countingLLM struct {
	mu    sync.Mutex
	calls int
}

func (c *countingLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return (&MockLLMClient{}).Complete(ctx, systemPrompt, userPrompt)
}

type fixedCost struct {
	allow bool
	spent int
}

func (f *fixedCost) EstimateCents(inputChars int) int              { return 1 }
func (f *fixedCost) ActualCents(promptTokens, outputTokens int) int { return 1 }
func (f *fixedCost) CanUseAI(estimatedCents int) bool               { return f.allow }
func (f *fixedCost) RecordSpend(cents int)                          { f.spent += cents }

type denyList map[string]bool

func (d denyList) Allowed(strategy string) bool { return !d[strategy] }

type captureRecorder struct {
	metrics []models.PerformanceMetric
}

func (c *captureRecorder) Record(m models.PerformanceMetric) { c.metrics = append(c.metrics, m) }

type fixedOCR struct {
	text       string
	confidence float64
}

func (f *fixedOCR) ExtractText(ctx context.Context, data []byte, kind models.InputKind) (string, float64, error) {
	return f.text, f.confidence, nil
}

const strictText = `1. 中国的首都是哪里？
A. 上海
B. 北京
答案：B`

// ── Tests ──────────────────────────────────────────────────

func TestPipelineStrictFormatWinsFirst(t *testing.T) {
	p := NewPipeline(nil, nil, nil, nil, nil)

	result := p.Parse(context.Background(), textInput(strictText))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "rule_based" {
		t.Errorf("strategy = %q, want rule_based", result.Metadata.Strategy)
	}
	q := result.Questions[0]
	if q.CorrectAnswer != 1 || q.RawAnswer != "" {
		t.Errorf("answer should be normalized: index %d, raw %q", q.CorrectAnswer, q.RawAnswer)
	}
}

func TestPipelineFallsThroughOnLooserInput(t *testing.T) {
	// The wrapped option line breaks the strict state machine; the block
	// parser tolerates it.
	text := `1. 下列关于网络协议的说法哪项正确？
A. TCP 是一种无连接的
传输协议
B. UDP 保证报文按序到达
答案：A`

	p := NewPipeline(nil, nil, nil, nil, nil)
	result := p.Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "standard_block" {
		t.Errorf("strategy = %q, want standard_block", result.Metadata.Strategy)
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	p := NewPipeline(nil, nil, nil, nil, nil)
	result := p.Parse(context.Background(), textInput("   \n "))
	if result.Success {
		t.Fatal("empty input must not succeed")
	}
	if result.Metadata.Strategy != "none" {
		t.Errorf("strategy = %q", result.Metadata.Strategy)
	}
}

func TestPipelineBudgetVeto(t *testing.T) {
	llm := &countingLLM{}
	cost := &fixedCost{allow: false}
	ai := NewAIStrategyWith(llm, "test-model", cost)
	p := NewPipeline(ai, nil, cost, nil, nil)

	// Nothing local can parse this, so without the budget veto the AI
	// strategy and the AI-backed recovery paths would all fire.
	result := p.Parse(context.Background(), textInput("完全无法解析的文字，不包含任何题目结构。"))

	if llm.calls != 0 {
		t.Fatalf("model called %d times despite exhausted budget", llm.calls)
	}
	if cost.spent != 0 {
		t.Errorf("spend recorded without a call: %d", cost.spent)
	}
	if !result.Success {
		t.Fatalf("regex fallback should still produce a preview: %v", result.Errors)
	}
	if result.Metadata.Parser != "recovery" || result.Metadata.Strategy != "regex_fallback" {
		t.Errorf("metadata = %+v", result.Metadata)
	}
	if result.Confidence != 0.3 {
		t.Errorf("confidence = %v", result.Confidence)
	}
}

func TestPipelineAIParsesWhenBudgetAllows(t *testing.T) {
	llm := &countingLLM{}
	cost := &fixedCost{allow: true}
	ai := NewAIStrategyWith(llm, "test-model", cost)
	p := NewPipeline(ai, nil, cost, nil, nil)

	result := p.Parse(context.Background(), textInput("完全无法解析的文字，不包含任何题目结构。"))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "ai" {
		t.Errorf("strategy = %q, want ai", result.Metadata.Strategy)
	}
	if llm.calls != 1 {
		t.Errorf("model calls = %d, want 1", llm.calls)
	}
	if cost.spent != 1 {
		t.Errorf("spend = %d, want 1", cost.spent)
	}
}

func TestPipelineGateVeto(t *testing.T) {
	p := NewPipeline(nil, nil, nil, nil, denyList{"rule_based": true})

	result := p.Parse(context.Background(), textInput(strictText))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "standard_block" {
		t.Errorf("gated strategy still won: %q", result.Metadata.Strategy)
	}
}

func TestPipelineRecordsMetrics(t *testing.T) {
	rec := &captureRecorder{}
	p := NewPipeline(nil, nil, nil, rec, nil)

	p.Parse(context.Background(), textInput(strictText))
	if len(rec.metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(rec.metrics))
	}
	m := rec.metrics[0]
	if m.Strategy != "rule_based" || !m.Success || m.QuestionsCount != 1 {
		t.Errorf("metric = %+v", m)
	}
	if m.InputType != models.InputText || m.InputSize == 0 {
		t.Errorf("input fields not populated: %+v", m)
	}
}

func TestPipelineOCRInput(t *testing.T) {
	engine := &fixedOCR{text: strictText, confidence: 0.8}
	p := NewPipeline(nil, engine, nil, nil, nil)

	result := p.Parse(context.Background(), Input{Kind: models.InputImage, Data: []byte{0x89, 0x50}})
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "ocr" {
		t.Errorf("strategy = %q", result.Metadata.Strategy)
	}
	if result.Metadata.OCRConfidence != 0.8 {
		t.Errorf("ocr confidence = %v", result.Metadata.OCRConfidence)
	}
	// Parse confidence is scaled by the recognition confidence.
	want := 0.95 * 0.8
	if diff := result.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want %v", result.Confidence, want)
	}
}

func TestPipelineDeterministicForSameInput(t *testing.T) {
	p := NewPipeline(nil, nil, nil, nil, nil)

	first := p.Parse(context.Background(), textInput(strictText))
	second := p.Parse(context.Background(), textInput(strictText))

	if first.Metadata.Strategy != second.Metadata.Strategy {
		t.Errorf("strategy changed between runs: %q vs %q", first.Metadata.Strategy, second.Metadata.Strategy)
	}
	if len(first.Questions) != len(second.Questions) {
		t.Fatalf("question count changed: %d vs %d", len(first.Questions), len(second.Questions))
	}
	for i := range first.Questions {
		if first.Questions[i].Title != second.Questions[i].Title {
			t.Errorf("question %d title changed", i)
		}
	}
}
