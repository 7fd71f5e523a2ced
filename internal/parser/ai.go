package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/quizbank/backend/internal/models"
)

// LLMClient is the interface both AI parser backends satisfy.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// CostModel is the pre-flight budget gate and cost accountant for AI calls.
// All amounts are integer cents.
type CostModel interface {
	EstimateCents(inputChars int) int
	ActualCents(promptTokens, outputTokens int) int
	CanUseAI(estimatedCents int) bool
	RecordSpend(cents int)
}

const aiSystemPrompt = `You are a quiz import assistant. The user pastes raw, messy quiz text
(possibly Chinese, possibly OCR output). Extract every multiple-choice
question and respond with ONLY a JSON object, no prose:

{"questions":[{"title":"...","options":["...","..."],"correct_answer":0,"explanation":"..."}],"confidence":0.9}

Rules:
- correct_answer is the 0-based index into options.
- Keep option text exactly as written, without the letter markers.
- Omit explanation when the text has none.
- confidence is your overall certainty in [0,1].`

// aiResponse mirrors the JSON schema requested from the provider.
type aiResponse struct {
	Questions []struct {
		Title         string   `json:"title"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
	} `json:"questions"`
	Confidence float64 `json:"confidence"`
}

// AIStrategy delegates parsing to the remote model. Highest cost, explicitly
// non-deterministic; the orchestrator consults the cost model before ever
// invoking it.
type AIStrategy struct {
	llm     LLMClient
	model   string
	cost    CostModel
	enabled bool
}

// NewAIStrategy picks a backend the same way the rest of the env-driven
// configuration works: MOCK_AI_PARSER=true for local development, otherwise
// the Anthropic API with AI_PARSER_MODEL (or a default).
func NewAIStrategy(cost CostModel) *AIStrategy {
	enabled := os.Getenv("AI_PARSER_ENABLED") != "false"

	var llm LLMClient
	model := "mock"
	if os.Getenv("MOCK_AI_PARSER") == "true" {
		llm = NewMockLLMClient()
		log.Println("AI parser using mock backend")
	} else {
		model = os.Getenv("AI_PARSER_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		llm = NewAPIClient(model)
		log.Println("AI parser using Anthropic API:", model)
	}

	return &AIStrategy{llm: llm, model: model, cost: cost, enabled: enabled}
}

// NewAIStrategyWith injects a specific backend; used by recovery and tests.
func NewAIStrategyWith(llm LLMClient, model string, cost CostModel) *AIStrategy {
	return &AIStrategy{llm: llm, model: model, cost: cost, enabled: true}
}

func (s *AIStrategy) Name() string                   { return "ai" }
func (s *AIStrategy) InputTypes() []models.InputKind { return textOnly() }
func (s *AIStrategy) Enabled() bool                  { return s.enabled }

// AnswerIndexing: the response schema requests a 0-based correct_answer.
func (s *AIStrategy) AnswerIndexing() models.AnswerIndexing { return models.ZeroBased }

func (s *AIStrategy) Supports(in Input) bool { return s.enabled && isText(in) }

func (s *AIStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	return s.parse(ctx, in, buildUserPrompt(in))
}

// ParseWithContext re-invokes the model with enriched hints; used by the
// prompt-optimization recovery strategy.
func (s *AIStrategy) ParseWithContext(ctx context.Context, in Input, extra string) models.ParseResult {
	return s.parse(ctx, in, buildUserPrompt(in)+"\n\n"+extra)
}

func (s *AIStrategy) parse(ctx context.Context, in Input, userPrompt string) models.ParseResult {
	started := time.Now()

	// Pre-flight budget check holds for every caller, recovery included.
	if s.cost != nil && !s.cost.CanUseAI(s.cost.EstimateCents(len(userPrompt))) {
		return failure(s.Name(), started, budgetVetoMsg)
	}

	resp, err := s.llm.Complete(ctx, aiSystemPrompt, userPrompt)
	if err != nil {
		return failure(s.Name(), started, fmt.Sprintf("ai_error: %v", err))
	}

	cents := 0
	if s.cost != nil {
		cents = s.cost.ActualCents(resp.PromptTokens, resp.OutputTokens)
		s.cost.RecordSpend(cents)
	}

	parsed, perr := parseAIResponse(resp.Content)
	if perr != nil {
		result := failure(s.Name(), started, perr.Error())
		result.Metadata.CostCents = cents
		return result
	}

	questions := make([]models.ImportQuestionData, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		questions = append(questions, models.ImportQuestionData{
			Title:         q.Title,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if len(questions) == 0 {
		result := failure(s.Name(), started, "incomplete_data: model returned no questions")
		result.Metadata.CostCents = cents
		return result
	}

	confidence := parsed.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8 // fixed default when the provider reports none
	}

	result := success(s.Name(), started, questions, confidence)
	result.Metadata.CostCents = cents
	return result
}

func buildUserPrompt(in Input) string {
	var hints []string
	if in.Hints.Language != "" {
		hints = append(hints, "Input language: "+in.Hints.Language)
	}
	if in.Hints.MultiQuestion {
		hints = append(hints, "The text contains multiple questions.")
	}
	if in.Hints.OCRNoise {
		hints = append(hints, "The text is OCR output and may contain character-level errors (0/O, 1/l, 5/S).")
	}
	if len(hints) == 0 {
		return in.Text
	}
	return strings.Join(hints, "\n") + "\n\n" + in.Text
}

func parseAIResponse(content string) (*aiResponse, error) {
	cleaned := stripCodeFences(content)

	var resp aiResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		if strings.Contains(cleaned, "{") && !strings.HasSuffix(strings.TrimSpace(cleaned), "}") {
			return nil, fmt.Errorf("incomplete_data: truncated response: %v", err)
		}
		return nil, fmt.Errorf("format_error: invalid JSON response: %v", err)
	}
	return &resp, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// ── Anthropic API Client ──────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Complete(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.2),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── Mock Client for Local Development ──────────────────────

type MockLLMClient struct{}

func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{}
}

func (m *MockLLMClient) Complete(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	mock := aiResponse{Confidence: 0.9}
	mock.Questions = append(mock.Questions, struct {
		Title         string   `json:"title"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
	}{
		Title:         "[Mock] 下列哪项是正确的？",
		Options:       []string{"选项一", "选项二", "选项三", "选项四"},
		CorrectAnswer: 1,
		Explanation:   "[Mock] 模拟解析。",
	})
	data, _ := json.Marshal(mock)
	return &LLMResponse{
		Content:      string(data),
		PromptTokens: 600,
		OutputTokens: 200,
	}, nil
}
