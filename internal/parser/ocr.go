package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// OCREngine is the external text-recognition collaborator. It returns the
// extracted text and a [0,1] confidence; the recognition algorithm itself is
// opaque to this package.
type OCREngine interface {
	ExtractText(ctx context.Context, data []byte, kind models.InputKind) (text string, confidence float64, err error)
}

// OCRStrategy accepts image and PDF input only: it runs OCR extraction, then
// feeds the recognized text through the local text strategies with the
// OCR-noise hint set.
type OCRStrategy struct {
	engine    OCREngine
	parseText func(ctx context.Context, in Input) models.ParseResult
}

func NewOCRStrategy(engine OCREngine, parseText func(ctx context.Context, in Input) models.ParseResult) *OCRStrategy {
	return &OCRStrategy{engine: engine, parseText: parseText}
}

func (s *OCRStrategy) Name() string { return "ocr" }

func (s *OCRStrategy) InputTypes() []models.InputKind {
	return []models.InputKind{models.InputImage, models.InputPDF}
}

func (s *OCRStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *OCRStrategy) Supports(in Input) bool {
	if s.engine == nil || len(in.Data) == 0 {
		return false
	}
	return in.Kind == models.InputImage || in.Kind == models.InputPDF
}

func (s *OCRStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	text, ocrConfidence, err := s.engine.ExtractText(ctx, in.Data, in.Kind)
	if err != nil {
		return failure(s.Name(), started, fmt.Sprintf("ocr extraction failed: %v", err))
	}
	if text == "" {
		return failure(s.Name(), started, "ocr produced no text")
	}

	hints := in.Hints
	hints.OCRNoise = true
	result := s.parseText(ctx, Input{Kind: models.InputText, Text: text, Hints: hints})

	result.Metadata.Strategy = s.Name()
	result.Metadata.OCRConfidence = ocrConfidence
	result.Metadata.InputType = in.Kind
	result.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
	if result.Success {
		// Parse confidence is capped by how sure the OCR engine was.
		result.Confidence = result.Confidence * ocrConfidence
	}
	return result
}

// ── HTTP OCR Engine ────────────────────────────────────────

// HTTPOCREngine talks to a recognition service over a small JSON contract:
// POST the binary, receive {"text": "...", "confidence": 0.92}.
type HTTPOCREngine struct {
	endpoint string
	client   *http.Client
}

func NewHTTPOCREngine(endpoint string) *HTTPOCREngine {
	return &HTTPOCREngine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type ocrResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (e *HTTPOCREngine) ExtractText(ctx context.Context, data []byte, kind models.InputKind) (string, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"?type="+string(kind), bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("ocr service returned %d", resp.StatusCode)
	}

	var body ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("decode ocr response: %w", err)
	}
	return body.Text, body.Confidence, nil
}
