package parser

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/quizbank/backend/internal/models"
)

// RecoveryStrategy is one bounded retry mechanism, consulted only after every
// parsing strategy has failed.
type RecoveryStrategy interface {
	Name() string
	MaxAttempts() int
	CanHandle(ec models.ErrorContext) bool
	Recover(ctx context.Context, ec models.ErrorContext) models.ParseResult
}

// RecoveryEngine tries its registered strategies in a fixed order, each up to
// its attempt bound, and returns the first successful non-empty result.
// Nothing escapes this engine: a panicking strategy counts as a failed
// attempt.
type RecoveryEngine struct {
	strategies []RecoveryStrategy
}

// NewRecoveryEngine registers the strategy chain. The regex fallback is last
// and always applicable, so recovery of non-empty text always produces
// something for the preview.
func NewRecoveryEngine(ai *AIStrategy, local func(ctx context.Context, in Input) models.ParseResult) *RecoveryEngine {
	return &RecoveryEngine{
		strategies: []RecoveryStrategy{
			&formatCleanupRecovery{ai: ai},
			&promptOptimizationRecovery{ai: ai},
			&chunkRecovery{local: local},
			&regexFallbackRecovery{},
		},
	}
}

// Recover runs the chain. The boolean reports whether a usable result was
// produced; on false the result carries the accumulated recovery errors.
func (e *RecoveryEngine) Recover(ctx context.Context, ec models.ErrorContext) (models.ParseResult, bool) {
	var errs []string

	for _, s := range e.strategies {
		if !s.CanHandle(ec) {
			continue
		}
		for attempt := 0; attempt < s.MaxAttempts(); attempt++ {
			result := e.runRecovery(ctx, s, ec)
			ec.AttemptCount++
			if result.Success && len(result.Questions) > 0 {
				result.Metadata.Parser = "recovery"
				return result, true
			}
			for _, msg := range result.Errors {
				errs = append(errs, s.Name()+": "+msg)
			}
		}
	}

	return models.ParseResult{
		Success: false,
		Errors:  errs,
		Metadata: models.ParseMetadata{
			Parser:   "recovery",
			Strategy: "exhausted",
		},
	}, false
}

func (e *RecoveryEngine) runRecovery(ctx context.Context, s RecoveryStrategy, ec models.ErrorContext) (result models.ParseResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARN: recovery strategy %s panicked: %v", s.Name(), r)
			result = failure(s.Name(), started, fmt.Sprintf("recovery panic: %v", r))
		}
	}()
	return s.Recover(ctx, ec)
}

// ── Format Cleanup ─────────────────────────────────────────

// Fixed tables of known OCR confusions, applied inside
// numeric-looking tokens (letters read as digits) and word-looking tokens
// (digit/glyph noise read into words).
var ocrDigitFixes = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1", "|", "1", "S", "5")
var ocrWordFixes = strings.NewReplacer("0", "O", "1", "l", "5", "S", "|", "I", "rn", "m")

var reJunkSymbols = regexp.MustCompile(`[^\p{Han}\p{Latin}\p{N}\s。，、．.…：:；;！!？?（）()【】《》「」\x{201C}\x{201D}\x{2018}\x{2019}"'<>＜＞=＋+\-—_*×÷/\\%@#&·｜|]`)

// CleanupText normalizes whitespace, strips symbols no quiz format uses, and
// applies the OCR substitution table token by token.
func CleanupText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = reJunkSymbols.ReplaceAllString(text, "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		for i, tok := range fields {
			fields[i] = fixOCRToken(tok)
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}

// fixOCRToken applies substitutions only when the token is clearly one kind:
// mostly digits (fix letter intrusions) or purely alphabetic (fix digit
// intrusions). Mixed identifiers are left alone.
func fixOCRToken(tok string) string {
	digits, letters, other := 0, 0, 0
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r) && r < 128:
			letters++
		default:
			other++
		}
	}
	if other > 0 || digits == 0 && letters == 0 {
		return tok
	}
	if digits > letters && letters > 0 {
		return ocrDigitFixes.Replace(tok)
	}
	if letters > 2 && digits > 0 && digits <= 2 {
		return ocrWordFixes.Replace(tok)
	}
	if letters > 3 && strings.Contains(tok, "rn") {
		return strings.ReplaceAll(tok, "rn", "m")
	}
	return tok
}

type formatCleanupRecovery struct {
	ai *AIStrategy
}

func (r *formatCleanupRecovery) Name() string     { return "format_cleanup" }
func (r *formatCleanupRecovery) MaxAttempts() int { return 1 }

func (r *formatCleanupRecovery) CanHandle(ec models.ErrorContext) bool {
	if r.ai == nil || !r.ai.Enabled() || strings.TrimSpace(ec.OriginalText) == "" {
		return false
	}
	return ec.ErrorType == models.ErrParseFailed || ec.ErrorType == models.ErrFormatError
}

func (r *formatCleanupRecovery) Recover(ctx context.Context, ec models.ErrorContext) models.ParseResult {
	cleaned := CleanupText(ec.OriginalText)
	result := r.ai.Parse(ctx, Input{Kind: models.InputText, Text: cleaned})
	result.Metadata.Strategy = r.Name()
	if result.Success {
		NormalizeAnswers(result.Questions, r.ai.AnswerIndexing())
	}
	return result
}

// ── Prompt Optimization ────────────────────────────────────

type promptOptimizationRecovery struct {
	ai *AIStrategy
}

func (r *promptOptimizationRecovery) Name() string     { return "prompt_optimization" }
func (r *promptOptimizationRecovery) MaxAttempts() int { return 2 }

func (r *promptOptimizationRecovery) CanHandle(ec models.ErrorContext) bool {
	if r.ai == nil || !r.ai.Enabled() || strings.TrimSpace(ec.OriginalText) == "" {
		return false
	}
	switch ec.ErrorType {
	case models.ErrAIError, models.ErrIncompleteData, models.ErrParseFailed:
		return true
	}
	return false
}

func (r *promptOptimizationRecovery) Recover(ctx context.Context, ec models.ErrorContext) models.ParseResult {
	in := Input{
		Kind: models.InputText,
		Text: ec.OriginalText,
		Hints: Hints{
			Language:      detectLanguage(ec.OriginalText),
			MultiQuestion: countQuestionMarkers(ec.OriginalText) > 1,
			OCRNoise:      ec.ErrorType == models.ErrFormatError,
		},
	}
	extra := fmt.Sprintf("Earlier parsing failed with: %s. Be tolerant of malformed markers and numbering.", ec.ErrorMessage)
	result := r.ai.ParseWithContext(ctx, in, extra)
	result.Metadata.Strategy = r.Name()
	if result.Success {
		NormalizeAnswers(result.Questions, r.ai.AnswerIndexing())
	}
	return result
}

func detectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return "zh"
		}
	}
	return "en"
}

func countQuestionMarkers(text string) int {
	return len(reNumberMarker.FindAllString(text, -1))
}

// ── Chunked Re-processing ──────────────────────────────────

const maxChunkChars = 1000

type chunkRecovery struct {
	local func(ctx context.Context, in Input) models.ParseResult
}

func (r *chunkRecovery) Name() string     { return "chunking" }
func (r *chunkRecovery) MaxAttempts() int { return 1 }

func (r *chunkRecovery) CanHandle(ec models.ErrorContext) bool {
	return len(ec.OriginalText) > maxChunkChars
}

func (r *chunkRecovery) Recover(ctx context.Context, ec models.ErrorContext) models.ParseResult {
	started := time.Now()

	var questions []models.ImportQuestionData
	var errs []string
	confidence := 1.0

	for i, chunk := range SplitChunks(ec.OriginalText, maxChunkChars) {
		result := r.local(ctx, Input{Kind: models.InputText, Text: chunk})
		if result.Success && len(result.Questions) > 0 {
			questions = append(questions, result.Questions...)
			if result.Confidence < confidence {
				confidence = result.Confidence
			}
			continue
		}
		errs = append(errs, fmt.Sprintf("chunk %d unparsed", i+1))
	}

	if len(questions) == 0 {
		return failure(r.Name(), started, errs...)
	}
	result := success(r.Name(), started, questions, confidence)
	result.Errors = errs
	return result
}

// SplitChunks splits text into pieces of at most limit characters, breaking
// only at newlines. A single overlong line becomes its own chunk rather than
// being cut mid-line.
func SplitChunks(text string, limit int) []string {
	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// ── Regex Fallback ─────────────────────────────────────────

// regexFallbackRecovery is the last resort: it extracts loosely numbered
// spans with no option or answer structure, at a fixed low confidence, so the
// preview always has something to show for non-empty input.
type regexFallbackRecovery struct{}

const fallbackConfidence = 0.3

func (r *regexFallbackRecovery) Name() string     { return "regex_fallback" }
func (r *regexFallbackRecovery) MaxAttempts() int { return 1 }

func (r *regexFallbackRecovery) CanHandle(ec models.ErrorContext) bool { return true }

func (r *regexFallbackRecovery) Recover(ctx context.Context, ec models.ErrorContext) models.ParseResult {
	started := time.Now()

	text := strings.TrimSpace(ec.OriginalText)
	if text == "" {
		return failure(r.Name(), started, "empty input")
	}

	var questions []models.ImportQuestionData
	locs := reNumberMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		questions = append(questions, models.ImportQuestionData{
			Title: strings.Join(strings.Fields(text), " "),
		})
	} else {
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			span := strings.TrimSpace(text[loc[0]:end])
			if span == "" {
				continue
			}
			questions = append(questions, models.ImportQuestionData{
				Title: strings.Join(strings.Fields(QuestionTitle(span)), " "),
			})
		}
	}

	return success(r.Name(), started, questions, fallbackConfidence)
}
