package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// parseQuestionBlock turns the lines of a single block into a candidate
// question. The block must contain a title, at least two options and an
// answer line; explanation and difficulty are optional.
func parseQuestionBlock(block string) (models.ImportQuestionData, error) {
	var q models.ImportQuestionData
	var titleParts, explParts []string
	seenOptions := false
	seenAnswer := false
	inExplanation := false

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch ClassifyLine(trimmed) {
		case LineOption:
			inExplanation = false
			seenOptions = true
			if inline := SplitInlineOptions(trimmed); inline != nil {
				for _, opt := range inline {
					_, text, _ := OptionText(opt)
					q.Options = append(q.Options, text)
				}
				continue
			}
			_, text, _ := OptionText(trimmed)
			q.Options = append(q.Options, text)

		case LineAnswer:
			inExplanation = false
			seenAnswer = true
			raw, _ := AnswerText(trimmed)
			q.RawAnswer = raw

		case LineExplanation:
			inExplanation = true
			if text, ok := ExplanationText(trimmed); ok && text != "" {
				explParts = append(explParts, text)
			}

		case LineDifficulty:
			inExplanation = false
			if d, ok := DifficultyValue(trimmed); ok {
				q.Difficulty = d
			}

		case LineQuestionStart:
			title := QuestionTitle(trimmed)
			// Inline options can trail the title on the same line.
			if inline := SplitInlineOptions(title); inline != nil {
				cut := reInlineOption.FindStringIndex(title)
				titleParts = append(titleParts, strings.TrimSpace(title[:cut[0]]))
				for _, opt := range inline {
					_, text, _ := OptionText(opt)
					q.Options = append(q.Options, text)
				}
				seenOptions = true
				continue
			}
			titleParts = append(titleParts, title)

		case LineContinuation:
			if inline := SplitInlineOptions(trimmed); inline != nil {
				seenOptions = true
				for _, opt := range inline {
					_, text, _ := OptionText(opt)
					q.Options = append(q.Options, text)
				}
				continue
			}
			switch {
			case inExplanation:
				explParts = append(explParts, trimmed)
			case !seenOptions:
				titleParts = append(titleParts, trimmed)
			default:
				// Wrapped option text continues the previous option.
				if n := len(q.Options); n > 0 && !seenAnswer {
					q.Options[n-1] = strings.TrimSpace(q.Options[n-1] + " " + trimmed)
				}
			}
		}
	}

	q.Title = strings.TrimSpace(strings.Join(titleParts, " "))
	q.Explanation = strings.TrimSpace(strings.Join(explParts, " "))

	if q.Title == "" {
		return q, fmt.Errorf("block has no title")
	}
	if len(q.Options) < 2 {
		return q, fmt.Errorf("block has %d options, need at least 2", len(q.Options))
	}
	if q.RawAnswer == "" {
		return q, fmt.Errorf("block has no answer line")
	}
	return q, nil
}

// StandardBlockStrategy handles the canonical layout: numbered title, lettered
// options, 答案 line, optional 解析 line, one question per block.
type StandardBlockStrategy struct{}

func (s *StandardBlockStrategy) Name() string                          { return "standard_block" }
func (s *StandardBlockStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *StandardBlockStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *StandardBlockStrategy) Supports(in Input) bool { return isText(in) }

func (s *StandardBlockStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	blocks, format := splitBlocksDetect(in.Text)
	if len(blocks) == 0 {
		return failure(s.Name(), started, "empty input")
	}

	var questions []models.ImportQuestionData
	var errs []string
	for i, block := range blocks {
		q, err := parseQuestionBlock(block)
		if err != nil {
			errs = append(errs, fmt.Sprintf("block %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return failure(s.Name(), started, errs...)
	}

	result := success(s.Name(), started, questions, 0.9)
	result.Errors = errs
	result.Metadata.DetectedFormat = format
	return result
}
