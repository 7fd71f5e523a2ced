package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// SequentialStrategy walks lines top to bottom with no block splitting at
// all: title lines accumulate until the first option appears, options
// accumulate until an answer line, then an optional explanation. A new
// question begins at the next question-start line, or at the next option
// line after an answer (for input with unnumbered titles).
type SequentialStrategy struct{}

func (s *SequentialStrategy) Name() string                          { return "sequential" }
func (s *SequentialStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *SequentialStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *SequentialStrategy) Supports(in Input) bool { return isText(in) }

func (s *SequentialStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	var questions []models.ImportQuestionData
	var errs []string
	var current models.ImportQuestionData
	var titleParts []string
	answered := false

	flush := func() {
		current.Title = strings.TrimSpace(strings.Join(titleParts, " "))
		if current.Title == "" && len(current.Options) == 0 {
			current = models.ImportQuestionData{}
			titleParts = nil
			answered = false
			return
		}
		if current.Title == "" || len(current.Options) < 2 || current.RawAnswer == "" {
			errs = append(errs, fmt.Sprintf("incomplete question %q dropped", current.Title))
		} else {
			questions = append(questions, current)
		}
		current = models.ImportQuestionData{}
		titleParts = nil
		answered = false
	}

	for _, line := range strings.Split(in.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch ClassifyLine(trimmed) {
		case LineQuestionStart:
			if len(titleParts) > 0 || len(current.Options) > 0 {
				flush()
			}
			titleParts = append(titleParts, QuestionTitle(trimmed))

		case LineOption:
			if answered {
				flush()
			}
			if inline := SplitInlineOptions(trimmed); inline != nil {
				for _, opt := range inline {
					_, text, _ := OptionText(opt)
					current.Options = append(current.Options, text)
				}
			} else {
				_, text, _ := OptionText(trimmed)
				current.Options = append(current.Options, text)
			}

		case LineAnswer:
			raw, _ := AnswerText(trimmed)
			current.RawAnswer = raw
			answered = true

		case LineExplanation:
			if text, ok := ExplanationText(trimmed); ok {
				current.Explanation = text
			}

		case LineDifficulty:
			if d, ok := DifficultyValue(trimmed); ok {
				current.Difficulty = d
			}

		case LineContinuation:
			switch {
			case answered && current.Explanation != "":
				current.Explanation = strings.TrimSpace(current.Explanation + " " + trimmed)
			case answered:
				// Prose after an answer starts the next question's title.
				flush()
				titleParts = append(titleParts, trimmed)
			case len(current.Options) == 0:
				titleParts = append(titleParts, trimmed)
			default:
				n := len(current.Options)
				current.Options[n-1] = strings.TrimSpace(current.Options[n-1] + " " + trimmed)
			}
		}
	}
	flush()

	if len(questions) == 0 {
		if len(errs) == 0 {
			errs = append(errs, "no questions found")
		}
		return failure(s.Name(), started, errs...)
	}

	result := success(s.Name(), started, questions, 0.6)
	result.Errors = errs
	return result
}
