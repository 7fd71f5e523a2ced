package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// RuleBasedStrategy is the strictest and cheapest strategy: a state machine
// over classified lines that only accepts well-formed input where every
// question follows the sequence title → options → answer. Any structural
// violation fails the whole attempt so a looser strategy can take over.
type RuleBasedStrategy struct{}

func (s *RuleBasedStrategy) Name() string                          { return "rule_based" }
func (s *RuleBasedStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *RuleBasedStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *RuleBasedStrategy) Supports(in Input) bool { return isText(in) }

type ruleState int

const (
	ruleExpectQuestion ruleState = iota
	ruleInTitle
	ruleInOptions
	ruleAfterAnswer
)

func (s *RuleBasedStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	var questions []models.ImportQuestionData
	var current models.ImportQuestionData
	state := ruleExpectQuestion

	flush := func() error {
		if current.Title == "" || len(current.Options) < 2 || current.RawAnswer == "" {
			return fmt.Errorf("incomplete question %q", current.Title)
		}
		questions = append(questions, current)
		current = models.ImportQuestionData{}
		return nil
	}

	for _, line := range strings.Split(in.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch ClassifyLine(trimmed) {
		case LineQuestionStart:
			if state == ruleInTitle || state == ruleInOptions {
				return failure(s.Name(), started, "question start before answer line")
			}
			if state == ruleAfterAnswer {
				if err := flush(); err != nil {
					return failure(s.Name(), started, err.Error())
				}
			}
			current.Title = QuestionTitle(trimmed)
			state = ruleInTitle

		case LineOption:
			if state != ruleInTitle && state != ruleInOptions {
				return failure(s.Name(), started, "option line outside a question")
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
			state = ruleInOptions

		case LineAnswer:
			if state != ruleInOptions || len(current.Options) < 2 {
				return failure(s.Name(), started, "answer line before two options")
			}
			raw, _ := AnswerText(trimmed)
			current.RawAnswer = raw
			state = ruleAfterAnswer

		case LineExplanation:
			if state != ruleAfterAnswer {
				return failure(s.Name(), started, "explanation before answer line")
			}
			if text, ok := ExplanationText(trimmed); ok {
				current.Explanation = text
			}

		case LineDifficulty:
			if d, ok := DifficultyValue(trimmed); ok {
				current.Difficulty = d
			}

		case LineContinuation:
			switch state {
			case ruleInTitle:
				current.Title = strings.TrimSpace(current.Title + " " + trimmed)
			case ruleAfterAnswer:
				if current.Explanation != "" {
					current.Explanation = strings.TrimSpace(current.Explanation + " " + trimmed)
					continue
				}
				return failure(s.Name(), started, "unexpected continuation line")
			default:
				// Strict mode: stray prose anywhere else means the input is
				// not in this format.
				return failure(s.Name(), started, "unexpected continuation line")
			}
		}
	}

	if state == ruleAfterAnswer {
		if err := flush(); err != nil {
			return failure(s.Name(), started, err.Error())
		}
	} else if state != ruleExpectQuestion {
		return failure(s.Name(), started, "input ends mid-question")
	}

	if len(questions) == 0 {
		return failure(s.Name(), started, "no questions found")
	}
	return success(s.Name(), started, questions, 0.95)
}
