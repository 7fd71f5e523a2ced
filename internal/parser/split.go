package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// SmartSplitStrategy is the last local fallback before the AI parser: it
// tries several separator heuristics that the block splitter does not know
// about, and parses every resulting chunk independently, so one bad chunk
// no longer poisons the rest of the input.
type SmartSplitStrategy struct{}

func (s *SmartSplitStrategy) Name() string                          { return "smart_split" }
func (s *SmartSplitStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *SmartSplitStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *SmartSplitStrategy) Supports(in Input) bool { return isText(in) }

// Separator heuristics, most explicit first.
var smartSeparators = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*[-—=*]{3,}\s*$`),   // horizontal rules
	regexp.MustCompile(`(?m)^\s*【[^】]{1,20}】`),      // 【第一部分】-style headers
	regexp.MustCompile(`\n[ \t]*\n[ \t]*\n*`),      // blank-line runs
	regexp.MustCompile(`(?m)^\s*(?:题目|问题)\s*[:：]`), // question keyword lines
}

func (s *SmartSplitStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	for _, sep := range smartSeparators {
		chunks := splitKeepDelimiter(in.Text, sep)
		if len(chunks) < 2 {
			continue
		}

		var questions []models.ImportQuestionData
		var errs []string
		for i, chunk := range chunks {
			q, err := parseQuestionBlock(chunk)
			if err != nil {
				errs = append(errs, fmt.Sprintf("chunk %d: %v", i+1, err))
				continue
			}
			questions = append(questions, q)
		}
		if len(questions) > 0 {
			result := success(s.Name(), started, questions, 0.5)
			result.Errors = errs
			return result
		}
	}

	// No separator produced anything. Last try: the whole text as one block.
	if q, err := parseQuestionBlock(in.Text); err == nil {
		return success(s.Name(), started, []models.ImportQuestionData{q}, 0.5)
	}

	return failure(s.Name(), started, "no separator heuristic produced questions")
}

// splitKeepDelimiter splits text at separator matches. Header-style
// separators (【】, 题目：) stay attached to the chunk they introduce; pure
// dividers (rules, blank runs) are dropped.
func splitKeepDelimiter(text string, sep *regexp.Regexp) []string {
	locs := sep.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var chunks []string
	prev := 0
	for _, loc := range locs {
		if part := strings.TrimSpace(text[prev:loc[0]]); part != "" {
			chunks = append(chunks, part)
		}
		if isPureDivider(text[loc[0]:loc[1]]) {
			prev = loc[1] // drop the divider
		} else {
			prev = loc[0] // keep the header with its chunk
		}
	}
	if part := strings.TrimSpace(text[prev:]); part != "" {
		chunks = append(chunks, part)
	}
	return chunks
}

func isPureDivider(s string) bool {
	return strings.Trim(s, "-—=* \t\r\n") == ""
}
