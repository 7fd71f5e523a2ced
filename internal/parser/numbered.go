package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// NumberedStrategy splits on numeric markers wherever they appear and is
// deliberately loose about the inside of each chunk: option markers, answer
// and explanation keywords are searched anywhere, not only at line starts.
// Catches text whose line structure was destroyed by copy/paste.
type NumberedStrategy struct{}

func (s *NumberedStrategy) Name() string                          { return "numbered" }
func (s *NumberedStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *NumberedStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *NumberedStrategy) Supports(in Input) bool { return isText(in) }

var (
	reNumberMarker = regexp.MustCompile(`(?m)(?:^|\n)\s*\d{1,3}\s*[.、．)）]`)
	reLooseAnswer  = regexp.MustCompile(`(?:正确答案|答案|答)\s*[:：是为]\s*([A-Ha-hＡ-Ｈ0-9一二三四五六七八]+)`)
	reLooseExplain = regexp.MustCompile(`(?:解析|解释|说明|解答)\s*[:：]\s*`)
)

func (s *NumberedStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	locs := reNumberMarker.FindAllStringIndex(in.Text, -1)
	if len(locs) == 0 {
		return failure(s.Name(), started, "no numeric markers")
	}

	var chunks []string
	for i, loc := range locs {
		end := len(in.Text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := strings.TrimSpace(in.Text[loc[0]:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	var questions []models.ImportQuestionData
	var errs []string
	for i, chunk := range chunks {
		q, err := parseLooseChunk(chunk)
		if err != nil {
			errs = append(errs, fmt.Sprintf("chunk %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return failure(s.Name(), started, errs...)
	}

	result := success(s.Name(), started, questions, 0.7)
	result.Errors = errs
	return result
}

// parseLooseChunk extracts a question from one numbered chunk without relying
// on line boundaries.
func parseLooseChunk(chunk string) (models.ImportQuestionData, error) {
	var q models.ImportQuestionData

	body := chunk
	// Peel the explanation off the tail first so it does not pollute options.
	if loc := reLooseExplain.FindStringIndex(body); loc != nil {
		q.Explanation = strings.TrimSpace(body[loc[1]:])
		body = body[:loc[0]]
	}
	if m := reLooseAnswer.FindStringSubmatchIndex(body); m != nil {
		q.RawAnswer = strings.TrimSpace(body[m[2]:m[3]])
		body = body[:m[0]]
	}

	optLocs := reInlineOption.FindAllStringSubmatchIndex(body, -1)
	if len(optLocs) < 2 {
		return q, fmt.Errorf("found %d option markers, need at least 2", len(optLocs))
	}

	title := QuestionTitle(strings.TrimSpace(body[:optLocs[0][0]]))
	q.Title = strings.Join(strings.Fields(title), " ")

	for i, loc := range optLocs {
		end := len(body)
		if i+1 < len(optLocs) {
			end = optLocs[i+1][0]
		}
		text := strings.TrimSpace(body[loc[1]:end])
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			q.Options = append(q.Options, text)
		}
	}

	if q.Title == "" {
		return q, fmt.Errorf("chunk has no title")
	}
	if len(q.Options) < 2 {
		return q, fmt.Errorf("chunk has %d options, need at least 2", len(q.Options))
	}
	if q.RawAnswer == "" {
		return q, fmt.Errorf("chunk has no answer")
	}
	return q, nil
}
