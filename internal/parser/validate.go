package parser

import (
	"fmt"
	"strings"

	"github.com/quizbank/backend/internal/models"
)

// User-facing validation messages. The import UI is Chinese-first, matching
// the question formats this pipeline accepts.
const (
	msgEmptyTitle    = "题目标题不能为空"
	msgTooFewOptions = "选项不足（至少需要2个）"
	msgEmptyOption   = "第%d个选项内容为空"
	msgBadAnswer     = "无法识别答案"
	msgAnswerRange   = "答案序号超出选项范围"
)

// ValidateQuestion checks the structural invariants on a candidate question
// and normalizes it in place: strings are trimmed and, when a raw answer is
// still unresolved, it is coerced to a zero-based index. Returns one
// human-readable message per failed check; an empty slice means valid.
func ValidateQuestion(q *models.ImportQuestionData, indexing models.AnswerIndexing) []string {
	var errs []string

	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		errs = append(errs, msgEmptyTitle)
	}

	for i := range q.Options {
		q.Options[i] = strings.TrimSpace(q.Options[i])
		if q.Options[i] == "" {
			errs = append(errs, fmt.Sprintf(msgEmptyOption, i+1))
		}
	}
	if len(q.Options) < 2 {
		errs = append(errs, msgTooFewOptions)
	}

	q.Explanation = strings.TrimSpace(q.Explanation)

	if q.RawAnswer != "" {
		idx, err := ResolveAnswer(q.RawAnswer, indexing)
		if err != nil {
			errs = append(errs, msgBadAnswer)
			return errs
		}
		q.CorrectAnswer = idx
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		errs = append(errs, msgAnswerRange)
	}

	return errs
}

// BuildPreview validates every candidate, keeping invalid ones visible so the
// user can fix them by hand instead of losing them silently.
func BuildPreview(questions []models.ImportQuestionData, indexing models.AnswerIndexing) []models.PreviewQuestion {
	preview := make([]models.PreviewQuestion, 0, len(questions))
	for _, q := range questions {
		errs := ValidateQuestion(&q, indexing)
		preview = append(preview, models.PreviewQuestion{
			Question: q,
			Valid:    len(errs) == 0,
			Errors:   errs,
		})
	}
	return preview
}
