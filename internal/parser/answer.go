package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quizbank/backend/internal/models"
)

var chineseNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4,
	"五": 5, "六": 6, "七": 7, "八": 8,
}

// ResolveAnswer turns a raw answer token into a zero-based option index.
// Letters map by alphabet offset regardless of indexing convention; bare
// numbers are interpreted per the declaring strategy's convention.
func ResolveAnswer(raw string, indexing models.AnswerIndexing) (int, error) {
	token := strings.TrimSpace(raw)
	token = strings.Trim(token, "。.，, ")
	if token == "" {
		return 0, fmt.Errorf("empty answer")
	}

	if len([]rune(token)) == 1 {
		letter := normalizeLetter(token)
		r := []rune(letter)[0]
		if r >= 'A' && r <= 'H' {
			return int(r - 'A'), nil
		}
		if n, ok := chineseNumerals[token]; ok {
			if indexing == models.OneBased {
				return n - 1, nil
			}
			return n, nil
		}
	}

	if n, err := strconv.Atoi(token); err == nil {
		if indexing == models.OneBased {
			return n - 1, nil
		}
		return n, nil
	}

	return 0, fmt.Errorf("unrecognized answer %q", raw)
}

// NormalizeAnswers resolves every question's RawAnswer in place using the
// given strategy convention, clearing RawAnswer once resolved. Questions
// whose answers cannot be resolved keep their raw token so validation can
// report them individually later.
func NormalizeAnswers(questions []models.ImportQuestionData, indexing models.AnswerIndexing) {
	for i := range questions {
		if questions[i].RawAnswer == "" {
			continue
		}
		if idx, err := ResolveAnswer(questions[i].RawAnswer, indexing); err == nil {
			questions[i].CorrectAnswer = idx
			questions[i].RawAnswer = ""
		}
	}
}
