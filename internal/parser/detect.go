package parser

import (
	"regexp"
	"strings"

	"github.com/quizbank/backend/internal/models"
)

// LineKind classifies a single line of quiz text.
type LineKind int

const (
	LineContinuation LineKind = iota
	LineQuestionStart
	LineOption
	LineAnswer
	LineExplanation
	LineDifficulty
)

// Pattern families for the formats seen in pasted/extracted quiz text.
// Both half-width and full-width punctuation appear in real input.
var (
	reQuestionNumbered = regexp.MustCompile(`^\s*(\d{1,3})\s*[.、．]\s*(.*)$`)
	reQuestionParen    = regexp.MustCompile(`^\s*[（(]\s*(\d{1,3})\s*[)）]\s*[.、．]?\s*(.*)$`)
	reQuestionTagged   = regexp.MustCompile(`^\s*第\s*(\d{1,3})\s*题\s*[.、．:：]?\s*(.*)$`)

	reOptionParen  = regexp.MustCompile(`^\s*[（(]\s*([A-Ha-hＡ-Ｈ])\s*[)）]\s*(.*)$`)
	reOptionMarked = regexp.MustCompile(`^\s*([A-Ha-hＡ-Ｈ])\s*[.、．)）:：]\s*(.*)$`)

	reAnswer      = regexp.MustCompile(`^\s*(?:正确答案|答案|答)\s*[:：是为]\s*(.*)$`)
	reExplanation = regexp.MustCompile(`^\s*(?:解析|解释|说明|解答)\s*[:：]?\s*(.*)$`)
	reDifficulty  = regexp.MustCompile(`^\s*难度\s*[:：]\s*(简单|中等|困难|easy|medium|hard)\s*$`)

	// Option markers embedded mid-line, e.g. "A. 3 B. 4 C. 5".
	reInlineOption = regexp.MustCompile(`(?:^|\s)[（(]?([A-HＡ-Ｈ])[)）]?\s*[.、．)）:：]\s*`)
)

// ClassifyLine assigns a line its kind. Checks run in a fixed priority order
/// and the first match wins: option > answer > explanation > difficulty >
// question-start > continuation. An answer-keyword line is never allowed to
// fall through to continuation.
func ClassifyLine(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineContinuation
	}
	switch {
	case reOptionParen.MatchString(trimmed), reOptionMarked.MatchString(trimmed):
		return LineOption
	case reAnswer.MatchString(trimmed):
		return LineAnswer
	case reExplanation.MatchString(trimmed):
		return LineExplanation
	case reDifficulty.MatchString(trimmed):
		return LineDifficulty
	case reQuestionNumbered.MatchString(trimmed),
		reQuestionParen.MatchString(trimmed),
		reQuestionTagged.MatchString(trimmed):
		return LineQuestionStart
	default:
		return LineContinuation
	}
}

// OptionText extracts the letter and body of an option line.
func OptionText(line string) (letter string, text string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if m := reOptionParen.FindStringSubmatch(trimmed); m != nil {
		return normalizeLetter(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := reOptionMarked.FindStringSubmatch(trimmed); m != nil {
		return normalizeLetter(m[1]), strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// AnswerText extracts the raw answer token from an answer line.
func AnswerText(line string) (string, bool) {
	m := reAnswer.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ExplanationText extracts the body of an explanation line.
func ExplanationText(line string) (string, bool) {
	m := reExplanation.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// DifficultyValue maps a difficulty line onto the difficulty enum.
func DifficultyValue(line string) (models.Difficulty, bool) {
	m := reDifficulty.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	switch m[1] {
	case "简单", "easy":
		return models.DifficultyEasy, true
	case "中等", "medium":
		return models.DifficultyMedium, true
	case "困难", "hard":
		return models.DifficultyHard, true
	}
	return "", false
}

// QuestionTitle strips the numbering prefix from a question-start line.
// Returns the line unchanged when no numbering is present.
func QuestionTitle(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, re := range []*regexp.Regexp{reQuestionNumbered, reQuestionParen, reQuestionTagged} {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return trimmed
}

// SplitInlineOptions splits a line carrying several option markers, e.g.
// "A. 3 B. 4 C. 5", into individual option lines. Returns nil when fewer
// than two markers are found.
func SplitInlineOptions(line string) []string {
	locs := reInlineOption.FindAllStringSubmatchIndex(line, -1)
	if len(locs) < 2 {
		return nil
	}
	var parts []string
	for i, loc := range locs {
		end := len(line)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		// loc[2]:loc[3] is the letter capture; keep marker plus body.
		letter := normalizeLetter(line[loc[2]:loc[3]])
		body := strings.TrimSpace(line[loc[1]:end])
		if body == "" {
			continue
		}
		parts = append(parts, letter+". "+body)
	}
	if len(parts) < 2 {
		return nil
	}
	return parts
}

// normalizeLetter folds full-width and lowercase letters to upper-case ASCII.
func normalizeLetter(s string) string {
	r := []rune(s)[0]
	if r >= 'Ａ' && r <= 'Ｈ' {
		r = 'A' + (r - 'Ａ')
	}
	if r >= 'a' && r <= 'h' {
		r = 'A' + (r - 'a')
	}
	return string(r)
}
