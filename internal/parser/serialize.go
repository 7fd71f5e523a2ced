package parser

import (
	"fmt"
	"strings"

	"github.com/quizbank/backend/internal/models"
)

var difficultyLabels = map[models.Difficulty]string{
	models.DifficultyEasy:   "简单",
	models.DifficultyMedium: "中等",
	models.DifficultyHard:   "困难",
}

// FormatStandard serializes questions back into the canonical text layout
// the standard block parser accepts:
//
//	1. 题目
//	A. 选项
//	B. 选项
//	答案：B
//	解析：……
//
// Re-parsing the output reproduces the input data exactly.
func FormatStandard(questions []models.ImportQuestionData) string {
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Title)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "%c. %s\n", 'A'+j, opt)
		}
		fmt.Fprintf(&b, "答案：%c\n", 'A'+q.CorrectAnswer)
		if q.Explanation != "" {
			fmt.Fprintf(&b, "解析：%s\n", q.Explanation)
		}
		if label, ok := difficultyLabels[q.Difficulty]; ok {
			fmt.Fprintf(&b, "难度：%s\n", label)
		}
	}
	return b.String()
}
