package parser

import (
	"reflect"
	"testing"

	"github.com/quizbank/backend/internal/models"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"1. 下列哪项正确？", LineQuestionStart},
		{"12、关于并发的说法", LineQuestionStart},
		{"（3）这是带括号的题目", LineQuestionStart},
		{"第5题：这是标签式题目", LineQuestionStart},
		{"A. 第一个选项", LineOption},
		{"B、第二个选项", LineOption},
		{"（C）括号选项", LineOption},
		{"Ｄ．全角选项", LineOption},
		{"c) 小写选项", LineOption},
		{"答案：B", LineAnswer},
		{"正确答案：A", LineAnswer},
		{"答：3", LineAnswer},
		{"解析：因为如此", LineExplanation},
		{"解释：同上", LineExplanation},
		{"难度：中等", LineDifficulty},
		{"难度：hard", LineDifficulty},
		{"这只是普通的一行文字", LineContinuation},
		{"", LineContinuation},
		{"   ", LineContinuation},
		// An answer keyword wins over a loose question reading.
		{"答案是：C", LineAnswer},
	}

	for _, tt := range tests {
		if got := ClassifyLine(tt.line); got != tt.want {
			t.Errorf("ClassifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestOptionText(t *testing.T) {
	tests := []struct {
		line       string
		wantLetter string
		wantText   string
	}{
		{"A. 第一项", "A", "第一项"},
		{"b、第二项", "B", "第二项"},
		{"（C）第三项", "C", "第三项"},
		{"Ｄ．第四项", "D", "第四项"},
	}
	for _, tt := range tests {
		letter, text, ok := OptionText(tt.line)
		if !ok || letter != tt.wantLetter || text != tt.wantText {
			t.Errorf("OptionText(%q) = (%q, %q, %v), want (%q, %q, true)",
				tt.line, letter, text, ok, tt.wantLetter, tt.wantText)
		}
	}

	if _, _, ok := OptionText("普通文字"); ok {
		t.Error("plain text should not parse as an option")
	}
}

func TestAnswerText(t *testing.T) {
	raw, ok := AnswerText("答案：B")
	if !ok || raw != "B" {
		t.Errorf("AnswerText = (%q, %v), want (B, true)", raw, ok)
	}
	raw, ok = AnswerText("正确答案是 2")
	if !ok || raw != "2" {
		t.Errorf("AnswerText = (%q, %v), want (2, true)", raw, ok)
	}
}

func TestDifficultyValue(t *testing.T) {
	tests := []struct {
		line string
		want models.Difficulty
	}{
		{"难度：简单", models.DifficultyEasy},
		{"难度：中等", models.DifficultyMedium},
		{"难度：hard", models.DifficultyHard},
	}
	for _, tt := range tests {
		got, ok := DifficultyValue(tt.line)
		if !ok || got != tt.want {
			t.Errorf("DifficultyValue(%q) = (%q, %v), want %q", tt.line, got, ok, tt.want)
		}
	}
}

func TestQuestionTitle(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"1. 题目内容", "题目内容"},
		{"（12）带括号的题目", "带括号的题目"},
		{"第3题：标签式题目", "标签式题目"},
		{"没有编号的标题", "没有编号的标题"},
	}
	for _, tt := range tests {
		if got := QuestionTitle(tt.line); got != tt.want {
			t.Errorf("QuestionTitle(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestSplitInlineOptions(t *testing.T) {
	got := SplitInlineOptions("A. 3 B. 4 C. 5 D. 6")
	want := []string{"A. 3", "B. 4", "C. 5", "D. 6"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitInlineOptions = %v, want %v", got, want)
	}

	if got := SplitInlineOptions("A. 只有一个标记"); got != nil {
		t.Errorf("single marker should not split, got %v", got)
	}
	if got := SplitInlineOptions("没有任何标记的句子"); got != nil {
		t.Errorf("no markers should not split, got %v", got)
	}
}
