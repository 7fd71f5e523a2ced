package parser

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

// ── Rule-based ─────────────────────────────────────────────

func TestRuleBasedAcceptsStrictInput(t *testing.T) {
	text := `1. 第一题的题目
A. 甲
B. 乙
答案：A
解析：就是甲
2. 第二题的题目
A. 丙
B. 丁
答案：B`

	result := (&RuleBasedStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	if result.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", result.Confidence)
	}
	if result.Questions[0].Explanation != "就是甲" {
		t.Errorf("explanation = %q", result.Questions[0].Explanation)
	}
}

func TestRuleBasedRejectsStructuralViolations(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"stray prose between options", "1. 题目\nA. 甲\n这是一句无关的话\nB. 乙\n答案：A"},
		{"question start mid-question", "1. 题目一\nA. 甲\n2. 题目二\nB. 乙\n答案：A"},
		{"answer before options", "1. 题目\n答案：A\nA. 甲\nB. 乙"},
		{"option before any question", "A. 甲\nB. 乙\n答案：A"},
		{"ends mid-question", "1. 题目\nA. 甲\nB. 乙"},
	}

	s := &RuleBasedStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := s.Parse(context.Background(), textInput(tt.text)); result.Success {
				t.Errorf("expected strict rejection, got %d questions", len(result.Questions))
			}
		})
	}
}

// ── Numbered ───────────────────────────────────────────────

func TestNumberedParsesMashedText(t *testing.T) {
	// Line structure destroyed inside each question by copy/paste.
	text := "1. 2+2等于几？ A. 3 B. 4 C. 5 答案：B\n2. 1+1等于几？ A. 1 B. 2 答案：B"

	result := (&NumberedStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	q := result.Questions[0]
	if q.Title != "2+2等于几？" {
		t.Errorf("title = %q", q.Title)
	}
	if !reflect.DeepEqual(q.Options, []string{"3", "4", "5"}) {
		t.Errorf("options = %v", q.Options)
	}
	if q.RawAnswer != "B" {
		t.Errorf("raw answer = %q", q.RawAnswer)
	}
}

func TestNumberedPeelsExplanationTail(t *testing.T) {
	text := "1. 题目在此 A. 甲 B. 乙 答案：A 解析：因为甲是对的"

	result := (&NumberedStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	q := result.Questions[0]
	if q.Explanation != "因为甲是对的" {
		t.Errorf("explanation = %q", q.Explanation)
	}
	// The explanation must not leak into the last option.
	if strings.Contains(q.Options[len(q.Options)-1], "解析") {
		t.Errorf("explanation leaked into options: %v", q.Options)
	}
}

func TestNumberedNoMarkers(t *testing.T) {
	result := (&NumberedStrategy{}).Parse(context.Background(), textInput("完全没有编号的文字"))
	if result.Success {
		t.Fatal("expected failure without numeric markers")
	}
}

// ── Sequential ─────────────────────────────────────────────

func TestSequentialUnnumberedTitles(t *testing.T) {
	text := `中国的首都是哪里
A. 上海
B. 北京
答案：B
最大的海洋是哪个
A. 大西洋
B. 太平洋
答案：B`

	result := (&SequentialStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	if result.Questions[1].Title != "最大的海洋是哪个" {
		t.Errorf("second title = %q", result.Questions[1].Title)
	}
	if result.Confidence != 0.6 {
		t.Errorf("expected confidence 0.6, got %v", result.Confidence)
	}
}

func TestSequentialDropsIncompleteQuestions(t *testing.T) {
	text := `第一题的题目
A. 甲
B. 乙
答案：A
残缺的题目
A. 只有一个选项
答案：A`

	result := (&SequentialStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(result.Questions))
	}
	if len(result.Errors) == 0 {
		t.Error("dropped question should be reported in errors")
	}
}

// ── Word / PDF cleanup ─────────────────────────────────────

func TestWordCleanupSupportsOnlyDirtyText(t *testing.T) {
	s := &WordCleanupStrategy{}
	if s.Supports(textInput("1. 干净的文字\nA. 甲\nB. 乙\n答案：A")) {
		t.Error("clean text should not trigger word cleanup")
	}
	if !s.Supports(textInput("• 1. 有项目符号的文字")) {
		t.Error("bullet glyphs should trigger word cleanup")
	}
}

func TestWordCleanupStripsGlyphs(t *testing.T) {
	text := "1. 中国的首都是哪里？\n• A. 上海\n• B. 北京\n答案：B"

	s := &WordCleanupStrategy{}
	result := s.Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if result.Metadata.Strategy != "word_cleanup" {
		t.Errorf("strategy = %q", result.Metadata.Strategy)
	}
	if result.Confidence != 0.75 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	q := result.Questions[0]
	if !reflect.DeepEqual(q.Options, []string{"上海", "北京"}) {
		t.Errorf("options = %v", q.Options)
	}
}

func TestPDFCleanupJoinsWrapsAndDropsPageNumbers(t *testing.T) {
	text := "1. 下列关于协议的说\n法哪项正确？\nA. 甲说法\nB. 乙说法\n答案：A\n- 3 -\n"

	s := &PDFCleanupStrategy{}
	if !s.Supports(textInput(text)) {
		t.Fatal("page number should trigger pdf cleanup")
	}
	result := s.Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	q := result.Questions[0]
	if q.Title != "下列关于协议的说法哪项正确？" {
		t.Errorf("wrapped title should join without a space, got %q", q.Title)
	}
}

// ── Smart split ────────────────────────────────────────────

func TestSmartSplitHeaderSections(t *testing.T) {
	text := `【第一题】
中国的首都是哪里
A. 上海
B. 北京
答案：B
【第二题】
最大的行星是哪个
A. 地球
B. 木星
答案：B`

	result := (&SmartSplitStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v", result.Confidence)
	}
}

func TestSmartSplitHorizontalRules(t *testing.T) {
	text := `什么是最大的数
A. 一
B. 二
答案：B
----
什么是最小的数
A. 零
B. 一
答案：A`

	result := (&SmartSplitStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
}
