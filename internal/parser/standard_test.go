package parser

import (
	"context"
	"reflect"
	"testing"

	"github.com/quizbank/backend/internal/models"
)

func textInput(text string) Input {
	return Input{Kind: models.InputText, Text: text}
}

func TestStandardBlockTwoQuestions(t *testing.T) {
	text := `1. 中国的首都是哪里？
A. 上海
B. 北京
C. 广州
D. 深圳
答案：B
解析：北京是中华人民共和国的首都。
难度：简单

2. 下列哪个是偶数？
A. 1
B. 3
C. 4
D. 7
答案：C`

	s := &StandardBlockStrategy{}
	result := s.Parse(context.Background(), textInput(text))

	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	if result.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", result.Confidence)
	}
	if result.Metadata.DetectedFormat != "arabic_numbered" {
		t.Errorf("detected format = %q", result.Metadata.DetectedFormat)
	}

	q := result.Questions[0]
	if q.Title != "中国的首都是哪里？" {
		t.Errorf("title = %q", q.Title)
	}
	if !reflect.DeepEqual(q.Options, []string{"上海", "北京", "广州", "深圳"}) {
		t.Errorf("options = %v", q.Options)
	}
	if q.RawAnswer != "B" {
		t.Errorf("raw answer = %q", q.RawAnswer)
	}
	if q.Explanation != "北京是中华人民共和国的首都。" {
		t.Errorf("explanation = %q", q.Explanation)
	}
	if q.Difficulty != models.DifficultyEasy {
		t.Errorf("difficulty = %q", q.Difficulty)
	}
}

func TestStandardBlockInlineOptions(t *testing.T) {
	text := "1. 2+2等于几？ A. 3 B. 4 C. 5\n答案：B"

	result := (&StandardBlockStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	q := result.Questions[0]
	if q.Title != "2+2等于几？" {
		t.Errorf("title = %q", q.Title)
	}
	if !reflect.DeepEqual(q.Options, []string{"3", "4", "5"}) {
		t.Errorf("options = %v", q.Options)
	}
}

func TestStandardBlockWrappedOptionLines(t *testing.T) {
	text := `1. 下列关于网络协议的说法哪项正确？
A. TCP 是一种无连接的
传输协议
B. UDP 保证报文按序到达
答案：A`

	result := (&StandardBlockStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	q := result.Questions[0]
	if q.Options[0] != "TCP 是一种无连接的 传输协议" {
		t.Errorf("wrapped option should merge, got %q", q.Options[0])
	}
}

func TestStandardBlockPartialFailure(t *testing.T) {
	// Second block has no answer line; the first must survive.
	text := `1. 好的题目
A. 甲
B. 乙
答案：A

2. 坏的题目
A. 丙
B. 丁`

	result := (&StandardBlockStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(result.Questions))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 block error, got %v", result.Errors)
	}
}

func TestStandardBlockAllBlocksFail(t *testing.T) {
	result := (&StandardBlockStrategy{}).Parse(context.Background(), textInput("这里没有任何题目结构，只有普通文字。"))
	if result.Success {
		t.Fatal("expected failure on structureless text")
	}
}

func TestFormatStandardRoundTrip(t *testing.T) {
	original := []models.ImportQuestionData{
		{
			Title:         "中国的首都是哪里？",
			Options:       []string{"上海", "北京", "广州"},
			CorrectAnswer: 1,
			Explanation:   "北京是首都。",
			Difficulty:    models.DifficultyEasy,
		},
		{
			Title:         "下列哪个是偶数？",
			Options:       []string{"1", "4"},
			CorrectAnswer: 1,
		},
	}

	text := FormatStandard(original)
	result := (&StandardBlockStrategy{}).Parse(context.Background(), textInput(text))
	if !result.Success {
		t.Fatalf("re-parse failed: %v", result.Errors)
	}
	if len(result.Questions) != len(original) {
		t.Fatalf("expected %d questions, got %d", len(original), len(result.Questions))
	}

	NormalizeAnswers(result.Questions, models.OneBased)
	for i, q := range result.Questions {
		if q.Title != original[i].Title {
			t.Errorf("question %d title = %q, want %q", i, q.Title, original[i].Title)
		}
		if !reflect.DeepEqual(q.Options, original[i].Options) {
			t.Errorf("question %d options = %v, want %v", i, q.Options, original[i].Options)
		}
		if q.CorrectAnswer != original[i].CorrectAnswer {
			t.Errorf("question %d answer = %d, want %d", i, q.CorrectAnswer, original[i].CorrectAnswer)
		}
		if q.Explanation != original[i].Explanation {
			t.Errorf("question %d explanation = %q, want %q", i, q.Explanation, original[i].Explanation)
		}
		if q.Difficulty != original[i].Difficulty {
			t.Errorf("question %d difficulty = %q, want %q", i, q.Difficulty, original[i].Difficulty)
		}
	}
}
