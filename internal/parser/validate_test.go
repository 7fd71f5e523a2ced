package parser

import (
	"testing"

	"github.com/quizbank/backend/internal/models"
)

func TestValidateQuestionMessages(t *testing.T) {
	tests := []struct {
		name    string
		q       models.ImportQuestionData
		wantMsg string
	}{
		{
			"empty title",
			models.ImportQuestionData{Options: []string{"a", "b"}},
			"题目标题不能为空",
		},
		{
			"too few options",
			models.ImportQuestionData{Title: "t", Options: []string{"only"}},
			"选项不足（至少需要2个）",
		},
		{
			"empty option",
			models.ImportQuestionData{Title: "t", Options: []string{"a", "  "}},
			"第2个选项内容为空",
		},
		{
			"unresolvable answer",
			models.ImportQuestionData{Title: "t", Options: []string{"a", "b"}, RawAnswer: "乱码"},
			"无法识别答案",
		},
		{
			"answer out of range",
			models.ImportQuestionData{Title: "t", Options: []string{"a", "b"}, CorrectAnswer: 5},
			"答案序号超出选项范围",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateQuestion(&tt.q, models.OneBased)
			for _, e := range errs {
				if e == tt.wantMsg {
					return
				}
			}
			t.Errorf("errors %v missing %q", errs, tt.wantMsg)
		})
	}
}

func TestValidateQuestionNormalizes(t *testing.T) {
	q := models.ImportQuestionData{
		Title:     "  什么是对的？  ",
		Options:   []string{" 甲 ", "乙"},
		RawAnswer: "B",
	}
	if errs := ValidateQuestion(&q, models.OneBased); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Title != "什么是对的？" {
		t.Errorf("title not trimmed: %q", q.Title)
	}
	if q.Options[0] != "甲" {
		t.Errorf("option not trimmed: %q", q.Options[0])
	}
	if q.CorrectAnswer != 1 {
		t.Errorf("raw answer not resolved: %d", q.CorrectAnswer)
	}
}

func TestBuildPreviewKeepsInvalid(t *testing.T) {
	questions := []models.ImportQuestionData{
		{Title: "好题", Options: []string{"a", "b"}, RawAnswer: "A"},
		{Title: "", Options: []string{"a"}},
	}

	preview := BuildPreview(questions, models.OneBased)
	if len(preview) != 2 {
		t.Fatalf("expected 2 preview entries, got %d", len(preview))
	}
	if !preview[0].Valid || len(preview[0].Errors) != 0 {
		t.Errorf("first entry should be valid: %v", preview[0].Errors)
	}
	if preview[1].Valid {
		t.Error("second entry should be invalid")
	}
	if len(preview[1].Errors) == 0 {
		t.Error("invalid entry should carry its messages")
	}
}
