package parser

import (
	"testing"

	"github.com/quizbank/backend/internal/models"
)

func TestResolveAnswer(t *testing.T) {
	tests := []struct {
		raw      string
		indexing models.AnswerIndexing
		want     int
		wantErr  bool
	}{
		{"A", models.OneBased, 0, false},
		{"c", models.OneBased, 2, false},
		{"Ｂ", models.OneBased, 1, false},
		{"D。", models.OneBased, 3, false},
		// Bare numbers follow the declaring strategy's convention.
		{"2", models.OneBased, 1, false},
		{"2", models.ZeroBased, 2, false},
		{"三", models.OneBased, 2, false},
		{"", models.OneBased, 0, true},
		{"XYZ", models.OneBased, 0, true},
	}

	for _, tt := range tests {
		got, err := ResolveAnswer(tt.raw, tt.indexing)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveAnswer(%q) expected error, got %d", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveAnswer(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveAnswer(%q, %v) = %d, want %d", tt.raw, tt.indexing, got, tt.want)
		}
	}
}

func TestNormalizeAnswersClearsResolvedRaw(t *testing.T) {
	questions := []models.ImportQuestionData{
		{Title: "t1", Options: []string{"a", "b", "c"}, RawAnswer: "B"},
		{Title: "t2", Options: []string{"a", "b"}, RawAnswer: "2"},
		{Title: "t3", Options: []string{"a", "b"}, RawAnswer: "乱码"},
	}

	NormalizeAnswers(questions, models.OneBased)

	if questions[0].CorrectAnswer != 1 || questions[0].RawAnswer != "" {
		t.Errorf("letter answer: got index %d, raw %q", questions[0].CorrectAnswer, questions[0].RawAnswer)
	}
	if questions[1].CorrectAnswer != 1 || questions[1].RawAnswer != "" {
		t.Errorf("one-based number: got index %d, raw %q", questions[1].CorrectAnswer, questions[1].RawAnswer)
	}
	// Unresolvable answers keep the raw token for validation to report.
	if questions[2].RawAnswer != "乱码" {
		t.Errorf("unresolvable answer should keep raw token, got %q", questions[2].RawAnswer)
	}
}
