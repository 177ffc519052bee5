package app

import (
	"testing"

	"lms-service/internal/domain"
)

func TestGradeSingleAnswer(t *testing.T) {
	questions := []domain.MCQ{
		{Prompt: "q", Options: []string{"a", "b", "c"}, CorrectOptions: []int{1}},
	}

	if got := Grade(questions, [][]int{{1}}); got != 1 {
		t.Fatalf("correct index should score 1, got %d", got)
	}
	if got := Grade(questions, [][]int{{0}}); got != 0 {
		t.Fatalf("wrong index should score 0, got %d", got)
	}
	if got := Grade(questions, [][]int{{}}); got != 0 {
		t.Fatalf("empty selection should score 0, got %d", got)
	}
	// Only the first selection counts in single-answer mode.
	if got := Grade(questions, [][]int{{1, 0}}); got != 1 {
		t.Fatalf("extra selections should be ignored, got %d", got)
	}
	if got := Grade(questions, [][]int{{0, 1}}); got != 0 {
		t.Fatalf("wrong first selection should score 0, got %d", got)
	}
}

func TestGradeMultipleAnswerRequiresExactSet(t *testing.T) {
	questions := []domain.MCQ{
		{Prompt: "q", Options: []string{"a", "b", "c"}, CorrectOptions: []int{0, 2}, IsMultipleAnswer: true},
	}

	cases := []struct {
		name     string
		selected []int
		want     int
	}{
		{"exact match", []int{0, 2}, 1},
		{"order independent", []int{2, 0}, 1},
		{"subset", []int{0}, 0},
		{"superset", []int{0, 1, 2}, 0},
		{"disjoint", []int{1}, 0},
		{"empty", []int{}, 0},
	}
	for _, tc := range cases {
		if got := Grade(questions, [][]int{tc.selected}); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestGradePrefixSelection(t *testing.T) {
	questions := []domain.MCQ{
		{Prompt: "q1", Options: []string{"a", "b"}, CorrectOptions: []int{1}},
		{Prompt: "q2", Options: []string{"a", "b", "c"}, CorrectOptions: []int{0, 2}, IsMultipleAnswer: true},
		{Prompt: "q3", Options: []string{"a", "b"}, CorrectOptions: []int{0}},
	}

	// Only the first two questions are graded; q3 is not attempted.
	if got := Grade(questions, [][]int{{1}, {0, 2}}); got != 2 {
		t.Fatalf("expected 2/2 on prefix, got %d", got)
	}
	if got := Grade(questions, [][]int{{0}, {0}}); got != 0 {
		t.Fatalf("expected 0/2, got %d", got)
	}
	if got := Grade(questions, [][]int{{1}, {0}}); got != 1 {
		t.Fatalf("expected 1/2 with failed set match, got %d", got)
	}
}

func TestGradeBounds(t *testing.T) {
	if got := Grade(nil, nil); got != 0 {
		t.Fatalf("zero questions should score 0, got %d", got)
	}

	questions := []domain.MCQ{
		{Prompt: "q1", Options: []string{"a", "b"}, CorrectOptions: []int{0}},
	}
	// More answers than questions: extras are ignored, never scored.
	if got := Grade(questions, [][]int{{0}, {1}, {0}}); got != 1 {
		t.Fatalf("expected 1 with surplus answers, got %d", got)
	}
}
