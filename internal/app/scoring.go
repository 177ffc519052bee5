package app

import "lms-service/internal/domain"

// Grade scores a submission against the first len(answers) questions of the
// bank, in stored order. Each element of answers holds the option indices the
// user selected for the matching question (possibly empty). The result is the
// number of correctly answered questions, always in [0, len(answers)].
func Grade(questions []domain.MCQ, answers [][]int) int {
	n := len(answers)
	if n > len(questions) {
		n = len(questions)
	}
	score := 0
	for i := 0; i < n; i++ {
		if answerCorrect(questions[i], answers[i]) {
			score++
		}
	}
	return score
}

// answerCorrect applies the per-question grading rule.
// Single-answer mode grades only the first selected index; extra selections
// are ignored rather than rejected. Multiple-answer mode requires exact set
// equality with the correct set, so partial credit is never awarded.
func answerCorrect(q domain.MCQ, selected []int) bool {
	if q.IsMultipleAnswer {
		return sameIndexSet(selected, q.CorrectOptions)
	}
	if len(selected) == 0 {
		return false
	}
	for _, correct := range q.CorrectOptions {
		if selected[0] == correct {
			return true
		}
	}
	return false
}

// sameIndexSet compares two index slices as sets, ignoring order and
// duplicates.
func sameIndexSet(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, idx := range a {
		set[idx] = struct{}{}
	}
	other := make(map[int]struct{}, len(b))
	for _, idx := range b {
		other[idx] = struct{}{}
	}
	if len(set) != len(other) {
		return false
	}
	for idx := range set {
		if _, ok := other[idx]; !ok {
			return false
		}
	}
	return true
}
