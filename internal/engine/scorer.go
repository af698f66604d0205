package engine

import "github.com/stemsi/exstem-cbt/internal/model"

// ScoreQuestion returns the points awarded for one answer. Points are all or nothing.
func ScoreQuestion(q model.Question, a model.Answer) int {
	if a == nil {
		return 0
	}
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if v, ok := a.(model.SingleIndex); ok && int(v) == q.CorrectIndex {
			return q.Points
		}
	case model.QuestionTypeMultiChoice:
		if v, ok := a.(model.IndexSet); ok && len(v) > 0 && v.Equal(q.CorrectIndices) {
			return q.Points
		}
	}
	// Essays are graded manually.
	return 0
}

// Score sums ScoreQuestion over the randomized question set. answers is keyed
// by position in questions; missing positions are unanswered.
func Score(questions []model.Question, answers map[int]model.Answer) int {
	total := 0
	for i, q := range questions {
		total += ScoreQuestion(q, answers[i])
	}
	return total
}

// MaxScore is the score of a perfect attempt, essays excluded.
func MaxScore(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		if q.Type.IsChoice() {
			total += q.Points
		}
	}
	return total
}
