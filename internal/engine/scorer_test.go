package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stemsi/exstem-cbt/internal/model"
)

func TestScoreQuestion(t *testing.T) {
	single := model.Question{Type: model.QuestionTypeSingleChoice, Options: []string{"a", "b", "c"}, CorrectIndex: 1, Points: 10}
	multi := model.Question{Type: model.QuestionTypeMultiChoice, Options: []string{"a", "b", "c", "d"}, CorrectIndices: []int{0, 2}, Points: 5}
	essay := model.Question{Type: model.QuestionTypeEssay, Points: 20}

	tests := []struct {
		name     string
		question model.Question
		answer   model.Answer
		want     int
	}{
		{"single correct", single, model.SingleIndex(1), 10},
		{"single wrong", single, model.SingleIndex(0), 0},
		{"single unanswered", single, nil, 0},
		{"single given a set", single, model.NewIndexSet(1), 0},
		{"multi exact", multi, model.NewIndexSet(2, 0), 5},
		{"multi subset", multi, model.NewIndexSet(0), 0},
		{"multi superset", multi, model.NewIndexSet(0, 1, 2), 0},
		{"multi empty set", multi, model.IndexSet{}, 0},
		{"multi unanswered", multi, nil, 0},
		{"essay answered", essay, model.Text("long answer"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreQuestion(tt.question, tt.answer))
		})
	}
}

func TestScore_SumsByPosition(t *testing.T) {
	questions := []model.Question{
		{Type: model.QuestionTypeSingleChoice, Options: []string{"a", "b"}, CorrectIndex: 0, Points: 3},
		{Type: model.QuestionTypeSingleChoice, Options: []string{"a", "b"}, CorrectIndex: 1, Points: 4},
		{Type: model.QuestionTypeEssay, Points: 10},
	}
	answers := map[int]model.Answer{
		0: model.SingleIndex(0),
		1: model.SingleIndex(0),
		2: model.Text("x"),
	}
	assert.Equal(t, 3, Score(questions, answers))
	assert.Equal(t, 7, MaxScore(questions))
	assert.Equal(t, 0, Score(questions, nil))
}

func TestScore_EssayOnlyExam(t *testing.T) {
	questions := []model.Question{
		{Type: model.QuestionTypeEssay, Points: 10},
		{Type: model.QuestionTypeEssay, Points: 10},
	}
	answers := map[int]model.Answer{0: model.Text("a"), 1: model.Text("b")}
	assert.Equal(t, 0, Score(questions, answers))
	assert.Equal(t, 0, MaxScore(questions))
}
