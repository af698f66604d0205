package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionType(t *testing.T) {
	tests := map[string]QuestionType{
		"PG":            QuestionTypeSingleChoice,
		"single_choice": QuestionTypeSingleChoice,
		" PG_KOMPLEKS ": QuestionTypeMultiChoice,
		"CHECKLIST":     QuestionTypeMultiChoice,
		"URAIAN":        QuestionTypeEssay,
		"essay":         QuestionTypeEssay,
	}
	for raw, want := range tests {
		got, err := ParseQuestionType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseQuestionType("MATCHING")
	assert.ErrorIs(t, err, ErrUnknownQuestionType)
}

func TestQuestion_Validate(t *testing.T) {
	q := Question{ID: uuid.New(), Type: QuestionTypeSingleChoice, Options: []string{"a", "b"}, CorrectIndex: 1}
	assert.NoError(t, q.Validate())

	q.CorrectIndex = 2
	assert.Error(t, q.Validate())

	multi := Question{ID: uuid.New(), Type: QuestionTypeMultiChoice, Options: []string{"a", "b"}}
	assert.Error(t, multi.Validate(), "empty key")
	multi.CorrectIndices = []int{0, 1}
	assert.NoError(t, multi.Validate())

	essay := Question{ID: uuid.New(), Type: QuestionTypeEssay, Points: -1}
	assert.Error(t, essay.Validate())
}

func TestQuestion_AnswerKeyRoundTrip(t *testing.T) {
	multi := Question{ID: uuid.New(), Type: QuestionTypeMultiChoice, Options: []string{"a", "b", "c"}}
	require.NoError(t, multi.ApplyAnswerKey(AnswerKey{Indices: []int{2, 0, 2}}))
	assert.Equal(t, []int{0, 2}, multi.CorrectIndices)
	assert.True(t, multi.IsCorrectOption(2))
	assert.False(t, multi.IsCorrectOption(1))
	assert.Equal(t, []int{0, 2}, multi.AnswerKey().Indices)

	single := Question{ID: uuid.New(), Type: QuestionTypeSingleChoice, Options: []string{"a", "b"}}
	assert.Error(t, single.ApplyAnswerKey(AnswerKey{}))
	one := 1
	require.NoError(t, single.ApplyAnswerKey(AnswerKey{Index: &one}))
	assert.True(t, single.IsCorrectOption(1))
}

func TestExam_Lobby(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	e := &Exam{ID: uuid.New(), Title: "IPA", Status: ExamStatusPublished, ScheduledStart: &later}
	assert.False(t, e.Lobby(now).Open)
	assert.True(t, e.Lobby(later.Add(time.Minute)).Open)

	e.SchoolAccess = []string{"SMAN 1"}
	assert.True(t, e.AllowsSchool("SMAN 1"))
	assert.False(t, e.AllowsSchool("SMAN 2"))
}
