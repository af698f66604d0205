package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QuestionType is the semantic kind of an assessable item.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeEssay        QuestionType = "ESSAY"
)

// ErrUnknownQuestionType is returned by ParseQuestionType.
var ErrUnknownQuestionType = errors.New("unknown question type")

// ParseQuestionType maps stored type names, including the legacy PG / PG_KOMPLEKS /
// CHECKLIST / URAIAN names, onto the three semantic kinds.
func ParseQuestionType(raw string) (QuestionType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SINGLE_CHOICE", "PG", "MULTIPLE_CHOICE":
		return QuestionTypeSingleChoice, nil
	case "MULTI_CHOICE", "PG_KOMPLEKS", "CHECKLIST":
		return QuestionTypeMultiChoice, nil
	case "ESSAY", "URAIAN":
		return QuestionTypeEssay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuestionType, raw)
}

// IsChoice reports whether the type carries options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// Question represents a single exam question together with its answer key.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Options  []string     `json:"options,omitempty"`

	// CorrectIndex is the answer key of a SINGLE_CHOICE question.
	CorrectIndex int `json:"correct_index"`
	// CorrectIndices is the answer key of a MULTI_CHOICE question, ascending.
	CorrectIndices []int `json:"correct_indices,omitempty"`

	Points   int `json:"points"`
	OrderNum int `json:"order_num"`

	// OptionOrder holds, for each displayed position, the index the option had
	// in the stored question. Nil until the options are re-indexed.
	OptionOrder []int `json:"option_order,omitempty"`
}

// Validate checks that the answer key points at existing options.
func (q *Question) Validate() error {
	if q.Points < 0 {
		return fmt.Errorf("question %s: negative points", q.ID)
	}
	switch q.Type {
	case QuestionTypeSingleChoice:
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %s: correct index %d out of range", q.ID, q.CorrectIndex)
		}
	case QuestionTypeMultiChoice:
		if len(q.CorrectIndices) == 0 {
			return fmt.Errorf("question %s: empty answer key", q.ID)
		}
		for _, idx := range q.CorrectIndices {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("question %s: correct index %d out of range", q.ID, idx)
			}
		}
	case QuestionTypeEssay:
	default:
		return fmt.Errorf("question %s: %w: %q", q.ID, ErrUnknownQuestionType, q.Type)
	}
	return nil
}

// IsCorrectOption reports whether the option at idx is part of the answer key.
func (q *Question) IsCorrectOption(idx int) bool {
	switch q.Type {
	case QuestionTypeSingleChoice:
		return idx == q.CorrectIndex
	case QuestionTypeMultiChoice:
		for _, c := range q.CorrectIndices {
			if c == idx {
				return true
			}
		}
	}
	return false
}

// AnswerKey is the JSONB shape of the answer_key column.
type AnswerKey struct {
	Index   *int  `json:"index,omitempty"`
	Indices []int `json:"indices,omitempty"`
}

// ApplyAnswerKey copies a stored answer key onto the question's markers.
func (q *Question) ApplyAnswerKey(k AnswerKey) error {
	switch q.Type {
	case QuestionTypeSingleChoice:
		if k.Index == nil {
			return fmt.Errorf("question %s: missing answer index", q.ID)
		}
		q.CorrectIndex = *k.Index
	case QuestionTypeMultiChoice:
		q.CorrectIndices = NewIndexSet(k.Indices...)
	}
	return nil
}

// AnswerKey returns the question's markers in their stored form.
func (q *Question) AnswerKey() AnswerKey {
	switch q.Type {
	case QuestionTypeSingleChoice:
		idx := q.CorrectIndex
		return AnswerKey{Index: &idx}
	case QuestionTypeMultiChoice:
		return AnswerKey{Indices: append([]int(nil), q.CorrectIndices...)}
	}
	return AnswerKey{}
}

// QuestionForStudent is a question without the answer key, sent to students.
type QuestionForStudent struct {
	Position int          `json:"position"`
	ID       uuid.UUID    `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Options  []string     `json:"options,omitempty"`
	Points   int          `json:"points"`
}
