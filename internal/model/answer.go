package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Answer is a student's response to one question. It is exactly one of
// SingleIndex, IndexSet or Text; an unanswered question has no Answer at all.
type Answer interface {
	answerKind() AnswerKind
}

// AnswerKind tags the concrete Answer variant on the wire.
type AnswerKind string

const (
	AnswerKindSingle AnswerKind = "single"
	AnswerKindMulti  AnswerKind = "multi"
	AnswerKindText   AnswerKind = "text"
)

// SingleIndex answers a SINGLE_CHOICE question.
type SingleIndex int

// IndexSet answers a MULTI_CHOICE question. Always kept sorted and unique.
type IndexSet []int

// Text answers an ESSAY question.
type Text string

func (SingleIndex) answerKind() AnswerKind { return AnswerKindSingle }
func (IndexSet) answerKind() AnswerKind    { return AnswerKindMulti }
func (Text) answerKind() AnswerKind        { return AnswerKindText }

// NewIndexSet builds a normalized set from arbitrary indices.
func NewIndexSet(indices ...int) IndexSet {
	seen := make(map[int]struct{}, len(indices))
	out := make(IndexSet, 0, len(indices))
	for _, i := range indices {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Contains reports membership.
func (s IndexSet) Contains(idx int) bool {
	i := sort.SearchInts(s, idx)
	return i < len(s) && s[i] == idx
}

// Toggle returns a new set with idx added if absent or removed if present.
func (s IndexSet) Toggle(idx int) IndexSet {
	if s.Contains(idx) {
		out := make(IndexSet, 0, len(s)-1)
		for _, v := range s {
			if v != idx {
				out = append(out, v)
			}
		}
		return out
	}
	return NewIndexSet(append(append([]int(nil), s...), idx)...)
}

// Equal is order-independent set equality.
func (s IndexSet) Equal(other []int) bool {
	o := NewIndexSet(other...)
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// ErrMalformedAnswer is returned when a stored answer cannot be decoded.
var ErrMalformedAnswer = errors.New("malformed answer")

type answerEnvelope struct {
	Kind    AnswerKind `json:"kind"`
	Index   *int       `json:"index,omitempty"`
	Indices []int      `json:"indices,omitempty"`
	Text    *string    `json:"text,omitempty"`
}

// EncodeAnswer serializes an answer into its tagged JSON form.
func EncodeAnswer(a Answer) ([]byte, error) {
	switch v := a.(type) {
	case SingleIndex:
		i := int(v)
		return json.Marshal(answerEnvelope{Kind: AnswerKindSingle, Index: &i})
	case IndexSet:
		// An emptied set encodes as {"kind":"multi"} and decodes back to an empty set.
		return json.Marshal(answerEnvelope{Kind: AnswerKindMulti, Indices: v})
	case Text:
		s := string(v)
		return json.Marshal(answerEnvelope{Kind: AnswerKindText, Text: &s})
	case nil:
		return nil, fmt.Errorf("%w: nil answer", ErrMalformedAnswer)
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedAnswer, a)
}

// DecodeAnswer parses the tagged JSON form produced by EncodeAnswer.
func DecodeAnswer(raw []byte) (Answer, error) {
	var env answerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	switch env.Kind {
	case AnswerKindSingle:
		if env.Index == nil {
			return nil, fmt.Errorf("%w: missing index", ErrMalformedAnswer)
		}
		return SingleIndex(*env.Index), nil
	case AnswerKindMulti:
		return NewIndexSet(env.Indices...), nil
	case AnswerKindText:
		if env.Text == nil {
			return nil, fmt.Errorf("%w: missing text", ErrMalformedAnswer)
		}
		return Text(*env.Text), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedAnswer, env.Kind)
}
