package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSet_Toggle(t *testing.T) {
	s := NewIndexSet(3, 1, 3)
	assert.Equal(t, IndexSet{1, 3}, s)

	s = s.Toggle(2)
	assert.Equal(t, IndexSet{1, 2, 3}, s)

	s = s.Toggle(1)
	assert.Equal(t, IndexSet{2, 3}, s)
	assert.False(t, s.Contains(1))
	assert.True(t, s.Equal([]int{3, 2}))
}

func TestEncodeDecodeAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		raw    string
	}{
		{"single", SingleIndex(2), `{"kind":"single","index":2}`},
		{"multi", NewIndexSet(4, 0), `{"kind":"multi","indices":[0,4]}`},
		{"empty multi", IndexSet{}, `{"kind":"multi"}`},
		{"text", Text("jawaban"), `{"kind":"text","text":"jawaban"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeAnswer(tt.answer)
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(raw))

			got, err := DecodeAnswer(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.answer, got)
		})
	}
}

func TestDecodeAnswer_Malformed(t *testing.T) {
	for _, raw := range []string{`{"kind":"single"}`, `{"kind":"text"}`, `{"kind":"bogus"}`, `nope`} {
		_, err := DecodeAnswer([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedAnswer, raw)
	}

	_, err := EncodeAnswer(nil)
	assert.ErrorIs(t, err, ErrMalformedAnswer)
}
