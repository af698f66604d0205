package engine

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-cbt/internal/model"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestShuffle_IsPermutation(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for seed := uint64(0); seed < 50; seed++ {
		out := Shuffle(seeded(seed), in)
		require.Len(t, out, len(in))

		sorted := append([]int(nil), out...)
		sort.Ints(sorted)
		assert.Equal(t, in, sorted)
	}
	// input untouched
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, in)
}

func TestShuffle_EmptyAndSingle(t *testing.T) {
	assert.Empty(t, Shuffle(seeded(1), []string{}))
	assert.Equal(t, []string{"x"}, Shuffle(seeded(1), []string{"x"}))
	assert.Len(t, Shuffle[int](nil, []int{1, 2, 3}), 3)
}

func TestShuffle_ReachesEveryOrdering(t *testing.T) {
	seen := map[[3]int]bool{}
	rng := seeded(7)
	for i := 0; i < 600; i++ {
		out := Shuffle(rng, []int{0, 1, 2})
		seen[[3]int{out[0], out[1], out[2]}] = true
	}
	assert.Len(t, seen, 6)
}

func TestRandomizeExam_KeepsEveryQuestionScoreable(t *testing.T) {
	questions := []model.Question{
		{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Options: []string{"A", "B", "C", "D"}, CorrectIndex: 2, Points: 10},
		{ID: uuid.New(), Type: model.QuestionTypeMultiChoice, Options: []string{"P", "Q", "R", "S"}, CorrectIndices: []int{0, 3}, Points: 5},
		{ID: uuid.New(), Type: model.QuestionTypeEssay, Text: "Explain", Points: 20},
	}

	for seed := uint64(0); seed < 30; seed++ {
		out := RandomizeExam(seeded(seed), questions)
		require.Len(t, out, len(questions))

		byID := map[uuid.UUID]model.Question{}
		for _, q := range out {
			byID[q.ID] = q
		}
		require.Len(t, byID, len(questions))

		single := byID[questions[0].ID]
		assert.Equal(t, "C", single.Options[single.CorrectIndex])

		multi := byID[questions[1].ID]
		var texts []string
		for _, idx := range multi.CorrectIndices {
			texts = append(texts, multi.Options[idx])
		}
		assert.ElementsMatch(t, []string{"P", "S"}, texts)

		essay := byID[questions[2].ID]
		assert.Equal(t, questions[2], essay)
	}
}
