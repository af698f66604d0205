package engine

import (
	"math/rand/v2"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// optionPair keeps an option's text and correctness together while it moves.
type optionPair struct {
	text     string
	correct  bool
	original int
}

// Reindex returns a copy of q with its options shuffled and its answer key
// remapped to the new positions. Essay questions are returned unchanged.
func Reindex(rng *rand.Rand, q model.Question) model.Question {
	if !q.Type.IsChoice() {
		return q
	}
	return fromPairs(q, Shuffle(rng, pairsOf(q)))
}

func pairsOf(q model.Question) []optionPair {
	pairs := make([]optionPair, len(q.Options))
	for i, text := range q.Options {
		pairs[i] = optionPair{text: text, correct: q.IsCorrectOption(i), original: i}
	}
	return pairs
}

// fromPairs rebuilds the question from pairs in their new order. Correctness
// follows the pair, so duplicate option texts cannot swap their flags.
func fromPairs(q model.Question, pairs []optionPair) model.Question {
	out := q
	out.Options = make([]string, len(pairs))
	out.OptionOrder = make([]int, len(pairs))
	out.CorrectIndices = nil

	var correct []int
	for i, p := range pairs {
		out.Options[i] = p.text
		out.OptionOrder[i] = originalIndex(q, p.original)
		if p.correct {
			correct = append(correct, i)
		}
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		out.CorrectIndex = -1
		if len(correct) > 0 {
			out.CorrectIndex = correct[0]
		}
	case model.QuestionTypeMultiChoice:
		out.CorrectIndex = 0
		out.CorrectIndices = correct
	}
	return out
}

// originalIndex resolves through an earlier re-index so OptionOrder always
// refers to the stored question.
func originalIndex(q model.Question, idx int) int {
	if idx < len(q.OptionOrder) {
		return q.OptionOrder[idx]
	}
	return idx
}
