// Package engine holds the exam-taking core: randomization of the question set,
// the per-attempt session state machine, the focus-loss monitor, scoring and
// result submission. It has no knowledge of HTTP, Redis or PostgreSQL.
package engine

import (
	"math/rand/v2"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// Shuffle returns a uniformly random permutation of in without modifying it.
// A nil rng draws from the process-wide source.
func Shuffle[T any](rng *rand.Rand, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	for i := len(out) - 1; i > 0; i-- {
		j := intN(rng, i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}

// RandomizeExam shuffles the question order and the option order of every
// choice question. Call it once per attempt; the result is the session's
// fixed question set.
func RandomizeExam(rng *rand.Rand, questions []model.Question) []model.Question {
	shuffled := Shuffle(rng, questions)
	for i := range shuffled {
		shuffled[i] = Reindex(rng, shuffled[i])
	}
	return shuffled
}
