// Package assign builds peer-check assignments.
package assign

import (
	"math/rand/v2"
	"sort"
)

// Pair says Checker grades Checkee's answers.
type Pair struct {
	Checker string
	Checkee string
}

// Cycle shuffles ids and lets every position check its predecessor, wrapping
// around so the first position checks the last. The result is one cycle over
// all ids; nobody checks themself unless len(ids) == 1.
func Cycle(ids []string, rnd *rand.Rand) []Pair {
	if len(ids) == 0 {
		return nil
	}
	order := append([]string(nil), ids...)
	// Sorting first makes the result depend only on rnd, not on caller order.
	sort.Strings(order)
	shuffle := rand.Shuffle
	if rnd != nil {
		shuffle = rnd.Shuffle
	}
	shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	pairs := make([]Pair, len(order))
	for i := range order {
		prev := i - 1
		if prev < 0 {
			prev = len(order) - 1
		}
		pairs[i] = Pair{Checker: order[i], Checkee: order[prev]}
	}
	return pairs
}
