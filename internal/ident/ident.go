// Package ident draws quiz and participant identifiers. Identifiers double as
// capability tokens and storage partition keys, so they come from crypto/rand
// and are probed for collisions before use.
package ident

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"online-quiz/internal/domain"
)

const (
	MinID       = 10000000
	MaxID       = 99999999
	MaxAttempts = 100
)

// TakenFunc reports whether id is already in use.
type TakenFunc func(ctx context.Context, id string) (bool, error)

// Generator produces eight-digit numeric identifiers.
type Generator struct {
	rand     io.Reader
	attempts int
}

func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader, attempts: MaxAttempts}
}

// NewGeneratorWithSource is for tests that need deterministic draws.
func NewGeneratorWithSource(src io.Reader, attempts int) *Generator {
	return &Generator{rand: src, attempts: attempts}
}

// Next draws identifiers until one is not taken. It fails with
// domain.ErrIdentifierExhausted after the attempt budget is spent.
func (g *Generator) Next(ctx context.Context, taken TakenFunc) (string, error) {
	span := big.NewInt(MaxID - MinID + 1)
	for i := 0; i < g.attempts; i++ {
		n, err := rand.Int(g.rand, span)
		if err != nil {
			return "", fmt.Errorf("draw identifier: %w", err)
		}
		id := strconv.FormatInt(MinID+n.Int64(), 10)
		if taken == nil {
			return id, nil
		}
		used, err := taken(ctx, id)
		if err != nil {
			return "", fmt.Errorf("probe identifier: %w", err)
		}
		if !used {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrIdentifierExhausted, g.attempts)
}
