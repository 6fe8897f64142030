// Package lsystem grows trees from string rewriting grammars interpreted by a
// 3D turtle.
package lsystem

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// MaxSymbols bounds an expanded string.
const MaxSymbols = 1 << 20

// ErrTooLong is returned when expansion would exceed MaxSymbols.
var ErrTooLong = errors.New("lsystem: expansion too long")

// Rule rewrites Predecessor into Successor. A Probability in (0,1) applies the
// rule stochastically; zero or one always applies it.
type Rule struct {
	Predecessor byte
	Successor   string
	Probability float64
}

func (r Rule) applies(rng *rand.Rand) bool {
	if r.Probability <= 0 || r.Probability >= 1 {
		return true
	}
	return rng.Float64() < r.Probability
}

// Grammar is an axiom and an ordered rule list.
type Grammar struct {
	Axiom string
	Rules []Rule
}

// Validate rejects grammars that cannot be expanded.
func (g Grammar) Validate() error {
	if g.Axiom == "" {
		return errors.New("empty axiom")
	}
	for i, r := range g.Rules {
		if r.Predecessor == 0 {
			return fmt.Errorf("rule %d: missing predecessor", i)
		}
		if r.Probability < 0 || r.Probability > 1 {
			return fmt.Errorf("rule %d: probability %v outside [0,1]", i, r.Probability)
		}
	}
	return nil
}

// Expand rewrites the axiom iterations times. Each symbol takes the first
// rule for it that applies; symbols without one are copied unchanged.
func (g Grammar) Expand(iterations int, rng *rand.Rand) (string, error) {
	current := g.Axiom
	var next strings.Builder
	for range iterations {
		next.Reset()
		for i := 0; i < len(current); i++ {
			c := current[i]
			matched := false
			for _, r := range g.Rules {
				if r.Predecessor == c && r.applies(rng) {
					next.WriteString(r.Successor)
					matched = true
					break
				}
			}
			if !matched {
				next.WriteByte(c)
			}
			if next.Len() > MaxSymbols {
				return "", fmt.Errorf("%w: over %d symbols", ErrTooLong, MaxSymbols)
			}
		}
		current = next.String()
	}
	return current, nil
}
