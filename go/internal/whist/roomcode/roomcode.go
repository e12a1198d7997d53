package roomcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// Alphabet leaves out 0, O, 1, I and L.
	Alphabet    = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	Length      = 6
	MaxAttempts = 100
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = errors.New("failed to generate a unique room code")

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces collision-checked room codes.
type Generator struct {
	random      io.Reader
	maxAttempts int
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader, maxAttempts: MaxAttempts}
}

// NewGeneratorWithSource is used by tests to make codes predictable.
func NewGeneratorWithSource(r io.Reader, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	return &Generator{random: r, maxAttempts: maxAttempts}
}

// Generate returns a code for which exists reports false.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.next()
		if err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check room code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

func (g *Generator) next() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	limit := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < Length; i++ {
		n, err := rand.Int(g.random, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether code has the right length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize upper-cases user input before validation.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
