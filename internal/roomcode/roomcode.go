// Package roomcode generates short, human-typable lobby codes.
package roomcode

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	Length     = 6
	MaxRetries = 5
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrExhausted = errors.New("could not generate a unique room code")

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	exists ExistsFunc
	random func() (string, error)
}

func NewGenerator(exists ExistsFunc) *Generator {
	return &Generator{exists: exists, random: Random}
}

// Generate returns a code not yet taken, trying at most MaxRetries times.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		code, err := g.random()
		if err != nil {
			return "", err
		}
		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

func Random() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Normalize upper-cases and trims user input; it returns false when the
// result is not a well-formed code.
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != Length {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) < 0 {
			return "", false
		}
	}
	return code, true
}
