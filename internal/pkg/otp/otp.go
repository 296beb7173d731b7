package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	minCode = 100000
	maxCode = 999999
)

// Generator issues six-digit codes drawn uniformly from 100000-999999.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// Generate returns a new code as a decimal string.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.rand, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("otp: read random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}
