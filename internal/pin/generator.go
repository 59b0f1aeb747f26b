package pin

import (
	"errors"
	"fmt"
)

// RandomSource supplies uniform integers in [0, n). *math/rand.Rand
// satisfies it.
type RandomSource interface {
	Intn(n int) int
}

var (
	ErrIncomplete    = errors.New("pin input is incomplete")
	ErrInvalidLength = errors.New("pin length must be at least 1")
	ErrInvalidPool   = errors.New("pin pool size must be at least 1")
)

// Generator holds the current PIN and the digits entered so far.
// The input never grows past the PIN length.
type Generator struct {
	length int
	pin    []int
	input  []int
}

// NewGenerator returns a generator for PINs of the given length. No PIN is
// drawn until GenerateNew is called.
func NewGenerator(length int) (*Generator, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	return &Generator{length: length}, nil
}

// GenerateNew draws length independent indices uniformly from [0, poolSize),
// replaces the current PIN and clears the input.
func (g *Generator) GenerateNew(poolSize, length int, rng RandomSource) ([]int, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	if poolSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPool, poolSize)
	}
	g.length = length
	g.pin = make([]int, length)
	for i := range g.pin {
		g.pin[i] = rng.Intn(poolSize)
	}
	g.ClearInput()
	return g.Pin(), nil
}

// RecordDigit appends d to the input. It returns false and drops the digit
// when the input is already full.
func (g *Generator) RecordDigit(d int) bool {
	if len(g.input) >= g.length {
		return false
	}
	g.input = append(g.input, d)
	return true
}

// IsComplete reports whether the input has reached the PIN length.
func (g *Generator) IsComplete() bool {
	return len(g.input) == g.length
}

// Validate compares the input with the PIN element by element.
func (g *Generator) Validate() (bool, error) {
	if !g.IsComplete() || len(g.pin) != g.length {
		return false, ErrIncomplete
	}
	for i, d := range g.pin {
		if g.input[i] != d {
			return false, nil
		}
	}
	return true, nil
}

func (g *Generator) Length() int     { return g.length }
func (g *Generator) InputCount() int { return len(g.input) }

// Pin returns a copy of the current PIN.
func (g *Generator) Pin() []int {
	return append([]int(nil), g.pin...)
}

// Input returns a copy of the digits entered so far.
func (g *Generator) Input() []int {
	return append([]int(nil), g.input...)
}

// LastInput returns the most recently entered digit.
func (g *Generator) LastInput() (int, bool) {
	if len(g.input) == 0 {
		return 0, false
	}
	return g.input[len(g.input)-1], true
}

// NextDigit returns the PIN digit the participant should enter next.
func (g *Generator) NextDigit() (int, bool) {
	if len(g.input) >= len(g.pin) {
		return 0, false
	}
	return g.pin[len(g.input)], true
}

// ClearInput discards the entered digits and keeps the PIN.
func (g *Generator) ClearInput() {
	g.input = g.input[:0]
}
