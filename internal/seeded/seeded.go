// Package seeded provides a small reproducible random stream keyed by strings.
//
// The same seed string yields the same sequence on every platform, which is
// what lets a quiz be re-rendered identically for a user without storing it.
package seeded

// Hash folds s into a 32-bit seed. Every byte is mixed through a
// multiply-rotate step and the state is finalized with an avalanche mix, so
// seeds that differ in one byte produce unrelated values.
func Hash(s string) uint32 {
	h := uint32(1779033703) ^ uint32(len(s))
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 3432918353
		h = h<<13 | h>>19
	}
	h = (h ^ h>>16) * 2246822507
	h = (h ^ h>>13) * 3266489909
	return h ^ h>>16
}

// Generator is a mulberry32 stream. The zero value is usable but every
// caller in this module seeds it through New.
type Generator struct {
	state uint32
}

// New returns a generator starting at seed.
func New(seed uint32) *Generator {
	return &Generator{state: seed}
}

// FromString is shorthand for New(Hash(s)).
func FromString(s string) *Generator {
	return New(Hash(s))
}

// Uint32 advances the stream.
func (g *Generator) Uint32() uint32 {
	g.state += 0x6D2B79F5
	t := g.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / 4294967296.0
}

// Intn returns a value in [0, n). n must be positive.
func (g *Generator) Intn(n int) int {
	return int(g.Float64() * float64(n))
}

// Shuffle returns a permuted copy of items using Fisher-Yates.
func Shuffle[T any](items []T, g *Generator) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample returns the first k items of Shuffle(items, g). When k covers the
// whole slice the full shuffled copy is returned.
func Sample[T any](items []T, k int, g *Generator) []T {
	shuffled := Shuffle(items, g)
	if k < 0 {
		k = 0
	}
	if k >= len(shuffled) {
		return shuffled
	}
	return shuffled[:k]
}
