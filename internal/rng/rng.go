// Package rng provides the seeded generator used for every probabilistic
// outcome in the simulation. The stream is a mulberry32 sequence, so a given
// seed and call order always reproduce the same results across saves.
package rng

// DefaultSeed is used when a snapshot carries no seed.
const DefaultSeed = 1337

// Source is a deterministic 32-bit generator.
type Source struct {
	t uint32
}

// New creates a generator from an integer seed. Only the low 32 bits matter.
func New(seed int64) *Source {
	return &Source{t: uint32(seed)}
}

// Next returns the next float in [0, 1).
func (s *Source) Next() float64 {
	s.t += 0x6d2b79f5
	x := s.t
	x = (x ^ (x >> 15)) * (x | 1)
	x ^= x + (x^(x>>7))*(x|61)
	return float64(x^(x>>14)) / 4294967296
}

// Chance reports whether the next draw falls below p.
func (s *Source) Chance(p float64) bool {
	return s.Next() < p
}

// Between returns a float in [min, max).
func (s *Source) Between(min, max float64) float64 {
	return min + s.Next()*(max-min)
}

// NextSeed derives the follow-up seed stored back into state after a draw.
func (s *Source) NextSeed() int64 {
	return int64(s.Next() * 1_000_000)
}
