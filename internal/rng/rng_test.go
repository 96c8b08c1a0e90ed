package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownSequence(t *testing.T) {
	s := New(DefaultSeed)
	assert.InDelta(t, 0.1844118325971067, s.Next(), 1e-15)
	assert.InDelta(t, 0.18998925131745636, s.Next(), 1e-15)
	assert.InDelta(t, 0.8104719922412187, s.Next(), 1e-15)
}

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next(), "draw %d", i)
	}
}

func TestRange(t *testing.T) {
	s := New(-7)
	for i := 0; i < 10000; i++ {
		v := s.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestChanceAndBetween(t *testing.T) {
	s := New(DefaultSeed)
	assert.True(t, s.Chance(0.4)) // first draw is ~0.184
	assert.False(t, New(DefaultSeed).Chance(0.1))
	assert.False(t, New(1).Chance(0))

	b := New(99)
	for i := 0; i < 100; i++ {
		v := b.Between(5, 10)
		assert.GreaterOrEqual(t, v, 5.0)
		assert.Less(t, v, 10.0)
	}
}

func TestNextSeed(t *testing.T) {
	s := New(DefaultSeed)
	s.Next()
	assert.Equal(t, int64(189989), s.NextSeed())
}
