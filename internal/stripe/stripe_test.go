package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_WorkedExamples(t *testing.T) {
	// N=4, D=3 as in spec.md §8.
	t.Run("block 0", func(t *testing.T) {
		loc, err := Map(0, 4)
		assert.NoError(t, err)
		assert.Equal(t, Location{DataServer: 1, StripeIndex: 0, ParityServer: 0}, loc)
	})

	t.Run("block 3", func(t *testing.T) {
		loc, err := Map(3, 4)
		assert.NoError(t, err)
		assert.Equal(t, Location{DataServer: 0, StripeIndex: 1, ParityServer: 1}, loc)
	})

	t.Run("block 7", func(t *testing.T) {
		loc, err := Map(7, 4)
		assert.NoError(t, err)
		assert.Equal(t, Location{DataServer: 1, StripeIndex: 2, ParityServer: 2}, loc)
	})
}

func TestMap_DataNeverEqualsParity(t *testing.T) {
	const n = 5
	for b := 0; b < 500; b++ {
		loc, err := Map(b, n)
		assert.NoError(t, err)
		assert.NotEqual(t, loc.ParityServer, loc.DataServer, "I1 violated at block %d", b)
		assert.True(t, loc.DataServer >= 0 && loc.DataServer < n)
		assert.True(t, loc.ParityServer >= 0 && loc.ParityServer < n)
	}
}

func TestMap_StripeCoversEveryNonParityPosition(t *testing.T) {
	// P1: for each fully populated stripe s, the set of data servers that
	// blocks map into equals [0..n) \ {parity(s)}.
	const n = 4
	const totalBlocks = 256
	d := n - 1

	seen := make(map[int]map[int]bool) // stripe -> set of data servers used
	for b := 0; b < totalBlocks; b++ {
		loc, err := Map(b, n)
		assert.NoError(t, err)
		if seen[loc.StripeIndex] == nil {
			seen[loc.StripeIndex] = map[int]bool{}
		}
		seen[loc.StripeIndex][loc.DataServer] = true
	}

	numFullStripes := totalBlocks / d
	for s := 0; s < numFullStripes; s++ {
		want := DataServers(s, n)
		got := seen[s]
		assert.Equal(t, len(want), len(got), "stripe %d", s)
		for _, srv := range want {
			assert.True(t, got[srv], "stripe %d missing data server %d", s, srv)
		}
	}
}

func TestMap_RejectsTooFewServers(t *testing.T) {
	_, err := Map(0, 2)
	assert.Error(t, err)
}

func TestNumStripes(t *testing.T) {
	assert.Equal(t, 86, NumStripes(256, 4)) // D=3, ceil(256/3)=86
	assert.Equal(t, 0, NumStripes(0, 4))
}
