package numerics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingVWAPEmpty(t *testing.T) {
	w := NewRollingVWAP(1000)
	_, ok := w.Value()
	assert.False(t, ok)
}

func TestRollingVWAPWeightedAverage(t *testing.T) {
	w := NewRollingVWAP(1000)
	w.Push(100, 1, 0)
	w.Push(200, 3, 100)

	got, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, (100*1+200*3)/4.0, got)
}

func TestRollingVWAPEvictsOutOfWindow(t *testing.T) {
	w := NewRollingVWAP(1000)
	w.Push(100, 1, 0)
	w.Push(200, 1, 2000) // evicts the first entry: 2000 - 1000 = 1000 cutoff

	got, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 200.0, got)
}

func TestRollingVWAPDefaultWindow(t *testing.T) {
	w := NewRollingVWAP(0)
	assert.Equal(t, DefaultVWAPWindowMs, w.windowMs)
}
