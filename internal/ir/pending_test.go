package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPending_SetSameValueStaysUnchanged(t *testing.T) {
	p := Unchanged("cpu0").Set("cpu0")
	assert.False(t, p.Changed())
	assert.Equal(t, "cpu0", p.Get())
}

func TestPending_SetRecordsOldValue(t *testing.T) {
	p := Unchanged(5).Set(7)
	assert.True(t, p.Changed())
	assert.Equal(t, 7, p.Get())
	assert.Equal(t, 5, p.Old())
}

func TestPending_SetTwiceKeepsOriginal(t *testing.T) {
	p := Unchanged("a").Set("b").Set("c")
	assert.True(t, p.Changed())
	assert.Equal(t, "a", p.Old())
	assert.Equal(t, "c", p.Get())
}

func TestPending_SetBackToOriginalClearsChange(t *testing.T) {
	p := Unchanged(1.5).Set(2.5).Set(1.5)
	assert.False(t, p.Changed())
	assert.Equal(t, 1.5, p.Get())
}

func TestPending_Revert(t *testing.T) {
	orig := Unchanged(uint64(100))
	changed := orig.Set(200)
	reverted := changed.Revert()

	assert.False(t, reverted.Changed())
	assert.Equal(t, uint64(100), reverted.Get())
	// the changed value itself is untouched
	assert.Equal(t, uint64(200), changed.Get())
}

func TestFlags_Transitions(t *testing.T) {
	var f Flags
	g := f.With(FlagDiscovered)

	assert.False(t, f.Has(FlagDiscovered))
	assert.True(t, g.Has(FlagDiscovered))
	assert.False(t, g.Has(FlagDiscovered|FlagDelete))
	assert.True(t, g.With(FlagDelete).Has(FlagDiscovered|FlagDelete))
	assert.False(t, g.Without(FlagDiscovered).Has(FlagDiscovered))
}
