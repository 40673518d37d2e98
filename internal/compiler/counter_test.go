package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/numerus/internal/ir"
)

func TestVariableCounter_Temps(t *testing.T) {
	c := NewVariableCounter()
	assert.Equal(t, 0, c.Temps())
	assert.Equal(t, "%_1", c.NextTemp().String())
	assert.Equal(t, "%_2", c.NextTemp().String())
	assert.Equal(t, 2, c.Temps())
}

func TestVariableCounter_Bind(t *testing.T) {
	c := NewVariableCounter()

	_, ok := c.Lookup("x")
	assert.False(t, ok)

	assert.Equal(t, ir.LocalOf("x", 0), c.Bind("x"))
	got, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "%x_0", got.String())

	assert.Equal(t, ir.LocalOf("x", 1), c.Bind("x"))
	assert.Equal(t, ir.LocalOf("x", 2), c.Bind("x"))
	got, _ = c.Lookup("x")
	assert.Equal(t, "%x_2", got.String())

	assert.Equal(t, ir.LocalOf("y", 0), c.Bind("y"), "versions are per name")
}

func TestVariableCounter_Independent(t *testing.T) {
	a, b := NewVariableCounter(), NewVariableCounter()
	a.NextTemp()
	a.Bind("x")

	assert.Equal(t, ir.TempOf(1), b.NextTemp())
	_, ok := b.Lookup("x")
	assert.False(t, ok)
}
