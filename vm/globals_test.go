package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krehermann/rigvm/value"
)

func TestGlobalsSetGetOverwrite(t *testing.T) {
	g := NewGlobals()

	_, ok := g.Get("missing")
	assert.False(t, ok)

	g.Set("pi", value.Number(3.14))
	v, ok := g.Get("pi")
	assert.True(t, ok)
	assert.Equal(t, float32(3.14), v.AsNumber())

	g.Set("pi", value.Number(3.0))
	v, ok = g.Get("pi")
	assert.True(t, ok)
	assert.Equal(t, float32(3.0), v.AsNumber())
}
