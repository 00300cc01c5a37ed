package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	for raw, want := range map[string]Side{
		"long": Long, "LONG": Long, " buy ": Long,
		"short": Short, "sell": Short,
	} {
		got, ok := ParseSide(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseSide("sideways")
	assert.False(t, ok)
}

func TestSideSign(t *testing.T) {
	assert.Equal(t, 1.0, Long.Sign())
	assert.Equal(t, -1.0, Short.Sign())
	assert.True(t, Long.Valid())
	assert.False(t, Side("hold").Valid())
}
