package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ospfs/ospfs/common"
)

func TestMkBit(t *testing.T) {
	a := MkBit(2, 0)
	assert.Equal(t, Mk(2, 0), a)

	a = MkBit(2, common.NBITBLOCK)
	assert.Equal(t, Mk(3, 0), a)

	a = MkBit(2, common.NBITBLOCK+5)
	assert.Equal(t, Mk(3, 5), a)
}

func TestEq(t *testing.T) {
	assert.True(t, Mk(1, 2).Eq(Mk(1, 2)))
	assert.False(t, Mk(1, 2).Eq(Mk(1, 3)))
	assert.False(t, Mk(1, 2).Eq(Mk(2, 2)))
}
