package blockindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/inode"
)

func mkImage(t *testing.T, nblocks uint64) *disk.Image {
	t.Helper()
	im, err := disk.New(make([]byte, nblocks*common.BLKSIZE))
	require.NoError(t, err)
	return im
}

func TestBlockOfDirect(t *testing.T) {
	im := mkImage(t, 64)
	ino := &inode.Inode{Ftype: common.FtypeReg}
	ino.Direct[3] = 42

	bn, err := BlockOf(im, ino, 3)
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(42), bn)
}

func TestBlockOfUnallocatedDirectIsHole(t *testing.T) {
	im := mkImage(t, 64)
	ino := &inode.Inode{Ftype: common.FtypeDir}

	bn, err := BlockOf(im, ino, 0)
	require.NoError(t, err)
	assert.Equal(t, common.NULLBNUM, bn)
}

func TestBlockOfIndirect(t *testing.T) {
	im := mkImage(t, 64)
	ino := &inode.Inode{Ftype: common.FtypeReg, Indirect: 20}
	require.NoError(t, putSlot(im, 20, 5, 99))

	bn, err := BlockOf(im, ino, common.ND+5)
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(99), bn)
}

func TestBlockOfIndirectHoleWhenNoIndirectBlock(t *testing.T) {
	im := mkImage(t, 64)
	ino := &inode.Inode{Ftype: common.FtypeReg}

	bn, err := BlockOf(im, ino, common.ND+5)
	require.NoError(t, err)
	assert.Equal(t, common.NULLBNUM, bn)
}

func TestBlockOfDoublyIndirect(t *testing.T) {
	im := mkImage(t, 64)
	ino := &inode.Inode{Ftype: common.FtypeReg, Indirect2: 30}
	require.NoError(t, putSlot(im, 30, 2, 31)) // mid block for i1=2
	require.NoError(t, putSlot(im, 31, 7, 123))

	n := common.ND + common.NI + 2*common.NI + 7
	bn, err := BlockOf(im, ino, n)
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(123), bn)
}

func TestLocateBlock(t *testing.T) {
	loc := LocateBlock(0)
	assert.True(t, loc.Direct)
	assert.Equal(t, uint64(0), loc.DirectSlot)

	loc = LocateBlock(common.ND)
	assert.False(t, loc.Direct)
	assert.False(t, loc.ViaIndirect2)
	assert.Equal(t, uint64(0), loc.LeafSlot)

	loc = LocateBlock(common.ND + common.NI)
	assert.True(t, loc.ViaIndirect2)
	assert.Equal(t, uint64(0), loc.MidSlot)
	assert.Equal(t, uint64(0), loc.LeafSlot)

	loc = LocateBlock(common.ND + common.NI + common.NI + 3)
	assert.True(t, loc.ViaIndirect2)
	assert.Equal(t, uint64(1), loc.MidSlot)
	assert.Equal(t, uint64(3), loc.LeafSlot)
}
