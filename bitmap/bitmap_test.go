package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
)

func mkBitmap(t *testing.T, dataBlocks uint64) (*Bitmap, *disk.Image) {
	t.Helper()
	// One bitmap block covers NBITBLOCK data blocks; give ourselves two
	// bitmap blocks of headroom plus the data blocks themselves.
	im, err := disk.New(make([]byte, (2+dataBlocks)*common.BLKSIZE))
	require.NoError(t, err)
	b := Mount(im, 0, 2, 2)
	b.InitRegion()
	return b, im
}

func TestAllocateLowestNumberedWins(t *testing.T) {
	b, _ := mkBitmap(t, 8)

	n1 := b.Allocate()
	assert.Equal(t, common.Bnum(2), n1, "the lowest-numbered free data block must win")

	n2 := b.Allocate()
	assert.Equal(t, common.Bnum(3), n2)

	b.Free(n1)
	n3 := b.Allocate()
	assert.Equal(t, common.Bnum(2), n3, "freeing the lowest block makes it win again")
}

func TestAllocateExhaustion(t *testing.T) {
	b, _ := mkBitmap(t, 4)
	seen := map[common.Bnum]bool{}
	for i := 0; i < 4; i++ {
		bn := b.Allocate()
		require.NotEqual(t, common.NULLBNUM, bn)
		require.False(t, seen[bn], "must not double-allocate")
		seen[bn] = true
	}
	assert.Equal(t, common.NULLBNUM, b.Allocate(), "disk is full")
}

func TestFreeIgnoresMetadataBlocks(t *testing.T) {
	b, im := mkBitmap(t, 4)
	before := b.NumFree()

	b.Free(0) // boot block, outside the data region
	b.Free(1) // bitmap block

	after := b.NumFree()
	assert.Equal(t, before, after, "Free must no-op outside the data range")

	blk, err := im.Block(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), blk[0]&1, "metadata bit must remain 0 (allocated)")
}

func TestIsAllocated(t *testing.T) {
	b, _ := mkBitmap(t, 8)
	assert.True(t, b.IsAllocated(0), "boot block is outside the data region, always reported allocated")

	bn := b.Allocate()
	assert.True(t, b.IsAllocated(bn))
	b.Free(bn)
	assert.False(t, b.IsAllocated(bn))
}

func TestAllocateFreeRoundTrip(t *testing.T) {
	b, _ := mkBitmap(t, 16)
	before := b.NumFree()

	bn := b.Allocate()
	require.NotEqual(t, common.NULLBNUM, bn)
	b.Free(bn)

	assert.Equal(t, before, b.NumFree(), "allocate then free must restore the bitmap exactly")
}
