package superblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
)

func TestNewLayoutIsMonotonic(t *testing.T) {
	sb := New(4096, 200)
	assert.Equal(t, Block+1, sb.BitmapStart())
	assert.True(t, sb.InodeStart() >= sb.BitmapStart()+sb.BitmapBlocks())
	assert.True(t, sb.DataStart() >= sb.InodeStart()+sb.InodeBlocks())
	assert.True(t, sb.DataStart() < sb.NBlocks, "must leave room for at least one data block")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	im, err := disk.New(make([]byte, 16*common.BLKSIZE))
	require.NoError(t, err)

	sb := New(16, 32)
	require.NoError(t, sb.Encode(im))

	got, err := Decode(im)
	require.NoError(t, err)
	assert.Equal(t, sb, got)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	im, err := disk.New(make([]byte, 16*common.BLKSIZE))
	require.NoError(t, err)

	_, err = Decode(im)
	assert.Error(t, err, "a zeroed image has no valid magic")
}

func TestDecodeRejectsMismatchedSize(t *testing.T) {
	im, err := disk.New(make([]byte, 16*common.BLKSIZE))
	require.NoError(t, err)

	sb := New(999, 32)
	require.NoError(t, sb.Encode(im))

	_, err = Decode(im)
	assert.Error(t, err, "superblock claiming a different block count than the image has must be rejected")
}

func TestInodeBlockAndOffset(t *testing.T) {
	sb := New(256, 64)
	blk0, off0 := sb.InodeBlockAndOffset(0)
	assert.Equal(t, sb.InodeStart(), blk0)
	assert.Equal(t, uint64(0), off0)

	blk1, off1 := sb.InodeBlockAndOffset(1)
	assert.Equal(t, sb.InodeStart(), blk1)
	assert.Equal(t, common.INODESZ, off1)

	blkN, offN := sb.InodeBlockAndOffset(common.INODEBLK)
	assert.Equal(t, sb.InodeStart()+1, blkN)
	assert.Equal(t, uint64(0), offN)
}
