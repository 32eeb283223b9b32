// Package disk provides the typed view over the raw byte region that
// backs an OSPFS image: a contiguous slice of memory, addressed in
// fixed-size blocks. This is component B's foundation — block fetch by
// number — on top of which the superblock and inode-table views sit.
//
// There is deliberately no Read/Write/Barrier/Close ceremony here: the
// image is a memory region handed to Mount by the host, not a device.
// Block returns a slice that aliases the backing array, so writes
// through it are visible immediately — there is no cache to flush and
// no crash-consistency story to keep (spec non-goal).
package disk

import (
	"fmt"

	"github.com/ospfs/ospfs/common"
)

// Block is one block-sized window into an Image's backing array.
type Block = []byte

// Image is a pretend disk: a byte region sliced into common.BLKSIZE blocks.
type Image struct {
	bytes []byte
}

// New wraps bytes as an Image. bytes must be a non-zero multiple of
// common.BLKSIZE; New does not copy it.
func New(bytes []byte) (*Image, error) {
	if len(bytes) == 0 || uint64(len(bytes))%common.BLKSIZE != 0 {
		return nil, fmt.Errorf("disk: image size %d is not a positive multiple of block size %d", len(bytes), common.BLKSIZE)
	}
	return &Image{bytes: bytes}, nil
}

// NBlocks reports how many blocks the image holds.
func (im *Image) NBlocks() uint64 {
	return uint64(len(im.bytes)) / common.BLKSIZE
}

// Block returns the block-sized window at bn, aliasing the image's backing
// array. Mutating the returned slice mutates the image in place.
func (im *Image) Block(bn common.Bnum) (Block, error) {
	if bn >= im.NBlocks() {
		return nil, fmt.Errorf("disk: block %d out of range (%d blocks total)", bn, im.NBlocks())
	}
	start := bn * common.BLKSIZE
	return im.bytes[start : start+common.BLKSIZE], nil
}

// ZeroBlock clears the block at bn to all zero bytes.
func (im *Image) ZeroBlock(bn common.Bnum) error {
	b, err := im.Block(bn)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = 0
	}
	return nil
}

// Bytes returns the whole backing array, for dumping or checksumming a
// full image (e.g. by a host adapter's bootstrapper).
func (im *Image) Bytes() []byte {
	return im.bytes
}
