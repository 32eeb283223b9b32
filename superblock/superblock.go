// Package superblock decodes, encodes, and derives layout geometry from
// an image's superblock — component B's other half (disk.Image gives
// raw block access; superblock gives the block/inode-table geometry
// that everything else is built from). Grounded on the layout math of
// mit-pdos-go-nfsd's FsSuper (bitmapStart/inodeStart/dataStart).
package superblock

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
)

// Block is the fixed block number the superblock always lives at.
const Block common.Bnum = 1

const wireSize = 32 // 4 uint64 fields

// Superblock is the read-only-after-construction geometry of a mounted image.
type Superblock struct {
	Magic           uint64
	NBlocks         uint64
	NInodes         uint64
	FirstInodeBlock common.Bnum
}

// bitmapBlocks is how many blocks the free bitmap needs to cover every
// block of the image, including the bitmap blocks themselves.
func bitmapBlocks(nblocks uint64) uint64 {
	return (nblocks + common.NBITBLOCK - 1) / common.NBITBLOCK
}

// inodeBlocks is how many blocks the inode table needs to hold ninodes
// fixed-size inode records.
func inodeBlocks(ninodes uint64) uint64 {
	return (ninodes + common.INODEBLK - 1) / common.INODEBLK
}

// New computes the geometry for a fresh image of nblocks blocks holding
// ninodes inodes. Block 0 is boot, block 1 is this superblock, the
// bitmap follows, then the inode table, then data.
func New(nblocks, ninodes uint64) *Superblock {
	firstInodeBlock := Block + 1 + bitmapBlocks(nblocks)
	return &Superblock{
		Magic:           common.SBMAGIC,
		NBlocks:         nblocks,
		NInodes:         ninodes,
		FirstInodeBlock: firstInodeBlock,
	}
}

// Decode reads and validates the superblock stored in im.
func Decode(im *disk.Image) (*Superblock, error) {
	blk, err := im.Block(Block)
	if err != nil {
		return nil, err
	}
	dec := marshal.NewDec(blk[:wireSize])
	sb := &Superblock{
		Magic:           dec.GetInt(),
		NBlocks:         dec.GetInt(),
		NInodes:         dec.GetInt(),
		FirstInodeBlock: dec.GetInt(),
	}
	if sb.Magic != common.SBMAGIC {
		return nil, fmt.Errorf("superblock: bad magic %#x (want %#x)", sb.Magic, common.SBMAGIC)
	}
	if sb.NBlocks != im.NBlocks() {
		return nil, fmt.Errorf("superblock: image has %d blocks, superblock claims %d", im.NBlocks(), sb.NBlocks)
	}
	return sb, nil
}

// Encode writes sb into block 1 of im.
func (sb *Superblock) Encode(im *disk.Image) error {
	blk, err := im.Block(Block)
	if err != nil {
		return err
	}
	enc := marshal.NewEnc(wireSize)
	enc.PutInt(sb.Magic)
	enc.PutInt(sb.NBlocks)
	enc.PutInt(sb.NInodes)
	enc.PutInt(sb.FirstInodeBlock)
	copy(blk[:wireSize], enc.Finish())
	return nil
}

// BitmapStart is the first block of the free bitmap.
func (sb *Superblock) BitmapStart() common.Bnum {
	return Block + 1
}

// BitmapBlocks is how many blocks the free bitmap occupies.
func (sb *Superblock) BitmapBlocks() uint64 {
	return bitmapBlocks(sb.NBlocks)
}

// InodeStart is the first block of the inode table.
func (sb *Superblock) InodeStart() common.Bnum {
	return sb.FirstInodeBlock
}

// InodeBlocks is how many blocks the inode table occupies.
func (sb *Superblock) InodeBlocks() uint64 {
	return inodeBlocks(sb.NInodes)
}

// DataStart is the first data block the allocator may hand out.
func (sb *Superblock) DataStart() common.Bnum {
	return sb.InodeStart() + sb.InodeBlocks()
}

// InodeBlockAndOffset locates the on-disk block and byte offset of inum.
func (sb *Superblock) InodeBlockAndOffset(inum common.Inum) (common.Bnum, uint64) {
	blk := sb.InodeStart() + inum/common.INODEBLK
	off := (inum % common.INODEBLK) * common.INODESZ
	return blk, off
}
