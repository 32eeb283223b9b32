// Package blockindex implements component I: the pure translation from
// an (inode, byte offset) pair to the block number that holds it,
// walking the direct / indirect / doubly-indirect tables. Nothing here
// touches the allocator or mutates an inode; size_engine builds the
// growth and shrink operations on top of BlockOf and the raw slot
// accessors this package exposes.
package blockindex

import (
	"encoding/binary"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/inode"
	"github.com/ospfs/ospfs/ospfserr"
)

// Region locates a single block-number slot: either a direct slot of
// the inode itself, or a slot within an indirect block identified by
// its own block number and slot index.
type Region struct {
	// Indirect is common.NULLBNUM when the slot is a direct slot.
	Indirect common.Bnum
	Slot     uint64
}

func getSlot(im *disk.Image, blkno common.Bnum, slot uint64) (common.Bnum, error) {
	blk, err := im.Block(blkno)
	if err != nil {
		return 0, err
	}
	off := slot * 4
	return common.Bnum(binary.LittleEndian.Uint32(blk[off : off+4])), nil
}

func putSlot(im *disk.Image, blkno common.Bnum, slot uint64, v common.Bnum) error {
	blk, err := im.Block(blkno)
	if err != nil {
		return err
	}
	off := slot * 4
	binary.LittleEndian.PutUint32(blk[off:off+4], uint32(v))
	return nil
}

// BlockOf locates the n-th block of a file/dir inode (n is a block
// index, floor(offset/BLKSIZE), not a byte offset). It returns common.NULLBNUM (with no error)
// when the slot exists but has never been written — callers treat that
// as a hole, since size_engine guarantees every block up to size is
// allocated and this package never allocates.
func BlockOf(im *disk.Image, ino *inode.Inode, n uint64) (common.Bnum, error) {
	if ino.Ftype == common.FtypeSymlink {
		panic("blockindex: BlockOf called on a symlink inode")
	}
	if n < common.ND {
		return ino.Direct[n], nil
	}
	n -= common.ND
	if n < common.NI {
		if ino.Indirect == common.NULLBNUM {
			return common.NULLBNUM, nil
		}
		return getSlot(im, ino.Indirect, n)
	}
	n -= common.NI
	i1 := n / common.NI
	i2 := n % common.NI
	if ino.Indirect2 == common.NULLBNUM {
		return common.NULLBNUM, nil
	}
	mid, err := getSlot(im, ino.Indirect2, i1)
	if err != nil {
		return 0, err
	}
	if mid == common.NULLBNUM {
		return common.NULLBNUM, nil
	}
	return getSlot(im, mid, i2)
}

// Locate describes where the n-th block pointer itself is stored (not
// the data block it points to), for callers that need to write it:
// either a direct slot on the inode, or a slot inside an indirect
// block. For the doubly-indirect range it also reports the slot of the
// intermediate (first-level) indirect block under Indirect2.
type Locate struct {
	Direct      bool // true: the pointer lives at ino.Direct[DirectSlot]
	DirectSlot  uint64
	ViaIndirect2 bool // true: reached through Indirect2 (two levels)
	MidSlot     uint64 // slot of the first-level indirect block under Indirect2
	LeafSlot    uint64 // slot of the data block under the (possibly intermediate) indirect block
}

// LocateBlock computes where block n's pointer is stored, without
// resolving intermediate indirect blocks' contents.
func LocateBlock(n uint64) Locate {
	if n < common.ND {
		return Locate{Direct: true, DirectSlot: n}
	}
	n -= common.ND
	if n < common.NI {
		return Locate{LeafSlot: n}
	}
	n -= common.NI
	return Locate{ViaIndirect2: true, MidSlot: n / common.NI, LeafSlot: n % common.NI}
}

// ReadIndirectSlot reads slot `slot` of the indirect block at blkno.
func ReadIndirectSlot(im *disk.Image, blkno common.Bnum, slot uint64) (common.Bnum, error) {
	if blkno == common.NULLBNUM {
		return 0, ospfserr.ErrIO
	}
	return getSlot(im, blkno, slot)
}

// WriteIndirectSlot writes slot `slot` of the indirect block at blkno.
func WriteIndirectSlot(im *disk.Image, blkno common.Bnum, slot uint64, v common.Bnum) error {
	if blkno == common.NULLBNUM {
		return ospfserr.ErrIO
	}
	return putSlot(im, blkno, slot, v)
}
