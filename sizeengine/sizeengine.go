// Package sizeengine implements component S: growing and shrinking a
// file or directory's block tree one block at a time, and the
// composite change_size operation built on top. Grounded on the
// allocate/rollback discipline of mit-pdos-go-nfsd's fs.go
// (allocBlock/freeBlock pairs, one bitmap + one inode write per step)
// adapted to the direct/indirect/doubly-indirect shape of
// tchajed-go-nfs's inode and the rollback contract spec.md requires of
// add_block/change_size.
package sizeengine

import (
	"github.com/ospfs/ospfs/bitmap"
	"github.com/ospfs/ospfs/blockindex"
	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/inode"
	"github.com/ospfs/ospfs/ospfserr"
	"github.com/ospfs/ospfs/util"
)

// Engine grows and shrinks inodes' block trees against a mounted image.
type Engine struct {
	im *disk.Image
	bm *bitmap.Bitmap
}

// Mount wraps im and its allocator for size operations.
func Mount(im *disk.Image, bm *bitmap.Bitmap) *Engine {
	return &Engine{im: im, bm: bm}
}

func numBlocks(size uint64) uint64 {
	return util.RoundUp(size, common.BLKSIZE)
}

// zeroAlloc allocates one block and zeroes it, or returns
// ospfserr.ErrNoSpace.
func (e *Engine) zeroAlloc() (common.Bnum, error) {
	bn := e.bm.Allocate()
	if bn == common.NULLBNUM {
		return common.NULLBNUM, ospfserr.ErrNoSpace
	}
	if err := e.im.ZeroBlock(bn); err != nil {
		e.bm.Free(bn)
		return common.NULLBNUM, err
	}
	return bn, nil
}

// AddBlock implements spec.md's add_block contract: appends exactly one
// block, rounding size up to the new block boundary. On NO_SPACE it
// undoes every block it allocated during this call (including any
// indirect/indirect2 scaffold) and leaves ino untouched.
func (e *Engine) AddBlock(ino *inode.Inode) error {
	n := numBlocks(ino.Size)
	if n >= common.MAXFILEBLOCKS {
		return ospfserr.ErrNoSpace
	}

	var allocated []common.Bnum
	rollback := func() {
		for _, bn := range allocated {
			e.bm.Free(bn)
		}
	}

	loc := blockindex.LocateBlock(n)

	if loc.Direct {
		bn, err := e.zeroAlloc()
		if err != nil {
			return err
		}
		ino.Direct[loc.DirectSlot] = bn
		ino.Size = (n + 1) * common.BLKSIZE
		return nil
	}

	if !loc.ViaIndirect2 {
		indirect := ino.Indirect
		if indirect == common.NULLBNUM {
			bn, err := e.zeroAlloc()
			if err != nil {
				rollback()
				return err
			}
			allocated = append(allocated, bn)
			indirect = bn
		}
		data, err := e.zeroAlloc()
		if err != nil {
			rollback()
			return err
		}
		allocated = append(allocated, data)
		if err := blockindex.WriteIndirectSlot(e.im, indirect, loc.LeafSlot, data); err != nil {
			rollback()
			return err
		}
		ino.Indirect = indirect
		ino.Size = (n + 1) * common.BLKSIZE
		return nil
	}

	indirect2 := ino.Indirect2
	if indirect2 == common.NULLBNUM {
		bn, err := e.zeroAlloc()
		if err != nil {
			rollback()
			return err
		}
		allocated = append(allocated, bn)
		indirect2 = bn
	}

	mid, err := blockindex.ReadIndirectSlot(e.im, indirect2, loc.MidSlot)
	if err != nil {
		rollback()
		return err
	}
	midNew := false
	if mid == common.NULLBNUM {
		bn, err := e.zeroAlloc()
		if err != nil {
			rollback()
			return err
		}
		allocated = append(allocated, bn)
		mid = bn
		midNew = true
		if err := blockindex.WriteIndirectSlot(e.im, indirect2, loc.MidSlot, mid); err != nil {
			rollback()
			return err
		}
	}

	data, err := e.zeroAlloc()
	if err != nil {
		if midNew {
			blockindex.WriteIndirectSlot(e.im, indirect2, loc.MidSlot, common.NULLBNUM)
		}
		rollback()
		return err
	}
	allocated = append(allocated, data)
	if err := blockindex.WriteIndirectSlot(e.im, mid, loc.LeafSlot, data); err != nil {
		rollback()
		return err
	}

	ino.Indirect2 = indirect2
	ino.Size = (n + 1) * common.BLKSIZE
	util.DPrintf(5, "sizeengine: add_block inum %d -> %d blocks\n", ino.Inum, n+1)
	return nil
}

// RemoveBlock implements spec.md's remove_block contract: drops the
// last data block and, when it was the sole occupant of an indirect or
// doubly-indirect scaffold block, frees that scaffold too.
func (e *Engine) RemoveBlock(ino *inode.Inode) error {
	n := numBlocks(ino.Size)
	if n == 0 {
		return nil
	}
	last := n - 1
	loc := blockindex.LocateBlock(last)

	if loc.Direct {
		bn := ino.Direct[loc.DirectSlot]
		e.bm.Free(bn)
		ino.Direct[loc.DirectSlot] = common.NULLBNUM
		ino.Size = last * common.BLKSIZE
		return nil
	}

	if !loc.ViaIndirect2 {
		if ino.Indirect == common.NULLBNUM {
			return ospfserr.ErrIO
		}
		data, err := blockindex.ReadIndirectSlot(e.im, ino.Indirect, loc.LeafSlot)
		if err != nil {
			return err
		}
		e.bm.Free(data)
		if err := blockindex.WriteIndirectSlot(e.im, ino.Indirect, loc.LeafSlot, common.NULLBNUM); err != nil {
			return err
		}
		if loc.LeafSlot == 0 {
			e.bm.Free(ino.Indirect)
			ino.Indirect = common.NULLBNUM
		}
		ino.Size = last * common.BLKSIZE
		return nil
	}

	if ino.Indirect2 == common.NULLBNUM {
		return ospfserr.ErrIO
	}
	mid, err := blockindex.ReadIndirectSlot(e.im, ino.Indirect2, loc.MidSlot)
	if err != nil {
		return err
	}
	if mid == common.NULLBNUM {
		return ospfserr.ErrIO
	}
	data, err := blockindex.ReadIndirectSlot(e.im, mid, loc.LeafSlot)
	if err != nil {
		return err
	}
	e.bm.Free(data)
	if err := blockindex.WriteIndirectSlot(e.im, mid, loc.LeafSlot, common.NULLBNUM); err != nil {
		return err
	}
	if loc.LeafSlot == 0 {
		e.bm.Free(mid)
		if err := blockindex.WriteIndirectSlot(e.im, ino.Indirect2, loc.MidSlot, common.NULLBNUM); err != nil {
			return err
		}
		if loc.MidSlot == 0 {
			e.bm.Free(ino.Indirect2)
			ino.Indirect2 = common.NULLBNUM
		}
	}
	ino.Size = last * common.BLKSIZE
	util.DPrintf(5, "sizeengine: remove_block inum %d -> %d blocks\n", ino.Inum, last)
	return nil
}

// ChangeSize implements change_size: grows or shrinks ino to exactly
// target bytes, rounded up to whole blocks of storage. A NO_SPACE
// failure during growth rolls the inode all the way back to its
// original size; an IO failure propagates immediately without rollback,
// since it already signals corruption.
func (e *Engine) ChangeSize(ino *inode.Inode, target uint64) error {
	origSize := ino.Size
	origN := numBlocks(origSize)
	targetN := numBlocks(target)

	if targetN > origN {
		for numBlocks(ino.Size) < targetN {
			if err := e.AddBlock(ino); err != nil {
				if err == ospfserr.ErrNoSpace {
					for numBlocks(ino.Size) > origN {
						if rerr := e.RemoveBlock(ino); rerr != nil {
							return rerr
						}
					}
					ino.Size = origSize
					return ospfserr.ErrNoSpace
				}
				return err
			}
		}
		ino.Size = target
		return nil
	}

	for numBlocks(ino.Size) > targetN {
		if err := e.RemoveBlock(ino); err != nil {
			return err
		}
	}
	ino.Size = target
	return nil
}
