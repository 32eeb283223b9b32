package ospfs

import (
	"encoding/binary"
	"fmt"

	"github.com/ospfs/ospfs/common"
)

// Check walks every inode and reports the first I1-I7 violation found,
// without attempting any repair. It is read-only consistency tooling,
// grounded the way several of the pack's teaching filesystems expose a
// "check" subcommand over their own image.
func (fs *Filesystem) Check() error {
	referenced := map[common.Bnum]bool{}

	for inum := common.Inum(1); inum < fs.sb.NInodes; inum++ {
		ino, err := fs.tbl.Read(inum)
		if err != nil {
			return fmt.Errorf("check: reading inode %d: %w", inum, err)
		}
		if ino.Ftype == common.FtypeFree {
			continue
		}

		if ino.Nlink == 0 {
			return fmt.Errorf("check: inode %d has nlink 0 but is not free (I7)", inum)
		}

		switch ino.Ftype {
		case common.FtypeSymlink:
			if uint64(len(ino.Target)) != ino.Size {
				return fmt.Errorf("check: symlink inode %d size %d does not match target length %d (I5)", inum, ino.Size, len(ino.Target))
			}
		case common.FtypeReg, common.FtypeDir:
			if ino.Ftype == common.FtypeDir && ino.Size%common.DIRENTRYSIZE != 0 {
				return fmt.Errorf("check: directory inode %d size %d is not a multiple of DIRENTRY_SIZE (I6)", inum, ino.Size)
			}

			n := (ino.Size + common.BLKSIZE - 1) / common.BLKSIZE
			if n <= common.ND && (ino.Indirect != common.NULLBNUM || ino.Indirect2 != common.NULLBNUM) {
				return fmt.Errorf("check: inode %d fits in direct blocks but has indirect/indirect2 set (I3)", inum)
			}
			if n <= common.ND+common.NI && ino.Indirect2 != common.NULLBNUM {
				return fmt.Errorf("check: inode %d fits without indirect2 but has it set (I3)", inum)
			}

			for i, bn := range ino.Direct {
				if uint64(i) < n {
					if bn != common.NULLBNUM {
						if !fs.bm.IsAllocated(bn) {
							return fmt.Errorf("check: inode %d direct[%d] = %d is not marked allocated (I1/I2)", inum, i, bn)
						}
						referenced[bn] = true
					}
				} else if bn != common.NULLBNUM {
					return fmt.Errorf("check: inode %d direct[%d] = %d should be zero past size (I4)", inum, i, bn)
				}
			}

			if ino.Indirect != common.NULLBNUM {
				if !fs.bm.IsAllocated(ino.Indirect) {
					return fmt.Errorf("check: inode %d indirect block %d is not marked allocated (I1/I2)", inum, ino.Indirect)
				}
				referenced[ino.Indirect] = true
				if err := fs.checkIndirectBlock(ino.Indirect, referenced); err != nil {
					return err
				}
			}
			if ino.Indirect2 != common.NULLBNUM {
				if !fs.bm.IsAllocated(ino.Indirect2) {
					return fmt.Errorf("check: inode %d indirect2 block %d is not marked allocated (I1/I2)", inum, ino.Indirect2)
				}
				referenced[ino.Indirect2] = true
				if err := fs.checkDoublyIndirectBlock(ino.Indirect2, referenced); err != nil {
					return err
				}
			}
		}
	}

	for bn := fs.sb.DataStart(); bn < fs.sb.NBlocks; bn++ {
		if fs.bm.IsAllocated(bn) != referenced[bn] {
			return fmt.Errorf("check: block %d allocation state disagrees with inode references (I1)", bn)
		}
	}
	return nil
}

func (fs *Filesystem) checkIndirectBlock(blkno common.Bnum, referenced map[common.Bnum]bool) error {
	blk, err := fs.im.Block(blkno)
	if err != nil {
		return err
	}
	for slot := uint64(0); slot < common.NI; slot++ {
		off := slot * 4
		bn := common.Bnum(binary.LittleEndian.Uint32(blk[off : off+4]))
		if bn == common.NULLBNUM {
			continue
		}
		if !fs.bm.IsAllocated(bn) {
			return fmt.Errorf("check: indirect block %d slot %d = %d is not marked allocated (I1/I2)", blkno, slot, bn)
		}
		referenced[bn] = true
	}
	return nil
}

func (fs *Filesystem) checkDoublyIndirectBlock(blkno common.Bnum, referenced map[common.Bnum]bool) error {
	blk, err := fs.im.Block(blkno)
	if err != nil {
		return err
	}
	for slot := uint64(0); slot < common.NI; slot++ {
		off := slot * 4
		mid := common.Bnum(binary.LittleEndian.Uint32(blk[off : off+4]))
		if mid == common.NULLBNUM {
			continue
		}
		if !fs.bm.IsAllocated(mid) {
			return fmt.Errorf("check: indirect2 block %d slot %d = %d is not marked allocated (I1/I2)", blkno, slot, mid)
		}
		referenced[mid] = true
		if err := fs.checkIndirectBlock(mid, referenced); err != nil {
			return err
		}
	}
	return nil
}
