// Package inode implements the fixed-layout, 128-byte on-disk inode
// record (component C) — both its two shapes, a regular/directory inode
// addressing blocks through Direct/Indirect/Indirect2, and a symlink
// inode storing its target inline — and the table of them that lives at
// superblock.InodeStart(). Grounded on tchajed-go-nfs's encodeInode/
// decodeInode (marshal-based fixed record) and mit-pdos-go-nfsd's
// readInode/writeInode/allocInode/freeInode (table scan + free list by
// Ftype).
package inode

import (
	"encoding/binary"

	"github.com/tchajed/marshal"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/ospfserr"
	"github.com/ospfs/ospfs/superblock"
	"github.com/ospfs/ospfs/util"
)

// headerSize is the Size/Ftype/Nlink/Mode prefix common to both shapes;
// the remaining common.INODESZ-headerSize bytes hold either the
// block-pointer body or the inline symlink target. Ftype and Mode are
// 4-byte fields, so they're encoded directly via encoding/binary rather
// than marshal's 8-byte int API — the same reason blockindex.go gives
// for not using marshal on a single 4-byte block-number slot.
const headerSize = 8 + 4 + 8 + 4 // Size + Ftype + Nlink + Mode

// Inode is the in-memory form of one on-disk record. Only one of the two
// shapes is meaningful at a time, selected by Ftype: FtypeSymlink uses
// Target and ignores Direct/Indirect/Indirect2, every other type is the
// reverse.
type Inode struct {
	Inum  common.Inum
	Size  uint64 // bytes; for a symlink, the length of the encoded Target
	Ftype common.Ftype
	Nlink uint64
	Mode  uint32

	Direct    [common.ND]common.Bnum
	Indirect  common.Bnum
	Indirect2 common.Bnum

	Target []byte // <= common.MAXSYMLINKLEN, meaningful only when Ftype == FtypeSymlink
}

func mkFree(inum common.Inum) *Inode {
	return &Inode{Inum: inum, Ftype: common.FtypeFree}
}

func decode(inum common.Inum, b []byte) *Inode {
	ino := &Inode{Inum: inum}
	ino.Size = binary.LittleEndian.Uint64(b[0:8])
	ino.Ftype = common.Ftype(binary.LittleEndian.Uint32(b[8:12]))
	ino.Nlink = binary.LittleEndian.Uint64(b[12:20])
	ino.Mode = binary.LittleEndian.Uint32(b[20:24])

	body := b[headerSize:common.INODESZ]
	if ino.Ftype == common.FtypeSymlink {
		bdec := marshal.NewDec(body[:8])
		n := bdec.GetInt()
		if n > common.MAXSYMLINKLEN {
			n = common.MAXSYMLINKLEN
		}
		ino.Target = append([]byte(nil), body[8:8+n]...)
		return ino
	}

	bdec := marshal.NewDec(body)
	direct := bdec.GetInts(common.ND)
	for i := uint64(0); i < common.ND; i++ {
		ino.Direct[i] = direct[i]
	}
	ino.Indirect = bdec.GetInt()
	ino.Indirect2 = bdec.GetInt()
	return ino
}

func (ino *Inode) encode() []byte {
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(hdr[0:8], ino.Size)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(ino.Ftype))
	binary.LittleEndian.PutUint64(hdr[12:20], ino.Nlink)
	binary.LittleEndian.PutUint32(hdr[20:24], ino.Mode)

	body := make([]byte, common.INODESZ-headerSize)
	if ino.Ftype == common.FtypeSymlink {
		benc := marshal.NewEnc(8)
		benc.PutInt(uint64(len(ino.Target)))
		copy(body, benc.Finish())
		copy(body[8:], ino.Target)
	} else {
		direct := make([]uint64, common.ND)
		for i := uint64(0); i < common.ND; i++ {
			direct[i] = ino.Direct[i]
		}
		benc := marshal.NewEnc(uint64(len(body)))
		benc.PutInts(direct)
		benc.PutInt(ino.Indirect)
		benc.PutInt(ino.Indirect2)
		copy(body, benc.Finish())
	}

	out := make([]byte, common.INODESZ)
	copy(out, hdr)
	copy(out[headerSize:], body)
	return out
}

// Table is the inode table of a mounted image.
type Table struct {
	im *disk.Image
	sb *superblock.Superblock
}

// Mount wraps the inode table region described by sb.
func Mount(im *disk.Image, sb *superblock.Superblock) *Table {
	return &Table{im: im, sb: sb}
}

// Read loads inode inum from the table.
func (t *Table) Read(inum common.Inum) (*Inode, error) {
	if inum == common.NULLINUM || inum >= t.sb.NInodes {
		return nil, ospfserr.ErrNotFound
	}
	blkno, off := t.sb.InodeBlockAndOffset(inum)
	blk, err := t.im.Block(blkno)
	if err != nil {
		return nil, err
	}
	return decode(inum, blk[off:off+common.INODESZ]), nil
}

// Write persists ino back to its slot in the table.
func (t *Table) Write(ino *Inode) error {
	if ino.Inum == common.NULLINUM || ino.Inum >= t.sb.NInodes {
		return ospfserr.ErrNotFound
	}
	blkno, off := t.sb.InodeBlockAndOffset(ino.Inum)
	blk, err := t.im.Block(blkno)
	if err != nil {
		return err
	}
	copy(blk[off:off+common.INODESZ], ino.encode())
	return nil
}

// Alloc scans the table for the lowest-numbered free inode, starting
// just past the permanently reserved inum 0 (free-list terminator) and
// common.ROOTINUM (the root directory, allocated once by mkfs and never
// freed), and returns it initialized to ftype with Nlink 1. It returns
// ospfserr.ErrNoSpace if the table is full.
func (t *Table) Alloc(ftype common.Ftype, mode uint32) (*Inode, error) {
	for inum := common.ROOTINUM + 1; inum < t.sb.NInodes; inum++ {
		ino, err := t.Read(inum)
		if err != nil {
			return nil, err
		}
		if ino.Ftype != common.FtypeFree {
			continue
		}
		ino.Ftype = ftype
		ino.Mode = mode
		ino.Nlink = 1
		ino.Size = 0
		ino.Direct = [common.ND]common.Bnum{}
		ino.Indirect = common.NULLBNUM
		ino.Indirect2 = common.NULLBNUM
		ino.Target = nil
		if err := t.Write(ino); err != nil {
			return nil, err
		}
		util.DPrintf(5, "inode: alloc %d type %v\n", inum, ftype)
		return ino, nil
	}
	return nil, ospfserr.ErrNoSpace
}

// InitRoot initializes the permanently-reserved root directory inode.
// Used once by mkfs; Alloc never hands out common.ROOTINUM.
func (t *Table) InitRoot(mode uint32) (*Inode, error) {
	ino := &Inode{
		Inum:      common.ROOTINUM,
		Ftype:     common.FtypeDir,
		Mode:      mode,
		Nlink:     1,
		Indirect:  common.NULLBNUM,
		Indirect2: common.NULLBNUM,
	}
	if err := t.Write(ino); err != nil {
		return nil, err
	}
	return ino, nil
}

// Free marks inum's slot free. Callers must have already released its
// data blocks (size engine's responsibility, not this package's).
func (t *Table) Free(inum common.Inum) error {
	if inum == common.NULLINUM || inum == common.ROOTINUM {
		panic("inode: attempt to free reserved inode")
	}
	ino, err := t.Read(inum)
	if err != nil {
		return err
	}
	*ino = *mkFree(inum)
	util.DPrintf(5, "inode: free %d\n", inum)
	return t.Write(ino)
}
