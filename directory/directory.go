// Package directory implements component D: directory data is just a
// file's packed entry array, walked block-by-block through blockindex.
// Grounded on mit-pdos-go-nfsd's dir.go (lookupName/addName linear
// scans over Dirent-sized slots) adapted to this module's direntry
// codec and sizeengine-backed growth.
package directory

import (
	"github.com/ospfs/ospfs/blockindex"
	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/direntry"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/inode"
	"github.com/ospfs/ospfs/ospfserr"
	"github.com/ospfs/ospfs/sizeengine"
)

// Slot names a live directory entry's position, for callers (namespace
// ops) that need to overwrite or blank it in place.
type Slot struct {
	Block common.Bnum
	Off   uint64 // byte offset of the entry within the block
}

// Dir wraps a directory inode for entry-level operations.
type Dir struct {
	im  *disk.Image
	eng *sizeengine.Engine
	ino *inode.Inode
}

// Mount wraps dir (which must be a directory inode) for entry access.
func Mount(im *disk.Image, eng *sizeengine.Engine, dir *inode.Inode) *Dir {
	if dir.Ftype != common.FtypeDir {
		panic("directory: Mount called on a non-directory inode")
	}
	return &Dir{im: im, eng: eng, ino: dir}
}

func (d *Dir) numEntries() uint64 {
	return d.ino.Size / common.DIRENTRYSIZE
}

func (d *Dir) readSlot(i uint64) (direntry.Entry, Slot, error) {
	blockNum := i / direntry.PerBlock
	within := i % direntry.PerBlock
	blkno, err := blockindex.BlockOf(d.im, d.ino, blockNum)
	if err != nil {
		return direntry.Entry{}, Slot{}, err
	}
	if blkno == common.NULLBNUM {
		return direntry.Entry{}, Slot{}, ospfserr.ErrIO
	}
	blk, err := d.im.Block(blkno)
	if err != nil {
		return direntry.Entry{}, Slot{}, err
	}
	off := within * common.DIRENTRYSIZE
	return direntry.Decode(blk[off : off+common.DIRENTRYSIZE]), Slot{Block: blkno, Off: off}, nil
}

// WriteSlot overwrites the entry at s.
func (d *Dir) WriteSlot(s Slot, e direntry.Entry) error {
	blk, err := d.im.Block(s.Block)
	if err != nil {
		return err
	}
	return direntry.Encode(e, blk[s.Off:s.Off+common.DIRENTRYSIZE])
}

// FindEntry linearly scans for an entry named name. It returns
// (entry, slot, true, nil) on a match, (zero, zero, false, nil) when
// absent, and a non-nil error only on an underlying invariant breach.
func (d *Dir) FindEntry(name string) (direntry.Entry, Slot, bool, error) {
	n := d.numEntries()
	for i := uint64(0); i < n; i++ {
		e, slot, err := d.readSlot(i)
		if err != nil {
			return direntry.Entry{}, Slot{}, false, err
		}
		if !e.Blank() && e.Name == name {
			return e, slot, true, nil
		}
	}
	return direntry.Entry{}, Slot{}, false, nil
}

// CreateBlankEntry returns the first blank slot, growing the directory
// by one block via change_size when none exists. Propagates
// ospfserr.ErrNoSpace.
func (d *Dir) CreateBlankEntry() (Slot, error) {
	n := d.numEntries()
	for i := uint64(0); i < n; i++ {
		e, slot, err := d.readSlot(i)
		if err != nil {
			return Slot{}, err
		}
		if e.Blank() {
			return slot, nil
		}
	}

	currentBlocks := d.ino.Size / common.BLKSIZE
	if err := d.eng.ChangeSize(d.ino, (currentBlocks+1)*common.BLKSIZE); err != nil {
		return Slot{}, err
	}
	_, slot, err := d.readSlot(n)
	return slot, err
}

// Iterate calls emit for every non-blank entry in order, stopping early
// if emit returns false.
func (d *Dir) Iterate(emit func(direntry.Entry) bool) error {
	n := d.numEntries()
	for i := uint64(0); i < n; i++ {
		e, _, err := d.readSlot(i)
		if err != nil {
			return err
		}
		if e.Blank() {
			continue
		}
		if !emit(e) {
			break
		}
	}
	return nil
}
