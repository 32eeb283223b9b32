// Package ospfs wires components A-N into the Filesystem handle a host
// adapter mounts and drives: the free-block bitmap, the inode table,
// the block index, the size engine, the directory engine, file I/O,
// namespace operations, and the symlink codec. Grounded on
// mit-pdos-go-nfsd's FsSuper/Fs split (a superblock-derived geometry
// object plus a thin top-level type exposing the VFS-shaped entry
// points), adapted to a single-root, no-subdirectory namespace: create
// only ever makes regular files, so the root directory inode is the
// only directory that exists for the lifetime of an image.
package ospfs

import (
	"github.com/ospfs/ospfs/bitmap"
	"github.com/ospfs/ospfs/blockindex"
	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/direntry"
	"github.com/ospfs/ospfs/directory"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/fileio"
	"github.com/ospfs/ospfs/inode"
	"github.com/ospfs/ospfs/ospfserr"
	"github.com/ospfs/ospfs/sizeengine"
	"github.com/ospfs/ospfs/superblock"
	"github.com/ospfs/ospfs/symlink"
	"github.com/ospfs/ospfs/util"
)

// Options configures behavior spec.md leaves as an open question.
type Options struct {
	// SymmetricDirlink, when true, stops symlink/unlink from adjusting
	// the root directory's nlink the asymmetric way the reference C
	// source does (increment on every symlink, decrement on every
	// unlink regardless of what was unlinked). Default false preserves
	// bit-for-bit compatibility with pre-built reference images.
	SymmetricDirlink bool
}

// Params sizes a fresh image for Mkfs.
type Params struct {
	Blocks uint64
	Inodes uint64
}

// Filesystem is a mounted OSPFS image and the component handles wired
// against it.
type Filesystem struct {
	im  *disk.Image
	sb  *superblock.Superblock
	bm  *bitmap.Bitmap
	tbl *inode.Table
	eng *sizeengine.Engine
	io  *fileio.IO
	opt Options
}

// Mount opens an already-initialized image (its own byte region, not a
// file -- the host is responsible for any cross-restart loading).
func Mount(bytes []byte, opt Options) (*Filesystem, error) {
	im, err := disk.New(bytes)
	if err != nil {
		return nil, err
	}
	sb, err := superblock.Decode(im)
	if err != nil {
		return nil, err
	}
	bm := bitmap.Mount(im, sb.BitmapStart(), sb.BitmapBlocks(), sb.DataStart())
	tbl := inode.Mount(im, sb)
	eng := sizeengine.Mount(im, bm)
	io := fileio.Mount(im, eng)
	return &Filesystem{im: im, sb: sb, bm: bm, tbl: tbl, eng: eng, io: io, opt: opt}, nil
}

// Mkfs lays out a fresh image of the given geometry: superblock,
// zeroed bitmap with the metadata region and the inode table's tail
// marked permanently allocated, and a root directory inode.
func Mkfs(bytes []byte, p Params, opt Options) (*Filesystem, error) {
	im, err := disk.New(bytes)
	if err != nil {
		return nil, err
	}
	sb := superblock.New(p.Blocks, p.Inodes)
	if sb.DataStart() >= sb.NBlocks {
		return nil, ospfserr.ErrNoSpace
	}
	if err := sb.Encode(im); err != nil {
		return nil, err
	}

	bm := bitmap.Mount(im, sb.BitmapStart(), sb.BitmapBlocks(), sb.DataStart())
	bm.InitRegion()

	tbl := inode.Mount(im, sb)
	if _, err := tbl.InitRoot(0755); err != nil {
		return nil, err
	}

	eng := sizeengine.Mount(im, bm)
	io := fileio.Mount(im, eng)
	fs := &Filesystem{im: im, sb: sb, bm: bm, tbl: tbl, eng: eng, io: io, opt: opt}

	util.DPrintf(3, "ospfs: mkfs %d blocks, %d inodes\n", p.Blocks, p.Inodes)
	return fs, nil
}

func (fs *Filesystem) root() (*inode.Inode, error) {
	return fs.tbl.Read(common.ROOTINUM)
}

// readLive reads inum and rejects a freed (Ftype == FtypeFree) slot as
// not found -- the table keeps serving free slots internally (Alloc
// scans them), but a host handing in a stale inum should see NOTFOUND,
// not a zeroed record.
func (fs *Filesystem) readLive(inum common.Inum) (*inode.Inode, error) {
	ino, err := fs.tbl.Read(inum)
	if err != nil {
		return nil, err
	}
	if ino.Ftype == common.FtypeFree {
		return nil, ospfserr.ErrNotFound
	}
	return ino, nil
}

func (fs *Filesystem) rootDir() (*directory.Dir, *inode.Inode, error) {
	root, err := fs.root()
	if err != nil {
		return nil, nil, err
	}
	return directory.Mount(fs.im, fs.eng, root), root, nil
}

// Lookup resolves name in the root directory.
func (fs *Filesystem) Lookup(name string) (common.Inum, error) {
	d, _, err := fs.rootDir()
	if err != nil {
		return common.NULLINUM, err
	}
	e, _, found, err := d.FindEntry(name)
	if err != nil {
		return common.NULLINUM, err
	}
	if !found {
		return common.NULLINUM, ospfserr.ErrNotFound
	}
	return e.Ino, nil
}

// DirEntry is one entry a Readdir callback receives.
type DirEntry struct {
	Name   string
	Inum   common.Inum
	Ftype  common.Ftype
	Cursor uint64
}

// Readdir walks the root directory starting at cursor (0 begins at
// "."), calling emit for each entry and stopping when emit returns
// false or the directory is exhausted. It returns the cursor value to
// resume from.
func (fs *Filesystem) Readdir(cursor uint64, emit func(DirEntry) bool) (uint64, error) {
	root, err := fs.root()
	if err != nil {
		return cursor, err
	}

	if cursor == 0 {
		if !emit(DirEntry{Name: ".", Inum: common.ROOTINUM, Ftype: common.FtypeDir, Cursor: 0}) {
			return 1, nil
		}
		cursor = 1
	}
	if cursor == 1 {
		if !emit(DirEntry{Name: "..", Inum: common.ROOTINUM, Ftype: common.FtypeDir, Cursor: 1}) {
			return 2, nil
		}
		cursor = 2
	}

	n := root.Size / common.DIRENTRYSIZE
	for i := cursor - 2; i < n; i++ {
		blockNum := i / direntry.PerBlock
		within := i % direntry.PerBlock
		bn, err := blockOfDir(fs, root, blockNum)
		if err != nil {
			return i + 2, err
		}
		blk, err := fs.im.Block(bn)
		if err != nil {
			return i + 2, err
		}
		off := within * common.DIRENTRYSIZE
		e := direntry.Decode(blk[off : off+common.DIRENTRYSIZE])
		if e.Blank() {
			continue
		}
		childIno, err := fs.tbl.Read(e.Ino)
		if err != nil {
			return i + 2, err
		}
		if !emit(DirEntry{Name: e.Name, Inum: e.Ino, Ftype: childIno.Ftype, Cursor: i + 2}) {
			return i + 3, nil
		}
	}
	return n + 2, nil
}

// Create makes a new regular file named name in the root directory.
func (fs *Filesystem) Create(name string, mode uint32) (common.Inum, error) {
	if uint64(len(name)) > common.MAXNAMELEN {
		return common.NULLINUM, ospfserr.ErrNameTooLong
	}
	d, root, err := fs.rootDir()
	if err != nil {
		return common.NULLINUM, err
	}
	if _, _, found, err := d.FindEntry(name); err != nil {
		return common.NULLINUM, err
	} else if found {
		return common.NULLINUM, ospfserr.ErrExist
	}

	ino, err := fs.tbl.Alloc(common.FtypeReg, mode)
	if err != nil {
		return common.NULLINUM, err
	}

	slot, err := d.CreateBlankEntry()
	if err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}
	if err := fs.tbl.Write(root); err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}
	if err := d.WriteSlot(slot, direntry.Entry{Ino: ino.Inum, Name: name}); err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}
	return ino.Inum, nil
}

// Link adds name in the root directory pointing at the existing
// regular-file inode srcInum.
func (fs *Filesystem) Link(srcInum common.Inum, name string) error {
	if uint64(len(name)) > common.MAXNAMELEN {
		return ospfserr.ErrNameTooLong
	}
	src, err := fs.readLive(srcInum)
	if err != nil {
		return err
	}
	if src.Ftype != common.FtypeReg {
		return ospfserr.ErrPerm
	}

	d, root, err := fs.rootDir()
	if err != nil {
		return err
	}
	if _, _, found, err := d.FindEntry(name); err != nil {
		return err
	} else if found {
		return ospfserr.ErrExist
	}
	if util.SumOverflows(src.Nlink, 1) {
		return ospfserr.ErrIO
	}

	slot, err := d.CreateBlankEntry()
	if err != nil {
		return err
	}
	if err := fs.tbl.Write(root); err != nil {
		return err
	}
	if err := d.WriteSlot(slot, direntry.Entry{Ino: srcInum, Name: name}); err != nil {
		return err
	}
	src.Nlink++
	return fs.tbl.Write(src)
}

// Unlink removes name from the root directory, decrementing the
// referenced inode's nlink and freeing it (and its data) once nlink
// reaches zero.
func (fs *Filesystem) Unlink(name string) error {
	d, root, err := fs.rootDir()
	if err != nil {
		return err
	}
	e, slot, found, err := d.FindEntry(name)
	if err != nil {
		return err
	}
	if !found {
		return ospfserr.ErrNotFound
	}

	if err := d.WriteSlot(slot, direntry.Entry{}); err != nil {
		return err
	}

	target, err := fs.tbl.Read(e.Ino)
	if err != nil {
		return err
	}
	if target.Nlink > 0 {
		target.Nlink--
	}
	if target.Nlink == 0 {
		if target.Ftype != common.FtypeSymlink {
			if err := fs.eng.ChangeSize(target, 0); err != nil {
				return err
			}
		}
		if err := fs.tbl.Free(target.Inum); err != nil {
			return err
		}
	} else {
		if err := fs.tbl.Write(target); err != nil {
			return err
		}
	}

	if !fs.opt.SymmetricDirlink {
		if root.Nlink > 0 {
			root.Nlink--
		}
		if err := fs.tbl.Write(root); err != nil {
			return err
		}
	}
	return nil
}

// Symlink creates name in the root directory as a symlink to target.
func (fs *Filesystem) Symlink(name, target string) (common.Inum, error) {
	if uint64(len(name)) > common.MAXNAMELEN {
		return common.NULLINUM, ospfserr.ErrNameTooLong
	}
	encoded, err := symlink.Encode(target)
	if err != nil {
		return common.NULLINUM, err
	}

	d, root, err := fs.rootDir()
	if err != nil {
		return common.NULLINUM, err
	}
	if _, _, found, err := d.FindEntry(name); err != nil {
		return common.NULLINUM, err
	} else if found {
		return common.NULLINUM, ospfserr.ErrExist
	}

	ino, err := fs.tbl.Alloc(common.FtypeSymlink, 0777)
	if err != nil {
		return common.NULLINUM, err
	}
	ino.Target = encoded
	ino.Size = uint64(len(encoded))
	if err := fs.tbl.Write(ino); err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}

	slot, err := d.CreateBlankEntry()
	if err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}
	if err := d.WriteSlot(slot, direntry.Entry{Ino: ino.Inum, Name: name}); err != nil {
		fs.tbl.Free(ino.Inum)
		return common.NULLINUM, err
	}

	if !fs.opt.SymmetricDirlink {
		root.Nlink++
	}
	if err := fs.tbl.Write(root); err != nil {
		return common.NULLINUM, err
	}
	return ino.Inum, nil
}

// FollowSymlink resolves the symlink inode at inum for the calling uid.
func (fs *Filesystem) FollowSymlink(inum common.Inum, uid uint32) (string, error) {
	ino, err := fs.readLive(inum)
	if err != nil {
		return "", err
	}
	if ino.Ftype != common.FtypeSymlink {
		return "", ospfserr.ErrPerm
	}
	return symlink.Resolve(ino.Target, uid)
}

// Read reads up to count bytes from inum at pos into buf.
func (fs *Filesystem) Read(inum common.Inum, buf fileio.UserBuffer, count, pos uint64) (uint64, error) {
	ino, err := fs.readLive(inum)
	if err != nil {
		return 0, err
	}
	if ino.Ftype == common.FtypeSymlink {
		return 0, ospfserr.ErrPerm
	}
	return fs.io.Read(ino, buf, count, pos)
}

// Write writes count bytes from buf into inum at pos (or at the
// current size if append is set).
func (fs *Filesystem) Write(inum common.Inum, buf fileio.UserBuffer, count, pos uint64, append bool) (uint64, error) {
	ino, err := fs.readLive(inum)
	if err != nil {
		return 0, err
	}
	if ino.Ftype == common.FtypeSymlink {
		return 0, ospfserr.ErrPerm
	}
	n, err := fs.io.Write(ino, buf, count, pos, append)
	if werr := fs.tbl.Write(ino); werr != nil && err == nil {
		err = werr
	}
	return n, err
}

// Truncate resizes inum to newSize.
func (fs *Filesystem) Truncate(inum common.Inum, newSize uint64) error {
	ino, err := fs.readLive(inum)
	if err != nil {
		return err
	}
	if ino.Ftype == common.FtypeSymlink || ino.Ftype == common.FtypeDir {
		return ospfserr.ErrPerm
	}
	if err := fs.eng.ChangeSize(ino, newSize); err != nil {
		return err
	}
	return fs.tbl.Write(ino)
}

// Stat describes an inode's metadata, including (§7 supplement) the
// number of data blocks its size spans, ceil(Size/BLKSIZE); indirect
// and doubly-indirect blocks are not counted, and a symlink reports 0.
type Stat struct {
	Size   uint64
	Ftype  common.Ftype
	Nlink  uint64
	Mode   uint32
	Blocks uint64
}

// Stat reads inum's metadata.
func (fs *Filesystem) Stat(inum common.Inum) (Stat, error) {
	ino, err := fs.readLive(inum)
	if err != nil {
		return Stat{}, err
	}
	blocks := uint64(0)
	if ino.Ftype != common.FtypeSymlink {
		blocks = util.RoundUp(ino.Size, common.BLKSIZE)
	}
	return Stat{Size: ino.Size, Ftype: ino.Ftype, Nlink: ino.Nlink, Mode: ino.Mode, Blocks: blocks}, nil
}

// FreeBlocks returns the number of currently unallocated data blocks.
func (fs *Filesystem) FreeBlocks() uint64 {
	return fs.bm.NumFree()
}

func blockOfDir(fs *Filesystem, dir *inode.Inode, n uint64) (common.Bnum, error) {
	bn, err := blockindex.BlockOf(fs.im, dir, n)
	if err != nil {
		return common.NULLBNUM, err
	}
	if bn == common.NULLBNUM {
		return common.NULLBNUM, ospfserr.ErrIO
	}
	return bn, nil
}
