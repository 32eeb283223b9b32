// Package fileio implements component F: byte-range read and write
// against a file or directory inode's block tree, copying into and out
// of a caller-supplied buffer through the UserBuffer indirection so a
// host can report a transfer fault (e.g. an unmapped page) without
// this package knowing anything about the host's memory model.
// Grounded on mit-pdos-go-nfsd's read/write block-at-a-time copy loop,
// and on vsrinivas-fuchsia's msdosfs node ReadAt/WriteAt clamping of a
// request to the current file size.
package fileio

import (
	"github.com/ospfs/ospfs/blockindex"
	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/disk"
	"github.com/ospfs/ospfs/inode"
	"github.com/ospfs/ospfs/ospfserr"
	"github.com/ospfs/ospfs/sizeengine"
	"github.com/ospfs/ospfs/util"
)

// UserBuffer is the host's side of a byte transfer: CopyOut moves bytes
// from the filesystem into the host's destination (a read); CopyIn
// moves bytes from the host's source into the filesystem (a write).
// Both take an offset relative to the start of the host buffer so a
// mock can simulate a fault on only part of a transfer.
type UserBuffer interface {
	// CopyOut copies src into the buffer at the given buffer-relative
	// offset. It returns ospfserr.ErrFault if the transfer cannot
	// complete (e.g. the destination is unmapped).
	CopyOut(off uint64, src []byte) error
	// CopyIn copies len(dst) bytes from the buffer at the given
	// buffer-relative offset into dst. It returns ospfserr.ErrFault on
	// failure.
	CopyIn(off uint64, dst []byte) error
}

// IO performs read/write against a mounted image and allocator.
type IO struct {
	im  *disk.Image
	eng *sizeengine.Engine
}

// Mount wraps im and the size engine used to grow files on write.
func Mount(im *disk.Image, eng *sizeengine.Engine) *IO {
	return &IO{im: im, eng: eng}
}

func blockByteRange(pos uint64) (blockNum uint64, within uint64) {
	return pos / common.BLKSIZE, pos % common.BLKSIZE
}

// Read copies up to count bytes from ino starting at pos into buf,
// clamped to the file's size, and returns the number of bytes copied.
func (io *IO) Read(ino *inode.Inode, buf UserBuffer, count uint64, pos uint64) (uint64, error) {
	if pos >= ino.Size {
		return 0, nil
	}
	remaining := count
	if remaining > ino.Size-pos {
		remaining = ino.Size - pos
	}

	total := uint64(0)
	for remaining > 0 {
		blockNum, within := blockByteRange(pos)
		bn, err := blockindex.BlockOf(io.im, ino, blockNum)
		if err != nil {
			return total, err
		}
		if bn == common.NULLBNUM {
			return total, ospfserr.ErrIO
		}
		blk, err := io.im.Block(bn)
		if err != nil {
			return total, err
		}
		n := common.BLKSIZE - within
		if n > remaining {
			n = remaining
		}
		if err := buf.CopyOut(total, blk[within:within+n]); err != nil {
			return total, err
		}
		pos += n
		total += n
		remaining -= n
	}
	util.DPrintf(6, "fileio: read inum %d pos %d count %d -> %d bytes\n", ino.Inum, pos, count, total)
	return total, nil
}

// Write copies count bytes from buf into ino starting at pos (or at
// ino.Size if append is set), growing the file via change_size when the
// write extends past the current size, and returns the number of bytes
// written.
func (io *IO) Write(ino *inode.Inode, buf UserBuffer, count uint64, pos uint64, append bool) (uint64, error) {
	if append {
		pos = ino.Size
	}
	if util.SumOverflows(pos, count) {
		return 0, ospfserr.ErrIO
	}
	end := pos + count

	if end > ino.Size {
		if err := io.eng.ChangeSize(ino, end); err != nil {
			return 0, err
		}
	}

	remaining := count
	total := uint64(0)
	for remaining > 0 {
		blockNum, within := blockByteRange(pos)
		bn, err := blockindex.BlockOf(io.im, ino, blockNum)
		if err != nil {
			return total, err
		}
		if bn == common.NULLBNUM {
			return total, ospfserr.ErrIO
		}
		blk, err := io.im.Block(bn)
		if err != nil {
			return total, err
		}
		n := common.BLKSIZE - within
		if n > remaining {
			n = remaining
		}
		if err := buf.CopyIn(total, blk[within:within+n]); err != nil {
			return total, err
		}
		pos += n
		total += n
		remaining -= n
	}
	util.DPrintf(6, "fileio: write inum %d pos %d count %d -> %d bytes\n", ino.Inum, pos, count, total)
	return total, nil
}
