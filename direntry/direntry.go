// Package direntry codecs the fixed 64-byte directory entry record
// (component D's wire format): a 4-byte inode number followed by a
// 60-byte NUL-terminated name field. The 4-byte Ino field is encoded
// directly via encoding/binary rather than marshal's 8-byte int API,
// the same reason blockindex.go gives for a single block-number slot.
package direntry

import (
	"encoding/binary"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/ospfserr"
)

// Entry is one slot of a directory's data: Ino == 0 marks it blank.
type Entry struct {
	Ino  common.Inum
	Name string
}

// PerBlock is how many directory entries fit in one block.
const PerBlock = common.BLKSIZE / common.DIRENTRYSIZE

// Decode reads one entry from a DIRENTRY_SIZE-byte slice.
func Decode(b []byte) Entry {
	ino := common.Inum(binary.LittleEndian.Uint32(b[0:4]))
	name := b[4:common.DIRENTRYSIZE]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	return Entry{Ino: ino, Name: string(name[:n])}
}

// Encode writes e into a DIRENTRY_SIZE-byte slice, zero-padding the name
// field. It returns ospfserr.ErrNameTooLong if e.Name exceeds
// common.MAXNAMELEN.
func Encode(e Entry, b []byte) error {
	if uint64(len(e.Name)) > common.MAXNAMELEN {
		return ospfserr.ErrNameTooLong
	}
	binary.LittleEndian.PutUint32(b[0:4], uint32(e.Ino))

	name := b[4:common.DIRENTRYSIZE]
	for i := range name {
		name[i] = 0
	}
	copy(name, e.Name)
	return nil
}

// Blank reports whether an entry slot is unused.
func (e Entry) Blank() bool {
	return e.Ino == common.NULLINUM
}
