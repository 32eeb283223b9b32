// Package testutil builds fixture images for tests: a fresh image via
// Mkfs, sized the way the teacher's mkFsSuper/MkFsSuper constructors
// size a fresh disk, or a prebuilt reference image mapped in from a
// file via golang.org/x/sys/unix, the way the teacher's disk.NewFileDisk
// loads a file-backed disk -- except here the mapped bytes feed
// straight into ospfs.Mount rather than backing a live Disk interface,
// since this module never persists across restarts.
package testutil

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ospfs/ospfs/ospfs"
)

// Mkfs builds a fresh in-memory image of the given geometry.
func Mkfs(blocks, inodes uint64) (*ospfs.Filesystem, error) {
	return ospfs.Mkfs(make([]byte, blocks*1024), ospfs.Params{Blocks: blocks, Inodes: inodes}, ospfs.Options{})
}

// MappedImage is a reference image loaded from disk via mmap, kept
// open for the lifetime of the test so the mapping stays valid.
type MappedImage struct {
	bytes []byte
}

// LoadImage memory-maps path read-write and returns its bytes, ready to
// hand to ospfs.Mount. Call Close when done to release the mapping.
func LoadImage(path string) (*MappedImage, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("testutil: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("testutil: stat %s: %w", path, err)
	}
	if st.Size == 0 {
		return nil, fmt.Errorf("testutil: %s is empty", path)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("testutil: mmap %s: %w", path, err)
	}
	return &MappedImage{bytes: data}, nil
}

// Bytes returns the mapped region.
func (m *MappedImage) Bytes() []byte {
	return m.bytes
}

// Close unmaps the region.
func (m *MappedImage) Close() error {
	return unix.Munmap(m.bytes)
}
