package ospfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/fileio"
	"github.com/ospfs/ospfs/ospfserr"
)

func mkfs(t *testing.T, blocks, inodes uint64) *Filesystem {
	t.Helper()
	fs, err := Mkfs(make([]byte, blocks*common.BLKSIZE), Params{Blocks: blocks, Inodes: inodes}, Options{})
	require.NoError(t, err)
	return fs
}

func TestMkfsCreatesRoot(t *testing.T) {
	fs := mkfs(t, 64, 32)
	st, err := fs.Stat(common.ROOTINUM)
	require.NoError(t, err)
	assert.Equal(t, common.FtypeDir, st.Ftype)
}

func TestCreateThenRead(t *testing.T) {
	fs := mkfs(t, 64, 32)
	inum, err := fs.Create("hello.txt", 0644)
	require.NoError(t, err)

	data := []byte("hello world")
	_, err = fs.Write(inum, fileio.SliceBuffer(data), uint64(len(data)), 0, false)
	require.NoError(t, err)

	out := make([]byte, len(data))
	n, err := fs.Read(inum, fileio.SliceBuffer(out), uint64(len(data)), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), n)
	assert.Equal(t, data, out)

	got, err := fs.Lookup("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, inum, got)
}

func TestAppendAcrossBlock(t *testing.T) {
	fs := mkfs(t, 64, 32)
	inum, err := fs.Create("f", 0644)
	require.NoError(t, err)

	first := make([]byte, common.BLKSIZE)
	_, err = fs.Write(inum, fileio.SliceBuffer(first), uint64(len(first)), 0, false)
	require.NoError(t, err)

	second := []byte("tail")
	_, err = fs.Write(inum, fileio.SliceBuffer(second), uint64(len(second)), 0, true)
	require.NoError(t, err)

	st, err := fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(first)+len(second)), st.Size)
}

func TestAppendCrossesBlockBoundaryExact(t *testing.T) {
	fs := mkfs(t, 64, 32)
	inum, err := fs.Create("a", 0644)
	require.NoError(t, err)

	first := make([]byte, 1020)
	for i := range first {
		first[i] = byte(i)
	}
	_, err = fs.Write(inum, fileio.SliceBuffer(first), uint64(len(first)), 0, false)
	require.NoError(t, err)

	second := make([]byte, 10)
	for i := range second {
		second[i] = byte(1020 + i)
	}
	_, err = fs.Write(inum, fileio.SliceBuffer(second), uint64(len(second)), 0, true)
	require.NoError(t, err)

	st, err := fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, uint64(1030), st.Size)
	assert.Equal(t, uint64(2), st.Blocks, "1030 bytes must span exactly 2 direct blocks")

	whole := append(append([]byte{}, first...), second...)
	out := make([]byte, 15)
	n, err := fs.Read(inum, fileio.SliceBuffer(out), 15, 1015)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), n)
	assert.Equal(t, whole[1015:1030], out)
}

func TestGrowIntoIndirectThenShrink(t *testing.T) {
	fs := mkfs(t, 512, 32)
	inum, err := fs.Create("a", 0644)
	require.NoError(t, err)

	require.NoError(t, fs.Truncate(inum, 11*common.BLKSIZE))
	require.NoError(t, fs.Truncate(inum, 10*common.BLKSIZE))
	st, err := fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, uint64(10*common.BLKSIZE), st.Size)
	assert.Equal(t, uint64(10), st.Blocks)
}

func TestHardLinkThenUnlink(t *testing.T) {
	fs := mkfs(t, 64, 32)
	inum, err := fs.Create("orig", 0644)
	require.NoError(t, err)

	require.NoError(t, fs.Link(inum, "alias"))
	st, err := fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Nlink)

	require.NoError(t, fs.Unlink("orig"))
	st, err = fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Nlink)

	_, err = fs.Lookup("orig")
	assert.ErrorIs(t, err, ospfserr.ErrNotFound)

	got, err := fs.Lookup("alias")
	require.NoError(t, err)
	assert.Equal(t, inum, got)

	require.NoError(t, fs.Unlink("alias"))
	_, err = fs.Stat(inum)
	assert.ErrorIs(t, err, ospfserr.ErrNotFound, "inode must be freed once nlink reaches zero")
}

func TestConditionalSymlinkResolution(t *testing.T) {
	fs := mkfs(t, 64, 32)
	sinum, err := fs.Symlink("s", "root?/r:/o")
	require.NoError(t, err)

	root, err := fs.FollowSymlink(sinum, 0)
	require.NoError(t, err)
	assert.Equal(t, "/r", root)

	other, err := fs.FollowSymlink(sinum, 1000)
	require.NoError(t, err)
	assert.Equal(t, "/o", other)
}

func TestRollbackOnNoSpaceLeavesStatUnchanged(t *testing.T) {
	// Image with only enough data blocks for a handful of direct blocks.
	fs := mkfs(t, 16, 32)
	inum, err := fs.Create("f", 0644)
	require.NoError(t, err)
	require.NoError(t, fs.Truncate(inum, 3*common.BLKSIZE))

	before, err := fs.Stat(inum)
	require.NoError(t, err)
	freeBefore := fs.FreeBlocks()

	err = fs.Truncate(inum, (common.ND+common.NI+1)*common.BLKSIZE)
	assert.ErrorIs(t, err, ospfserr.ErrNoSpace)

	after, err := fs.Stat(inum)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, freeBefore, fs.FreeBlocks(), "a failed grow must not leak any block")
}

func TestCreateDuplicateNameFails(t *testing.T) {
	fs := mkfs(t, 64, 32)
	_, err := fs.Create("dup", 0644)
	require.NoError(t, err)
	_, err = fs.Create("dup", 0644)
	assert.ErrorIs(t, err, ospfserr.ErrExist)
}

func TestReaddirEmitsDotAndDotDotFirst(t *testing.T) {
	fs := mkfs(t, 64, 32)
	_, err := fs.Create("x", 0644)
	require.NoError(t, err)

	var names []string
	_, err = fs.Readdir(0, func(e DirEntry) bool {
		names = append(names, e.Name)
		return true
	})
	require.NoError(t, err)
	require.True(t, len(names) >= 3)
	assert.Equal(t, ".", names[0])
	assert.Equal(t, "..", names[1])
	assert.Equal(t, "x", names[2])
}

func TestLinkRejectsNonRegular(t *testing.T) {
	fs := mkfs(t, 64, 32)
	sinum, err := fs.Symlink("s", "/target")
	require.NoError(t, err)

	err = fs.Link(sinum, "alias")
	assert.ErrorIs(t, err, ospfserr.ErrPerm)
}

func TestCheckPassesOnFreshAndPopulatedImage(t *testing.T) {
	fs := mkfs(t, 512, 32)
	require.NoError(t, fs.Check())

	inum, err := fs.Create("f", 0644)
	require.NoError(t, err)
	require.NoError(t, fs.Truncate(inum, (common.ND+common.NI+1)*common.BLKSIZE))
	require.NoError(t, fs.Link(inum, "alias"))
	_, err = fs.Symlink("s", "root?/r:/o")
	require.NoError(t, err)

	require.NoError(t, fs.Check())

	require.NoError(t, fs.Unlink("f"))
	require.NoError(t, fs.Check())
}

func TestNameTooLongRejected(t *testing.T) {
	fs := mkfs(t, 64, 32)
	name := make([]byte, common.MAXNAMELEN+1)
	for i := range name {
		name[i] = 'z'
	}
	_, err := fs.Create(string(name), 0644)
	assert.ErrorIs(t, err, ospfserr.ErrNameTooLong)
}
