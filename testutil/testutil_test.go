package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospfs/ospfs/common"
)

func TestMkfsProducesMountableImage(t *testing.T) {
	fs, err := Mkfs(64, 32)
	require.NoError(t, err)

	st, err := fs.Stat(common.ROOTINUM)
	require.NoError(t, err)
	assert.Equal(t, common.FtypeDir, st.Ftype)
}
