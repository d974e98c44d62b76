package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffjay/plantd-job/internal/codec"
)

func TestMaterializeBundleWritesFiles(t *testing.T) {
	bundle := codec.FileBundle{
		"main.py":        []byte("print('hi')"),
		"pkg/helper.py":  []byte("def helper(): pass"),
		"pkg/sub/deep.py": []byte("x = 1"),
	}

	dir, err := materializeBundle(bundle)
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for name, contents := range bundle {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, contents, data)
	}
}

func TestMaterializeBundleDistinctDirsPerCall(t *testing.T) {
	bundle := codec.FileBundle{"a.py": []byte("a")}

	first, err := materializeBundle(bundle)
	require.NoError(t, err)
	defer os.RemoveAll(first)

	second, err := materializeBundle(bundle)
	require.NoError(t, err)
	defer os.RemoveAll(second)

	assert.NotEqual(t, first, second)
}

func TestMaterializeBundleEmpty(t *testing.T) {
	dir, err := materializeBundle(codec.FileBundle{})
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
