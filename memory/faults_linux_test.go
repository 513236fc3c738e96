//go:build linux

package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcStats_ReadSelf(t *testing.T) {
	before, err := ProcStats{}.Read(os.Getpid())
	require.NoError(t, err)
	assert.Positive(t, before.Minor)

	// Touching fresh anonymous pages raises minor faults
	buf := make([]byte, 64*os.Getpagesize())
	for i := 0; i < len(buf); i += os.Getpagesize() {
		buf[i] = 1
	}
	after, err := ProcStats{}.Read(os.Getpid())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after.Minor, before.Minor)
	assert.GreaterOrEqual(t, after.Major, before.Major)
}

func TestProcStats_OtherPid(t *testing.T) {
	_, err := ProcStats{}.Read(os.Getpid() + 1)
	assert.Error(t, err)
}

func TestFaults_Sub(t *testing.T) {
	assert.Equal(t, Faults{5, 1}, Faults{15, 3}.Sub(Faults{10, 2}))
}

func TestCacheDropper_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drop_caches")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	require.NoError(t, CacheDropper{Path: path}.DropAll())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3", string(content))

	err = CacheDropper{Path: filepath.Join(t.TempDir(), "missing", "drop_caches")}.DropAll()
	assert.Error(t, err)
}

func TestGetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte("MemTotal:  1000 kB\n\nCached:  236072 kB\n"), 0600))

	value, err := getValue(path, "Cached:")
	require.NoError(t, err)
	assert.Equal(t, int64(236072), value)

	_, err = getValue(path, "Buffers:")
	assert.Error(t, err)
}
