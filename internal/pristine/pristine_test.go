package pristine

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

func newTestStore(t *testing.T, cacheSize int) *DirStore {
	t.Helper()
	s, err := NewDirStore(filepath.Join(t.TempDir(), "pristine"), cacheSize)
	require.NoError(t, err)
	return s
}

func TestInstallBytesAndRead(t *testing.T) {
	s := newTestStore(t, 4)

	sum, err := s.InstallBytes([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, wc.ComputeChecksum([]byte("hi")), sum)

	ok, err := s.Has(sum)
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Read(sum)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hi", string(data))

	// A second install of the same text is a no-op.
	again, err := s.InstallBytes([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, sum, again)
}

func TestReadMissing(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Read(wc.ComputeChecksum([]byte("nope")))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Read("not-a-checksum")
	assert.Error(t, err)
}

func TestReadAllIsServedFromCache(t *testing.T) {
	s := newTestStore(t, 4)
	sum, err := s.InstallBytes([]byte("cached"))
	require.NoError(t, err)

	data, err := s.ReadAll(sum)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))

	// Remove the file behind the cache's back.
	require.NoError(t, os.Remove(s.path(sum)))

	data, err = s.ReadAll(sum)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
}

func TestInstallExistingDiscardsTemp(t *testing.T) {
	s := newTestStore(t, 0)
	sum, err := s.InstallBytes([]byte("x"))
	require.NoError(t, err)

	tmp := filepath.Join(s.TempDir(), "dup")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0o644))
	require.NoError(t, s.Install(tmp, sum))

	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestInstallReaderVerifiesChecksum(t *testing.T) {
	s := newTestStore(t, 0)

	sum, n, err := s.InstallReader(strings.NewReader("hello\n"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, wc.Checksum("5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"), sum)

	_, _, err = s.InstallReader(strings.NewReader("other"), sum)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}
