// Package pristine is the content-addressed store of file texts. Texts are
// immutable and keyed by their SHA-256 checksum.
package pristine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/wcmove/internal/wc"
)

var (
	ErrNotFound         = errors.New("pristine text not found")
	ErrChecksumMismatch = errors.New("pristine checksum mismatch")
)

// maxCachedSize bounds the texts kept in the read cache.
const maxCachedSize = 1 << 20

// Store is what callers need from a pristine store.
type Store interface {
	Read(checksum wc.Checksum) (io.ReadCloser, error)
	Install(tmpPath string, checksum wc.Checksum) error
	Has(checksum wc.Checksum) (bool, error)
}

// DirStore keeps each text in its own file, fanned out by the first two
// hex digits: <root>/ab/abcdef....
type DirStore struct {
	root  string
	cache *lru.Cache[wc.Checksum, []byte]
}

var _ Store = (*DirStore)(nil)

// NewDirStore opens (creating if needed) a pristine directory. cacheSize is
// the number of small texts kept in memory; zero disables the cache.
func NewDirStore(root string, cacheSize int) (*DirStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create pristine dir: %w", err)
	}
	s := &DirStore{root: root}
	if cacheSize > 0 {
		cache, err := lru.New[wc.Checksum, []byte](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create pristine cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// TempDir is where texts are staged before Install. It lives on the same
// filesystem as the store so installs are a rename.
func (s *DirStore) TempDir() string {
	return filepath.Join(s.root, "tmp")
}

func (s *DirStore) path(checksum wc.Checksum) string {
	return filepath.Join(s.root, string(checksum[:2]), string(checksum))
}

// Has reports whether the text is present.
func (s *DirStore) Has(checksum wc.Checksum) (bool, error) {
	if !checksum.Valid() {
		return false, fmt.Errorf("invalid checksum %q", checksum)
	}
	if s.cache != nil && s.cache.Contains(checksum) {
		return true, nil
	}
	_, err := os.Stat(s.path(checksum))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat pristine %s: %w", checksum.Short(), err)
	}
	return true, nil
}

// Read opens the text with the given checksum.
// Returns ErrNotFound if it is not in the store.
func (s *DirStore) Read(checksum wc.Checksum) (io.ReadCloser, error) {
	if !checksum.Valid() {
		return nil, fmt.Errorf("invalid checksum %q", checksum)
	}
	if s.cache != nil {
		if data, ok := s.cache.Get(checksum); ok {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	f, err := os.Open(s.path(checksum))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", checksum.Short(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open pristine %s: %w", checksum.Short(), err)
	}
	return f, nil
}

// ReadAll returns the whole text. Small texts are cached.
func (s *DirStore) ReadAll(checksum wc.Checksum) ([]byte, error) {
	r, err := s.Read(checksum)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pristine %s: %w", checksum.Short(), err)
	}
	if s.cache != nil && len(data) <= maxCachedSize {
		s.cache.Add(checksum, data)
	}
	return bytes.Clone(data), nil
}

// Install moves a staged file into the store under checksum. Installing a
// text that is already present is a no-op and discards tmpPath. The
// checksum is trusted, not recomputed.
func (s *DirStore) Install(tmpPath string, checksum wc.Checksum) error {
	if !checksum.Valid() {
		return fmt.Errorf("invalid checksum %q", checksum)
	}
	dst := s.path(checksum)
	if _, err := os.Stat(dst); err == nil {
		os.Remove(tmpPath)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("install pristine %s: %w", checksum.Short(), err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("install pristine %s: %w", checksum.Short(), err)
	}
	slog.Debug("pristine installed", "checksum", checksum.Short())
	return nil
}

// InstallBytes stores content and returns its checksum.
func (s *DirStore) InstallBytes(content []byte) (wc.Checksum, error) {
	checksum := wc.ComputeChecksum(content)
	if ok, err := s.Has(checksum); err != nil {
		return "", err
	} else if ok {
		return checksum, nil
	}

	tmp, err := os.CreateTemp(s.TempDir(), "text-*")
	if err != nil {
		return "", fmt.Errorf("stage pristine: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage pristine: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage pristine: %w", err)
	}
	if err := s.Install(tmp.Name(), checksum); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return checksum, nil
}

// InstallReader stages everything r yields, verifies it against want when
// want is set, and installs it.
func (s *DirStore) InstallReader(r io.Reader, want wc.Checksum) (wc.Checksum, int64, error) {
	tmp, err := os.CreateTemp(s.TempDir(), "text-*")
	if err != nil {
		return "", 0, fmt.Errorf("stage pristine: %w", err)
	}
	defer os.Remove(tmp.Name())

	got, n, err := wc.ReaderChecksum(io.TeeReader(r, tmp))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("stage pristine: %w", err)
	}
	if want != "" && got != want {
		return "", 0, fmt.Errorf("%w: want %s, got %s", ErrChecksumMismatch, want.Short(), got.Short())
	}
	if err := s.Install(tmp.Name(), got); err != nil {
		return "", 0, err
	}
	return got, n, nil
}
