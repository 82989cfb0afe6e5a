package baseline

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fuzzgate/internal/types"
)

// fakeStore serves a fixed archive and counts remote accesses.
type fakeStore struct {
	version      string
	archive      []byte
	versionErr   error
	downloadErr  error
	versionCalls int
	downloads    int
}

func (f *fakeStore) LatestVersion(ctx context.Context, project string) (string, error) {
	f.versionCalls++
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return f.version, nil
}

func (f *fakeStore) Download(ctx context.Context, project, version string) ([]byte, error) {
	f.downloads++
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.archive, nil
}

// buildZip packs the given files into an in-memory zip archive.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testTarget(outDir string) *types.Target {
	return types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "example")
}

func newTestCache(store ArtifactStore) *Cache {
	return &Cache{logger: zap.NewNop(), store: store}
}

func TestFetchDownloadsAndExtracts(t *testing.T) {
	outDir := t.TempDir()
	store := &fakeStore{
		version: "example-address-202608290600.zip",
		archive: buildZip(t, map[string]string{
			"do_stuff_fuzzer":                 "binary",
			"do_stuff_fuzzer_seed_corpus.zip": "corpus",
		}),
	}
	cache := newTestCache(store)

	buildDir, err := cache.Fetch(context.Background(), testTarget(outDir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, CacheSubdir, "example"), buildDir)
	assert.FileExists(t, filepath.Join(buildDir, "do_stuff_fuzzer"))
	assert.Equal(t, 1, store.downloads)
}

func TestFetchIsIdempotent(t *testing.T) {
	outDir := t.TempDir()
	store := &fakeStore{
		version: "example-address-202608290600.zip",
		archive: buildZip(t, map[string]string{"do_stuff_fuzzer": "binary"}),
	}
	cache := newTestCache(store)

	first, err := cache.Fetch(context.Background(), testTarget(outDir))
	require.NoError(t, err)
	second, err := cache.Fetch(context.Background(), testTarget(outDir))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.downloads, "second fetch must be a cache hit")
	assert.Equal(t, 1, store.versionCalls)
}

func TestFetchProjectUnknown(t *testing.T) {
	outDir := t.TempDir()
	store := &fakeStore{versionErr: ErrNotFound}
	cache := newTestCache(store)

	// a definitive 404 on the version lookup means no baseline exists; this
	// must stay distinguishable from transient store failures
	_, err := cache.Fetch(context.Background(), testTarget(outDir))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, store.downloads)
}

func TestFetchDownloadFails(t *testing.T) {
	outDir := t.TempDir()
	store := &fakeStore{version: "example-address-latest.zip", downloadErr: ErrNotFound}
	cache := newTestCache(store)

	_, err := cache.Fetch(context.Background(), testTarget(outDir))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchMissingOutDir(t *testing.T) {
	store := &fakeStore{}
	cache := newTestCache(store)

	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	_, err := cache.Fetch(context.Background(), testTarget(missing))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, store.versionCalls, "no remote access without an out dir")
}

func TestFetchNoProject(t *testing.T) {
	outDir := t.TempDir()
	cache := newTestCache(&fakeStore{})

	target := types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "")
	_, err := cache.Fetch(context.Background(), target)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchRejectsEscapingArchive(t *testing.T) {
	outDir := t.TempDir()
	store := &fakeStore{
		version: "example-address-latest.zip",
		archive: buildZip(t, map[string]string{"../outside": "nope"}),
	}
	cache := newTestCache(store)

	_, err := cache.Fetch(context.Background(), testTarget(outDir))
	assert.ErrorIs(t, err, ErrUnavailable)
	_, statErr := os.Stat(filepath.Join(outDir, CacheSubdir, "outside"))
	assert.True(t, os.IsNotExist(statErr))
}
