package baseline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(baseURL string) *GCSStore {
	return &GCSStore{
		logger:  zap.NewNop(),
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

func TestGCSStoreLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/example/example-address-latest.version", r.URL.Path)
		w.Write([]byte("example-address-202608290600.zip\n"))
	}))
	defer srv.Close()

	version, err := newTestStore(srv.URL).LatestVersion(context.Background(), "example")
	require.NoError(t, err)
	assert.Equal(t, "example-address-202608290600.zip", version)
}

func TestGCSStoreLatestVersionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestStore(srv.URL).LatestVersion(context.Background(), "no_such_project")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGCSStoreDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/example/example-address-202608290600.zip", r.URL.Path)
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	body, err := newTestStore(srv.URL).Download(context.Background(), "example", "example-address-202608290600.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive-bytes"), body)
}

func TestURLJoin(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/clusterfuzz-builds/example/example-address-latest.version",
		urlJoin("https://storage.googleapis.com/clusterfuzz-builds/", "example", "example-address-latest.version"))
}
