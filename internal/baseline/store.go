package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/config"
)

// Sanitizer is the only build flavor published for latest-version lookups.
const Sanitizer = "address"

// ErrNotFound means the store has no published build for the project.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore resolves and downloads published project builds.
type ArtifactStore interface {
	// LatestVersion resolves the name of the most recently published build
	// archive for a project, or ErrNotFound.
	LatestVersion(ctx context.Context, project string) (string, error)
	// Download fetches the archive named by version, or ErrNotFound.
	Download(ctx context.Context, project, version string) ([]byte, error)
}

// GCSStore serves published OSS-Fuzz builds from a cloud storage bucket.
type GCSStore struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

type GCSStoreParams struct {
	fx.In

	Logger    *zap.Logger
	AppConfig *config.AppConfig
}

func NewGCSStore(p GCSStoreParams) ArtifactStore {
	return &GCSStore{
		logger:  p.Logger,
		baseURL: p.AppConfig.ArtifactStoreURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (s *GCSStore) LatestVersion(ctx context.Context, project string) (string, error) {
	versionFile := fmt.Sprintf("%s-%s-latest.version", project, Sanitizer)
	body, err := s.get(ctx, urlJoin(s.baseURL, project, versionFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (s *GCSStore) Download(ctx context.Context, project, version string) ([]byte, error) {
	return s.get(ctx, urlJoin(s.baseURL, project, version))
}

func (s *GCSStore) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build store request: %w", err)
	}

	s.logger.Debug("fetching from artifact store", zap.String("url", url))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

// urlJoin joins URL sections with single slashes without collapsing the
// scheme separator the way path.Join would.
func urlJoin(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed = append(trimmed, strings.Trim(part, "/"))
	}
	return strings.Join(trimmed, "/")
}
