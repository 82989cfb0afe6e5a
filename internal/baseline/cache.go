// Package baseline acquires and caches the last published build of a
// project for differential crash classification.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/internal/types"
	"fuzzgate/internal/utils"
)

const (
	// CacheSubdir holds extracted baseline builds under the output directory.
	CacheSubdir = "oss_fuzz_latest"

	// versionMemoKey memoizes resolved version strings in redis per project.
	versionMemoKey = "fuzzgate:latest_version:%s"
	versionMemoTTL = 24 * time.Hour
)

// ErrUnavailable means the baseline build could not be acquired; the crash
// cannot be classified against it.
var ErrUnavailable = errors.New("baseline build unavailable")

// Cache memoizes extracted baseline builds on disk, keyed by project.
//
// A cache entry is considered populated when the target binary is present
// under the entry path. Entries are never invalidated within an output
// directory's lifetime; staleness across runs sharing an output directory
// is accepted to avoid redundant downloads.
type Cache struct {
	logger *zap.Logger
	store  ArtifactStore
	redis  *redis.Client // optional version-lookup memo, may be nil
}

type CacheParams struct {
	fx.In

	Logger      *zap.Logger
	Store       ArtifactStore
	RedisClient *redis.Client `optional:"true"`
}

func NewCache(p CacheParams) *Cache {
	return &Cache{
		logger: p.Logger,
		store:  p.Store,
		redis:  p.RedisClient,
	}
}

// Fetch returns the directory of the extracted baseline build for the
// target's project, downloading and extracting it on a cache miss. A
// definitive store answer that no build exists for the project propagates
// as ErrNotFound; every other failure wraps ErrUnavailable.
func (c *Cache) Fetch(ctx context.Context, target *types.Target) (string, error) {
	if target.ProjectName == "" {
		return "", fmt.Errorf("%w: no project name", ErrUnavailable)
	}
	if _, err := os.Stat(target.OutDir); err != nil {
		c.logger.Error("output directory does not exist", zap.String("out_dir", target.OutDir))
		return "", fmt.Errorf("%w: out dir %s: %v", ErrUnavailable, target.OutDir, err)
	}

	buildDir := filepath.Join(target.OutDir, CacheSubdir, target.ProjectName)
	if _, err := os.Stat(filepath.Join(buildDir, target.Name)); err == nil {
		c.logger.Info("baseline build cache hit",
			zap.String("project", target.ProjectName),
			zap.String("build_dir", buildDir))
		return buildDir, nil
	}

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create cache dir: %v", ErrUnavailable, err)
	}

	version, err := c.latestVersion(ctx, target.ProjectName)
	if errors.Is(err, ErrNotFound) {
		c.logger.Info("no baseline build published for project",
			zap.String("project", target.ProjectName))
		return "", fmt.Errorf("project %s: %w", target.ProjectName, ErrNotFound)
	}
	if err != nil {
		c.logger.Error("failed to resolve latest baseline version",
			zap.String("project", target.ProjectName), zap.Error(err))
		return "", fmt.Errorf("%w: resolve version: %v", ErrUnavailable, err)
	}

	c.logger.Info("downloading baseline build",
		zap.String("project", target.ProjectName),
		zap.String("version", version))
	archive, err := c.store.Download(ctx, target.ProjectName, version)
	if err != nil {
		c.logger.Error("failed to download baseline build",
			zap.String("project", target.ProjectName),
			zap.String("version", version), zap.Error(err))
		return "", fmt.Errorf("%w: download %s: %v", ErrUnavailable, version, err)
	}

	if err := utils.UnpackZip(archive, buildDir); err != nil {
		return "", fmt.Errorf("%w: extract build: %v", ErrUnavailable, err)
	}

	c.logger.Info("baseline build extracted", zap.String("build_dir", buildDir))
	return buildDir, nil
}

// latestVersion resolves the newest published version string for a project,
// consulting the redis memo first when a client is configured.
func (c *Cache) latestVersion(ctx context.Context, project string) (string, error) {
	memoKey := fmt.Sprintf(versionMemoKey, project)
	if c.redis != nil {
		if version, err := c.redis.Get(ctx, memoKey).Result(); err == nil && version != "" {
			c.logger.Debug("baseline version memo hit", zap.String("version", version))
			return version, nil
		}
	}

	version, err := c.store.LatestVersion(ctx, project)
	if err != nil {
		return "", err
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, memoKey, version, versionMemoTTL).Err(); err != nil {
			c.logger.Warn("failed to memoize baseline version", zap.Error(err))
		}
	}
	return version, nil
}
