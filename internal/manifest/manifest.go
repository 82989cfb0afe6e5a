// Package manifest resolves the set of fuzz targets a gate run covers,
// either from a YAML manifest or by scanning the build output directory.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"fuzzgate/config"
	"fuzzgate/internal/types"
)

// Target binaries follow the fuzzing build naming convention: no dots, no
// spaces. This also rules out corpus archives, dictionaries and .options
// files sitting in the same directory.
var validTargetName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// helper binaries shipped alongside targets in the build output
var skippedBinaries = map[string]bool{
	"llvm-symbolizer": true,
	"jazzer_driver":   true,
}

type Manifest struct {
	Project     string        `yaml:"project"`
	FuzzSeconds int           `yaml:"fuzz_seconds"`
	Targets     []TargetEntry `yaml:"targets"`
}

type TargetEntry struct {
	Name        string `yaml:"name"`
	FuzzSeconds int    `yaml:"fuzz_seconds"`
	Project     string `yaml:"project"`
}

// Resolver turns configuration into the concrete target list for this run.
type Resolver struct {
	logger    *zap.Logger
	appConfig *config.AppConfig
}

type ResolverParams struct {
	fx.In

	Logger    *zap.Logger
	AppConfig *config.AppConfig
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		logger:    p.Logger,
		appConfig: p.AppConfig,
	}
}

// Targets lists the fuzz targets for this run. With a manifest configured the
// manifest is authoritative; otherwise every target binary found in the
// output directory is fuzzed with the global duration.
func (r *Resolver) Targets() ([]*types.Target, error) {
	if r.appConfig.ManifestPath != "" {
		return r.fromManifest(r.appConfig.ManifestPath)
	}
	return r.discover()
}

func (r *Resolver) fromManifest(path string) ([]*types.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Targets) == 0 {
		return nil, fmt.Errorf("manifest %s lists no targets", path)
	}

	targets := make([]*types.Target, 0, len(m.Targets))
	for _, entry := range m.Targets {
		if !validTargetName.MatchString(entry.Name) {
			return nil, fmt.Errorf("manifest %s: invalid target name %q", path, entry.Name)
		}
		binaryPath := filepath.Join(r.appConfig.OutDir, entry.Name)
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("manifest target %s: %w", entry.Name, err)
		}
		targets = append(targets, types.NewTarget(
			binaryPath,
			r.duration(entry.FuzzSeconds, m.FuzzSeconds),
			r.appConfig.OutDir,
			r.project(entry.Project, m.Project),
		))
	}
	r.logger.Info("Targets resolved from manifest",
		zap.String("manifest", path),
		zap.Int("count", len(targets)))
	return targets, nil
}

// discover scans the output directory for executable target binaries, the
// way the build leaves them next to seed corpora and dictionaries.
func (r *Resolver) discover() ([]*types.Target, error) {
	entries, err := os.ReadDir(r.appConfig.OutDir)
	if err != nil {
		return nil, fmt.Errorf("scan out dir: %w", err)
	}

	var targets []*types.Target
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !validTargetName.MatchString(name) || skippedBinaries[name] {
			continue
		}
		if strings.HasPrefix(name, "afl-") || strings.HasPrefix(name, "sancov") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0111 == 0 {
			continue
		}
		targets = append(targets, types.NewTarget(
			filepath.Join(r.appConfig.OutDir, name),
			r.duration(0, 0),
			r.appConfig.OutDir,
			r.appConfig.ProjectName,
		))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no fuzz targets found in %s", r.appConfig.OutDir)
	}
	r.logger.Info("Targets discovered in output directory",
		zap.String("out_dir", r.appConfig.OutDir),
		zap.Int("count", len(targets)))
	return targets, nil
}

// duration picks the most specific fuzz duration: per target, then manifest
// default, then global configuration.
func (r *Resolver) duration(entrySeconds, manifestSeconds int) time.Duration {
	switch {
	case entrySeconds > 0:
		return time.Duration(entrySeconds) * time.Second
	case manifestSeconds > 0:
		return time.Duration(manifestSeconds) * time.Second
	default:
		return r.appConfig.FuzzDuration
	}
}

func (r *Resolver) project(entryProject, manifestProject string) string {
	switch {
	case entryProject != "":
		return entryProject
	case manifestProject != "":
		return manifestProject
	default:
		return r.appConfig.ProjectName
	}
}
