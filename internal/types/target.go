package types

import (
	"path/filepath"
	"time"
)

// Target identifies one compiled fuzz target for the lifetime of a gate session.
type Target struct {
	Name        string        // base name of the target binary
	BinaryPath  string        // absolute path to the target binary
	OutDir      string        // output directory mounted into the sandbox
	Duration    time.Duration // wall-clock fuzzing budget
	ProjectName string        // empty when the target belongs to no tracked project
}

// NewTarget builds a Target from a binary path. The target name is derived
// from the binary's base name, matching the run_fuzzer convention.
func NewTarget(binaryPath string, duration time.Duration, outDir, projectName string) *Target {
	return &Target{
		Name:        filepath.Base(binaryPath),
		BinaryPath:  binaryPath,
		OutDir:      outDir,
		Duration:    duration,
		ProjectName: projectName,
	}
}

// BuildDir is the directory holding the target binary plus its runtime
// dependencies. The sandbox mounts this directory, never the binary itself.
func (t *Target) BuildDir() string {
	return filepath.Dir(t.BinaryPath)
}
