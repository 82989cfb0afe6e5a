package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/internal/types"
)

const (
	// BaseRunnerImage executes run_fuzzer and reproduce for OSS-Fuzz builds.
	BaseRunnerImage = "gcr.io/oss-fuzz-base/base-runner"

	// LibFuzzerOptions pins the engine to a deterministic configuration so
	// repeated runs over the same corpus state behave the same.
	LibFuzzerOptions = "-seed=1337 -len_control=0"

	// ReproduceRuns is the number of engine iterations per replay attempt.
	ReproduceRuns = 100
)

// DockerRunner runs fuzz targets inside the OSS-Fuzz base-runner image.
type DockerRunner struct {
	logger *zap.Logger

	// container is the id of the container this process already runs in,
	// empty when running directly on a host. It decides how build volumes
	// are mounted.
	container string
}

type DockerRunnerParams struct {
	fx.In

	Logger *zap.Logger
}

// NewDockerRunner fails when the docker client is not installed: without it
// no target can run and the whole gate must abort before fuzzing starts.
func NewDockerRunner(p DockerRunnerParams) (Runner, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("docker not found: %w", err)
	}

	container := containerName()
	if container != "" {
		p.Logger.Info("running inside a container, sharing volumes", zap.String("container", container))
	}

	return &DockerRunner{
		logger:    p.Logger,
		container: container,
	}, nil
}

// containerName returns the hostname when the process itself runs inside a
// docker container, empty otherwise.
func containerName() string {
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return ""
	}
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

func (r *DockerRunner) RunFuzzer(ctx context.Context, target *types.Target) (*Result, error) {
	args := []string{"run", "--rm", "--privileged"}
	args = append(args, r.outVolumeArgs(target.OutDir)...)
	args = append(args,
		"-e", "FUZZING_ENGINE=libfuzzer",
		"-e", "SANITIZER=address",
		"-e", "RUN_FUZZER_MODE=interactive",
		BaseRunnerImage,
		"bash", "-c", fmt.Sprintf("run_fuzzer %s %s", target.Name, LibFuzzerOptions),
	)

	runCtx, cancel := context.WithTimeout(ctx, target.Duration)
	defer cancel()
	return r.run(runCtx, args)
}

func (r *DockerRunner) Reproduce(ctx context.Context, buildDir, testCase, targetName string) (*Result, error) {
	args := []string{"run", "--rm", "--privileged",
		"-v", fmt.Sprintf("%s:/out", buildDir),
		"-v", fmt.Sprintf("%s:/testcase", testCase),
		"-t", BaseRunnerImage,
		"reproduce", targetName, fmt.Sprintf("-runs=%d", ReproduceRuns),
	}
	return r.run(ctx, args)
}

// outVolumeArgs mounts the output directory. Inside a container the volumes
// of the current container are shared instead of bind-mounting a host path.
func (r *DockerRunner) outVolumeArgs(outDir string) []string {
	if r.container != "" {
		return []string{"--volumes-from", r.container, "-e", "OUT=" + outDir}
	}
	return []string{"-v", fmt.Sprintf("%s:/out", outDir)}
}

func (r *DockerRunner) run(ctx context.Context, args []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	r.logger.Debug("running sandbox command", zap.String("command", cmd.String()))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{Output: buf.Bytes()}
	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		r.logger.Debug("sandbox command hit deadline", zap.Duration("elapsed", elapsed))
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.Crashed = true
	default:
		// docker itself failed to start, not the target
		r.logger.Error("sandbox invocation failed", zap.Error(err))
		return nil, fmt.Errorf("run sandbox command: %w", err)
	}

	r.logger.Debug("sandbox command finished",
		zap.Bool("crashed", res.Crashed),
		zap.Duration("elapsed", elapsed))
	return res, nil
}
