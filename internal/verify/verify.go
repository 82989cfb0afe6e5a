// Package verify decides whether a crashing input reliably reproduces
// against a given build.
package verify

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/config"
	"fuzzgate/internal/sandbox"
)

// ReproduceAttempts bounds the retry budget per crash. Sanitizer crashes
// are flaky, so any abnormal exit within the budget counts.
const ReproduceAttempts = 10

// Verifier replays crashing inputs through the sandbox runner.
type Verifier struct {
	logger *zap.Logger
	runner sandbox.Runner

	attempts       int
	attemptTimeout time.Duration
}

type VerifierParams struct {
	fx.In

	Logger    *zap.Logger
	Runner    sandbox.Runner
	AppConfig *config.AppConfig
}

func NewVerifier(p VerifierParams) *Verifier {
	return &Verifier{
		logger:         p.Logger,
		runner:         p.Runner,
		attempts:       ReproduceAttempts,
		attemptTimeout: p.AppConfig.AttemptTimeout,
	}
}

// Reproducible replays testCase against the build rooted at buildDir. It
// returns true on the first attempt that exits abnormally and false only
// after the whole attempt budget completes without a crash. A runner error
// aborts the remaining attempts.
func (v *Verifier) Reproducible(ctx context.Context, buildDir, testCase, targetName string) (bool, error) {
	for attempt := 1; attempt <= v.attempts; attempt++ {
		crashed, err := v.replayOnce(ctx, buildDir, testCase, targetName)
		if err != nil {
			return false, err
		}
		if crashed {
			v.logger.Info("crash reproduced",
				zap.String("target", targetName),
				zap.String("build_dir", buildDir),
				zap.Int("attempt", attempt))
			return true, nil
		}
	}
	v.logger.Info("crash did not reproduce",
		zap.String("target", targetName),
		zap.String("build_dir", buildDir),
		zap.Int("attempts", v.attempts))
	return false, nil
}

func (v *Verifier) replayOnce(ctx context.Context, buildDir, testCase, targetName string) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, v.attemptTimeout)
	defer cancel()

	res, err := v.runner.Reproduce(attemptCtx, buildDir, testCase, targetName)
	if err != nil {
		return false, err
	}
	// a replay that hits the attempt timeout counts as not crashed
	return res.Crashed && !res.TimedOut, nil
}
