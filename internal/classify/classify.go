// Package classify decides whether a discovered crash is a new regression
// or a pre-existing bug in the published baseline build.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/internal/baseline"
	"fuzzgate/internal/types"
	"fuzzgate/internal/verify"
	"fuzzgate/pkg/telemetry"
)

// ErrUnclassifiable means the comparison against the baseline could not be
// performed. It is deliberately distinct from any verdict: treating it as
// "not reproducible" would hide regressions, treating it as "new" would
// alarm on flaky infrastructure.
var ErrUnclassifiable = errors.New("crash could not be classified")

type reproducer interface {
	Reproducible(ctx context.Context, buildDir, testCase, targetName string) (bool, error)
}

type baselineFetcher interface {
	Fetch(ctx context.Context, target *types.Target) (string, error)
}

// Classifier orchestrates reproduction passes against the candidate and
// baseline builds for a single crash event.
type Classifier struct {
	logger    *zap.Logger
	verifier  reproducer
	baselines baselineFetcher
}

type ClassifierParams struct {
	fx.In

	Logger    *zap.Logger
	Verifier  *verify.Verifier
	Baselines *baseline.Cache
}

func NewClassifier(p ClassifierParams) *Classifier {
	return &Classifier{
		logger:    p.Logger,
		verifier:  p.Verifier,
		baselines: p.Baselines,
	}
}

// Classify returns the verdict for a crash discovered while fuzzing target.
// The reproduction mount is always the directory containing the candidate
// binary, never the binary path itself.
func (c *Classifier) Classify(ctx context.Context, target *types.Target, crash *types.CrashRecord) (types.Verdict, error) {
	logger := c.logger.With(
		zap.String("target", target.Name),
		zap.String("test_case", crash.TestCase),
	)

	candidateSpan := telemetry.FromContext(ctx).Spawn("candidate reproduction")
	candidateSpan.Start()
	inCandidate, err := c.verifier.Reproducible(ctx, target.BuildDir(), crash.TestCase, target.Name)
	candidateSpan.End()
	if err != nil {
		return 0, fmt.Errorf("%w: candidate reproduction: %v", ErrUnclassifiable, err)
	}
	if !inCandidate {
		logger.Info("crash is not reproducible")
		return types.VerdictNotReproducible, nil
	}

	if target.ProjectName == "" {
		// without a baseline to compare against, any reproducible crash is
		// attributed to the change under test
		logger.Info("crash is reproducible, no project to compare against")
		return types.VerdictNewRegression, nil
	}

	baselineDir, err := c.baselines.Fetch(ctx, target)
	if errors.Is(err, baseline.ErrNotFound) {
		// the store definitively has no build for this project, so there is
		// no baseline the crash could pre-exist in
		logger.Info("no baseline build published, crash attributed to the change under test")
		return types.VerdictNewRegression, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnclassifiable, err)
	}

	baselineSpan := telemetry.FromContext(ctx).Spawn("baseline reproduction")
	baselineSpan.Start()
	inBaseline, err := c.verifier.Reproducible(ctx, baselineDir, crash.TestCase, target.Name)
	baselineSpan.End()
	if err != nil {
		return 0, fmt.Errorf("%w: baseline reproduction: %v", ErrUnclassifiable, err)
	}
	if inBaseline {
		logger.Info("crash reproduces in the published baseline build")
		return types.VerdictPreExistingBug, nil
	}

	logger.Info("crash is new and reproducible")
	return types.VerdictNewRegression, nil
}
