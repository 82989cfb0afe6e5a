// Package session runs one time-bounded fuzzing pass over a target and
// drives classification of any crash it produces.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/internal/classify"
	"fuzzgate/internal/extract"
	"fuzzgate/internal/report"
	"fuzzgate/internal/sandbox"
	"fuzzgate/internal/types"
	"fuzzgate/pkg/telemetry"
	"fuzzgate/pkg/watchdog"
)

type crashClassifier interface {
	Classify(ctx context.Context, target *types.Target, crash *types.CrashRecord) (types.Verdict, error)
}

type verdictReporter interface {
	Report(ctx context.Context, target *types.Target, crash *types.CrashRecord, verdict types.Verdict) error
}

// Result is the caller-visible outcome of one session. Finer-grained
// verdicts stay in logs and the verdict sinks.
type Result struct {
	BugFound   bool // a blocking regression was found
	Classified bool // a crash occurred and classification completed
	Verdict    types.Verdict
	Crash      *types.CrashRecord
}

// Session executes fuzz targets strictly sequentially, one run at a time.
type Session struct {
	logger     *zap.Logger
	runner     sandbox.Runner
	classifier crashClassifier
	reporter   verdictReporter
	watchdogs  *watchdog.WatchDogFactory
	tracers    *telemetry.TracerFactory
}

type SessionParams struct {
	fx.In

	Logger          *zap.Logger
	Runner          sandbox.Runner
	Classifier      *classify.Classifier
	Reporter        *report.Reporter
	WatchDogFactory *watchdog.WatchDogFactory
	TracerFactory   *telemetry.TracerFactory
}

func NewSession(p SessionParams) *Session {
	return &Session{
		logger:     p.Logger,
		runner:     p.Runner,
		classifier: p.Classifier,
		reporter:   p.Reporter,
		watchdogs:  p.WatchDogFactory,
		tracers:    p.TracerFactory,
	}
}

// Run fuzzes target for its configured duration. A run that completes the
// full duration, or crashes without leaving a usable reproducer, reports no
// bug. A classification failure is returned as an error wrapping
// classify.ErrUnclassifiable so the caller can decide whether to block.
func (s *Session) Run(ctx context.Context, target *types.Target) (*Result, error) {
	logger := s.logger.With(
		zap.String("target", target.Name),
		zap.String("project", target.ProjectName),
	)

	if _, err := os.Stat(target.OutDir); err != nil {
		logger.Error("output directory does not exist", zap.String("out_dir", target.OutDir))
		return nil, fmt.Errorf("out dir %s: %w", target.OutDir, err)
	}

	tracer := s.tracers.NewTracer(ctx, fmt.Sprintf("fuzzing %s", target.Name)).
		WithAttributes(telemetry.EmptySpanAttributes().
			WithTargetName(target.Name).
			WithProjectName(target.ProjectName))
	tracer.Start()
	defer tracer.End()
	// downstream components spawn their child spans from the run tracer
	ctx = context.WithValue(ctx, telemetry.TracerKey{}, tracer)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	artifactChan := make(chan string, 64)
	dog := s.watchdogs.New(watchCtx, artifactChan, isCrashArtifact)
	dog.AddDir(target.OutDir)
	go logArtifacts(logger, tracer, artifactChan)

	logger.Info("Fuzzer started", zap.Duration("duration", target.Duration))
	res, err := s.runner.RunFuzzer(ctx, target)
	if err != nil {
		tracer.SetStatus(codes.Error, "fuzzer invocation failed")
		return nil, fmt.Errorf("run fuzzer: %w", err)
	}

	if res.TimedOut {
		logger.Info("Fuzzer finished with timeout, no crash found")
		return &Result{}, nil
	}

	logger.Info("Fuzzer ended before timeout")
	testCase := extract.TestCase(string(res.Output), target.OutDir)
	if testCase == "" {
		// abnormal exit without a persisted reproducer: sandbox failure or
		// OOM-killer artifact, not an actionable crash
		logger.Error("no test case found in fuzzer output")
		return &Result{}, nil
	}

	crash := &types.CrashRecord{TestCase: testCase, Output: string(res.Output)}
	tracer.AddEvent("crash_found", telemetry.NewEventAttributes(map[string]string{
		"test_case": filepath.Base(testCase),
	}))

	verdict, err := s.classifier.Classify(ctx, target, crash)
	if err != nil {
		logger.Error("unable to classify crash, not blocking on it", zap.Error(err))
		tracer.SetStatus(codes.Error, "classification failed")
		return &Result{Crash: crash}, err
	}

	tracer.WithAttributes(telemetry.EmptySpanAttributes().WithVerdict(verdict.String()))
	logger.Info("crash classified", zap.String("verdict", verdict.String()))

	if err := s.reporter.Report(ctx, target, crash, verdict); err != nil {
		logger.Error("failed to report crash", zap.Error(err))
	}

	return &Result{
		BugFound:   verdict.Blocking(),
		Classified: true,
		Verdict:    verdict,
		Crash:      crash,
	}, nil
}

// isCrashArtifact keeps only artifact files the engine persists for
// abnormal runs.
func isCrashArtifact(name string) bool {
	base := filepath.Base(name)
	for _, prefix := range []string{"crash-", "oom-", "timeout-", "leak-"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

// logArtifacts drains watchdog notifications for the lifetime of the run.
func logArtifacts(logger *zap.Logger, tracer telemetry.Tracer, artifacts <-chan string) {
	first := true
	for artifact := range artifacts {
		logger.Info("artifact file appeared", zap.String("file", artifact))
		if first {
			tracer.AddEvent("first_artifact_found", telemetry.NewEventAttributes(map[string]string{
				"file": filepath.Base(artifact),
			}))
			first = false
		}
	}
}
