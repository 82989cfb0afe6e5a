// Package gate drives one gate run: resolve targets, fuzz them in order,
// and turn the verdicts into a process exit code.
package gate

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/internal/classify"
	"fuzzgate/internal/manifest"
	"fuzzgate/internal/session"
	"fuzzgate/internal/types"
)

// exit codes reported to the surrounding CI job
const (
	ExitClean         = 0 // no new regressions
	ExitNewRegression = 1 // at least one crash classified as a new regression
	ExitError         = 2 // the gate itself failed to run
)

type targetRunner interface {
	Run(ctx context.Context, target *types.Target) (*session.Result, error)
}

type targetResolver interface {
	Targets() ([]*types.Target, error)
}

type Gate struct {
	logger   *zap.Logger
	session  targetRunner
	resolver targetResolver

	done chan struct{}
}

type GateParams struct {
	fx.In

	Lc         fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.Logger
	Session    *session.Session
	Resolver   *manifest.Resolver
}

func NewGate(p GateParams) *Gate {
	gate := &Gate{
		logger:   p.Logger,
		session:  p.Session,
		resolver: p.Resolver,
		done:     make(chan struct{}),
	}

	gateCtx, cancel := context.WithCancel(context.Background())

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(gate.done)
				code := gate.run(gateCtx)
				if err := p.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					gate.logger.Error("failed to shut down", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			<-gate.done
			return nil
		},
	})
	return gate
}

// run fuzzes every resolved target strictly one at a time and returns the
// exit code for the whole run. An unclassifiable crash is logged but does
// not fail the gate on its own.
func (g *Gate) run(ctx context.Context) int {
	targets, err := g.resolver.Targets()
	if err != nil {
		g.logger.Error("failed to resolve fuzz targets", zap.Error(err))
		return ExitError
	}

	code := ExitClean
	for _, target := range targets {
		select {
		case <-ctx.Done():
			g.logger.Info("gate interrupted, stopping")
			return code
		default:
		}

		result, err := g.session.Run(ctx, target)
		switch {
		case errors.Is(err, classify.ErrUnclassifiable):
			g.logger.Error("crash could not be classified, continuing without blocking",
				zap.String("target", target.Name), zap.Error(err))
		case err != nil:
			g.logger.Error("fuzzing run failed", zap.String("target", target.Name), zap.Error(err))
			return ExitError
		case result.BugFound:
			g.logger.Error("new regression found",
				zap.String("target", target.Name),
				zap.String("verdict", result.Verdict.String()))
			code = ExitNewRegression
		}
	}
	return code
}
