package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fuzzgate/internal/sandbox"
	"fuzzgate/internal/types"
)

// scriptedRunner replays a fixed sequence of outcomes, one per Reproduce call.
type scriptedRunner struct {
	results []sandbox.Result
	err     error
	calls   int
}

func (s *scriptedRunner) RunFuzzer(ctx context.Context, target *types.Target) (*sandbox.Result, error) {
	panic("not used")
}

func (s *scriptedRunner) Reproduce(ctx context.Context, buildDir, testCase, targetName string) (*sandbox.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.results) {
		panic("more attempts than scripted outcomes")
	}
	res := s.results[s.calls]
	s.calls++
	return &res, nil
}

func newTestVerifier(runner sandbox.Runner) *Verifier {
	return &Verifier{
		logger:         zap.NewNop(),
		runner:         runner,
		attempts:       ReproduceAttempts,
		attemptTimeout: time.Second,
	}
}

func repeat(r sandbox.Result, n int) []sandbox.Result {
	results := make([]sandbox.Result, n)
	for i := range results {
		results[i] = r
	}
	return results
}

func TestReproducibleFirstCrashWins(t *testing.T) {
	runner := &scriptedRunner{results: []sandbox.Result{
		{}, {}, {Crashed: true}, {}, // anything after the crash must not run
	}}
	v := newTestVerifier(runner)

	ok, err := v.Reproducible(context.Background(), "/out", "/out/crash-1", "do_stuff_fuzzer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, runner.calls, "must short-circuit after the first abnormal exit")
}

func TestReproducibleAllAttemptsNormal(t *testing.T) {
	runner := &scriptedRunner{results: repeat(sandbox.Result{}, ReproduceAttempts)}
	v := newTestVerifier(runner)

	ok, err := v.Reproducible(context.Background(), "/out", "/out/crash-1", "do_stuff_fuzzer")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReproduceAttempts, runner.calls, "must exhaust the full attempt budget")
}

func TestReproducibleCrashOnLastAttempt(t *testing.T) {
	results := repeat(sandbox.Result{}, ReproduceAttempts-1)
	results = append(results, sandbox.Result{Crashed: true})
	runner := &scriptedRunner{results: results}
	v := newTestVerifier(runner)

	ok, err := v.Reproducible(context.Background(), "/out", "/out/crash-1", "do_stuff_fuzzer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ReproduceAttempts, runner.calls)
}

func TestReproducibleTimedOutAttemptNotACrash(t *testing.T) {
	// a hung replay killed by the attempt timeout reports Crashed from the
	// process exit but must not count as a reproduction
	results := repeat(sandbox.Result{Crashed: true, TimedOut: true}, ReproduceAttempts)
	runner := &scriptedRunner{results: results}
	v := newTestVerifier(runner)

	ok, err := v.Reproducible(context.Background(), "/out", "/out/crash-1", "do_stuff_fuzzer")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReproducibleRunnerError(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("docker not available")}
	v := newTestVerifier(runner)

	_, err := v.Reproducible(context.Background(), "/out", "/out/crash-1", "do_stuff_fuzzer")
	assert.Error(t, err)
	assert.Equal(t, 0, runner.calls)
}
