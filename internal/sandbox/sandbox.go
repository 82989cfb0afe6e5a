package sandbox

import (
	"context"

	"fuzzgate/internal/types"
)

// Result is the outcome of one sandboxed invocation.
type Result struct {
	Output   []byte // combined stdout/stderr capture
	TimedOut bool   // the deadline elapsed before the process exited
	Crashed  bool   // the process exited abnormally before the deadline
}

// Runner executes fuzzing commands inside an isolated sandbox.
//
// RunFuzzer starts the target with the fixed libfuzzer configuration and
// blocks until the target crashes or the target's duration elapses.
//
// Reproduce replays a persisted test case against the build rooted at
// buildDir. The caller bounds each attempt through ctx.
type Runner interface {
	RunFuzzer(ctx context.Context, target *types.Target) (*Result, error)
	Reproduce(ctx context.Context, buildDir, testCase, targetName string) (*Result, error)
}
