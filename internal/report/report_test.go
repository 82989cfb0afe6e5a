package report

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fuzzgate/config"
	"fuzzgate/internal/types"
)

type capturedPublish struct {
	queue string
	body  []byte
}

type fakePublisher struct {
	published []capturedPublish
}

func (f *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	f.published = append(f.published, capturedPublish{queue, body})
	return nil
}

func newTestReporter(t *testing.T, outDir string, pub *fakePublisher) *Reporter {
	t.Helper()
	r := &Reporter{
		logger:      zap.NewNop(),
		sessionID:   "test-session",
		crashFolder: filepath.Join(outDir, "crashes"),
	}
	if pub != nil {
		r.publisher = pub
	}
	return r
}

func writeCrash(t *testing.T, outDir string, content []byte) *types.CrashRecord {
	t.Helper()
	testCase := filepath.Join(outDir, "crash-1")
	require.NoError(t, os.WriteFile(testCase, content, 0644))
	return &types.CrashRecord{TestCase: testCase, Output: "==ERROR: AddressSanitizer"}
}

func TestReportStoresDigestNamedCopy(t *testing.T) {
	outDir := t.TempDir()
	r := newTestReporter(t, outDir, nil)

	content := []byte("crashing input")
	crash := writeCrash(t, outDir, content)
	target := types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "example")

	require.NoError(t, r.Report(context.Background(), target, crash, types.VerdictNewRegression))

	sum := md5.Sum(content)
	stored := filepath.Join(outDir, "crashes", hex.EncodeToString(sum[:]))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestReportPublishesVerdictMessage(t *testing.T) {
	outDir := t.TempDir()
	pub := &fakePublisher{}
	r := newTestReporter(t, outDir, pub)

	crash := writeCrash(t, outDir, []byte("input"))
	target := types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "example")

	require.NoError(t, r.Report(context.Background(), target, crash, types.VerdictPreExistingBug))

	require.Len(t, pub.published, 1)
	assert.Equal(t, VerdictQueue, pub.published[0].queue)

	var msg types.VerdictMessage
	require.NoError(t, json.Unmarshal(pub.published[0].body, &msg))
	assert.Equal(t, "test-session", msg.SessionID)
	assert.Equal(t, "example", msg.ProjectName)
	assert.Equal(t, "do_stuff_fuzzer", msg.TargetName)
	assert.Equal(t, "pre_existing_bug", msg.Verdict)
}

func TestNewReporterLeavesMissingOutDirAlone(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "does-not-exist")

	r := NewReporter(ReporterParams{
		Logger:    zap.NewNop(),
		AppConfig: &config.AppConfig{OutDir: outDir},
	})
	require.NotNil(t, r)

	// the out-dir existence checks elsewhere must still see it missing
	_, err := os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))
}

func TestReportCreatesCrashFolderOnDemand(t *testing.T) {
	outDir := t.TempDir()
	r := newTestReporter(t, outDir, nil)

	_, err := os.Stat(filepath.Join(outDir, "crashes"))
	require.True(t, os.IsNotExist(err))

	crash := writeCrash(t, outDir, []byte("input"))
	target := types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "")
	require.NoError(t, r.Report(context.Background(), target, crash, types.VerdictNewRegression))

	assert.DirExists(t, filepath.Join(outDir, "crashes"))
}

func TestReportMissingReproducer(t *testing.T) {
	outDir := t.TempDir()
	r := newTestReporter(t, outDir, nil)

	crash := &types.CrashRecord{TestCase: filepath.Join(outDir, "gone")}
	target := types.NewTarget(filepath.Join(outDir, "do_stuff_fuzzer"), time.Minute, outDir, "")

	assert.Error(t, r.Report(context.Background(), target, crash, types.VerdictNewRegression))
}
