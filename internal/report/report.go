// Package report persists classified crashes and announces verdicts to
// downstream consumers.
package report

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fuzzgate/config"
	"fuzzgate/internal/types"
	"fuzzgate/internal/utils"
	"fuzzgate/pkg/database"
	"fuzzgate/pkg/mq"
)

const (
	// VerdictQueue receives one JSON VerdictMessage per classified crash.
	VerdictQueue = "fuzzgate.verdicts"

	crashSeenKey = "fuzzgate:crash_seen:%s"
	crashSeenTTL = 7 * 24 * time.Hour
)

// Reporter stores a digest-named copy of each reproducer and fans the
// verdict out to the optional database and message queue sinks.
type Reporter struct {
	logger    *zap.Logger
	db        *gorm.DB      // may be nil, log-only mode
	publisher mq.Publisher  // may be nil
	redis     *redis.Client // may be nil, disables dedup

	sessionID   string
	crashFolder string
}

type ReporterParams struct {
	fx.In

	Logger      *zap.Logger
	AppConfig   *config.AppConfig
	DB          *gorm.DB      `optional:"true"`
	Publisher   mq.Publisher  `optional:"true"`
	RedisClient *redis.Client `optional:"true"`
}

func NewReporter(p ReporterParams) *Reporter {
	return &Reporter{
		logger:      p.Logger,
		db:          p.DB,
		publisher:   p.Publisher,
		redis:       p.RedisClient,
		sessionID:   uuid.NewString(),
		crashFolder: filepath.Join(p.AppConfig.OutDir, "crashes"),
	}
}

func (r *Reporter) SessionID() string {
	return r.sessionID
}

// Report records one classified crash. Sink failures are logged, not fatal:
// the verdict has already been decided and losing a record must not flip
// the gate.
func (r *Reporter) Report(ctx context.Context, target *types.Target, crash *types.CrashRecord, verdict types.Verdict) error {
	crashData, err := os.ReadFile(crash.TestCase)
	if err != nil {
		return fmt.Errorf("read reproducer: %w", err)
	}
	sum := md5.Sum(crashData)
	digest := hex.EncodeToString(sum[:])

	logger := r.logger.With(
		zap.String("target", target.Name),
		zap.String("digest", digest),
		zap.String("verdict", verdict.String()),
	)

	if r.seenBefore(ctx, digest) {
		logger.Info("duplicate crash digest, skipping report")
		return nil
	}

	// created lazily so a missing output directory stays an error for the
	// checks that run before any crash exists
	if err := os.MkdirAll(r.crashFolder, 0755); err != nil {
		return fmt.Errorf("create crash folder: %w", err)
	}

	storedPath := filepath.Join(r.crashFolder, digest)
	if err := utils.CopyFile(crash.TestCase, storedPath); err != nil {
		return fmt.Errorf("store reproducer: %w", err)
	}
	logger.Info("reproducer stored", zap.String("path", storedPath))

	if r.db != nil {
		bug := database.NewBug(r.sessionID, target.ProjectName, target.Name,
			storedPath, digest, verdict.String(), crash.Output)
		if err := database.AddBug(ctx, r.db, bug); err != nil {
			logger.Error("failed to record bug", zap.Error(err))
		}
	}

	if r.publisher != nil {
		msg := types.VerdictMessage{
			SessionID:   r.sessionID,
			ProjectName: target.ProjectName,
			TargetName:  target.Name,
			TestCase:    storedPath,
			Verdict:     verdict.String(),
			CreatedAt:   time.Now().UTC(),
		}
		body, err := json.Marshal(msg)
		if err != nil {
			logger.Error("failed to marshal verdict message", zap.Error(err))
			return nil
		}
		if err := r.publisher.Publish(ctx, VerdictQueue, body); err != nil {
			logger.Error("failed to publish verdict", zap.Error(err))
		}
	}

	return nil
}

// seenBefore marks the digest in redis and reports whether it was already
// present. Without redis every crash is treated as new.
func (r *Reporter) seenBefore(ctx context.Context, digest string) bool {
	if r.redis == nil {
		return false
	}
	key := fmt.Sprintf(crashSeenKey, digest)
	fresh, err := r.redis.SetNX(ctx, key, r.sessionID, crashSeenTTL).Result()
	if err != nil {
		r.logger.Warn("crash dedup check failed", zap.Error(err))
		return false
	}
	return !fresh
}
