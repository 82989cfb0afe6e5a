package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AddBug inserts a single bug record into the database.
func AddBug(ctx context.Context, db *gorm.DB, bug *Bug) error {
	if bug == nil {
		return nil
	}
	return db.WithContext(ctx).Create(bug).Error
}

// NewBug creates a new Bug record with the provided parameters.
func NewBug(sessionID, projectName, targetName, poc, digest, verdict, output string) *Bug {
	return &Bug{
		SessionID:    sessionID,
		ProjectName:  projectName,
		TargetName:   targetName,
		CreatedAt:    time.Now(),
		Architecture: "x86_64",
		POC:          poc,
		Digest:       digest,
		Verdict:      verdict,
		Output:       output,
	}
}
