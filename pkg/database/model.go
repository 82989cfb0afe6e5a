package database

import "time"

// Bug represents a record in the public.bugs table, one per classified crash.
type Bug struct {
	ID           int       `gorm:"primaryKey;column:id"`
	SessionID    string    `gorm:"column:session_id;not null"`
	ProjectName  string    `gorm:"column:project_name"`
	TargetName   string    `gorm:"column:target_name;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
	Architecture string    `gorm:"column:architecture;not null"`
	POC          string    `gorm:"column:poc;not null"`
	Digest       string    `gorm:"column:digest"`
	Verdict      string    `gorm:"column:verdict;not null"`
	Output       string    `gorm:"column:output;type:text"`
}
