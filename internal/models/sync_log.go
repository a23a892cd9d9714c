package models

import "time"

// SyncLog is the audit record wrapping one submitted batch, independent of
// the raw-evidence trail. It moves running -> completed or failed and keeps
// the per-record counts.
type SyncLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Developer string `gorm:"size:128;index"`
	SyncType  string `gorm:"size:16"` // incremental, backfill, reparse
	Status    string `gorm:"size:16;default:running;index"`

	FromDate *time.Time
	ToDate   *time.Time

	SessionsCreated int
	SessionsUpdated int
	SessionsSkipped int
	CommitsCreated  int
	CommitsSkipped  int

	Error string `gorm:"type:text"`

	StartedAt   time.Time
	CompletedAt *time.Time
}
