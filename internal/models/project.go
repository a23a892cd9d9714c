package models

import "time"

// Project maps a registered project to its local path and transcript
// directory encoding. Registrations come from discovery; the stored mapping
// is what the sync cycle uses to filter unmatched transcript directories.
type Project struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Developer   string `gorm:"size:128;not null;uniqueIndex:idx_dev_path"`
	LocalPath   string `gorm:"size:512;not null;uniqueIndex:idx_dev_path"`
	Name        string `gorm:"size:128;index"`
	EncodedPath string `gorm:"size:512;index"`

	HasRepo        bool
	HasTranscripts bool
	RemoteURL      *string `gorm:"size:512"`
	DefaultBranch  *string `gorm:"size:128"`
	Private        *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
