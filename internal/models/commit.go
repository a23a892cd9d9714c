package models

import "time"

// Commit is one extracted version-control commit, fully immutable once
// stored. The unique index on (developer, commit hash) is what makes
// re-ingestion of the same window safe: a duplicate insert is "already
// present", never an error.
type Commit struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	Developer  string  `gorm:"size:128;not null;uniqueIndex:idx_dev_hash"`
	CommitHash string  `gorm:"size:40;not null;uniqueIndex:idx_dev_hash"`
	RepoPath   string  `gorm:"size:512;index"`
	Branch     *string `gorm:"size:128"`

	AuthorName  string `gorm:"size:128"`
	AuthorEmail string `gorm:"size:128;index"`
	CommittedAt time.Time
	Message     string `gorm:"type:text"`

	FilesChanged int
	Insertions   int
	Deletions    int
	Backfill     bool `gorm:"default:false"`

	CreatedAt time.Time
}
