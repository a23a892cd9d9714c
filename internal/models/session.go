package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Session is the stored evidence for one assistant conversation, unique per
// (developer, session id). Core evidentiary fields are write-once; only the
// growable fields listed in UpdatableSessionColumns may change after insert.
type Session struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Developer   string `gorm:"size:128;not null;uniqueIndex:idx_dev_session"`
	SessionID   string `gorm:"size:255;not null;uniqueIndex:idx_dev_session"`
	ProjectPath string `gorm:"size:512"`

	StartedAt       time.Time
	EndedAt         time.Time
	DurationMinutes int

	TotalInputTokens    int64
	TotalOutputTokens   int64
	CacheReadTokens     int64
	CacheCreationTokens int64

	MessageCount    int
	ToolInvocations int
	UserPromptCount int
	Model           string `gorm:"size:64"`
	FirstPrompt     string `gorm:"size:256"`

	ToolCounts      string `gorm:"type:json"`
	ReferencedFiles string `gorm:"type:json"`
	DailyBreakdown  string `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// settledSessionColumns may never change once a session row exists. The
// reconciliation path never includes them in updates; this hook is the
// storage-layer backstop — tripping it means an implementation bug, not a
// runtime condition.
var settledSessionColumns = []string{"Developer", "SessionID", "ProjectPath", "StartedAt", "FirstPrompt"}

// UpdatableSessionColumns is the explicit allow-list of growable fields the
// reconciliation protocol may update on re-ingestion of a still-growing
// transcript.
var UpdatableSessionColumns = []string{
	"ended_at", "duration_minutes",
	"total_input_tokens", "total_output_tokens", "cache_read_tokens", "cache_creation_tokens",
	"message_count", "tool_invocations", "user_prompt_count",
	"model", "tool_counts", "referenced_files", "daily_breakdown",
	"updated_at",
}

// BeforeUpdate rejects any attempt to mutate settled evidence fields.
func (s *Session) BeforeUpdate(tx *gorm.DB) error {
	for _, col := range settledSessionColumns {
		if tx.Statement.Changed(col) {
			return fmt.Errorf("models: session field %s is write-once", col)
		}
	}
	return nil
}
