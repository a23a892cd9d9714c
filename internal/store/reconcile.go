// Package store implements the evidence store: idempotent session upsert,
// insert-only commits, append-only sync audit log, and the HTTP API the
// collection agent talks to.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/gitlog"
	"github.com/scottschatz/software-capitalization-sub001/internal/models"
	"github.com/scottschatz/software-capitalization-sub001/internal/transcript"
)

// Store reconciles incoming batches against the database.
type Store struct {
	db  *gorm.DB
	log *logrus.Logger
}

// New returns a Store writing through gdb.
func New(gdb *gorm.DB, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: gdb, log: log}
}

// ApplyBatch reconciles one submitted batch. Each record's insert/update
// decision is made independently; there is no cross-batch rollback. The
// whole batch is wrapped in a SyncLog row (running -> completed/failed).
func (s *Store) ApplyBatch(req api.SyncRequest) (*api.SyncResponse, error) {
	if req.Developer == "" {
		return nil, fmt.Errorf("store: developer is required")
	}

	syncLog := models.SyncLog{
		Developer: req.Developer,
		SyncType:  req.SyncType,
		Status:    "running",
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&syncLog).Error; err != nil {
		return nil, fmt.Errorf("store: open sync log: %w", err)
	}

	resp := &api.SyncResponse{SyncLogID: syncLog.ID}
	var firstErr error

	for _, session := range req.Sessions {
		created, err := s.upsertSession(req.Developer, session)
		switch {
		case err != nil:
			resp.SessionsSkipped++
			s.log.WithError(err).WithField("session", session.SessionID).Warn("store: session rejected")
			if firstErr == nil {
				firstErr = err
			}
		case created:
			resp.SessionsCreated++
		default:
			resp.SessionsUpdated++
		}
	}

	for _, commit := range req.Commits {
		created, err := s.insertCommit(req.Developer, commit)
		switch {
		case err != nil:
			resp.CommitsSkipped++
			s.log.WithError(err).WithField("hash", commit.Hash).Warn("store: commit rejected")
			if firstErr == nil {
				firstErr = err
			}
		case created:
			resp.CommitsCreated++
		default:
			resp.CommitsSkipped++
		}
	}

	s.closeSyncLog(&syncLog, resp, firstErr)
	return resp, nil
}

// upsertSession is the two-path write: insert a new session whole, or grow
// an existing one through the explicit allow-list only. Identity and
// settled fields are never present in the update path; the Session model's
// BeforeUpdate hook backs that up at the storage layer.
func (s *Store) upsertSession(developer string, ts transcript.Session) (created bool, err error) {
	var existing models.Session
	lookupErr := s.db.Where("developer = ? AND session_id = ?", developer, ts.SessionID).
		First(&existing).Error

	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		row, err := sessionRow(developer, ts)
		if err != nil {
			return false, err
		}
		if err := s.db.Create(row).Error; err != nil {
			return false, fmt.Errorf("store: insert session %s: %w", ts.SessionID, err)
		}
		return true, nil
	}
	if lookupErr != nil {
		return false, fmt.Errorf("store: lookup session %s: %w", ts.SessionID, lookupErr)
	}

	updates, err := growableFields(ts)
	if err != nil {
		return false, err
	}
	res := s.db.Model(&existing).Select(models.UpdatableSessionColumns).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("store: update session %s: %w", ts.SessionID, res.Error)
	}
	return false, nil
}

// sessionRow converts parsed metrics to a full database row for insert.
func sessionRow(developer string, ts transcript.Session) (*models.Session, error) {
	toolCounts, err := marshalJSON(ts.ToolCounts)
	if err != nil {
		return nil, fmt.Errorf("store: marshal tool counts: %w", err)
	}
	files, err := marshalJSON(ts.ReferencedFiles)
	if err != nil {
		return nil, fmt.Errorf("store: marshal referenced files: %w", err)
	}
	days, err := marshalJSON(ts.Days)
	if err != nil {
		return nil, fmt.Errorf("store: marshal daily breakdown: %w", err)
	}

	return &models.Session{
		Developer:           developer,
		SessionID:           ts.SessionID,
		ProjectPath:         ts.ProjectPath,
		StartedAt:           ts.StartedAt,
		EndedAt:             ts.EndedAt,
		DurationMinutes:     ts.DurationMinutes,
		TotalInputTokens:    ts.TotalInputTokens,
		TotalOutputTokens:   ts.TotalOutputTokens,
		CacheReadTokens:     ts.CacheReadTokens,
		CacheCreationTokens: ts.CacheCreationTokens,
		MessageCount:        ts.MessageCount,
		ToolInvocations:     ts.ToolInvocations,
		UserPromptCount:     ts.UserPromptCount,
		Model:               ts.Model,
		FirstPrompt:         ts.FirstPrompt,
		ToolCounts:          toolCounts,
		ReferencedFiles:     files,
		DailyBreakdown:      days,
	}, nil
}

// growableFields builds the update map for an existing session. Disallowed
// fields are simply never put in this map.
func growableFields(ts transcript.Session) (map[string]interface{}, error) {
	toolCounts, err := marshalJSON(ts.ToolCounts)
	if err != nil {
		return nil, fmt.Errorf("store: marshal tool counts: %w", err)
	}
	files, err := marshalJSON(ts.ReferencedFiles)
	if err != nil {
		return nil, fmt.Errorf("store: marshal referenced files: %w", err)
	}
	days, err := marshalJSON(ts.Days)
	if err != nil {
		return nil, fmt.Errorf("store: marshal daily breakdown: %w", err)
	}

	return map[string]interface{}{
		"ended_at":              ts.EndedAt,
		"duration_minutes":      ts.DurationMinutes,
		"total_input_tokens":    ts.TotalInputTokens,
		"total_output_tokens":   ts.TotalOutputTokens,
		"cache_read_tokens":     ts.CacheReadTokens,
		"cache_creation_tokens": ts.CacheCreationTokens,
		"message_count":         ts.MessageCount,
		"tool_invocations":      ts.ToolInvocations,
		"user_prompt_count":     ts.UserPromptCount,
		"model":                 ts.Model,
		"tool_counts":           toolCounts,
		"referenced_files":      files,
		"daily_breakdown":       days,
	}, nil
}

// insertCommit is insert-only. A uniqueness violation on (developer, hash)
// means "already present" and is not an error.
func (s *Store) insertCommit(developer string, c gitlog.Commit) (created bool, err error) {
	row := models.Commit{
		Developer:    developer,
		CommitHash:   c.Hash,
		RepoPath:     c.RepoPath,
		Branch:       c.Branch,
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		CommittedAt:  c.CommittedAt,
		Message:      c.Message,
		FilesChanged: c.FilesChanged,
		Insertions:   c.Insertions,
		Deletions:    c.Deletions,
		Backfill:     c.Backfill,
	}
	if err := s.db.Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: insert commit %s: %w", c.Hash, err)
	}
	return true, nil
}

// closeSyncLog finalizes the audit record. A failure here is logged but
// does not undo the reconciled batch.
func (s *Store) closeSyncLog(syncLog *models.SyncLog, resp *api.SyncResponse, firstErr error) {
	now := time.Now().UTC()
	status := "completed"
	errText := ""
	if firstErr != nil {
		status = "failed"
		errText = firstErr.Error()
	}
	err := s.db.Model(syncLog).Updates(map[string]interface{}{
		"status":           status,
		"sessions_created": resp.SessionsCreated,
		"sessions_updated": resp.SessionsUpdated,
		"sessions_skipped": resp.SessionsSkipped,
		"commits_created":  resp.CommitsCreated,
		"commits_skipped":  resp.CommitsSkipped,
		"error":            errText,
		"completed_at":     &now,
	}).Error
	if err != nil {
		s.log.WithError(err).WithField("sync_log", syncLog.ID).Error("store: close sync log")
	}
}

// isDuplicateKey detects a uniqueness violation across both supported
// drivers.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// marshalJSON marshals a value to a JSON string, returning empty string for nil.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
