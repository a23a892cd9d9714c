// Package api defines the wire contract between the collection agent and
// the evidence store.
package api

import (
	"time"

	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
	"github.com/scottschatz/software-capitalization-sub001/internal/gitlog"
	"github.com/scottschatz/software-capitalization-sub001/internal/transcript"
)

// Sync cycle types.
const (
	SyncIncremental = "incremental"
	SyncBackfill    = "backfill"
	SyncReparse     = "reparse"
)

// ClientVersionHeader carries the agent's version marker on every request.
const ClientVersionHeader = "X-Client-Version"

// SyncRequest is one submitted batch. The store decides insert/update per
// record independently; double submission of the same window is always safe.
type SyncRequest struct {
	Developer string               `json:"developer"`
	SyncType  string               `json:"syncType"`
	Sessions  []transcript.Session `json:"sessions"`
	Commits   []gitlog.Commit      `json:"commits"`
	FromDate  *time.Time           `json:"fromDate"`
	ToDate    *time.Time           `json:"toDate"`
}

// SyncResponse reports what the store did with the batch.
type SyncResponse struct {
	SessionsCreated int  `json:"sessionsCreated"`
	SessionsUpdated int  `json:"sessionsUpdated"`
	SessionsSkipped int  `json:"sessionsSkipped"`
	CommitsCreated  int  `json:"commitsCreated"`
	CommitsSkipped  int  `json:"commitsSkipped"`
	SyncLogID       uint `json:"syncLogId"`
}

// ProjectRecord is a registered project as the store knows it.
type ProjectRecord struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	LocalPath      string  `json:"localPath"`
	EncodedPath    string  `json:"encodedPath"`
	HasRepo        bool    `json:"hasRepo"`
	HasTranscripts bool    `json:"hasTranscripts"`
	RemoteURL      *string `json:"remoteUrl"`
	DefaultBranch  *string `json:"defaultBranch"`
	Private        *bool   `json:"private"`
}

// DiscoverRequest proposes candidate projects for registration.
type DiscoverRequest struct {
	Developer string                `json:"developer"`
	Projects  []discovery.Candidate `json:"projects"`
}

// DiscoverResponse reports registration results and the full known set.
type DiscoverResponse struct {
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Total    int             `json:"total"`
	Projects []ProjectRecord `json:"projects"`
}

// ErrorResponse is the store's error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
