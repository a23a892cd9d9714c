package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
	"github.com/scottschatz/software-capitalization-sub001/internal/gitlog"
	"github.com/scottschatz/software-capitalization-sub001/internal/transcript"
)

// StoreClient is the slice of the store contract the orchestrator needs.
type StoreClient interface {
	KnownProjects(ctx context.Context, developer string) ([]api.ProjectRecord, error)
	RegisterProjects(ctx context.Context, req api.DiscoverRequest) (*api.DiscoverResponse, error)
	SubmitBatch(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error)
}

// Enricher optionally annotates discovered candidates (e.g. from the GitHub
// API). Always best-effort.
type Enricher interface {
	Enrich(ctx context.Context, cand *discovery.Candidate)
}

// Orchestrator sequences one collection cycle: discovery, known-mapping
// fetch, scan, parse, commit extraction, transmission, checkpoint advance.
// It is single-threaded and synchronous per invocation.
type Orchestrator struct {
	cfg      *config.Config
	store    StoreClient
	state    *StateStore
	enricher Enricher
	log      *logrus.Logger
	now      func() time.Time
}

// NewOrchestrator wires an orchestrator. enricher may be nil.
func NewOrchestrator(cfg *config.Config, store StoreClient, state *StateStore, enricher Enricher, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		state:    state,
		enricher: enricher,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunOptions selects the cycle mode and window.
type RunOptions struct {
	SyncType      string // api.SyncIncremental, SyncBackfill, or SyncReparse
	From          *time.Time
	To            *time.Time
	SkipDiscovery bool
}

// RunResult summarizes one cycle for the caller.
type RunResult struct {
	SyncType           string
	SessionsCollected  int
	CommitsCollected   int
	FilesSkipped       int // unmatched project directory
	FilesEmpty         int // parsed but yielded no session
	Response           *api.SyncResponse
	CheckpointAdvanced bool
}

// Run executes one end-to-end cycle. Only fatal cycle-level failures are
// returned; everything recoverable is logged and the cycle continues. On
// failure the checkpoint stays untouched so the next run retries the same
// window.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.SyncType == "" {
		opts.SyncType = api.SyncIncremental
	}
	result := &RunResult{SyncType: opts.SyncType}
	developer := o.cfg.Developer.Email

	if !opts.SkipDiscovery {
		o.runDiscovery(ctx, developer)
	}

	// Known mappings gate everything downstream; this is the one fetch the
	// cycle cannot proceed without.
	known, err := o.store.KnownProjects(ctx, developer)
	if err != nil {
		return nil, fmt.Errorf("agent: fetch known projects: %w", err)
	}
	knownEncoded := make(map[string]bool, len(known))
	var repos []string
	for _, p := range known {
		knownEncoded[p.EncodedPath] = true
		if p.HasRepo {
			repos = append(repos, p.LocalPath)
		}
	}

	state, err := o.state.Load()
	if err != nil {
		return nil, err
	}
	lowerBound := o.lowerBound(opts, state)

	files, skipped := o.scanTranscripts(lowerBound, knownEncoded)
	result.FilesSkipped = skipped

	parseOpts := transcript.Options{
		Location:     o.cfg.Location(),
		GapThreshold: o.cfg.ActiveGap(),
	}
	var sessions []transcript.Session
	for _, file := range files {
		session, err := transcript.ParseFile(file, parseOpts)
		if err != nil {
			o.log.WithError(err).WithField("file", file).Warn("agent: transcript unreadable, skipping")
			result.FilesEmpty++
			continue
		}
		if session == nil {
			result.FilesEmpty++
			continue
		}
		sessions = append(sessions, *session)
	}
	result.SessionsCollected = len(sessions)

	// Reparse recomputes derived session fields only, by design: commits are
	// immutable so there is nothing to backfill there.
	var commits []gitlog.Commit
	if opts.SyncType != api.SyncReparse {
		commits = o.collectCommits(ctx, repos, lowerBound, opts)
	}
	result.CommitsCollected = len(commits)

	if len(sessions) == 0 && len(commits) == 0 {
		o.log.Debug("agent: nothing collected, store not contacted")
		return result, nil
	}

	resp, err := o.store.SubmitBatch(ctx, api.SyncRequest{
		Developer: developer,
		SyncType:  opts.SyncType,
		Sessions:  sessions,
		Commits:   commits,
		FromDate:  lowerBound,
		ToDate:    opts.To,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: transmit batch: %w", err)
	}
	result.Response = resp

	now := o.now()
	state.LastSyncAt = &now
	if err := o.state.Save(state); err != nil {
		// Safe to continue: re-syncing the same window is idempotent.
		o.log.WithError(err).Warn("agent: checkpoint not persisted")
	} else {
		result.CheckpointAdvanced = true
	}
	return result, nil
}

// runDiscovery proposes new registrations. Every failure here is
// non-fatal.
func (o *Orchestrator) runDiscovery(ctx context.Context, developer string) {
	candidates, err := discovery.Discover(ctx, discovery.Options{
		TranscriptRoots: o.cfg.TranscriptRoots,
		ProjectsDir:     o.cfg.ProjectsDir,
		Exclude:         o.cfg.Exclude,
	})
	if err != nil {
		o.log.WithError(err).Warn("agent: discovery failed")
		return
	}
	if len(candidates) == 0 {
		return
	}
	if o.enricher != nil {
		for i := range candidates {
			o.enricher.Enrich(ctx, &candidates[i])
		}
	}
	resp, err := o.store.RegisterProjects(ctx, api.DiscoverRequest{Developer: developer, Projects: candidates})
	if err != nil {
		o.log.WithError(err).Warn("agent: project registration failed")
		return
	}
	o.log.WithFields(logrus.Fields{"created": resp.Created, "updated": resp.Updated}).
		Debug("agent: discovery registered")
}

// lowerBound computes the scan window start: explicit caller date beats the
// local checkpoint; reparse ignores the checkpoint entirely.
func (o *Orchestrator) lowerBound(opts RunOptions, state *State) *time.Time {
	if opts.SyncType == api.SyncReparse {
		return nil
	}
	if opts.From != nil {
		return opts.From
	}
	return state.LastSyncAt
}

// scanTranscripts walks the transcript roots collecting session files
// modified at/after since. Files whose encoded project directory is not a
// known mapping are counted skipped, not errors.
func (o *Orchestrator) scanTranscripts(since *time.Time, known map[string]bool) (files []string, skipped int) {
	for _, root := range o.cfg.TranscriptRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				o.log.WithError(err).WithField("root", root).Warn("agent: transcript root unreadable")
			}
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if !known[entry.Name()] {
				skipped++
				continue
			}
			projDir := filepath.Join(root, entry.Name())
			files = append(files, transcriptFiles(projDir, since)...)
			files = append(files, subagentFiles(projDir, since)...)
		}
	}
	return files, skipped
}

// transcriptFiles lists the session files directly under projDir.
func transcriptFiles(projDir string, since *time.Time) []string {
	entries, err := os.ReadDir(projDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(projDir, e.Name())
		if modifiedSince(path, since) {
			files = append(files, path)
		}
	}
	return files
}

// subagentFiles lists nested subagents/agent-* session files.
func subagentFiles(projDir string, since *time.Time) []string {
	subDir := filepath.Join(projDir, "subagents")
	entries, err := os.ReadDir(subDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "agent-") || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(subDir, e.Name())
		if modifiedSince(path, since) {
			files = append(files, path)
		}
	}
	return files
}

// modifiedSince selects files worth re-reading. Modification time bounds
// the scan only; day bucketing inside the parser never uses it.
func modifiedSince(path string, since *time.Time) bool {
	if since == nil {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.ModTime().Before(*since)
}

// collectCommits extracts commit history for every known repository,
// bounded by the scan window and filtered to the developer's own commits.
func (o *Orchestrator) collectCommits(ctx context.Context, repos []string, since *time.Time, opts RunOptions) []gitlog.Commit {
	var all []gitlog.Commit
	for _, repo := range repos {
		commits, err := gitlog.Extract(ctx, repo, gitlog.Options{
			Since:       since,
			Until:       opts.To,
			AuthorEmail: o.cfg.Developer.Email,
		})
		if err != nil {
			o.log.WithError(err).WithField("repo", repo).Warn("agent: commit extraction failed")
			continue
		}
		if opts.SyncType == api.SyncBackfill {
			for i := range commits {
				commits[i].Backfill = true
			}
		}
		all = append(all, commits...)
	}
	return all
}
