// Package discovery scans transcript roots and the local projects directory
// to propose project registrations. Candidates are proposals only; the
// evidence store remains authoritative for registered projects.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scottschatz/software-capitalization-sub001/internal/gitlog"
)

// Candidate is a transient, non-persisted project proposal correlating a
// transcript directory with a local path.
type Candidate struct {
	Name           string  `json:"name"`
	LocalPath      string  `json:"localPath"`
	EncodedPath    string  `json:"encodedPath"`
	HasRepo        bool    `json:"hasRepo"`
	HasTranscripts bool    `json:"hasTranscripts"`
	RemoteURL      *string `json:"remoteUrl"`
	DefaultBranch  *string `json:"defaultBranch"`
	Private        *bool   `json:"private"`
}

// Options configures a discovery scan.
type Options struct {
	TranscriptRoots []string
	ProjectsDir     string
	Exclude         []string // substring match against the encoded name
}

// Discover enumerates candidate projects from the transcript roots and the
// secondary projects directory, de-duplicated by decoded local path and
// sorted by name.
func Discover(ctx context.Context, opts Options) ([]Candidate, error) {
	seen := make(map[string]bool)
	var candidates []Candidate

	for _, root := range opts.TranscriptRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("discovery: read transcript root %s: %w", root, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			encoded := entry.Name()
			if excluded(encoded, opts.Exclude) {
				continue
			}
			local := DecodePath(encoded)
			info, err := os.Stat(local)
			if err != nil || !info.IsDir() {
				continue
			}
			if seen[local] {
				continue
			}
			seen[local] = true

			c := Candidate{
				Name:           filepath.Base(local),
				LocalPath:      local,
				EncodedPath:    encoded,
				HasTranscripts: true,
				HasRepo:        hasRepoMarker(local),
			}
			if c.HasRepo {
				c.RemoteURL = gitlog.RemoteURL(ctx, local)
			}
			candidates = append(candidates, c)
		}
	}

	extra, err := scanProjectsDir(ctx, opts, seen)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, extra...)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates, nil
}

// scanProjectsDir picks up repositories from the conventional projects
// directory that have no transcript directory yet.
func scanProjectsDir(ctx context.Context, opts Options, seen map[string]bool) ([]Candidate, error) {
	if opts.ProjectsDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(opts.ProjectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("discovery: read projects dir %s: %w", opts.ProjectsDir, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		local := filepath.Join(opts.ProjectsDir, entry.Name())
		encoded := EncodePath(local)
		if seen[local] || excluded(encoded, opts.Exclude) {
			continue
		}
		if !hasRepoMarker(local) {
			continue
		}
		seen[local] = true

		c := Candidate{
			Name:           entry.Name(),
			LocalPath:      local,
			EncodedPath:    encoded,
			HasRepo:        true,
			HasTranscripts: hasTranscripts(opts.TranscriptRoots, encoded),
			RemoteURL:      gitlog.RemoteURL(ctx, local),
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// hasRepoMarker reports whether path contains a version-control marker.
func hasRepoMarker(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// hasTranscripts reports whether any transcript root has a directory for
// the encoded project path.
func hasTranscripts(roots []string, encoded string) bool {
	for _, root := range roots {
		if info, err := os.Stat(filepath.Join(root, encoded)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func excluded(encoded string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(encoded, p) {
			return true
		}
	}
	return false
}
