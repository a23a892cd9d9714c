// Package github annotates discovered projects with repository metadata
// from the GitHub API. Strictly best-effort: any failure leaves the
// candidate unannotated.
package github

import (
	"context"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
)

// Enricher fetches default-branch and visibility annotations.
type Enricher struct {
	client *gh.Client
	log    *logrus.Logger
}

// NewEnricher returns an Enricher authenticated with token.
func NewEnricher(ctx context.Context, token string, log *logrus.Logger) *Enricher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Enricher{client: gh.NewClient(oauth2.NewClient(ctx, ts)), log: log}
}

// Enrich annotates cand in place when its remote is a GitHub repository.
func (e *Enricher) Enrich(ctx context.Context, cand *discovery.Candidate) {
	if cand.RemoteURL == nil {
		return
	}
	owner, repo, ok := ParseRemote(*cand.RemoteURL)
	if !ok {
		return
	}
	r, _, err := e.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		e.log.WithError(err).WithField("repo", owner+"/"+repo).Debug("github: lookup failed")
		return
	}
	cand.DefaultBranch = r.DefaultBranch
	cand.Private = r.Private
}

// ParseRemote extracts owner/repo from an HTTPS or SSH GitHub remote URL.
func ParseRemote(remote string) (owner, repo string, ok bool) {
	var path string
	switch {
	case strings.HasPrefix(remote, "https://github.com/"):
		path = strings.TrimPrefix(remote, "https://github.com/")
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	default:
		return "", "", false
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
