// Package gitlog extracts commit history from local repositories by
// invoking git. One bad repository never aborts a collection run: any
// subprocess failure is logged and yields an empty commit list.
package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// startMarker begins each commit record in the log output. It has to be
	// a string that never appears in commit messages we care about.
	startMarker = "@@CAPTRACK@@"
	// fieldSep separates the structural header fields. Messages may contain
	// it, so only the first four separator positions are structural.
	fieldSep = "|"

	// DefaultTimeout bounds a single git invocation.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxOutput is the safety ceiling on git log output size.
	DefaultMaxOutput = 10 << 20
)

// Commit is one extracted commit record.
type Commit struct {
	RepoPath     string    `json:"repoPath"`
	Hash         string    `json:"hash"`
	Branch       *string   `json:"branch"`
	AuthorName   string    `json:"authorName"`
	AuthorEmail  string    `json:"authorEmail"`
	CommittedAt  time.Time `json:"committedAt"`
	Message      string    `json:"message"`
	FilesChanged int       `json:"filesChanged"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
	Backfill     bool      `json:"backfill"`
}

// Options bounds and filters an extraction.
type Options struct {
	Since       *time.Time
	Until       *time.Time
	AuthorEmail string
	Timeout     time.Duration
	MaxOutput   int
}

// numstat lines are "<insertions>\t<deletions>\t<path>"; binary files show
// "-" in the numeric columns and are ignored.
var statLineRe = regexp.MustCompile(`^(\d+)\t(\d+)\t(.+)$`)

// gitBinary is the subprocess to invoke; tests substitute a stub.
var gitBinary = "git"

var errOutputCap = errors.New("gitlog: output cap exceeded")

// limitWriter buffers subprocess output up to limit bytes. The first write
// past the limit fails, which closes the pipe under the subprocess and
// terminates it, so a pathological repository never gets buffered whole.
type limitWriter struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		w.exceeded = true
		return 0, errOutputCap
	}
	return w.buf.Write(p)
}

// Extract returns the commits in repoPath matching opts, newest first. A
// path that is not a git repository yields an empty list silently. A
// timeout, oversized output, or any other git failure is logged as a
// warning and also yields an empty list.
func Extract(ctx context.Context, repoPath string, opts Options) ([]Commit, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutput == 0 {
		opts.MaxOutput = DefaultMaxOutput
	}

	args := []string{"-C", repoPath, "log", "--no-merges",
		"--pretty=format:" + startMarker + "%H" + fieldSep + "%an" + fieldSep + "%ae" + fieldSep + "%aI" + fieldSep + "%s",
		"--numstat"}
	if opts.Since != nil {
		args = append(args, "--since="+opts.Since.Format(time.RFC3339))
	}
	if opts.Until != nil {
		args = append(args, "--until="+opts.Until.Format(time.RFC3339))
	}
	if opts.AuthorEmail != "" {
		args = append(args, "--author="+opts.AuthorEmail)
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, gitBinary, args...)
	stdout := &limitWriter{limit: opts.MaxOutput}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logrus.WithField("repo", repoPath).Warn("gitlog: git log timed out, skipping repository")
		return nil, nil
	}
	if stdout.exceeded {
		logrus.WithField("repo", repoPath).
			Warnf("gitlog: git log output exceeds cap %d bytes, skipping repository", opts.MaxOutput)
		return nil, nil
	}
	if err != nil {
		if isNotRepo(err, stderr.String()) {
			return nil, nil
		}
		logrus.WithField("repo", repoPath).WithError(err).
			Warnf("gitlog: git log failed: %s", strings.TrimSpace(stderr.String()))
		return nil, nil
	}

	commits := parseLog(stdout.buf.String())
	if len(commits) == 0 {
		return nil, nil
	}

	// Best-effort branch annotation; failure leaves Branch nil.
	branch := CurrentBranch(ctx, repoPath)
	for i := range commits {
		commits[i].RepoPath = repoPath
		commits[i].Branch = branch
	}
	return commits, nil
}

// isNotRepo reports whether a git failure means "this path is not a
// repository" (exit status 128 with the canonical message).
func isNotRepo(err error, stderr string) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return exitErr.ExitCode() == 128 && strings.Contains(stderr, "not a git repository")
}

// parseLog splits marker-delimited git log output into commit records.
// Within each chunk the header line's first four separator positions are
// structural; the remainder is rejoined as the message. Stat lines that do
// not match the three-column numeric shape are ignored.
func parseLog(output string) []Commit {
	var commits []Commit
	for _, chunk := range strings.Split(output, startMarker) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		lines := strings.Split(chunk, "\n")
		header := strings.Split(lines[0], fieldSep)
		if len(header) < 5 {
			continue
		}

		committedAt, err := time.Parse(time.RFC3339, header[3])
		if err != nil {
			continue
		}

		c := Commit{
			Hash:        header[0],
			AuthorName:  header[1],
			AuthorEmail: header[2],
			CommittedAt: committedAt,
			Message:     strings.Join(header[4:], fieldSep),
		}

		for _, line := range lines[1:] {
			m := statLineRe.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			ins, _ := strconv.Atoi(m[1])
			del, _ := strconv.Atoi(m[2])
			c.FilesChanged++
			c.Insertions += ins
			c.Deletions += del
		}

		commits = append(commits, c)
	}
	return commits
}

// CurrentBranch returns the checked-out branch of repoPath, or nil if it
// cannot be determined.
func CurrentBranch(ctx context.Context, repoPath string) *string {
	out, err := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil
	}
	branch := strings.TrimSpace(out)
	if branch == "" || branch == "HEAD" {
		return nil
	}
	return &branch
}

// RemoteURL returns the origin remote URL of repoPath, or nil if the
// repository has no origin remote.
func RemoteURL(ctx context.Context, repoPath string) *string {
	out, err := runGit(ctx, repoPath, "remote", "get-url", "origin")
	if err != nil {
		return nil
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return nil
	}
	return &url
}

// runGit runs a short git query with the default timeout.
func runGit(ctx context.Context, repoPath string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, gitBinary, append([]string{"-C", repoPath}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("gitlog: git %s in %s: %w", strings.Join(args, " "), repoPath, err)
	}
	return string(out), nil
}
