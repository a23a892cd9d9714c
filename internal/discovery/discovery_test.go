package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// testLayout builds a projects dir and transcript root under a shared base
// so encoded transcript directories decode back to real local paths.
type testLayout struct {
	projectsDir    string
	transcriptRoot string
}

func newTestLayout(t *testing.T) *testLayout {
	t.Helper()
	base := t.TempDir()
	l := &testLayout{
		projectsDir:    filepath.Join(base, "projects"),
		transcriptRoot: filepath.Join(base, "transcripts"),
	}
	for _, dir := range []string{l.projectsDir, l.transcriptRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return l
}

// addProject creates a local project directory, optionally with a .git
// marker and a transcript directory, and returns its local path.
func (l *testLayout) addProject(t *testing.T, name string, withRepo, withTranscripts bool) string {
	t.Helper()
	local := filepath.Join(l.projectsDir, name)
	if err := os.MkdirAll(local, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", local, err)
	}
	if withRepo {
		if err := os.MkdirAll(filepath.Join(local, ".git"), 0o755); err != nil {
			t.Fatalf("mkdir .git: %v", err)
		}
	}
	if withTranscripts {
		if err := os.MkdirAll(filepath.Join(l.transcriptRoot, EncodePath(local)), 0o755); err != nil {
			t.Fatalf("mkdir transcript dir: %v", err)
		}
	}
	return local
}

func (l *testLayout) options() Options {
	return Options{
		TranscriptRoots: []string{l.transcriptRoot},
		ProjectsDir:     l.projectsDir,
	}
}

func TestDiscover(t *testing.T) {
	l := newTestLayout(t)
	alpha := l.addProject(t, "alpha", true, true)
	l.addProject(t, "gamma", false, true)
	beta := l.addProject(t, "beta", true, false)

	// Transcript dir whose decoded path does not exist is skipped.
	if err := os.MkdirAll(filepath.Join(l.transcriptRoot, "-no-such-path"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Plain files in a transcript root are ignored.
	if err := os.WriteFile(filepath.Join(l.transcriptRoot, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Discover(context.Background(), l.options())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(candidates) = %d, want 3: %+v", len(got), got)
	}

	// Sorted by name.
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if got[i].Name != want {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Name, want)
		}
	}

	if got[0].LocalPath != alpha || !got[0].HasRepo || !got[0].HasTranscripts {
		t.Errorf("alpha = %+v", got[0])
	}
	if got[1].LocalPath != beta || !got[1].HasRepo || got[1].HasTranscripts {
		t.Errorf("beta = %+v", got[1])
	}
	if got[2].HasRepo || !got[2].HasTranscripts {
		t.Errorf("gamma = %+v", got[2])
	}
	if got[0].EncodedPath != EncodePath(alpha) {
		t.Errorf("alpha EncodedPath = %q", got[0].EncodedPath)
	}
}

func TestDiscover_Dedup(t *testing.T) {
	l := newTestLayout(t)
	l.addProject(t, "alpha", true, true)

	got, err := Discover(context.Background(), l.options())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("project with both transcripts and a repo listed %d times, want 1: %+v", len(got), got)
	}
}

func TestDiscover_Exclude(t *testing.T) {
	l := newTestLayout(t)
	l.addProject(t, "alpha", true, true)
	l.addProject(t, "scratchpad", true, true)

	opts := l.options()
	opts.Exclude = []string{"scratch"}

	got, err := Discover(context.Background(), opts)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0].Name != "alpha" {
		t.Errorf("candidates = %+v, want only alpha", got)
	}
}

func TestDiscover_MissingRoots(t *testing.T) {
	got, err := Discover(context.Background(), Options{
		TranscriptRoots: []string{filepath.Join(t.TempDir(), "absent")},
		ProjectsDir:     filepath.Join(t.TempDir(), "also-absent"),
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates = %+v, want none", got)
	}
}

func TestDiscover_ProjectsDirNonRepoSkipped(t *testing.T) {
	l := newTestLayout(t)
	l.addProject(t, "notes", false, false)

	got, err := Discover(context.Background(), l.options())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates = %+v, want none (no repo, no transcripts)", got)
	}
}
