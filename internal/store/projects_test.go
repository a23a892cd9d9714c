package store

import (
	"testing"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
	"github.com/scottschatz/software-capitalization-sub001/internal/models"
)

func sampleCandidate(name, localPath string) discovery.Candidate {
	return discovery.Candidate{
		Name:           name,
		LocalPath:      localPath,
		EncodedPath:    discovery.EncodePath(localPath),
		HasRepo:        true,
		HasTranscripts: true,
	}
}

func TestRegisterProjects(t *testing.T) {
	s := setupStore(t)

	resp, err := s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects: []discovery.Candidate{
			sampleCandidate("myapp", "/home/dev/projects/myapp"),
			sampleCandidate("tool", "/home/dev/projects/tool"),
		},
	})
	if err != nil {
		t.Fatalf("RegisterProjects: %v", err)
	}
	if resp.Created != 2 || resp.Updated != 0 || resp.Total != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Projects) != 2 || resp.Projects[0].Name != "myapp" {
		t.Errorf("Projects = %+v", resp.Projects)
	}
}

func TestRegisterProjects_Idempotent(t *testing.T) {
	s := setupStore(t)
	req := api.DiscoverRequest{
		Developer: "jane",
		Projects:  []discovery.Candidate{sampleCandidate("myapp", "/home/dev/projects/myapp")},
	}

	if _, err := s.RegisterProjects(req); err != nil {
		t.Fatalf("first RegisterProjects: %v", err)
	}

	// Re-registration with fresh annotations refreshes the existing row.
	branch := "main"
	req.Projects[0].DefaultBranch = &branch
	resp, err := s.RegisterProjects(req)
	if err != nil {
		t.Fatalf("second RegisterProjects: %v", err)
	}
	if resp.Created != 0 || resp.Updated != 1 || resp.Total != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Projects[0].DefaultBranch == nil || *resp.Projects[0].DefaultBranch != "main" {
		t.Errorf("DefaultBranch not refreshed: %+v", resp.Projects[0])
	}
}

func TestRegisterProjects_PersistsVisibility(t *testing.T) {
	s := setupStore(t)
	private := true
	cand := sampleCandidate("myapp", "/home/dev/projects/myapp")
	cand.Private = &private

	resp, err := s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects:  []discovery.Candidate{cand},
	})
	if err != nil {
		t.Fatalf("RegisterProjects: %v", err)
	}
	if resp.Projects[0].Private == nil || !*resp.Projects[0].Private {
		t.Errorf("Private not persisted on create: %+v", resp.Projects[0])
	}

	// A later registration with fresh visibility refreshes the row.
	public := false
	cand.Private = &public
	resp, err = s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects:  []discovery.Candidate{cand},
	})
	if err != nil {
		t.Fatalf("second RegisterProjects: %v", err)
	}
	if resp.Projects[0].Private == nil || *resp.Projects[0].Private {
		t.Errorf("Private not refreshed on update: %+v", resp.Projects[0])
	}
}

func TestRegisterProjects_LookupFailureIsAnError(t *testing.T) {
	s := setupStore(t)
	if err := s.db.Migrator().DropTable(&models.Project{}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	_, err := s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects:  []discovery.Candidate{sampleCandidate("myapp", "/home/dev/projects/myapp")},
	})
	if err == nil {
		t.Fatal("expected error when lookup fails")
	}
}

func TestKnownProjects_SortedByName(t *testing.T) {
	s := setupStore(t)
	_, err := s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects: []discovery.Candidate{
			sampleCandidate("zeta", "/home/dev/projects/zeta"),
			sampleCandidate("alpha", "/home/dev/projects/alpha"),
		},
	})
	if err != nil {
		t.Fatalf("RegisterProjects: %v", err)
	}

	projects, err := s.KnownProjects("jane")
	if err != nil {
		t.Fatalf("KnownProjects: %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "alpha" || projects[1].Name != "zeta" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestKnownProjects_ScopedToDeveloper(t *testing.T) {
	s := setupStore(t)
	_, err := s.RegisterProjects(api.DiscoverRequest{
		Developer: "jane",
		Projects:  []discovery.Candidate{sampleCandidate("myapp", "/home/dev/projects/myapp")},
	})
	if err != nil {
		t.Fatalf("RegisterProjects: %v", err)
	}

	projects, err := s.KnownProjects("sam")
	if err != nil {
		t.Fatalf("KnownProjects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("sam sees jane's projects: %+v", projects)
	}
}
