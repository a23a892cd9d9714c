package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/models"
)

// RegisterProjects upserts discovered candidates. Registration is
// idempotent: a candidate whose (developer, local path) already exists gets
// its annotations refreshed instead of a new row.
func (s *Store) RegisterProjects(req api.DiscoverRequest) (*api.DiscoverResponse, error) {
	if req.Developer == "" {
		return nil, fmt.Errorf("store: developer is required")
	}

	resp := &api.DiscoverResponse{}
	for _, cand := range req.Projects {
		var existing models.Project
		err := s.db.Where("developer = ? AND local_path = ?", req.Developer, cand.LocalPath).
			First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"name":            cand.Name,
				"encoded_path":    cand.EncodedPath,
				"has_repo":        cand.HasRepo,
				"has_transcripts": cand.HasTranscripts,
				"remote_url":      cand.RemoteURL,
				"default_branch":  cand.DefaultBranch,
				"private":         cand.Private,
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("store: update project %s: %w", cand.LocalPath, err)
			}
			resp.Updated++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("store: lookup project %s: %w", cand.LocalPath, err)
		}

		row := models.Project{
			Developer:      req.Developer,
			LocalPath:      cand.LocalPath,
			Name:           cand.Name,
			EncodedPath:    cand.EncodedPath,
			HasRepo:        cand.HasRepo,
			HasTranscripts: cand.HasTranscripts,
			RemoteURL:      cand.RemoteURL,
			DefaultBranch:  cand.DefaultBranch,
			Private:        cand.Private,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("store: register project %s: %w", cand.LocalPath, err)
		}
		resp.Created++
	}

	projects, err := s.KnownProjects(req.Developer)
	if err != nil {
		return nil, err
	}
	resp.Projects = projects
	resp.Total = len(projects)
	return resp, nil
}

// KnownProjects returns the registered project->path mappings for a
// developer, name-sorted.
func (s *Store) KnownProjects(developer string) ([]api.ProjectRecord, error) {
	var rows []models.Project
	if err := s.db.Where("developer = ?", developer).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}

	records := make([]api.ProjectRecord, 0, len(rows))
	for _, p := range rows {
		records = append(records, api.ProjectRecord{
			ID:             p.ID,
			Name:           p.Name,
			LocalPath:      p.LocalPath,
			EncodedPath:    p.EncodedPath,
			HasRepo:        p.HasRepo,
			HasTranscripts: p.HasTranscripts,
			RemoteURL:      p.RemoteURL,
			DefaultBranch:  p.DefaultBranch,
			Private:        p.Private,
		})
	}
	return records, nil
}
