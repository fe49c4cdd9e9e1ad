package tracker

import (
	"fmt"
	"net/http"

	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/services/tracker/project"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
)

type projectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type projectResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func newProjectResponse(p project.Project) projectResponse {
	return projectResponse{ID: p.ID, Name: p.Name, Description: p.Description}
}

func (s *Service) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	input, inputErr := decodeProjectInput(w, r)

	var created project.Project
	err := s.store.InTx(r.Context(), func(tx storage.Tx) error {
		owner, err := s.caller(r.Context(), tx)
		if err != nil {
			return err
		}
		if inputErr != nil {
			return inputErr
		}
		created, err = tx.CreateProject(r.Context(), project.Project{
			Name:        input.Name,
			Description: input.Description,
			OwnerID:     owner.ID,
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		return nil
	})
	respond(w, r, http.StatusCreated, newProjectResponse(created), err)
}

// decodeProjectInput reads and validates a project body. Its error is
// returned only once the requesting user resolves, so a token for a deleted
// user is 401 whatever the body.
func decodeProjectInput(w http.ResponseWriter, r *http.Request) (project.CreateInput, error) {
	var req projectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return project.CreateInput{}, err
	}
	return project.NormalizeCreateInput(project.CreateInput{Name: req.Name, Description: req.Description})
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	var projects []project.Project
	err := s.store.InTx(r.Context(), func(tx storage.Tx) error {
		owner, err := s.caller(r.Context(), tx)
		if err != nil {
			return err
		}
		projects, err = tx.ListProjectsByOwner(r.Context(), owner.ID)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		return nil
	})

	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, newProjectResponse(p))
	}
	respond(w, r, http.StatusOK, resp, err)
}
