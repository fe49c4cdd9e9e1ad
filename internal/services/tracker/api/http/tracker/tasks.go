package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	apperrors "github.com/louisbranch/orion/internal/platform/errors"
	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/services/tracker/project"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
	"github.com/louisbranch/orion/internal/services/tracker/task"
)

var (
	errProjectNotFound  = apperrors.New(apperrors.CodeNotFound, "Project not found")
	errInvalidProjectID = apperrors.New(apperrors.CodeValidation, "project_id must be an integer")
)

type taskRequest struct {
	Title  string  `json:"title"`
	Status *string `json:"status"`
}

type taskResponse struct {
	ID     int64       `json:"id"`
	Title  string      `json:"title"`
	Status task.Status `json:"status"`
}

func newTaskResponse(t task.Task) taskResponse {
	return taskResponse{ID: t.ID, Title: t.Title, Status: t.Status}
}

func (s *Service) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, pathErr := projectIDFromPath(r)
	input, inputErr := decodeTaskInput(w, r)

	var created task.Task
	err := s.store.InTx(r.Context(), func(tx storage.Tx) error {
		parent, err := s.ownedProject(r.Context(), tx, projectID, pathErr, inputErr)
		if err != nil {
			return err
		}
		created, err = tx.CreateTask(r.Context(), task.Task{
			Title:     input.Title,
			Status:    input.Status,
			ProjectID: parent.ID,
		})
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	respond(w, r, http.StatusCreated, newTaskResponse(created), err)
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, pathErr := projectIDFromPath(r)

	var tasks []task.Task
	err := s.store.InTx(r.Context(), func(tx storage.Tx) error {
		parent, err := s.ownedProject(r.Context(), tx, projectID, pathErr)
		if err != nil {
			return err
		}
		tasks, err = tx.ListTasksByProject(r.Context(), parent.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		return nil
	})

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResponse(t))
	}
	respond(w, r, http.StatusOK, resp, err)
}

// decodeTaskInput reads and validates a task body.
func decodeTaskInput(w http.ResponseWriter, r *http.Request) (task.Normalized, error) {
	var req taskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return task.Normalized{}, err
	}
	return task.NormalizeCreateInput(task.CreateInput{Title: req.Title, Status: req.Status})
}

// ownedProject resolves the caller and their project in tx. Request errors
// are reported once the caller resolves and before the project lookup.
// Missing and foreign projects are reported identically.
func (s *Service) ownedProject(ctx context.Context, tx storage.Tx, projectID int64, requestErrs ...error) (project.Project, error) {
	owner, err := s.caller(ctx, tx)
	if err != nil {
		return project.Project{}, err
	}
	for _, requestErr := range requestErrs {
		if requestErr != nil {
			return project.Project{}, requestErr
		}
	}
	p, err := tx.GetProjectForOwner(ctx, owner.ID, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return project.Project{}, errProjectNotFound
		}
		return project.Project{}, fmt.Errorf("load project: %w", err)
	}
	return p, nil
}

func projectIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["project_id"], 10, 64)
	if err != nil {
		return 0, errInvalidProjectID
	}
	return id, nil
}
