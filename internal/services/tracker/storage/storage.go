// Package storage defines the persistence contracts for the tracker.
//
// Every operation runs inside a unit of work obtained from UnitOfWork.InTx,
// so a request's reads and writes commit or roll back together.
package storage

import (
	"context"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
	"github.com/louisbranch/orion/internal/services/tracker/project"
	"github.com/louisbranch/orion/internal/services/tracker/task"
	"github.com/louisbranch/orion/internal/services/tracker/user"
)

// ErrNotFound indicates a requested record is missing or not visible to the
// requesting owner.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConflict indicates a unique constraint violation.
var ErrConflict = apperrors.New(apperrors.CodeConflict, "record already exists")

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, userID int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

// ProjectStore persists projects. Reads and deletes take the owner id and
// never return another owner's rows.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID int64) ([]project.Project, error)
	GetProjectForOwner(ctx context.Context, ownerID, projectID int64) (project.Project, error)
	DeleteProjectForOwner(ctx context.Context, ownerID, projectID int64) error
}

// TaskStore persists tasks. Callers resolve the parent project through
// ProjectStore in the same unit of work before touching its tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]task.Task, error)
}

// Tx is one transactional unit of work.
type Tx interface {
	UserStore
	ProjectStore
	TaskStore
}

// UnitOfWork runs fn inside a transaction that commits when fn returns nil
// and rolls back otherwise.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
