package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/orion/internal/services/tracker/project"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
)

const projectColumns = `id, name, description, owner_id, created_at`

// CreateProject inserts a project owned by p.OwnerID.
func (t *txStore) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.CreatedAt = t.stamp(p.CreatedAt)
	var description sql.NullString
	if p.Description != nil {
		description = sql.NullString{String: *p.Description, Valid: true}
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO projects (name, description, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		p.Name, description, p.OwnerID, toMillis(p.CreatedAt),
	)
	if err != nil {
		return project.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return project.Project{}, fmt.Errorf("project id: %w", err)
	}
	p.ID = id
	p.CreatedAt = fromMillis(toMillis(p.CreatedAt))
	return p, nil
}

// ListProjectsByOwner returns every project owned by ownerID ordered by id.
func (t *txStore) ListProjectsByOwner(ctx context.Context, ownerID int64) ([]project.Project, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// GetProjectForOwner loads a project only when ownerID owns it. A missing
// project and a project owned by someone else both yield storage.ErrNotFound.
func (t *txStore) GetProjectForOwner(ctx context.Context, ownerID, projectID int64) (project.Project, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND owner_id = ?`, projectID, ownerID)
	return scanProject(row)
}

// DeleteProjectForOwner removes a project and its tasks when ownerID owns it.
func (t *txStore) DeleteProjectForOwner(ctx context.Context, ownerID, projectID int64) error {
	res, err := t.q.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND owner_id = ?`, projectID, ownerID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res)
}

func scanProject(row rowScanner) (project.Project, error) {
	var (
		p           project.Project
		description sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.OwnerID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Project{}, storage.ErrNotFound
		}
		return project.Project{}, fmt.Errorf("scan project: %w", err)
	}
	if description.Valid {
		value := description.String
		p.Description = &value
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// requireAffected turns a zero-row mutation into storage.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
