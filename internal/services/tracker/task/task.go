// Package task defines tasks and their closed set of statuses.
package task

import (
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
)

// MaxTitleLength bounds task titles, counted in characters.
const MaxTitleLength = 200

// Status is the progress state of a task.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

var (
	// ErrEmptyTitle indicates a missing task title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeValidation, "title is required")
	// ErrTitleTooLong indicates a title above MaxTitleLength.
	ErrTitleTooLong = apperrors.New(apperrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	// ErrInvalidStatus indicates a status outside todo, doing and done.
	ErrInvalidStatus = apperrors.New(apperrors.CodeValidation, "status must be one of: todo, doing, done")
)

// Statuses lists every valid status in workflow order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusDoing, StatusDone}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	default:
		return false
	}
}

// ParseStatus maps raw to a Status. Matching is exact.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Task belongs to exactly one project; its owner is the project's owner.
type Task struct {
	ID        int64
	Title     string
	Status    Status
	ProjectID int64
	CreatedAt time.Time
}

// CreateInput describes a task creation request. A nil Status selects
// StatusTodo.
type CreateInput struct {
	Title  string
	Status *string
}

// Normalized is a validated CreateInput.
type Normalized struct {
	Title  string
	Status Status
}

// NormalizeCreateInput checks the title length and resolves the status.
// The title is kept verbatim.
func NormalizeCreateInput(input CreateInput) (Normalized, error) {
	title := input.Title
	length := utf8.RuneCountInString(title)
	if length == 0 {
		return Normalized{}, ErrEmptyTitle
	}
	if length > MaxTitleLength {
		return Normalized{}, ErrTitleTooLong
	}
	status := StatusTodo
	if input.Status != nil {
		parsed, err := ParseStatus(*input.Status)
		if err != nil {
			return Normalized{}, err
		}
		status = parsed
	}
	return Normalized{Title: title, Status: status}, nil
}
