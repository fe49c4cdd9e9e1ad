// Package project defines projects, the unit of ownership for tasks.
package project

import (
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
)

// MaxNameLength bounds project names, counted in characters.
const MaxNameLength = 200

var (
	// ErrEmptyName indicates a missing project name.
	ErrEmptyName = apperrors.New(apperrors.CodeValidation, "name is required")
	// ErrNameTooLong indicates a name above MaxNameLength.
	ErrNameTooLong = apperrors.New(apperrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", MaxNameLength))
)

// Project belongs to exactly one owner.
type Project struct {
	ID          int64
	Name        string
	Description *string
	OwnerID     int64
	CreatedAt   time.Time
}

// CreateInput describes a project creation request.
type CreateInput struct {
	Name        string
	Description *string
}

// NormalizeCreateInput enforces the name length bounds. Name and description
// are stored exactly as given; whitespace counts toward the length.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	length := utf8.RuneCountInString(input.Name)
	if length == 0 {
		return CreateInput{}, ErrEmptyName
	}
	if length > MaxNameLength {
		return CreateInput{}, ErrNameTooLong
	}
	return CreateInput{Name: input.Name, Description: input.Description}, nil
}
