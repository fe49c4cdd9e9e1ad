// Package user defines the tracker identity and its registration rules.
package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxEmailLength bounds the stored address.
const MaxEmailLength = 254

var (
	// ErrInvalidEmail indicates an address that is not a plain mailbox.
	ErrInvalidEmail = apperrors.New(apperrors.CodeValidation, "email must be a valid email address")
	// ErrPasswordTooShort indicates a password below MinPasswordLength.
	ErrPasswordTooShort = apperrors.New(apperrors.CodeValidation, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
)

// User is a registered identity. PasswordHash never leaves the service.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterInput describes a registration request.
type RegisterInput struct {
	Email    string
	Password string
}

// NormalizeEmail trims raw, lowercases its domain and checks it is a bare
// address of the form local@domain.tld. Display names and angle brackets are
// refused. The local part keeps its case; uniqueness and lookups ignore case
// at the storage layer.
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" || len(email) > MaxEmailLength {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email || parsed.Name != "" {
		return "", ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", ErrInvalidEmail
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalidEmail
	}
	return email[:at+1] + strings.ToLower(domain), nil
}

// LookupEmail normalizes a login identifier without rejecting it, so an
// unparseable username simply matches no user.
func LookupEmail(raw string) string {
	email := strings.TrimSpace(raw)
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[:at+1] + strings.ToLower(email[at+1:])
	}
	return email
}

// ValidatePassword enforces the registration password length, counted in
// characters rather than bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// NormalizeRegisterInput validates a registration request. The password is
// returned unchanged.
func NormalizeRegisterInput(input RegisterInput) (RegisterInput, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return RegisterInput{}, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return RegisterInput{}, err
	}
	return RegisterInput{Email: email, Password: input.Password}, nil
}
