package tracker

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
	"github.com/louisbranch/orion/internal/services/tracker/user"
)

var (
	errEmailExists          = apperrors.New(apperrors.CodeConflict, "Email exists")
	errIncorrectCredentials = apperrors.New(apperrors.CodeUnauthorized, "Incorrect credentials")
	errLoginFieldsRequired  = apperrors.New(apperrors.CodeValidation, "username and password are required")
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	input, err := user.NormalizeRegisterInput(user.RegisterInput{Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var created user.User
	err = s.store.InTx(r.Context(), func(tx storage.Tx) error {
		u, err := tx.CreateUser(r.Context(), user.User{Email: input.Email, PasswordHash: hash})
		if err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errEmailExists
			}
			return fmt.Errorf("create user: %w", err)
		}
		created = u
		return nil
	})
	respond(w, r, http.StatusCreated, userResponse{ID: created.ID, Email: created.Email}, err)
}

// handleLogin accepts an OAuth2 password-grant style form. Unknown emails
// and wrong passwords produce the same response.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := httpx.ParseForm(w, r); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	usernames, hasUsername := r.PostForm["username"]
	passwords, hasPassword := r.PostForm["password"]
	if !hasUsername || !hasPassword {
		httpx.WriteError(w, r, errLoginFieldsRequired)
		return
	}
	email := user.LookupEmail(usernames[0])
	password := passwords[0]

	var account user.User
	found := false
	err := s.store.InTx(r.Context(), func(tx storage.Tx) error {
		u, err := tx.GetUserByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load user: %w", err)
		}
		account = u
		found = true
		return nil
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if !found {
		s.hasher.Verify(password, s.dummyHash)
		httpx.WriteError(w, r, errIncorrectCredentials)
		return
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		httpx.WriteError(w, r, errIncorrectCredentials)
		return
	}

	accessToken, err := s.tokens.Issue(strconv.FormatInt(account.ID, 10))
	if err != nil {
		httpx.WriteError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}
