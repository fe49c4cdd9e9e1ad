package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	apperrors "github.com/louisbranch/orion/internal/platform/errors"
	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/platform/requestctx"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
	"github.com/louisbranch/orion/internal/services/tracker/user"
)

// dummyPassword is hashed once at startup so logins for unknown emails cost
// the same bcrypt comparison as logins with a wrong password.
const dummyPassword = "orion-login-timing-equalizer"

var (
	errNotAuthenticated = apperrors.New(apperrors.CodeUnauthorized, "Not authenticated")
	errUserNotFound     = apperrors.New(apperrors.CodeUnauthorized, "User not found")
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenService issues and validates bearer tokens carrying a user id subject.
type TokenService interface {
	Issue(subjectID string) (string, error)
	Validate(raw string) (string, error)
}

// Service serves the tracker HTTP API.
type Service struct {
	store     storage.UnitOfWork
	hasher    PasswordHasher
	tokens    TokenService
	dummyHash string
}

// NewService builds a tracker API service.
func NewService(store storage.UnitOfWork, hasher PasswordHasher, tokens TokenService) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		dummyHash: dummyHash,
	}, nil
}

// Routes returns the HTTP handler for every tracker endpoint.
func (s *Service) Routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeNotFound, "Not Found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeMethodNotAllowed, "Method Not Allowed"))
	})

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	router.Handle("/projects", s.RequireUser(http.HandlerFunc(s.handleCreateProject))).Methods(http.MethodPost)
	router.Handle("/projects", s.RequireUser(http.HandlerFunc(s.handleListProjects))).Methods(http.MethodGet)
	router.Handle("/tasks/{project_id}", s.RequireUser(http.HandlerFunc(s.handleCreateTask))).Methods(http.MethodPost)
	router.Handle("/tasks/{project_id}", s.RequireUser(http.HandlerFunc(s.handleListTasks))).Methods(http.MethodGet)
	return router
}

// caller loads the authenticated user inside tx. A token whose subject no
// longer resolves is rejected as unauthorized.
func (s *Service) caller(ctx context.Context, tx storage.Tx) (user.User, error) {
	userID, ok := requestctx.UserIDFromContext(ctx)
	if !ok {
		return user.User{}, errNotAuthenticated
	}
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, errUserNotFound
		}
		return user.User{}, fmt.Errorf("load caller: %w", err)
	}
	return u, nil
}

// respond writes payload with status, or the error when err is non-nil.
func respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, status, payload)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
