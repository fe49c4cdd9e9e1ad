package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/services/tracker/credential"
	"github.com/louisbranch/orion/internal/services/tracker/storage"
	"github.com/louisbranch/orion/internal/services/tracker/storage/sqlite"
	"github.com/louisbranch/orion/internal/services/tracker/token"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	handler http.Handler
	store   *sqlite.Store
	tokens  *token.Service
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hasher, err := credential.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	env := &testEnv{store: store, now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := token.NewService(token.Config{
		Secret: []byte("test-secret"),
		Now:    func() time.Time { return env.now },
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	svc, err := NewService(store, hasher, tokens)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.tokens = tokens
	env.handler = svc.Routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, accessToken, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers and logs in, returning the user id and access token.
func (e *testEnv) signUp(t *testing.T, email, password string) (int64, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", `{"email":"`+email+`","password":"`+password+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d body=%s", email, rec.Code, rec.Body.String())
	}
	var registered userResponse
	decodeBody(t, rec, &registered)

	rec = e.login(t, email, password)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d body=%s", email, rec.Code, rec.Body.String())
	}
	var tok tokenResponse
	decodeBody(t, rec, &tok)
	return registered.ID, tok.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, detail string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d body=%s", rec.Code, status, rec.Body.String())
	}
	var resp httpx.ErrorResponse
	decodeBody(t, rec, &resp)
	if detail != "" && resp.Detail != detail {
		t.Fatalf("detail = %q, want %q", resp.Detail, detail)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	hasher, _ := credential.NewHasher(bcrypt.MinCost)
	tokens, _ := token.NewService(token.Config{Secret: []byte("s")})
	store := &sqlite.Store{}

	if _, err := NewService(nil, hasher, tokens); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewService(store, nil, tokens); err == nil {
		t.Fatal("expected error for nil hasher")
	}
	if _, err := NewService(store, hasher, nil); err == nil {
		t.Fatal("expected error for nil token service")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)

	assertError(t, env.do(t, http.MethodGet, "/nope", "", ""), http.StatusNotFound, "Not Found")
	assertError(t, env.do(t, http.MethodDelete, "/projects", "", ""), http.StatusMethodNotAllowed, "Method Not Allowed")
}

func TestFullScenario(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", `{"email":"a@x.io","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var registered map[string]any
	decodeBody(t, rec, &registered)
	if registered["email"] != "a@x.io" || registered["id"] == nil {
		t.Fatalf("unexpected register body: %v", registered)
	}
	if _, leaked := registered["password_hash"]; leaked {
		t.Fatal("password hash leaked in register response")
	}

	rec = env.login(t, "a@x.io", "secret1")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var tok tokenResponse
	decodeBody(t, rec, &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", tok)
	}
	subject, err := env.tokens.Validate(tok.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	registeredID, ok := registered["id"].(float64)
	if !ok {
		t.Fatalf("unexpected id type in register body: %v", registered["id"])
	}
	if subject != strconv.FormatInt(int64(registeredID), 10) {
		t.Fatalf("token subject = %q, want %v", subject, registered["id"])
	}

	rec = env.do(t, http.MethodPost, "/projects", tok.AccessToken, `{"name":"P1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var p projectResponse
	decodeBody(t, rec, &p)
	if p.ID == 0 || p.Name != "P1" || p.Description != nil {
		t.Fatalf("unexpected project: %+v", p)
	}

	path := "/tasks/" + strconv.FormatInt(p.ID, 10)
	rec = env.do(t, http.MethodPost, path, tok.AccessToken, `{"title":"T1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var tk taskResponse
	decodeBody(t, rec, &tk)
	if tk.ID == 0 || tk.Title != "T1" || tk.Status != "todo" {
		t.Fatalf("unexpected task: %+v", tk)
	}

	rec = env.do(t, http.MethodGet, "/projects", tok.AccessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list projects: status = %d", rec.Code)
	}
	var projects []projectResponse
	decodeBody(t, rec, &projects)
	if len(projects) != 1 || projects[0].ID != p.ID {
		t.Fatalf("unexpected projects: %+v", projects)
	}

	rec = env.do(t, http.MethodGet, path, tok.AccessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list tasks: status = %d", rec.Code)
	}
	var tasks []taskResponse
	decodeBody(t, rec, &tasks)
	if len(tasks) != 1 || tasks[0].ID != tk.ID {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestCrossTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signUp(t, "a@x.io", "secret1")
	_, bobToken := env.signUp(t, "b@x.io", "secret2")

	rec := env.do(t, http.MethodPost, "/projects", aliceToken, `{"name":"P1","description":"alice only"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status = %d", rec.Code)
	}
	var p projectResponse
	decodeBody(t, rec, &p)

	rec = env.do(t, http.MethodGet, "/projects", bobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list projects: status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("bob projects = %s, want []", got)
	}

	foreign := env.do(t, http.MethodPost, "/tasks/"+strconv.FormatInt(p.ID, 10), bobToken, `{"title":"X"}`)
	missing := env.do(t, http.MethodPost, "/tasks/999999", bobToken, `{"title":"X"}`)
	assertError(t, foreign, http.StatusNotFound, "Project not found")
	assertError(t, missing, http.StatusNotFound, "Project not found")
	if foreign.Body.String() != missing.Body.String() {
		t.Fatalf("foreign and missing bodies differ: %s vs %s", foreign.Body.String(), missing.Body.String())
	}

	assertError(t, env.do(t, http.MethodGet, "/tasks/"+strconv.FormatInt(p.ID, 10), bobToken, ""), http.StatusNotFound, "Project not found")

	var count int
	if err := env.store.DB().QueryRow("SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if count != 0 {
		t.Fatalf("tasks count = %d, want 0", count)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed email", body: `{"email":"not-an-email","password":"secret1"}`},
		{name: "short password", body: `{"email":"a@x.io","password":"12345"}`},
		{name: "missing fields", body: `{}`},
		{name: "malformed json", body: `{"email":`},
		{name: "empty body", body: ``},
		{name: "wrong type", body: `{"email":5,"password":"secret1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assertError(t, rec, http.StatusUnprocessableEntity, "")
		})
	}
}

func TestRegisterIgnoresUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", `{"email":"a@x.io","password":"secret1","role":"admin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "a@x.io", "secret1")

	rec := env.do(t, http.MethodPost, "/auth/register", "", `{"email":"A@X.io","password":"another1"}`)
	assertError(t, rec, http.StatusConflict, "Email exists")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "a@x.io", "secret1")

	wrongPassword := env.login(t, "a@x.io", "nope123")
	unknownEmail := env.login(t, "ghost@x.io", "secret1")
	assertError(t, wrongPassword, http.StatusUnauthorized, "Incorrect credentials")
	assertError(t, unknownEmail, http.StatusUnauthorized, "Incorrect credentials")
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestLoginMatchesEmailCaseInsensitively(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "a@x.io", "secret1")

	if rec := env.login(t, " A@X.IO ", "secret1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLoginRequiresFormFields(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=a@x.io"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusUnprocessableEntity, "")

	rec = env.do(t, http.MethodPost, "/auth/login", "", `{"username":"a@x.io","password":"secret1"}`)
	assertError(t, rec, http.StatusUnprocessableEntity, "")
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	otherTokens, err := token.NewService(token.Config{Secret: []byte("other-secret"), Now: func() time.Time { return env.now }})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	forged, err := otherTokens.Issue("1")
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}
	suffix := "xx"
	if strings.HasSuffix(accessToken, suffix) {
		suffix = "yy"
	}
	tampered := accessToken[:len(accessToken)-2] + suffix

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/projects", `{"name":"P1"}`},
		{http.MethodGet, "/projects", ""},
		{http.MethodPost, "/tasks/1", `{"title":"T1"}`},
		{http.MethodGet, "/tasks/1", ""},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := env.do(t, route.method, route.path, "", route.body)
			assertError(t, rec, http.StatusUnauthorized, "Not authenticated")
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("WWW-Authenticate = %q, want Bearer", rec.Header().Get("WWW-Authenticate"))
			}

			assertError(t, env.do(t, route.method, route.path, "garbage", route.body), http.StatusUnauthorized, "Invalid token")
			assertError(t, env.do(t, route.method, route.path, tampered, route.body), http.StatusUnauthorized, "Invalid token")
			assertError(t, env.do(t, route.method, route.path, forged, route.body), http.StatusUnauthorized, "Invalid token")
		})
	}
}

func TestAuthorizationSchemeIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "bearer "+accessToken)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Basic "+accessToken)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated")
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	env.now = env.now.Add(token.DefaultTTL - time.Second)
	if rec := env.do(t, http.MethodGet, "/projects", accessToken, ""); rec.Code != http.StatusOK {
		t.Fatalf("before expiry: status = %d", rec.Code)
	}

	env.now = env.now.Add(time.Second)
	assertError(t, env.do(t, http.MethodGet, "/projects", accessToken, ""), http.StatusUnauthorized, "Invalid token")
}

func TestDeletedUserTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	userID, accessToken := env.signUp(t, "a@x.io", "secret1")

	err := env.store.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteUser(context.Background(), userID)
	})
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}

	assertError(t, env.do(t, http.MethodGet, "/projects", accessToken, ""), http.StatusUnauthorized, "User not found")
	assertError(t, env.do(t, http.MethodPost, "/projects", accessToken, `{"name":"P1"}`), http.StatusUnauthorized, "User not found")
}

func TestDeletedUserTokenRejectedBeforeValidation(t *testing.T) {
	env := newTestEnv(t)
	userID, accessToken := env.signUp(t, "a@x.io", "secret1")

	err := env.store.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteUser(context.Background(), userID)
	})
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}

	requests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "empty project body", method: http.MethodPost, path: "/projects", body: `{}`},
		{name: "malformed project body", method: http.MethodPost, path: "/projects", body: `{"name":`},
		{name: "non integer project id on create", method: http.MethodPost, path: "/tasks/abc", body: `{"title":"T1"}`},
		{name: "empty task body", method: http.MethodPost, path: "/tasks/1", body: `{}`},
		{name: "non integer project id on list", method: http.MethodGet, path: "/tasks/abc"},
	}
	for _, tt := range requests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, accessToken, tt.body)
			assertError(t, rec, http.StatusUnauthorized, "User not found")
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("WWW-Authenticate = %q, want Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{}`},
		{name: "name too long", body: `{"name":"` + strings.Repeat("n", 201) + `"}`},
		{name: "malformed json", body: `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, http.MethodPost, "/projects", accessToken, tt.body), http.StatusUnprocessableEntity, "")
		})
	}

	rec := env.do(t, http.MethodPost, "/projects", accessToken, `{"name":"`+strings.Repeat("n", 200)+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("200 char name: status = %d", rec.Code)
	}
}

func TestCreateProjectKeepsNameVerbatim(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	for _, name := range []string{"  P1  ", "   "} {
		rec := env.do(t, http.MethodPost, "/projects", accessToken, `{"name":"`+name+`"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("name %q: status = %d body=%s", name, rec.Code, rec.Body.String())
		}
		var p projectResponse
		decodeBody(t, rec, &p)
		if p.Name != name {
			t.Fatalf("name = %q, want %q", p.Name, name)
		}
	}

	rec := env.do(t, http.MethodGet, "/projects", accessToken, "")
	var projects []projectResponse
	decodeBody(t, rec, &projects)
	if len(projects) != 2 || projects[0].Name != "  P1  " || projects[1].Name != "   " {
		t.Fatalf("unexpected stored projects: %+v", projects)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")
	rec := env.do(t, http.MethodPost, "/projects", accessToken, `{"name":"P1"}`)
	var p projectResponse
	decodeBody(t, rec, &p)
	path := "/tasks/" + strconv.FormatInt(p.ID, 10)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "non integer project id", path: "/tasks/abc", body: `{"title":"T1"}`},
		{name: "missing title", path: path, body: `{}`},
		{name: "title too long", path: path, body: `{"title":"` + strings.Repeat("t", 201) + `"}`},
		{name: "unknown status", path: path, body: `{"title":"T1","status":"blocked"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, http.MethodPost, tt.path, accessToken, tt.body), http.StatusUnprocessableEntity, "")
		})
	}

	rec = env.do(t, http.MethodPost, path, accessToken, `{"title":"T2","status":"doing"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var tk taskResponse
	decodeBody(t, rec, &tk)
	if tk.Status != "doing" {
		t.Fatalf("status = %q, want doing", tk.Status)
	}
}

func TestListProjectsFreshUserIsEmptyArray(t *testing.T) {
	env := newTestEnv(t)
	_, accessToken := env.signUp(t, "a@x.io", "secret1")

	rec := env.do(t, http.MethodGet, "/projects", accessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %s, want []", got)
	}
}
