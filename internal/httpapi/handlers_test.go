package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yitro.org/internal/auth"
	"yitro.org/internal/crm"
)

type stubAuth struct {
	signInFn       func(context.Context, string, string, auth.Origin) (auth.SignInResult, error)
	authenticateFn func(context.Context, string) (*auth.User, error)
	createUserFn   func(context.Context, auth.NewUser) (*auth.User, error)
	listUsersFn    func(context.Context) ([]*auth.User, error)
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string, origin auth.Origin) (auth.SignInResult, error) {
	if s.signInFn != nil {
		return s.signInFn(ctx, email, password, origin)
	}
	return auth.SignInResult{}, auth.ErrInvalidCredentials
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*auth.User, error) {
	if s.authenticateFn != nil {
		return s.authenticateFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

func (s *stubAuth) CreateUser(ctx context.Context, input auth.NewUser) (*auth.User, error) {
	if s.createUserFn != nil {
		return s.createUserFn(ctx, input)
	}
	return nil, auth.ErrInvalidInput
}

func (s *stubAuth) ListUsers(ctx context.Context) ([]*auth.User, error) {
	if s.listUsersFn != nil {
		return s.listUsersFn(ctx)
	}
	return nil, nil
}

type stubMetrics struct {
	dashboardFn func(context.Context, crm.Scope) (crm.Dashboard, error)
}

func (s *stubMetrics) Dashboard(ctx context.Context, scope crm.Scope) (crm.Dashboard, error) {
	if s.dashboardFn != nil {
		return s.dashboardFn(ctx, scope)
	}
	return crm.Dashboard{}, nil
}

func adminUser() *auth.User {
	return &auth.User{
		ID:          "admin-1",
		Email:       "admin@yitro.com",
		DisplayName: "Admin",
		Role:        auth.RoleAdmin,
		CreatedAt:   time.Now().UTC(),
	}
}

func regularUser() *auth.User {
	return &auth.User{
		ID:          "user-1",
		Email:       "rep@yitro.com",
		DisplayName: "Rep",
		Role:        auth.RoleUser,
		CreatedAt:   time.Now().UTC(),
	}
}

// authByToken returns an Authenticate stub resolving fixed tokens.
func authByToken(users map[string]*auth.User) func(context.Context, string) (*auth.User, error) {
	return func(_ context.Context, token string) (*auth.User, error) {
		if u, ok := users[token]; ok {
			return u, nil
		}
		return nil, auth.ErrInvalidToken
	}
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T, authSvc AuthService, metrics crm.Store) *apiClient {
	t.Helper()

	if metrics == nil {
		metrics = &stubMetrics{}
	}
	api := New(ReadyProbe{}, "test", authSvc, metrics)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestSignInSuccess(t *testing.T) {
	authSvc := &stubAuth{
		signInFn: func(_ context.Context, email, password string, origin auth.Origin) (auth.SignInResult, error) {
			if email != "admin@yitro.com" || password != "s3cret" {
				return auth.SignInResult{}, auth.ErrInvalidCredentials
			}
			if origin.UserAgent == "" {
				t.Error("expected user agent to be forwarded")
			}
			return auth.SignInResult{User: adminUser(), Token: "tok-admin"}, nil
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.post("/api/auth/signin", map[string]any{"email": "admin@yitro.com", "password": "s3cret"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload["success"] != true {
		t.Fatalf("expected success=true: %v", payload)
	}
	if payload["token"] != "tok-admin" {
		t.Fatalf("expected token in response: %v", payload)
	}
	user, _ := payload["user"].(map[string]any)
	if user["role"] != "admin" {
		t.Fatalf("expected admin role, got %v", user["role"])
	}
}

func TestSignInMissingFields(t *testing.T) {
	api := newTestAPI(t, &stubAuth{}, nil)

	for _, body := range []map[string]any{
		{},
		{"email": "admin@yitro.com"},
		{"password": "s3cret"},
	} {
		resp := api.post("/api/auth/signin", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestSignInWrongPassword(t *testing.T) {
	api := newTestAPI(t, &stubAuth{}, nil)

	resp := api.post("/api/auth/signin", map[string]any{"email": "admin@yitro.com", "password": "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload["message"] != "Invalid credentials" {
		t.Fatalf("expected uniform message, got %v", payload["message"])
	}
	if payload["success"] != false {
		t.Fatalf("expected success=false: %v", payload)
	}
}

func TestMeRequiresToken(t *testing.T) {
	api := newTestAPI(t, &stubAuth{}, nil)

	resp := api.get("/api/auth/me", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMeWithValidToken(t *testing.T) {
	authSvc := &stubAuth{authenticateFn: authByToken(map[string]*auth.User{"tok-user": regularUser()})}
	api := newTestAPI(t, authSvc, nil)

	resp := api.get("/api/auth/me", bearerHeader("tok-user"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	user, _ := payload["user"].(map[string]any)
	if user["email"] != "rep@yitro.com" {
		t.Fatalf("unexpected user: %v", payload)
	}
}

func TestMeWithExpiredToken(t *testing.T) {
	authSvc := &stubAuth{
		authenticateFn: func(_ context.Context, _ string) (*auth.User, error) {
			return nil, auth.ErrTokenExpired
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.get("/api/auth/me", bearerHeader("stale"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.StatusCode)
	}
}

func TestAdminCreateUserForbiddenForNonAdmin(t *testing.T) {
	created := false
	authSvc := &stubAuth{
		authenticateFn: authByToken(map[string]*auth.User{"tok-user": regularUser()}),
		createUserFn: func(_ context.Context, _ auth.NewUser) (*auth.User, error) {
			created = true
			return nil, nil
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.post("/api/admin/users", map[string]any{
		"email": "new@yitro.com", "displayName": "New", "password": "passw0rd",
	}, bearerHeader("tok-user"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if created {
		t.Fatal("store must not be touched when the role gate rejects")
	}
}

func TestAdminCreateUserSuccess(t *testing.T) {
	var captured auth.NewUser
	authSvc := &stubAuth{
		authenticateFn: authByToken(map[string]*auth.User{"tok-admin": adminUser()}),
		createUserFn: func(_ context.Context, input auth.NewUser) (*auth.User, error) {
			captured = input
			return &auth.User{
				ID:          "new-1",
				Email:       "new@yitro.com",
				DisplayName: input.DisplayName,
				Role:        auth.RoleUser,
			}, nil
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.post("/api/admin/users", map[string]any{
		"email": "New@Yitro.com", "displayName": "New Rep", "password": "passw0rd",
	}, bearerHeader("tok-admin"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	user, _ := payload["user"].(map[string]any)
	if user["id"] != "new-1" {
		t.Fatalf("unexpected user: %v", payload)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash leaked in response")
	}
	if captured.DisplayName != "New Rep" {
		t.Fatalf("input not forwarded: %+v", captured)
	}
}

func TestAdminCreateUserDuplicateEmail(t *testing.T) {
	authSvc := &stubAuth{
		authenticateFn: authByToken(map[string]*auth.User{"tok-admin": adminUser()}),
		createUserFn: func(_ context.Context, _ auth.NewUser) (*auth.User, error) {
			return nil, auth.ErrDuplicateEmail
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.post("/api/admin/users", map[string]any{
		"email": "a@x.com", "displayName": "Dup", "password": "passw0rd",
	}, bearerHeader("tok-admin"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload["message"] != "Email already exists" {
		t.Fatalf("unexpected message: %v", payload["message"])
	}
}

func TestAdminListUsers(t *testing.T) {
	authSvc := &stubAuth{
		authenticateFn: authByToken(map[string]*auth.User{"tok-admin": adminUser()}),
		listUsersFn: func(_ context.Context) ([]*auth.User, error) {
			return []*auth.User{adminUser(), regularUser()}, nil
		},
	}
	api := newTestAPI(t, authSvc, nil)

	resp := api.get("/api/admin/users", bearerHeader("tok-admin"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	users, _ := payload["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", payload)
	}
}

func TestDashboardMetricsScopedByRole(t *testing.T) {
	var scopes []crm.Scope
	metrics := &stubMetrics{
		dashboardFn: func(_ context.Context, scope crm.Scope) (crm.Dashboard, error) {
			scopes = append(scopes, scope)
			return crm.Dashboard{Metrics: crm.Metrics{Leads: 5}}, nil
		},
	}
	authSvc := &stubAuth{
		authenticateFn: authByToken(map[string]*auth.User{
			"tok-admin": adminUser(),
			"tok-user":  regularUser(),
		}),
	}
	api := newTestAPI(t, authSvc, metrics)

	resp := api.get("/api/dashboard/metrics", bearerHeader("tok-admin"))
	payload := decodeBody(t, resp)
	if payload["userRole"] != "admin" {
		t.Fatalf("expected admin role in payload: %v", payload)
	}

	resp = api.get("/api/dashboard/metrics", bearerHeader("tok-user"))
	payload = decodeBody(t, resp)
	if payload["userRole"] != "user" {
		t.Fatalf("expected user role in payload: %v", payload)
	}
	if payload["recentActivities"] == nil {
		t.Fatal("recentActivities must serialize as an empty array, not null")
	}

	if len(scopes) != 2 {
		t.Fatalf("expected 2 dashboard calls, got %d", len(scopes))
	}
	if !scopes[0].All || scopes[0].UserID != "admin-1" {
		t.Fatalf("admin scope wrong: %+v", scopes[0])
	}
	if scopes[1].All || scopes[1].UserID != "user-1" {
		t.Fatalf("user scope wrong: %+v", scopes[1])
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, &stubAuth{}, nil)

	resp := api.get("/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", payload)
	}
}
