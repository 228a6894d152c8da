// Package httpapi exposes the CRM's JSON API: sign-in, identity
// resolution, admin user management and dashboard metrics.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"yitro.org/internal/auth"
	"yitro.org/internal/crm"
	"yitro.org/internal/obs"
)

// AuthService is the authentication surface consumed by the handlers.
type AuthService interface {
	SignIn(ctx context.Context, email, password string, origin auth.Origin) (auth.SignInResult, error)
	Authenticate(ctx context.Context, token string) (*auth.User, error)
	CreateUser(ctx context.Context, input auth.NewUser) (*auth.User, error)
	ListUsers(ctx context.Context) ([]*auth.User, error)
}

// ReadyProbe checks backing-store readiness, e.g. a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       AuthService
	metrics    crm.Store
	readyProbe ReadyProbe
	version    string
}

func New(rp ReadyProbe, version string, authSvc AuthService, metrics crm.Store) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		metrics:    metrics,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/signin", a.handleSignIn)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)
	a.mux.HandleFunc("/api/dashboard/metrics", a.handleDashboardMetrics)
	a.mux.HandleFunc("/api/admin/users", a.handleAdminUsers)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found")
	})

	return a
}

// Handler returns the fully assembled handler chain.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = Logging(h)
	h = RequestID(h)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "yitro-crm-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the uniform failure envelope: a success flag and a
// human-readable message, never internal detail.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"message": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// logInternal records server-side detail for a 500-class response.
func logInternal(op string, err error) {
	obs.LogRequest(map[string]any{
		"level": "error",
		"op":    op,
		"error": err.Error(),
	})
}
