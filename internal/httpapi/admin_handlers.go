package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"yitro.org/internal/audit"
	"yitro.org/internal/auth"
)

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email, display name and password are required")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.DisplayName) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email, display name and password are required")
		return
	}

	user, err := a.auth.CreateUser(r.Context(), auth.NewUser{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Role must be user or admin")
		default:
			logInternal("create user", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "admin.user.create", map[string]any{
		"created_id": user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"actor":      admin.ID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		logInternal("list users", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	projections := make([]auth.PublicUser, 0, len(users))
	for _, u := range users {
		projections = append(projections, u.Public())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   projections,
	})
}
