package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"yitro.org/internal/audit"
	"yitro.org/internal/auth"
	"yitro.org/internal/obs"
)

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinResponse struct {
	Success bool            `json:"success"`
	User    auth.PublicUser `json:"user"`
	Token   string          `json:"token"`
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	origin := auth.Origin{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	res, err := a.auth.SignIn(r.Context(), email, req.Password, origin)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.RecordSignin("denied")
			_ = audit.LogEvent(r.Context(), "auth.signin.denied", map[string]any{
				"email": auth.NormalizeEmail(email),
				"ip":    origin.IPAddress,
			})
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logInternal("signin", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	obs.RecordSignin("ok")
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), res.User), "auth.signin", map[string]any{
		"email": res.User.Email,
		"ip":    origin.IPAddress,
	})

	writeJSON(w, http.StatusOK, signinResponse{
		Success: true,
		User:    res.User.Public(),
		Token:   res.Token,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}
