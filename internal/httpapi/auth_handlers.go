package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"collabnotes.org/internal/audit"
	"collabnotes.org/internal/auth"
	"collabnotes.org/internal/obs"
)

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type sessionResponse struct {
	Message     string        `json:"message"`
	User        auth.Identity `json:"user"`
	AccessToken string        `json:"accessToken"`
	ExpiresIn   string        `json:"expiresIn"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.checkThrottle(w, r) {
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "INVALID_BODY")
		return
	}
	if details := validateRegistration(&req); len(details) > 0 {
		writeValidationError(w, r, details)
		return
	}

	pair, identity, err := a.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			obs.AuthAttempts.WithLabelValues("conflict").Inc()
			writeError(w, r, http.StatusConflict, "User with this email already exists", "USER_EXISTS")
			return
		}
		obs.AuthAttempts.WithLabelValues("error").Inc()
		a.logInternalError(r, "register", err)
		writeError(w, r, http.StatusInternalServerError, "Registration failed", "REGISTRATION_ERROR")
		return
	}

	obs.AuthAttempts.WithLabelValues("success").Inc()
	a.countIssuedPair()
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": identity.ID,
		"email":   identity.Email,
	})
	a.setRefreshCookie(w, pair.RefreshToken, a.svc.RefreshTTL())
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message:     "User registered successfully",
		User:        identity,
		AccessToken: pair.AccessToken,
		ExpiresIn:   formatTTL(a.svc.AccessTTL()),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.checkThrottle(w, r) {
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "INVALID_BODY")
		return
	}
	if details := validateLogin(&req); len(details) > 0 {
		writeValidationError(w, r, details)
		return
	}

	pair, identity, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
				"client": clientIP(r),
			})
			writeError(w, r, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
			return
		}
		obs.AuthAttempts.WithLabelValues("error").Inc()
		a.logInternalError(r, "login", err)
		writeError(w, r, http.StatusInternalServerError, "Login failed", "LOGIN_ERROR")
		return
	}

	obs.AuthAttempts.WithLabelValues("success").Inc()
	a.countIssuedPair()
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": identity.ID,
	})
	a.setRefreshCookie(w, pair.RefreshToken, a.svc.RefreshTTL())
	writeJSON(w, http.StatusOK, sessionResponse{
		Message:     "Login successful",
		User:        identity,
		AccessToken: pair.AccessToken,
		ExpiresIn:   formatTTL(a.svc.AccessTTL()),
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, r, http.StatusUnauthorized, "Refresh token is required", "MISSING_REFRESH_TOKEN")
		return
	}

	pair, identity, err := a.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, r, http.StatusUnauthorized, "Invalid refresh token", "INVALID_REFRESH_TOKEN")
			return
		}
		a.logInternalError(r, "refresh", err)
		writeError(w, r, http.StatusInternalServerError, "Token refresh failed", "REFRESH_ERROR")
		return
	}

	a.countIssuedPair()
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": identity.ID,
	})
	// Rotation: every successful refresh replaces the cookie.
	a.setRefreshCookie(w, pair.RefreshToken, a.svc.RefreshTTL())
	writeJSON(w, http.StatusOK, sessionResponse{
		Message:     "Token refreshed successfully",
		User:        identity,
		AccessToken: pair.AccessToken,
		ExpiresIn:   formatTTL(a.svc.AccessTTL()),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	a.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logout successful",
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	user, err := a.svc.Profile(r.Context(), identity.ID)
	if err != nil {
		a.logInternalError(r, "profile", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to get user profile", "PROFILE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"role":       user.RoleName,
			"created_at": user.CreatedAt,
		},
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "INVALID_BODY")
		return
	}
	if details := validatePasswordChange(&req); len(details) > 0 {
		writeValidationError(w, r, details)
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if err := a.svc.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, "Current password is incorrect", "INVALID_CURRENT_PASSWORD")
			return
		}
		a.logInternalError(r, "change_password", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to change password", "PASSWORD_CHANGE_ERROR")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.changed", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Password changed successfully",
	})
}

// checkThrottle enforces the per-client authentication attempt throttle.
// It writes the 429 response itself and reports whether the request may
// proceed. Throttle store failures fail open: losing brute-force protection
// briefly beats locking every client out.
func (a *API) checkThrottle(w http.ResponseWriter, r *http.Request) bool {
	key := clientIP(r)
	decision, err := a.throttle.Check(r.Context(), key)
	if err != nil {
		a.logInternalError(r, "throttle", err)
		return true
	}
	if decision.Allowed {
		return true
	}
	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	obs.ThrottleDenials.Inc()
	_ = audit.LogEvent(r.Context(), "auth.throttled", map[string]any{
		"client":      key,
		"retry_after": retryAfter,
	})
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	payload := map[string]any{
		"error":      http.StatusText(http.StatusTooManyRequests),
		"message":    "Too many authentication attempts. Please try again later.",
		"code":       "RATE_LIMIT_EXCEEDED",
		"retryAfter": retryAfter,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusTooManyRequests, payload)
	return false
}

func (a *API) logInternalError(r *http.Request, op string, err error) {
	obs.Emit(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "error",
		"msg":        "auth_internal_error",
		"op":         op,
		"error":      err.Error(),
		"request_id": RequestIDFromContext(r.Context()),
	})
}

func (a *API) countIssuedPair() {
	obs.TokensIssued.WithLabelValues(auth.KindAccess).Inc()
	obs.TokensIssued.WithLabelValues(auth.KindRefresh).Inc()
}

// formatTTL renders a lifetime the way clients expect it advertised ("15m").
func formatTTL(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}
