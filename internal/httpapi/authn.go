package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"collabnotes.org/internal/auth"
)

const (
	authHeader   = "Authorization"
	bearerScheme = "Bearer "
)

// requireAuth is the request authenticator: it extracts the bearer token,
// verifies it, asserts access kind and re-resolves the identity before the
// handler runs. Each rejection carries its own stable code but the same 401
// status; only genuine faults become 500s.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Access token is required", "MISSING_TOKEN")
			return
		}
		identity, err := a.svc.AuthenticateAccess(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrWrongTokenKind):
				writeError(w, r, http.StatusUnauthorized, "Invalid token type", "INVALID_TOKEN_TYPE")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "Invalid or expired access token", "INVALID_TOKEN")
			case errors.Is(err, auth.ErrNotFound):
				writeError(w, r, http.StatusUnauthorized, "User no longer exists", "USER_NOT_FOUND")
			default:
				writeError(w, r, http.StatusInternalServerError, "Authentication failed", "AUTH_ERROR")
			}
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		next(w, r.WithContext(ctx))
	}
}

// requireCapability guards a route behind an explicit capability check
// against the role-permission mapping. The auth routes themselves never
// attach one; role stays an informational claim there.
func (a *API) requireCapability(capability string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
			return
		}
		allowed, err := a.policy.Allow(r.Context(), identity, capability)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "Permission verification failed", "PERMISSION_CHECK_ERROR")
			return
		}
		if !allowed {
			writeError(w, r, http.StatusForbidden, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS")
			return
		}
		next(w, r)
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
