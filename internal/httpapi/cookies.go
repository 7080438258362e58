package httpapi

import (
	"net/http"
	"time"
)

// The refresh token travels only in this cookie, scoped to the refresh
// endpoint so no other request ever carries it.
const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/auth/refresh"
)

// refreshCookie builds the carrier cookie for a refresh token. Secure is
// gated on the deployment environment so local development over plain HTTP
// still works.
func refreshCookie(token string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// expiredRefreshCookie clears the refresh cookie. Every attribute except
// value and max-age must match refreshCookie exactly, otherwise browsers
// treat the clear as a different cookie and keep the original.
func expiredRefreshCookie(secure bool) *http.Cookie {
	c := refreshCookie("", 0, secure)
	c.MaxAge = -1
	return c
}

func (a *API) setRefreshCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, refreshCookie(token, maxAge, a.secureCookies))
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, expiredRefreshCookie(a.secureCookies))
}
