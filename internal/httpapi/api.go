package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"collabnotes.org/internal/auth"
	"collabnotes.org/internal/obs"
	"collabnotes.org/internal/ratelimit"
)

// ReadyProbe reports readiness (DB ping when a pool is attached).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Service        *auth.Service
	Policy         *auth.Policy
	Throttle       ratelimit.Store
	ReadyProbe     ReadyProbe
	Version        string
	SecureCookies  bool
	AllowedOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	policy     *auth.Policy
	throttle   ratelimit.Store
	readyProbe ReadyProbe
	version    string

	secureCookies  bool
	allowedOrigins []string

	// API-wide flood limiter; relaxed in tests.
	rateBurst  int
	ratePerSec int
}

func New(cfg Config) *API {
	a := &API{
		mux:            http.NewServeMux(),
		svc:            cfg.Service,
		policy:         cfg.Policy,
		throttle:       cfg.Throttle,
		readyProbe:     cfg.ReadyProbe,
		version:        cfg.Version,
		secureCookies:  cfg.SecureCookies,
		allowedOrigins: cfg.AllowedOrigins,
		rateBurst:      20,
		ratePerSec:     10,
	}
	if a.throttle == nil {
		a.throttle = ratelimit.NewMemoryStore()
	}

	// Session lifecycle. Register and login sit behind the attempt
	// throttle inside their handlers; refresh does not (matches the
	// source design, noted as a gap there too).
	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/auth/logout", a.requireAuth(a.handleLogout))
	a.mux.HandleFunc("/api/auth/me", a.requireAuth(a.handleProfile))
	a.mux.HandleFunc("/api/auth/change-password", a.requireAuth(a.handleChangePassword))

	// Operational endpoints.
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the route table.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.allowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "collabnotes-api",
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

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "collabnotes-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
