package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"collabnotes.org/internal/auth"
	"collabnotes.org/internal/ratelimit"
)

// memStore is an in-memory auth.Store for transport-level tests.
type memStore struct {
	mu    sync.Mutex
	seq   int
	users map[string]*auth.User
	roles map[int]string
	perms map[int][]auth.Permission
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*auth.User),
		roles: map[int]string{1: "admin", 2: "user", 3: "guest"},
		perms: map[int][]auth.Permission{
			1: {{ID: 1, Name: auth.CapCreateNote}, {ID: 7, Name: auth.CapAssignRoles}},
			2: {{ID: 1, Name: auth.CapCreateNote}, {ID: 6, Name: auth.CapReadNote}},
			3: {{ID: 6, Name: auth.CapReadNote}},
		},
	}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		m.seq++
		u.ID = fmt.Sprintf("user-%d", m.seq)
	}
	u.RoleName = m.roles[u.RoleID]
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) PermissionsForRole(_ context.Context, roleID int) ([]auth.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perms[roleID], nil
}

func (m *memStore) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

type testAPIOptions struct {
	throttle ratelimit.Store
}

// apiClient drives a full API instance over a real listener so the whole
// middleware chain is exercised.
type apiClient struct {
	t     *testing.T
	api   *API
	store *memStore
	srv   *httptest.Server
}

func newAPIClient(t *testing.T, opts testAPIOptions) *apiClient {
	t.Helper()
	store := newMemStore()
	codec, err := auth.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := auth.NewService(store, codec,
		auth.WithHasher(auth.NewHasher(bcrypt.MinCost)),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	throttle := opts.throttle
	if throttle == nil {
		// Generous default so only throttle-focused tests trip it.
		throttle = ratelimit.NewMemoryStore(ratelimit.WithLimit(1000))
	}
	api := New(Config{
		Service:  svc,
		Policy:   auth.NewPolicy(store),
		Throttle: throttle,
		Version:  "test",
	})
	// The flood limiter is not under test here.
	api.rateBurst = 10000
	api.ratePerSec = 10000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &apiClient{t: t, api: api, store: store, srv: srv}
}

func (c *apiClient) do(method, path string, body any, modify func(*http.Request)) (*http.Response, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if modify != nil {
		modify(req)
	}
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			c.t.Fatalf("decode %s %s response %q: %v", method, path, data, err)
		}
	}
	return resp, decoded
}

// register creates an account and returns the session payload plus the
// refresh cookie the server set.
func (c *apiClient) register(email, password string) (map[string]any, *http.Cookie) {
	c.t.Helper()
	resp, body := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register: status %d, body %v", resp.StatusCode, body)
	}
	return body, findRefreshCookie(c.t, resp)
}

func (c *apiClient) login(email, password string) (*http.Response, map[string]any) {
	c.t.Helper()
	return c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

func findRefreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refreshToken" {
			return cookie
		}
	}
	return nil
}

func errorCode(body map[string]any) string {
	code, _ := body["code"].(string)
	return code
}

func accessToken(t *testing.T, body map[string]any) string {
	t.Helper()
	token, _ := body["accessToken"].(string)
	if token == "" {
		t.Fatalf("missing accessToken in %v", body)
	}
	return token
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}
