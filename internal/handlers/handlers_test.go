package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"waiverdesk/config"
	"waiverdesk/internal/app"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/services"
	"waiverdesk/internal/typeahead/typeaheadtest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app    *app.App
	server *fiber.App
	clock  *typeaheadtest.FakeClock
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	cfg := config.Config{
		Environment:        config.EnvTest,
		LogLevel:           "error",
		DatabaseDriver:     config.DriverSQLite,
		DatabaseDbPath:     filepath.Join(t.TempDir(), "handlers.db"),
		SecurityJwtSecret:  "test-secret",
		SecurityTokenTTL:   time.Hour,
		SearchStrategy:     config.StrategySubstring,
		SearchCacheTTL:     time.Minute,
		SearchDebounce:     time.Millisecond,
		SearchFetchTimeout: time.Second,
	}

	clock := typeaheadtest.NewFakeClock(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	a, err := app.NewWithConfig(cfg, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	for _, username := range []string{"alice", "bob"} {
		require.NoError(t, a.AdminUserRepo.Create(context.Background(), &AdminUser{Username: username, Password: "password123"}))
	}

	return testServer{app: a, server: NewServer(a), clock: clock}
}

func (s testServer) do(t *testing.T, method, path string, body any, token string, headers ...string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: services.TokenCookieName, Value: token})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.server.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}

	return resp, decoded
}

func (s testServer) login(t *testing.T, username string) string {
	t.Helper()

	resp, body := s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: username, Password: "password123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == services.TokenCookieName {
			assert.True(t, cookie.HttpOnly)
			return cookie.Value
		}
	}

	t.Fatal("login did not set the session cookie")
	return ""
}

// submit stores a waiver one second after the previous one, so recency
// ordering is deterministic.
func (s testServer) submit(t *testing.T, first, last string) int {
	t.Helper()

	s.clock.Advance(time.Second)

	resp, body := s.do(t, http.MethodPost, "/api/waivers", waiverBody(first, last), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return int(body["id"].(float64))
}

func waiverBody(first, last string) SubmitWaiverRequest {
	return SubmitWaiverRequest{
		FirstName:             first,
		LastName:              last,
		Email:                 first + "@example.com",
		YearOfBirth:           "1990",
		EmergencyContactPhone: "555-0100",
		SafetyRulesInitial:    "XX",
		MedicalConsentInitial: "XX",
		Signature:             "data:image/png;base64,AAAA",
	}
}

func displayNames(t *testing.T, body map[string]any, key string) []string {
	t.Helper()

	items, ok := body[key].([]any)
	require.True(t, ok, "missing %s in %v", key, body)

	names := make([]string, 0, len(items))
	for _, item := range items {
		candidate := item.(map[string]any)
		assert.NotContains(t, candidate, "signature")
		names = append(names, candidate["displayName"].(string))
	}
	return names
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["message"])
	assert.Equal(t, config.StrategySubstring, body["strategy"])
}

func TestSubmitWaiver(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/waivers", waiverBody("Ada", "Lovelace"), "",
		fiber.HeaderXForwardedFor, "203.0.113.9, 10.0.0.1",
		fiber.HeaderUserAgent, "kiosk/2.0",
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 2025, body["waiverYear"])

	token := s.login(t, "alice")
	resp, body = s.do(t, http.MethodGet, "/api/admin/records/1", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	waiver := body["waiver"].(map[string]any)
	assert.Equal(t, "203.0.113.9", waiver["ipAddress"])
	assert.Equal(t, "kiosk/2.0", waiver["userAgent"])
	assert.Equal(t, "2025-06-01T12:00:00Z", waiver["signatureDate"])

	missing := waiverBody("", "Lovelace")
	missing.Signature = ""
	resp, body = s.do(t, http.MethodPost, "/api/waivers", missing, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing required fields: firstName, signature", body["message"])
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/check"},
		{http.MethodGet, "/api/admin/suggestions?q=ada"},
		{http.MethodGet, "/api/admin/search?q=ada"},
		{http.MethodGet, "/api/admin/records"},
		{http.MethodGet, "/api/admin/records/1"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/users"},
		{http.MethodDelete, "/api/admin/users/1"},
		{http.MethodPost, "/api/admin/waivers/import"},
	}

	for _, tt := range paths {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := s.do(t, tt.method, tt.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, map[string]any{"message": "unauthorized"}, body)

			resp, _ = s.do(t, tt.method, tt.path, nil, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "alice", Password: "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid username or password", body["message"])

	resp, body = s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "username and password are required", body["message"])

	token := s.login(t, "alice")
	resp, body = s.do(t, http.MethodGet, "/api/admin/check", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"username": "alice"}, body["user"])

	resp, _ = s.do(t, http.MethodPost, "/api/admin/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cleared bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == services.TokenCookieName {
			cleared = cookie.Value == "" && cookie.Expires.Before(time.Now())
		}
	}
	assert.True(t, cleared, "logout expires the session cookie")
}

func TestSearchRoutes(t *testing.T) {
	s := newTestServer(t)
	s.submit(t, "John", "Smith")
	s.submit(t, "Jane", "Smithers")
	s.submit(t, "Maria", "Garcia")
	token := s.login(t, "alice")

	tests := []struct {
		name   string
		path   string
		status int
		key    string
		want   []string
	}{
		{name: "suggestions", path: "/api/admin/suggestions?q=smith", status: http.StatusOK, key: "suggestions", want: []string{"Jane Smithers", "John Smith"}},
		{name: "suggestions no match", path: "/api/admin/suggestions?q=zzzz", status: http.StatusOK, key: "suggestions", want: []string{}},
		{name: "search", path: "/api/admin/search?q=garc", status: http.StatusOK, key: "results", want: []string{"Maria Garcia"}},
		{name: "records", path: "/api/admin/records", status: http.StatusOK, key: "results", want: []string{"Maria Garcia", "Jane Smithers", "John Smith"}},
		{name: "short suggestion query", path: "/api/admin/suggestions?q=+j+", status: http.StatusBadRequest},
		{name: "short search query", path: "/api/admin/search?q=", status: http.StatusBadRequest},
		{name: "bad record id", path: "/api/admin/records/abc", status: http.StatusBadRequest},
		{name: "zero record id", path: "/api/admin/records/0", status: http.StatusBadRequest},
		{name: "missing record", path: "/api/admin/records/999", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodGet, tt.path, nil, token)
			require.Equal(t, tt.status, resp.StatusCode, body)
			if tt.key != "" {
				assert.Equal(t, tt.want, displayNames(t, body, tt.key))
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestSubmissionInvalidatesSuggestions(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "alice")

	_, body := s.do(t, http.MethodGet, "/api/admin/suggestions?q=ada", nil, token)
	assert.Empty(t, displayNames(t, body, "suggestions"))

	s.submit(t, "Ada", "Lovelace")

	_, body = s.do(t, http.MethodGet, "/api/admin/suggestions?q=ada", nil, token)
	assert.Equal(t, []string{"Ada Lovelace"}, displayNames(t, body, "suggestions"))
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "alice")

	resp, body := s.do(t, http.MethodGet, "/api/admin/users", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["users"], 2)
	for _, user := range body["users"].([]any) {
		assert.NotContains(t, user.(map[string]any), "passwordHash")
	}

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{name: "short password", method: http.MethodPost, path: "/api/admin/users", body: CreateAdminRequest{Username: "carol", Password: "short"}, status: http.StatusBadRequest, message: "password must be at least 8 characters long"},
		{name: "duplicate", method: http.MethodPost, path: "/api/admin/users", body: CreateAdminRequest{Username: "bob", Password: "password123"}, status: http.StatusConflict, message: "username already exists"},
		{name: "create", method: http.MethodPost, path: "/api/admin/users", body: CreateAdminRequest{Username: "carol", Password: "password123"}, status: http.StatusCreated, message: "success"},
		{name: "self delete", method: http.MethodDelete, path: "/api/admin/users/1", status: http.StatusBadRequest, message: "you cannot delete your own account"},
		{name: "bad id", method: http.MethodDelete, path: "/api/admin/users/abc", status: http.StatusBadRequest, message: "invalid id"},
		{name: "delete", method: http.MethodDelete, path: "/api/admin/users/2", status: http.StatusOK, message: "success"},
		{name: "delete missing", method: http.MethodDelete, path: "/api/admin/users/2", status: http.StatusNotFound, message: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, tt.method, tt.path, tt.body, token)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	resp, body = s.do(t, http.MethodGet, "/api/admin/users", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["users"], 2)
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/ws/typeahead", nil, s.login(t, "alice"))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, "upgrade required", body["message"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrQueryTooShort, http.StatusBadRequest},
		{ErrInvalidWaiver, http.StatusBadRequest},
		{ErrSelfDelete, http.StatusBadRequest},
		{ErrInvalidImport, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrDuplicateUsername, http.StatusConflict},
		{ErrCacheCorrupt, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestImportWaivers(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "alice")

	const csv = "first_name,last_name,signature_date\nGrace,Hopper,2023-05-02T10:00:00Z\n,Nobody,2023-05-02\n"

	multipartBody := func(t *testing.T) (io.Reader, string) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", "waivers.csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, csv)
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		return &buf, writer.FormDataContentType()
	}

	tests := []struct {
		name     string
		body     func(t *testing.T) (io.Reader, string)
		status   int
		imported float64
		message  string
	}{
		{
			name:     "raw body",
			body:     func(*testing.T) (io.Reader, string) { return bytes.NewBufferString(csv), "text/csv" },
			status:   http.StatusOK,
			imported: 1,
		},
		{
			name:     "multipart upload",
			body:     multipartBody,
			status:   http.StatusOK,
			imported: 1,
		},
		{
			name:    "missing columns",
			body:    func(*testing.T) (io.Reader, string) { return bytes.NewBufferString("name\nGrace\n"), "text/csv" },
			status:  http.StatusBadRequest,
			message: "invalid import file: missing columns firstName, lastName, signatureDate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, contentType := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, "/api/admin/waivers/import", reader)
			req.Header.Set(fiber.HeaderContentType, contentType)
			req.AddCookie(&http.Cookie{Name: services.TokenCookieName, Value: token})

			resp, err := s.server.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode, body)

			if tt.status == http.StatusOK {
				assert.Equal(t, tt.imported, body["imported"])
				assert.EqualValues(t, 1, body["skipped"])
				return
			}
			assert.Equal(t, tt.message, body["message"])
		})
	}

	_, body := s.do(t, http.MethodGet, "/api/admin/search?q=hopper", nil, token)
	assert.Equal(t, []string{"Grace Hopper", "Grace Hopper"}, displayNames(t, body, "results"))
}
