package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/techmail/internal/api"
	"github.com/vrsandeep/techmail/internal/auth"
	"github.com/vrsandeep/techmail/internal/config"
	"github.com/vrsandeep/techmail/internal/testutil"
)

func doRequest(t *testing.T, router http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newServer(t *testing.T, cfg *config.Config) (*api.Server, http.Handler) {
	t.Helper()
	server, _ := testutil.SetupTestServer(t, cfg)
	testutil.WriteHostConfig(t, server.App(), testutil.HostConfig)
	return server, server.Router()
}

func TestAdminHandlers(t *testing.T) {
	_, router := newServer(t, nil)

	t.Run("Get Version", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/api/version", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "test", decodeBody(t, rr)["version"])
	})

	t.Run("Health", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/api/health", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Jobs Status", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/api/admin/jobs/status", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var statuses []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
		require.Len(t, statuses, 2)
		assert.Equal(t, "config-sync", statuses[0]["id"])
		assert.Equal(t, "release-check", statuses[1]["id"])
	})

	t.Run("Run Job", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/api/admin/jobs/run", map[string]string{"job_name": "config-sync"}, nil)
		assert.Equal(t, http.StatusAccepted, rr.Code)
	})

	t.Run("Run Job Bad Payload", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/api/admin/jobs/run", "{", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAdminTokenMiddleware(t *testing.T) {
	hash, err := auth.HashToken("s3cret")
	require.NoError(t, err)
	cfg := testutil.TestConfig("http://127.0.0.1:1/release.json")
	cfg.API.TokenHash = hash
	_, router := newServer(t, cfg)

	testCases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic s3cret"}, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodGet, "/api/admin/settings/technical-email", nil, tc.header)
			assert.Equal(t, tc.want, rr.Code)
		})
	}

	// Public routes stay open.
	rr := doRequest(t, router, http.MethodGet, "/api/recipient", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDoAction_RequiresToken(t *testing.T) {
	hash, err := auth.HashToken("s3cret")
	require.NoError(t, err)
	cfg := testutil.TestConfig("http://127.0.0.1:1/release.json")
	cfg.API.TokenHash = hash
	server, router := newServer(t, cfg)
	app := server.App()
	before := app.Resolver().Resolve()

	payload := map[string]any{"args": []any{"", "evil@example.com", "technical_email_address"}}
	for _, name := range []string{"update_option_technical_email_address", "activate", "deactivate", "uninstall"} {
		rr := doRequest(t, router, http.MethodPost, "/api/actions/"+name, payload, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
	}
	assert.Equal(t, before, app.Resolver().Resolve())
	assert.Equal(t, testutil.HostConfig, testutil.ReadHostConfig(t, app))

	rr := doRequest(t, router, http.MethodPost, "/api/actions/update_option_technical_email_address", payload,
		map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, testutil.ReadHostConfig(t, app), "'evil@example.com'")
}

func TestUpdateCheck(t *testing.T) {
	t.Run("newer release", func(t *testing.T) {
		remote := releaseServer(t, http.StatusOK, `{"name":"Technical Email","version":"v1.2.0","download_url":"https://example.com/p.zip"}`)
		_, router := newServer(t, testutil.TestConfig(remote.URL))

		rr := doRequest(t, router, http.MethodPost, "/api/admin/update-check", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "1.0.0", body["installed"])
		assert.Equal(t, true, body["update_available"])
		assert.Equal(t, "1.2.0", body["update"].(map[string]any)["new_version"])
	})

	t.Run("installed override", func(t *testing.T) {
		remote := releaseServer(t, http.StatusOK, `{"version":"1.2.0","download_url":"https://example.com/p.zip"}`)
		_, router := newServer(t, testutil.TestConfig(remote.URL))

		rr := doRequest(t, router, http.MethodPost, "/api/admin/update-check?version=1.2.0", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, false, body["update_available"])
		assert.NotContains(t, body, "update")
	})

	t.Run("invalid installed override", func(t *testing.T) {
		remote := releaseServer(t, http.StatusOK, `{"version":"1.2.0","download_url":"https://example.com/p.zip"}`)
		_, router := newServer(t, testutil.TestConfig(remote.URL))

		rr := doRequest(t, router, http.MethodPost, "/api/admin/update-check?version=not.a.version", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("remote failure", func(t *testing.T) {
		remote := releaseServer(t, http.StatusInternalServerError, `oops`)
		_, router := newServer(t, testutil.TestConfig(remote.URL))

		rr := doRequest(t, router, http.MethodPost, "/api/admin/update-check", nil, nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestAdminRateLimit(t *testing.T) {
	cfg := testutil.TestConfig("http://127.0.0.1:1/release.json")
	cfg.API.AdminRate = 0.001
	cfg.API.AdminBurst = 2
	_, router := newServer(t, cfg)

	for i := 0; i < 2; i++ {
		rr := doRequest(t, router, http.MethodGet, "/api/admin/jobs/status", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := doRequest(t, router, http.MethodGet, "/api/admin/jobs/status", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Non-admin routes are not limited.
	rr = doRequest(t, router, http.MethodGet, "/api/recipient", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
