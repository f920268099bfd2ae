package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/techmail/internal/testutil"
	"github.com/vrsandeep/techmail/internal/wpconfig"
)

func TestTechnicalEmailSettings(t *testing.T) {
	server, router := newServer(t, nil)
	def := server.App().Resolver().Default()

	rr := doRequest(t, router, http.MethodGet, "/api/recipient", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, def, decodeBody(t, rr)["address"])

	rr = doRequest(t, router, http.MethodGet, "/api/admin/settings/technical-email", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "", body["address"])
	assert.Equal(t, def, body["effective"])
	assert.NotContains(t, body, "declared")

	t.Run("save address", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, "/api/admin/settings/technical-email", map[string]string{"address": " ops@example.com "}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "ops@example.com", body["address"])
		assert.Equal(t, "ops@example.com", body["effective"])
		assert.Equal(t, "ops@example.com", body["declared"])
		assert.Contains(t, testutil.ReadHostConfig(t, server.App()), wpconfig.Declaration("ops@example.com"))
	})

	t.Run("reject invalid address", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, "/api/admin/settings/technical-email", map[string]string{"address": "nope"}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "ops@example.com", server.App().Resolver().Resolve())
	})

	t.Run("clear falls back to default", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, "/api/admin/settings/technical-email", map[string]string{"address": ""}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "", body["address"])
		assert.Equal(t, def, body["effective"])
		assert.Equal(t, def, body["declared"])
	})
}
