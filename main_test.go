package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"agriconnect/internal/config"
	"agriconnect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func memoryConfig() config.Config {
	return config.Config{
		AppPort:     ":0",
		DBDriver:    config.DriverMemory,
		JWTSecret:   "main_test_secret",
		TokenTTL:    time.Hour,
		CacheTTL:    time.Minute,
		CORSOrigins: "*",
	}
}

func TestBuildAppMemory(t *testing.T) {
	app, cleanup, err := buildApp(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	t.Run("health", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("seeded catalog is public", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		assert.Len(t, products, 6)
	})

	t.Run("orders need a token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/orders/buyer/4", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestBuildAppRejectsUnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	app, cleanup, err := buildApp(cfg)
	assert.Error(t, err)
	assert.Nil(t, app)
	assert.Nil(t, cleanup)
}
