package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/handoff/pkg/config"
	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/ratelimit"
	"github.com/platinummonkey/handoff/pkg/sso"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 4 << 10},
		Store: tokenstore.Config{
			Type:         tokenstore.BackendMemory,
			MemorySize:   100,
			MemoryMaxTTL: time.Hour,
		},
		SweepSchedule: tokenstore.DefaultSweepSchedule,
		SSO: config.SSOConfig{
			Clients: []sso.ClientConfig{
				{Name: "bizdock", LoginURL: "https://idp.example.com/login"},
			},
			BaseURL:      "https://app.example.com",
			SuccessURL:   sso.DefaultSuccessURL,
			IssuerSecret: "s3cret",
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       observability.DebugLevel,
			LogFormat:      observability.JSONFormat,
			MetricsEnabled: true,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*app, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := observability.NewLoggerWithFormat(cfg.Observability.LogLevel, cfg.Observability.LogFormat, &logs)

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.store.Close() })
	return a, &logs
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, a *app, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sso/bizdock/tokens", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("Content-Type", "application/json")

	w := do(a.handler, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token      string `json:"token"`
		HandoffURL string `json:"handoff_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.HandoffURL
}

func TestApp_IssueAndRedeem(t *testing.T) {
	a, logs := newTestApp(t, testConfig())

	handoff, err := url.Parse(issue(t, a, `{"uid":"alice","redirect":"/reports"}`))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", handoff.Host)

	w := do(a.handler, httptest.NewRequest(http.MethodGet, handoff.RequestURI(), nil))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sso/bizdock/continue", w.Header().Get("Location"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	cookie := w.Result().Cookies()
	require.NotEmpty(t, cookie)

	cont := httptest.NewRequest(http.MethodGet, "/sso/bizdock/continue", nil)
	cont.AddCookie(cookie[0])
	w = do(a.handler, cont)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/reports", w.Header().Get("Location"))

	assert.Contains(t, logs.String(), "SSO handlers ready")
	assert.NotContains(t, logs.String(), handoff.Query().Get("token"))
}

func TestApp_MetricsAndHealth(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	assert.Nil(t, a.sweeper, "memory store expires natively")

	do(a.handler, httptest.NewRequest(http.MethodGet, "/sso/bizdock/callback?token=missing", nil))

	w := do(a.health, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `handoff_sso_handshakes_total{client="bizdock"`)
	assert.Contains(t, body, `handoff_http_requests_total{method="GET",route="/sso/{client}/callback"`)
	assert.Contains(t, body, `handoff_token_store_operations_total{backend="memory"`)

	w = do(a.health, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token_store")
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = false
	a, _ := newTestApp(t, cfg)

	w := do(a.health, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_IssuerDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.SSO.IssuerSecret = ""
	a, _ := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/sso/bizdock/tokens", strings.NewReader(`{"uid":"alice"}`))
	w := do(a.handler, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_BodyLimit(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	body := `{"uid":"` + strings.Repeat("a", 8<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/sso/bizdock/tokens", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	w := do(a.handler, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApp_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = ratelimit.Config{RequestsPerWindow: 1, Window: time.Minute}
	a, _ := newTestApp(t, cfg)

	callback := func() int {
		req := httptest.NewRequest(http.MethodGet, "/sso/bizdock/callback?token=guess&redirect=/", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		return do(a.handler, req).Code
	}
	assert.Equal(t, http.StatusFound, callback())
	assert.Equal(t, http.StatusTooManyRequests, callback())
}

func TestNewLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := ratelimit.DefaultConfig()

	_, local := newLimiter(ctx, tokenstore.NewMemoryStore(1, time.Minute), cfg).(*ratelimit.LocalLimiter)
	assert.True(t, local)

	mr := miniredis.RunT(t)
	rs, err := tokenstore.NewRedisStore(ctx, tokenstore.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer rs.Close()
	_, shared := newLimiter(ctx, rs, cfg).(*ratelimit.RedisLimiter)
	assert.True(t, shared)
}

func TestApp_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Store = tokenstore.Config{
		Type:  tokenstore.BackendRedis,
		Redis: tokenstore.RedisConfig{URL: "redis://" + mr.Addr()},
	}
	a, _ := newTestApp(t, cfg)

	handoff, err := url.Parse(issue(t, a, `{"uid":"alice"}`))
	require.NoError(t, err)
	assert.True(t, mr.Exists(sso.CacheKey(sso.CachePrefix, handoff.Query().Get("token"))))

	w := do(a.health, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	mr.Close()
	w = do(a.health, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApp_DuplicateClients(t *testing.T) {
	cfg := testConfig()
	cfg.SSO.Clients = append(cfg.SSO.Clients, cfg.SSO.Clients[0])

	_, err := newApp(context.Background(), cfg, observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}))
	assert.ErrorIs(t, err, sso.ErrDuplicateClient)
}

func TestStorePinger(t *testing.T) {
	mem := tokenstore.NewMemoryStore(1, time.Minute)
	assert.NoError(t, storePinger(mem).Ping(context.Background()))

	mr := miniredis.RunT(t)
	rs, err := tokenstore.NewRedisStore(context.Background(), tokenstore.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer rs.Close()
	assert.NoError(t, storePinger(rs).Ping(context.Background()))
}

func TestApp_ReloadClients(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	partner := sso.ClientConfig{Name: "partner", LoginURL: "https://partner.example.com/signin"}
	require.NoError(t, a.reloadClients([]sso.ClientConfig{partner}))

	w := do(a.handler, httptest.NewRequest(http.MethodGet, "/sso/partner/login", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://partner.example.com/signin", w.Header().Get("Location"))

	w = do(a.handler, httptest.NewRequest(http.MethodGet, "/sso/bizdock/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sso/partner/tokens", strings.NewReader(`{"uid":"alice"}`))
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("Content-Type", "application/json")
	w = do(a.handler, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestApp_ReloadClientsKeepsRunningSetOnError(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	bad := []sso.ClientConfig{
		{Name: "partner", LoginURL: "https://partner.example.com/signin"},
		{Name: "partner", LoginURL: "https://partner.example.com/signin"},
	}
	assert.ErrorIs(t, a.reloadClients(bad), sso.ErrDuplicateClient)
	assert.Equal(t, []string{"bizdock"}, a.registry.Names())

	assert.Error(t, a.reloadClients([]sso.ClientConfig{{Name: "nologin"}}))
	assert.Equal(t, []string{"bizdock"}, a.registry.Names())
}

func TestApp_WatchesClientsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clients:\n  - name: bizdock\n    login_url: https://idp.example.com/login\n"), 0o600))

	cfg := testConfig()
	cfg.SSO.ClientsFile = path
	cfg.SSO.WatchClientsFile = true
	a, _ := newTestApp(t, cfg)
	require.NotNil(t, a.watcher)
	a.watcher.Start()
	t.Cleanup(func() { _ = a.watcher.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(path, []byte("clients:\n  - name: partner\n    login_url: https://partner.example.com/signin\n"), 0o600))

	require.Eventually(t, func() bool {
		w := do(a.handler, httptest.NewRequest(http.MethodGet, "/sso/partner/login", nil))
		return w.Code == http.StatusFound
	}, 3*time.Second, 20*time.Millisecond)
}
