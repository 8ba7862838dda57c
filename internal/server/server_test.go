package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/machool/internal/server"
	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/internal/settings"
	"github.com/tournevent/machool/internal/telemetry"
	"github.com/tournevent/machool/pkg/shipper/machool"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const testAPIKey = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newTestService(apiKey string) *service.Service {
	reg := prometheus.NewRegistry()
	svc := service.New(service.Options{Metrics: telemetry.NewMetrics(reg), Version: "1.0.0"})
	svc.AddAccount(machool.NewWithAPIClient(machool.Config{
		APIKey:      apiKey,
		StoreDomain: "shop.example.com",
		Notices:     svc.Notices(),
	}, machool.NewMockAPIClient(), nil, nil))
	return svc
}

func newTestHandler(t *testing.T, cfg server.Config, svc *service.Service) http.Handler {
	t.Helper()
	srv, err := server.New(cfg, svc, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	return srv.Handler()
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var health service.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.0.0", health.Version)
	assert.Equal(t, 1, health.Providers)
}

func TestServer_Rates(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	body := `{"package":{"destination":{"country":"CA","postcode":"V6B 2W2"},"contents":[{"weight":1.5}]}}`
	rec := serve(h, http.MethodPost, "/v1/rates", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	var result service.QuoteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Rates, 3)
	assert.Equal(t, 15.82, result.Rates[0].Cost)
	assert.Equal(t, 18.74, result.Rates[1].Cost)
	assert.Equal(t, 29.95, result.Rates[2].Cost)
	assert.Equal(t, "2.0.4", result.Rates[0].MetaData["version"])
}

func TestServer_Rates_NoPostcode(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodPost, "/v1/rates", `{"package":{"destination":{"country":"CA"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rates":[]`)
}

func TestServer_Rates_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodPost, "/v1/rates", "{")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestServer_Rates_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodGet, "/v1/rates", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ValidateAndNotices(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService("bad-key"))

	rec := serve(h, http.MethodPost, "/v1/credentials/validate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)

	rec = serve(h, http.MethodGet, "/v1/notices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), machool.InvalidCredentialsNoticeKey)

	rec = serve(h, http.MethodGet, "/v1/notices?format=html", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `<div class="error"><p>`+machool.InvalidCredentialsNotice+`</p></div>`)
}

func TestServer_ProvidersAndFields(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodGet, "/v1/providers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"machool_shipping"`)

	rec = serve(h, http.MethodGet, "/v1/settings/fields", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"store_domain"`)
	assert.Contains(t, rec.Body.String(), `"key":"api_key"`)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := service.New(service.Options{Metrics: telemetry.NewMetrics(reg)})
	svc.AddAccount(machool.NewWithAPIClient(machool.Config{APIKey: testAPIKey, StoreDomain: "shop.example.com"},
		machool.NewMockAPIClient(), nil, nil))
	h := newTestHandler(t, server.Config{Gatherer: reg}, svc)

	serve(h, http.MethodPost, "/v1/rates", `{"package":{"destination":{"postcode":"V6B 2W2"},"contents":[{"weight":1}]}}`)
	rec := serve(h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "machool_quotes_total")
}

func TestServer_GraphQL(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodPost, "/graphql", `{"query":"{ health { status } }"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"health":{"status":"ok"}}}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/playground", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Settings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_domain: old.example.com\napi_key: old\n"), 0o600))
	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	var saved []settings.Settings
	h := newTestHandler(t, server.Config{
		Settings: store,
		OnSettingsSaved: func(ctx context.Context, s settings.Settings) {
			saved = append(saved, s)
		},
	}, newTestService(testAPIKey))

	rec := serve(h, http.MethodGet, "/v1/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "old.example.com")

	rec = serve(h, http.MethodPut, "/v1/settings", `{"store_domain":"new.example.com","api_key":"`+testAPIKey+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, saved, 1)
	assert.Equal(t, "new.example.com", saved[0].StoreDomain)
	assert.Equal(t, "new.example.com", store.Current().StoreDomain)

	rec = serve(h, http.MethodPut, "/v1/settings", `{"store_domain":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, saved, 1)
}

func TestServer_SettingsSavedOnceWhileWatched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_domain: old.example.com\napi_key: old\n"), 0o600))
	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	var watched atomic.Int32
	require.NoError(t, store.Watch(func(settings.Settings) { watched.Add(1) }))
	t.Cleanup(func() { _ = store.Close() })

	var saved atomic.Int32
	h := newTestHandler(t, server.Config{
		Settings:        store,
		OnSettingsSaved: func(context.Context, settings.Settings) { saved.Add(1) },
	}, newTestService(testAPIKey))

	rec := serve(h, http.MethodPut, "/v1/settings", `{"store_domain":" new.example.com ","api_key":"`+testAPIKey+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store_domain":"new.example.com"`)
	assert.Equal(t, int32(1), saved.Load())
	assert.Never(t, func() bool { return watched.Load() > 0 }, 500*time.Millisecond, 50*time.Millisecond)
}

func TestServer_SettingsDisabledWithoutStore(t *testing.T) {
	h := newTestHandler(t, server.Config{}, newTestService(testAPIKey))

	rec := serve(h, http.MethodGet, "/v1/settings", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := server.Recovery(otelzap.New(zap.NewNop()))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := server.Chain(mw("a"), mw("b"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	serve(h, http.MethodGet, "/", "")

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
