package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/api"
	"github.com/randytsao24/nearstation/internal/api/handlers"
	"github.com/randytsao24/nearstation/internal/cache"
	"github.com/randytsao24/nearstation/internal/config"
	"github.com/randytsao24/nearstation/internal/location"
	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/models"
	"github.com/randytsao24/nearstation/internal/resolver"
)

// ---------------------------------------------------------------------------
// Mock providers
// ---------------------------------------------------------------------------

type mockDirections struct {
	body  json.RawMessage
	err   error
	calls int
}

func (m *mockDirections) Directions(ctx context.Context, start models.Coordinate, end models.StationResult, mode string) (json.RawMessage, error) {
	m.calls++
	return m.body, m.err
}

type failingResolver struct {
	err error
}

func (f failingResolver) Resolve(ctx context.Context, raw models.Coordinate, area *location.ServiceArea) (*resolver.Resolution, error) {
	return nil, f.err
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testAreas() location.Areas {
	return location.Areas{
		{
			Name: "septa",
			Catalog: location.NewCatalog([]models.Station{
				{Name: "Suburban Station", Lat: 39.9539, Lng: -75.1677},
				{Name: "30th Street Station", Lat: 39.9557, Lng: -75.1820},
				{Name: "Jefferson Station", Lat: 39.9525, Lng: -75.1581},
			}),
			Outliers: location.OutlierSet{
				Northernmost: models.Station{Name: "Doylestown", Lat: 40.3127, Lng: -75.1289},
				Southernmost: models.Station{Name: "Newark", Lat: 39.6703, Lng: -75.7535},
				Easternmost:  models.Station{Name: "Trenton", Lat: 40.2177, Lng: -74.7551},
				Westernmost:  models.Station{Name: "Thorndale", Lat: 39.9927, Lng: -75.7634},
			},
		},
	}
}

type testServer struct {
	*httptest.Server
	counters *metrics.Counters
}

func newTestServer(t *testing.T, res handlers.StationResolver, dirs handlers.DirectionsFinder, apiKeys ...string) *testServer {
	t.Helper()

	counters := metrics.NewCounters()
	if res == nil {
		store := cache.NewMemory(time.Minute)
		t.Cleanup(func() { store.Close() })
		res = resolver.New(store, counters, zap.NewNop(), resolver.Options{Backoff: 10 * time.Millisecond})
	}

	cfg := &config.Config{
		HTTPTimeout:    5 * time.Second,
		DirectionsMode: "walking",
		ValidAPIKeys:   apiKeys,
	}
	router := api.NewRouter(cfg, zap.NewNop(), testAreas(), res, dirs, counters)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, counters: counters}
}

func get(t *testing.T, server *testServer, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func post(t *testing.T, server *testServer, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/nearest_station", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /nearest_station: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return m
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

func assertSuccess(t *testing.T, body map[string]any) {
	t.Helper()
	if body["status"] != "success" {
		t.Errorf("expected status=success, body: %v", body)
	}
}

func assertField(t *testing.T, body map[string]any, field string) {
	t.Helper()
	if _, ok := body[field]; !ok {
		t.Errorf("missing field %q in response: %v", field, body)
	}
}

func stationName(t *testing.T, body map[string]any) string {
	t.Helper()
	station, ok := body["nearest_station"].(map[string]any)
	if !ok {
		t.Fatalf("nearest_station missing: %v", body)
	}
	props, _ := station["properties"].(map[string]any)
	name, _ := props["name"].(string)
	return name
}

// ---------------------------------------------------------------------------
// Health & root
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp := get(t, srv, "/health")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertField(t, body, "status")
	assertField(t, body, "uptime")

	if body["status"] != "OK" {
		t.Errorf("status = %v, want OK", body["status"])
	}
}

func TestAPIRoot(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, path := range []string{"/", "/api"} {
		resp := get(t, srv, path)
		assertStatus(t, resp, http.StatusOK)
		assertField(t, decodeBody(t, resp), "endpoints")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp := get(t, srv, "/health")
	resp.Body.Close()

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
	}
	for k, v := range want {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
	if resp.Header.Get(api.RequestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(api.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

// ---------------------------------------------------------------------------
// Nearest station
// ---------------------------------------------------------------------------

func TestNearestStation(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	assertField(t, body, "directions")

	if name := stationName(t, body); name != "Suburban Station" {
		t.Errorf("nearest = %q, want Suburban Station", name)
	}
	if body["directions"] != nil {
		t.Errorf("directions = %v, want null", body["directions"])
	}
	if body["service_area"] != "septa" {
		t.Errorf("service_area = %v, want septa", body["service_area"])
	}
}

func TestNearestStationCachedSecondCall(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for i := 0; i < 2; i++ {
		resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	if got := srv.counters.Get(metrics.FullScans); got != 1 {
		t.Errorf("full scans = %d, want 1", got)
	}
	if got := srv.counters.Get(metrics.CacheHits); got != 1 {
		t.Errorf("cache hits = %d, want 1", got)
	}
	if got := srv.counters.Get(metrics.SuccessfulResponses); got != 2 {
		t.Errorf("successful responses = %d, want 2", got)
	}
}

func TestNearestStationWithDirections(t *testing.T) {
	dirs := &mockDirections{body: json.RawMessage(`{"status":"OK","routes":[]}`)}
	srv := newTestServer(t, nil, dirs)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680, "include_directions": true}`)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	d, ok := body["directions"].(map[string]any)
	if !ok || d["status"] != "OK" {
		t.Errorf("directions = %v, want provider body", body["directions"])
	}
}

func TestNearestStationDirectionsFailure(t *testing.T) {
	dirs := &mockDirections{err: errors.New("upstream down")}
	srv := newTestServer(t, nil, dirs)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680, "include_directions": true}`)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	assertField(t, body, "directions_error")
	if name := stationName(t, body); name != "Suburban Station" {
		t.Errorf("nearest = %q, want Suburban Station", name)
	}
	if body["directions"] != nil {
		t.Errorf("directions = %v, want null", body["directions"])
	}
}

func TestNearestStationTooFar(t *testing.T) {
	dirs := &mockDirections{body: json.RawMessage(`{}`)}
	srv := newTestServer(t, nil, dirs)

	// Miami
	resp := post(t, srv, `{"latitude": 25.7617, "longitude": -80.1918, "include_directions": true}`)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	if body["directions"] != handlers.TooFarForDirections {
		t.Errorf("directions = %v, want too-far message", body["directions"])
	}
	if name := stationName(t, body); name != "Newark" {
		t.Errorf("nearest = %q, want southernmost outlier Newark", name)
	}
	if dirs.calls != 0 {
		t.Errorf("directions called %d times for distant location", dirs.calls)
	}
	if got := srv.counters.Get(metrics.FullScans); got != 0 {
		t.Errorf("full scans = %d, want 0", got)
	}
}

func TestNearestStationBadRequests(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `latitude=1`},
		{"missing longitude", `{"latitude": 39.95}`},
		{"latitude out of range", `{"latitude": 95, "longitude": -75}`},
		{"longitude out of range", `{"latitude": 39.95, "longitude": -181}`},
		{"wrong type", `{"latitude": "north", "longitude": -75}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.body)
			assertStatus(t, resp, http.StatusBadRequest)
			assertField(t, decodeBody(t, resp), "error")
		})
	}
}

func TestNearestStationRetryExhausted(t *testing.T) {
	srv := newTestServer(t, failingResolver{err: resolver.ErrRetryExhausted}, nil)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
	assertStatus(t, resp, http.StatusTooManyRequests)

	body := decodeBody(t, resp)
	if !strings.Contains(body["error"].(string), "try again") {
		t.Errorf("error = %v", body["error"])
	}
	if got := srv.counters.Get(metrics.FailedResponses); got != 1 {
		t.Errorf("failed responses = %d, want 1", got)
	}
}

func TestNearestStationEmptyCatalog(t *testing.T) {
	srv := newTestServer(t, failingResolver{err: resolver.ErrEmptyCatalog}, nil)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
	assertStatus(t, resp, http.StatusServiceUnavailable)
	resp.Body.Close()
}

func TestNearestStationInternalErrorHidden(t *testing.T) {
	srv := newTestServer(t, failingResolver{err: errors.New("secret internals")}, nil)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
	assertStatus(t, resp, http.StatusInternalServerError)

	body := decodeBody(t, resp)
	if strings.Contains(body["error"].(string), "secret") {
		t.Errorf("internal error leaked: %v", body["error"])
	}
}

func TestNearestStationWrongMethod(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp := get(t, srv, "/nearest_station")
	assertStatus(t, resp, http.StatusMethodNotAllowed)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// Auth & limits
// ---------------------------------------------------------------------------

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, nil, nil, "key-1", "key-2")
	payload := `{"latitude": 39.9540, "longitude": -75.1680}`

	resp := post(t, srv, payload)
	assertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = post(t, srv, payload, api.APIKeyHeader, "wrong")
	assertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = post(t, srv, payload, api.APIKeyHeader, "key-2")
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestAPIKeyNotRequiredForHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil, "key-1")

	resp := get(t, srv, "/health")
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRequestTooLarge(t *testing.T) {
	cfg := &config.Config{HTTPTimeout: 5 * time.Second}
	router := api.NewRouter(cfg, zap.NewNop(), testAreas(), failingResolver{}, nil, nil)

	big := `{"latitude": 39.9540, "longitude": -75.1680, "pad": "` + strings.Repeat("x", api.MaxRequestBytes) + `"}`

	t.Run("declared length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/nearest_station", strings.NewReader(big))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("streamed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/nearest_station", io.MultiReader(strings.NewReader(big)))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp := post(t, srv, `{"latitude": 39.9540, "longitude": -75.1680}`)
	resp.Body.Close()

	resp = get(t, srv, "/metrics")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	counters, ok := body["counters"].(map[string]any)
	if !ok {
		t.Fatalf("counters missing: %v", body)
	}
	if counters["api_calls"] != float64(1) {
		t.Errorf("api_calls = %v, want 1", counters["api_calls"])
	}
	if counters["cache_misses"] != float64(1) {
		t.Errorf("cache_misses = %v, want 1", counters["cache_misses"])
	}
}
