package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/logging"
	"github.com/san-kum/leadlag/internal/storage"
)

func newTestServer(t *testing.T, store *storage.Store) *Server {
	t.Helper()
	opts := design.DefaultOptions()
	opts.DE.MaxGenerations = 5
	opts.DE.Workers = 2
	return New(Config{Design: opts, Store: store, Log: logging.NewTestLogger()})
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/optimize", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(requestIDHeader))
}

func TestOptimize(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := post(t, h, `{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, true, resp["success"])
	comp := resp["compensator"].(map[string]any)
	for _, key := range []string{"K", "T", "alpha", "type"} {
		assert.Contains(t, comp, key)
	}

	margins := resp["margins"].(map[string]any)
	switch gm := margins["gm"].(type) {
	case float64:
	case string:
		assert.Equal(t, "Inf", gm)
	default:
		t.Errorf("gm has unexpected type %T", gm)
	}

	bode := resp["bode"].(map[string]any)
	assert.Len(t, bode["frequency"], 200)
	assert.Contains(t, bode, "nyquist")

	step := resp["stepResponse"].(map[string]any)
	assert.Len(t, step["time"], design.DefaultStepSamples)

	meta := resp["meta"].(map[string]any)
	assert.Contains(t, meta, "executionTime")
	assert.NotContains(t, meta, "runId")
}

func TestOptimizeBadRequests(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"numerator":`, http.StatusBadRequest},
		{"empty denominator", `{"numerator":[1],"denominator":[],"targetPhaseMargin":45}`, http.StatusBadRequest},
		{"zero denominator", `{"numerator":[1],"denominator":[0,0],"targetPhaseMargin":45}`, http.StatusBadRequest},
		{"zero numerator", `{"numerator":[0],"denominator":[1,1],"targetPhaseMargin":45}`, http.StatusBadRequest},
		{"phase margin out of range", `{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":200}`, http.StatusBadRequest},
		{"negative bandwidth", `{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45,"minBandwidth":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.body)
			assert.Equal(t, tt.code, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestOptimizeCancelledRequest(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/optimize",
		strings.NewReader(`{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	post(t, h, `{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45}`)
	post(t, h, `{"numerator":[1],"denominator":[0],"targetPhaseMargin":45}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `leadlag_optimizations_total{outcome="success"} 1`)
	assert.Contains(t, text, `leadlag_optimizations_total{outcome="invalid"} 1`)
	assert.Contains(t, text, "leadlag_optimization_duration_seconds_count 1")
	assert.Contains(t, text, "leadlag_objective_evaluations_total")
}

func TestSavedRuns(t *testing.T) {
	store := storage.New(t.TempDir())
	require.NoError(t, store.Init())
	h := newTestServer(t, store).Handler()

	w := post(t, h, `{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45,"save":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meta struct {
			RunID string `json:"runId"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Meta.RunID)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []storage.RunMetadata
	require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.Meta.RunID, runs[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/runs/"+resp.Meta.RunID, nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte(`"stepResponse"`)))

	req = httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/6f1c0c1e-2a40-4c6b-9a53-0d5c3c1b9a10", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSavedRunNames(t *testing.T) {
	store := storage.New(t.TempDir())
	require.NoError(t, store.Init())
	h := newTestServer(t, store).Handler()

	names := make(map[string]string)
	for _, body := range []string{
		`{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45,"save":true,"projectName":"Motor loop"}`,
		`{"numerator":[1],"denominator":[1,1],"targetPhaseMargin":45,"save":true}`,
	} {
		w := post(t, h, body)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Meta struct {
				RunID string `json:"runId"`
			} `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		meta, err := store.Load(resp.Meta.RunID)
		require.NoError(t, err)
		names[resp.Meta.RunID] = meta.Name
	}

	got := make([]string, 0, len(names))
	for _, name := range names {
		got = append(got, name)
	}
	assert.ElementsMatch(t, []string{"Motor loop", DefaultProjectName}, got)
}
