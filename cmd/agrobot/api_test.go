package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluefox/agrobot/config"
	"github.com/bluefox/agrobot/store"
)

func newTestAPI(t *testing.T) (*api, *robot) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database = filepath.Join(t.TempDir(), "test.db")
	cfg.Serial.Ports = nil
	cfg.Serial.Discover = false

	ctx, cancel := context.WithCancel(context.Background())
	r, err := newRobot(ctx, cfg, false)
	require.NoError(t, err)
	a := newAPI(ctx, r)
	t.Cleanup(func() {
		cancel()
		a.Close()
		r.Close()
	})
	return a, r
}

func do(t *testing.T, h http.Handler, method, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Command(t *testing.T) {
	a, _ := newTestAPI(t)

	rec := do(t, a, "GET", "/command?cmd=w")
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, a, "GET", "/command?cmd=p")
	assert.Equal(t, 400, rec.Code)
}

func TestAPI_Pose(t *testing.T) {
	a, r := newTestAPI(t)
	require.NoError(t, r.dispatcher.Move("Base", 45))

	rec := do(t, a, "GET", "/api/pose")
	require.Equal(t, 200, rec.Code)
	var pose map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pose))
	assert.Equal(t, map[string]int{"Base": 45, "Shoulder": 90, "Elbow": 90, "Gripper": 140}, pose)
}

func TestAPI_Predict(t *testing.T) {
	a, _ := newTestAPI(t)

	rec := do(t, a, "GET", "/predict")
	require.Equal(t, 200, rec.Code)
	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "Error", res["name"])
	assert.Equal(t, "#", res["link"])
}

func TestAPI_Scans(t *testing.T) {
	a, r := newTestAPI(t)

	rec := do(t, a, "GET", "/api/scans")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	require.NoError(t, r.db.SaveScan(&store.ScanRecord{Label: 1, Name: "Early Blight", Action: "Spray"}))
	rec = do(t, a, "GET", "/api/scans?limit=5")
	var recs []store.ScanRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "Early Blight", recs[0].Name)

	rec = do(t, a, "GET", "/api/scans?limit=x")
	assert.Equal(t, 400, rec.Code)
}

func TestAPI_Disease(t *testing.T) {
	a, _ := newTestAPI(t)

	rec := do(t, a, "GET", "/api/diseases/9")
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `"link":"healthy"`)

	rec = do(t, a, "GET", "/api/diseases/42")
	assert.Equal(t, 404, rec.Code)
}

func TestAPI_NoCamera(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := do(t, a, "GET", "/video_feed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_Distance(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := do(t, a, "GET", "/api/distance")
	assert.JSONEq(t, `{"distance":100}`, rec.Body.String())
}
