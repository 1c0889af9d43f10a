package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-stream-health/internal/config"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
	"github.com/e7canasta/orion-stream-health/internal/monitor"
)

// refusingAcquirer always fails with a terminal error so start requests
// settle into idle without scheduling retries.
type refusingAcquirer struct{}

func (refusingAcquirer) Acquire(_ context.Context, _ frame.Source) (frame.FrameSource, error) {
	return nil, fmt.Errorf("test acquirer: %w", frame.ErrPermissionDenied)
}

func newTestServer(t *testing.T) (*Server, string, *eventlog.Log, *config.Settings) {
	t.Helper()
	sink := eventlog.New()
	settings := config.NewSettings(config.Default())
	sup, err := monitor.NewSupervisor(refusingAcquirer{}, settings, sink)
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", sup, settings, sink, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return srv, "http://" + srv.Addr(), sink, settings
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	_, base, sink, _ := newTestServer(t)
	sink.Info(frame.SourceCamera, "source started", nil)

	var body map[string]any
	code := getJSON(t, base+"/api/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["log_count"])
}

func TestStatusEndpoint(t *testing.T) {
	_, base, _, _ := newTestServer(t)

	var body struct {
		Sources  map[string]monitor.Status `json:"sources"`
		Settings config.Snapshot           `json:"settings"`
	}
	code := getJSON(t, base+"/api/status", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Sources, 2)
	assert.Equal(t, "idle", body.Sources["camera"].State)
	assert.Equal(t, "idle", body.Sources["screen"].State)
	assert.Equal(t, 8.0, body.Settings.BlackPercent)
}

func TestStartUnknownSource(t *testing.T) {
	_, base, _, _ := newTestServer(t)

	resp, err := http.Post(base+"/api/sources/microphone/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartAndStopSource(t *testing.T) {
	_, base, _, _ := newTestServer(t)

	resp, err := http.Post(base+"/api/sources/camera/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(base+"/api/sources/camera/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSettingsRoundTrip(t *testing.T) {
	_, base, _, settings := newTestServer(t)

	var got config.Snapshot
	code := getJSON(t, base+"/api/settings", &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, config.Default(), got)

	next := config.Default()
	next.BlackPercent = 20
	next.DetectIdle = false
	payload, err := json.Marshal(next)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, base+"/api/settings", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	applied := settings.Snapshot()
	assert.Equal(t, 20.0, applied.BlackPercent)
	assert.False(t, applied.DetectIdle)
}

func TestLogsAndExport(t *testing.T) {
	_, base, sink, _ := newTestServer(t)
	sink.Warn(frame.SourceScreen, "video is black", map[string]any{"luma_percent": 1.5})

	var body struct {
		Entries []eventlog.Entry `json:"entries"`
	}
	code := getJSON(t, base+"/api/logs", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "video is black", body.Entries[0].Message)

	resp, err := http.Get(base + "/api/logs/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var doc eventlog.Export
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Entries, 1)
	assert.False(t, doc.ExportedAt.IsZero())
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	_, base, _, _ := newTestServer(t)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
