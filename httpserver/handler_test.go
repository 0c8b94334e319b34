package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/validator-provisioning/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cache *monitor.Cache, cfg HandlerConfig) *Server {
	t.Helper()
	return newTestServerWithDrain(t, cache, cfg, 0)
}

func newTestServerWithDrain(t *testing.T, cache *monitor.Cache, cfg HandlerConfig, drain time.Duration) *Server {
	t.Helper()
	handler := NewHandler(cache, cfg, testLogger())
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      testLogger(),
		DrainDuration:            drain,
		GracefulShutdownDuration: time.Second,
	}, handler, nil)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestEpochJSON(t *testing.T) {
	cache := monitor.NewCache()
	cache.Store(monitor.Snapshot{Chain: monitor.ChainView{Epoch: 12, Waypoint: "W", Height: 99}})

	rr := get(t, newTestServer(t, cache, HandlerConfig{}).Router(), "/epoch.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"epoch":12,"waypoint":"W"}`, rr.Body.String())
}

func TestPlainReadsBeforeFirstRefresh(t *testing.T) {
	router := newTestServer(t, monitor.NewCache(), HandlerConfig{}).Router()

	tests := []struct {
		path     string
		expected string
	}{
		{path: "/vals", expected: `[]`},
		{path: "/chain", expected: `{"epoch":0,"height":0,"waypoint":"","validator_count":0,"total_supply":0,"chain_id":0}`},
		{path: "/epoch.json", expected: `{"epoch":0,"waypoint":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, router, tt.path)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expected, rr.Body.String())
		})
	}
}

func TestPlainReadsAfterRefresh(t *testing.T) {
	cache := monitor.NewCache()
	cache.Store(monitor.Snapshot{
		Chain:      monitor.ChainView{Epoch: 3, Height: 10},
		Validators: []monitor.ValidatorView{{AccountAddress: "aa", VotingPower: 5}},
	})
	router := newTestServer(t, cache, HandlerConfig{}).Router()

	var vals []monitor.ValidatorView
	require.NoError(t, json.Unmarshal(get(t, router, "/vals").Body.Bytes(), &vals))
	assert.Equal(t, cache.Load().Validators, vals)

	var chain monitor.ChainView
	require.NoError(t, json.Unmarshal(get(t, router, "/chain").Body.Bytes(), &chain))
	assert.Equal(t, uint64(10), chain.Height)
}

func TestAccountManifestPassThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "account.json")
	router := newTestServer(t, monitor.NewCache(), HandlerConfig{ManifestPath: path}).Router()

	assert.Equal(t, http.StatusNotFound, get(t, router, "/account.json").Code)

	manifest := `{"wallet": {"account": "abcd"},  "extra": true}`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	rr := get(t, router, "/account.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, manifest, rr.Body.String())
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>monitor</h1>"), 0644))

	router := newTestServer(t, monitor.NewCache(), HandlerConfig{StaticDir: dir}).Router()
	rr := get(t, router, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "monitor")
}

type streamCounter struct {
	mu     sync.Mutex
	open   map[string]int
	opened int
}

func (s *streamCounter) StreamOpened(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[endpoint]++
	s.opened++
}

func (s *streamCounter) StreamClosed(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[endpoint]--
}

func TestEventStreamStopsOnDisconnect(t *testing.T) {
	cache := monitor.NewCache()
	cache.Store(monitor.Snapshot{Items: monitor.Items{NodeRunning: true, SyncHeight: 7}})

	counter := &streamCounter{open: map[string]int{}}
	handler := NewHandler(cache, HandlerConfig{
		Intervals: Intervals{Check: 10 * time.Millisecond},
		Recorder:  counter,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/check", nil).WithContext(ctx)
	handler.HandleCheck(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	events := strings.Split(strings.TrimSuffix(rr.Body.String(), "\n\n"), "\n\n")
	assert.GreaterOrEqual(t, len(events), 2)
	for _, event := range events {
		require.True(t, strings.HasPrefix(event, "data: "), event)
		var items monitor.Items
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(event, "data: ")), &items))
		assert.Equal(t, uint64(7), items.SyncHeight)
	}

	counter.mu.Lock()
	defer counter.mu.Unlock()
	assert.Equal(t, 1, counter.opened)
	assert.Equal(t, 0, counter.open["/check"])
}

func TestEventStreamOverHTTP(t *testing.T) {
	cache := monitor.NewCache()
	srv := newTestServer(t, cache, HandlerConfig{Intervals: Intervals{ChainLive: 20 * time.Millisecond}})
	server := httptest.NewServer(srv.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/chain_live")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	readEvent := func() monitor.ChainView {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		blank, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "\n", blank)

		var view monitor.ChainView
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &view))
		return view
	}

	// default snapshot before the first refresh
	assert.Equal(t, monitor.ChainView{}, readEvent())

	cache.Store(monitor.Snapshot{Chain: monitor.ChainView{Epoch: 4}})
	var latest monitor.ChainView
	for i := 0; i < 100 && latest.Epoch != 4; i++ {
		latest = readEvent()
	}
	assert.Equal(t, uint64(4), latest.Epoch)
}

func TestDrainUndrain(t *testing.T) {
	router := newTestServer(t, monitor.NewCache(), HandlerConfig{}).Router()

	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
	assert.Contains(t, get(t, router, "/drain").Body.String(), `"draining"`)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)
	assert.Contains(t, get(t, router, "/drain").Body.String(), "already draining")
	assert.Contains(t, get(t, router, "/undrain").Body.String(), `"ready"`)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
}

func TestDrainWaitsForDrainPeriod(t *testing.T) {
	drain := 100 * time.Millisecond
	router := newTestServerWithDrain(t, monitor.NewCache(), HandlerConfig{}, drain).Router()

	start := time.Now()
	rr := get(t, router, "/drain")
	assert.GreaterOrEqual(t, time.Since(start), drain)
	assert.Contains(t, rr.Body.String(), `"draining"`)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	get(t, router, "/undrain")
	start = time.Now()
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/drain", nil).WithContext(ctx))
	assert.Less(t, time.Since(start), drain)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)
}
