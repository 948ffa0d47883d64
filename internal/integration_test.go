package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-history-backend/config"
	"slot-history-backend/internal/api"
	"slot-history-backend/internal/db"
	"slot-history-backend/internal/history"
	"slot-history-backend/internal/ingest"
	"slot-history-backend/internal/metrics"
	"slot-history-backend/internal/mw"
	"slot-history-backend/internal/store"
)

const header = "Center ID;Test Type;Center Age Group;Appointment Timestamp;Grab Timestamp\n"

// TestSlotLifecycle ingests two rounds of snapshot files and verifies that a
// slot disappearing from the later grab is served as booked once the ingest
// service has recomputed and flushed the response cache.
func TestSlotLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	// 1. Configuration as it would be loaded from YAML.
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
input:
  paths: ["`+filepath.Join(dir, "*.csv")+`"]
database:
  driver: sqlite
  dsn: "file:lifecycle?mode=memory&cache=shared"
  log_level: silent
pipeline:
  workers: 2
server:
  rate_limit_per_sec: 100
  rate_limit_burst: 100
`), 0o600))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	// 2. Database, store and services wired like the serve command.
	gormDB, err := db.Init(&cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	loc := cfg.Timezone.Zones.Local
	s := store.NewGormStore(gormDB, loc)
	m := metrics.New()
	rc := mw.NewResponseCache(time.Hour)
	svc := ingest.NewService(cfg, s, m, zerolog.Nop())
	svc.OnRecompute(rc.Flush)
	router := api.NewRouter(cfg.Server, api.NewHandler(s, zerolog.Nop(), loc), m, rc, zerolog.Nop())

	get := func(path string, q url.Values) *httptest.ResponseRecorder {
		if q != nil {
			path += "?" + q.Encode()
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w
	}
	finalStatuses := func() []history.FinalStatusRecord {
		w := get("/api/centers/10136/final-status", url.Values{"test": {"Blood Test"}})
		require.Equal(t, http.StatusOK, w.Code)
		var out []history.FinalStatusRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	// --- Round 1: both slots advertised at 09:00 and 10:00 BST ---
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(header+
		"10136;Blood Test;adult;2018-06-04 12:00;2018-06-04 08:00\n"+
		"10136;Blood Test;adult;2018-06-04 13:00;2018-06-04 08:00\n"+
		"10136;Blood Test;adult;2018-06-04 12:00;2018-06-04 09:00\n"+
		"10136;Blood Test;adult;2018-06-04 13:00;2018-06-04 09:00\n"), 0o600))

	run, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, run.GridEntries)
	assert.Zero(t, run.ActivityEvents)

	final := finalStatuses()
	require.Len(t, final, 2)
	for _, f := range final {
		assert.Equal(t, history.StatusAvailable, f.FinalStatus)
	}
	w := get("/api/centers/10136/final-status", url.Values{"test": {"Blood Test"}})
	assert.Equal(t, "HIT", w.Header().Get(mw.CacheHeader))

	// --- Round 2: 12:00 is gone from the 11:00 BST grab ---
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte(header+
		"10136;Blood Test;adult;2018-06-04 13:00;2018-06-04 10:00\n"), 0o600))

	run, err = svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, run.GridEntries)
	assert.Equal(t, 1, run.ActivityEvents)

	final = finalStatuses()
	require.Len(t, final, 2)
	assert.Equal(t, history.StatusBooked, final[0].FinalStatus)
	assert.True(t, final[0].Appointment.Equal(time.Date(2018, 6, 4, 12, 0, 0, 0, loc)))
	assert.Equal(t, history.StatusAvailable, final[1].FinalStatus)

	w = get("/api/centers/10136/activity", url.Values{"test": {"Blood Test"}})
	require.Equal(t, http.StatusOK, w.Code)
	var events []history.ActivityEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, history.ActionBook, events[0].Action)
	assert.True(t, events[0].Grab.Equal(time.Date(2018, 6, 4, 11, 0, 0, 0, loc)))
	assert.True(t, events[0].PreviousGrab.Equal(time.Date(2018, 6, 4, 10, 0, 0, 0, loc)))

	w = get("/api/centers/10136/occupancy", url.Values{"test": {"Blood Test"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"granularity":"overall","bucket":null,"booked":1,"available":1,"rate":50}]`, w.Body.String())

	w = get("/api/runs/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), run.ID.String())
}
