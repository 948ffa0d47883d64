package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slot-history-backend/config"
	"slot-history-backend/internal/history"
	"slot-history-backend/internal/metrics"
	"slot-history-backend/internal/model"
	"slot-history-backend/internal/mw"
	"slot-history-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	cache  *mw.ResponseCache
	loc    *time.Location
}

func at(t *testing.T, loc *time.Location, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	require.NoError(t, err)
	return ts
}

// newTestServer serves a store holding one computed run: grabs at 09:00,
// 10:00 and 11:00, slot 12:00 seen only at 10:00 and slot 13:00 at 09:00
// and 11:00.
func newTestServer(t *testing.T, compute bool) *testServer {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.SnapshotRecord{}, &model.TimeGridEntry{}, &model.FinalStatus{},
		&model.ActivityEvent{}, &model.OccupancyRate{}, &model.FirstPosting{},
		&model.FirstAppearance{}, &model.Center{}, &model.ComputationRun{},
	))
	s := store.NewGormStore(db, loc)

	if compute {
		snap := func(appt, grab string) history.Snapshot {
			return history.Snapshot{
				CenterID: 10136, TestType: "Blood Test", AgeGroup: history.AgeGroupAdult,
				Appointment: at(t, loc, appt), Grab: at(t, loc, grab),
			}
		}
		snapshots, err := history.NewSnapshotStore(loc, []history.Snapshot{
			snap("2018-06-04 12:00", "2018-06-04 10:00"),
			snap("2018-06-04 13:00", "2018-06-04 09:00"),
			snap("2018-06-04 13:00", "2018-06-04 11:00"),
		})
		require.NoError(t, err)
		res, err := history.Run(context.Background(), snapshots, history.Options{})
		require.NoError(t, err)
		run := &model.ComputationRun{
			ID:           uuid.New(),
			StartedAt:    time.Now().UTC(),
			FinishedAt:   time.Now().UTC(),
			ArtifactRule: string(history.ArtifactRuleCancelOnly),
			GridEntries:  len(res.TimeGrid),
			MaxGrab:      res.MaxGrab.UTC(),
		}
		require.NoError(t, s.ReplaceResults(context.Background(), run, res))
	}

	rc := mw.NewResponseCache(time.Minute)
	h := NewHandler(s, zerolog.Nop(), loc)
	cfg := config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100}
	return &testServer{
		router: NewRouter(cfg, h, metrics.New(), rc, zerolog.Nop()),
		cache:  rc,
		loc:    loc,
	}
}

func (s *testServer) get(path string, query url.Values) *httptest.ResponseRecorder {
	if query != nil {
		path += "?" + query.Encode()
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.router.ServeHTTP(w, req)
	return w
}

func TestGetCenters(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/centers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"center_id":10136,"age_group":"adult","test_types":["Blood Test"]}]`, w.Body.String())
}

func TestGetCenters_Empty(t *testing.T) {
	srv := newTestServer(t, false)

	w := srv.get("/api/centers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetFinalStatus(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/centers/10136/final-status", url.Values{"test": {"Blood  Test"}})
	require.Equal(t, http.StatusOK, w.Code)

	var final []history.FinalStatusRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &final))
	require.Len(t, final, 2)
	assert.Equal(t, history.StatusBooked, final[0].FinalStatus)
	assert.Equal(t, history.StatusAvailable, final[1].FinalStatus)
}

func TestGetFinalStatus_BadRequest(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/centers/abc/final-status", url.Values{"test": {"Blood Test"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid center ID"}`, w.Body.String())

	w = srv.get("/api/centers/10136/final-status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing 'test' parameter"}`, w.Body.String())
}

func TestGetActivity(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/centers/10136/activity", url.Values{"test": {"Blood Test"}})
	require.Equal(t, http.StatusOK, w.Code)
	var events []history.ActivityEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 4)

	from := at(t, srv.loc, "2018-06-04 10:30").Format(time.RFC3339)
	w = srv.get("/api/centers/10136/activity", url.Values{"test": {"Blood Test"}, "from": {from}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)

	w = srv.get("/api/centers/10136/activity", url.Values{"test": {"Blood Test"}, "from": {"yesterday"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.get("/api/centers/10136/activity", url.Values{"test": {"Blood Test"}, "from": {from}, "to": {from}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOccupancy(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/centers/10136/occupancy", url.Values{"test": {"Blood Test"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"granularity":"overall","bucket":null,"booked":1,"available":1,"rate":50}]`, w.Body.String())

	q := url.Values{
		"test":        {"Blood Test"},
		"granularity": {"hour"},
		"from":        {at(t, srv.loc, "2018-06-04 11:00").Format(time.RFC3339)},
		"to":          {at(t, srv.loc, "2018-06-04 15:00").Format(time.RFC3339)},
	}
	w = srv.get("/api/centers/10136/occupancy", q)
	require.Equal(t, http.StatusOK, w.Code)

	var rates []struct {
		Bucket *time.Time `json:"bucket"`
		Rate   *int       `json:"rate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rates))
	require.Len(t, rates, 4)
	assert.Nil(t, rates[0].Rate, "no appointment at 11:00")
	require.NotNil(t, rates[1].Rate)
	assert.Equal(t, 100, *rates[1].Rate)
	require.NotNil(t, rates[2].Rate)
	assert.Equal(t, 0, *rates[2].Rate)
	assert.Nil(t, rates[3].Rate)
	require.NotNil(t, rates[1].Bucket)
	assert.True(t, rates[1].Bucket.Equal(at(t, srv.loc, "2018-06-04 12:00")))

	q.Set("granularity", "week")
	w = srv.get("/api/centers/10136/occupancy", q)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOccupancy_RangeStartsInsideBucket(t *testing.T) {
	srv := newTestServer(t, true)

	q := url.Values{
		"test":        {"Blood Test"},
		"granularity": {"day"},
		"from":        {at(t, srv.loc, "2018-06-04 08:00").Format(time.RFC3339)},
		"to":          {at(t, srv.loc, "2018-06-06 00:00").Format(time.RFC3339)},
	}
	w := srv.get("/api/centers/10136/occupancy", q)
	require.Equal(t, http.StatusOK, w.Code)

	var rates []struct {
		Bucket    *time.Time `json:"bucket"`
		Booked    int        `json:"booked"`
		Available int        `json:"available"`
		Rate      *int       `json:"rate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rates))
	require.Len(t, rates, 2)

	require.NotNil(t, rates[0].Bucket)
	assert.True(t, rates[0].Bucket.Equal(at(t, srv.loc, "2018-06-04 00:00")))
	assert.Equal(t, 1, rates[0].Booked)
	assert.Equal(t, 1, rates[0].Available)
	require.NotNil(t, rates[0].Rate)
	assert.Equal(t, 50, *rates[0].Rate)

	assert.Nil(t, rates[1].Rate, "no appointments on the 5th")
}

func TestGetSlot(t *testing.T) {
	srv := newTestServer(t, true)

	appt := at(t, srv.loc, "2018-06-04 13:00").Format(time.RFC3339)
	w := srv.get("/api/centers/10136/slots", url.Values{"test": {"Blood Test"}, "appointment": {appt}})
	require.Equal(t, http.StatusOK, w.Code)

	var slot store.SlotHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
	assert.Len(t, slot.Grid, 3)
	require.NotNil(t, slot.FirstAppearance)
	assert.True(t, slot.FirstAppearance.Equal(at(t, srv.loc, "2018-06-04 09:00")))

	missing := at(t, srv.loc, "2018-06-04 14:00").Format(time.RFC3339)
	w = srv.get("/api/centers/10136/slots", url.Values{"test": {"Blood Test"}, "appointment": {missing}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.get("/api/centers/10136/slots", url.Values{"test": {"Blood Test"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLatestRun(t *testing.T) {
	w := newTestServer(t, false).get("/api/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = newTestServer(t, true).get("/api/runs/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run model.ComputationRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 6, run.GridEntries)
	assert.Equal(t, "cancel_only", run.ArtifactRule)
}

func TestGetWorkbook(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.get("/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "time_grid")
}

func TestResponsesAreCachedUntilFlushed(t *testing.T) {
	srv := newTestServer(t, true)

	assert.Equal(t, "MISS", srv.get("/api/centers", nil).Header().Get(mw.CacheHeader))
	assert.Equal(t, "HIT", srv.get("/api/centers", nil).Header().Get(mw.CacheHeader))
	srv.cache.Flush()
	assert.Equal(t, "MISS", srv.get("/api/centers", nil).Header().Get(mw.CacheHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	w := srv.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slothist_")
	assert.Empty(t, w.Header().Get(mw.CacheHeader))
}
