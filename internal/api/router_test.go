package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/stitts-dev/ff-draft-sim/internal/api/handlers"
	"github.com/stitts-dev/ff-draft-sim/internal/draft"
	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/pkg/logger"
)

type fakePools map[string][]models.ProjectedPlayer

func (f fakePools) Pool(ctx context.Context, label string) ([]models.ProjectedPlayer, error) {
	pool, ok := f[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", snapshot.ErrLabelNotFound, label)
	}
	return pool, nil
}

func (f fakePools) Labels(ctx context.Context) ([]string, error) {
	labels := make([]string, 0, len(f))
	for label := range f {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

func (f fakePools) Import(ctx context.Context, label string, pool []models.ProjectedPlayer) error {
	f[label] = pool
	return nil
}

func weeklyPool() []models.ProjectedPlayer {
	var pool []models.ProjectedPlayer
	add := func(id, name, raw string, points float64) {
		pp, _ := models.NewProjectedPlayer(models.Player{ID: id, FullName: name, Position: raw, Status: models.StatusActive}, points, 1, 100)
		pool = append(pool, pp)
	}
	for i := 1; i <= 6; i++ {
		add(fmt.Sprintf("qb-%d", i), fmt.Sprintf("Quarterback %d", i), "QB", float64(30-i))
		add(fmt.Sprintf("k-%d", i), fmt.Sprintf("Kicker %d", i), "K", float64(10-i))
		add(fmt.Sprintf("dst-%d", i), fmt.Sprintf("Linebacker %d", i), "LB", float64(9-i))
		add(fmt.Sprintf("te-%d", i), fmt.Sprintf("Tight End %d", i), "TE", float64(15-i))
	}
	for i := 1; i <= 10; i++ {
		add(fmt.Sprintf("rb-%d", i), fmt.Sprintf("Running Back %d", i), "RB", float64(25-i))
		add(fmt.Sprintf("wr-%d", i), fmt.Sprintf("Receiver %d", i), "WR", float64(24-i))
	}
	add("dj-rb", "Duke Johnson", "RB", 3)
	add("dj-wr", "Duke Johnson", "WR", 2)
	add("ghost", "Nobody Home", "WR", models.NotObserved)
	return pool
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	router  *gin.Engine
	drafts  *draft.Manager
	metrics *metrics.Recorder
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	policy := optimizer.DefaultPolicy()
	s.drafts = draft.NewManager(policy, nil, log)
	s.metrics = metrics.NewRecorder()
	pools := fakePools{"weekly": weeklyPool()}
	s.router = NewRouter(Dependencies{
		Pools:        pools,
		Snapshots:    pools,
		Policy:       policy,
		Drafts:       s.drafts,
		DefaultLabel: "weekly",
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		},
		Metrics: s.metrics,
		Logger:  log,
	})
}

func (s *RouterTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *RouterTestSuite) TestHealth() {
	w, _ := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	w, _ = s.do(http.MethodGet, "/ready", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestBuildRoster() {
	w, env := s.do(http.MethodPost, "/api/v1/rosters/build", gin.H{})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Roster []struct {
			Player models.ProjectedPlayer `json:"player"`
			Slot   string                 `json:"slot"`
		} `json:"roster"`
		Full    bool           `json:"full"`
		Deficit map[string]int `json:"deficit"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &resp))
	s.True(resp.Full)
	s.Len(resp.Roster, optimizer.DefaultRosterSize)
	s.Empty(resp.Deficit)
	s.Equal("qb-1", resp.Roster[0].Player.Player.ID)
	for _, entry := range resp.Roster {
		s.NotEqual("ghost", entry.Player.Player.ID)
	}
}

func (s *RouterTestSuite) TestBuildRosterWithLockedPlayers() {
	w, env := s.do(http.MethodPost, "/api/v1/rosters/build", gin.H{
		"locked_player_ids": []string{"k-6", "k-5", "k-4", "k-3"},
	})
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Roster   []optimizer.RosterEntry        `json:"roster"`
		Rejected map[string]optimizer.Rejection `json:"rejected"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &resp))
	s.Equal("k-6", resp.Roster[0].Player.Player.ID)
	s.Require().Contains(resp.Rejected, "k-3")
	s.Equal(optimizer.ReasonOverCapacity, resp.Rejected["k-3"].Reason)

	w, env = s.do(http.MethodPost, "/api/v1/rosters/build", gin.H{"locked_player_ids": []string{"nobody"}})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.False(env.Success)

	w, _ = s.do(http.MethodPost, "/api/v1/rosters/build", gin.H{"label": "missing"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) createDraft() string {
	w, env := s.do(http.MethodPost, "/api/v1/drafts", gin.H{"label": "weekly"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		SessionID      string `json:"session_id"`
		State          string `json:"state"`
		Recommendation []struct {
			Picked bool `json:"picked"`
		} `json:"recommendation"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &resp))
	s.Equal(string(draft.StateCollecting), resp.State)
	s.Len(resp.Recommendation, optimizer.DefaultRosterSize)
	return resp.SessionID
}

func (s *RouterTestSuite) TestDraftLifecycle() {
	id := s.createDraft()
	s.Equal(1, s.drafts.Count())

	w, _ := s.do(http.MethodGet, "/api/v1/drafts/"+id, nil)
	s.Equal(http.StatusOK, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/drafts/"+id+"/external-picks", gin.H{"name": "Quarterback 1"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var afterExternal struct {
		Available int          `json:"available"`
		History   []draft.Pick `json:"history"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &afterExternal))
	s.Equal(len(weeklyPool())-1, afterExternal.Available)
	s.Require().Len(afterExternal.History, 1)
	s.Equal(draft.PickExternal, afterExternal.History[0].Kind)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Quarterback 1"})
	s.Equal(http.StatusUnprocessableEntity, w.Code, "already drafted")

	w, env = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Running Back 2"})
	s.Require().Equal(http.StatusOK, w.Code)
	var afterUser struct {
		UserRoster []optimizer.RosterEntry `json:"user_roster"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &afterUser))
	s.Require().Len(afterUser.UserRoster, 1)
	s.Equal(optimizer.SlotFlex, afterUser.UserRoster[0].Slot)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/continue", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestDraftPickErrors() {
	id := s.createDraft()

	w, env := s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Duke Johnson"})
	s.Require().Equal(http.StatusConflict, w.Code)
	var details struct {
		Candidates []models.Player `json:"candidates"`
	}
	s.Require().NoError(json.Unmarshal(env.Error.Details, &details))
	s.Len(details.Candidates, 2)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Duke Johnson", "selection": 0})
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Duke Johnson", "selection": 7})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Joe Montana"})
	s.Equal(http.StatusNotFound, w.Code)

	for i := 1; i <= 4; i++ {
		w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": fmt.Sprintf("Quarterback %d", i)})
		s.Require().Equal(http.StatusOK, w.Code)
	}
	w, env = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Quarterback 5"})
	s.Require().Equal(http.StatusUnprocessableEntity, w.Code)
	var rejection optimizer.Rejection
	s.Require().NoError(json.Unmarshal(env.Error.Details, &rejection))
	s.Equal(optimizer.ReasonOverCapacity, rejection.Reason)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestMetrics() {
	id := s.createDraft()
	s.do(http.MethodPost, "/api/v1/drafts/"+id+"/user-picks", gin.H{"name": "Quarterback 1"})
	s.do(http.MethodPost, "/api/v1/drafts/"+id+"/external-picks", gin.H{"name": "Joe Montana"})

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Require().Equal(http.StatusOK, w.Code)

	body := w.Body.String()
	s.Contains(body, `ff_draft_sim_draft_picks_total{kind="user",result="ok"} 1`)
	s.Contains(body, `ff_draft_sim_draft_picks_total{kind="external",result="error"} 1`)
	s.Contains(body, `path="/api/v1/drafts/:id/user-picks"`)
}

func (s *RouterTestSuite) TestImportSnapshotFromCSV() {
	var table bytes.Buffer
	s.Require().NoError(snapshot.WriteCSV(&table, weeklyPool()))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/snapshots/sweep-100", &table)
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(http.MethodGet, "/api/v1/snapshots", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Labels []string `json:"labels"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &listed))
	s.Equal([]string{"sweep-100", "weekly"}, listed.Labels)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts", gin.H{"label": "sweep-100"})
	s.Equal(http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/api/v1/snapshots/broken", strings.NewReader("name,points\nx,1\n"))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/snapshots/empty", strings.NewReader(strings.Join(snapshot.Header, ",")+"\n"))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestUnknownDraft() {
	w, _ := s.do(http.MethodGet, "/api/v1/drafts/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/drafts/00000000-0000-0000-0000-000000000000", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/drafts", gin.H{"label": "missing"})
	s.Equal(http.StatusNotFound, w.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestReadyReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	router := NewRouter(Dependencies{
		Pools:  fakePools{},
		Policy: optimizer.DefaultPolicy(),
		Drafts: draft.NewManager(optimizer.DefaultPolicy(), nil, log),
		HealthChecks: map[string]handlers.HealthCheck{
			"redis": func(ctx context.Context) error { return errors.New("connection refused") },
		},
		Status: func() map[string]interface{} { return map[string]interface{}{"cron_jobs": 2} },
		Logger: log,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["redis"])
}
