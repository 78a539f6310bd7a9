package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/Kevocado/FPL-Optimizer/internal/api"
	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

type fakePool struct {
	snap *services.PoolSnapshot
	err  error
}

func (p *fakePool) Snapshot(context.Context) (*services.PoolSnapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.snap, nil
}

func (p *fakePool) Stale(*services.PoolSnapshot) bool { return false }

func (p *fakePool) Status() services.PoolStatus {
	if p.snap == nil {
		return services.PoolStatus{}
	}
	return services.PoolStatus{Ready: true, Gameweek: p.snap.Gameweek, Players: len(p.snap.Players)}
}

type fakeEntries struct {
	squads map[int]*models.EntrySquad
}

func (f *fakeEntries) FetchEntrySquad(_ context.Context, entryID int) (*models.EntrySquad, error) {
	squad, ok := f.squads[entryID]
	if !ok {
		return nil, services.ErrEntryNotFound
	}
	return squad, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return services.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

// testPlayers builds 30 available players on 10 clubs, three per club, so
// the club cap never binds and a 100.0 budget is always enough.
func testPlayers() []models.Player {
	counts := []struct {
		pos models.Position
		n   int
	}{{models.Goalkeeper, 4}, {models.Defender, 10}, {models.Midfielder, 10}, {models.Forward, 6}}

	var players []models.Player
	id := 1
	for _, c := range counts {
		for i := 0; i < c.n; i++ {
			players = append(players, models.Player{
				ID:       id,
				Name:     "Player",
				ClubID:   id%10 + 1,
				Position: c.pos,
				Price:    models.Price(40 + (id*7)%35),
				Status:   "a",
				Stats: models.PlayerStats{
					Form:            models.Float(float64(id%9) + 1),
					TotalPoints:     models.Float(float64(20 + id*3%70)),
					PointsPerGame:   models.Float(float64(id%6) + 1.5),
					ExpectedGoals:   models.Float(float64(id%5) * 0.8),
					ExpectedAssists: models.Float(float64(id%4) * 0.6),
					CleanSheets:     models.Float(float64(id % 7)),
					Ownership:       models.Float(float64(id*11%60) + 0.5),
					Minutes:         900 + id*20,
				},
				UpcomingDifficulty: []float64{float64(2 + id%4), float64(2 + (id+1)%4)},
			})
			id++
		}
	}
	return players
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Gameweek int `json:"gameweek"`
	} `json:"meta"`
}

type RouterTestSuite struct {
	suite.Suite
	pool    *fakePool
	cache   *memCache
	entries *fakeEntries
	router  *gin.Engine
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	log := logger.NewDiscardLogger()

	engine, err := optimizer.NewEngine(optimizer.DefaultEngineConfig(), log)
	s.Require().NoError(err)

	s.pool = &fakePool{snap: &services.PoolSnapshot{Players: testPlayers(), Gameweek: 5, FetchedAt: time.Now()}}
	s.cache = &memCache{data: make(map[string][]byte)}
	s.entries = &fakeEntries{squads: make(map[int]*models.EntrySquad)}
	s.router = api.NewRouter(api.Dependencies{
		Engine:       engine,
		Pool:         s.pool,
		Entries:      s.entries,
		Cache:        s.cache,
		BreakerState: func() string { return "closed" },
		Logger:       log,
	})
}

func (s *RouterTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *RouterTestSuite) optimize(body interface{}) optimizer.OptimizeResult {
	w, env := s.do(http.MethodPost, "/api/v1/optimize", body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Require().True(env.Success)

	var result optimizer.OptimizeResult
	s.Require().NoError(json.Unmarshal(env.Data, &result))
	return result
}

func (s *RouterTestSuite) TestHealthAndReady() {
	w, _ := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	w, _ = s.do(http.MethodGet, "/ready", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"fpl_api":"closed"`)

	s.pool.snap = nil
	w, _ = s.do(http.MethodGet, "/ready", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterTestSuite) TestListStrategies() {
	w, env := s.do(http.MethodGet, "/api/v1/strategies", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var strategies []struct {
		Name    string             `json:"name"`
		Weights map[string]float64 `json:"weights"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &strategies))
	s.Len(strategies, len(optimizer.Strategies))
	for _, st := range strategies {
		var sum float64
		for _, v := range st.Weights {
			sum += v
		}
		s.InDelta(1.0, sum, 1e-6, st.Name)
	}
}

func (s *RouterTestSuite) TestRankPlayers() {
	w, env := s.do(http.MethodGet, "/api/v1/players?strategy=form&limit=5", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var ranked []optimizer.ScoredPlayer
	s.Require().NoError(json.Unmarshal(env.Data, &ranked))
	s.Len(ranked, 5)
	for i := 1; i < len(ranked); i++ {
		s.GreaterOrEqual(ranked[i-1].Value, ranked[i].Value)
	}

	w, env = s.do(http.MethodGet, "/api/v1/players?limit=abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)
}

func (s *RouterTestSuite) TestOptimize() {
	result := s.optimize(map[string]interface{}{"strategy": "balanced"})

	s.Len(result.Squad.Players, 15)
	s.LessOrEqual(int(result.Squad.TotalPrice), 1000)
	s.Equal(optimizer.SolverExact, result.Squad.Mode)
	s.False(result.Squad.Approximate)
	s.Require().NotNil(result.Lineup)
	s.Len(result.Lineup.Starters, 11)
	s.Len(result.Lineup.Bench, 4)
	s.True(result.Lineup.Formation.Valid())
}

func (s *RouterTestSuite) TestOptimizeServesCachedResult() {
	body := map[string]interface{}{"strategy": "form", "mode": "greedy"}
	first := s.optimize(body)
	second := s.optimize(body)

	s.Equal(first.ID, second.ID)
	s.True(second.Squad.Approximate)
	s.Equal(first.Lineup.Formation, second.Lineup.Formation)
}

func (s *RouterTestSuite) TestOptimizeErrors() {
	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown strategy", map[string]interface{}{"strategy": "unknown"}, http.StatusBadRequest, "INVALID_STRATEGY"},
		{"tiny budget", map[string]interface{}{"strategy": "balanced", "budget": 0.01}, http.StatusUnprocessableEntity, "INFEASIBLE_SQUAD"},
		{"bad formation", map[string]interface{}{"strategy": "balanced", "formation": "6-3-1"}, http.StatusBadRequest, "INVALID_FORMATION"},
		{"unknown locked player", map[string]interface{}{"strategy": "balanced", "locked_players": []int{999}}, http.StatusBadRequest, "UNKNOWN_PLAYER"},
		{"bad mode", map[string]interface{}{"strategy": "balanced", "mode": "quantum"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad position cap", map[string]interface{}{"strategy": "balanced", "max_price": map[string]float64{"GOALIE": 5}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative budget", map[string]interface{}{"strategy": "balanced", "budget": -5}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w, env := s.do(http.MethodPost, "/api/v1/optimize", tc.body)
			s.Equal(tc.status, w.Code, w.Body.String())
			s.False(env.Success)
			s.Require().NotNil(env.Error)
			s.Equal(tc.code, env.Error.Code)
		})
	}
}

func (s *RouterTestSuite) TestOptimizeWithoutData() {
	s.pool.err = fmt.Errorf("%w: upstream down", services.ErrDataUnavailable)
	w, env := s.do(http.MethodPost, "/api/v1/optimize", map[string]interface{}{"strategy": "balanced"})
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("DATA_UNAVAILABLE", env.Error.Code)

	s.pool.err = errors.New("boom")
	w, env = s.do(http.MethodPost, "/api/v1/optimize", map[string]interface{}{"strategy": "balanced"})
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("INTERNAL_ERROR", env.Error.Code)
}

func (s *RouterTestSuite) TestCompare() {
	w, env := s.do(http.MethodPost, "/api/v1/optimize/compare", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var comparison optimizer.Comparison
	s.Require().NoError(json.Unmarshal(env.Data, &comparison))
	s.Require().Len(comparison.Outcomes, len(optimizer.Strategies))
	for i, outcome := range comparison.Outcomes {
		s.Equal(optimizer.Strategies[i], outcome.Strategy)
		s.Require().NotNil(outcome.Result)
		s.Len(outcome.Result.Squad.Players, 15)
	}
}

func (s *RouterTestSuite) TestLineup() {
	result := s.optimize(map[string]interface{}{"strategy": "balanced"})

	w, env := s.do(http.MethodPost, "/api/v1/optimize/lineup", map[string]interface{}{
		"strategy":   "balanced",
		"player_ids": result.Squad.PlayerIDs(),
		"formation":  "4-4-2",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var lineup optimizer.Lineup
	s.Require().NoError(json.Unmarshal(env.Data, &lineup))
	s.Equal("4-4-2", lineup.Formation.String())
	s.Len(lineup.Starters, 11)

	w, env = s.do(http.MethodPost, "/api/v1/optimize/lineup", map[string]interface{}{
		"strategy":   "balanced",
		"player_ids": []int{1, 2, 3},
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)
}

func (s *RouterTestSuite) TestTransfers() {
	result := s.optimize(map[string]interface{}{"strategy": "balanced"})
	ids := result.Squad.PlayerIDs()

	w, env := s.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"strategy":      "balanced",
		"current_squad": ids,
		"max_transfers": 0,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var advice optimizer.TransferAdvice
	s.Require().NoError(json.Unmarshal(env.Data, &advice))
	s.Empty(advice.Plan.Transfers)
	s.Equal("No beneficial transfers found.", advice.Plan.Recommendation)
}

func (s *RouterTestSuite) TestTransfersFromEntry() {
	result := s.optimize(map[string]interface{}{"strategy": "balanced"})
	s.entries.squads[1234] = &models.EntrySquad{EntryID: 1234, PlayerIDs: result.Squad.PlayerIDs(), Bank: 5}

	w, env := s.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"strategy": "balanced",
		"entry_id": "https://fantasy.premierleague.com/entry/1234/event/5",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(string(env.Data), `"entry_id":1234`)

	w, env = s.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"strategy": "balanced",
		"entry_id": "99",
	})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", env.Error.Code)

	w, env = s.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{"strategy": "balanced"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)
}

func (s *RouterTestSuite) TestTransfersInvalidSquadWithoutTransfers() {
	w, env := s.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"strategy":      "balanced",
		"current_squad": []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		"max_transfers": 0,
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code, w.Body.String())
	s.Equal("NO_FEASIBLE_TRANSFER", env.Error.Code)
}
