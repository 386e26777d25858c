package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	usecasemock "github.com/riskibarqy/player-valuation/internal/mocks/usecase"
	"github.com/riskibarqy/player-valuation/internal/platform/id"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"github.com/riskibarqy/player-valuation/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	APIVersion string           `json:"apiVersion"`
	Data       T                `json:"data"`
	Error      *googleErrorBody `json:"error"`
}

type testServer struct {
	router    http.Handler
	batches   *usecase.BatchService
	source    *usecasemock.PlayerSource
	predictor *usecasemock.Predictor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logging.NewNop()
	source := usecasemock.NewPlayerSource(t)
	predictor := usecasemock.NewPredictor(t)

	batches := usecase.NewBatchService(source, &id.SequenceGenerator{Prefix: "batch"}, logger)
	views := usecase.NewViewService(batches, 0, 100)
	predictions := usecase.NewPredictionService(predictor, usecase.PredictionConfig{
		CacheTTL:        time.Minute,
		CacheMaxEntries: 10,
		Workers:         2,
		MaxBatchSize:    5,
	}, logger)

	handler := NewHandler(batches, views, predictions, logger)
	return &testServer{
		router:    NewRouter(handler, logger, []string{"*"}),
		batches:   batches,
		source:    source,
		predictor: predictor,
	}
}

func (s *testServer) load(t *testing.T) {
	t.Helper()

	s.source.
		On("FetchPlayers", mock.Anything).
		Return(valuation.SourcePayload{Count: 3, Items: []any{
			map[string]any{"PLAYER": "Anthony Davis", "TEAM": "LAL", "Salary": 10_000_000.0, "Predicted_Salary": 12_000_000.0, "PTS": 24.0, "TRB": 12.0},
			map[string]any{"PLAYER": "Brown", "TEAM": "BOS", "Salary": 5_000_000.0, "Predicted_Salary": 4_000_000.0},
			map[string]any{"PLAYER": "Caruso", "TEAM": "LAL", "Salary": 8_000_000.0, "Predicted_Salary": 8_500_000.0},
		}}, nil).
		Once()

	_, err := s.batches.Refresh(context.Background())
	require.NoError(t, err)
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()

	var out envelope[T]
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, googleAPIVersion, out.APIVersion)
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body.Data["status"])
}

func TestListPlayers_NotReadyBeforeFirstRefresh(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/v1/players", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody[any](t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAVAILABLE", body.Error.Status)
	assert.Equal(t, "notReady", body.Error.Errors[0].Reason)
}

func TestListPlayers_FilterSortAndSummary(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/players?team=LAL&sort=marketValue&order=desc&page_size=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[playerListDTO](t, rec)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Anthony Davis", body.Data.Items[0].Name)
	assert.Equal(t, "undervalued", body.Data.Items[0].ValuationStatus)
	assert.InDelta(t, 20.0, body.Data.Items[0].ValueGapPercent, 1e-9)
	assert.Equal(t, []string{"Scorer", "Rebounder"}, body.Data.Items[0].Skills)

	assert.Equal(t, 1, body.Data.Page.Number)
	assert.Equal(t, 2, body.Data.Page.TotalPages)
	assert.Equal(t, 2, body.Data.Page.TotalItems)
	assert.Equal(t, []int{1, 2}, body.Data.Page.Window)

	assert.Equal(t, 2, body.Data.Summary.Total)
	assert.Equal(t, 1, body.Data.Summary.UndervaluedCount)
	assert.Equal(t, 1, body.Data.Summary.FairCount)
	assert.Equal(t, 50, body.Data.Summary.UndervaluedPct)

	assert.Equal(t, "LAL", body.Data.Query.Team)
	assert.Equal(t, "all", body.Data.Query.Valuation)
	assert.Equal(t, "batch-1", body.Data.Batch.ID)
	assert.Equal(t, 3, body.Data.Batch.Count)
	assert.Equal(t, "success", body.Data.Refresh.Status)
}

func TestListPlayers_AllMeansUnfiltered(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/players?team=all&position=all&valuation=all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[playerListDTO](t, rec)
	assert.Equal(t, 3, body.Data.Page.TotalItems)
	names := make([]string, 0, len(body.Data.Items))
	for _, item := range body.Data.Items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Anthony Davis", "Brown", "Caruso"}, names)
}

func TestListPlayers_EmptyFilterResult(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/players?team=GSW", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[playerListDTO](t, rec)
	assert.Empty(t, body.Data.Items)
	assert.Equal(t, 0, body.Data.Page.TotalPages)
	assert.Equal(t, 0, body.Data.Summary.Total)
	assert.Zero(t, body.Data.Summary.TotalValueGapPct)
}

func TestListPlayers_InvalidQuery(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown valuation", query: "valuation=cheap"},
		{name: "unknown sort key", query: "sort=height"},
		{name: "unknown order", query: "order=sideways"},
		{name: "page not a number", query: "page=two"},
		{name: "negative page", query: "page=-1"},
		{name: "page size too large", query: "page_size=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodGet, "/v1/players?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody[any](t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, "INVALID_ARGUMENT", body.Error.Status)
		})
	}
}

func TestGetPlayer(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/players/player-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[playerDTO](t, rec)
	assert.Equal(t, "Brown", body.Data.Name)
	assert.Equal(t, "overvalued", body.Data.ValuationStatus)
	assert.Equal(t, valuation.UnknownPosition, body.Data.Position)
	assert.InDelta(t, -1_000_000.0, body.Data.ValueGap, 1e-6)

	rec = srv.do(http.MethodGet, "/v1/players/player-99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummary(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/summary?search=%20davis%20", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[summaryResponseDTO](t, rec)
	assert.Equal(t, 1, body.Data.Summary.Total)
	assert.InDelta(t, 10_000_000.0, body.Data.Summary.TotalMarketValue, 1e-6)
	assert.InDelta(t, 20.0, body.Data.Summary.TotalValueGapPct, 1e-9)
	assert.Equal(t, "batch-1", body.Data.Batch.ID)
}

func TestGetFilters(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)

	rec := srv.do(http.MethodGet, "/v1/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[filterOptionsDTO](t, rec)
	assert.Equal(t, []string{"LAL", "BOS"}, body.Data.Teams)
	assert.Equal(t, []string{valuation.UnknownPosition}, body.Data.Positions)
	assert.Equal(t, []string{"undervalued", "overvalued", "fair"}, body.Data.Statuses)
	assert.Contains(t, body.Data.SortKeys, "valueGapPercent")
}

func TestRunRefresh_FailureKeepsPreviousBatch(t *testing.T) {
	srv := newTestServer(t)
	srv.load(t)
	srv.source.
		On("FetchPlayers", mock.Anything).
		Return(valuation.SourcePayload{}, errors.New("connection reset")).
		Once()

	rec := srv.do(http.MethodPost, "/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	failed := decodeBody[any](t, rec)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "Failed to load player data. Please try again.", failed.Error.Message)
	assert.Contains(t, failed.Error.Errors[0].Message, "connection reset")

	rec = srv.do(http.MethodGet, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[refreshStateDTO](t, rec)
	assert.Equal(t, "failure", state.Data.Status)
	assert.True(t, state.Data.Retryable)
	assert.Equal(t, "batch-1", state.Data.BatchID)

	rec = srv.do(http.MethodGet, "/v1/players", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunRefresh_Success(t *testing.T) {
	srv := newTestServer(t)
	srv.source.
		On("FetchPlayers", mock.Anything).
		Return(valuation.SourcePayload{Count: 1, Items: []any{
			map[string]any{"PLAYER": "Solo", "TEAM": "DEN", "Salary": 1.0, "Predicted_Salary": 1.0},
		}}, nil).
		Once()

	rec := srv.do(http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[refreshStateDTO](t, rec)
	assert.Equal(t, "success", body.Data.Status)
	assert.Equal(t, uint64(1), body.Data.LastSettled)
	assert.False(t, body.Data.Retryable)
}

func TestPredict(t *testing.T) {
	srv := newTestServer(t)
	srv.predictor.
		On("Predict", mock.Anything, valuation.Features{
			Age: 27, GamesPlayed: 70, ReboundsPerGame: 5, AssistsPerGame: 6,
			PointsPerGame: 22, BlocksPerGame: 0.5, TrueShootingPct: 0.6,
		}).
		Return(31_500_000.0, nil).
		Once()

	payload := `{"age":27,"gamesPlayed":70,"reboundsPerGame":5,"assistsPerGame":6,"pointsPerGame":22,"blocksPerGame":0.5,"trueShootingPct":0.6}`

	rec := srv.do(http.MethodPost, "/v1/predictions", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody[predictionDTO](t, rec)
	assert.InDelta(t, 31_500_000.0, first.Data.PredictedSalary, 1e-6)
	assert.False(t, first.Data.Cached)

	rec = srv.do(http.MethodPost, "/v1/predictions", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody[predictionDTO](t, rec)
	assert.True(t, second.Data.Cached)
}

func TestPredict_InvalidPayload(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty body", payload: ""},
		{name: "malformed json", payload: `{"age":`},
		{name: "missing field", payload: `{"age":27,"gamesPlayed":70}`},
		{name: "negative value", payload: `{"age":27,"gamesPlayed":70,"reboundsPerGame":-1,"assistsPerGame":6,"pointsPerGame":22,"blocksPerGame":0.5,"trueShootingPct":0.6}`},
		{name: "unknown field", payload: `{"height":200}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/v1/predictions", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPredictBatch_ReportsPerItemErrors(t *testing.T) {
	srv := newTestServer(t)
	srv.predictor.
		On("Predict", mock.Anything, mock.MatchedBy(func(f valuation.Features) bool { return f.Age == 25 })).
		Return(10_000_000.0, nil).
		Once()
	srv.predictor.
		On("Predict", mock.Anything, mock.MatchedBy(func(f valuation.Features) bool { return f.Age == 30 })).
		Return(0.0, errors.New("model returned 500")).
		Once()

	payload := `{"items":[
		{"age":25,"gamesPlayed":60,"reboundsPerGame":4,"assistsPerGame":3,"pointsPerGame":12,"blocksPerGame":0.2,"trueShootingPct":0.55},
		{"age":30,"gamesPlayed":60,"reboundsPerGame":4,"assistsPerGame":3,"pointsPerGame":12,"blocksPerGame":0.2,"trueShootingPct":0.55}
	]}`

	rec := srv.do(http.MethodPost, "/v1/predictions/batch", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[batchPredictionDTO](t, rec)
	require.Len(t, body.Data.Items, 2)
	assert.Equal(t, 1, body.Data.Succeeded)
	assert.Equal(t, 1, body.Data.Failed)

	require.NotNil(t, body.Data.Items[0].PredictedSalary)
	assert.InDelta(t, 10_000_000.0, *body.Data.Items[0].PredictedSalary, 1e-6)
	assert.Nil(t, body.Data.Items[1].PredictedSalary)
	assert.Contains(t, body.Data.Items[1].Error, "model returned 500")
}

func TestPredictBatch_TooManyItems(t *testing.T) {
	srv := newTestServer(t)

	item := `{"age":25,"gamesPlayed":60,"reboundsPerGame":4,"assistsPerGame":3,"pointsPerGame":12,"blocksPerGame":0.2,"trueShootingPct":0.55}`
	items := make([]string, 6)
	for i := range items {
		items[i] = item
	}

	rec := srv.do(http.MethodPost, "/v1/predictions/batch", `{"items":[`+strings.Join(items, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoverPanic_WritesInternalError(t *testing.T) {
	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/players", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[any](t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL", body.Error.Status)
}
