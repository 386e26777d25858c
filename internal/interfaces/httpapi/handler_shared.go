package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"github.com/riskibarqy/player-valuation/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	batchService      *usecase.BatchService
	viewService       *usecase.ViewService
	predictionService *usecase.PredictionService
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	batchService *usecase.BatchService,
	viewService *usecase.ViewService,
	predictionService *usecase.PredictionService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		batchService:      batchService,
		viewService:       viewService,
		predictionService: predictionService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type criteriaQuery struct {
	Search    string `validate:"max=100"`
	Team      string `validate:"max=100"`
	Position  string `validate:"max=50"`
	Valuation string `validate:"max=50"`
}

type listPlayersQuery struct {
	criteriaQuery
	Sort     string `validate:"max=50"`
	Order    string `validate:"max=20"`
	Page     int    `validate:"gte=0"`
	PageSize int    `validate:"gte=0"`
}

func readCriteriaQuery(values url.Values) criteriaQuery {
	return criteriaQuery{
		Search:    strings.TrimSpace(values.Get("search")),
		Team:      strings.TrimSpace(values.Get("team")),
		Position:  strings.TrimSpace(values.Get("position")),
		Valuation: strings.TrimSpace(values.Get("valuation")),
	}
}

func readListPlayersQuery(values url.Values) (listPlayersQuery, error) {
	query := listPlayersQuery{
		criteriaQuery: readCriteriaQuery(values),
		Sort:          strings.TrimSpace(values.Get("sort")),
		Order:         strings.TrimSpace(values.Get("order")),
	}

	var err error
	if query.Page, err = queryInt(values, "page"); err != nil {
		return listPlayersQuery{}, err
	}
	if query.PageSize, err = queryInt(values, "page_size"); err != nil {
		return listPlayersQuery{}, err
	}
	return query, nil
}

func queryInt(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return v, nil
}

// "all" and the empty string both mean no constraint.
func optionalFilter(raw string) valuation.Optional[string] {
	if raw == "" || strings.EqualFold(raw, "all") {
		return valuation.None[string]()
	}
	return valuation.Some(raw)
}

func (q criteriaQuery) toCriteria() (valuation.Criteria, error) {
	criteria := valuation.Criteria{
		Search:   q.Search,
		Team:     optionalFilter(q.Team),
		Position: optionalFilter(q.Position),
	}

	if raw, ok := optionalFilter(q.Valuation).Get(); ok {
		status, ok := valuation.ParseStatus(raw)
		if !ok {
			return valuation.Criteria{}, fmt.Errorf("%w: unknown valuation %q", usecase.ErrInvalidInput, raw)
		}
		criteria.Status = valuation.Some(status)
	}
	return criteria, nil
}

func (q listPlayersQuery) toViewState() (valuation.ViewState, error) {
	criteria, err := q.criteriaQuery.toCriteria()
	if err != nil {
		return valuation.ViewState{}, err
	}

	key, err := valuation.ParseSortKey(q.Sort)
	if err != nil {
		return valuation.ViewState{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	dir, err := valuation.ParseDirection(q.Order)
	if err != nil {
		return valuation.ViewState{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}

	return valuation.ViewState{
		Criteria:  criteria,
		SortKey:   key,
		Direction: dir,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}, nil
}

type predictionRequest struct {
	Age             *float64 `json:"age" validate:"required,gte=0,lte=60"`
	GamesPlayed     *float64 `json:"gamesPlayed" validate:"required,gte=0,lte=100"`
	ReboundsPerGame *float64 `json:"reboundsPerGame" validate:"required,gte=0"`
	AssistsPerGame  *float64 `json:"assistsPerGame" validate:"required,gte=0"`
	PointsPerGame   *float64 `json:"pointsPerGame" validate:"required,gte=0"`
	BlocksPerGame   *float64 `json:"blocksPerGame" validate:"required,gte=0"`
	TrueShootingPct *float64 `json:"trueShootingPct" validate:"required,gte=0"`
}

type batchPredictionRequest struct {
	Items []predictionRequest `json:"items" validate:"required,min=1,dive"`
}

func (r predictionRequest) toFeatures() valuation.Features {
	return valuation.Features{
		Age:             *r.Age,
		GamesPlayed:     *r.GamesPlayed,
		ReboundsPerGame: *r.ReboundsPerGame,
		AssistsPerGame:  *r.AssistsPerGame,
		PointsPerGame:   *r.PointsPerGame,
		BlocksPerGame:   *r.BlocksPerGame,
		TrueShootingPct: *r.TrueShootingPct,
	}
}

type playerDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Team            string   `json:"team"`
	Position        string   `json:"position"`
	Age             int      `json:"age"`
	PointsPerGame   float64  `json:"pointsPerGame"`
	ReboundsPerGame float64  `json:"reboundsPerGame"`
	AssistsPerGame  float64  `json:"assistsPerGame"`
	BlocksPerGame   float64  `json:"blocksPerGame"`
	GamesPlayed     int      `json:"gamesPlayed"`
	TrueShootingPct float64  `json:"trueShootingPct"`
	MarketValue     float64  `json:"marketValue"`
	PredictedValue  float64  `json:"predictedValue"`
	ValuationStatus string   `json:"valuationStatus"`
	ValueGap        float64  `json:"valueGap"`
	ValueGapPercent float64  `json:"valueGapPercent"`
	Skills          []string `json:"skills"`
}

type summaryDTO struct {
	Total               int     `json:"total"`
	UndervaluedCount    int     `json:"undervaluedCount"`
	OvervaluedCount     int     `json:"overvaluedCount"`
	FairCount           int     `json:"fairCount"`
	UndervaluedPct      int     `json:"undervaluedPct"`
	OvervaluedPct       int     `json:"overvaluedPct"`
	TotalMarketValue    float64 `json:"totalMarketValue"`
	TotalPredictedValue float64 `json:"totalPredictedValue"`
	TotalValueGap       float64 `json:"totalValueGap"`
	TotalValueGapPct    float64 `json:"totalValueGapPct"`
}

type pageDTO struct {
	Number     int   `json:"number"`
	Size       int   `json:"size"`
	TotalPages int   `json:"total_pages"`
	TotalItems int   `json:"total_items"`
	Window     []int `json:"window"`
}

type batchDTO struct {
	ID          string    `json:"id"`
	FetchedAt   time.Time `json:"fetched_at"`
	Count       int       `json:"count"`
	SourceCount int       `json:"source_count"`
	Dropped     int       `json:"dropped"`
}

type refreshStateDTO struct {
	Status      string    `json:"status"`
	LastIssued  uint64    `json:"last_issued"`
	LastSettled uint64    `json:"last_settled"`
	BatchID     string    `json:"batch_id,omitempty"`
	Dropped     int       `json:"dropped"`
	Message     string    `json:"message,omitempty"`
	Retryable   bool      `json:"retryable"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type viewStateDTO struct {
	Search    string `json:"search"`
	Team      string `json:"team"`
	Position  string `json:"position"`
	Valuation string `json:"valuation"`
	Sort      string `json:"sort"`
	Order     string `json:"order"`
}

type playerListDTO struct {
	Items   []playerDTO     `json:"items"`
	Page    pageDTO         `json:"page"`
	Summary summaryDTO      `json:"summary"`
	Query   viewStateDTO    `json:"query"`
	Batch   batchDTO        `json:"batch"`
	Refresh refreshStateDTO `json:"refresh"`
}

type summaryResponseDTO struct {
	Summary summaryDTO `json:"summary"`
	Batch   batchDTO   `json:"batch"`
}

type filterOptionsDTO struct {
	Teams     []string `json:"teams"`
	Positions []string `json:"positions"`
	Statuses  []string `json:"statuses"`
	SortKeys  []string `json:"sort_keys"`
}

type predictionDTO struct {
	PredictedSalary float64 `json:"predictedSalary"`
	Cached          bool    `json:"cached"`
}

type batchPredictionItemDTO struct {
	Index           int      `json:"index"`
	PredictedSalary *float64 `json:"predictedSalary,omitempty"`
	Cached          bool     `json:"cached"`
	Error           string   `json:"error,omitempty"`
}

type batchPredictionDTO struct {
	Items     []batchPredictionItemDTO `json:"items"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
}

func playerToDTO(v valuation.PlayerRecord) playerDTO {
	skills := v.Skills
	if skills == nil {
		skills = []string{}
	}
	return playerDTO{
		ID:              v.ID,
		Name:            v.Name,
		Team:            v.Team,
		Position:        v.Position,
		Age:             v.Age,
		PointsPerGame:   v.PointsPerGame,
		ReboundsPerGame: v.ReboundsPerGame,
		AssistsPerGame:  v.AssistsPerGame,
		BlocksPerGame:   v.BlocksPerGame,
		GamesPlayed:     v.GamesPlayed,
		TrueShootingPct: v.TrueShootingPct,
		MarketValue:     v.MarketValue,
		PredictedValue:  v.PredictedValue,
		ValuationStatus: string(v.ValuationStatus),
		ValueGap:        v.ValueGap(),
		ValueGapPercent: v.ValueGapPercent(),
		Skills:          skills,
	}
}

func summaryToDTO(v valuation.Summary) summaryDTO {
	return summaryDTO{
		Total:               v.Total,
		UndervaluedCount:    v.UndervaluedCount,
		OvervaluedCount:     v.OvervaluedCount,
		FairCount:           v.FairCount,
		UndervaluedPct:      v.UndervaluedPct,
		OvervaluedPct:       v.OvervaluedPct,
		TotalMarketValue:    v.TotalMarketValue,
		TotalPredictedValue: v.TotalPredictedValue,
		TotalValueGap:       v.TotalValueGap,
		TotalValueGapPct:    v.TotalValueGapPct,
	}
}

func batchToDTO(v usecase.BatchInfo) batchDTO {
	return batchDTO{
		ID:          v.ID,
		FetchedAt:   v.FetchedAt,
		Count:       v.Records,
		SourceCount: v.SourceCount,
		Dropped:     v.Dropped,
	}
}

func refreshStateToDTO(v usecase.RefreshState) refreshStateDTO {
	return refreshStateDTO{
		Status:      string(v.Status),
		LastIssued:  v.LastIssued,
		LastSettled: v.LastSettled,
		BatchID:     v.BatchID,
		Dropped:     v.Dropped,
		Message:     v.Message,
		Retryable:   v.Retryable,
		UpdatedAt:   v.UpdatedAt,
	}
}

func viewStateToDTO(v valuation.ViewState) viewStateDTO {
	out := viewStateDTO{
		Search:    v.Criteria.Search,
		Team:      "all",
		Position:  "all",
		Valuation: "all",
		Sort:      string(v.SortKey),
		Order:     string(v.Direction),
	}
	if team, ok := v.Criteria.Team.Get(); ok {
		out.Team = team
	}
	if position, ok := v.Criteria.Position.Get(); ok {
		out.Position = position
	}
	if status, ok := v.Criteria.Status.Get(); ok {
		out.Valuation = string(status)
	}
	return out
}

func listingToDTO(v usecase.PlayerListing) playerListDTO {
	items := make([]playerDTO, 0, len(v.View.Page.Items))
	for _, record := range v.View.Page.Items {
		items = append(items, playerToDTO(record))
	}
	window := v.View.Window
	if window == nil {
		window = []int{}
	}

	return playerListDTO{
		Items: items,
		Page: pageDTO{
			Number:     v.View.Page.PageNumber,
			Size:       v.View.Page.PageSize,
			TotalPages: v.View.Page.TotalPages,
			TotalItems: v.View.Page.TotalItems,
			Window:     window,
		},
		Summary: summaryToDTO(v.View.Summary),
		Query:   viewStateToDTO(v.State),
		Batch:   batchToDTO(v.Batch),
		Refresh: refreshStateToDTO(v.Refresh),
	}
}

func filterOptionsToDTO(v usecase.FilterOptions) filterOptionsDTO {
	out := filterOptionsDTO{
		Teams:     v.Teams,
		Positions: v.Positions,
		Statuses:  make([]string, 0, len(v.Statuses)),
		SortKeys:  make([]string, 0, len(v.SortKeys)),
	}
	if out.Teams == nil {
		out.Teams = []string{}
	}
	if out.Positions == nil {
		out.Positions = []string{}
	}
	for _, status := range v.Statuses {
		out.Statuses = append(out.Statuses, string(status))
	}
	for _, key := range v.SortKeys {
		out.SortKeys = append(out.SortKeys, string(key))
	}
	return out
}

func batchPredictionToDTO(items []usecase.BatchPredictionItem) batchPredictionDTO {
	out := batchPredictionDTO{Items: make([]batchPredictionItemDTO, 0, len(items))}
	for _, item := range items {
		dto := batchPredictionItemDTO{Index: item.Index}
		if item.Err != nil {
			dto.Error = item.Err.Error()
			out.Failed++
		} else {
			salary := item.Prediction.PredictedSalary
			dto.PredictedSalary = &salary
			dto.Cached = item.Prediction.Cached
			out.Succeeded++
		}
		out.Items = append(out.Items, dto)
	}
	return out
}
