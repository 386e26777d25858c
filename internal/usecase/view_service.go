package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxPageSize = 100

type BatchReader interface {
	Current() (valuation.Batch, bool)
	State() RefreshState
}

// BatchInfo describes the batch a view was computed from.
type BatchInfo struct {
	ID          string
	FetchedAt   time.Time
	SourceCount int
	Records     int
	Dropped     int
}

type PlayerListing struct {
	View    valuation.View
	State   valuation.ViewState
	Batch   BatchInfo
	Refresh RefreshState
}

type FilterOptions struct {
	Teams     []string
	Positions []string
	Statuses  []valuation.Status
	SortKeys  []valuation.SortKey
}

// ViewService composes the current batch with a caller-held ViewState at
// read time. It holds no view state itself.
type ViewService struct {
	batches         BatchReader
	defaultPageSize int
	maxPageSize     int
}

// NewViewService falls back to valuation.DefaultPageSize and a max page size
// of 100 for non-positive values.
func NewViewService(batches BatchReader, defaultPageSize, maxPageSize int) *ViewService {
	if maxPageSize <= 0 {
		maxPageSize = defaultMaxPageSize
	}
	if defaultPageSize <= 0 {
		defaultPageSize = valuation.DefaultPageSize
	}
	return &ViewService{
		batches:         batches,
		defaultPageSize: min(defaultPageSize, maxPageSize),
		maxPageSize:     maxPageSize,
	}
}

func (s *ViewService) ListPlayers(ctx context.Context, state valuation.ViewState) (PlayerListing, error) {
	_, span := startUsecaseSpan(ctx, "usecase.ViewService.ListPlayers")
	defer span.End()

	state, err := s.normalizeState(state)
	if err != nil {
		return PlayerListing{}, err
	}

	batch, err := s.currentBatch()
	if err != nil {
		return PlayerListing{}, err
	}

	view := valuation.BuildView(batch.Records, state)
	span.SetAttributes(
		attribute.String("view.sort_key", string(state.SortKey)),
		attribute.Int("view.page", state.Page),
		attribute.Int("view.total_items", view.Page.TotalItems),
	)

	return PlayerListing{
		View:    view,
		State:   state,
		Batch:   batchInfo(batch),
		Refresh: s.batches.State(),
	}, nil
}

func (s *ViewService) GetPlayer(ctx context.Context, playerID string) (valuation.PlayerRecord, error) {
	_, span := startUsecaseSpan(ctx, "usecase.ViewService.GetPlayer")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return valuation.PlayerRecord{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	batch, err := s.currentBatch()
	if err != nil {
		return valuation.PlayerRecord{}, err
	}

	record, ok := batch.Find(playerID)
	if !ok {
		return valuation.PlayerRecord{}, fmt.Errorf("%w: player id=%s", ErrNotFound, playerID)
	}
	return record, nil
}

// Summary aggregates the filtered set, independent of sort and page.
func (s *ViewService) Summary(ctx context.Context, criteria valuation.Criteria) (valuation.Summary, BatchInfo, error) {
	_, span := startUsecaseSpan(ctx, "usecase.ViewService.Summary")
	defer span.End()

	batch, err := s.currentBatch()
	if err != nil {
		return valuation.Summary{}, BatchInfo{}, err
	}
	return valuation.Summarize(valuation.Filter(batch.Records, criteria)), batchInfo(batch), nil
}

func (s *ViewService) Filters(ctx context.Context) (FilterOptions, error) {
	_, span := startUsecaseSpan(ctx, "usecase.ViewService.Filters")
	defer span.End()

	batch, err := s.currentBatch()
	if err != nil {
		return FilterOptions{}, err
	}

	return FilterOptions{
		Teams:     valuation.DistinctTeams(batch.Records),
		Positions: valuation.DistinctPositions(batch.Records),
		Statuses:  valuation.AllStatuses,
		SortKeys: []valuation.SortKey{
			valuation.SortByID, valuation.SortByName, valuation.SortByTeam, valuation.SortByPosition, valuation.SortByAge,
			valuation.SortByPoints, valuation.SortByRebounds, valuation.SortByAssists, valuation.SortByBlocks,
			valuation.SortByGamesPlayed, valuation.SortByTrueShooting, valuation.SortByMarketValue,
			valuation.SortByPredictedValue, valuation.SortByValuationStatus,
			valuation.SortByValueGap, valuation.SortByValueGapPercent,
		},
	}, nil
}

func (s *ViewService) normalizeState(state valuation.ViewState) (valuation.ViewState, error) {
	if state.Page < 0 {
		return state, fmt.Errorf("%w: page must be >= 1", ErrInvalidInput)
	}
	if state.Page == 0 {
		state.Page = 1
	}
	if state.PageSize < 0 {
		return state, fmt.Errorf("%w: page_size must be > 0", ErrInvalidInput)
	}
	if state.PageSize == 0 {
		state.PageSize = s.defaultPageSize
	}
	if state.PageSize > s.maxPageSize {
		return state, fmt.Errorf("%w: page_size must be <= %d", ErrInvalidInput, s.maxPageSize)
	}
	if state.SortKey == "" {
		state.SortKey = valuation.DefaultSortKey
	}
	if state.Direction == "" {
		state.Direction = valuation.DefaultDirection
	}
	return state, nil
}

func (s *ViewService) currentBatch() (valuation.Batch, error) {
	batch, ok := s.batches.Current()
	if !ok {
		refresh := s.batches.State()
		if refresh.Status == RefreshStatusFailure {
			return valuation.Batch{}, fmt.Errorf("%w: %s", ErrNotReady, refresh.Detail)
		}
		return valuation.Batch{}, ErrNotReady
	}
	return batch, nil
}

func batchInfo(batch valuation.Batch) BatchInfo {
	return BatchInfo{
		ID:          batch.ID,
		FetchedAt:   batch.FetchedAt,
		SourceCount: batch.SourceCount,
		Records:     len(batch.Records),
		Dropped:     len(batch.Dropped),
	}
}
