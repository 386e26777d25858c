package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	"github.com/riskibarqy/player-valuation/internal/platform/id"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type PlayerSource interface {
	FetchPlayers(ctx context.Context) (valuation.SourcePayload, error)
}

type RefreshStatus string

const (
	RefreshStatusIdle    RefreshStatus = "idle"
	RefreshStatusPending RefreshStatus = "pending"
	RefreshStatusSuccess RefreshStatus = "success"
	RefreshStatusFailure RefreshStatus = "failure"
)

const refreshFailedMessage = "Failed to load player data. Please try again."

// RefreshState is the observable side of the refresh cycle.
type RefreshState struct {
	Status      RefreshStatus
	LastIssued  uint64
	LastSettled uint64
	BatchID     string
	Dropped     int
	Message     string
	Detail      string
	Retryable   bool
	UpdatedAt   time.Time
}

// BatchService owns the current Batch. Refreshes may overlap; each gets a
// sequence number and a result only lands when nothing newer has settled.
type BatchService struct {
	source PlayerSource
	ids    id.Generator
	logger *logging.Logger
	now    func() time.Time

	sequence atomic.Uint64

	mu      sync.RWMutex
	current valuation.Batch
	loaded  bool
	state   RefreshState
}

func NewBatchService(source PlayerSource, ids id.Generator, logger *logging.Logger) *BatchService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &BatchService{
		source: source,
		ids:    ids,
		logger: logger.Named("batch"),
		now:    time.Now,
		state:  RefreshState{Status: RefreshStatusIdle},
	}
}

// Current returns the last applied batch.
func (s *BatchService) Current() (valuation.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

func (s *BatchService) State() RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Refresh fetches and normalizes a new batch. The returned state is the one
// observed right after this request settled. The error is non-nil only when
// this request failed; a superseded request reports the newer state and nil.
func (s *BatchService) Refresh(ctx context.Context) (RefreshState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BatchService.Refresh")
	defer span.End()

	seq := s.begin()
	span.SetAttributes(attribute.Int64("refresh.sequence", int64(seq)))

	payload, err := s.source.FetchPlayers(ctx)
	if err != nil {
		span.RecordError(err)
		return s.fail(ctx, seq, err)
	}

	result := valuation.Normalize(payload.Items)
	for _, dropped := range result.Dropped {
		s.logger.WarnContext(ctx, "player record dropped",
			"sequence", seq,
			"index", dropped.Index,
			"player_id", dropped.RecordID,
			"name", dropped.Name,
			"field", dropped.Field,
			"reason", dropped.Reason,
		)
	}

	batchID, err := s.ids.NewID()
	if err != nil {
		return s.fail(ctx, seq, fmt.Errorf("generate batch id: %w", err))
	}

	batch := valuation.Batch{
		ID:          batchID,
		Sequence:    seq,
		FetchedAt:   s.now().UTC(),
		SourceCount: payload.Count,
		Records:     result.Records,
		Dropped:     result.Dropped,
	}
	span.SetAttributes(
		attribute.Int("batch.records", len(batch.Records)),
		attribute.Int("batch.dropped", len(batch.Dropped)),
	)
	return s.apply(ctx, batch), nil
}

func (s *BatchService) begin() uint64 {
	seq := s.sequence.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.state.LastIssued {
		s.state.LastIssued = seq
	}
	s.state.Status = RefreshStatusPending
	s.state.UpdatedAt = s.now().UTC()
	return seq
}

func (s *BatchService) apply(ctx context.Context, batch valuation.Batch) RefreshState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.Sequence < s.state.LastSettled {
		s.logger.InfoContext(ctx, "discarding superseded refresh", "sequence", batch.Sequence, "settled", s.state.LastSettled)
		return s.state
	}

	s.current = batch
	s.loaded = true
	s.state.LastSettled = batch.Sequence
	s.state.BatchID = batch.ID
	s.state.Dropped = len(batch.Dropped)
	s.state.Message = ""
	s.state.Detail = ""
	s.state.Retryable = false
	if len(batch.Dropped) > 0 {
		s.state.Message = fmt.Sprintf("%d player records were skipped because of invalid data.", len(batch.Dropped))
	}
	s.state.Status = s.settledStatusLocked(RefreshStatusSuccess)
	s.state.UpdatedAt = s.now().UTC()

	s.logger.InfoContext(ctx, "player batch applied",
		"sequence", batch.Sequence,
		"batch_id", batch.ID,
		"records", len(batch.Records),
		"dropped", len(batch.Dropped),
		"source_count", batch.SourceCount,
	)
	return s.state
}

func (s *BatchService) fail(ctx context.Context, seq uint64, cause error) (RefreshState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.state.LastSettled {
		s.logger.InfoContext(ctx, "discarding superseded refresh failure", "sequence", seq, "settled", s.state.LastSettled, "error", cause)
		return s.state, nil
	}

	s.state.LastSettled = seq
	s.state.Message = refreshFailedMessage
	s.state.Detail = cause.Error()
	s.state.Retryable = !stderrors.Is(cause, context.Canceled)
	s.state.Status = s.settledStatusLocked(RefreshStatusFailure)
	s.state.UpdatedAt = s.now().UTC()

	s.logger.WarnContext(ctx, "player refresh failed", "sequence", seq, "error", cause)

	if stderrors.Is(cause, ErrDependencyUnavailable) {
		return s.state, cause
	}
	return s.state, fmt.Errorf("%w: %w", ErrUpstream, cause)
}

// A newer request still in flight keeps the cycle pending.
func (s *BatchService) settledStatusLocked(status RefreshStatus) RefreshStatus {
	if s.state.LastIssued > s.state.LastSettled {
		return RefreshStatusPending
	}
	return status
}

// Run refreshes once immediately and then every interval until ctx is done.
// A non-positive interval only does the initial refresh.
func (s *BatchService) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial player refresh failed", "error", err)
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "scheduled player refresh failed", "error", err)
			}
		}
	}
}
