package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	usecasemock "github.com/riskibarqy/player-valuation/internal/mocks/usecase"
	"github.com/riskibarqy/player-valuation/internal/platform/id"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rawPlayer(name, team string, salary, predicted float64) map[string]any {
	return map[string]any{
		"PLAYER":           name,
		"TEAM":             team,
		"Salary":           salary,
		"Predicted_Salary": predicted,
		"PTS":              21.0,
	}
}

func payloadOf(items ...any) valuation.SourcePayload {
	return valuation.SourcePayload{Count: len(items), Items: items}
}

func TestBatchService_Refresh_AppliesBatchAndReportsDrops(t *testing.T) {
	t.Parallel()

	source := usecasemock.NewPlayerSource(t)
	source.
		On("FetchPlayers", mock.Anything).
		Return(payloadOf(
			rawPlayer("A", "LAL", 10_000_000, 12_000_000),
			rawPlayer("Zero", "LAL", 0, 5_000_000),
			rawPlayer("B", "BOS", 5_000_000, 4_000_000),
		), nil).
		Once()

	svc := NewBatchService(source, &id.SequenceGenerator{Prefix: "batch"}, logging.NewNop())
	state, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RefreshStatusSuccess, state.Status)
	assert.Equal(t, "batch-1", state.BatchID)
	assert.Equal(t, 1, state.Dropped)
	assert.NotEmpty(t, state.Message)

	batch, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(1), batch.Sequence)
	assert.Equal(t, 3, batch.SourceCount)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "player-0", batch.Records[0].ID)
	assert.Equal(t, "player-2", batch.Records[1].ID)
	require.Len(t, batch.Dropped, 1)
	assert.Equal(t, "Zero", batch.Dropped[0].Name)
}

func TestBatchService_Refresh_FailureKeepsPreviousBatch(t *testing.T) {
	t.Parallel()

	source := usecasemock.NewPlayerSource(t)
	source.
		On("FetchPlayers", mock.Anything).
		Return(payloadOf(rawPlayer("A", "LAL", 100, 100)), nil).
		Once()
	source.
		On("FetchPlayers", mock.Anything).
		Return(valuation.SourcePayload{}, &valuation.FetchError{Op: "GET", URL: "http://x/allplayers", StatusCode: 502, Err: errors.New("bad gateway")}).
		Once()

	svc := NewBatchService(source, &id.SequenceGenerator{Prefix: "batch"}, logging.NewNop())
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	state, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, valuation.ErrFetch)
	assert.Equal(t, RefreshStatusFailure, state.Status)
	assert.True(t, state.Retryable)
	assert.Equal(t, refreshFailedMessage, state.Message)
	assert.Equal(t, "batch-1", state.BatchID)

	batch, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "batch-1", batch.ID)
	assert.Len(t, batch.Records, 1)
}

func TestBatchService_Refresh_DependencyUnavailablePassesThrough(t *testing.T) {
	t.Parallel()

	source := usecasemock.NewPlayerSource(t)
	source.
		On("FetchPlayers", mock.Anything).
		Return(valuation.SourcePayload{}, ErrDependencyUnavailable).
		Once()

	svc := NewBatchService(source, nil, logging.NewNop())
	state, err := svc.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrDependencyUnavailable)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Equal(t, RefreshStatusFailure, state.Status)
	_, ok := svc.Current()
	assert.False(t, ok)
}

type gatedFetch struct {
	started chan struct{}
	release chan struct{}
	payload valuation.SourcePayload
	err     error
}

type gatedSource struct {
	mu    sync.Mutex
	calls []*gatedFetch
	next  int
}

func (s *gatedSource) FetchPlayers(ctx context.Context) (valuation.SourcePayload, error) {
	s.mu.Lock()
	call := s.calls[s.next]
	s.next++
	s.mu.Unlock()

	close(call.started)
	select {
	case <-call.release:
	case <-ctx.Done():
		return valuation.SourcePayload{}, ctx.Err()
	}
	return call.payload, call.err
}

func newGatedFetch(payload valuation.SourcePayload, err error) *gatedFetch {
	return &gatedFetch{
		started: make(chan struct{}),
		release: make(chan struct{}),
		payload: payload,
		err:     err,
	}
}

func TestBatchService_Refresh_StaleResultDoesNotOverwriteNewer(t *testing.T) {
	t.Parallel()

	older := newGatedFetch(payloadOf(rawPlayer("Old", "LAL", 100, 100)), nil)
	newer := newGatedFetch(payloadOf(rawPlayer("New", "BOS", 100, 100)), nil)
	source := &gatedSource{calls: []*gatedFetch{older, newer}}
	svc := NewBatchService(source, &id.SequenceGenerator{Prefix: "batch"}, logging.NewNop())

	olderDone := make(chan RefreshState, 1)
	go func() {
		state, _ := svc.Refresh(context.Background())
		olderDone <- state
	}()
	<-older.started
	assert.Equal(t, RefreshStatusPending, svc.State().Status)

	newerDone := make(chan RefreshState, 1)
	go func() {
		state, _ := svc.Refresh(context.Background())
		newerDone <- state
	}()
	<-newer.started

	close(newer.release)
	newerState := <-newerDone
	assert.Equal(t, uint64(2), newerState.LastSettled)

	close(older.release)
	<-olderDone

	batch, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(2), batch.Sequence)
	assert.Equal(t, "New", batch.Records[0].Name)
	assert.Equal(t, RefreshStatusSuccess, svc.State().Status)
}

func TestBatchService_Refresh_StaleFailureIgnored(t *testing.T) {
	t.Parallel()

	older := newGatedFetch(valuation.SourcePayload{}, &valuation.ParseError{Op: "decode", Reason: "missing data array"})
	newer := newGatedFetch(payloadOf(rawPlayer("New", "BOS", 100, 100)), nil)
	source := &gatedSource{calls: []*gatedFetch{older, newer}}
	svc := NewBatchService(source, nil, logging.NewNop())

	olderErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		olderErr <- err
	}()
	<-older.started

	newerDone := make(chan struct{})
	go func() {
		_, _ = svc.Refresh(context.Background())
		close(newerDone)
	}()
	<-newer.started
	close(newer.release)
	<-newerDone

	close(older.release)
	require.NoError(t, <-olderErr)

	state := svc.State()
	assert.Equal(t, RefreshStatusSuccess, state.Status)
	assert.Empty(t, state.Detail)
}

func TestBatchService_Refresh_OlderSettlingFirstStaysPending(t *testing.T) {
	t.Parallel()

	older := newGatedFetch(payloadOf(rawPlayer("Old", "LAL", 100, 100)), nil)
	newer := newGatedFetch(payloadOf(rawPlayer("New", "BOS", 100, 100)), nil)
	source := &gatedSource{calls: []*gatedFetch{older, newer}}
	svc := NewBatchService(source, nil, logging.NewNop())

	olderDone := make(chan RefreshState, 1)
	go func() {
		state, _ := svc.Refresh(context.Background())
		olderDone <- state
	}()
	<-older.started

	newerDone := make(chan struct{})
	go func() {
		_, _ = svc.Refresh(context.Background())
		close(newerDone)
	}()
	<-newer.started

	close(older.release)
	olderState := <-olderDone
	assert.Equal(t, RefreshStatusPending, olderState.Status)

	batch, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Old", batch.Records[0].Name)

	close(newer.release)
	<-newerDone
	batch, _ = svc.Current()
	assert.Equal(t, "New", batch.Records[0].Name)
	assert.Equal(t, RefreshStatusSuccess, svc.State().Status)
}

func TestBatchService_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	source := usecasemock.NewPlayerSource(t)
	source.
		On("FetchPlayers", mock.Anything).
		Return(payloadOf(rawPlayer("A", "LAL", 100, 100)), nil).
		Once()

	svc := NewBatchService(source, nil, logging.NewNop())
	svc.Run(context.Background(), 0)

	_, ok := svc.Current()
	assert.True(t, ok)
	assert.Equal(t, RefreshStatusIdle, NewBatchService(source, nil, nil).State().Status)
}
