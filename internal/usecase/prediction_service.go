package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	"github.com/riskibarqy/player-valuation/internal/platform/cache"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type Predictor interface {
	Predict(ctx context.Context, features valuation.Features) (float64, error)
}

type PredictionConfig struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	Workers         int
	MaxBatchSize    int
}

type Prediction struct {
	Features        valuation.Features
	PredictedSalary float64
	Cached          bool
}

type BatchPredictionItem struct {
	Index      int
	Prediction Prediction
	Err        error
}

// PredictionService forwards feature vectors to the model. Identical vectors
// share one in-flight call and a TTL cache.
type PredictionService struct {
	predictor Predictor
	cache     *cache.Store[float64]
	validate  *validator.Validate
	workers   int
	maxBatch  int
	logger    *logging.Logger
}

func NewPredictionService(predictor Predictor, cfg PredictionConfig, logger *logging.Logger) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}

	var store *cache.Store[float64]
	if cfg.CacheTTL > 0 {
		store = cache.NewStore[float64](cfg.CacheTTL, cfg.CacheMaxEntries)
	}

	return &PredictionService{
		predictor: predictor,
		cache:     store,
		validate:  validator.New(),
		workers:   cfg.Workers,
		maxBatch:  cfg.MaxBatchSize,
		logger:    logger.Named("prediction"),
	}
}

func (s *PredictionService) Predict(ctx context.Context, features valuation.Features) (Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Predict")
	defer span.End()

	if err := s.validateFeatures(ctx, features); err != nil {
		return Prediction{}, err
	}

	if s.cache == nil {
		value, err := s.predictor.Predict(ctx, features)
		if err != nil {
			return Prediction{}, s.wrapErr(err)
		}
		return Prediction{Features: features, PredictedSalary: value}, nil
	}

	value, hit, err := s.cache.GetOrLoad(ctx, features.Key(), func(ctx context.Context) (float64, error) {
		return s.predictor.Predict(ctx, features)
	})
	if err != nil {
		return Prediction{}, s.wrapErr(err)
	}
	span.SetAttributes(attribute.Bool("prediction.cache_hit", hit))

	return Prediction{Features: features, PredictedSalary: value, Cached: hit}, nil
}

// PredictBatch runs items on a bounded worker pool. Per-item failures are
// reported on the item; the call itself only fails on bad input.
func (s *PredictionService) PredictBatch(ctx context.Context, items []valuation.Features) ([]BatchPredictionItem, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.PredictBatch")
	defer span.End()

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	if len(items) > s.maxBatch {
		return nil, fmt.Errorf("%w: at most %d items per batch", ErrInvalidInput, s.maxBatch)
	}

	pool, err := ants.NewPool(min(s.workers, len(items)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]BatchPredictionItem, len(items))
	var workers sync.WaitGroup
	for i, features := range items {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			prediction, err := s.Predict(ctx, features)
			results[i] = BatchPredictionItem{Index: i, Prediction: prediction, Err: err}
		}); err != nil {
			workers.Done()
			results[i] = BatchPredictionItem{Index: i, Err: fmt.Errorf("submit prediction: %w", err)}
		}
	}
	workers.Wait()

	failed := 0
	for _, item := range results {
		if item.Err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("prediction.items", len(items)), attribute.Int("prediction.failed", failed))
	if failed > 0 {
		s.logger.WarnContext(ctx, "batch prediction finished with failures", "items", len(items), "failed", failed)
	}

	return results, nil
}

func (s *PredictionService) validateFeatures(ctx context.Context, features valuation.Features) error {
	if !features.Finite() {
		return fmt.Errorf("%w: features must be finite numbers", ErrInvalidInput)
	}
	if err := s.validate.StructCtx(ctx, features); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *PredictionService) wrapErr(err error) error {
	if errorsIsAny(err, ErrDependencyUnavailable, context.Canceled, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
