package regression

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"github.com/riskibarqy/player-valuation/internal/platform/resilience"
	"github.com/riskibarqy/player-valuation/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL      = "https://nba-regression-service-24550290265.asia-southeast1.run.app"
	defaultPlayersPath  = "/allplayers"
	defaultPredictPath  = "/predict"
	defaultTimeout      = 20 * time.Second
	maxResponseBodySize = 8 << 20
)

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	PlayersPath    string
	PredictPath    string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the salary regression service. It makes exactly one
// attempt per call; callers decide whether to retry.
type Client struct {
	httpClient  *fasthttp.Client
	baseURL     string
	playersPath string
	predictPath string
	timeout     time.Duration
	logger      *logging.Logger
	breaker     *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("regression")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "player-valuation",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 90 * time.Second,
			MaxResponseBodySize: maxResponseBodySize,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breaker := resilience.NewCircuitBreakerFromConfig("regression", cfg.CircuitBreaker)
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	})

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		playersPath: normalizePath(cfg.PlayersPath, defaultPlayersPath),
		predictPath: normalizePath(cfg.PredictPath, defaultPredictPath),
		timeout:     timeout,
		logger:      logger,
		breaker:     breaker,
	}
}

// FetchPlayers loads the full player envelope. Individual items are returned
// undecoded so the normalizer can drop bad records one by one.
func (c *Client) FetchPlayers(ctx context.Context) (valuation.SourcePayload, error) {
	raw, err := c.do(ctx, fasthttp.MethodGet, c.playersPath, nil)
	if err != nil {
		return valuation.SourcePayload{}, err
	}

	var envelope playersEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return valuation.SourcePayload{}, &valuation.ParseError{
			Op:     "decode players envelope",
			Reason: "invalid json body=" + abbreviateBody(raw),
			Err:    err,
		}
	}
	if envelope.Data == nil {
		return valuation.SourcePayload{}, &valuation.ParseError{
			Op:     "decode players envelope",
			Reason: "missing data array",
		}
	}

	items := *envelope.Data
	count := len(items)
	if envelope.Count != nil {
		count = *envelope.Count
	}
	if count != len(items) {
		c.logger.WarnContext(ctx, "players envelope count mismatch", "count", count, "items", len(items))
	}

	return valuation.SourcePayload{Count: count, Items: items}, nil
}

// Predict asks the model for a salary given one feature vector.
func (c *Client) Predict(ctx context.Context, features valuation.Features) (float64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(predictRequest{
		Age:          features.Age,
		GamesPlayed:  features.GamesPlayed,
		Rebounds:     features.ReboundsPerGame,
		Assists:      features.AssistsPerGame,
		Points:       features.PointsPerGame,
		Blocks:       features.BlocksPerGame,
		TrueShooting: features.TrueShootingPct,
	}); err != nil {
		return 0, crerr.Wrap(err, "encode prediction request")
	}

	raw, err := c.do(ctx, fasthttp.MethodPost, c.predictPath, buf.B)
	if err != nil {
		return 0, err
	}

	var out predictResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return 0, &valuation.ParseError{
			Op:     "decode prediction",
			Reason: "invalid json body=" + abbreviateBody(raw),
			Err:    err,
		}
	}
	if out.PredictedSalary == nil {
		return 0, &valuation.ParseError{Op: "decode prediction", Reason: "missing predicted_salary"}
	}
	value := *out.PredictedSalary
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &valuation.ParseError{Op: "decode prediction", Reason: "non-finite predicted_salary"}
	}

	return value, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	raw, err := resilience.Do(c.breaker, isCircuitFailure, func() ([]byte, error) {
		return c.execute(ctx, method, fullURL, body)
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "regression circuit breaker rejected request", "state", c.breaker.State(), "path", path)
		return nil, fmt.Errorf("%w: regression service is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "regression request failed", "method", method, "url", fullURL, "error", err)
		return nil, err
	}
	return raw, nil
}

func (c *Client) execute(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &valuation.FetchError{
			Op:        method,
			URL:       fullURL,
			Transient: true,
			Err:       crerr.Wrap(err, "send request"),
		}
	}

	raw := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &valuation.FetchError{
			Op:         method,
			URL:        fullURL,
			StatusCode: status,
			Transient:  isRetryableStatus(status),
			Err:        crerr.Newf("body=%s", abbreviateBody(raw)),
		}
	}

	return raw, nil
}

func isCircuitFailure(err error) bool {
	var fetchErr *valuation.FetchError
	if stderrors.As(err, &fetchErr) {
		return fetchErr.Transient
	}
	return false
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func normalizePath(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

type playersEnvelope struct {
	Count *int   `json:"count"`
	Data  *[]any `json:"data"`
}

type predictRequest struct {
	Age          float64 `json:"Age"`
	GamesPlayed  float64 `json:"GP"`
	Rebounds     float64 `json:"TRB"`
	Assists      float64 `json:"AST"`
	Points       float64 `json:"PTS"`
	Blocks       float64 `json:"BLK"`
	TrueShooting float64 `json:"TS%"`
}

type predictResponse struct {
	PredictedSalary *float64 `json:"predicted_salary"`
}
