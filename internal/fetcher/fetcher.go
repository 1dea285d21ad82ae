package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"resty.dev/v3"

	"pricetracker/internal/extract"
	"pricetracker/internal/locale"
	"pricetracker/internal/notify"
	"pricetracker/internal/ratelimit"
)

const (
	defaultMaxAttempts      = 3
	defaultBackoffIncrement = 1 * time.Second
	defaultAttemptTimeout   = 10 * time.Second
	defaultConcurrency      = 4
)

// Config controls the attempt loop and batch fan-out.
type Config struct {
	// MaxAttempts is the number of GETs made before giving up on a URL.
	MaxAttempts int
	// BackoffIncrement is added to the wait after every failed attempt:
	// 1x after the first, 2x after the second, and so on.
	BackoffIncrement time.Duration
	// AttemptTimeout bounds a single GET including reading the body.
	AttemptTimeout time.Duration
	// Concurrency caps in-flight URLs in FetchPrices.
	Concurrency int
	UserAgent   string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      defaultMaxAttempts,
		BackoffIncrement: defaultBackoffIncrement,
		AttemptTimeout:   defaultAttemptTimeout,
		Concurrency:      defaultConcurrency,
	}
}

// Reason says why a fetch stopped.
type Reason string

const (
	ReasonSuccess           Reason = "success"
	ReasonMissingURL        Reason = "missing_url"
	ReasonUnsupportedSource Reason = "unsupported_source"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonExhausted         Reason = "exhausted"
	ReasonCanceled          Reason = "canceled"
)

// Outcome reports how a fetch ended, independent of what it returned.
type Outcome struct {
	Quote    Quote
	Attempts int
	Reason   Reason
}

// Fetcher retrieves product quotes from supported retailers.
type Fetcher struct {
	cfg      Config
	client   *resty.Client
	registry *extract.Registry
	limiter  *ratelimit.Limiter
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithLimiter paces attempts per retailer host
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithNotifier sets where operator alerts go
func WithNotifier(n notify.Notifier) Option {
	return func(f *Fetcher) { f.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithHTTPClient replaces the default resty client
func WithHTTPClient(c *resty.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher that dispatches URLs to extractors in registry.
func New(registry *extract.Registry, cfg Config, opts ...Option) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffIncrement < 0 {
		cfg.BackoffIncrement = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	f := &Fetcher{
		cfg:      cfg,
		registry: registry,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = NewHTTPClient(AcceptHTML, cfg.UserAgent, 0)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// FetchPrice returns a live quote for url. When the retailer is unsupported
// or every attempt fails, fallback is returned marked as such; without a
// fallback those cases are errors.
func (f *Fetcher) FetchPrice(ctx context.Context, url string, fallback *Quote) (Quote, error) {
	outcome, err := f.Fetch(ctx, url, fallback)
	return outcome.Quote, err
}

// Fetch is FetchPrice that also reports the attempts made and why it stopped.
func (f *Fetcher) Fetch(ctx context.Context, url string, fallback *Quote) (Outcome, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		err := NewConfigurationError("url required")
		notify.Send(ctx, f.notifier, f.logger, notify.Alert{
			Subject: "Price fetch started without a URL",
			Detail:  err.Error(),
			Code:    notify.CodeConfiguration,
		})
		return Outcome{Reason: ReasonMissingURL}, err
	}

	ex, ok := f.registry.Lookup(url)
	if !ok {
		if fallback != nil {
			return Outcome{Quote: fallback.AsFallback(), Reason: ReasonUnsupportedSource}, nil
		}
		return Outcome{Reason: ReasonUnsupportedSource}, NewUnsupportedSourceError(url)
	}

	var (
		attempts int
		reason   = ReasonExhausted
		lastErr  error
	)

loop:
	for attempts < f.cfg.MaxAttempts {
		attempts++
		res := f.attempt(ctx, ex, url)

		switch res.step {
		case stepSuccess:
			return Outcome{Quote: res.quote, Attempts: attempts, Reason: ReasonSuccess}, nil

		case stepAbort:
			lastErr = res.err
			reason = abortReason(ctx, res.err)
			break loop

		case stepRetry:
			lastErr = res.err
			if attempts >= f.cfg.MaxAttempts {
				break loop
			}
			wait := f.backoff(attempts)
			f.logger.Debug("retrying price fetch",
				"url", url,
				"retailer", ex.Name(),
				"attempt", attempts,
				"wait", wait,
				"error", res.err)
			if err := sleep(ctx, wait); err != nil {
				lastErr = err
				reason = ReasonCanceled
				break loop
			}
		}
	}

	f.logger.Warn("price fetch failed",
		"url", url,
		"attempts", attempts,
		"reason", reason,
		"fallback", fallback != nil,
		"error", lastErr)

	if fallback != nil {
		return Outcome{Quote: fallback.AsFallback(), Attempts: attempts, Reason: reason}, nil
	}

	err := NewExhaustedError(attempts, lastErr)
	if reason != ReasonCanceled {
		notify.Send(ctx, f.notifier, f.logger, notify.Alert{
			Subject: "Price fetch failed for " + url,
			Detail:  err.Error(),
			Code:    notify.CodeFetchExhausted,
		})
	}
	return Outcome{Attempts: attempts, Reason: reason}, err
}

// FetchPrices fetches every URL with the same policy as FetchPrice. Results
// keep the order of urls; fallbacks[i] belongs to urls[i] and may be nil or
// missing. One URL failing never stops the others.
func (f *Fetcher) FetchPrices(ctx context.Context, urls []string, fallbacks []*Quote) []Result {
	results := make([]Result, len(urls))

	p := pool.New().WithMaxGoroutines(f.cfg.Concurrency)
	for i, u := range urls {
		var fallback *Quote
		if i < len(fallbacks) {
			fallback = fallbacks[i]
		}

		i, u := i, u
		p.Go(func() {
			quote, err := f.FetchPrice(ctx, u, fallback)
			results[i] = Result{URL: u, Quote: quote, Error: err}
		})
	}
	p.Wait()

	return results
}

type step int

const (
	stepSuccess step = iota
	stepRetry
	stepAbort
)

// attemptResult is the typed outcome of one attempt; the loop in Fetch is
// the only place that decides what happens next.
type attemptResult struct {
	step  step
	quote Quote
	err   error
}

func retry(err error) attemptResult { return attemptResult{step: stepRetry, err: err} }
func abort(err error) attemptResult { return attemptResult{step: stepAbort, err: err} }

func (f *Fetcher) attempt(ctx context.Context, ex extract.Extractor, url string) attemptResult {
	if err := f.limiter.Wait(ctx, url); err != nil {
		return abort(err)
	}

	attemptCtx := ctx
	if f.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.cfg.AttemptTimeout)
		defer cancel()
	}

	resp, err := f.client.R().
		SetContext(attemptCtx).
		Get(url)

	if err != nil {
		if ctx.Err() != nil {
			return abort(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return retry(NewTimeoutError(err))
		}
		return retry(NewNetworkError(err))
	}

	if !resp.IsSuccess() {
		fe := ClassifyHTTPError(resp.StatusCode())
		if !fe.Retryable {
			return abort(fe)
		}
		return retry(fe)
	}

	doc, err := extract.Parse(strings.NewReader(resp.String()))
	if err != nil {
		return retry(NewExtractionError(err))
	}

	extraction, err := extract.Extract(ex, doc, url)
	if err != nil {
		return retry(NewExtractionError(err))
	}

	minPrice := locale.ParsePrice(extraction.Listing.RawPrice)
	avgPrice := average(extraction.Prices, minPrice)

	return attemptResult{
		step:  stepSuccess,
		quote: NewQuote(extraction.ProductName, minPrice, avgPrice, extraction.Listing.ProductURL),
	}
}

// backoff returns the wait after the given failed attempt.
func (f *Fetcher) backoff(attempt int) time.Duration {
	return time.Duration(attempt) * f.cfg.BackoffIncrement
}

func abortReason(ctx context.Context, err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Type == ErrorTypeRateLimit {
		return ReasonRateLimited
	}
	if ctx.Err() != nil {
		return ReasonCanceled
	}
	return ReasonExhausted
}

func average(prices []float64, fallback float64) float64 {
	if len(prices) == 0 {
		return fallback
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
