package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
)

// DefaultRetryBackoff is the wait between two proxy attempts.
const DefaultRetryBackoff = 2 * time.Second

// Executor runs the unit of work for cred over one transport.
// A nil proxy means a direct connection. A returned error is a request-level
// failure and makes the coordinator move to the next transport.
type Executor interface {
	Execute(ctx context.Context, cred *model.Credential, p *proxy.Spec) (model.Counts, error)
}

// ProxySource hands out proxies in rotation order.
type ProxySource interface {
	NextProxy() *proxy.Spec
	ProxyCount() int
}

// Coordinator retries the unit of work across the proxy pool and falls back
// to a direct connection when every proxy failed.
type Coordinator struct {
	executor Executor
	proxies  ProxySource
	rejector proxy.Rejector
	backoff  time.Duration
	sleep    clock.SleepFunc
	logger   *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRejector sets the sink that receives the original line of every
// proxy that failed a request.
func WithRejector(r proxy.Rejector) CoordinatorOption {
	return func(c *Coordinator) {
		c.rejector = r
	}
}

// WithRetryBackoff sets the wait between proxy attempts.
func WithRetryBackoff(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.backoff = d
	}
}

// WithSleep replaces the sleep function, for tests.
func WithSleep(sleep clock.SleepFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.sleep = sleep
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(executor Executor, proxies ProxySource, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		executor: executor,
		proxies:  proxies,
		backoff:  DefaultRetryBackoff,
		sleep:    clock.Sleep,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run processes cred until one attempt succeeds or every transport failed.
//
// With a pool of N proxies it makes at most N proxy attempts, taking each
// proxy once in registry order, followed by one direct attempt. An empty pool
// means a single direct attempt. A success is terminal even when individual
// claims inside it failed. Cancelling ctx ends the run as exhausted.
func (c *Coordinator) Run(ctx context.Context, cred *model.Credential) model.Outcome {
	poolSize := c.proxies.ProxyCount()
	useProxy := poolSize > 0
	maxAttempts := 1
	if useProxy {
		maxAttempts = poolSize
	}

	var attempts []model.Attempt
	tries := 0

	for {
		if ctx.Err() != nil {
			return exhausted(attempts)
		}

		var p *proxy.Spec
		if useProxy {
			p = c.proxies.NextProxy()
			if p == nil {
				// The pool was emptied under us; only the direct attempt is left.
				c.logger.Warn("proxy pool is empty, switching to direct connection", "credential", cred.Label)
				useProxy = false
				tries = 0
				maxAttempts = 1
			}
		}

		counts, err := c.executor.Execute(ctx, cred, p)
		attempt := model.Attempt{}
		if p != nil {
			attempt.Proxy = p.Original
		}
		if err == nil {
			attempts = append(attempts, attempt)
			return model.Outcome{Kind: model.OutcomeSuccess, Counts: counts, Attempts: attempts}
		}
		attempt.Err = err.Error()
		attempts = append(attempts, attempt)

		if ctx.Err() != nil {
			return exhausted(attempts)
		}

		via := "direct"
		if p != nil {
			via = p.Address
		}
		c.logger.Warn("request failed",
			"credential", cred.Label,
			"proxy", via,
			"attempt", len(attempts),
			"class", errorClass(err),
			"error", err,
		)
		if p != nil && c.rejector != nil {
			c.rejector.Reject(p.Original)
		}

		tries++
		if tries < maxAttempts {
			c.logger.Info("retrying with next proxy",
				"credential", cred.Label,
				"remaining", maxAttempts-tries,
				"backoff", c.backoff,
			)
			if err := c.sleep(ctx, c.backoff); err != nil {
				return exhausted(attempts)
			}
			continue
		}

		if useProxy {
			c.logger.Info("all proxies failed, trying direct connection", "credential", cred.Label)
			useProxy = false
			tries = 0
			maxAttempts = 1
			continue
		}

		c.logger.Error("all attempts failed", "credential", cred.Label, "attempts", len(attempts))
		return exhausted(attempts)
	}
}

func exhausted(attempts []model.Attempt) model.Outcome {
	return model.Outcome{Kind: model.OutcomeExhausted, Attempts: attempts}
}

// errorClass names the kind of request failure for the logs.
func errorClass(err error) string {
	switch {
	case api.IsTransport(err):
		return "transport"
	case api.IsStatus(err):
		return "status"
	case api.IsApplication(err):
		return "application"
	default:
		return "other"
	}
}
