// Package cycle drives the endless claim loop over every credential.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
	"github.com/nao1215/claimbot/internal/report"
	"github.com/nao1215/claimbot/internal/rotation"
	"github.com/nao1215/claimbot/internal/store"
)

// Default pauses of the loop.
const (
	DefaultCredentialDelay = 5 * time.Second
	DefaultCycleDelay      = 30 * time.Second
	DefaultErrorPause      = 30 * time.Second
)

// ProxyLoader loads the proxy pool.
type ProxyLoader interface {
	Load() ([]*proxy.Spec, error)
}

// Runner processes one credential. *worker.Coordinator implements it.
type Runner interface {
	Run(ctx context.Context, cred *model.Credential) model.Outcome
}

// HistoryRecorder persists finished cycles.
type HistoryRecorder interface {
	SaveCycle(ctx context.Context, summary *model.CycleSummary) error
}

// Driver runs cycles until cancelled or out of credentials.
type Driver struct {
	credentials store.CredentialSource
	proxies     ProxyLoader
	registry    *rotation.Registry
	runner      Runner
	history     HistoryRecorder

	out    io.Writer
	status *report.SimpleWriter
	logger *slog.Logger
	sleep  clock.SleepFunc
	now    func() time.Time

	credentialDelay time.Duration
	cycleDelay      time.Duration
	errorPause      time.Duration
	maxCycles       int
}

// Option configures a Driver.
type Option func(*Driver)

// WithHistory records every finished cycle.
func WithHistory(h HistoryRecorder) Option {
	return func(d *Driver) {
		d.history = h
	}
}

// WithOutput sets where status lines are written.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) {
		d.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithSleep replaces the sleep function, for tests.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(d *Driver) {
		d.sleep = sleep
	}
}

// WithDelays sets the inter-credential delay, the inter-cycle delay and
// the pause after a failed cycle.
func WithDelays(credential, cycle, errorPause time.Duration) Option {
	return func(d *Driver) {
		d.credentialDelay = credential
		d.cycleDelay = cycle
		d.errorPause = errorPause
	}
}

// WithMaxCycles stops the loop after n cycles. Zero means forever.
func WithMaxCycles(n int) Option {
	return func(d *Driver) {
		d.maxCycles = n
	}
}

// NewDriver creates a Driver. runner must draw its proxies from registry.
func NewDriver(credentials store.CredentialSource, proxies ProxyLoader, registry *rotation.Registry, runner Runner, opts ...Option) *Driver {
	d := &Driver{
		credentials:     credentials,
		proxies:         proxies,
		registry:        registry,
		runner:          runner,
		out:             io.Discard,
		logger:          slog.Default(),
		sleep:           clock.Sleep,
		now:             time.Now,
		credentialDelay: DefaultCredentialDelay,
		cycleDelay:      DefaultCycleDelay,
		errorPause:      DefaultErrorPause,
	}

	for _, opt := range opts {
		opt(d)
	}
	d.status = report.NewSimpleWriter(d.out)

	return d
}

// RunForever runs cycles back to back.
// It returns ctx.Err() once cancelled, and an error wrapping
// store.ErrNoCredentials when the credential store is empty or unreadable.
// With WithMaxCycles it returns nil after the last cycle.
func (d *Driver) RunForever(ctx context.Context) error {
	for number := 1; d.maxCycles == 0 || number <= d.maxCycles; number++ {
		summary, err := d.RunCycle(ctx, number)
		if err != nil {
			if errors.Is(err, store.ErrNoCredentials) {
				d.logger.Error("no credentials to process", "store", d.credentials.Name(), "error", err)
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			d.logger.Error("cycle failed", "cycle", number, "error", err)
			fmt.Fprintf(d.out, "Error in cycle #%d: %v\nRetrying in %s...\n", number, err, d.errorPause)
			if err := d.sleep(ctx, d.errorPause); err != nil {
				return err
			}
			continue
		}

		_, _ = d.status.WriteCycleSummary(summary) //nolint:errcheck // Status output is best effort
		d.record(ctx, summary)

		if d.maxCycles != 0 && number == d.maxCycles {
			break
		}
		fmt.Fprintf(d.out, "Waiting %s before next cycle...\n", d.cycleDelay)
		if err := d.sleep(ctx, d.cycleDelay); err != nil {
			return err
		}
	}
	return nil
}

// RunCycle processes every credential once, sequentially.
func (d *Driver) RunCycle(ctx context.Context, number int) (*model.CycleSummary, error) {
	creds, specs, err := d.reload(ctx)
	if err != nil {
		return nil, err
	}
	d.registry.Reload(creds, specs)

	summary := &model.CycleSummary{
		ID:        uuid.NewString(),
		Number:    number,
		Store:     d.credentials.Name(),
		StartedAt: d.now(),
		Proxies:   len(specs),
	}

	fmt.Fprintf(d.out, "\nStarting cycle #%d with %d credentials and %d proxies\n", number, len(creds), len(specs))
	d.logger.Info("cycle started",
		"cycle", number,
		"id", summary.ID,
		"credentials", len(creds),
		"proxies", len(specs),
	)

	for i := range creds {
		cred := d.registry.NextCredential()
		fmt.Fprintf(d.out, "\nProcessing %s (%d/%d)\n", cred.Label, i+1, len(creds))

		outcome := d.runner.Run(ctx, cred)
		summary.Add(cred.Label, outcome)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if !outcome.Succeeded() {
			fmt.Fprintf(d.out, "All attempts failed for %s\n", cred.Label)
		}

		if i < len(creds)-1 {
			if err := d.sleep(ctx, d.credentialDelay); err != nil {
				return summary, err
			}
		}
	}

	summary.FinishedAt = d.now()
	return summary, nil
}

// reload reads credentials and proxies concurrently.
func (d *Driver) reload(ctx context.Context) ([]*model.Credential, []*proxy.Spec, error) {
	var (
		creds []*model.Credential
		specs []*proxy.Spec
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := d.credentials.Load()
		if err != nil {
			return err
		}
		creds = c
		return nil
	})
	g.Go(func() error {
		p, err := d.proxies.Load()
		if err != nil {
			return fmt.Errorf("failed to load proxies: %w", err)
		}
		specs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if len(creds) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", d.credentials.Name(), store.ErrNoCredentials)
	}
	return creds, specs, nil
}

func (d *Driver) record(ctx context.Context, summary *model.CycleSummary) {
	if d.history == nil {
		return
	}
	if err := d.history.SaveCycle(ctx, summary); err != nil {
		d.logger.Warn("failed to record cycle", "cycle", summary.Number, "error", err)
	}
}
