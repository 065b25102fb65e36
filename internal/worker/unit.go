package worker

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/pipeline"
	"github.com/nao1215/claimbot/internal/proxy"
	"github.com/nao1215/claimbot/internal/wallet"
)

// Client is the remote API as seen by one unit of work.
type Client interface {
	pipeline.TaskClient
	pipeline.WalletClient
	pipeline.StatsClient
}

// ClientFactory builds a client bound to one credential and transport.
type ClientFactory func(secret string, p *proxy.Spec) Client

// TaskUnit runs the per-credential pipeline over one transport.
// It implements Executor.
type TaskUnit struct {
	newClient  ClientFactory
	out        io.Writer
	logger     *slog.Logger
	claimDelay time.Duration
	sleep      clock.SleepFunc
	wallets    pipeline.WalletRecorder
	keys       pipeline.KeyGenerator
}

// TaskUnitOption configures a TaskUnit.
type TaskUnitOption func(*TaskUnit)

// WithOutput sets where status lines are written.
func WithOutput(w io.Writer) TaskUnitOption {
	return func(u *TaskUnit) {
		u.out = w
	}
}

// WithUnitLogger sets a custom logger.
func WithUnitLogger(logger *slog.Logger) TaskUnitOption {
	return func(u *TaskUnit) {
		u.logger = logger
	}
}

// WithClaimDelay sets the pause after each claim.
func WithClaimDelay(d time.Duration) TaskUnitOption {
	return func(u *TaskUnit) {
		u.claimDelay = d
	}
}

// WithUnitSleep replaces the sleep function, for tests.
func WithUnitSleep(sleep clock.SleepFunc) TaskUnitOption {
	return func(u *TaskUnit) {
		u.sleep = sleep
	}
}

// WithWalletRecorder enables wallet linking and persists linked addresses.
// Without a recorder the link-wallet step is not part of the pipeline.
func WithWalletRecorder(r pipeline.WalletRecorder) TaskUnitOption {
	return func(u *TaskUnit) {
		u.wallets = r
	}
}

// WithKeyGenerator replaces the wallet keypair generator.
func WithKeyGenerator(g pipeline.KeyGenerator) TaskUnitOption {
	return func(u *TaskUnit) {
		u.keys = g
	}
}

// WithClientFactory replaces how clients are built.
func WithClientFactory(f ClientFactory) TaskUnitOption {
	return func(u *TaskUnit) {
		u.newClient = f
	}
}

// NewTaskUnit creates a TaskUnit talking to the API described by opts.
func NewTaskUnit(opts api.Options, unitOpts ...TaskUnitOption) *TaskUnit {
	u := &TaskUnit{
		out:        io.Discard,
		logger:     slog.Default(),
		claimDelay: pipeline.DefaultClaimDelay,
		sleep:      clock.Sleep,
		keys:       wallet.NewGenerator(nil),
	}

	for _, opt := range unitOpts {
		opt(u)
	}

	if u.newClient == nil {
		if opts.Logger == nil {
			opts.Logger = u.logger
		}
		u.newClient = func(secret string, p *proxy.Spec) Client {
			return api.New(opts, secret, p)
		}
	}

	return u
}

// Execute implements Executor.
func (u *TaskUnit) Execute(ctx context.Context, cred *model.Credential, p *proxy.Spec) (model.Counts, error) {
	client := u.newClient(cred.Secret, p)

	original := ""
	if p != nil {
		original = p.Original
	}
	run := model.NewCredentialRun(cred, original)

	pl := pipeline.New(pipeline.WithLogger(u.logger))
	pl.AddStep(pipeline.NewClaimTasksStep(client, u.out,
		pipeline.WithClaimDelay(u.claimDelay),
		pipeline.WithClaimSleep(u.sleep),
		pipeline.WithClaimLogger(u.logger),
	))
	if u.wallets != nil {
		pl.AddStep(pipeline.NewLinkWalletStep(client, u.keys, u.wallets, u.out, u.logger))
	}
	pl.AddStep(pipeline.NewPointStatsStep(client, u.out))

	if err := pl.Execute(ctx, run); err != nil {
		return model.Counts{}, err
	}
	return run.Counts, nil
}
