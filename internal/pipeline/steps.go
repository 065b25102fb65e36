package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/report"
	"github.com/nao1215/claimbot/internal/wallet"
)

// DefaultClaimDelay is the pause after each claim request.
const DefaultClaimDelay = 2 * time.Second

// TaskClient is the part of the remote API the task steps use.
type TaskClient interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ClaimTask(ctx context.Context, taskID string) error
}

// WalletClient links a wallet address to the credential.
type WalletClient interface {
	UpdateWalletAddress(ctx context.Context, address string) error
}

// StatsClient fetches point statistics.
type StatsClient interface {
	PointStats(ctx context.Context) (*model.PointStats, error)
}

// KeyGenerator creates wallet keypairs.
type KeyGenerator interface {
	Generate() (*wallet.Keypair, error)
}

// WalletRecorder persists a linked wallet address.
type WalletRecorder interface {
	RecordWallet(cred *model.Credential, address string) error
}

// ClaimTasksStep lists the credential's tasks and claims each of them.
// Listing is critical: its failure is a request-level failure of the whole
// attempt. Individual claim failures are only counted.
type ClaimTasksStep struct {
	client TaskClient
	out    io.Writer
	status *report.SimpleWriter
	delay  time.Duration
	sleep  clock.SleepFunc
	logger *slog.Logger
}

// ClaimTasksStepOption configures a ClaimTasksStep.
type ClaimTasksStepOption func(*ClaimTasksStep)

// WithClaimDelay sets the pause after each claim.
func WithClaimDelay(d time.Duration) ClaimTasksStepOption {
	return func(s *ClaimTasksStep) {
		s.delay = d
	}
}

// WithClaimSleep replaces the sleep function, for tests.
func WithClaimSleep(sleep clock.SleepFunc) ClaimTasksStepOption {
	return func(s *ClaimTasksStep) {
		s.sleep = sleep
	}
}

// WithClaimLogger sets a custom logger for the claim step.
func WithClaimLogger(logger *slog.Logger) ClaimTasksStepOption {
	return func(s *ClaimTasksStep) {
		s.logger = logger
	}
}

// NewClaimTasksStep creates a claim step writing status lines to out.
func NewClaimTasksStep(client TaskClient, out io.Writer, opts ...ClaimTasksStepOption) *ClaimTasksStep {
	s := &ClaimTasksStep{
		client: client,
		out:    out,
		status: report.NewSimpleWriter(out),
		delay:  DefaultClaimDelay,
		sleep:  clock.Sleep,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ClaimTasksStep) Name() string {
	return "claim-tasks"
}

// Do executes the claim step.
func (s *ClaimTasksStep) Do(ctx context.Context, run *model.CredentialRun) error {
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	run.Tasks = tasks
	fmt.Fprintf(s.out, "Found %d tasks for %s\n", len(tasks), run.Label())

	for _, task := range tasks {
		_, _ = s.status.WriteTask(task) //nolint:errcheck // Status output is best effort

		// The pre-claim status decides how a failed claim is counted.
		alreadyClaimed := task.IsClaimed()
		if err := s.client.ClaimTask(ctx, task.ID); err != nil {
			if alreadyClaimed {
				run.Counts.AlreadyClaimed++
			} else {
				run.Counts.Failed++
			}
			s.logger.Debug("claim failed",
				"credential", run.Label(),
				"task", task.ID,
				"status", task.Status,
				"error", err,
			)
		} else {
			run.Counts.Claimed++
			fmt.Fprintf(s.out, "Task %s claimed successfully\n", task.ID)
		}

		if err := s.sleep(ctx, s.delay); err != nil {
			return err
		}
	}

	_, _ = s.status.WriteClaimSummary(run.Label(), run.Counts) //nolint:errcheck // Status output is best effort
	return nil
}

// LinkWalletStep generates and links a wallet for credentials without one.
type LinkWalletStep struct {
	client    WalletClient
	generator KeyGenerator
	recorder  WalletRecorder
	out       io.Writer
	logger    *slog.Logger
}

// NewLinkWalletStep creates a wallet step. recorder persists the linked
// address; it may be nil when the credential store cannot hold wallets.
func NewLinkWalletStep(client WalletClient, generator KeyGenerator, recorder WalletRecorder, out io.Writer, logger *slog.Logger) *LinkWalletStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkWalletStep{
		client:    client,
		generator: generator,
		recorder:  recorder,
		out:       out,
		logger:    logger,
	}
}

// Name returns the step name.
func (s *LinkWalletStep) Name() string {
	return "link-wallet"
}

// NonCritical implements NonCritical.
func (s *LinkWalletStep) NonCritical() bool {
	return true
}

// Do executes the wallet step.
func (s *LinkWalletStep) Do(ctx context.Context, run *model.CredentialRun) error {
	cred := run.Credential
	if cred.HasWallet() {
		fmt.Fprintf(s.out, "Wallet already linked for %s: %s\n", run.Label(), cred.WalletAddress)
		return nil
	}

	fmt.Fprintf(s.out, "No wallet linked for %s. Generating new wallet...\n", run.Label())
	kp, err := s.generator.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Generated new wallet:\n  Public Key:  %s\n  Private Key: %s (save it now, it is not stored)\n", kp.Address, kp.Secret)

	if err := s.client.UpdateWalletAddress(ctx, kp.Address); err != nil {
		return fmt.Errorf("failed to link wallet: %w", err)
	}
	fmt.Fprintf(s.out, "Wallet %s linked successfully for %s\n", kp.Address, run.Label())

	if s.recorder != nil {
		if err := s.recorder.RecordWallet(cred, kp.Address); err != nil {
			return fmt.Errorf("failed to persist wallet: %w", err)
		}
	}
	cred.WalletAddress = kp.Address
	run.LinkedWallet = kp.Address
	return nil
}

// PointStatsStep fetches the statistics and prints the balance block.
type PointStatsStep struct {
	client StatsClient
	out    *report.SimpleWriter
}

// NewPointStatsStep creates a statistics step writing to out.
func NewPointStatsStep(client StatsClient, out io.Writer) *PointStatsStep {
	return &PointStatsStep{client: client, out: report.NewSimpleWriter(out)}
}

// Name returns the step name.
func (s *PointStatsStep) Name() string {
	return "point-stats"
}

// NonCritical implements NonCritical.
func (s *PointStatsStep) NonCritical() bool {
	return true
}

// Do executes the statistics step.
func (s *PointStatsStep) Do(ctx context.Context, run *model.CredentialRun) error {
	stats, err := s.client.PointStats(ctx)
	if err != nil {
		_, _ = s.out.WriteBalance(run.Label(), nil) //nolint:errcheck // Status output is best effort
		return err
	}
	run.Stats = stats
	_, _ = s.out.WriteBalance(run.Label(), stats) //nolint:errcheck // Status output is best effort
	return nil
}
