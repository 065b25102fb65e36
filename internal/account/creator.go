// Package account registers new accounts and appends them to the account store.
package account

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
)

// Default registration settings.
const (
	DefaultSiteKey      = "0x4AAAAAABDpOwOAt5nJkp9b"
	DefaultPageURL      = "https://app.flow3.tech/"
	DefaultReferralCode = "SKvUHwtgvy"
	DefaultAccountDelay = 2 * time.Second
)

var (
	// ErrInvalidCount is returned when asked to create fewer than one account.
	ErrInvalidCount = errors.New("account count must be at least 1")

	// ErrMissingInput is recorded when an email or password is left empty.
	ErrMissingInput = errors.New("email and password are required")
)

// Registrar registers an account and returns its access token.
type Registrar interface {
	Register(ctx context.Context, reg api.Registration) (string, error)
}

// CaptchaSolver solves a Turnstile challenge.
type CaptchaSolver interface {
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Appender stores a newly created credential.
type Appender interface {
	Append(cred *model.Credential) error
}

// Result counts the outcome of a creation run.
type Result struct {
	Created int
	Failed  int
}

// Creator runs the interactive account creation flow.
type Creator struct {
	registrar Registrar
	solver    CaptchaSolver
	store     Appender

	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
	sleep  clock.SleepFunc
	delay  time.Duration

	siteKey  string
	pageURL  string
	referral string
}

// Option configures a Creator.
type Option func(*Creator)

// WithIO sets the prompt input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Creator) {
		c.in = bufio.NewReader(in)
		c.out = out
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Creator) {
		c.logger = logger
	}
}

// WithSleep replaces the sleep function, for tests.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(c *Creator) {
		c.sleep = sleep
	}
}

// WithDelay sets the pause between two accounts.
func WithDelay(d time.Duration) Option {
	return func(c *Creator) {
		c.delay = d
	}
}

// WithCaptchaTarget sets the Turnstile site key and page URL.
func WithCaptchaTarget(siteKey, pageURL string) Option {
	return func(c *Creator) {
		c.siteKey = siteKey
		c.pageURL = pageURL
	}
}

// WithReferralCode sets the referral code sent with every registration.
func WithReferralCode(code string) Option {
	return func(c *Creator) {
		c.referral = code
	}
}

// NewCreator creates a Creator.
func NewCreator(registrar Registrar, solver CaptchaSolver, store Appender, opts ...Option) *Creator {
	c := &Creator{
		registrar: registrar,
		solver:    solver,
		store:     store,
		in:        bufio.NewReader(strings.NewReader("")),
		out:       io.Discard,
		logger:    slog.Default(),
		sleep:     clock.Sleep,
		delay:     DefaultAccountDelay,
		siteKey:   DefaultSiteKey,
		pageURL:   DefaultPageURL,
		referral:  DefaultReferralCode,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Create prompts for and registers count accounts, one after another.
// A failed account is counted and the run moves on. Running out of input or
// cancelling ctx stops the run and returns the partial result with the error.
func (c *Creator) Create(ctx context.Context, count int) (Result, error) {
	var res Result
	if count < 1 {
		return res, ErrInvalidCount
	}

	for i := 1; i <= count; i++ {
		fmt.Fprintf(c.out, "\nCreating account %d/%d\n", i, count)

		email, err := c.prompt("Email: ")
		if err != nil {
			return res, err
		}
		password, err := c.prompt("Password: ")
		if err != nil {
			return res, err
		}

		if err := c.createOne(ctx, email, password); err != nil {
			if ctx.Err() != nil {
				c.writeSummary(res)
				return res, ctx.Err()
			}
			res.Failed++
			fmt.Fprintf(c.out, "Failed to create account %s: %v\n", email, err)
			c.logger.Warn("account creation failed", "email", email, "error", err)
		} else {
			res.Created++
			fmt.Fprintf(c.out, "Account %s created and saved\n", email)
		}

		if i < count {
			if err := c.sleep(ctx, c.delay); err != nil {
				c.writeSummary(res)
				return res, err
			}
		}
	}

	c.writeSummary(res)
	return res, nil
}

func (c *Creator) createOne(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingInput
	}

	fmt.Fprintln(c.out, "Solving captcha...")
	captchaToken, err := c.solver.SolveTurnstile(ctx, c.siteKey, c.pageURL)
	if err != nil {
		return fmt.Errorf("failed to solve captcha: %w", err)
	}

	fmt.Fprintln(c.out, "Registering account...")
	token, err := c.registrar.Register(ctx, api.Registration{
		Email:        email,
		Password:     password,
		ReferralCode: c.referral,
		CaptchaToken: captchaToken,
	})
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}

	cred := &model.Credential{
		Secret:   token,
		Label:    email,
		Email:    email,
		Password: password,
	}
	if err := c.store.Append(cred); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// prompt writes label and reads one trimmed line.
func (c *Creator) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (c *Creator) writeSummary(res Result) {
	fmt.Fprintf(c.out, "\nAccount creation summary:\n  Created: %d\n  Failed:  %d\n", res.Created, res.Failed)
}
