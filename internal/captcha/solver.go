package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
)

// Default solver settings.
const (
	DefaultBaseURL      = "https://api.capsolver.com"
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 30
	DefaultTimeout      = 30 * time.Second

	taskTypeTurnstile = "AntiTurnstileTaskProxyLess"
	statusReady       = "ready"
)

var (
	// ErrNoAPIKey is returned when the solver has no client key.
	ErrNoAPIKey = errors.New("capsolver api key is not set")

	// ErrNotReady is returned by a poll whose task is still processing.
	ErrNotReady = errors.New("captcha task is not ready")

	// ErrEmptySolution is returned when a ready task carries no token.
	ErrEmptySolution = errors.New("captcha solution is empty")
)

// APIError is a non-zero errorId reported by the solver service.
type APIError struct {
	ID          int
	Code        string
	Description string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("capsolver error %d (%s): %s", e.ID, e.Code, e.Description)
}

// Options configures a Solver.
type Options struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     uint
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Solver creates captcha tasks and polls for their result.
type Solver struct {
	rc           *resty.Client
	apiKey       string
	pollInterval time.Duration
	maxPolls     uint
	logger       *slog.Logger
}

// NewSolver creates a Solver. Zero option values fall back to the defaults.
func NewSolver(opts Options) *Solver {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls == 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &Solver{
		rc:           rc,
		apiKey:       opts.APIKey,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		logger:       opts.Logger,
	}
}

type createTaskRequest struct {
	ClientKey string        `json:"clientKey"`
	Task      turnstileTask `json:"task"`
}

type turnstileTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           string `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		Token              string `json:"token"`
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
	} `json:"solution"`
}

// SolveTurnstile solves the Turnstile widget identified by siteKey on pageURL
// and returns the response token.
func (s *Solver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if s.apiKey == "" {
		return "", ErrNoAPIKey
	}

	taskID, err := s.createTask(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	s.logger.Debug("captcha task created", "task_id", taskID)

	token, err := backoff.Retry(ctx, func() (string, error) {
		return s.poll(ctx, taskID)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.pollInterval)),
		backoff.WithMaxTries(s.maxPolls),
	)
	if err != nil {
		return "", fmt.Errorf("failed to get captcha result: %w", err)
	}
	return token, nil
}

func (s *Solver) createTask(ctx context.Context, siteKey, pageURL string) (string, error) {
	var out createTaskResponse
	err := s.post(ctx, "/createTask", createTaskRequest{
		ClientKey: s.apiKey,
		Task: turnstileTask{
			Type:       taskTypeTurnstile,
			WebsiteURL: pageURL,
			WebsiteKey: siteKey,
		},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("failed to create captcha task: %w", err)
	}
	if out.ErrorID != 0 || out.TaskID == "" {
		return "", fmt.Errorf("failed to create captcha task: %w", &APIError{
			ID:          out.ErrorID,
			Code:        out.ErrorCode,
			Description: out.ErrorDescription,
		})
	}
	return out.TaskID, nil
}

// poll fetches the task result once. Solver-side errors are permanent;
// transport failures and unfinished tasks are retried.
func (s *Solver) poll(ctx context.Context, taskID string) (string, error) {
	var out taskResultResponse
	if err := s.post(ctx, "/getTaskResult", taskResultRequest{ClientKey: s.apiKey, TaskID: taskID}, &out); err != nil {
		s.logger.Debug("captcha poll failed", "task_id", taskID, "error", err)
		return "", err
	}

	if out.Status == statusReady {
		token := out.Solution.Token
		if token == "" {
			token = out.Solution.GRecaptchaResponse
		}
		if token == "" {
			return "", backoff.Permanent(ErrEmptySolution)
		}
		return token, nil
	}
	if out.ErrorID != 0 {
		return "", backoff.Permanent(&APIError{
			ID:          out.ErrorID,
			Code:        out.ErrorCode,
			Description: out.ErrorDescription,
		})
	}
	return "", ErrNotReady
}

func (s *Solver) post(ctx context.Context, path string, body, out any) error {
	resp, err := s.rc.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
