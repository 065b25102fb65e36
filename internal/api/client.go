package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
)

// Default connection settings of the remote service.
const (
	DefaultBaseURL   = "https://api2.flow3.tech"
	DefaultOrigin    = "https://app.flow3.tech"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

// Endpoint paths.
const (
	pathListTasks     = "/api/task/get-user-task"
	pathClaimTask     = "/api/task/claim-task"
	pathPointStats    = "/api/user/get-point-stats"
	pathRegister      = "/api/user/register"
	pathUpdateWallet  = "/api/user/update-wallet-address"
	resultSuccess     = "success"
	maxErrorBodyBytes = 512
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// Origin is sent as the Origin header and, with a trailing slash, as the Referer.
	Origin string

	UserAgent string

	// Timeout bounds the TCP connect and the TLS handshake. Once connected,
	// a request runs until it completes or its context ends.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		BaseURL:   DefaultBaseURL,
		Origin:    DefaultOrigin,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Logger:    slog.Default(),
	}
}

// Client performs authenticated calls for one credential.
type Client struct {
	rc     *resty.Client
	proxy  *proxy.Spec
	logger *slog.Logger
}

// New creates a client for secret. When p is non-nil every request is
// tunnelled through it; otherwise the client connects directly.
// An empty secret creates an unauthenticated client, used for registration.
func New(opts Options, secret string, p *proxy.Spec) *Client {
	opts = withDefaults(opts)

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTransport(newTransport(opts.Timeout)).
		SetRetryCount(0).
		SetLogger(restyLogger{logger: opts.Logger}).
		SetHeaders(map[string]string{
			"User-Agent":         opts.UserAgent,
			"Accept":             "application/json, text/plain, */*",
			"Content-Type":       "application/json",
			"Accept-Language":    "en-US,en;q=0.5",
			"Origin":             opts.Origin,
			"Referer":            strings.TrimRight(opts.Origin, "/") + "/",
			"Sec-Ch-Ua":          `"Brave";v="135", "Not-A.Brand";v="8", "Chromium";v="135"`,
			"Sec-Ch-Ua-Mobile":   "?0",
			"Sec-Ch-Ua-Platform": "Windows",
			"Sec-Fetch-Dest":     "empty",
			"Sec-Fetch-Mode":     "cors",
			"Sec-Fetch-Site":     "same-site",
			"Sec-Gpc":            "1",
			"Priority":           "u=1, i",
		})
	if secret != "" {
		rc.SetAuthToken(secret)
	}

	if p != nil {
		rc.SetProxy(p.Address)
		opts.Logger.Info("using proxy", "proxy", p.Address, "refresh_url", p.RefreshURL)
	} else {
		rc.RemoveProxy()
		opts.Logger.Info("no proxy used for this request")
	}

	return &Client{rc: rc, proxy: p, logger: opts.Logger}
}

// newTransport returns a transport whose dial and TLS handshake are bounded
// by timeout. The proxy is set on it by New.
func newTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.Origin == "" {
		opts.Origin = def.Origin
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	return opts
}

// Proxy returns the proxy the client is bound to, or nil for direct.
func (c *Client) Proxy() *proxy.Spec {
	return c.proxy
}

// envelope is the common response wrapper of the service.
type envelope[T any] struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ListTasks returns every task of the credential.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	const op = "list tasks"

	resp, err := c.do(ctx, op, http.MethodGet, pathListTasks, nil)
	if err != nil {
		return nil, err
	}

	var env envelope[[]model.Task]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &ApplicationError{Op: op, Body: truncate(resp.Body())}
	}
	return env.Data, nil
}

// ClaimTask claims the reward of one task.
func (c *Client) ClaimTask(ctx context.Context, taskID string) error {
	const op = "claim task"

	resp, err := c.do(ctx, op, http.MethodPost, pathClaimTask, map[string]string{"taskId": taskID})
	if err != nil {
		return err
	}
	return expectSuccess(op, resp.Body())
}

// PointStats returns the reward statistics of the credential.
func (c *Client) PointStats(ctx context.Context) (*model.PointStats, error) {
	const op = "get point stats"

	resp, err := c.do(ctx, op, http.MethodGet, pathPointStats, nil)
	if err != nil {
		return nil, err
	}

	var env envelope[*model.PointStats]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &ApplicationError{Op: op, Body: truncate(resp.Body())}
	}
	if env.Data == nil {
		return nil, ErrNoPointStats
	}
	return env.Data, nil
}

// UpdateWalletAddress links a public wallet address to the credential.
func (c *Client) UpdateWalletAddress(ctx context.Context, address string) error {
	const op = "update wallet address"

	resp, err := c.do(ctx, op, http.MethodPost, pathUpdateWallet, map[string]string{"walletAddress": address})
	if err != nil {
		return err
	}
	return expectSuccess(op, resp.Body())
}

// Registration is the payload of a new account.
type Registration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode"`
	CaptchaToken string `json:"captchaToken"`
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	const op = "register"

	resp, err := c.do(ctx, op, http.MethodPost, pathRegister, reg)
	if err != nil {
		return "", err
	}

	var env envelope[struct {
		AccessToken string `json:"accessToken"`
	}]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return "", &ApplicationError{Op: op, Body: truncate(resp.Body())}
	}
	if env.Result != resultSuccess || env.Data.AccessToken == "" {
		return "", &ApplicationError{Op: op, Result: env.Result, Body: truncate(resp.Body())}
	}
	return env.Data.AccessToken, nil
}

// do sends one request and classifies transport and status failures.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*resty.Response, error) {
	req := c.rc.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		te := &TransportError{Op: op, Err: err}
		if c.proxy != nil {
			te.Proxy = c.proxy.Original
		}
		return nil, te
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode(), Body: truncate(resp.Body())}
	}

	c.logger.Debug("api call completed",
		"op", op,
		"status", resp.StatusCode(),
		"duration", resp.Time(),
	)
	return resp, nil
}

// expectSuccess checks the result field of a command response.
func expectSuccess(op string, body []byte) error {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return &ApplicationError{Op: op, Body: truncate(body)}
	}
	if env.Result != resultSuccess {
		return &ApplicationError{Op: op, Result: env.Result, Body: truncate(body)}
	}
	return nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes] + "..."
	}
	return s
}
