package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "claimbot"

	DefaultCredentialsFile   = "token.txt"
	DefaultAccountsFile      = "newtoken.txt"
	DefaultProxiesFile       = "proxies.txt"
	DefaultFailedProxiesFile = "failed_proxies.txt"

	DefaultAPIBaseURL = "https://api2.flow3.tech"
	DefaultOrigin     = "https://app.flow3.tech"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

	// DefaultTimeout bounds connecting to the service or a proxy.
	DefaultTimeout = 30 * time.Second

	DefaultClaimDelay      = 2 * time.Second
	DefaultRetryBackoff    = 2 * time.Second
	DefaultCredentialDelay = 5 * time.Second
	DefaultCycleDelay      = 30 * time.Second
	DefaultErrorPause      = 30 * time.Second
	DefaultAccountDelay    = 2 * time.Second

	// DefaultMenuPause is the wait before the interactive menu is shown again.
	DefaultMenuPause = 5 * time.Second

	DefaultCaptchaBaseURL = "https://api.capsolver.com"
	DefaultSiteKey        = "0x4AAAAAABDpOwOAt5nJkp9b"
	DefaultPageURL        = "https://app.flow3.tech/"
	DefaultReferralCode   = "SKvUHwtgvy"

	// CaptchaAPIKeyEnv is the environment variable holding the captcha service key.
	CaptchaAPIKeyEnv = "CAPSOLVER_API_KEY"

	// DefaultHistoryLimit is the number of cycles shown by the history command.
	DefaultHistoryLimit = 20
)

// Log formats accepted by --log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for claimbot.
// It is populated from defaults, the configuration file, the environment
// and CLI flags, in that order.
type Config struct {
	// CredentialsFile is the plain store with one bearer token per line.
	CredentialsFile string

	// AccountsFile is the account store with one JSON object per line.
	AccountsFile string

	// ProxiesFile holds one raw proxy line per line. A missing file means
	// every request is made directly.
	ProxiesFile string

	// FailedProxiesFile receives rejected and failed proxy lines. It is
	// never read back.
	FailedProxiesFile string

	// UseAccounts selects the account store instead of the plain store.
	// Wallet linking is only enabled for the account store.
	UseAccounts bool

	APIBaseURL string
	Origin     string
	UserAgent  string

	// Timeout bounds the TCP connect and the TLS handshake of each request.
	Timeout time.Duration

	ClaimDelay      time.Duration
	RetryBackoff    time.Duration
	CredentialDelay time.Duration
	CycleDelay      time.Duration
	ErrorPause      time.Duration
	AccountDelay    time.Duration
	MenuPause       time.Duration

	// MaxCycles stops the claim loop after this many cycles. Zero runs forever.
	MaxCycles int

	// CaptchaAPIKey is read from CAPSOLVER_API_KEY. It is only required
	// for account creation.
	CaptchaAPIKey  string
	CaptchaBaseURL string
	SiteKey        string
	PageURL        string
	ReferralCode   string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogFormat selects text or JSON log records on stderr.
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the working, XDG config and home
	// directories.
	ConfigFilePath string

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory (~/.local/share/claimbot on Linux).
	DBDir string

	// SaveToDB records cycles and rejected proxies in the history database.
	SaveToDB bool

	// JSONReport and MarkdownReport select the history output format.
	// They are mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output file path for the history report.
	ReportFile string

	// HistoryLimit is the number of recent cycles in the history report.
	HistoryLimit int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		CredentialsFile:   DefaultCredentialsFile,
		AccountsFile:      DefaultAccountsFile,
		ProxiesFile:       DefaultProxiesFile,
		FailedProxiesFile: DefaultFailedProxiesFile,
		APIBaseURL:        DefaultAPIBaseURL,
		Origin:            DefaultOrigin,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		ClaimDelay:        DefaultClaimDelay,
		RetryBackoff:      DefaultRetryBackoff,
		CredentialDelay:   DefaultCredentialDelay,
		CycleDelay:        DefaultCycleDelay,
		ErrorPause:        DefaultErrorPause,
		AccountDelay:      DefaultAccountDelay,
		MenuPause:         DefaultMenuPause,
		CaptchaBaseURL:    DefaultCaptchaBaseURL,
		SiteKey:           DefaultSiteKey,
		PageURL:           DefaultPageURL,
		ReferralCode:      DefaultReferralCode,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		HistoryLimit:      DefaultHistoryLimit,
		LogFormat:         LogFormatText,
	}
}

// XDGDataDir returns the XDG data directory for claimbot.
// On Linux: ~/.local/share/claimbot
// On macOS: ~/Library/Application Support/claimbot
// On Windows: %LOCALAPPDATA%\claimbot
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for claimbot.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyEnv reads environment settings through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv(CaptchaAPIKeyEnv); key != "" {
		c.CaptchaAPIKey = key
	}
}

// CredentialStorePath returns the path of the selected credential store.
func (c *Config) CredentialStorePath() string {
	if c.UseAccounts {
		return c.AccountsFile
	}
	return c.CredentialsFile
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.CredentialsFile == "" || c.AccountsFile == "" || c.ProxiesFile == "" || c.FailedProxiesFile == "" {
		return ErrEmptyFilePath
	}

	if c.APIBaseURL == "" {
		return ErrEmptyBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	for _, d := range []time.Duration{
		c.ClaimDelay,
		c.RetryBackoff,
		c.CredentialDelay,
		c.CycleDelay,
		c.ErrorPause,
		c.AccountDelay,
		c.MenuPause,
	} {
		if d < 0 {
			return ErrInvalidDelay
		}
	}

	if c.MaxCycles < 0 {
		return ErrInvalidMaxCycles
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.HistoryLimit < 0 {
		return ErrInvalidHistoryLimit
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateAccountCreation checks the settings needed to register accounts.
func (c *Config) ValidateAccountCreation() error {
	if c.CaptchaAPIKey == "" {
		return ErrMissingCaptchaKey
	}
	if c.SiteKey == "" || c.PageURL == "" {
		return ErrMissingCaptchaTarget
	}
	return nil
}
