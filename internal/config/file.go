package config

import "time"

// FilesConfig holds the store file paths of the configuration file.
type FilesConfig struct {
	Credentials   string `yaml:"credentials,omitempty"`
	Accounts      string `yaml:"accounts,omitempty"`
	Proxies       string `yaml:"proxies,omitempty"`
	FailedProxies string `yaml:"failedProxies,omitempty"`
}

// APIConfig holds the remote service settings of the configuration file.
type APIConfig struct {
	BaseURL   string        `yaml:"baseURL,omitempty"`
	Origin    string        `yaml:"origin,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// DelaysConfig holds the loop pauses of the configuration file.
// Values use Go duration syntax, e.g. "2s" or "1m30s".
type DelaysConfig struct {
	Claim      time.Duration `yaml:"claim,omitempty"`
	Retry      time.Duration `yaml:"retry,omitempty"`
	Credential time.Duration `yaml:"credential,omitempty"`
	Cycle      time.Duration `yaml:"cycle,omitempty"`
	Error      time.Duration `yaml:"error,omitempty"`
	Account    time.Duration `yaml:"account,omitempty"`
	Menu       time.Duration `yaml:"menu,omitempty"`
}

// CaptchaConfig holds the captcha settings of the configuration file.
// The API key is never read from the file; it comes from CAPSOLVER_API_KEY.
type CaptchaConfig struct {
	BaseURL      string `yaml:"baseURL,omitempty"`
	SiteKey      string `yaml:"siteKey,omitempty"`
	PageURL      string `yaml:"pageURL,omitempty"`
	ReferralCode string `yaml:"referralCode,omitempty"`
}

// File represents the structure of the .claimbot configuration file.
// Zero values leave the corresponding defaults untouched.
type File struct {
	Files   FilesConfig   `yaml:"files,omitempty"`
	API     APIConfig     `yaml:"api,omitempty"`
	Delays  DelaysConfig  `yaml:"delays,omitempty"`
	Captcha CaptchaConfig `yaml:"captcha,omitempty"`

	// MaxCycles stops the claim loop after this many cycles.
	MaxCycles int `yaml:"maxCycles,omitempty"`

	// DBDir overrides the history database directory.
	DBDir string `yaml:"dbDir,omitempty"`

	// LogFormat is text or json.
	LogFormat string `yaml:"logFormat,omitempty"`
}

// Apply overrides cfg with every non-zero value of the file.
func (cf *File) Apply(cfg *Config) {
	setString(&cfg.CredentialsFile, cf.Files.Credentials)
	setString(&cfg.AccountsFile, cf.Files.Accounts)
	setString(&cfg.ProxiesFile, cf.Files.Proxies)
	setString(&cfg.FailedProxiesFile, cf.Files.FailedProxies)

	setString(&cfg.APIBaseURL, cf.API.BaseURL)
	setString(&cfg.Origin, cf.API.Origin)
	setString(&cfg.UserAgent, cf.API.UserAgent)
	setDuration(&cfg.Timeout, cf.API.Timeout)

	setDuration(&cfg.ClaimDelay, cf.Delays.Claim)
	setDuration(&cfg.RetryBackoff, cf.Delays.Retry)
	setDuration(&cfg.CredentialDelay, cf.Delays.Credential)
	setDuration(&cfg.CycleDelay, cf.Delays.Cycle)
	setDuration(&cfg.ErrorPause, cf.Delays.Error)
	setDuration(&cfg.AccountDelay, cf.Delays.Account)
	setDuration(&cfg.MenuPause, cf.Delays.Menu)

	setString(&cfg.CaptchaBaseURL, cf.Captcha.BaseURL)
	setString(&cfg.SiteKey, cf.Captcha.SiteKey)
	setString(&cfg.PageURL, cf.Captcha.PageURL)
	setString(&cfg.ReferralCode, cf.Captcha.ReferralCode)

	if cf.MaxCycles != 0 {
		cfg.MaxCycles = cf.MaxCycles
	}
	setString(&cfg.DBDir, cf.DBDir)
	setString(&cfg.LogFormat, cf.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
