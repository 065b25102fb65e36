package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"credentials file", cfg.CredentialsFile, "token.txt"},
		{"accounts file", cfg.AccountsFile, "newtoken.txt"},
		{"proxies file", cfg.ProxiesFile, "proxies.txt"},
		{"failed proxies file", cfg.FailedProxiesFile, "failed_proxies.txt"},
		{"api base url", cfg.APIBaseURL, "https://api2.flow3.tech"},
		{"claim delay", cfg.ClaimDelay, 2 * time.Second},
		{"retry backoff", cfg.RetryBackoff, 2 * time.Second},
		{"credential delay", cfg.CredentialDelay, 5 * time.Second},
		{"cycle delay", cfg.CycleDelay, 30 * time.Second},
		{"error pause", cfg.ErrorPause, 30 * time.Second},
		{"account delay", cfg.AccountDelay, 2 * time.Second},
		{"menu pause", cfg.MenuPause, 5 * time.Second},
		{"site key", cfg.SiteKey, "0x4AAAAAABDpOwOAt5nJkp9b"},
		{"referral code", cfg.ReferralCode, "SKvUHwtgvy"},
		{"max cycles", cfg.MaxCycles, 0},
		{"save to db", cfg.SaveToDB, true},
		{"use accounts", cfg.UseAccounts, false},
		{"history limit", cfg.HistoryLimit, DefaultHistoryLimit},
		{"log format", cfg.LogFormat, LogFormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if !strings.HasSuffix(cfg.DBDir, AppName) {
		t.Errorf("expected DBDir under the XDG data dir, got %s", cfg.DBDir)
	}
	if cfg.CaptchaAPIKey != "" {
		t.Error("captcha key must not have a default")
	}
}

// TestConfigValidate tests the Validate method, one rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"zero delays are valid", func(c *Config) { c.ClaimDelay, c.CycleDelay = 0, 0 }, nil},
		{"empty proxies path", func(c *Config) { c.ProxiesFile = "" }, ErrEmptyFilePath},
		{"empty accounts path", func(c *Config) { c.AccountsFile = "" }, ErrEmptyFilePath},
		{"empty base url", func(c *Config) { c.APIBaseURL = "" }, ErrEmptyBaseURL},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative claim delay", func(c *Config) { c.ClaimDelay = -time.Second }, ErrInvalidDelay},
		{"negative menu pause", func(c *Config) { c.MenuPause = -time.Second }, ErrInvalidDelay},
		{"negative max cycles", func(c *Config) { c.MaxCycles = -1 }, ErrInvalidMaxCycles},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative history limit", func(c *Config) { c.HistoryLimit = -1 }, ErrInvalidHistoryLimit},
		{"json log format", func(c *Config) { c.LogFormat = LogFormatJSON }, nil},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestValidateAccountCreation tests the captcha prerequisites.
func TestValidateAccountCreation(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if err := cfg.ValidateAccountCreation(); !errors.Is(err, ErrMissingCaptchaKey) {
		t.Errorf("expected ErrMissingCaptchaKey, got %v", err)
	}

	cfg.ApplyEnv(func(key string) string {
		if key == CaptchaAPIKeyEnv {
			return "CAP-123"
		}
		return ""
	})
	if cfg.CaptchaAPIKey != "CAP-123" {
		t.Fatalf("expected key from environment, got %q", cfg.CaptchaAPIKey)
	}
	if err := cfg.ValidateAccountCreation(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.SiteKey = ""
	if err := cfg.ValidateAccountCreation(); !errors.Is(err, ErrMissingCaptchaTarget) {
		t.Errorf("expected ErrMissingCaptchaTarget, got %v", err)
	}
}

// TestApplyEnvKeepsExistingKey tests that an unset variable does not clear the key.
func TestApplyEnvKeepsExistingKey(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.CaptchaAPIKey = "existing"
	cfg.ApplyEnv(func(string) string { return "" })
	if cfg.CaptchaAPIKey != "existing" {
		t.Errorf("expected key to be kept, got %q", cfg.CaptchaAPIKey)
	}
}

// TestCredentialStorePath tests store selection.
func TestCredentialStorePath(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if cfg.CredentialStorePath() != DefaultCredentialsFile {
		t.Errorf("expected plain store, got %s", cfg.CredentialStorePath())
	}
	cfg.UseAccounts = true
	if cfg.CredentialStorePath() != DefaultAccountsFile {
		t.Errorf("expected account store, got %s", cfg.CredentialStorePath())
	}
}

// TestLoadConfigFile tests YAML loading and applying.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads and applies every section", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".claimbot")
		content := `files:
  credentials: /data/tokens.txt
  proxies: /data/proxies.txt
api:
  baseURL: http://127.0.0.1:9999
  timeout: 10s
delays:
  claim: 500ms
  cycle: 1m30s
captcha:
  referralCode: ABC
maxCycles: 3
dbDir: /data/db
logFormat: json
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.CredentialsFile != "/data/tokens.txt" || cfg.ProxiesFile != "/data/proxies.txt" {
			t.Errorf("unexpected files %s %s", cfg.CredentialsFile, cfg.ProxiesFile)
		}
		if cfg.AccountsFile != DefaultAccountsFile {
			t.Errorf("unset values must keep defaults, got %s", cfg.AccountsFile)
		}
		if cfg.APIBaseURL != "http://127.0.0.1:9999" || cfg.Timeout != 10*time.Second {
			t.Errorf("unexpected api settings %s %v", cfg.APIBaseURL, cfg.Timeout)
		}
		if cfg.ClaimDelay != 500*time.Millisecond || cfg.CycleDelay != 90*time.Second {
			t.Errorf("unexpected delays %v %v", cfg.ClaimDelay, cfg.CycleDelay)
		}
		if cfg.LogFormat != LogFormatJSON {
			t.Errorf("expected json log format, got %s", cfg.LogFormat)
		}
		if cfg.CredentialDelay != DefaultCredentialDelay {
			t.Errorf("unset delay must keep default, got %v", cfg.CredentialDelay)
		}
		if cfg.ReferralCode != "ABC" || cfg.SiteKey != DefaultSiteKey {
			t.Errorf("unexpected captcha settings %s %s", cfg.ReferralCode, cfg.SiteKey)
		}
		if cfg.MaxCycles != 3 || cfg.DBDir != "/data/db" {
			t.Errorf("unexpected loop settings %d %s", cfg.MaxCycles, cfg.DBDir)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".claimbot")
		if err := os.WriteFile(path, []byte("delays: [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".claimbot")
		if err := os.WriteFile(path, []byte("delays:\n  claim: soon\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected duration error")
		}
	})
}

// TestLoadConfigFileStrict tests unknown keys and empty files.
func TestLoadConfigFileStrict(t *testing.T) {
	t.Parallel()

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".claimbot")
		if err := os.WriteFile(path, []byte("delays:\n  claims: 1s\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "claims") {
			t.Errorf("expected an error naming the unknown key, got %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".claimbot")
		if err := os.WriteFile(path, []byte("# nothing set\n"), 0600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)
		if cfg.CredentialsFile != DefaultCredentialsFile || cfg.Timeout != DefaultTimeout {
			t.Errorf("empty file must keep defaults, got %+v", cfg)
		}
	})
}

// TestFindConfigFile tests explicit path lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("maxCycles: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
	if got := FindConfigFile(filepath.Join(dir, "missing.yaml")); got != "" {
		t.Errorf("expected empty path for a missing explicit file, got %s", got)
	}
}

// TestFirstExisting tests the search order of the settings file.
func TestFirstExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	if err := os.WriteFile(second, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(first, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if got := firstExisting(filepath.Join(dir, "missing"), first, second); got != first {
		t.Errorf("expected %s, got %s", first, got)
	}
	if got := firstExisting(dir, second); got != second {
		t.Errorf("directories must be skipped, got %s", got)
	}
	if got := firstExisting(filepath.Join(dir, "missing")); got != "" {
		t.Errorf("expected no match, got %s", got)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	want := filepath.Join(XDGConfigDir(), XDGConfigFile)
	paths := searchPaths()
	for _, p := range paths {
		if p == want {
			return
		}
	}
	t.Errorf("expected %s in %v", want, paths)
}
