package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nao1215/claimbot/internal/model"
)

// CredentialSource loads the credentials processed by one run mode.
type CredentialSource interface {
	// Name identifies the store in status output and run history.
	Name() string

	// Load reads every usable credential. It returns an error wrapping
	// ErrNoCredentials when the store is missing or empty.
	Load() ([]*model.Credential, error)
}

// WalletRecorder persists a wallet address linked to a credential.
type WalletRecorder interface {
	RecordWallet(cred *model.Credential, address string) error
}

// PlainStore is a store with one bearer token per line.
type PlainStore struct {
	path string
}

// NewPlainStore creates a plain credential store backed by path.
func NewPlainStore(path string) *PlainStore {
	return &PlainStore{path: path}
}

// Name returns the file name of the store.
func (s *PlainStore) Name() string {
	return filepath.Base(s.path)
}

// Path returns the file path of the store.
func (s *PlainStore) Path() string {
	return s.path
}

// Load reads every non-blank line as a token labelled Token_N.
func (s *PlainStore) Load() ([]*model.Credential, error) {
	lines, err := ReadLines(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrNoCredentials, s.path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCredentials, s.path)
	}

	creds := make([]*model.Credential, 0, len(lines))
	for i, line := range lines {
		creds = append(creds, &model.Credential{
			Secret: line,
			Label:  fmt.Sprintf("Token_%d", i+1),
		})
	}
	return creds, nil
}

// AccountStore is a store with one JSON account object per line.
// Writes are serialized so a wallet update never races an append.
type AccountStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewAccountStore creates an account store backed by path.
func NewAccountStore(path string, logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountStore{path: path, logger: logger}
}

// Name returns the file name of the store.
func (s *AccountStore) Name() string {
	return filepath.Base(s.path)
}

// Path returns the file path of the store.
func (s *AccountStore) Path() string {
	return s.path
}

// Load reads every complete account. Lines that are not valid JSON or that
// miss the token, email or password are skipped with a warning.
func (s *AccountStore) Load() ([]*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := ReadLines(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrNoCredentials, s.path, err)
	}

	creds := make([]*model.Credential, 0, len(lines))
	for i, line := range lines {
		cred, err := decodeAccount(line)
		if err != nil {
			s.logger.Warn("skipping account line",
				"store", s.Name(),
				"line", i+1,
				"error", err,
			)
			continue
		}
		creds = append(creds, cred)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCredentials, s.path)
	}
	return creds, nil
}

// Append adds a complete account as a new line.
func (s *AccountStore) Append(cred *model.Credential) error {
	if cred.Secret == "" || cred.Email == "" || cred.Password == "" {
		return ErrIncompleteAccount
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // Store path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open account store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append account: %w", err)
	}
	return nil
}

// RecordWallet sets the wallet address of the account whose token and email
// match cred and rewrites the store. Lines that do not decode are kept as is.
func (s *AccountStore) RecordWallet(cred *model.Credential, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read account store: %w", err)
	}

	var (
		out     bytes.Buffer
		updated bool
	)
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		acc, err := decodeAccount(line)
		if err == nil && acc.Secret == cred.Secret && acc.Email == cred.Email {
			acc.WalletAddress = address
			encoded, err := json.Marshal(acc)
			if err != nil {
				return fmt.Errorf("failed to encode account: %w", err)
			}
			line = string(encoded)
			updated = true
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if !updated {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, cred.Email)
	}

	return writeFileAtomic(s.path, out.Bytes())
}

// decodeAccount decodes one account store line.
func decodeAccount(line string) (*model.Credential, error) {
	var cred model.Credential
	if err := json.Unmarshal([]byte(line), &cred); err != nil {
		return nil, fmt.Errorf("invalid account json: %w", err)
	}
	if cred.Secret == "" || cred.Email == "" || cred.Password == "" {
		return nil, ErrIncompleteAccount
	}
	cred.Label = cred.Email
	return &cred, nil
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temporary file: %w", err), tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temporary file: %w", err), os.Remove(tmpName))
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return errors.Join(fmt.Errorf("failed to set permissions: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace %s: %w", path, err), os.Remove(tmpName))
	}
	return nil
}
