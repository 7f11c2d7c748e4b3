package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account holds the API credentials for one Telegram account, keyed by
// phone number.
type Account struct {
	Phone        string    `json:"phone"`
	APIID        int       `json:"api_id"`
	APIHash      string    `json:"api_hash"`
	SessionName  string    `json:"session_name,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

func (a *Account) validate() error {
	switch {
	case a.Phone == "":
		return errors.New("phone number is required")
	case a.APIID == 0:
		return errors.New("API id is required")
	case a.APIHash == "":
		return errors.New("API hash is required")
	}
	return nil
}

// CredentialStore is one backend for persisting accounts. Lookups are
// keyed by phone number.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(phone string) (*Account, error)
	List() ([]*Account, error)
	Delete(phone string) error
	Exists(phone string) bool
}

// Manager layers credential stores with fallback: system keychain when
// available, encrypted file otherwise, environment variables last.
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config directory: %w", err)
	}
	vault, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("open credential vault: %w", err)
	}
	stores = append(stores, vault, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first store that accepts them.
func (m *Manager) Store(account *Account) error {
	if err := account.validate(); err != nil {
		return err
	}
	account.LastModified = time.Now()

	var lastErr error
	for _, s := range m.stores {
		lastErr = s.Store(account)
		if lastErr == nil {
			return nil
		}
	}
	if lastErr != nil {
		return fmt.Errorf("store credentials: %w", lastErr)
	}
	return errors.New("no credential stores available")
}

// Retrieve gets credentials from the first store that has them.
func (m *Manager) Retrieve(phone string) (*Account, error) {
	for _, s := range m.stores {
		if acc, err := s.Retrieve(phone); err == nil && acc != nil {
			return acc, nil
		}
	}
	return nil, fmt.Errorf("no credentials for %s", phone)
}

// RetrieveDefault gets credentials for the environment account or the
// first stored one.
func (m *Manager) RetrieveDefault() (*Account, error) {
	if env, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if acc, err := env.Retrieve(""); err == nil && acc != nil {
			return acc, nil
		}
	}

	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, errors.New("no credentials found")
}

// List returns all stored accounts across stores, deduplicated by phone
// with the most recently modified version winning.
func (m *Manager) List() ([]*Account, error) {
	byPhone := map[string]*Account{}
	for _, s := range m.stores {
		accounts, err := s.List()
		if err != nil {
			continue
		}
		for _, acc := range accounts {
			prev, seen := byPhone[acc.Phone]
			if !seen || acc.LastModified.After(prev.LastModified) {
				byPhone[acc.Phone] = acc
			}
		}
	}

	out := make([]*Account, 0, len(byPhone))
	for _, acc := range byPhone {
		out = append(out, acc)
	}
	return out, nil
}

// Delete removes credentials from every store that has them.
func (m *Manager) Delete(phone string) error {
	var deleted bool
	var lastErr error
	for _, s := range m.stores {
		if err := s.Delete(phone); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("delete credentials: %w", lastErr)
	}
	return fmt.Errorf("no credentials for %s", phone)
}

// getConfigDir returns the per-user directory holding the credential
// vault and passphrase, creating it on first use.
func getConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "tgreach")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy with the API hash masked for display.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.APIHash = maskString(account.APIHash)
	return &masked
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func parseAPIID(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
