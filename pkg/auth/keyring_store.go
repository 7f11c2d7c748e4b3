package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "tgreach"
	keyringPrefix  = "telegram_"
)

// KeyringStore implements CredentialStore on the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed credential store. It probes
// the keychain once so an unavailable backend fails at construction.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves credentials to the system keychain.
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Phone == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	key := keyringPrefix + account.Phone
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("write keychain entry: %w", err)
	}

	return nil
}

// Retrieve gets credentials from the system keychain.
func (k *KeyringStore) Retrieve(phone string) (*Account, error) {
	if phone == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+phone)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("read keychain entry: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("parse keychain entry: %w", err)
	}

	return &account, nil
}

// List returns all stored accounts. The keyring API cannot enumerate
// keys, so the keychain never contributes to listings.
func (k *KeyringStore) List() ([]*Account, error) {
	return []*Account{}, nil
}

// Delete removes credentials from the system keychain.
func (k *KeyringStore) Delete(phone string) error {
	if phone == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+phone); err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("delete keychain entry: %w", err)
	}

	return nil
}

// Exists checks if credentials exist in the keychain.
func (k *KeyringStore) Exists(phone string) bool {
	if phone == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+phone)
	return err == nil
}
