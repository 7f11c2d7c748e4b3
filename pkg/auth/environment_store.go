package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore over environment
// variables, for headless deployments and backward compatibility with
// .env-only setups.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables. The phone
// argument only overrides PHONE_NUMBER when the latter is unset.
func (e *EnvironmentStore) Retrieve(phone string) (*Account, error) {
	apiID := parseAPIID(os.Getenv("API_ID"))
	apiHash := os.Getenv("API_HASH")

	if apiID == 0 || apiHash == "" {
		return nil, ErrCredentialsNotFound
	}

	envPhone := os.Getenv("PHONE_NUMBER")
	if envPhone != "" {
		phone = envPhone
	}
	if phone == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Phone:        phone,
		APIID:        apiID,
		APIHash:      apiHash,
		SessionName:  os.Getenv("SESSION_NAME"),
		LastModified: time.Now(),
	}, nil
}

// List returns the single environment account when configured.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(phone string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials are configured.
func (e *EnvironmentStore) Exists(phone string) bool {
	return parseAPIID(os.Getenv("API_ID")) != 0 && os.Getenv("API_HASH") != ""
}
