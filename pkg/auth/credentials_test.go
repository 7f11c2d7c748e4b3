package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Phone:        "+15551234567",
		APIID:        123456,
		APIHash:      "0123456789abcdef0123456789abcdef",
		SessionName:  "anon",
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		t.Errorf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("+15551234567")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Phone != account.Phone {
		t.Errorf("Phone mismatch: got %s, want %s", retrieved.Phone, account.Phone)
	}
	if retrieved.APIID != account.APIID {
		t.Errorf("APIID mismatch: got %d, want %d", retrieved.APIID, account.APIID)
	}
	if retrieved.APIHash != account.APIHash {
		t.Errorf("APIHash mismatch: got %s, want %s", retrieved.APIHash, account.APIHash)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) == 0 {
		t.Error("Expected at least one account in list")
	}

	sanitized := SanitizeAccount(account)
	if sanitized.APIHash == account.APIHash {
		t.Error("APIHash should be masked")
	}
	if sanitized.Phone != account.Phone {
		t.Error("Phone should not be masked")
	}

	if err := manager.Delete("+15551234567"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("+15551234567"); err == nil {
		t.Error("Expected error retrieving deleted account")
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerValidation(t *testing.T) {
	manager, _ := NewMockManager()

	cases := []struct {
		name    string
		account *Account
	}{
		{"missing phone", &Account{APIID: 1, APIHash: "hash"}},
		{"missing api id", &Account{Phone: "+15550000000", APIHash: "hash"}},
		{"missing api hash", &Account{Phone: "+15550000000", APIID: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := manager.Store(tc.account); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("TGREACH_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	account := &Account{
		Phone:   "+15559876543",
		APIID:   654321,
		APIHash: "fedcba9876543210fedcba9876543210",
	}

	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	// Credentials must never hit disk in the clear
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}
	if bytes.Contains(raw, []byte(account.APIHash)) {
		t.Error("API hash appears unencrypted in store file")
	}
	if bytes.Contains(raw, []byte(account.Phone)) {
		t.Error("Phone appears unencrypted in store file")
	}

	// A fresh store with the same passphrase reads it back
	store2, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	retrieved, err := store2.Retrieve("+15559876543")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.APIHash != account.APIHash {
		t.Errorf("APIHash mismatch after round trip: got %s", retrieved.APIHash)
	}

	if err := store2.Delete("+15559876543"); err != nil {
		t.Errorf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Store file should be removed when last account is deleted")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("API_ID", "123456")
	t.Setenv("API_HASH", "abcdef")
	t.Setenv("PHONE_NUMBER", "+15551112222")
	t.Setenv("SESSION_NAME", "anon")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Phone != "+15551112222" {
		t.Errorf("Phone mismatch: got %s", account.Phone)
	}
	if account.APIID != 123456 {
		t.Errorf("APIID mismatch: got %d", account.APIID)
	}
	if account.SessionName != "anon" {
		t.Errorf("SessionName mismatch: got %s", account.SessionName)
	}

	if err := store.Store(account); err != ErrStoreUnavailable {
		t.Error("Store should be unsupported for environment variables")
	}
	if err := store.Delete(account.Phone); err != ErrStoreUnavailable {
		t.Error("Delete should be unsupported for environment variables")
	}
}

func TestEnvironmentStoreMissing(t *testing.T) {
	t.Setenv("API_ID", "")
	t.Setenv("API_HASH", "")

	store := NewEnvironmentStore()
	if _, err := store.Retrieve(""); err == nil {
		t.Error("Expected error with no environment credentials")
	}
	if store.Exists("") {
		t.Error("Exists should be false with no environment credentials")
	}
}

func TestManagerFallbackOrder(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = ErrStoreUnavailable
	failing.RetrieveError = ErrStoreUnavailable

	backup := NewMockStore()
	manager := NewMockManagerWithStores(failing, backup)

	account := &Account{Phone: "+15553334444", APIID: 9, APIHash: "hash-value"}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Store should fall through to the next store: %v", err)
	}
	if backup.Count() != 1 {
		t.Errorf("Expected account in backup store, got %d", backup.Count())
	}

	retrieved, err := manager.Retrieve("+15553334444")
	if err != nil {
		t.Fatalf("Retrieve should fall through to the next store: %v", err)
	}
	if retrieved.APIID != 9 {
		t.Errorf("APIID mismatch: got %d", retrieved.APIID)
	}
}
