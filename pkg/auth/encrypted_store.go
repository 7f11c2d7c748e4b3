package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultSaltLen = 32
	vaultKeyLen  = 32
	pbkdf2Rounds = 100000
)

// vaultEnvelope is the on-disk shape of the credential file. The payload
// is the AES-GCM sealed JSON of the phone -> Account map.
type vaultEnvelope struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Payload  string    `json:"payload"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps accounts in a single encrypted file. The key
// is derived from a passphrase with PBKDF2, so the file is portable
// between machines that share the passphrase.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens (or prepares to create) the vault at path.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create credential directory: %w", err)
		}
	}

	pass, err := resolvePassphrase()
	if err != nil {
		return nil, fmt.Errorf("resolve vault passphrase: %w", err)
	}

	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Phone == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.open()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if accounts == nil {
		accounts = map[string]Account{}
	}

	accounts[account.Phone] = *account
	return e.seal(accounts, salt)
}

func (e *EncryptedFileStore) Retrieve(phone string) (*Account, error) {
	if phone == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	acc, ok := accounts[phone]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &acc, nil
}

func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Account{}, nil
		}
		return nil, err
	}

	out := make([]*Account, 0, len(accounts))
	for _, acc := range accounts {
		acc := acc
		out = append(out, &acc)
	}
	return out, nil
}

func (e *EncryptedFileStore) Delete(phone string) error {
	if phone == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrCredentialsNotFound
		}
		return err
	}

	if _, ok := accounts[phone]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, phone)

	// Last account gone, no reason to keep an empty vault around.
	if len(accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.seal(accounts, salt)
}

func (e *EncryptedFileStore) Exists(phone string) bool {
	acc, err := e.Retrieve(phone)
	return err == nil && acc != nil
}

// open reads the vault and returns the decrypted account map together
// with the salt already in use, so re-sealing keeps the same key.
func (e *EncryptedFileStore) open() (map[string]Account, []byte, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, err
	}

	var env vaultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("parse credential file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}

	plain, err := gcmOpen(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, nil, fmt.Errorf("decrypt credential file: %w", err)
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, nil, fmt.Errorf("parse accounts: %w", err)
	}
	return accounts, salt, nil
}

// seal encrypts the account map and writes the vault atomically. A nil
// salt means a fresh vault and a fresh random salt.
func (e *EncryptedFileStore) seal(accounts map[string]Account, salt []byte) error {
	if salt == nil {
		salt = make([]byte, vaultSaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	sealed, err := gcmSeal(plain, e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("encrypt accounts: %w", err)
	}

	raw, err := json.MarshalIndent(vaultEnvelope{
		Version:  1,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Payload:  base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, pbkdf2Rounds, vaultKeyLen, sha256.New)
}

// resolvePassphrase prefers TGREACH_PASSPHRASE, then a per-user file
// under the config directory, generating one on first use.
func resolvePassphrase() (string, error) {
	if pass := os.Getenv("TGREACH_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passFile := filepath.Join(configDir, ".passphrase")

	if raw, err := os.ReadFile(passFile); err == nil && len(raw) > 0 {
		return string(raw), nil
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate passphrase: %w", err)
	}
	pass := base64.URLEncoding.EncodeToString(buf)

	if err := os.WriteFile(passFile, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("save passphrase: %w", err)
	}
	return pass, nil
}

func gcmSeal(plain, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func gcmOpen(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed data too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
