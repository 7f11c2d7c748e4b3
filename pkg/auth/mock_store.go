package auth

import "sync"

// MockStore implements CredentialStore in memory for tests, with
// optional per-operation error injection.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{accounts: map[string]*Account{}}
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.Phone == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.Phone] = &cp
	return nil
}

func (m *MockStore) Retrieve(phone string) (*Account, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if phone == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[phone]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		cp := *acc
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockStore) Delete(phone string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if phone == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[phone]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, phone)
	return nil
}

func (m *MockStore) Exists(phone string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[phone]
	return ok
}

// Count returns the number of stored accounts.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// NewMockManager creates a Manager backed only by a mock store.
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return &Manager{stores: []CredentialStore{store}}, store
}

// NewMockManagerWithStores creates a Manager over arbitrary stores.
func NewMockManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}
