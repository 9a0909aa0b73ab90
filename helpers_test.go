package storeauth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type mockCredentialStore struct {
	mu       sync.RWMutex
	accounts map[int64]*AccountRecord
	legacy   map[int64]string

	accountErr error
	legacyErr  error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		accounts: map[int64]*AccountRecord{},
		legacy:   map[int64]string{},
	}
}

func (s *mockCredentialStore) LookupAccount(_ context.Context, id Identifier) (*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	if id.Kind == IdentifierAccountNumber {
		if acct, ok := s.accounts[id.AccountNumber]; ok {
			copied := *acct
			return &copied, nil
		}
		return nil, nil
	}
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.Email, id.Email) {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *mockCredentialStore) LookupLegacySecret(_ context.Context, accountNumber int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.legacyErr != nil {
		return "", s.legacyErr
	}
	return s.legacy[accountNumber], nil
}

type recordingSMS struct {
	mu    sync.Mutex
	codes chan string
	err   error
}

func newRecordingSMS() *recordingSMS {
	return &recordingSMS{codes: make(chan string, 8)}
}

func (r *recordingSMS) SendCode(_ context.Context, _ int64, code string) error {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.codes <- code
	return nil
}

func (r *recordingSMS) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-r.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for two-factor code delivery")
		return ""
	}
}

func loginTestConfig() Config {
	cfg := defaultConfig()
	cfg.Deactivation.ExemptSecrets = []string{"2750GroveAvenue", "devil"}
	cfg.Security.MaxLoginAttempts = 5
	cfg.Security.LoginCooldown = time.Minute
	return cfg
}

func newLoginEngine(t *testing.T, cfg Config, store CredentialStore, sms SMSDispatcher) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithSMSDispatcher(sms)

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

func seedRegularAccount(store *mockCredentialStore) {
	store.accounts[101] = &AccountRecord{
		AccountNumber: 101,
		Email:         "shop@example.com",
		DisplayName:   "Grove Street Music",
		PostalCode:    "60187",
		StoredSecret:  "guitar",
	}
}

func seedPrivilegedAccount(store *mockCredentialStore) {
	store.accounts[999] = &AccountRecord{
		AccountNumber: 999,
		Email:         "ops@example.com",
		DisplayName:   "Operations",
		PostalCode:    "60187",
		IsPrivileged:  true,
	}
	store.legacy[999] = "admin2024"
}
