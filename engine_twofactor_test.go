package storeauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPrivilegedLoginRequiresTwoFactor(t *testing.T) {
	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, rdb, done := newLoginEngine(t, loginTestConfig(), store, sms)
	defer done()

	ctx := context.Background()
	result, err := engine.Login(ctx, "999", "admin2024")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.TwoFactorRequired {
		t.Fatalf("expected TwoFactorRequired, got %+v", result)
	}
	if result.User != nil {
		t.Fatal("expected no user before confirmation")
	}
	if engine.CurrentSession() != nil {
		t.Fatal("expected no session before confirmation")
	}
	if exists := rdb.Exists(ctx, "tfc:999").Val(); exists != 1 {
		t.Fatal("expected a live challenge record")
	}

	code := sms.waitForCode(t)
	if len(code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}

	confirmed, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code)
	if err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
	if confirmed.User == nil || confirmed.User.AccountNumber != 999 {
		t.Fatalf("expected authenticated user, got %+v", confirmed)
	}
	if !confirmed.User.IsPrivileged {
		t.Fatal("expected privileged session user")
	}
	if exists := rdb.Exists(ctx, "tfc:999").Val(); exists != 0 {
		t.Fatal("expected challenge to be consumed")
	}
}

func TestConfirmTwoFactorRequiresPrimaryCredentials(t *testing.T) {
	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, _, done := newLoginEngine(t, loginTestConfig(), store, sms)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := sms.waitForCode(t)

	// A leaked code without the primary secret is useless.
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "wrong", code); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code); err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
}

func TestConfirmTwoFactorWrongCodeAndAttemptsExceeded(t *testing.T) {
	cfg := loginTestConfig()
	cfg.TwoFactor.MaxAttempts = 2

	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, rdb, done := newLoginEngine(t, cfg, store, sms)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := sms.waitForCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", wrong); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid, got %v", err)
	}
	if exists := rdb.Exists(ctx, "tfc:999").Val(); exists != 1 {
		t.Fatal("expected challenge to survive the first failure")
	}
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", wrong); !errors.Is(err, ErrTwoFactorAttemptsExceeded) {
		t.Fatalf("expected ErrTwoFactorAttemptsExceeded, got %v", err)
	}
	if exists := rdb.Exists(ctx, "tfc:999").Val(); exists != 0 {
		t.Fatal("expected challenge to be destroyed at the attempt cap")
	}

	// The correct code is dead now; the login must restart.
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid after destruction, got %v", err)
	}
}

func TestConfirmTwoFactorReplay(t *testing.T) {
	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, _, done := newLoginEngine(t, loginTestConfig(), store, sms)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := sms.waitForCode(t)

	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code); err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
	// Submitting the consumed code again is a replay, not a retry.
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid for consumed challenge, got %v", err)
	}
}

func TestReissueInvalidatesPriorChallenge(t *testing.T) {
	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, _, done := newLoginEngine(t, loginTestConfig(), store, sms)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	first := sms.waitForCode(t)

	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	second := sms.waitForCode(t)

	if first == second {
		t.Skip("codes collided; cannot distinguish challenges")
	}

	// Only the newest challenge is live.
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", first); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected stale code to fail, got %v", err)
	}
	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", second); err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
}

func TestConfirmTwoFactorExpired(t *testing.T) {
	cfg := loginTestConfig()
	cfg.TwoFactor.ChallengeTTL = time.Second

	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()

	engine, _, done := newLoginEngine(t, cfg, store, sms)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "999", "admin2024"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := sms.waitForCode(t)

	// Rewrite the stored record with an expiry in the past; miniredis does
	// not advance TTLs on its own.
	rec, err := engine.twoFactorStore.Get(ctx, 999)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	rec.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := engine.twoFactorStore.Save(ctx, 999, rec, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := engine.ConfirmTwoFactor(ctx, "999", "admin2024", code); !errors.Is(err, ErrTwoFactorExpired) {
		t.Fatalf("expected ErrTwoFactorExpired, got %v", err)
	}
}

func TestTwoFactorDeliveryFailureDoesNotFailLogin(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Metrics.Enabled = true

	store := newMockCredentialStore()
	seedPrivilegedAccount(store)
	sms := newRecordingSMS()
	sms.err = errors.New("gateway down")

	engine, _, done := newLoginEngine(t, cfg, store, sms)
	defer done()

	result, err := engine.Login(context.Background(), "999", "admin2024")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.TwoFactorRequired {
		t.Fatalf("expected TwoFactorRequired despite delivery failure, got %+v", result)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if engine.MetricsSnapshot().Counters[MetricTwoFactorDeliveryFailure] == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected a delivery-failure metric")
}

func TestNonPrivilegedLoginSkipsTwoFactor(t *testing.T) {
	store := newMockCredentialStore()
	seedRegularAccount(store)

	engine, _, done := newLoginEngine(t, loginTestConfig(), store, newRecordingSMS())
	defer done()

	result, err := engine.Login(context.Background(), "101", "guitar")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.TwoFactorRequired {
		t.Fatal("regular accounts must never enter the two-factor flow")
	}
}
