package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*TwoFactorStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTwoFactorStore(client, "tfc"), mr
}

func liveChallenge(code string) *TwoFactorChallenge {
	return &TwoFactorChallenge{
		Code:      code,
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 101, liveChallenge("482913"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := store.Get(ctx, 101)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Code != "482913" {
		t.Fatalf("expected code 482913, got %q", record.Code)
	}
	if record.Attempts != 0 {
		t.Fatalf("expected zero attempts, got %d", record.Attempts)
	}
}

func TestGetMissingChallenge(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), 101)
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestSaveReplacesPriorChallenge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 101, liveChallenge("111111"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, 101, liveChallenge("222222"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := store.Get(ctx, 101)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Code != "222222" {
		t.Fatalf("expected the replacement code, got %q", record.Code)
	}
}

func TestGetExpiredChallenge(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	record := &TwoFactorChallenge{
		Code:      "482913",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	if err := store.Save(ctx, 101, record, 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := store.Get(ctx, 101); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	if mr.Exists("tfc:101") {
		t.Fatal("expired record should have been deleted")
	}
}

func TestDeleteReportsConsumption(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 101, liveChallenge("482913"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deleted, err := store.Delete(ctx, 101)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected first delete to consume the record")
	}

	deleted, err = store.Delete(ctx, 101)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Fatal("expected second delete to find nothing")
	}
}

func TestRecordFailureIncrementsAttempts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 101, liveChallenge("482913"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exceeded, err := store.RecordFailure(ctx, 101, 5)
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if exceeded {
		t.Fatal("first failure should not exceed the bound")
	}

	record, err := store.Get(ctx, 101)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", record.Attempts)
	}
}

func TestRecordFailureExceedsAndDeletes(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 101, liveChallenge("482913"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		exceeded, err := store.RecordFailure(ctx, 101, 5)
		if err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i, err)
		}
		if exceeded {
			t.Fatalf("failure %d should not exceed the bound", i)
		}
	}

	exceeded, err := store.RecordFailure(ctx, 101, 5)
	if err != nil {
		t.Fatalf("final RecordFailure failed: %v", err)
	}
	if !exceeded {
		t.Fatal("fifth failure should exceed the bound")
	}
	if mr.Exists("tfc:101") {
		t.Fatal("exceeded record should have been deleted")
	}

	if _, err := store.RecordFailure(ctx, 101, 5); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after deletion, got %v", err)
	}
}

func TestRecordFailureExpiredChallenge(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	record := &TwoFactorChallenge{
		Code:      "482913",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	if err := store.Save(ctx, 101, record, 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := store.RecordFailure(ctx, 101, 5); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	if mr.Exists("tfc:101") {
		t.Fatal("expired record should have been deleted")
	}
}

func TestChallengeCodecRoundTrip(t *testing.T) {
	record := &TwoFactorChallenge{
		Code:      "007731",
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
		Attempts:  3,
	}

	encoded, err := encodeTwoFactorChallenge(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded[0] != twoFactorRecordVersion1 {
		t.Fatalf("expected version byte %d, got %d", twoFactorRecordVersion1, encoded[0])
	}

	decoded, err := decodeTwoFactorChallenge(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Code != record.Code || decoded.ExpiresAt != record.ExpiresAt || decoded.Attempts != record.Attempts {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	encoded, err := encodeTwoFactorChallenge(liveChallenge("482913"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	encoded[0] = 99

	if _, err := decodeTwoFactorChallenge(encoded); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestGetCorruptRecord(t *testing.T) {
	store, mr := newTestStore(t)

	mr.Set("tfc:101", "not a challenge record")

	if _, err := store.Get(context.Background(), 101); err == nil {
		t.Fatal("expected error for corrupt record")
	}
}
