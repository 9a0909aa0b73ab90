package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "storeauth-test",
	}
}

func TestMintAndValidateHS256(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.Mint(101, false)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.AccountNumber != 101 || claims.Privileged {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "101" {
		t.Fatalf("expected subject 101, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected a token ID")
	}
	if claims.Issuer != "storeauth-test" {
		t.Fatalf("expected issuer, got %q", claims.Issuer)
	}
}

func TestMintAndValidateEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.Mint(999, true)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.AccountNumber != 999 || !claims.Privileged {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	other, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("different-secret"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := other.Mint(101, false)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := m.Validate(tok); err == nil {
		t.Fatal("expected validation failure for a foreign signature")
	}
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	signer, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	verifier, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := signer.Mint(101, false)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := verifier.Validate(tok); err == nil {
		t.Fatal("expected validation failure for wrong issuer")
	}
}

func TestNewManagerConfigValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("expected error for zero TTL")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected error for missing hs256 key")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected error for missing ed25519 public key")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: "none"}); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
