package auth

import (
	"testing"

	"github.com/replimesh/replimesh/internal/id"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	replica := id.NewReplicaID()

	token, err := tm.GenerateToken(replica)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.ReplicaID != replica.String() {
		t.Errorf("expected replica id %q, got %q", replica.String(), claims.ReplicaID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret")
	if _, err := tm.ValidateToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("test-secret")
	verifier := NewTokenManager("different-secret")

	token, err := issuer.GenerateToken(id.NewReplicaID())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("expected error validating token signed under a different secret")
	}
}
