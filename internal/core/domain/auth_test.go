package domain

import (
	"testing"
	"time"
)

func TestTokenClaims_IsExpired(t *testing.T) {
	past := &TokenClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	if !past.IsExpired() {
		t.Error("expected expired claims")
	}
	future := &TokenClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()}
	if future.IsExpired() {
		t.Error("expected valid claims")
	}
	if (&TokenClaims{}).IsExpired() {
		t.Error("claims without expiry never expire")
	}
}

func TestAuthContext_IsAdmin(t *testing.T) {
	if !(&AuthContext{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role should be admin")
	}
	if (&AuthContext{Role: RoleReader}).IsAdmin() {
		t.Error("reader role should not be admin")
	}
}
