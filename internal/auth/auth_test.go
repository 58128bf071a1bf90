package auth

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	// Deterministic secret so token round-trips are stable across tests.
	os.Setenv("SHB_JWT_SECRET", strings.Repeat("s", 32))
	os.Exit(m.Run())
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@x.com", time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("Email = %s, want a@x.com", claims.Email)
	}
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@x.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ValidateJWT(token); err == nil {
		t.Error("expired token validated, want error")
	}
}

func TestValidateJWT_Garbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token"); err == nil {
		t.Error("garbage token validated, want error")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Passw0rd!", true},
		{"aB3$aB3$", true},
		{"short1A!", true},
		{"Ab1!", false},         // too short
		{"passw0rd!", false},    // no upper
		{"PASSW0RD!", false},    // no lower
		{"Password!", false},    // no digit
		{"Passw0rds", false},    // no symbol
		{"", false},
	}
	for _, tc := range cases {
		err := CheckPasswordPolicy(tc.password)
		if tc.ok && err != nil {
			t.Errorf("CheckPasswordPolicy(%q) = %v, want nil", tc.password, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("CheckPasswordPolicy(%q) = nil, want error", tc.password)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!", 4) // minimum cost keeps the test fast
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("Passw0rd!", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestValidEmail(t *testing.T) {
	for _, good := range []string{"a@x.com", "first.last@sub.domain.org"} {
		if !ValidEmail(good) {
			t.Errorf("ValidEmail(%q) = false", good)
		}
	}
	for _, bad := range []string{"", "a@x", "a x@y.com", "@x.com", "a@.com "} {
		if ValidEmail(bad) {
			t.Errorf("ValidEmail(%q) = true", bad)
		}
	}
}

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		if code[0] == '0' {
			t.Fatalf("code %q outside [100000,999999]", code)
		}
	}
}

func TestOTPHashRoundTrip(t *testing.T) {
	hash, err := HashOTP("123456")
	if err != nil {
		t.Fatalf("HashOTP: %v", err)
	}
	if !VerifyOTP("123456", hash) {
		t.Error("correct code rejected")
	}
	if VerifyOTP("654321", hash) {
		t.Error("wrong code accepted")
	}
}

func TestRefreshTokenHash(t *testing.T) {
	tok, err := NewRefreshToken(0)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if tok.Raw == "" {
		t.Fatal("empty raw token")
	}
	if !tok.ExpiresAt.After(time.Now().Add(29 * 24 * time.Hour)) {
		t.Error("default TTL shorter than expected")
	}

	h1 := HashRefreshToken(tok.Raw)
	h2 := HashRefreshToken(tok.Raw)
	if h1 != h2 {
		t.Error("hash not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	other, _ := NewRefreshToken(0)
	if HashRefreshToken(other.Raw) == h1 {
		t.Error("distinct tokens share a hash")
	}
}
