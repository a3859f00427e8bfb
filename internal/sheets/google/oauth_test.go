package google

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %o, want 600", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.RefreshToken != "refresh" || !got.Expiry.Equal(tok.Expiry) {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadTokenRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil {
		t.Fatal("expected error for a token without credentials")
	}
	if _, err := LoadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := OAuthConfig(path)
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if !slices.Contains(cfg.Scopes, "https://www.googleapis.com/auth/spreadsheets") {
		t.Errorf("missing sheets scope in %v", cfg.Scopes)
	}

	if _, err := OAuthConfig(""); err == nil {
		t.Fatal("expected error without a client file")
	}
}

func TestUsesOAuth(t *testing.T) {
	cases := []struct {
		opts Options
		want bool
	}{
		{Options{OAuthTokenFile: "t.json"}, true},
		{Options{OAuthTokenFile: "t.json", CredentialsFile: "sa.json"}, false},
		{Options{}, false},
	}
	for _, tc := range cases {
		if got := usesOAuth(tc.opts); got != tc.want {
			t.Errorf("usesOAuth(%+v) = %v, want %v", tc.opts, got, tc.want)
		}
	}
}
