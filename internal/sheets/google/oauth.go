package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

func usesOAuth(opts Options) bool {
	return strings.TrimSpace(opts.CredentialsJSON) == "" &&
		strings.TrimSpace(opts.CredentialsFile) == "" &&
		strings.TrimSpace(opts.OAuthTokenFile) != ""
}

// OAuthConfig reads an OAuth client (the "installed" or "web" JSON downloaded
// from the Cloud console) scoped to Sheets.
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	if strings.TrimSpace(clientFile) == "" {
		return nil, errors.New("missing OAuth client file (set GOOGLE_OAUTH_CLIENT_FILE)")
	}
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read OAuth client file: %w", err)
	}
	cfg, err := oauthgoogle.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}
	return cfg, nil
}

// OAuthTokenSource returns a refreshing token source for the saved token.
func OAuthTokenSource(ctx context.Context, clientFile, tokenFile string) (oauth2.TokenSource, error) {
	cfg, err := OAuthConfig(clientFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}
	return &tok, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}
