package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "finpal/internal/sheets/google"
)

var (
	flagOAuthClient string
	flagOAuthToken  string
	flagOAuthPort   string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Sheets exports with your own Google account",
	Long: "Run the OAuth consent flow and save a refresh token. Point GOOGLE_OAUTH_CLIENT_FILE " +
		"and GOOGLE_OAUTH_TOKEN_FILE at the results to export without a service account.",
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&flagOAuthClient, "client", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON from the Cloud console")
	authCmd.Flags().StringVar(&flagOAuthToken, "token", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "Where to save the token")
	authCmd.Flags().StringVar(&flagOAuthPort, "port", envOr("OAUTH_REDIRECT_PORT", "8085"), "Local port for the redirect")
	rootCmd.AddCommand(authCmd)
}

func runAuth(_ *cobra.Command, _ []string) error {
	cfg, err := gsheet.OAuthConfig(flagOAuthClient)
	if err != nil {
		return err
	}
	// The OAuth client must list this URI as an authorized redirect.
	cfg.RedirectURL = "http://localhost:" + flagOAuthPort + "/callback"

	ln, err := net.Listen("tcp", "localhost:"+flagOAuthPort)
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			trySend(codeCh, q.Get("code"))
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			trySend(errCh, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := gsheet.SaveToken(flagOAuthToken, tok); err != nil {
			return err
		}
		fmt.Printf("Saved token to %s\n", flagOAuthToken)
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}

// trySend drops v when a result is already waiting; only the first callback counts.
func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
