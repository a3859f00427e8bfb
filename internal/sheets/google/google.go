package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finpal/internal/core"
	ports "finpal/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// maxTitleLen is the Sheets limit on tab titles.
const maxTitleLen = 100

// Client exports user summaries into one tab per user of a single spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
}

// Ensure interface conformance
var _ ports.SummaryExporter = (*Client)(nil)

// Options configures New. CredentialsJSON takes precedence over CredentialsFile;
// the OAuth pair is used only when neither service account source is set.
type Options struct {
	SpreadsheetID   string
	SheetPrefix     string
	CredentialsJSON string
	CredentialsFile string
	OAuthClientFile string
	OAuthTokenFile  string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var clientOpts []goption.ClientOption
	if usesOAuth(opts) {
		ts, err := OAuthTokenSource(ctx, opts.OAuthClientFile, opts.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, goption.WithTokenSource(ts))
	} else {
		credentialsJSON, err := loadCredentials(ctx, opts)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetPrefix), nil
}

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_PREFIX
// and GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE /
// GOOGLE_APPLICATION_CREDENTIALS, falling back to GOOGLE_OAUTH_CLIENT_FILE
// and GOOGLE_OAUTH_TOKEN_FILE.
func NewFromEnv(ctx context.Context) (*Client, error) {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, Options{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetPrefix:     strings.TrimSpace(os.Getenv("GOOGLE_SHEET_PREFIX")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: file,
		OAuthClientFile: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		OAuthTokenFile:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	})
}

// NewWithService wraps an existing service. Tests point it at a fake endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: strings.TrimSpace(prefix)}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", opts.CredentialsFile, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportSummary writes the user's summary into their tab, creating the tab
// on first export and clearing whatever an earlier export left behind.
func (c *Client) ExportSummary(ctx context.Context, rec core.UserRecord, cmp core.Comparison) (string, error) {
	if err := core.ValidateUsername(rec.Username); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	title := c.sheetTitle(rec.Username)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	all := fmt.Sprintf("%s!A:Z", quoteTitle(title))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", all, err)
	}

	rows := ports.SummaryRows(rec, cmp)
	start := fmt.Sprintf("%s!A1", quoteTitle(title))
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write summary to %s: %w", title, err)
	}

	ref := resp.UpdatedRange
	if ref == "" {
		ref = start
	}
	slog.InfoContext(ctx, "Summary exported to Google Sheets", "username", rec.Username, "range", ref, "rows", len(rows))
	return ref, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "title", title)
	return nil
}

// sheetTitle returns "<prefix> <username>", or the bare username without a prefix.
func (c *Client) sheetTitle(username string) string {
	title := username
	if c.prefix != "" {
		title = c.prefix + " " + username
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return title
}

// quoteTitle quotes a tab title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
