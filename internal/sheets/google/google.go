package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"faturamento/internal/core"
	ports "faturamento/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is read when GOOGLE_SHEET_NAMES is unset.
const DefaultSheetName = "Faturamento"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetNames    []string
}

// Ensure interface conformance
var _ ports.TableReader = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAMES, comma separated (default "Faturamento").
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}

	return New(ctx, spreadsheetID, SplitNames(os.Getenv("GOOGLE_SHEET_NAMES")),
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// New creates a client reading sheetNames of one spreadsheet. The options
// are passed to the Sheets service unchanged.
func New(ctx context.Context, spreadsheetID string, sheetNames []string, opts ...goption.ClientOption) (*Client, error) {
	if len(sheetNames) == 0 {
		sheetNames = []string{DefaultSheetName}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetNames: sheetNames}, nil
}

// SplitNames parses a comma separated sheet list, dropping blanks.
func SplitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReadTable fetches every configured sheet in one batch request and merges
// them by header name. Values are requested unformatted so numbers arrive
// as numbers rather than locale-formatted text.
func (c *Client) ReadTable(ctx context.Context) (core.Table, error) {
	if c.svc == nil {
		return core.Table{}, errors.New("sheets service not initialized")
	}

	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(c.sheetNames...).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Table{}, fmt.Errorf("batch get %v: %w", c.sheetNames, err)
	}

	var out core.Table
	for i, vr := range resp.ValueRanges {
		t := ports.FromValues(vr.Values)
		if len(t.Header) == 0 {
			slog.WarnContext(ctx, "Empty sheet skipped", "range", vr.Range, "index", i)
			continue
		}
		out = out.Merge(t)
	}
	if len(out.Header) == 0 {
		return core.Table{}, fmt.Errorf("sheets %v: no header row", c.sheetNames)
	}
	return out, nil
}
