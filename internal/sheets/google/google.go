package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"suryasakshi/internal/core"
	ports "suryasakshi/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultActivitySheet = "Activity"
	defaultSummarySheet  = "Summary"
	timestampLayout      = "2006-01-02 15:04:05"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base names without year; the year of the row is prefixed on write.
	activityBase string
	summaryBase  string
}

// Ensure interface conformance
var (
	_ ports.ActivityWriter = (*Client)(nil)
	_ ports.SummaryWriter  = (*Client)(nil)
)

// Options selects the spreadsheet and tab base names.
type Options struct {
	SpreadsheetID string
	ActivitySheet string
	SummarySheet  string
}

// New creates a Sheets client authenticated with service account credentials
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newWithService(svc, opts), nil
}

// NewFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_ACTIVITY_SHEET_NAME and
// GOOGLE_SUMMARY_SHEET_NAME and calls New.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID: os.Getenv("GOOGLE_SPREADSHEET_ID"),
		ActivitySheet: os.Getenv("GOOGLE_ACTIVITY_SHEET_NAME"),
		SummarySheet:  os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"),
	})
}

func newWithService(svc *gsheet.Service, opts Options) *Client {
	activity := strings.TrimSpace(opts.ActivitySheet)
	if activity == "" {
		activity = defaultActivitySheet
	}
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = defaultSummarySheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		activityBase:  activity,
		summaryBase:   summary,
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// AppendActivity writes one row: timestamp, user, action, category, target.
// Values are written RAW so user-entered names are never evaluated.
func (c *Client) AppendActivity(ctx context.Context, a core.Activity) (string, error) {
	sheet := yearPrefixedName(c.activityBase, a.CreatedAt.Year())
	return c.append(ctx, sheet, "A:E", "RAW", activityRow(a))
}

// AppendSummary writes the dashboard cards for s as one row.
func (c *Client) AppendSummary(ctx context.Context, s core.Summary, takenAt time.Time) (string, error) {
	sheet := yearPrefixedName(c.summaryBase, s.Period.Year)
	return c.append(ctx, sheet, "A:J", "USER_ENTERED", summaryRow(s, takenAt))
}

func (c *Client) append(ctx context.Context, sheet, cols, inputOption string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(inputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func activityRow(a core.Activity) []any {
	return []any{
		a.CreatedAt.UTC().Format(timestampLayout),
		a.UserName,
		string(a.Action),
		a.Category.Label(),
		a.Target,
	}
}

// summaryRow lays out: taken at, period, then amount and change for each
// card, with weight in tonnes after the weight-bearing ones.
func summaryRow(s core.Summary, takenAt time.Time) []any {
	period := s.Period.MonthName() + " " + strconv.Itoa(s.Period.Year)
	row := []any{takenAt.UTC().Format(timestampLayout), period}
	for _, card := range s.Cards {
		row = append(row, card.Amount.StringFixed(2), strconv.FormatFloat(card.Change, 'f', 1, 64))
		if card.Weight != nil {
			row = append(row, card.Weight.Shift(-3).StringFixed(2))
		}
	}
	return row
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
