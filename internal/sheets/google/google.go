// Package google mirrors transactions into a Google Sheets ledger.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID      string
	Sheet              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *slog.Logger

	// ids caches the id column; nil until the first append.
	mu  sync.Mutex
	ids map[string]int
}

var _ sheets.LedgerWriter = (*Client)(nil)

// NewClient authenticates with a service account and returns a ledger client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.Sheet) == "" {
		cfg.Sheet = "Ledger"
	}
	if logger == nil {
		logger = slog.Default()
	}

	if len(opts) == 0 {
		creds, err := credentialsJSON(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets ledger ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.Sheet)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.Sheet,
		logger:        logger,
	}, nil
}

// credentialsJSON prefers inline JSON, then the file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsJSON(cfg Config) ([]byte, error) {
	if s := strings.TrimSpace(cfg.ServiceAccountJSON); s != "" {
		return []byte(s), nil
	}
	path := strings.TrimSpace(cfg.ServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func (c *Client) AppendEntry(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", core.NewValidationError("id", "cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIDs(ctx); err != nil {
		return "", err
	}
	if row, ok := c.ids[tx.ID]; ok {
		c.logger.DebugContext(ctx, "Ledger row already present", "transaction_id", tx.ID, "row", row)
		return rowRef(c.sheet, row), nil
	}

	rows := [][]any{ledgerRow(tx)}
	if len(c.ids) == 0 {
		if empty, err := c.sheetEmpty(ctx); err != nil {
			return "", err
		} else if empty {
			rows = append([][]any{headerRow()}, rows...)
		}
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheet, idColumn)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
		if row := rowFromRange(ref); row > 0 {
			last := row + len(rows) - 1
			c.ids[tx.ID] = last
			ref = rowRef(c.sheet, last)
		}
	}
	return ref, nil
}

func (c *Client) loadIDs(ctx context.Context) error {
	if c.ids != nil {
		return nil
	}
	rng := fmt.Sprintf("%s!%s:%s", c.sheet, idColumn, idColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	c.ids = indexIDs(resp.Values)
	return nil
}

func (c *Client) sheetEmpty(ctx context.Context) (bool, error) {
	rng := fmt.Sprintf("%s!A1:A1", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) == 0, nil
}
