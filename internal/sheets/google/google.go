// Package google exports ledger transactions to a Google Sheets
// spreadsheet through a service account.
package google

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/core"
	ports "tally/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.TransactionAppender = (*Client)(nil)

// New builds a Sheets client from a service account credentials file.
func New(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*Client, error) {
	if credentialsFile == "" {
		return nil, errors.New("missing credentials file")
	}
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credentialsFile),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Append adds the transaction as a new row at the bottom of the sheet.
// Columns: date, title, category, description, amount, kind, user ID.
func (c *Client) Append(ctx context.Context, kind core.Kind, t core.Transaction) (string, error) {
	values := &gsheet.ValueRange{
		Values: [][]any{{
			t.Date.Format("2006-01-02"),
			t.Title,
			t.Category,
			t.Description,
			t.Amount.String(),
			string(kind),
			t.UserID,
		}},
	}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:G", values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.sheetName, nil
}
