// README: Google Sheets API client.
package infra

import (
	"context"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewSheets builds a Sheets client. With an empty credentialsFile the
// application-default credentials are used.
func NewSheets(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return sheets.NewService(ctx, opts...)
}
