// Provider constructors for the [Service] adapters.
//
// Each provider fronts its task API with the generic list/task/checklist
// wire shape; only base URL, credentials, and delta capability differ.
package services

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
)

const (
	microsoftBaseURL = "https://graph.microsoft.com/v1.0/me/todo"
	googleBaseURL    = "https://tasks.googleapis.com/tasks/v1"
)

// NewMicrosoftService creates the Microsoft To Do adapter. Microsoft hands
// out delta cursors, so incremental sync is available.
func NewMicrosoftService(creds shared.OAuthConfig, rateLimit float64, logger *log.Logger) (*Client, error) {
	return NewClient(ClientOpts{
		Name:         "Microsoft To Do",
		BaseURL:      microsoftBaseURL,
		Delta:        true,
		Logger:       logger,
		RateLimit:    rateLimit,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
	})
}

// NewGoogleService creates the Google Tasks adapter. Google paginates but
// has no delta cursor, so every pass is a full sync.
func NewGoogleService(creds shared.OAuthConfig, rateLimit float64, logger *log.Logger) (*Client, error) {
	return NewClient(ClientOpts{
		Name:         "Google Tasks",
		BaseURL:      googleBaseURL,
		Delta:        false,
		Logger:       logger,
		RateLimit:    rateLimit,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
	})
}

// NewCaldavService creates the CalDAV-style adapter against a user-supplied
// server URL. The server reports collection state via ctag-equivalent
// cursors, so delta fetches are supported.
func NewCaldavService(creds shared.CaldavConfig, rateLimit float64, logger *log.Logger) (*Client, error) {
	if creds.URL == "" {
		return nil, fmt.Errorf("%w: missing caldav server url", shared.ErrInvalidConfig)
	}
	return NewClient(ClientOpts{
		Name:        "CalDAV",
		BaseURL:     creds.URL,
		Delta:       true,
		Logger:      logger,
		RateLimit:   rateLimit,
		AccessToken: creds.AccessToken,
	})
}

// ForAccount selects the provider adapter for an account using the
// configured credentials.
func ForAccount(account *models.Account, config *shared.Config, logger *log.Logger) (Service, error) {
	limit := config.Sync.RateLimit
	switch account.Type {
	case models.AccountMicrosoft:
		return NewMicrosoftService(config.Credentials.Microsoft, limit, logger)
	case models.AccountGoogle:
		return NewGoogleService(config.Credentials.Google, limit, logger)
	case models.AccountCaldav:
		return NewCaldavService(config.Credentials.Caldav, limit, logger)
	default:
		return nil, fmt.Errorf("%w: unknown account type %q", shared.ErrInvalidInput, account.Type)
	}
}
