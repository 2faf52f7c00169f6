package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tasksync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Sync runs a sync pass across all accounts, or one account with --account.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	if id := cmd.String("account"); id != "" {
		account, err := r.accounts.Get(id)
		if err != nil {
			return err
		}
		if err := r.engine.SyncAccount(ctx, account); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return r.writePlain("account %s synchronized\n", account.ID)
	}

	accounts, err := r.accounts.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: no accounts registered", shared.ErrAccountNotFound)
	}

	r.engine.SyncAll(ctx, accounts)

	failed := 0
	for _, account := range accounts {
		if account.Error != "" {
			failed++
			r.writePlain("✗ %s (%s): %s\n", account.Username, account.Type, account.Error)
		} else {
			r.writePlain("✓ %s (%s)\n", account.Username, account.Type)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed to sync", failed, len(accounts))
	}
	return nil
}
