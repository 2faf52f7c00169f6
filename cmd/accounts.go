package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AccountsList prints registered accounts.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	accounts, err := r.accounts.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(accounts, cmd.Bool("pretty"))
	}

	if len(accounts) == 0 {
		return r.writePlain("no accounts registered\n")
	}
	for _, account := range accounts {
		status := "ok"
		if account.Error != "" {
			status = account.Error
		}
		r.writePlain("%s  %-10s %-30s %s\n", account.ID, account.Type, account.Username, status)
	}
	return nil
}

// AccountsAdd registers a new account.
func (r *Runner) AccountsAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	account := &models.Account{
		Type:     cmd.String("type"),
		Username: cmd.String("username"),
	}
	if err := r.accounts.Create(account); err != nil {
		return err
	}

	r.logger.Info("account registered", "id", account.ID, "type", account.Type)
	return r.writePlain("account %s registered\n", account.ID)
}

// AccountsRemove removes an account together with its list mirrors.
func (r *Runner) AccountsRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: account id", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}

	lists, err := r.lists.ListByAccount(id)
	if err != nil {
		return err
	}
	for _, list := range lists {
		links, err := r.links.ListByList(list.ID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(links))
		for _, link := range links {
			ids = append(ids, link.TaskID)
		}
		if err := r.links.DeleteByTasks(ids); err != nil {
			return err
		}
		if err := r.tasks.DeleteAll(ids); err != nil {
			return err
		}
		if err := r.lists.Delete(list.ID); err != nil {
			return err
		}
	}

	if err := r.accounts.Delete(id); err != nil {
		return err
	}
	return r.writePlain("account %s removed\n", id)
}
