package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/repositories"
	"github.com/desertthunder/tasksync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Lists prints local list mirrors.
func (r *Runner) Lists(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	accountID := cmd.String("account")
	var accounts []*models.Account
	if accountID != "" {
		account, err := r.accounts.Get(accountID)
		if err != nil {
			return err
		}
		accounts = append(accounts, account)
	} else {
		all, err := r.accounts.List()
		if err != nil {
			return err
		}
		accounts = all
	}

	var lists []*models.TaskList
	for _, account := range accounts {
		found, err := r.lists.ListByAccount(account.ID)
		if err != nil {
			return err
		}
		lists = append(lists, found...)
	}

	if cmd.Bool("json") {
		return r.writeJSON(lists, cmd.Bool("pretty"))
	}

	if len(lists) == 0 {
		return r.writePlain("no lists synchronized yet, run 'tasksync sync' first\n")
	}
	for _, list := range lists {
		marker := " "
		if list.Default {
			marker = "*"
		}
		r.writePlain("%s %s  %s\n", marker, list.ID, list.Name)
	}
	return nil
}

// TasksAdd creates a local task. The task is linked to its list with a zero
// sync timestamp, so the next pass pushes it as a create.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: task title", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}

	listID := cmd.String("list")
	if listID == "" {
		def, err := r.settings.Get(repositories.DefaultListKey)
		if err != nil {
			return err
		}
		if def == "" {
			return fmt.Errorf("%w: no default list, pass --list", shared.ErrListNotFound)
		}
		listID = def
	}
	if _, err := r.lists.Get(listID); err != nil {
		return err
	}

	task := &models.Task{
		Parent: int64(cmd.Int("parent")),
		Title:  title,
		Notes:  cmd.String("notes"),
	}
	if err := r.tasks.Create(task); err != nil {
		return err
	}
	if err := r.links.Create(&models.TaskLink{ListID: listID, TaskID: task.ID}); err != nil {
		return err
	}

	return r.writePlain("task %d created\n", task.ID)
}

// TasksDone marks a task completed.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	id, err := taskIDArg(cmd)
	if err != nil {
		return err
	}

	if err := r.open(); err != nil {
		return err
	}

	task, err := r.tasks.Get(id)
	if err != nil {
		return err
	}
	task.CompletionDate = shared.NowMillis()
	if err := r.tasks.Save(task); err != nil {
		return err
	}

	return r.writePlain("task %d completed\n", id)
}

// TasksRemove flags a task for deletion. The remote copy goes away on the
// next sync pass.
func (r *Runner) TasksRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := taskIDArg(cmd)
	if err != nil {
		return err
	}

	if err := r.open(); err != nil {
		return err
	}

	if _, err := r.tasks.Get(id); err != nil {
		return err
	}
	if err := r.tasks.MarkDeleted(id); err != nil {
		return err
	}

	return r.writePlain("task %d deleted\n", id)
}

func taskIDArg(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: task id %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}
