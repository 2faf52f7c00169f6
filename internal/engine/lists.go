package engine

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/repositories"
	"github.com/desertthunder/tasksync/internal/services"
)

// listPair joins a local list with the remote list it mirrors for one pass.
type listPair struct {
	local  *models.TaskList
	remote *services.RemoteTaskList
}

// reconcileLists fetches the account's full remote list collection and
// aligns the local mirrors with it: vanished mirrors are deleted together
// with their tasks, new remote lists get local counterparts, and drifted
// names and access levels are rewritten.
func (e *Engine) reconcileLists(ctx context.Context, account *models.Account, svc services.Service, logger *log.Logger) ([]listPair, error) {
	remotes, err := e.fetchLists(ctx, svc)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(remotes))
	for i := range remotes {
		seen[remotes[i].ID] = true
	}

	existing, err := e.lists.ListByAccount(account.ID)
	if err != nil {
		return nil, err
	}
	for _, local := range existing {
		if seen[local.RemoteID] {
			continue
		}
		logger.Info("list removed remotely", "list", local.Name)
		if err := e.dropList(local); err != nil {
			return nil, err
		}
	}

	pairs := make([]listPair, 0, len(remotes))
	for i := range remotes {
		remote := &remotes[i]
		local, err := e.mirrorList(account, remote, logger)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, listPair{local: local, remote: remote})
	}

	e.notifier.Notify(Event{Kind: RefreshLists, AccountID: account.ID})
	return pairs, nil
}

// fetchLists walks the list collection to exhaustion.
func (e *Engine) fetchLists(ctx context.Context, svc services.Service) ([]services.RemoteTaskList, error) {
	page, err := svc.GetLists(ctx)
	if err != nil {
		return nil, err
	}
	lists := page.Items
	for page.NextPage != "" {
		page, err = svc.PaginateLists(ctx, page.NextPage)
		if err != nil {
			return nil, err
		}
		lists = append(lists, page.Items...)
	}
	return lists, nil
}

// mirrorList finds or creates the local mirror for a remote list and
// rewrites drifted metadata.
func (e *Engine) mirrorList(account *models.Account, remote *services.RemoteTaskList, logger *log.Logger) (*models.TaskList, error) {
	access := models.AccessOwner
	if !remote.IsOwner {
		access = models.AccessReadWrite
	}

	local, err := e.lists.GetByRemoteID(account.ID, remote.ID)
	if err != nil {
		return nil, err
	}
	if local == nil {
		local = &models.TaskList{
			AccountID: account.ID,
			RemoteID:  remote.ID,
			Name:      remote.DisplayName,
			Access:    access,
			Default:   remote.WellKnownName == services.WellKnownDefaultList,
		}
		if err := e.lists.Create(local); err != nil {
			return nil, err
		}
		logger.Info("list created", "list", local.Name)
		if local.Default {
			if err := e.settings.Set(repositories.DefaultListKey, local.ID); err != nil {
				return nil, err
			}
		}
		return local, nil
	}

	if local.Name != remote.DisplayName || local.Access != access {
		local.Name = remote.DisplayName
		local.Access = access
		if err := e.lists.Update(local); err != nil {
			return nil, err
		}
	}
	return local, nil
}

// dropList deletes a local mirror with everything under it. Purely local:
// the remote copy is already gone.
func (e *Engine) dropList(list *models.TaskList) error {
	links, err := e.links.ListByList(list.ID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.TaskID)
	}
	if err := e.links.DeleteByTasks(ids); err != nil {
		return err
	}
	if err := e.tasks.DeleteAll(ids); err != nil {
		return err
	}
	return e.lists.Delete(list.ID)
}
