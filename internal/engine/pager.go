package engine

import (
	"context"
	"errors"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
)

// fetchTasks pulls the list's remote tasks, following page tokens to
// exhaustion. It returns the concatenated tasks and whether the fetch was a
// full enumeration (true) or an incremental delta (false).
//
// When the provider rejects a stored delta cursor as expired, the cursor is
// cleared and persisted, and [shared.ErrSyncReset] is returned so the caller
// can rerun the fetch as a full sync within the same pass.
func (e *Engine) fetchTasks(ctx context.Context, list *models.TaskList, svc services.Service) ([]services.RemoteTask, bool, error) {
	full := list.SyncCursor == "" || !svc.SupportsDelta()

	var page *services.TaskPage
	var err error
	if full {
		page, err = svc.GetTasks(ctx, list.RemoteID)
	} else {
		page, err = svc.DeltaTasks(ctx, list.RemoteID, list.SyncCursor)
	}

	var items []services.RemoteTask
	for {
		if err != nil {
			var httpErr *services.HTTPError
			if !full && errors.As(err, &httpErr) && httpErr.CursorInvalid() {
				list.SyncCursor = ""
				if saveErr := e.lists.Update(list); saveErr != nil {
					return nil, false, saveErr
				}
				return nil, false, shared.ErrSyncReset
			}
			return nil, false, err
		}

		items = append(items, page.Items...)
		if page.NextDelta != "" {
			list.SyncCursor = page.NextDelta
		}
		if page.NextPage == "" {
			break
		}
		page, err = svc.PaginateTasks(ctx, page.NextPage)
	}

	return items, full, nil
}
