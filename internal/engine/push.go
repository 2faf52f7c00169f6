package engine

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/services"
)

// pushLocalChanges uploads the list's pending local edits: first remote
// deletions for tasks moved out of the list, then creates and updates in
// parent-before-child order so a new subtask can reference the remote id
// its parent was just assigned.
func (e *Engine) pushLocalChanges(ctx context.Context, list *models.TaskList, svc services.Service, logger *log.Logger) error {
	moved, err := e.links.GetMoved(list.ID)
	if err != nil {
		return err
	}
	for _, link := range moved {
		if err := e.deleteRemoteResource(ctx, svc, list, link, logger); err != nil {
			return err
		}
	}

	pending, err := e.tasks.GetToPush(list.ID)
	if err != nil {
		return err
	}
	for _, task := range pending {
		if err := e.pushTask(ctx, svc, list, task, logger); err != nil {
			return err
		}
	}
	return nil
}

// deleteRemoteResource removes the remote counterpart of a link and then the
// link itself. Links never pushed have nothing remote to delete. A remote
// 404 or 400 counts as success: the resource is gone either way.
func (e *Engine) deleteRemoteResource(ctx context.Context, svc services.Service, list *models.TaskList, link *models.TaskLink, logger *log.Logger) error {
	if link.LastSync != 0 && link.RemoteID != "" {
		var err error
		if link.RemoteParent == "" {
			err = svc.DeleteTask(ctx, list.RemoteID, link.RemoteID)
		} else {
			err = svc.DeleteChecklistItem(ctx, list.RemoteID, link.RemoteParent, link.RemoteID)
		}
		if err != nil {
			switch Classify(err) {
			case KindNotFound, KindInvalidState:
				logger.Debug("remote resource already gone", "remote_id", link.RemoteID)
			default:
				return err
			}
		}
	}
	return e.links.Delete(link.ID)
}

// pushTask uploads one pending task. Deleted tasks take their whole local
// subtree with them. Root tasks map to remote tasks; children map to
// checklist items under their parent's remote id.
func (e *Engine) pushTask(ctx context.Context, svc services.Service, list *models.TaskList, task *models.Task, logger *log.Logger) error {
	link, err := e.links.GetByTask(list.ID, task.ID)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}

	if task.Deleted {
		if err := e.deleteRemoteResource(ctx, svc, list, link, logger); err != nil {
			return err
		}
		return e.purgeSubtree(task.ID)
	}

	if task.Parent == 0 {
		return e.pushRootTask(ctx, svc, list, task, link, logger)
	}
	return e.pushSubtask(ctx, svc, list, task, link, logger)
}

func (e *Engine) pushRootTask(ctx context.Context, svc services.Service, list *models.TaskList, task *models.Task, link *models.TaskLink, logger *log.Logger) error {
	tags, err := e.tags.Names(task.ID)
	if err != nil {
		return err
	}

	remote := toRemote(task, link, tags)
	var pushed *services.RemoteTask
	if link.LastSync == 0 {
		pushed, err = svc.CreateTask(ctx, list.RemoteID, remote)
	} else {
		pushed, err = svc.UpdateTask(ctx, list.RemoteID, link.RemoteID, remote)
	}
	if err != nil {
		return err
	}

	logger.Debug("task pushed", "task", task.Title)
	return e.finishPush(link, pushed.ID, pushed.ETag, "", task.ModificationDate)
}

func (e *Engine) pushSubtask(ctx context.Context, svc services.Service, list *models.TaskList, task *models.Task, link *models.TaskLink, logger *log.Logger) error {
	parentLink, err := e.links.GetByTask(list.ID, task.Parent)
	if err != nil {
		return err
	}
	if parentLink == nil || parentLink.RemoteID == "" {
		// Parent not pushed yet; the subtask goes out next pass.
		return nil
	}

	item := toChecklistItem(task, link.RemoteID)
	var pushed *services.ChecklistItem
	if link.LastSync == 0 {
		pushed, err = svc.CreateChecklistItem(ctx, list.RemoteID, parentLink.RemoteID, item)
	} else {
		pushed, err = svc.UpdateChecklistItem(ctx, list.RemoteID, parentLink.RemoteID, item)
	}
	if err != nil {
		return err
	}

	logger.Debug("subtask pushed", "task", task.Title)
	return e.finishPush(link, pushed.ID, link.ETag, parentLink.RemoteID, task.ModificationDate)
}

// finishPush records the remote identity assigned by a successful upload so
// the task reads as clean until its next local edit.
func (e *Engine) finishPush(link *models.TaskLink, remoteID, etag, remoteParent string, modified int64) error {
	link.RemoteID = remoteID
	link.ETag = etag
	link.RemoteParent = remoteParent
	link.LastSync = modified
	link.Moved = false
	return e.links.Update(link)
}
