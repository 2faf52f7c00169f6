package engine

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
)

// applyRemoteTask folds one remote task into the local store. Tombstones
// cascade to the local subtree. Updates to tasks with unpushed local edits
// are discarded whole; the local copy wins and goes out during the push
// phase of the same pass.
func (e *Engine) applyRemoteTask(list *models.TaskList, remote *services.RemoteTask, logger *log.Logger) error {
	if remote.Removed != nil {
		return e.deleteByRemoteID(list, remote.ID, logger)
	}

	link, err := e.links.GetByRemoteID(list.ID, remote.ID)
	if err != nil {
		return err
	}

	var task *models.Task
	if link == nil {
		task = &models.Task{CreationDate: shared.NowMillis()}
	} else {
		task, err = e.tasks.Get(link.TaskID)
		if err != nil {
			return err
		}
		if link.Dirty(task) {
			logger.Warn("discarding remote update, task has local changes", "task", task.Title)
			return e.syncChecklist(list, task, remote.ID, remote.ChecklistItems, logger)
		}
	}

	applyRemote(task, remote, e.defaultPriority)

	if link == nil {
		if err := e.tasks.Create(task); err != nil {
			return err
		}
	} else if err := e.tasks.SaveSynced(task); err != nil {
		return err
	}

	if err := e.applyTags(task, remote.Categories); err != nil {
		return err
	}

	if err := e.syncChecklist(list, task, remote.ID, remote.ChecklistItems, logger); err != nil {
		return err
	}

	if link == nil {
		link = &models.TaskLink{ListID: list.ID, TaskID: task.ID}
	}
	link.RemoteID = remote.ID
	link.ETag = remote.ETag
	link.LastSync = task.ModificationDate
	if link.ID == 0 {
		return e.links.Create(link)
	}
	return e.links.Update(link)
}

// applyTags replaces the task's tag set with the remote categories.
func (e *Engine) applyTags(task *models.Task, categories []string) error {
	tags, err := e.tags.Resolve(categories)
	if err != nil {
		return err
	}
	return e.tags.Apply(task.ID, tags)
}

// deleteByRemoteID removes the local mirror of a remotely deleted task,
// including every descendant.
func (e *Engine) deleteByRemoteID(list *models.TaskList, remoteID string, logger *log.Logger) error {
	link, err := e.links.GetByRemoteID(list.ID, remoteID)
	if err != nil || link == nil {
		return err
	}
	logger.Debug("task removed remotely", "remote_id", remoteID)
	return e.purgeSubtree(link.TaskID)
}

// purgeSubtree deletes a task and its descendants together with their links.
func (e *Engine) purgeSubtree(taskID int64) error {
	ids, err := e.tasks.Subtree(taskID)
	if err != nil {
		return err
	}
	if err := e.links.DeleteByTasks(ids); err != nil {
		return err
	}
	return e.tasks.DeleteAll(ids)
}

// pruneVanished deletes local mirrors whose remote counterpart no longer
// exists. Only valid after a full enumeration; a delta fetch reports
// deletions explicitly instead. Unpushed links have no remote counterpart
// yet and moved links are deleted by the push phase, so both are skipped.
func (e *Engine) pruneVanished(list *models.TaskList, fetched map[string]bool, logger *log.Logger) error {
	links, err := e.links.ListByList(list.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if link.RemoteID == "" || link.Moved || fetched[link.RemoteID] {
			continue
		}
		logger.Debug("task vanished remotely", "remote_id", link.RemoteID)
		if err := e.purgeSubtree(link.TaskID); err != nil {
			return err
		}
	}
	return nil
}
