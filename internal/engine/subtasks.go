package engine

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
)

// syncChecklist folds a remote task's checklist into local subtasks of the
// parent. Items checked off or renamed remotely overwrite clean subtasks;
// subtasks with unpushed edits keep their content but are still re-parented
// so the hierarchy never diverges. Subtasks whose item vanished from the
// checklist are deleted.
func (e *Engine) syncChecklist(list *models.TaskList, parent *models.Task, parentRemoteID string, items []services.ChecklistItem, logger *log.Logger) error {
	present := make(map[string]bool, len(items))
	for i := range items {
		present[items[i].ID] = true
	}

	children, err := e.tasks.Children(parent.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		link, err := e.links.GetByTask(list.ID, child)
		if err != nil {
			return err
		}
		if link == nil || link.RemoteID == "" || present[link.RemoteID] {
			continue
		}
		if err := e.purgeSubtree(child); err != nil {
			return err
		}
	}

	for i := range items {
		if err := e.applyChecklistItem(list, parent, parentRemoteID, &items[i], logger); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyChecklistItem(list *models.TaskList, parent *models.Task, parentRemoteID string, item *services.ChecklistItem, logger *log.Logger) error {
	link, err := e.links.GetByRemoteID(list.ID, item.ID)
	if err != nil {
		return err
	}

	var task *models.Task
	dirty := false
	if link == nil {
		task = &models.Task{CreationDate: shared.NowMillis()}
	} else {
		task, err = e.tasks.Get(link.TaskID)
		if err != nil {
			return err
		}
		dirty = link.Dirty(task)
	}

	if dirty {
		// Content edits stay local, but the parent assignment follows
		// the remote checklist.
		if task.Parent != parent.ID {
			task.Parent = parent.ID
			if err := e.tasks.SaveSynced(task); err != nil {
				return err
			}
		}
	} else {
		applySubtask(task, parent.ID, item)
		if link == nil {
			if err := e.tasks.Create(task); err != nil {
				return err
			}
		} else if err := e.tasks.SaveSynced(task); err != nil {
			return err
		}
	}

	if link == nil {
		link = &models.TaskLink{ListID: list.ID, TaskID: task.ID}
	}
	link.RemoteID = item.ID
	link.RemoteParent = parentRemoteID
	if !dirty {
		link.LastSync = task.ModificationDate
	}
	if link.ID == 0 {
		return e.links.Create(link)
	}
	return e.links.Update(link)
}
