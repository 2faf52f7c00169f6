package models

import "time"

// Account types. Each selects the provider adapter used for the connection.
const (
	AccountMicrosoft = "microsoft"
	AccountGoogle    = "google"
	AccountCaldav    = "caldav"
)

// Local priority scale. High sorts first, mirroring the remote importance
// enum ordering used by the converters.
const (
	PriorityHigh = iota
	PriorityMedium
	PriorityLow
	PriorityNone
)

// List access levels.
const (
	AccessUnknown = iota
	AccessOwner
	AccessReadWrite
	AccessReadOnly
)

// Account identifies a remote service connection.
//
// Error holds the last sync failure message; the empty string means the
// account is healthy. The engine rewrites it on every sync pass.
type Account struct {
	ID        string
	Sequence  int
	Type      string
	Username  string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// TaskList is the local mirror of a remote task list.
//
// SyncCursor is the opaque delta token ("ctag" equivalent); when present the
// engine fetches changes incrementally instead of the full collection.
type TaskList struct {
	ID         string
	AccountID  string
	RemoteID   string
	Name       string
	Access     int
	SyncCursor string
	LastSync   int64
	Default    bool
}

// Task is a hierarchical local task. Parent == 0 marks a root task.
//
// Dates are Unix milliseconds; a zero CompletionDate means incomplete and a
// zero DueDate means no due date. HasDueTime records whether DueDate carries
// a meaningful time-of-day component.
type Task struct {
	ID               int64
	Parent           int64
	Title            string
	Notes            string
	Priority         int
	DueDate          int64
	HasDueTime       bool
	CompletionDate   int64
	CreationDate     int64
	ModificationDate int64
	Deleted          bool
	Recurrence       string
}

// Completed reports whether the task has a completion timestamp.
func (t *Task) Completed() bool {
	return t.CompletionDate > 0
}

// Recurring reports whether the task carries a recurrence rule.
func (t *Task) Recurring() bool {
	return t.Recurrence != ""
}

// TaskLink maps one local task to one remote identity within one list.
// At most one link exists per (ListID, TaskID) pair.
//
// LastSync records the task's modification date at the moment it was last
// confirmed synced; zero means the task was never pushed. Moved marks links
// whose task left this list locally and must be deleted remotely before the
// task is recreated in its new list.
type TaskLink struct {
	ID           int64
	TaskID       int64
	ListID       string
	RemoteID     string
	RemoteParent string
	ETag         string
	LastSync     int64
	Moved        bool
}

// Dirty reports whether the local task has edits newer than the last
// confirmed sync. Incoming remote updates must not clobber a dirty task.
func (l *TaskLink) Dirty(task *Task) bool {
	return task.ModificationDate > l.LastSync
}

// Tag is a named label. Remote categories resolve to tags by name, creating
// missing ones on the fly.
type Tag struct {
	ID   string
	Name string
}
