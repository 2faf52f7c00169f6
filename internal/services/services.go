package services

import (
	"context"
	"fmt"
)

// Importance values carried by the generic wire model.
const (
	ImportanceLow    = "low"
	ImportanceNormal = "normal"
	ImportanceHigh   = "high"
)

// Status values carried by the generic wire model.
const (
	StatusNotStarted = "notStarted"
	StatusCompleted  = "completed"
)

// Recurrence pattern types.
const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "absoluteMonthly"
	RecurrenceYearly  = "absoluteYearly"
)

// Provider error codes signalling that a stored delta cursor is no longer
// valid and the caller must fall back to a full sync.
const (
	CodeResourceNotFound  = "ResourceNotFound"
	CodeSyncStateNotFound = "syncStateNotFound"
)

// WellKnownDefaultList marks the provider's default list in list metadata.
const WellKnownDefaultList = "defaultList"

// Service is the provider-specific adapter the sync engine drives.
// One implementation exists per account type.
type Service interface {
	// Name returns the provider name (e.g. "Microsoft To Do").
	Name() string

	// SupportsDelta reports whether the provider hands out delta cursors.
	SupportsDelta() bool

	// GetLists retrieves the first page of the user's task lists.
	GetLists(ctx context.Context) (*TaskListPage, error)

	// PaginateLists retrieves a subsequent page of task lists.
	PaginateLists(ctx context.Context, pageToken string) (*TaskListPage, error)

	// GetTasks retrieves the first page of a list's full task collection.
	GetTasks(ctx context.Context, listID string) (*TaskPage, error)

	// DeltaTasks retrieves changes since the given cursor.
	DeltaTasks(ctx context.Context, listID, cursor string) (*TaskPage, error)

	// PaginateTasks retrieves a subsequent page of a task fetch.
	PaginateTasks(ctx context.Context, pageToken string) (*TaskPage, error)

	// CreateTask creates a task in the given list and returns the stored
	// resource with its assigned id.
	CreateTask(ctx context.Context, listID string, task *RemoteTask) (*RemoteTask, error)

	// UpdateTask rewrites an existing remote task.
	UpdateTask(ctx context.Context, listID, taskID string, task *RemoteTask) (*RemoteTask, error)

	// DeleteTask deletes a remote task.
	DeleteTask(ctx context.Context, listID, taskID string) error

	// CreateChecklistItem creates a checklist item under a parent task.
	CreateChecklistItem(ctx context.Context, listID, parentID string, item *ChecklistItem) (*ChecklistItem, error)

	// UpdateChecklistItem rewrites an existing checklist item.
	UpdateChecklistItem(ctx context.Context, listID, parentID string, item *ChecklistItem) (*ChecklistItem, error)

	// DeleteChecklistItem deletes a checklist item.
	DeleteChecklistItem(ctx context.Context, listID, parentID, itemID string) error
}

// TaskListPage is one page of a task list enumeration.
type TaskListPage struct {
	Items    []RemoteTaskList `json:"items"`
	NextPage string           `json:"nextPage,omitempty"`
}

// RemoteTaskList is a remote list's metadata.
type RemoteTaskList struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	IsOwner       bool   `json:"isOwner,omitempty"`
	IsShared      bool   `json:"isShared,omitempty"`
	WellKnownName string `json:"wellKnownName,omitempty"`
}

// TaskPage is one page of a task fetch. NextDelta may arrive on any page;
// the last one seen is the cursor to persist.
type TaskPage struct {
	Items     []RemoteTask `json:"items"`
	NextPage  string       `json:"nextPage,omitempty"`
	NextDelta string       `json:"nextDeltaCursor,omitempty"`
}

// RemoteTask is a task as the wire sees it.
type RemoteTask struct {
	ID             string          `json:"id,omitempty"`
	Title          string          `json:"title"`
	Body           *Body           `json:"body,omitempty"`
	Importance     string          `json:"importance,omitempty"`
	Status         string          `json:"status,omitempty"`
	Due            *DateTimeTZ     `json:"due,omitempty"`
	Completed      *DateTimeTZ     `json:"completed,omitempty"`
	Created        string          `json:"created,omitempty"`
	Modified       string          `json:"modified,omitempty"`
	Categories     []string        `json:"categories,omitempty"`
	Recurrence     *Recurrence     `json:"recurrence,omitempty"`
	ChecklistItems []ChecklistItem `json:"checklistItems,omitempty"`
	Removed        *Removed        `json:"removed,omitempty"`
	ETag           string          `json:"etag,omitempty"`
}

// Removed is the tombstone marker on delta responses.
type Removed struct {
	Reason string `json:"reason,omitempty"`
}

// Body is a task's notes payload.
type Body struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// DateTimeTZ is a wall-clock timestamp paired with an IANA time zone.
type DateTimeTZ struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Recurrence wraps a provider recurrence pattern.
type Recurrence struct {
	Pattern Pattern `json:"pattern"`
}

// Pattern describes how a task repeats.
type Pattern struct {
	Type       string   `json:"type"`
	Interval   int      `json:"interval"`
	DaysOfWeek []string `json:"daysOfWeek,omitempty"`
	Month      int      `json:"month,omitempty"`
	DayOfMonth int      `json:"dayOfMonth,omitempty"`
}

// ChecklistItem is a provider-side sub-item of a task, mapped locally to a
// single-level child task.
type ChecklistItem struct {
	ID              string `json:"id,omitempty"`
	DisplayName     string `json:"displayName"`
	IsChecked       bool   `json:"isChecked"`
	CreatedDateTime string `json:"createdDateTime,omitempty"`
	CheckedDateTime string `json:"checkedDateTime,omitempty"`
}

// ErrorEnvelope is the provider error response shape.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the provider error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPError is a non-success response from a provider, decoded from the
// error envelope when one was present.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error: status %d", e.StatusCode)
}

// CursorInvalid reports whether the error signals an expired delta cursor.
func (e *HTTPError) CursorInvalid() bool {
	return e.Code == CodeResourceNotFound || e.Code == CodeSyncStateNotFound
}
