package engine

import (
	"strings"
	"time"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
	"github.com/teambition/rrule-go"
)

const (
	bodyTypeText = "text"
	// Wall-clock format used inside DateTimeTZ payloads.
	dateTimeFormat = "2006-01-02T15:04:05.0000000"
)

var weekdayFromWire = map[string]rrule.Weekday{
	"sunday":    rrule.SU,
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
}

var weekdayToWire = map[int]string{
	rrule.SU.Day(): "sunday",
	rrule.MO.Day(): "monday",
	rrule.TU.Day(): "tuesday",
	rrule.WE.Day(): "wednesday",
	rrule.TH.Day(): "thursday",
	rrule.FR.Day(): "friday",
	rrule.SA.Day(): "saturday",
}

// applyRemote maps a remote task's fields onto the local task.
//
// Priority resolution never downgrades an explicitly set high priority: a
// high remote importance always wins, an existing non-high local priority
// is kept, and otherwise the configured default fills the slot unless the
// default itself is high.
func applyRemote(task *models.Task, remote *services.RemoteTask, defaultPriority int) {
	task.Title = remote.Title
	task.Notes = ""
	if remote.Body != nil && remote.Body.ContentType == bodyTypeText {
		task.Notes = strings.TrimSpace(remote.Body.Content)
	}

	switch {
	case remote.Importance == services.ImportanceHigh:
		task.Priority = models.PriorityHigh
	case task.Priority != models.PriorityHigh:
		// keep the local value
	case defaultPriority != models.PriorityHigh:
		task.Priority = defaultPriority
	default:
		task.Priority = models.PriorityNone
	}

	task.CompletionDate = parseDateTimeTZ(remote.Completed, shared.NowMillis())

	if due := parseDateTimeTZ(remote.Due, 0); due > 0 && task.HasDueTime && task.DueDate > 0 {
		// Only the date changed remotely; keep the local time-of-day so a
		// provider that stores date-only due dates can't strip the time
		// (and DST offsets don't shift it).
		old := time.UnixMilli(task.DueDate).In(time.Local)
		day := time.UnixMilli(due).In(time.Local)
		task.DueDate = time.Date(day.Year(), day.Month(), day.Day(),
			old.Hour(), old.Minute(), old.Second(), 0, time.Local).UnixMilli()
	} else {
		task.DueDate = due
	}

	task.CreationDate = parseWireTime(remote.Created, shared.NowMillis())
	task.ModificationDate = parseWireTime(remote.Modified, shared.NowMillis())
	task.Recurrence = patternToRule(remote.Recurrence)
}

// applySubtask maps a checklist item onto a local child task. Checklist
// items carry title and completion only.
func applySubtask(task *models.Task, parent int64, item *services.ChecklistItem) {
	task.Parent = parent
	task.Title = item.DisplayName
	if item.IsChecked {
		task.CompletionDate = parseWireTime(item.CheckedDateTime, shared.NowMillis())
	} else {
		task.CompletionDate = 0
	}
	task.CreationDate = parseWireTime(item.CreatedDateTime, shared.NowMillis())
}

// toRemote builds the outbound wire representation of a root task.
func toRemote(task *models.Task, link *models.TaskLink, tags []string) *services.RemoteTask {
	remote := &services.RemoteTask{
		ID:         link.RemoteID,
		Title:      task.Title,
		Importance: services.ImportanceLow,
		Status:     services.StatusNotStarted,
		Created:    formatWireTime(task.CreationDate),
		Modified:   formatWireTime(task.ModificationDate),
		Categories: tags,
	}

	if task.Notes != "" {
		remote.Body = &services.Body{Content: task.Notes, ContentType: bodyTypeText}
	}

	switch task.Priority {
	case models.PriorityHigh:
		remote.Importance = services.ImportanceHigh
	case models.PriorityMedium:
		remote.Importance = services.ImportanceNormal
	}

	if task.Completed() {
		remote.Status = services.StatusCompleted
		remote.Completed = formatDateTimeTZ(task.CompletionDate)
	}

	switch {
	case task.DueDate > 0:
		remote.Due = formatDateTimeTZ(startOfDay(task.DueDate))
	case task.Recurring():
		// A recurring task must carry a due date on the wire.
		remote.Due = formatDateTimeTZ(startOfDay(shared.NowMillis()))
	}

	remote.Recurrence = ruleToPattern(task.Recurrence, task.DueDate)

	return remote
}

// toChecklistItem builds the outbound wire representation of a child task.
func toChecklistItem(task *models.Task, remoteID string) *services.ChecklistItem {
	item := &services.ChecklistItem{
		ID:              remoteID,
		DisplayName:     task.Title,
		IsChecked:       task.Completed(),
		CreatedDateTime: formatWireTime(task.CreationDate),
	}
	if task.Completed() {
		item.CheckedDateTime = formatWireTime(task.CompletionDate)
	}
	return item
}

// patternToRule converts a provider recurrence pattern to an RRULE string.
// Unsupported pattern types drop the recurrence.
func patternToRule(rec *services.Recurrence) string {
	if rec == nil {
		return ""
	}

	opt := rrule.ROption{}
	switch rec.Pattern.Type {
	case services.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case services.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case services.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
	case services.RecurrenceYearly:
		opt.Freq = rrule.YEARLY
	default:
		return ""
	}

	if rec.Pattern.Interval > 1 {
		opt.Interval = rec.Pattern.Interval
	}
	for _, day := range rec.Pattern.DaysOfWeek {
		if wd, ok := weekdayFromWire[day]; ok {
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}

	return opt.RRuleString()
}

// ruleToPattern converts a local RRULE string to a provider recurrence
// pattern. Month and day-of-month derive from the due date for monthly and
// yearly patterns, matching provider expectations.
func ruleToPattern(rule string, dueDate int64) *services.Recurrence {
	if rule == "" {
		return nil
	}

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil
	}

	pattern := services.Pattern{Interval: opt.Interval}
	if pattern.Interval < 1 {
		pattern.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		pattern.Type = services.RecurrenceDaily
	case rrule.WEEKLY:
		pattern.Type = services.RecurrenceWeekly
	case rrule.MONTHLY:
		pattern.Type = services.RecurrenceMonthly
	case rrule.YEARLY:
		pattern.Type = services.RecurrenceYearly
	default:
		return nil
	}

	for _, wd := range opt.Byweekday {
		if name, ok := weekdayToWire[wd.Day()]; ok {
			pattern.DaysOfWeek = append(pattern.DaysOfWeek, name)
		}
	}

	due := time.Now()
	if dueDate > 0 {
		due = time.UnixMilli(dueDate).In(time.Local)
	}
	switch pattern.Type {
	case services.RecurrenceYearly:
		pattern.Month = int(due.Month())
		pattern.DayOfMonth = due.Day()
	case services.RecurrenceMonthly:
		pattern.DayOfMonth = due.Day()
	}

	return &services.Recurrence{Pattern: pattern}
}

// parseWireTime parses an RFC 3339 wire timestamp into Unix milliseconds.
func parseWireTime(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return t.UnixMilli()
}

// formatWireTime formats Unix milliseconds as an RFC 3339 UTC timestamp.
func formatWireTime(millis int64) string {
	if millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}

// parseDateTimeTZ parses a zoned wall-clock payload into Unix milliseconds.
// Returns 0 for an absent payload and fallback for a malformed one.
func parseDateTimeTZ(dt *services.DateTimeTZ, fallback int64) int64 {
	if dt == nil {
		return 0
	}

	loc, err := time.LoadLocation(dt.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	t, err := time.ParseInLocation(dateTimeFormat, dt.DateTime, loc)
	if err != nil {
		return fallback
	}
	return t.UnixMilli()
}

// formatDateTimeTZ formats Unix milliseconds as a zoned wall-clock payload
// in the local time zone.
func formatDateTimeTZ(millis int64) *services.DateTimeTZ {
	t := time.UnixMilli(millis).In(time.Local)
	return &services.DateTimeTZ{
		DateTime: t.Format(dateTimeFormat),
		TimeZone: time.Local.String(),
	}
}

// startOfDay truncates a millisecond timestamp to local midnight.
func startOfDay(millis int64) int64 {
	t := time.UnixMilli(millis).In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local).UnixMilli()
}
