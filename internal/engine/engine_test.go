package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/repositories"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
)

// mockService is a scriptable Service double. Fetches serve canned pages;
// writes are recorded for assertions.
type mockService struct {
	delta bool

	mu sync.Mutex

	lists      []services.RemoteTaskList
	listsErr   error
	blockLists chan struct{}

	// taskPages serves GetTasks by list remote id and PaginateTasks by
	// page token.
	taskPages map[string]*services.TaskPage
	deltaFn   func(listID, cursor string) (*services.TaskPage, error)

	seq           int
	pushed        []string
	deletedTasks  []string
	deletedItems  []string
	deleteTaskErr error
}

func (m *mockService) Name() string        { return "Mock" }
func (m *mockService) SupportsDelta() bool { return m.delta }

func (m *mockService) GetLists(ctx context.Context) (*services.TaskListPage, error) {
	if m.blockLists != nil {
		<-m.blockLists
	}
	if m.listsErr != nil {
		return nil, m.listsErr
	}
	return &services.TaskListPage{Items: m.lists}, nil
}

func (m *mockService) PaginateLists(ctx context.Context, pageToken string) (*services.TaskListPage, error) {
	return &services.TaskListPage{}, nil
}

func (m *mockService) GetTasks(ctx context.Context, listID string) (*services.TaskPage, error) {
	if page, ok := m.taskPages[listID]; ok {
		return page, nil
	}
	return &services.TaskPage{}, nil
}

func (m *mockService) DeltaTasks(ctx context.Context, listID, cursor string) (*services.TaskPage, error) {
	if m.deltaFn != nil {
		return m.deltaFn(listID, cursor)
	}
	return &services.TaskPage{}, nil
}

func (m *mockService) PaginateTasks(ctx context.Context, pageToken string) (*services.TaskPage, error) {
	if page, ok := m.taskPages[pageToken]; ok {
		return page, nil
	}
	return &services.TaskPage{}, nil
}

func (m *mockService) CreateTask(ctx context.Context, listID string, task *services.RemoteTask) (*services.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	created := *task
	created.ID = fmt.Sprintf("srv-%d", m.seq)
	created.ETag = fmt.Sprintf("etag-%d", m.seq)
	m.pushed = append(m.pushed, "create task "+task.Title)
	return &created, nil
}

func (m *mockService) UpdateTask(ctx context.Context, listID, taskID string, task *services.RemoteTask) (*services.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := *task
	updated.ID = taskID
	m.pushed = append(m.pushed, "update task "+task.Title)
	return &updated, nil
}

func (m *mockService) DeleteTask(ctx context.Context, listID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteTaskErr != nil {
		return m.deleteTaskErr
	}
	m.deletedTasks = append(m.deletedTasks, taskID)
	return nil
}

func (m *mockService) CreateChecklistItem(ctx context.Context, listID, parentID string, item *services.ChecklistItem) (*services.ChecklistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	created := *item
	created.ID = fmt.Sprintf("srv-%d", m.seq)
	m.pushed = append(m.pushed, "create item "+item.DisplayName)
	return &created, nil
}

func (m *mockService) UpdateChecklistItem(ctx context.Context, listID, parentID string, item *services.ChecklistItem) (*services.ChecklistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := *item
	m.pushed = append(m.pushed, "update item "+item.DisplayName)
	return &updated, nil
}

func (m *mockService) DeleteChecklistItem(ctx context.Context, listID, parentID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletedItems = append(m.deletedItems, itemID)
	return nil
}

// harness wires an Engine against an in-memory store and a mock service.
type harness struct {
	db       *sql.DB
	engine   *Engine
	accounts *repositories.AccountRepository
	lists    *repositories.ListRepository
	tasks    *repositories.TaskRepository
	links    *repositories.LinkRepository
	tags     *repositories.TagRepository
	settings *repositories.SettingsRepository
	account  *models.Account
	svc      *mockService
}

func newHarness(t *testing.T, svc *mockService) *harness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	h := &harness{
		db:       db,
		accounts: repositories.NewAccountRepository(db),
		lists:    repositories.NewListRepository(db),
		tasks:    repositories.NewTaskRepository(db),
		links:    repositories.NewLinkRepository(db),
		tags:     repositories.NewTagRepository(db),
		settings: repositories.NewSettingsRepository(db),
		svc:      svc,
	}

	h.account = &models.Account{Type: models.AccountMicrosoft, Username: "test@example.com"}
	if err := h.accounts.Create(h.account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	h.engine = New(Opts{
		Accounts:        h.accounts,
		Lists:           h.lists,
		Tasks:           h.tasks,
		Links:           h.links,
		Tags:            h.tags,
		Settings:        h.settings,
		Services:        func(account *models.Account) (services.Service, error) { return svc, nil },
		Logger:          shared.NewLogger(io.Discard),
		DefaultPriority: models.PriorityNone,
	})

	return h
}

func (h *harness) sync(t *testing.T) {
	t.Helper()
	if err := h.engine.SyncAccount(context.Background(), h.account); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
}

func (h *harness) localList(t *testing.T, remoteID string) *models.TaskList {
	t.Helper()
	list, err := h.lists.GetByRemoteID(h.account.ID, remoteID)
	if err != nil {
		t.Fatalf("failed to get list: %v", err)
	}
	if list == nil {
		t.Fatalf("no local mirror for remote list %s", remoteID)
	}
	return list
}

func (h *harness) taskByRemoteID(t *testing.T, listID, remoteID string) *models.Task {
	t.Helper()
	link, err := h.links.GetByRemoteID(listID, remoteID)
	if err != nil {
		t.Fatalf("failed to get link: %v", err)
	}
	if link == nil {
		return nil
	}
	task, err := h.tasks.Get(link.TaskID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	return task
}

func singleList() []services.RemoteTaskList {
	return []services.RemoteTaskList{
		{ID: "rl-1", DisplayName: "Tasks", IsOwner: true, WellKnownName: services.WellKnownDefaultList},
	}
}

func TestSyncImport(t *testing.T) {
	t.Run("Full Sync Creates Mirrors", func(t *testing.T) {
		svc := &mockService{
			delta: true,
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {
					Items: []services.RemoteTask{
						{
							ID:         "rt-1",
							Title:      "Buy milk",
							Importance: services.ImportanceHigh,
							Categories: []string{"errands"},
							Modified:   "2026-01-10T10:00:00Z",
							ChecklistItems: []services.ChecklistItem{
								{ID: "rc-1", DisplayName: "check fridge"},
							},
						},
					},
					NextDelta: "cursor-1",
				},
			},
		}
		h := newHarness(t, svc)

		h.sync(t)

		list := h.localList(t, "rl-1")
		if !list.Default {
			t.Error("expected well-known default list flagged default")
		}
		def, _ := h.settings.Get(repositories.DefaultListKey)
		if def != list.ID {
			t.Error("default list should be registered in settings")
		}
		if list.SyncCursor != "cursor-1" {
			t.Errorf("expected cursor persisted, got %q", list.SyncCursor)
		}

		task := h.taskByRemoteID(t, list.ID, "rt-1")
		if task == nil {
			t.Fatal("remote task should have a local mirror")
		}
		if task.Priority != models.PriorityHigh {
			t.Errorf("expected high priority, got %d", task.Priority)
		}
		names, _ := h.tags.Names(task.ID)
		if len(names) != 1 || names[0] != "errands" {
			t.Errorf("expected tags [errands], got %v", names)
		}

		sub := h.taskByRemoteID(t, list.ID, "rc-1")
		if sub == nil {
			t.Fatal("checklist item should have a local subtask")
		}
		if sub.Parent != task.ID {
			t.Errorf("subtask should hang under the remote task, parent=%d", sub.Parent)
		}
	})

	t.Run("Second Pass Is Idempotent", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "Buy milk", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)

		h.sync(t)
		h.sync(t)

		list := h.localList(t, "rl-1")
		links, err := h.links.ListByList(list.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(links) != 1 {
			t.Errorf("expected one link after two passes, got %d", len(links))
		}
		if len(svc.pushed) != 0 {
			t.Errorf("clean state should push nothing, pushed %v", svc.pushed)
		}
	})

	t.Run("Pagination Concatenates", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {
					Items:    []services.RemoteTask{{ID: "rt-1", Title: "one", Modified: "2026-01-10T10:00:00Z"}},
					NextPage: "page-2",
				},
				"page-2": {
					Items:     []services.RemoteTask{{ID: "rt-2", Title: "two", Modified: "2026-01-10T10:00:00Z"}},
					NextDelta: "cursor-final",
				},
			},
		}
		h := newHarness(t, svc)

		h.sync(t)

		list := h.localList(t, "rl-1")
		for _, remoteID := range []string{"rt-1", "rt-2"} {
			if h.taskByRemoteID(t, list.ID, remoteID) == nil {
				t.Errorf("task %s from paged fetch missing", remoteID)
			}
		}
		if list.SyncCursor != "cursor-final" {
			t.Errorf("expected cursor from last page, got %q", list.SyncCursor)
		}
	})

	t.Run("List Rename Propagates", func(t *testing.T) {
		svc := &mockService{lists: singleList()}
		h := newHarness(t, svc)

		h.sync(t)
		svc.lists[0].DisplayName = "Renamed"
		h.sync(t)

		list := h.localList(t, "rl-1")
		if list.Name != "Renamed" {
			t.Errorf("expected renamed list, got %s", list.Name)
		}
	})

	t.Run("Vanished List Cascades", func(t *testing.T) {
		svc := &mockService{
			lists: []services.RemoteTaskList{
				{ID: "rl-1", DisplayName: "Keep", IsOwner: true},
				{ID: "rl-2", DisplayName: "Drop", IsOwner: true},
			},
			taskPages: map[string]*services.TaskPage{
				"rl-2": {Items: []services.RemoteTask{{ID: "rt-1", Title: "orphan", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)

		h.sync(t)
		dropped := h.localList(t, "rl-2")
		orphan := h.taskByRemoteID(t, dropped.ID, "rt-1")

		svc.lists = svc.lists[:1]
		h.sync(t)

		if list, _ := h.lists.GetByRemoteID(h.account.ID, "rl-2"); list != nil {
			t.Error("vanished list should lose its mirror")
		}
		if _, err := h.tasks.Get(orphan.ID); err == nil {
			t.Error("tasks of a vanished list should be deleted")
		}
	})
}

func TestSyncConflicts(t *testing.T) {
	t.Run("Dirty Task Keeps Local Content", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "original", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		task := h.taskByRemoteID(t, list.ID, "rt-1")
		task.Title = "local edit"
		if err := h.tasks.Save(task); err != nil {
			t.Fatal(err)
		}

		svc.taskPages["rl-1"].Items[0].Title = "remote edit"
		h.sync(t)

		task = h.taskByRemoteID(t, list.ID, "rt-1")
		if task.Title != "local edit" {
			t.Errorf("dirty task must keep local content, got %q", task.Title)
		}
		// The losing remote update is replaced by the local push.
		found := false
		for _, op := range svc.pushed {
			if op == "update task local edit" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected local edit pushed out, pushed %v", svc.pushed)
		}
	})

	t.Run("Clean Task Takes Remote Update", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "original", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		svc.taskPages["rl-1"].Items[0].Title = "remote edit"
		svc.taskPages["rl-1"].Items[0].Modified = "2026-01-11T10:00:00Z"
		h.sync(t)

		list := h.localList(t, "rl-1")
		task := h.taskByRemoteID(t, list.ID, "rt-1")
		if task.Title != "remote edit" {
			t.Errorf("clean task should take remote update, got %q", task.Title)
		}
		if len(svc.pushed) != 0 {
			t.Errorf("applying a remote update must not trigger a push, pushed %v", svc.pushed)
		}
	})
}

func TestSyncDeletes(t *testing.T) {
	t.Run("Remote Tombstone Cascades", func(t *testing.T) {
		svc := &mockService{
			delta: true,
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {
					Items: []services.RemoteTask{{
						ID: "rt-1", Title: "parent", Modified: "2026-01-10T10:00:00Z",
						ChecklistItems: []services.ChecklistItem{{ID: "rc-1", DisplayName: "child"}},
					}},
					NextDelta: "cursor-1",
				},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		parent := h.taskByRemoteID(t, list.ID, "rt-1")
		child := h.taskByRemoteID(t, list.ID, "rc-1")

		svc.deltaFn = func(listID, cursor string) (*services.TaskPage, error) {
			return &services.TaskPage{
				Items:     []services.RemoteTask{{ID: "rt-1", Removed: &services.Removed{Reason: "deleted"}}},
				NextDelta: "cursor-2",
			}, nil
		}
		h.sync(t)

		if _, err := h.tasks.Get(parent.ID); err == nil {
			t.Error("tombstoned task should be deleted locally")
		}
		if _, err := h.tasks.Get(child.ID); err == nil {
			t.Error("tombstone should cascade to the local subtree")
		}
	})

	t.Run("Full Sync Prunes Vanished Tasks", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{
					{ID: "rt-1", Title: "stays", Modified: "2026-01-10T10:00:00Z"},
					{ID: "rt-2", Title: "goes", Modified: "2026-01-10T10:00:00Z"},
				}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		goes := h.taskByRemoteID(t, list.ID, "rt-2")

		svc.taskPages["rl-1"].Items = svc.taskPages["rl-1"].Items[:1]
		h.sync(t)

		if _, err := h.tasks.Get(goes.ID); err == nil {
			t.Error("vanished remote task should be pruned on full sync")
		}
		if h.taskByRemoteID(t, list.ID, "rt-1") == nil {
			t.Error("surviving task should remain")
		}
	})

	t.Run("Checklist Pruning", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{
					ID: "rt-1", Title: "parent", Modified: "2026-01-10T10:00:00Z",
					ChecklistItems: []services.ChecklistItem{
						{ID: "rc-1", DisplayName: "keep"},
						{ID: "rc-2", DisplayName: "drop"},
					},
				}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		drop := h.taskByRemoteID(t, list.ID, "rc-2")

		svc.taskPages["rl-1"].Items[0].ChecklistItems = svc.taskPages["rl-1"].Items[0].ChecklistItems[:1]
		h.sync(t)

		if _, err := h.tasks.Get(drop.ID); err == nil {
			t.Error("subtask whose checklist item vanished should be deleted")
		}
		if h.taskByRemoteID(t, list.ID, "rc-1") == nil {
			t.Error("surviving checklist item should remain")
		}
	})

	t.Run("Local Delete Pushes And Purges", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "doomed", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		task := h.taskByRemoteID(t, list.ID, "rt-1")
		if err := h.tasks.MarkDeleted(task.ID); err != nil {
			t.Fatal(err)
		}

		// Remote fetch no longer returns it either way; the flagged delete
		// must still be pushed.
		svc.taskPages["rl-1"].Items = nil
		h.sync(t)

		if _, err := h.tasks.Get(task.ID); err == nil {
			t.Error("deleted task should be purged after push")
		}
	})

	t.Run("Delete Tolerates Remote 404", func(t *testing.T) {
		svc := &mockService{
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "doomed", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		task := h.taskByRemoteID(t, list.ID, "rt-1")
		if err := h.tasks.MarkDeleted(task.ID); err != nil {
			t.Fatal(err)
		}

		svc.taskPages["rl-1"].Items = nil
		svc.deleteTaskErr = &services.HTTPError{StatusCode: 404}
		h.sync(t)

		if _, err := h.tasks.Get(task.ID); err == nil {
			t.Error("remote 404 on delete should count as success")
		}
		if h.account.Error != "" {
			t.Errorf("account should stay healthy, got %q", h.account.Error)
		}
	})
}

func TestSyncPush(t *testing.T) {
	t.Run("Parent Before Child", func(t *testing.T) {
		svc := &mockService{lists: singleList()}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")

		root := &models.Task{Title: "new root"}
		if err := h.tasks.Create(root); err != nil {
			t.Fatal(err)
		}
		child := &models.Task{Title: "new child", Parent: root.ID}
		if err := h.tasks.Create(child); err != nil {
			t.Fatal(err)
		}
		for _, id := range []int64{child.ID, root.ID} {
			if err := h.links.Create(&models.TaskLink{ListID: list.ID, TaskID: id}); err != nil {
				t.Fatal(err)
			}
		}

		h.sync(t)

		if len(svc.pushed) != 2 {
			t.Fatalf("expected two pushes, got %v", svc.pushed)
		}
		if svc.pushed[0] != "create task new root" || svc.pushed[1] != "create item new child" {
			t.Errorf("expected parent pushed before child, got %v", svc.pushed)
		}

		childLink, err := h.links.GetByTask(list.ID, child.ID)
		if err != nil {
			t.Fatal(err)
		}
		rootLink, err := h.links.GetByTask(list.ID, root.ID)
		if err != nil {
			t.Fatal(err)
		}
		if childLink.RemoteParent != rootLink.RemoteID {
			t.Error("child link should reference the parent's assigned remote id")
		}
		if rootLink.LastSync == 0 || childLink.LastSync == 0 {
			t.Error("pushed links should record the sync watermark")
		}
	})

	t.Run("Create Round Trip Is Idempotent", func(t *testing.T) {
		svc := &mockService{lists: singleList()}
		h := newHarness(t, svc)
		h.sync(t)

		list := h.localList(t, "rl-1")
		task := &models.Task{Title: "once"}
		if err := h.tasks.Create(task); err != nil {
			t.Fatal(err)
		}
		if err := h.links.Create(&models.TaskLink{ListID: list.ID, TaskID: task.ID}); err != nil {
			t.Fatal(err)
		}

		h.sync(t)
		// Serve the pushed task back on the next full fetch.
		svc.taskPages = map[string]*services.TaskPage{
			"rl-1": {Items: []services.RemoteTask{{ID: "srv-1", Title: "once", Modified: "2026-01-10T10:00:00Z"}}},
		}
		h.sync(t)

		if len(svc.pushed) != 1 {
			t.Errorf("task should be pushed exactly once, got %v", svc.pushed)
		}
		links, _ := h.links.ListByList(list.ID)
		if len(links) != 1 {
			t.Errorf("expected a single link after round trip, got %d", len(links))
		}
	})

	t.Run("Move Deletes From Old List", func(t *testing.T) {
		svc := &mockService{
			lists: []services.RemoteTaskList{
				{ID: "rl-1", DisplayName: "Old", IsOwner: true},
				{ID: "rl-2", DisplayName: "New", IsOwner: true},
			},
			taskPages: map[string]*services.TaskPage{
				"rl-1": {Items: []services.RemoteTask{{ID: "rt-1", Title: "wanderer", Modified: "2026-01-10T10:00:00Z"}}},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		oldList := h.localList(t, "rl-1")
		newList := h.localList(t, "rl-2")
		task := h.taskByRemoteID(t, oldList.ID, "rt-1")

		// Move the task: flag the old link, link into the new list, dirty
		// the task so it pushes.
		oldLink, err := h.links.GetByTask(oldList.ID, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		oldLink.Moved = true
		if err := h.links.Update(oldLink); err != nil {
			t.Fatal(err)
		}
		if err := h.links.Create(&models.TaskLink{ListID: newList.ID, TaskID: task.ID}); err != nil {
			t.Fatal(err)
		}
		if err := h.tasks.Save(task); err != nil {
			t.Fatal(err)
		}

		svc.taskPages["rl-1"].Items = nil
		h.sync(t)

		if len(svc.deletedTasks) != 1 || svc.deletedTasks[0] != "rt-1" {
			t.Errorf("expected remote delete of rt-1 in old list, got %v", svc.deletedTasks)
		}
		if link, _ := h.links.GetByTask(oldList.ID, task.ID); link != nil {
			t.Error("moved link should be removed from the old list")
		}
		newLink, err := h.links.GetByTask(newList.ID, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if newLink.RemoteID == "" {
			t.Error("task should be recreated in the new list")
		}
		if _, err := h.tasks.Get(task.ID); err != nil {
			t.Errorf("moved task must survive: %v", err)
		}
	})
}

func TestSyncCursor(t *testing.T) {
	t.Run("Invalid Cursor Falls Back To Full Sync", func(t *testing.T) {
		svc := &mockService{
			delta: true,
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {
					Items:     []services.RemoteTask{{ID: "rt-1", Title: "one", Modified: "2026-01-10T10:00:00Z"}},
					NextDelta: "cursor-1",
				},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		deltaCalls := 0
		svc.deltaFn = func(listID, cursor string) (*services.TaskPage, error) {
			deltaCalls++
			return nil, &services.HTTPError{StatusCode: 404, Code: services.CodeSyncStateNotFound}
		}
		svc.taskPages["rl-1"] = &services.TaskPage{
			Items: []services.RemoteTask{
				{ID: "rt-1", Title: "one", Modified: "2026-01-10T10:00:00Z"},
				{ID: "rt-2", Title: "two", Modified: "2026-01-10T10:00:00Z"},
			},
			NextDelta: "cursor-2",
		}
		h.sync(t)

		if deltaCalls != 1 {
			t.Errorf("expected one rejected delta fetch, got %d", deltaCalls)
		}
		list := h.localList(t, "rl-1")
		if h.taskByRemoteID(t, list.ID, "rt-2") == nil {
			t.Error("full-sync fallback should import the new task")
		}
		if list.SyncCursor != "cursor-2" {
			t.Errorf("expected fresh cursor after fallback, got %q", list.SyncCursor)
		}
	})

	t.Run("Other Delta Errors Abort", func(t *testing.T) {
		svc := &mockService{
			delta: true,
			lists: singleList(),
			taskPages: map[string]*services.TaskPage{
				"rl-1": {NextDelta: "cursor-1"},
			},
		}
		h := newHarness(t, svc)
		h.sync(t)

		svc.deltaFn = func(listID, cursor string) (*services.TaskPage, error) {
			return nil, &services.HTTPError{StatusCode: 500}
		}
		if err := h.engine.SyncAccount(context.Background(), h.account); err == nil {
			t.Fatal("expected sync failure on server error")
		}

		list := h.localList(t, "rl-1")
		if list.SyncCursor != "cursor-1" {
			t.Errorf("cursor should survive a non-cursor failure, got %q", list.SyncCursor)
		}
	})
}

func TestSyncIsolation(t *testing.T) {
	t.Run("Failure Recorded On Account", func(t *testing.T) {
		svc := &mockService{listsErr: errors.New("boom")}
		h := newHarness(t, svc)

		if err := h.engine.SyncAccount(context.Background(), h.account); err == nil {
			t.Fatal("expected sync failure")
		}

		stored, err := h.accounts.Get(h.account.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Error == "" {
			t.Error("failure should be recorded on the account")
		}

		svc.listsErr = nil
		h.sync(t)
		stored, _ = h.accounts.Get(h.account.ID)
		if stored.Error != "" {
			t.Errorf("successful pass should clear the account error, got %q", stored.Error)
		}
	})

	t.Run("Account Failures Do Not Spread", func(t *testing.T) {
		svc := &mockService{lists: singleList()}
		h := newHarness(t, svc)

		broken := &models.Account{Type: models.AccountGoogle, Username: "broken@example.com"}
		if err := h.accounts.Create(broken); err != nil {
			t.Fatal(err)
		}

		failing := &mockService{listsErr: errors.New("boom")}
		h.engine.services = func(account *models.Account) (services.Service, error) {
			if account.ID == broken.ID {
				return failing, nil
			}
			return svc, nil
		}

		h.engine.SyncAll(context.Background(), []*models.Account{h.account, broken})

		healthy, _ := h.accounts.Get(h.account.ID)
		if healthy.Error != "" {
			t.Errorf("healthy account should not inherit the failure, got %q", healthy.Error)
		}
		failed, _ := h.accounts.Get(broken.ID)
		if failed.Error == "" {
			t.Error("failing account should record its error")
		}
		if h.localList(t, "rl-1") == nil {
			t.Error("healthy account should still sync its lists")
		}
	})

	t.Run("Concurrent Pass Rejected", func(t *testing.T) {
		block := make(chan struct{})
		svc := &mockService{lists: singleList(), blockLists: block}
		h := newHarness(t, svc)

		done := make(chan error, 1)
		go func() {
			done <- h.engine.SyncAccount(context.Background(), h.account)
		}()

		// Wait for the first pass to take the slot.
		for {
			if _, loaded := h.engine.inflight.Load(h.account.ID); loaded {
				break
			}
		}

		if err := h.engine.SyncAccount(context.Background(), h.account); !errors.Is(err, shared.ErrSyncInProgress) {
			t.Errorf("expected ErrSyncInProgress, got %v", err)
		}

		close(block)
		if err := <-done; err != nil {
			t.Fatalf("first pass should complete: %v", err)
		}

		// The slot is free again.
		h.sync(t)
	})
}
