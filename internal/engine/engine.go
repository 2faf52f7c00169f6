package engine

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/repositories"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
)

// ServiceFactory builds the provider adapter for an account.
type ServiceFactory func(account *models.Account) (services.Service, error)

// Opts contains the dependencies for creating an [Engine].
type Opts struct {
	Accounts *repositories.AccountRepository
	Lists    *repositories.ListRepository
	Tasks    *repositories.TaskRepository
	Links    *repositories.LinkRepository
	Tags     *repositories.TagRepository
	Settings *repositories.SettingsRepository
	Services ServiceFactory
	Notifier Notifier
	Reporter Reporter
	Logger   *log.Logger

	// DefaultPriority fills unset priorities when applying remote updates.
	DefaultPriority int
}

// Engine drives sync passes across accounts.
type Engine struct {
	accounts *repositories.AccountRepository
	lists    *repositories.ListRepository
	tasks    *repositories.TaskRepository
	links    *repositories.LinkRepository
	tags     *repositories.TagRepository
	settings *repositories.SettingsRepository
	services ServiceFactory
	notifier Notifier
	reporter Reporter
	logger   *log.Logger

	defaultPriority int

	// inflight holds one entry per account currently syncing. A second
	// pass for the same account is rejected, not queued.
	inflight sync.Map
}

// New creates an Engine with the provided dependencies.
func New(opts Opts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = NoopNotifier{}
	}
	if opts.Reporter == nil {
		opts.Reporter = NoopReporter{}
	}

	return &Engine{
		accounts:        opts.Accounts,
		lists:           opts.Lists,
		tasks:           opts.Tasks,
		links:           opts.Links,
		tags:            opts.Tags,
		settings:        opts.Settings,
		services:        opts.Services,
		notifier:        opts.Notifier,
		reporter:        opts.Reporter,
		logger:          opts.Logger,
		defaultPriority: opts.DefaultPriority,
	}
}

// SyncAll runs one sync pass per account concurrently and waits for all of
// them. A failure in one account never prevents the others from completing;
// each failure is recorded on its account's error field.
func (e *Engine) SyncAll(ctx context.Context, accounts []*models.Account) {
	var wg sync.WaitGroup
	for _, account := range accounts {
		wg.Add(1)
		go func(account *models.Account) {
			defer wg.Done()
			if err := e.SyncAccount(ctx, account); err == shared.ErrSyncInProgress {
				e.logger.Warn("sync already in progress", "account", account.Username)
			}
		}(account)
	}
	wg.Wait()
}

// SyncAccount runs one sync pass for a single account. Returns
// [shared.ErrSyncInProgress] when a pass for the same account is already
// running; any other failure is classified, recorded on the account, and
// returned.
func (e *Engine) SyncAccount(ctx context.Context, account *models.Account) error {
	if _, loaded := e.inflight.LoadOrStore(account.ID, struct{}{}); loaded {
		return shared.ErrSyncInProgress
	}
	defer e.inflight.Delete(account.ID)

	logger := e.logger.With("account", account.Username, "type", account.Type)
	logger.Debug("sync start")

	err := e.synchronize(ctx, account, logger)
	if err != nil {
		kind := Classify(err)
		logger.Error("sync failed", "kind", kind.String(), "error", err)
		if Reportable(err) {
			e.reporter.ReportError(err)
		}
		e.setError(account, err.Error(), logger)
		return err
	}

	logger.Debug("sync complete")
	return nil
}

// synchronize runs the pass proper: list reconciliation, then fetch/apply
// and push per list. A list-enumeration failure aborts the whole account;
// a failure in one list aborts only that list.
func (e *Engine) synchronize(ctx context.Context, account *models.Account, logger *log.Logger) error {
	svc, err := e.services(account)
	if err != nil {
		return err
	}

	pairs, err := e.reconcileLists(ctx, account, svc, logger)
	if err != nil {
		return err
	}

	var lastErr error
	for _, pair := range pairs {
		if err := e.syncList(ctx, svc, pair, logger); err != nil {
			kind := Classify(err)
			logger.Warn("list sync failed", "list", pair.local.Name, "kind", kind.String(), "error", err)
			if Reportable(err) {
				e.reporter.ReportError(err)
			}
			lastErr = err
		}
	}
	if lastErr != nil {
		return lastErr
	}

	e.setError(account, "", logger)
	return nil
}

// syncList fetches remote state for one list, applies it, and pushes local
// changes. Remote-applied writes complete before the push begins so tasks
// freshly skipped by the dirty check still go out in the same pass.
func (e *Engine) syncList(ctx context.Context, svc services.Service, pair listPair, logger *log.Logger) error {
	logger = logger.With("list", pair.local.Name)

	remoteTasks, full, err := e.fetchTasks(ctx, pair.local, svc)
	if err == shared.ErrSyncReset {
		logger.Info("delta cursor invalidated, falling back to full sync")
		remoteTasks, full, err = e.fetchTasks(ctx, pair.local, svc)
	}
	if err != nil {
		return err
	}

	if full {
		logger.Debug("full sync", "tasks", len(remoteTasks))
	} else {
		logger.Debug("delta sync", "tasks", len(remoteTasks))
	}

	fetched := make(map[string]bool, len(remoteTasks))
	for i := range remoteTasks {
		remote := &remoteTasks[i]
		fetched[remote.ID] = true
		for _, item := range remote.ChecklistItems {
			fetched[item.ID] = true
		}
		if err := e.applyRemoteTask(pair.local, remote, logger); err != nil {
			return err
		}
	}

	if full {
		if err := e.pruneVanished(pair.local, fetched, logger); err != nil {
			return err
		}
	}

	pair.local.LastSync = shared.NowMillis()
	if err := e.lists.Update(pair.local); err != nil {
		return err
	}
	e.notifier.Notify(Event{Kind: RefreshTasks, AccountID: pair.local.AccountID, ListID: pair.local.ID})

	return e.pushLocalChanges(ctx, pair.local, svc, logger)
}

// setError records the account's health. The empty string marks a healthy
// account; anything else surfaces to the user as-is.
func (e *Engine) setError(account *models.Account, message string, logger *log.Logger) {
	account.Error = message
	if err := e.accounts.Update(account); err != nil {
		logger.Error("failed to record account state", "error", err)
	}
	e.notifier.Notify(Event{Kind: RefreshLists, AccountID: account.ID})
}
