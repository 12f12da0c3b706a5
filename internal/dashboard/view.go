package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/health"
	"equipment-maintenance-dashboard/internal/notification"
	"equipment-maintenance-dashboard/internal/poller"
	"equipment-maintenance-dashboard/internal/reviews"
	"equipment-maintenance-dashboard/internal/session"
)

// Backend is everything the view reads from and writes to.
type Backend interface {
	health.Source
	reviews.Fetcher
	poller.Source

	Equipments(ctx context.Context) ([]backend.Equipment, error)
	Me(ctx context.Context) (*backend.Profile, error)
	Users(ctx context.Context) ([]backend.User, error)
	Logs(ctx context.Context) ([]backend.MaintenanceLog, error)
	Predict(ctx context.Context) error
	MaintenanceTypes(ctx context.Context) ([]string, error)

	Schedule(ctx context.Context, equipmentID string, body backend.ScheduleRequest) (*backend.ScheduleResponse, error)
	MarkComplete(ctx context.Context, maintenanceID string, body backend.CompletionRequest) (*backend.MessageResponse, error)
	Confirm(ctx context.Context, maintenanceID string, rating int) (*backend.ConfirmResponse, error)
	ReviewCompletion(ctx context.Context, maintenanceID string, body backend.ReviewRequest) (*backend.ReviewResponse, error)
}

// Notifier receives every notice the view raises.
type Notifier interface {
	Notify(n notification.Notice)
}

// Observer is told about every newly published state.
type Observer interface {
	StateChanged(s State)
}

// Options tunes the view's timing.
type Options struct {
	ResyncDelay         time.Duration
	ApproveRefreshDelay time.Duration
	PollInterval        time.Duration
	FetchConcurrency    int
	RunPredictions      bool
}

// OptionsFrom copies the sync settings out of the configuration.
func OptionsFrom(cfg *config.SyncConfig) Options {
	return Options{
		ResyncDelay:         cfg.ResyncDelay,
		ApproveRefreshDelay: cfg.ApproveRefreshDelay,
		PollInterval:        cfg.PollInterval,
		FetchConcurrency:    cfg.FetchConcurrency,
		RunPredictions:      cfg.RunPredictions,
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(notification.Notice) {}

// View holds the dashboard state for one signed-in role and keeps it in
// step with the backend.
type View struct {
	role     session.Role
	api      Backend
	sync     *health.Synchronizer
	reviews  *reviews.Tracker
	poller   *poller.Poller
	notifier Notifier
	opts     Options
	logger   zerolog.Logger

	mu        sync.RWMutex
	state     *State
	observers []Observer

	lifeMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// NewView creates an unmounted view. notifier may be nil.
func NewView(role session.Role, api Backend, notifier Notifier, opts Options, logger zerolog.Logger) *View {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	logger = logger.With().Str("component", "view").Str("role", role.String()).Logger()

	v := &View{
		role:     role,
		api:      api,
		sync:     health.NewSynchronizer(api, opts.FetchConcurrency, logger),
		reviews:  reviews.NewTracker(api, logger),
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		state:    emptyState(role),
	}
	if role.PollsNewWork() {
		v.poller = poller.New(api, opts.PollInterval, v.onNewWork, logger)
	}
	return v
}

// Role returns the role the view was built for.
func (v *View) Role() session.Role {
	return v.role
}

// Poller returns the new-work poller, nil for roles that do not poll.
func (v *View) Poller() *poller.Poller {
	return v.poller
}

// Observe registers o for every future state change.
func (v *View) Observe(o Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, o)
}

// Mount runs the initial full resync and, for technicians, starts the
// new-work poller. Everything started here stops on Unmount or when ctx
// is cancelled. The returned error is the initial resync's; the view
// stays mounted either way.
func (v *View) Mount(ctx context.Context) error {
	v.lifeMu.Lock()
	if v.cancel != nil {
		v.lifeMu.Unlock()
		return fmt.Errorf("dashboard: view already mounted")
	}
	v.ctx, v.cancel = context.WithCancel(ctx)
	lifetime := v.ctx
	v.lifeMu.Unlock()

	v.logger.Info().Msg("mounting dashboard view")
	err := v.Resync(lifetime)

	if v.poller != nil {
		v.spawn(v.poller.Run)
	}
	return err
}

// Unmount cancels the poller and every pending follow-up, then waits for
// them to return. No state is published afterwards.
func (v *View) Unmount() {
	// mu first: a publish already holding it finishes before the view
	// reads as unmounted, and every later one is dropped.
	v.mu.Lock()
	v.lifeMu.Lock()
	cancel := v.cancel
	v.cancel = nil
	v.lifeMu.Unlock()
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	v.tasks.Wait()
	v.logger.Info().Msg("dashboard view unmounted")
}

// Mounted reports whether the view is live.
func (v *View) Mounted() bool {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()
	return v.cancel != nil && v.ctx.Err() == nil
}

// spawn runs fn in the background, bound to the view's lifetime. It does
// nothing once the view is unmounted.
func (v *View) spawn(fn func(ctx context.Context)) bool {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()
	if v.cancel == nil || v.ctx.Err() != nil {
		return false
	}
	ctx := v.ctx
	v.tasks.Add(1)
	go func() {
		defer v.tasks.Done()
		fn(ctx)
	}()
	return true
}

// after runs fn once delay has passed, unless the view is unmounted first.
func (v *View) after(delay time.Duration, fn func(ctx context.Context)) {
	ok := v.spawn(func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(ctx)
		}
	})
	if !ok {
		v.logger.Debug().Msg("view not mounted, follow-up skipped")
	}
}

// State returns the current state. Its maps must not be modified.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return *v.state
}

// Badge returns the current health badge of one item.
func (v *View) Badge(id string) health.Badge {
	return v.State().Badge(id)
}

// Logs reads the full maintenance history. It is not part of the state.
func (v *View) Logs(ctx context.Context) ([]backend.MaintenanceLog, error) {
	return v.api.Logs(ctx)
}

// ItemLogs reads the maintenance history of one item.
func (v *View) ItemLogs(ctx context.Context, id string) ([]backend.MaintenanceLog, error) {
	return v.api.LogsByEquipment(ctx, id)
}

// Resync refetches everything and replaces the whole state in one swap.
// When the equipment list itself cannot be fetched the previous state is
// kept and the error returned. Per-item failures only degrade that item.
func (v *View) Resync(ctx context.Context) error {
	if !v.Mounted() {
		return ErrNotMounted
	}
	equipment, err := v.api.Equipments(ctx)
	if err != nil {
		v.logger.Error().Err(err).Msg("failed to fetch equipment list")
		return fmt.Errorf("resync: %w", err)
	}

	if v.opts.RunPredictions {
		if err := v.api.Predict(ctx); err != nil {
			v.logger.Warn().Err(err).Msg("prediction run failed")
		}
	}

	prev := v.State()
	profile := prev.Profile
	if p, err := v.api.Me(ctx); err != nil {
		v.logger.Warn().Err(err).Msg("failed to fetch profile")
	} else {
		profile = p
	}

	users := prev.Users
	if v.role.CanListUsers() {
		if u, err := v.api.Users(ctx); err != nil {
			v.logger.Warn().Err(err).Msg("failed to fetch users")
		} else {
			users = u
		}
	}

	types := prev.MaintenanceTypes
	if t, err := v.api.MaintenanceTypes(ctx); err != nil {
		v.logger.Warn().Err(err).Msg("failed to fetch maintenance types")
	} else {
		types = t
	}

	ids := make([]string, 0, len(equipment))
	for _, e := range equipment {
		ids = append(ids, e.ID)
	}
	snap := v.sync.Sync(ctx, ids)
	pending := v.reviews.Fetch(ctx, v.role)

	if err := ctx.Err(); err != nil {
		return err
	}

	next, ok := v.publish(func(*State) *State {
		return &State{
			SyncedAt:         time.Now(),
			Role:             v.role,
			Profile:          profile,
			Equipment:        equipment,
			Health:           snap.Health,
			Scheduled:        snap.Scheduled,
			OpenWork:         snap.OpenWork,
			PendingReviews:   pending,
			Users:            users,
			MaintenanceTypes: types,
			Degraded:         len(snap.Failures),
		}
	})
	if !ok {
		return ErrNotMounted
	}
	v.logger.Info().
		Int("equipment", len(equipment)).
		Int("degraded", next.Degraded).
		Int("pending_reviews", len(pending)).
		Uint64("version", next.Version).
		Msg("dashboard resynced")

	v.alertPendingReviews(prev, *next)
	return nil
}

// alertPendingReviews raises a review notice when reviewers gain work
// between two full resyncs.
func (v *View) alertPendingReviews(prev, next State) {
	if !v.role.CanReview() || prev.Version == 0 {
		return
	}
	before, after := len(prev.PendingReviews), len(next.PendingReviews)
	if after <= before {
		return
	}
	summary := next.Reviews()
	msg := fmt.Sprintf("%d maintenance %s awaiting review", summary.Count, plural(summary.Count, "entry", "entries"))
	v.notifier.Notify(notification.NewNotice(notification.LevelInfo, msg).About(notification.KindReview, v.role.String()))
}

// publish swaps in the state built from the current one and tells the
// observers. It reports false, publishing nothing, once the view is
// unmounted.
func (v *View) publish(build func(prev *State) *State) (*State, bool) {
	v.mu.Lock()
	if !v.Mounted() {
		v.mu.Unlock()
		v.logger.Debug().Msg("view not mounted, state change dropped")
		return nil, false
	}
	prev := v.state
	next := build(prev)
	next.Version = prev.Version + 1
	v.state = next
	observers := slices.Clone(v.observers)
	v.mu.Unlock()

	for _, o := range observers {
		o.StateChanged(*next)
	}
	return next, true
}

// patchItem replaces the health and schedule entries of one item.
func (v *View) patchItem(id string, r health.Result) {
	v.publish(func(prev *State) *State {
		next := *prev
		next.Health = withKey(prev.Health, id, r.Badge)
		next.Scheduled = withKey(prev.Scheduled, id, r.Scheduled)
		next.OpenWork = withKey(prev.OpenWork, id, r.OpenWork)
		return &next
	})
}

// markScheduled flips one item to scheduled ahead of the next resync.
func (v *View) markScheduled(id string) {
	v.publish(func(prev *State) *State {
		next := *prev
		next.Scheduled = withKey(prev.Scheduled, id, true)
		next.OpenWork = withKey(prev.OpenWork, id, true)
		return &next
	})
}

func (v *View) setPending(list []backend.PendingReview) {
	v.publish(func(prev *State) *State {
		next := *prev
		next.PendingReviews = list
		return &next
	})
}

// resyncLater schedules a full resync after the configured delay.
func (v *View) resyncLater() {
	v.after(v.opts.ResyncDelay, func(ctx context.Context) {
		if err := v.Resync(ctx); err != nil && ctx.Err() == nil {
			v.logger.Warn().Err(err).Msg("follow-up resync failed")
		}
	})
}

// onNewWork handles a rise in the new-scheduled count.
func (v *View) onNewWork(ctx context.Context, ev poller.Event) {
	added := ev.Current - ev.Previous
	msg := fmt.Sprintf("%d new maintenance %s scheduled", added, plural(added, "task", "tasks"))
	v.notifier.Notify(notification.NewNotice(notification.LevelInfo, msg).About(notification.KindNewWork, session.RoleTechnician.String()))

	if err := v.Resync(ctx); err != nil && ctx.Err() == nil {
		v.logger.Warn().Err(err).Msg("resync after new work failed")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
