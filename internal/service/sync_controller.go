package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/events"
	"github.com/spec-kit/support-sync/internal/observability"
	"github.com/spec-kit/support-sync/internal/tracker"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// SyncState enumerates the import flow states.
type SyncState string

const (
	SyncStateIdle           SyncState = "idle"
	SyncStateLoading        SyncState = "loading_candidates"
	SyncStateSelectionReady SyncState = "selection_ready"
	SyncStateSyncing        SyncState = "syncing"
	SyncStateError          SyncState = "error"
)

// SyncKey scopes one import flow to an installation and repository. Flows on
// different keys proceed independently; on the same key they are serialized.
type SyncKey struct {
	InstallationRef string
	Repository      string
}

func (k SyncKey) String() string {
	return k.InstallationRef + "/" + k.Repository
}

// SyncBackend is the slice of the issue service the controller drives.
type SyncBackend interface {
	ListCandidateIssues(ctx context.Context, installationRef, repository string) ([]tracker.CandidateIssue, error)
	ImportIssues(ctx context.Context, installationRef, repository string, forUser ImportAttribution, externalIssueIDs []int64) (int, error)
}

// SyncLocker is the cross-instance lease around one flow key.
// persistence.Redis satisfies it.
type SyncLocker interface {
	AcquireSyncLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseSyncLock(ctx context.Context, key string) error
}

// SyncSnapshot is the pollable view of one flow exposed to the presentation
// layer.
type SyncSnapshot struct {
	State         SyncState
	Candidates    []tracker.CandidateIssue
	Selected      []int64
	ImportedCount int
	ErrorCode     string
	ErrorMessage  string
}

type syncFlow struct {
	state         SyncState
	gen           uint64
	forUser       ImportAttribution
	candidates    []tracker.CandidateIssue
	selected      []int64
	importedCount int
	err           *apperrors.DomainError
}

// SyncController drives the candidate-load and import flow as an explicit
// state machine. Entry points never block: tracker I/O runs on goroutines and
// reports back through guarded transitions. A per-key generation counter
// discards stale in-flight completions so last request wins.
type SyncController struct {
	backend    SyncBackend
	locks      SyncLocker
	lockTTL    time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	flows map[SyncKey]*syncFlow
}

// SyncControllerDependencies bundles collaborators for the controller.
type SyncControllerDependencies struct {
	Backend    SyncBackend
	Locks      SyncLocker
	LockTTL    time.Duration
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSyncController constructs the controller.
func NewSyncController(deps SyncControllerDependencies) *SyncController {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SyncController{
		backend:    deps.Backend,
		locks:      deps.Locks,
		lockTTL:    ttl,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// Snapshot returns the current state of one flow. Unknown keys are Idle.
func (c *SyncController) Snapshot(key SyncKey) SyncSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists {
		return SyncSnapshot{State: SyncStateIdle}
	}
	snapshot := SyncSnapshot{
		State:         flow.state,
		Candidates:    append([]tracker.CandidateIssue(nil), flow.candidates...),
		Selected:      append([]int64(nil), flow.selected...),
		ImportedCount: flow.importedCount,
	}
	if flow.err != nil {
		snapshot.ErrorCode = flow.err.Code
		snapshot.ErrorMessage = flow.err.Message
	}
	return snapshot
}

// Load starts candidate discovery for the key. Any previous candidate list
// and selection are cleared before the request goes out so no stale data from
// another repository is ever shown. A load already in flight for the same key
// is not queued, the call is ignored.
func (c *SyncController) Load(key SyncKey, forUser ImportAttribution) error {
	if key.InstallationRef == "" || key.Repository == "" {
		return apperrors.NewValidationError("installation ref and repository required", nil)
	}

	c.mu.Lock()
	flow := c.flow(key)
	if flow.state == SyncStateLoading || flow.state == SyncStateSyncing {
		c.mu.Unlock()
		c.logger.Debug("load ignored, flow busy", zap.String("key", key.String()))
		return nil
	}
	flow.state = SyncStateLoading
	flow.candidates = nil
	flow.selected = nil
	flow.importedCount = 0
	flow.err = nil
	flow.forUser = forUser
	flow.gen++
	gen := flow.gen
	c.mu.Unlock()

	go c.runLoad(key, gen)
	return nil
}

// SelectSubset replaces the current selection. Pure local: no network.
// Unknown ids are dropped so the selection always stays a subset of the
// loaded candidates.
func (c *SyncController) SelectSubset(key SyncKey, externalIssueIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists || flow.state != SyncStateSelectionReady {
		return apperrors.NewValidationError("no candidate list loaded", nil)
	}

	known := make(map[int64]struct{}, len(flow.candidates))
	for _, candidate := range flow.candidates {
		known[candidate.ID] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(externalIssueIDs))
	selected := make([]int64, 0, len(externalIssueIDs))
	for _, id := range externalIssueIDs {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
	}
	flow.selected = selected
	return nil
}

// Sync imports the selected subset. Guarded: an empty selection surfaces a
// validation error and the flow stays in SelectionReady with no network call.
func (c *SyncController) Sync(key SyncKey) error {
	c.mu.Lock()
	flow, exists := c.flows[key]
	if !exists || flow.state == SyncStateIdle || flow.state == SyncStateError {
		c.mu.Unlock()
		return apperrors.NewValidationError("nothing to sync, load candidates first", nil)
	}
	if flow.state == SyncStateLoading || flow.state == SyncStateSyncing {
		c.mu.Unlock()
		c.logger.Debug("sync ignored, flow busy", zap.String("key", key.String()))
		return nil
	}
	if len(flow.selected) == 0 {
		c.mu.Unlock()
		return apperrors.NewValidationError("select at least one issue to import", nil)
	}
	flow.state = SyncStateSyncing
	flow.err = nil
	flow.gen++
	gen := flow.gen
	selected := append([]int64(nil), flow.selected...)
	forUser := flow.forUser
	c.mu.Unlock()

	go c.runSync(key, gen, forUser, selected)
	return nil
}

// Cancel returns the flow to Idle, clearing candidates and selection, without
// importing anything. Also the way out of a terminal Error.
func (c *SyncController) Cancel(key SyncKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists {
		return nil
	}
	if flow.state == SyncStateLoading || flow.state == SyncStateSyncing {
		return apperrors.NewValidationError("operation in flight, cannot cancel", nil)
	}
	flow.state = SyncStateIdle
	flow.candidates = nil
	flow.selected = nil
	flow.err = nil
	return nil
}

// Retry recovers from Error. A failed sync kept its candidates and selection,
// so the flow returns to SelectionReady for an immediate retry; a failed load
// has nothing to keep and returns to Idle.
func (c *SyncController) Retry(key SyncKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists || flow.state != SyncStateError {
		return apperrors.NewValidationError("flow is not in error state", nil)
	}
	flow.err = nil
	if flow.candidates != nil {
		flow.state = SyncStateSelectionReady
	} else {
		flow.state = SyncStateIdle
	}
	return nil
}

func (c *SyncController) flow(key SyncKey) *syncFlow {
	if c.flows == nil {
		c.flows = make(map[SyncKey]*syncFlow)
	}
	flow, exists := c.flows[key]
	if !exists {
		flow = &syncFlow{state: SyncStateIdle}
		c.flows[key] = flow
	}
	return flow
}

func (c *SyncController) runLoad(key SyncKey, gen uint64) {
	ctx := context.Background()
	if !c.acquireLock(ctx, key) {
		c.applyFailure(ctx, key, gen, SyncStateLoading, "load", 0,
			apperrors.NewConflict("sync already running elsewhere", nil))
		return
	}
	defer c.releaseLock(ctx, key)

	candidates, err := c.backend.ListCandidateIssues(ctx, key.InstallationRef, key.Repository)
	if err != nil {
		c.applyFailure(ctx, key, gen, SyncStateLoading, "load", 0, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists || flow.gen != gen || flow.state != SyncStateLoading {
		c.logger.Debug("stale load result discarded", zap.String("key", key.String()))
		return
	}
	// An empty candidate list still reaches SelectionReady: the operator
	// must see "nothing to import", not a stuck spinner.
	if candidates == nil {
		candidates = []tracker.CandidateIssue{}
	}
	flow.state = SyncStateSelectionReady
	flow.candidates = candidates
	flow.selected = nil
	c.metrics.RecordSyncOutcome(key.Repository, "load", true)
}

func (c *SyncController) runSync(key SyncKey, gen uint64, forUser ImportAttribution, selected []int64) {
	ctx := context.Background()
	if !c.acquireLock(ctx, key) {
		c.applyFailure(ctx, key, gen, SyncStateSyncing, "sync", 0,
			apperrors.NewConflict("sync already running elsewhere", nil))
		return
	}
	defer c.releaseLock(ctx, key)

	count, err := c.backend.ImportIssues(ctx, key.InstallationRef, key.Repository, forUser, selected)
	if err != nil {
		// A failed import may still have created records before it broke off.
		// The partial count travels with the failure so the operator sees how
		// far the run got.
		c.applyFailure(ctx, key, gen, SyncStateSyncing, "sync", count, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	flow, exists := c.flows[key]
	if !exists || flow.gen != gen || flow.state != SyncStateSyncing {
		c.logger.Debug("stale sync result discarded", zap.String("key", key.String()))
		return
	}
	flow.state = SyncStateIdle
	flow.candidates = nil
	flow.selected = nil
	flow.importedCount = count
	c.metrics.RecordSyncOutcome(key.Repository, "sync", true)
}

// applyFailure transitions the flow to Error, preserving candidates and
// selection so a failed sync can be retried without reloading. For a failed
// sync the partial import count replaces the stale one from any earlier run.
func (c *SyncController) applyFailure(ctx context.Context, key SyncKey, gen uint64, fromState SyncState, operation string, imported int, err error) {
	domainErr := apperrors.ToDomainError(err)

	c.mu.Lock()
	flow, exists := c.flows[key]
	if !exists || flow.gen != gen || flow.state != fromState {
		c.mu.Unlock()
		c.logger.Debug("stale failure discarded", zap.String("key", key.String()))
		return
	}
	flow.state = SyncStateError
	flow.err = domainErr
	if fromState == SyncStateSyncing {
		flow.importedCount = imported
	}
	c.mu.Unlock()

	c.metrics.RecordSyncOutcome(key.Repository, operation, false)
	c.logger.Error("sync flow failed",
		zap.String("key", key.String()),
		zap.String("operation", operation),
		zap.String("code", domainErr.Code),
		zap.Error(domainErr))
	c.publishEvent(ctx, events.Event{
		Type:  events.EventSyncFailed,
		Actor: events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.SyncFailedPayload{
			InstallationRef: key.InstallationRef,
			Repository:      key.Repository,
			Operation:       operation,
			ErrorCode:       domainErr.Code,
			Reason:          domainErr.Message,
		},
	})
}

func (c *SyncController) acquireLock(ctx context.Context, key SyncKey) bool {
	if c.locks == nil {
		return true
	}
	acquired, err := c.locks.AcquireSyncLock(ctx, key.String(), c.lockTTL)
	if err != nil {
		c.logger.Warn("sync lock unavailable, proceeding locally",
			zap.String("key", key.String()), zap.Error(err))
		return true
	}
	return acquired
}

func (c *SyncController) releaseLock(ctx context.Context, key SyncKey) {
	if c.locks == nil {
		return
	}
	if err := c.locks.ReleaseSyncLock(ctx, key.String()); err != nil {
		c.logger.Warn("sync lock release failed",
			zap.String("key", key.String()), zap.Error(err))
	}
}

func (c *SyncController) publishEvent(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = c.dispatcher.Publish(ctx, event)
}
