// Package syncengine runs one differential sync: flatten the menu tree, guard
// capacity, diff against the target, delete what is stale, upload what is
// missing, then finalize the device.
package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joe/gamesync/internal/capacity"
	"github.com/joe/gamesync/internal/menu"
	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/signature"
)

// Exported variables.
var (
	ErrNoItemsToSync  = errors.New("no items to sync")
	ErrSyncAborted    = errors.New("sync aborted")
	ErrTransferFailed = errors.New("transfer failed")
	ErrRelinkFailed   = errors.New("relink failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// Options configures a run.
type Options struct {
	TrashName string
	// Linked stores each game payload once and links it from every menu.
	Linked bool
	// DryRun stops after the diff.
	DryRun  bool
	Protect *ProtectFilter
	// DeviceConfig is pushed to the target after a successful transfer.
	DeviceConfig map[string]string
	Clock        clockwork.Clock
	Log          *zap.Logger
}

// Engine runs the sync state machine for one tree and target.
type Engine struct {
	tree    *menu.Tree
	target  Target
	opts    Options
	emitter EventEmitter
	phase   Phase

	flattened *menu.Result
	plan      *signature.Plan
}

// NewEngine returns an engine. The tree is read during BuildTree and not kept afterwards.
func NewEngine(tree *menu.Tree, target Target, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	return &Engine{tree: tree, target: target, opts: opts}
}

// SetEventEmitter sets the event emitter for TUI communication.
// The emitter is optional - if nil, no events will be emitted.
func (e *Engine) SetEventEmitter(emitter EventEmitter) {
	e.emitter = emitter
}

// GetEventEmitter returns the current event emitter.
func (e *Engine) GetEventEmitter() EventEmitter {
	return e.emitter
}

// Phase returns the current state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Plan returns the computed transfer plan, or nil before Diff.
func (e *Engine) Plan() *signature.Plan {
	return e.plan
}

// Flattened returns the flattening result, or nil before BuildTree.
func (e *Engine) Flattened() *menu.Result {
	return e.flattened
}

// emit sends an event if an emitter is configured.
// Safe to call even when emitter is nil.
func (e *Engine) emit(event Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

func (e *Engine) enter(phase Phase) {
	e.phase = phase
	e.opts.Log.Debug("phase", zap.Stringer("phase", phase))
	e.emit(PhaseChanged{Phase: phase})
}

// Run executes the whole state machine. Cancelling ctx is honoured only until
// the tree is built; after that the run completes or fails on its own.
func (e *Engine) Run(ctx context.Context) (*SyncResult, error) {
	start := e.opts.Clock.Now()
	result := &SyncResult{DryRun: e.opts.DryRun}

	err := e.run(ctx, result)

	result.Duration = e.opts.Clock.Since(start)
	result.Err = err

	switch {
	case err == nil:
	case errors.Is(err, ErrSyncAborted):
		e.enter(PhaseAbort)
	default:
		failed := e.phase
		e.enter(PhaseError)
		e.emit(ErrorOccurred{Phase: failed, Err: err})
	}

	e.emit(SyncComplete{Result: result})

	return result, err
}

func (e *Engine) run(ctx context.Context, result *SyncResult) error {
	e.enter(PhaseStart)

	if e.tree == nil || e.tree.IsEmpty() {
		return ErrNoItemsToSync
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSyncAborted, err)
	}

	if err := e.target.Prepare(ctx); err != nil {
		return err //nolint:wrapcheck // target errors carry their context
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSyncAborted, err)
	}

	ctx = context.WithoutCancel(ctx)
	defer e.target.Restore(ctx)

	if err := e.buildTree(); err != nil {
		return err
	}

	if err := e.checkCapacity(ctx); err != nil {
		return err
	}

	tr, observed, err := e.listTarget(ctx)
	if err != nil {
		return err
	}

	result.Transport = tr.Name()

	toDelete := e.diff(observed, result)

	if e.opts.DryRun {
		e.enter(PhaseDone)
		return nil
	}

	e.enter(PhaseDeleteStale)

	if err := tr.Delete(ctx, toDelete); err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	result.FilesDeleted = len(toDelete)
	e.emit(DeleteComplete{Files: len(toDelete), Bytes: sumSizes(toDelete)})

	if err := e.transfer(ctx, tr.Name(), func(progress fileops.ProgressFunc) error {
		return tr.Transfer(ctx, e.plan.ToUpload, progress)
	}); err != nil {
		return err
	}

	result.FilesUploaded = len(e.plan.ToUpload)
	result.BytesUploaded = e.plan.UploadSize()

	e.relink(ctx, result)

	e.enter(PhasePersistConfig)

	if len(e.opts.DeviceConfig) > 0 && !e.target.Local() {
		if err := e.target.PersistConfig(ctx, e.opts.DeviceConfig); err != nil {
			return err //nolint:wrapcheck // already wrapped by the target
		}

		e.emit(ConfigPersisted{Keys: len(e.opts.DeviceConfig)})
	}

	e.enter(PhaseDone)

	e.opts.Log.Info("sync complete",
		zap.String("target", e.target.Name()),
		zap.Int("uploaded", result.FilesUploaded),
		zap.String("uploaded_bytes", humanize.IBytes(uint64(result.BytesUploaded))), //nolint:gosec // sizes are non-negative
		zap.Int("deleted", result.FilesDeleted))

	return nil
}

func (e *Engine) buildTree() error {
	e.enter(PhaseBuildTree)

	flattened, err := menu.Flatten(e.tree, menu.Options{
		TrashName: e.opts.TrashName,
		Mode:      menu.ModeFor(e.target.Local(), e.opts.Linked),
		Log:       e.opts.Log,
	})
	if err != nil {
		return fmt.Errorf("failed to build menu tree: %w", err)
	}

	if flattened.Desired.Len() == 0 {
		return ErrNoItemsToSync
	}

	e.flattened = flattened

	e.emit(TreeBuilt{
		Menus:     len(flattened.Menus),
		Games:     flattened.TotalGames,
		TotalSize: flattened.TotalSize,
	})

	return nil
}

func (e *Engine) checkCapacity(ctx context.Context) error {
	e.enter(PhaseCapacityCheck)

	available, err := e.target.Available(ctx)
	if err != nil {
		return fmt.Errorf("failed to read target capacity: %w", err)
	}

	required := e.flattened.TotalSize
	err = capacity.Check(required, available)

	e.emit(CapacityChecked{Required: required, Available: available, OK: err == nil})

	return err //nolint:wrapcheck // typed capacity error is the contract
}

func (e *Engine) listTarget(ctx context.Context) (transportLister, *signature.Set, error) {
	e.enter(PhaseListTarget)

	if !e.opts.DryRun {
		if err := e.target.Clean(ctx); err != nil {
			return nil, nil, err //nolint:wrapcheck // already wrapped by the target
		}
	}

	tr, err := e.target.Transport(ctx)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // sentinel checked by callers
	}

	observed, err := tr.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list target: %w", err)
	}

	e.emit(TargetListed{Transport: tr.Name(), Files: observed.Len(), Bytes: observed.TotalSize()})

	return tr, observed, nil
}

// diff computes the plan and returns the entries that may actually be deleted.
func (e *Engine) diff(observed *signature.Set, result *SyncResult) []*signature.Entry {
	e.enter(PhaseDiff)

	e.plan = signature.Diff(e.flattened.Desired, observed)
	toDelete, protected := e.opts.Protect.Split(e.plan.ToDelete)

	unchanged := e.flattened.Desired.Len() - len(e.plan.ToUpload)

	summary := &SyncPlan{
		FilesToUpload:  len(e.plan.ToUpload),
		FilesToDelete:  len(toDelete),
		FilesProtected: len(protected),
		BytesToUpload:  e.plan.UploadSize(),
		BytesToDelete:  sumSizes(toDelete),
		FilesUnchanged: unchanged,
		BytesUnchanged: e.flattened.Desired.TotalSize() - e.plan.UploadSize(),
	}

	result.Plan = summary
	e.emit(PlanComputed{Plan: summary})

	return toDelete
}

func (e *Engine) transfer(ctx context.Context, name string, upload func(fileops.ProgressFunc) error) error {
	e.enter(PhaseTransfer)

	if err := e.target.BeforeTransfer(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	files, bytes := len(e.plan.ToUpload), e.plan.UploadSize()
	e.emit(TransferStarted{Transport: name, Files: files, Bytes: bytes})

	start := e.opts.Clock.Now()

	if err := upload(func(p fileops.Progress) {
		e.emit(TransferProgress{Progress: p})
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	e.emit(TransferComplete{Files: files, Bytes: bytes, Duration: e.opts.Clock.Since(start)})

	if err := e.target.AfterTransfer(ctx); err != nil {
		e.opts.Log.Warn("post-transfer cleanup failed", zap.Error(err))
	}

	return nil
}

func (e *Engine) relink(ctx context.Context, result *SyncResult) {
	e.enter(PhaseRelink)

	originals := e.flattened.Originals
	if len(originals) == 0 || e.target.Local() {
		return
	}

	err := e.target.Relink(ctx, originals)
	if err != nil {
		result.RelinkErr = fmt.Errorf("%w: %w", ErrRelinkFailed, err)
		e.opts.Log.Warn("relink failed", zap.Error(err))
	}

	e.emit(RelinkComplete{Games: len(originals), Err: result.RelinkErr})
}

// transportLister is the part of transport.Transport the engine calls.
type transportLister interface {
	Name() string
	List(ctx context.Context) (*signature.Set, error)
	Delete(ctx context.Context, entries []*signature.Entry) error
	Transfer(ctx context.Context, entries []*signature.Entry, progress fileops.ProgressFunc) error
}

func sumSizes(entries []*signature.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	return total
}
