package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// MediaOwner is the capability interface binding a machine to the record
// that owns its media slot. Implemented by [services.Owner].
type MediaOwner interface {
	Kind() models.OwnerKind
	ID() string

	// Reference reads the persisted media reference.
	Reference(ctx context.Context) (models.MediaReference, error)

	// SetReference persists a complete media reference.
	SetReference(ctx context.Context, ref models.MediaReference) error

	// ClearReference removes both sides of the media reference together.
	ClearReference(ctx context.Context) error
}

// Journal records upload sessions locally so a restarted process knows which
// owners were mid-upload. All methods are best effort; journal failures are
// logged, never fatal.
type Journal interface {
	Begin(session models.UploadSession) error
	Track(sessionID string, state models.State, progress int) error
	Finish(sessionID string, state models.State, ref models.MediaReference) error
}

// Policy bounds the two polling loops.
//
// ProcessMaxChecks of zero polls the transcode status until the gateway
// settles; deletion verification is always capped.
type Policy struct {
	ProcessInterval  time.Duration
	ProcessMaxChecks int
	DeleteInterval   time.Duration
	DeleteMaxChecks  int
}

// DefaultPolicy returns the standard timing: transcode checked every 5s with
// no cap, deletion verified at 1s spacing up to 15 attempts.
func DefaultPolicy() Policy {
	return Policy{
		ProcessInterval:  5 * time.Second,
		ProcessMaxChecks: 0,
		DeleteInterval:   time.Second,
		DeleteMaxChecks:  15,
	}
}

// PolicyFromConfig builds a Policy from configuration, falling back to
// defaults for unset values.
func PolicyFromConfig(cfg shared.PollingConfig) Policy {
	p := DefaultPolicy()
	if cfg.ProcessIntervalSeconds > 0 {
		p.ProcessInterval = time.Duration(cfg.ProcessIntervalSeconds) * time.Second
	}
	if cfg.ProcessMaxChecks > 0 {
		p.ProcessMaxChecks = cfg.ProcessMaxChecks
	}
	if cfg.DeleteIntervalSeconds > 0 {
		p.DeleteInterval = time.Duration(cfg.DeleteIntervalSeconds) * time.Second
	}
	if cfg.DeleteMaxChecks > 0 {
		p.DeleteMaxChecks = cfg.DeleteMaxChecks
	}
	return p
}

// MachineOpts contains the dependencies for creating a [Machine].
type MachineOpts struct {
	Owner     MediaOwner
	Gateway   services.AssetGateway
	Transport services.UploadTransport
	Policy    Policy
	Logger    *log.Logger
	Journal   Journal

	// Hint is an externally known media reference (e.g. from a page
	// payload). When complete, the machine starts optimistically live
	// pending verification by the first Reconcile.
	Hint *models.MediaReference
}

// Machine owns one owner's media lifecycle state.
//
// The state field acts as a mutex by convention: SelectFile and DeleteMedia
// are rejected while an operation is in flight, and Reconcile refuses to
// fight an active upload. Asynchronous continuations (the poller, the TUI)
// read the current state through accessors at resume time rather than
// capturing it at schedule time.
type Machine struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    models.State
	progress int
	ref      models.MediaReference
	session  *models.UploadSession
	closed   bool

	owner     MediaOwner
	gateway   services.AssetGateway
	transport services.UploadTransport
	policy    Policy
	logger    *log.Logger
	journal   Journal

	updates    chan Update
	pollCancel context.CancelFunc
}

// NewMachine creates a lifecycle machine bound to one owner.
func NewMachine(opts MachineOpts) *Machine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}

	m := &Machine{
		state:     models.StateIdle,
		owner:     opts.Owner,
		gateway:   opts.Gateway,
		transport: opts.Transport,
		policy:    opts.Policy,
		logger:    opts.Logger,
		journal:   opts.Journal,
		updates:   make(chan Update, 64),
	}
	m.cond = sync.NewCond(&m.mu)

	if opts.Hint != nil && opts.Hint.Complete() {
		m.state = models.StateLive
		m.ref = *opts.Hint
	}

	return m
}

// State returns the current reconciliation state.
func (m *Machine) State() models.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Progress returns the current upload progress (0..100).
func (m *Machine) Progress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// Reference returns the media reference the machine last settled on.
func (m *Machine) Reference() models.MediaReference {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ref
}

// Updates returns the machine's event channel. Events are dropped rather
// than blocking when the consumer falls behind.
func (m *Machine) Updates() <-chan Update {
	return m.updates
}

// WaitSettled blocks until the machine reaches a terminal state or ctx is done.
func (m *Machine) WaitSettled(ctx context.Context) (models.State, error) {
	stop := context.AfterFunc(ctx, func() {
		m.cond.Broadcast()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.state.Terminal() {
		if ctx.Err() != nil {
			return m.state, ctx.Err()
		}
		m.cond.Wait()
	}
	return m.state, nil
}

// Close cancels any background polling. The machine must not be used after.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	cancel := m.pollCancel
	m.pollCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// send emits an update without blocking.
func (m *Machine) send(u Update) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ch := m.updates
	m.mu.Unlock()

	select {
	case ch <- u:
		// Sent successfully
	default:
		// Consumer behind, drop this update
	}
}

// setStateLocked changes state after validating the transition. Callers hold
// mu. An illegal transition leaves the state untouched and returns the
// refusal so entry points can surface it.
func (m *Machine) setStateLocked(to models.State) error {
	if err := checkTransition(m.state, to); err != nil {
		m.logger.Error("refusing state change", "error", err)
		return err
	}
	m.state = to
	m.cond.Broadcast()
	return nil
}

// Reconcile compares the backend's persisted media reference against the
// gateway's truth and settles into live or idle.
//
// A complete reference is verified with an existence check: present settles
// live, vanished heals the record to "no video", and a failed check assumes
// existence rather than discarding apparent content. With no reference, the
// gateway's side channel is consulted in case a webhook delivered the asset
// before the backend record was updated.
//
// Reconcile is a no-op while an upload is in flight.
func (m *Machine) Reconcile(ctx context.Context) (models.MediaReference, error) {
	m.mu.Lock()
	if m.state == models.StateUploading || m.state == models.StateProcessing {
		ref := m.ref
		m.mu.Unlock()
		return ref, nil
	}
	m.mu.Unlock()

	m.send(reconcilingUpdate(m.owner.Kind(), m.owner.ID()))

	ref, err := m.owner.Reference(ctx)
	if err != nil {
		return models.MediaReference{}, fmt.Errorf("failed to read owner record: %w", err)
	}

	if ref.Complete() {
		exists, err := m.gateway.AssetExists(ctx, ref.AssetID)
		if err != nil {
			// Assume existence rather than losing the user's apparent content
			m.logger.Warn("existence check failed, assuming asset exists", "asset", ref.AssetID, "error", err)
			m.settleLive(ref)
			return ref, nil
		}
		if exists {
			m.settleLive(ref)
			return ref, nil
		}

		// Dangling reference: heal the record and settle empty
		m.logger.Info("healing dangling media reference", "kind", m.owner.Kind(), "owner", m.owner.ID(), "asset", ref.AssetID)
		if err := m.owner.ClearReference(ctx); err != nil {
			return models.MediaReference{}, fmt.Errorf("failed to clear dangling reference: %w", err)
		}
		m.settleIdle("No video")
		return models.MediaReference{}, nil
	}

	if ref.Inconsistent() {
		// Half a reference is no reference; heal before looking further
		m.logger.Warn("healing inconsistent media reference", "kind", m.owner.Kind(), "owner", m.owner.ID())
		if err := m.owner.ClearReference(ctx); err != nil {
			m.logger.Warn("failed to clear inconsistent reference", "error", err)
		}
	}

	// Side channel: a webhook may have delivered the asset before the
	// backend record was updated.
	status, err := m.gateway.CheckAssetStatus(ctx, m.owner.Kind(), m.owner.ID())
	if err == nil && status.Status == models.AssetReady && status.Reference().Complete() {
		discovered := status.Reference()
		if err := m.owner.SetReference(ctx, discovered); err != nil {
			return models.MediaReference{}, fmt.Errorf("failed to persist discovered reference: %w", err)
		}
		m.settleLive(discovered)
		return discovered, nil
	}
	if err != nil {
		m.logger.Warn("side-channel status check failed", "error", err)
	}

	m.settleIdle("No video")
	return models.MediaReference{}, nil
}

// SelectFile validates and uploads a video file for the bound owner.
//
// Returns shared.ErrInvalidFileType for non-video files and shared.ErrBusy
// while an upload or deletion is already in flight or a video is already
// attached; none of these changes state or touches the network. Replacing an
// attached video requires an explicit DeleteMedia first, otherwise the old
// asset would be stranded at the gateway. On transport success the machine
// transitions to
// processing and background polling begins; on failure it settles to error
// and the session is discarded.
func (m *Machine) SelectFile(ctx context.Context, path string) error {
	filename := filepath.Base(path)
	if !models.IsVideoFile(filename) {
		return fmt.Errorf("%w: %s", shared.ErrInvalidFileType, filename)
	}

	m.mu.Lock()
	switch m.state {
	case models.StateUploading, models.StateProcessing, models.StateDeleting:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: state %s", shared.ErrBusy, state)
	case models.StateLive:
		m.mu.Unlock()
		return fmt.Errorf("%w: a video is already attached, delete it first", shared.ErrBusy)
	}
	if err := m.setStateLocked(models.StateUploading); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrBusy, err)
	}
	m.progress = 0
	session := models.UploadSession{
		SessionID: shared.GenerateID(),
		OwnerKind: m.owner.Kind(),
		OwnerID:   m.owner.ID(),
		Filename:  filename,
	}
	m.session = &session
	m.mu.Unlock()

	m.send(uploadStartUpdate(filename))
	if m.journal != nil {
		if err := m.journal.Begin(session); err != nil {
			m.logger.Warn("failed to journal upload session", "error", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %v", shared.ErrUploadTransport, err)
		m.fail(err)
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		err = fmt.Errorf("%w: %v", shared.ErrUploadTransport, err)
		m.fail(err)
		return err
	}

	dest, err := m.gateway.CreateUploadDestination(ctx, m.owner.Kind(), m.owner.ID(), filename)
	if err != nil {
		m.fail(err)
		return err
	}
	m.logger.Info("upload destination issued", "session", dest.SessionID, "kind", m.owner.Kind(), "owner", m.owner.ID())

	err = m.transport.Upload(ctx, dest.UploadURL, file, info.Size(), m.setProgress)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.progress = 100
	m.setStateLocked(models.StateProcessing)
	m.mu.Unlock()

	m.send(processingUpdate())
	m.track(session.SessionID, models.StateProcessing, 100)
	m.startPolling()

	return nil
}

// CheckStatus re-runs the gateway truth check. Unlike Reconcile it is
// allowed during processing: a ready report settles live, persists the
// reference, and stops polling.
func (m *Machine) CheckStatus(ctx context.Context) error {
	switch m.State() {
	case models.StateUploading:
		return nil
	case models.StateProcessing:
		// fall through to the status check below
	default:
		_, err := m.Reconcile(ctx)
		return err
	}

	status, err := m.gateway.CheckAssetStatus(ctx, m.owner.Kind(), m.owner.ID())
	if err != nil {
		m.logger.Warn("status check failed", "error", err)
		return err
	}

	switch {
	case status.Status == models.AssetReady && status.Reference().Complete():
		ref := status.Reference()
		if err := m.owner.SetReference(ctx, ref); err != nil {
			return fmt.Errorf("failed to persist media reference: %w", err)
		}
		m.settleLive(ref)
	case status.Status == models.AssetErrored:
		m.fail(fmt.Errorf("gateway reported transcode failure"))
	default:
		// still processing
	}

	return nil
}

// DeleteMedia removes the owner's video: delete at the gateway, verify the
// asset is gone (bounded), then clear the backend record.
//
// A hard delete failure settles to error and leaves the media reference
// untouched so nothing is lost on a failed delete.
func (m *Machine) DeleteMedia(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case models.StateUploading, models.StateProcessing, models.StateDeleting:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: state %s", shared.ErrBusy, state)
	}
	ref := m.ref
	m.mu.Unlock()

	if ref.Zero() {
		return shared.ErrNoReference
	}

	m.mu.Lock()
	if err := m.setStateLocked(models.StateDeleting); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrBusy, err)
	}
	m.mu.Unlock()
	m.send(deletingUpdate())

	if ref.AssetID != "" {
		if err := m.gateway.DeleteAsset(ctx, ref.AssetID); err != nil {
			// Nothing was confirmed deleted; keep the reference
			m.mu.Lock()
			m.setStateLocked(models.StateError)
			m.mu.Unlock()
			m.send(errorUpdate(err))
			return err
		}
		m.verifyDeletion(ctx, ref.AssetID)
	}

	if err := m.owner.ClearReference(ctx); err != nil {
		err = fmt.Errorf("failed to clear media reference: %w", err)
		m.mu.Lock()
		m.setStateLocked(models.StateError)
		m.mu.Unlock()
		m.send(errorUpdate(err))
		return err
	}

	m.settleIdle("Video deleted")
	return nil
}

// verifyDeletion polls the existence check until the asset is gone or
// attempts run out. Exhaustion proceeds optimistically: the gateway's
// deletion is eventually consistent and must not block the user.
func (m *Machine) verifyDeletion(ctx context.Context, assetID string) {
	max := m.policy.DeleteMaxChecks
	if max <= 0 {
		max = 15
	}
	interval := m.policy.DeleteInterval
	if interval <= 0 {
		interval = time.Second
	}

	for i := 1; i <= max; i++ {
		m.send(deleteCheckUpdate(i, max))

		exists, err := m.gateway.AssetExists(ctx, assetID)
		if err == nil && !exists {
			return
		}
		if err != nil {
			m.logger.Warn("existence check failed during delete verification", "error", err)
		}

		if i == max {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}

	m.logger.Warn("deletion not confirmed within verification window, proceeding", "asset", assetID, "checks", max)
}

// ResetError clears an error state back to idle without touching remote state.
func (m *Machine) ResetError() {
	m.mu.Lock()
	if m.state != models.StateError {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(models.StateIdle)
	m.progress = 0
	m.session = nil
	m.mu.Unlock()

	m.send(idleUpdate("Reset"))
}

// setProgress records monotonically increasing upload progress.
func (m *Machine) setProgress(pct int) {
	m.mu.Lock()
	if pct <= m.progress {
		m.mu.Unlock()
		return
	}
	m.progress = pct
	var sid string
	if m.session != nil {
		sid = m.session.SessionID
	}
	m.mu.Unlock()

	m.track(sid, models.StateUploading, pct)
	m.send(uploadProgressUpdate(pct))
}

// settleLive settles the machine into live with the given reference.
func (m *Machine) settleLive(ref models.MediaReference) {
	m.mu.Lock()
	m.stopPollingLocked()
	m.setStateLocked(models.StateLive)
	m.ref = ref
	var sid string
	if m.session != nil {
		sid = m.session.SessionID
		m.session = nil
	}
	m.mu.Unlock()

	m.finish(sid, models.StateLive, ref)
	m.send(liveUpdate(ref))
}

// settleIdle settles the machine into idle with no reference.
func (m *Machine) settleIdle(message string) {
	m.mu.Lock()
	m.stopPollingLocked()
	m.setStateLocked(models.StateIdle)
	m.ref = models.MediaReference{}
	m.progress = 0
	var sid string
	if m.session != nil {
		sid = m.session.SessionID
		m.session = nil
	}
	m.mu.Unlock()

	m.finish(sid, models.StateIdle, models.MediaReference{})
	m.send(idleUpdate(message))
}

// fail settles the machine into error, discarding any upload session but
// leaving the media reference as is.
func (m *Machine) fail(err error) {
	m.mu.Lock()
	m.stopPollingLocked()
	m.setStateLocked(models.StateError)
	var sid string
	if m.session != nil {
		sid = m.session.SessionID
		m.session = nil
	}
	m.mu.Unlock()

	m.finish(sid, models.StateError, models.MediaReference{})
	m.send(errorUpdate(err))
}

// startPolling launches the background transcode poller.
func (m *Machine) startPolling() {
	pollCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.pollCancel != nil {
		m.pollCancel()
	}
	m.pollCancel = cancel
	m.mu.Unlock()

	go m.runPoller(pollCtx)
}

// stopPollingLocked cancels the poller. Callers hold mu.
func (m *Machine) stopPollingLocked() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// runPoller re-checks transcode status while the machine is processing.
//
// The first check is immediate; state is read through the accessor on every
// iteration so an external settlement stops the loop rather than a stale
// closure polling forever.
func (m *Machine) runPoller(ctx context.Context) {
	interval := m.policy.ProcessInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	checks := 0
	for {
		if m.State() != models.StateProcessing {
			return
		}

		checks++
		m.send(pollCheckUpdate(checks))
		if err := m.CheckStatus(ctx); err != nil {
			m.logger.Warn("transcode poll failed", "error", err)
		}

		if m.State() != models.StateProcessing {
			return
		}
		if m.policy.ProcessMaxChecks > 0 && checks >= m.policy.ProcessMaxChecks {
			m.logger.Warn("transcode polling cap reached", "checks", checks)
			m.fail(fmt.Errorf("%w: transcode still processing after %d checks", shared.ErrTimeout, checks))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// track journals an in-flight session state, best effort.
func (m *Machine) track(sessionID string, state models.State, progress int) {
	if m.journal == nil || sessionID == "" {
		return
	}
	if err := m.journal.Track(sessionID, state, progress); err != nil {
		m.logger.Warn("failed to journal session state", "error", err)
	}
}

// finish journals a session's terminal state, best effort.
func (m *Machine) finish(sessionID string, state models.State, ref models.MediaReference) {
	if m.journal == nil || sessionID == "" {
		return
	}
	if err := m.journal.Finish(sessionID, state, ref); err != nil {
		m.logger.Warn("failed to journal session settlement", "error", err)
	}
}
