package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// AuditOutcome classifies one owner's media reference after verification.
type AuditOutcome string

const (
	// OutcomeLive means the reference is complete and the asset exists.
	OutcomeLive AuditOutcome = "live"
	// OutcomeEmpty means the owner has no media reference.
	OutcomeEmpty AuditOutcome = "empty"
	// OutcomeDangling means the reference points at a vanished asset.
	OutcomeDangling AuditOutcome = "dangling"
	// OutcomeInconsistent means only one of the two reference fields is set.
	OutcomeInconsistent AuditOutcome = "inconsistent"
	// OutcomeHealed means a dangling or inconsistent reference was cleared.
	OutcomeHealed AuditOutcome = "healed"
	// OutcomeUnverified means the gateway could not be reached.
	OutcomeUnverified AuditOutcome = "unverified"
)

// AuditEntry is the verification result for a single owner record.
type AuditEntry struct {
	Kind      models.OwnerKind      `json:"kind"`
	OwnerID   string                `json:"owner_id"`
	Title     string                `json:"title,omitempty"`
	Outcome   AuditOutcome          `json:"outcome"`
	Reference models.MediaReference `json:"reference,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// AuditResult aggregates a full audit run.
type AuditResult struct {
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Total    int          `json:"total"`
	Entries  []AuditEntry `json:"entries"`
}

// Count returns how many entries settled on the given outcome.
func (r *AuditResult) Count(outcome AuditOutcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// AuditorOpts contains the dependencies for creating an [Auditor].
type AuditorOpts struct {
	Store   services.RecordStore
	Gateway services.AssetGateway
	Logger  *log.Logger

	// Workers is the number of concurrent verification workers.
	Workers int

	// RateLimit caps gateway existence checks per second across workers.
	RateLimit float64

	// Heal clears dangling and inconsistent references as they are found.
	Heal bool
}

// Auditor verifies every owner record's media reference against the gateway
// in bulk. Verification fans out over a bounded worker pool with a shared
// rate limiter so a large catalog cannot hammer the gateway.
type Auditor struct {
	store   services.RecordStore
	gateway services.AssetGateway
	logger  *log.Logger
	workers int
	limiter *rate.Limiter
	heal    bool

	updates chan Update
}

// NewAuditor creates an auditor. Workers defaults to 4 and the rate limit
// to 10 checks per second.
func NewAuditor(opts AuditorOpts) *Auditor {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}

	return &Auditor{
		store:   opts.Store,
		gateway: opts.Gateway,
		logger:  opts.Logger,
		workers: opts.Workers,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Workers),
		heal:    opts.Heal,
		updates: make(chan Update, 64),
	}
}

// Updates returns the auditor's progress channel. It is closed when Run
// returns.
func (a *Auditor) Updates() <-chan Update {
	return a.updates
}

// Run audits every entity of the given kinds and returns the aggregated
// result. Individual verification failures are recorded per entry, not
// returned as errors.
func (a *Auditor) Run(ctx context.Context, kinds []models.OwnerKind) (*AuditResult, error) {
	defer close(a.updates)

	result := &AuditResult{Started: time.Now()}

	var entities []services.Entity
	for _, kind := range kinds {
		batch, err := a.store.ListEntities(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
		}
		a.sendUpdate(auditFetchUpdate(kind, len(batch)))
		entities = append(entities, batch...)
	}
	result.Total = len(entities)

	jobs := make(chan services.Entity)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var done int

	for range a.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entity := range jobs {
				entry := a.auditEntity(ctx, entity)

				mu.Lock()
				result.Entries = append(result.Entries, entry)
				done++
				step := done
				mu.Unlock()

				a.sendUpdate(auditCheckUpdate(step, result.Total, entity.ID))
			}
		}()
	}

	for _, entity := range entities {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		case jobs <- entity:
		}
	}
	close(jobs)
	wg.Wait()

	result.Finished = time.Now()
	a.logger.Info("audit complete",
		"total", result.Total,
		"live", result.Count(OutcomeLive),
		"empty", result.Count(OutcomeEmpty),
		"dangling", result.Count(OutcomeDangling),
		"inconsistent", result.Count(OutcomeInconsistent),
		"healed", result.Count(OutcomeHealed),
		"unverified", result.Count(OutcomeUnverified))

	return result, nil
}

// auditEntity verifies one record's media reference.
func (a *Auditor) auditEntity(ctx context.Context, entity services.Entity) AuditEntry {
	entry := AuditEntry{
		Kind:      entity.Kind,
		OwnerID:   entity.ID,
		Title:     entity.Title,
		Reference: entity.Reference(),
	}
	ref := entity.Reference()

	switch {
	case ref.Zero():
		entry.Outcome = OutcomeEmpty
		return entry
	case ref.Inconsistent():
		entry.Outcome = OutcomeInconsistent
		if a.heal {
			entry.Outcome = a.healEntity(ctx, entity, &entry)
		}
		return entry
	}

	if err := a.limiter.Wait(ctx); err != nil {
		entry.Outcome = OutcomeUnverified
		entry.Error = err.Error()
		return entry
	}

	exists, err := a.gateway.AssetExists(ctx, ref.AssetID)
	if err != nil {
		entry.Outcome = OutcomeUnverified
		entry.Error = err.Error()
		return entry
	}
	if exists {
		entry.Outcome = OutcomeLive
		return entry
	}

	entry.Outcome = OutcomeDangling
	if a.heal {
		entry.Outcome = a.healEntity(ctx, entity, &entry)
	}
	return entry
}

// healEntity clears a broken reference, recording a verification error on
// the entry if the backend rejects the update.
func (a *Auditor) healEntity(ctx context.Context, entity services.Entity, entry *AuditEntry) AuditOutcome {
	a.logger.Info("healing media reference", "kind", entity.Kind, "owner", entity.ID)
	if _, err := a.store.UpdateMedia(ctx, entity.Kind, entity.ID, models.MediaReference{}); err != nil {
		entry.Error = err.Error()
		return entry.Outcome
	}
	return OutcomeHealed
}

// sendUpdate emits an audit progress update without blocking.
func (a *Auditor) sendUpdate(u Update) {
	select {
	case a.updates <- u:
		// Sent successfully
	default:
		// Consumer behind, drop this update
	}
}
