package settings

import (
	"context"
	"sync"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/observability"
)

// Recorder persists the observational trail of a settings mutation: one
// setting_change_diffs row and one audit event per change. Both writes are
// best-effort and mutually isolated; a failure is logged, counted, and
// swallowed, never surfaced to the caller.
type Recorder struct {
	diffs   DiffStore
	auditor audit.Logger
	logger  *observability.Logger
	metrics *observability.Metrics

	// waitForWrites makes Record block until both writes finish. Needed
	// on function-scoped runtimes that tear the process down right after
	// the response; long-lived servers leave it off and let writes drain
	// through wg.
	waitForWrites bool
	wg            sync.WaitGroup
}

// NewRecorder creates a change recorder. metrics may be nil.
func NewRecorder(diffs DiffStore, auditor audit.Logger, logger *observability.Logger, metrics *observability.Metrics, waitForWrites bool) *Recorder {
	return &Recorder{
		diffs:         diffs,
		auditor:       auditor,
		logger:        logger.WithComponent("settings.recorder"),
		metrics:       metrics,
		waitForWrites: waitForWrites,
	}
}

// Record captures a change that has already been committed. It must only
// be called after the primary write succeeded. The diff and audit writes
// run concurrently on a context detached from request cancellation, so a
// client disconnect cannot cancel rows that must reflect reality.
func (r *Recorder) Record(ctx context.Context, change Change) {
	if r.metrics != nil {
		r.metrics.SettingsChangesTotal.WithLabelValues(string(change.Category)).Inc()
	}

	writeCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	r.wg.Add(2)

	go func() {
		defer wg.Done()
		defer r.wg.Done()
		r.writeDiff(writeCtx, change)
	}()

	go func() {
		defer wg.Done()
		defer r.wg.Done()
		r.writeAudit(writeCtx, change)
	}()

	if r.waitForWrites {
		wg.Wait()
	}
}

// Wait blocks until all in-flight writes have drained. Called on shutdown.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) writeDiff(ctx context.Context, change Change) {
	diff := &ChangeDiff{
		TenantID: change.TenantID,
		Category: change.Category,
		Resource: change.Resource,
		UserID:   change.UserID,
		Before:   change.Before,
		After:    change.After,
	}

	if err := r.diffs.Insert(ctx, diff); err != nil {
		if r.metrics != nil {
			r.metrics.DiffWriteFailuresTotal.Inc()
		}
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"tenant_id": change.TenantID,
			"category":  string(change.Category),
			"resource":  change.Resource,
		}).Error("failed to persist setting change diff")
	}
}

func (r *Recorder) writeAudit(ctx context.Context, change Change) {
	event := audit.NewEvent(change.TenantID, audit.EventTypeSettingsChanged, audit.EventStatusSuccess)
	event.UserID = change.UserID
	event.Role = change.Role
	event.Resource = change.Resource
	event.IPAddress = change.IPAddress
	event.UserAgent = change.UserAgent
	event.RequestID = change.RequestID
	event.Message = "Settings updated"
	event.Details["category"] = string(change.Category)
	event.Details["changed_fields"] = ChangedFields(change.Before, change.After)

	status := "success"
	if err := r.auditor.Log(ctx, event); err != nil {
		status = "failure"
		if r.metrics != nil {
			r.metrics.AuditWriteFailures.WithLabelValues("recorder").Inc()
		}
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"tenant_id": change.TenantID,
			"category":  string(change.Category),
			"resource":  change.Resource,
		}).Error("failed to persist audit event")
	}
	if r.metrics != nil {
		r.metrics.AuditWritesTotal.WithLabelValues(string(audit.EventTypeSettingsChanged), status).Inc()
	}
}
