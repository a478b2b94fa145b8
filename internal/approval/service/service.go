// Package service implements the volunteer approval pipeline.
//
// Approve is a six-step state machine: lookup, precondition check, render,
// upload, conditional commit, notify. All externally visible side effects
// (render, upload) happen before the single state-committing write, and that
// write is a compare-and-swap on the record's status. A failure before the
// commit leaves the record pending and the whole operation rerunnable; a
// lost commit race leaves only an orphaned uploaded document, which the
// deterministic storage keys make harmless.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	approvalmetrics "kehila/internal/approval/metrics"
	"kehila/internal/approval/renderer"
	areamodels "kehila/internal/area/models"
	"kehila/internal/notify"
	"kehila/internal/storage"
	volmodels "kehila/internal/volunteer/models"
	dErrors "kehila/pkg/domain-errors"
	"kehila/pkg/platform/sentinel"
)

// VolunteerStore is the slice of the record store the pipeline needs. The
// two conditional operations push mutual exclusion onto the store, so
// concurrent admin sessions race safely without in-process locks.
type VolunteerStore interface {
	FindByNationalID(ctx context.Context, nationalID string) (*volmodels.VolunteerRecord, error)
	ConfirmIfPending(ctx context.Context, recordID uuid.UUID, insuranceURL string) (bool, error)
	DeleteIfPending(ctx context.Context, recordID uuid.UUID) (bool, error)
}

// AreaStore resolves volunteer areas for the precondition check and the
// group invite link.
type AreaStore interface {
	Get(ctx context.Context, id string) (*areamodels.Area, error)
}

// Renderer produces the insurance document for an applicant.
type Renderer interface {
	Render(ctx context.Context, fields renderer.Fields) ([]byte, error)
}

// Receipt is the successful outcome of an Approve call. Notified is false
// when the commit succeeded but the notification could not be delivered.
type Receipt struct {
	NationalID  string `json:"nationalId"`
	DocumentURL string `json:"documentUrl"`
	Notified    bool   `json:"notified"`
}

// Orchestrator coordinates the approval pipeline. All collaborators are
// injected; none are reached through package-level state.
type Orchestrator struct {
	volunteers VolunteerStore
	areas      AreaStore
	renderer   Renderer
	objects    storage.ObjectStore
	notifier   notify.Dispatcher
	logger     *slog.Logger
	metrics    *approvalmetrics.Metrics
	now        func() time.Time
}

// Option configures optional orchestrator dependencies.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches approval pipeline metrics.
func WithMetrics(m *approvalmetrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock sets the time source for testability.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs the approval orchestrator.
func New(volunteers VolunteerStore, areas AreaStore, r Renderer, objects storage.ObjectStore, notifier notify.Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		volunteers: volunteers,
		areas:      areas,
		renderer:   r,
		objects:    objects,
		notifier:   notifier,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Approve confirms a pending applicant: it renders the insurance document,
// uploads it under a deterministic key, and flips the record to confirmed
// with a single conditional write. Calling it again for a confirmed
// applicant returns a conflict without side effects.
func (o *Orchestrator) Approve(ctx context.Context, nationalID string) (*Receipt, error) {
	start := o.now()
	receipt, err := o.approve(ctx, nationalID)
	if o.metrics != nil {
		o.metrics.ObserveApprove(o.now().Sub(start))
		o.metrics.CountApproval(outcome(err))
	}
	return receipt, err
}

func (o *Orchestrator) approve(ctx context.Context, nationalID string) (*Receipt, error) {
	// Step 1: lookup by natural key.
	rec, err := o.volunteers.FindByNationalID(ctx, nationalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}
	if rec.IsConfirmed() {
		return nil, dErrors.New(dErrors.CodeConflict, "volunteer already confirmed")
	}

	// Step 2: precondition check before any external calls.
	areas, err := o.resolveAreas(ctx, rec.VolunteerAreas)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve volunteer areas")
	}
	groupLink := ""
	for _, area := range areas {
		if area.RequiresPoliceForm(rec.Gender) && rec.PoliceFormURL == nil {
			return nil, dErrors.New(dErrors.CodePrecondition, "police form missing")
		}
		if groupLink == "" {
			groupLink = area.WhatsAppLink
		}
	}

	// Step 3: render. No record mutation has happened, so any failure here
	// leaves the operation rerunnable from scratch.
	renderStart := o.now()
	doc, err := o.renderer.Render(ctx, renderer.Fields{
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		NationalID:  rec.NationalID,
		Phone:       rec.Phone,
		MobilePhone: rec.Phone,
	})
	if o.metrics != nil {
		o.metrics.ObserveRender(o.now().Sub(renderStart))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document rendering failed")
	}

	// Step 4: upload under a deterministic key so a retried approval
	// overwrites rather than duplicates.
	uploadStart := o.now()
	url, err := o.objects.Upload(ctx, storage.InsuranceKey(rec.NationalID), doc, "application/pdf")
	if o.metrics != nil {
		o.metrics.ObserveUpload(o.now().Sub(uploadStart))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document upload failed")
	}

	// Step 5: the conditional commit. The status guard is the only arbiter
	// between concurrent approvals; losing it orphans this attempt's upload,
	// which is acceptable.
	committed, err := o.volunteers.ConfirmIfPending(ctx, rec.RecordID, url)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit approval")
	}
	if !committed {
		return nil, dErrors.New(dErrors.CodeConflict, "volunteer already confirmed")
	}

	// Step 6: best-effort notification. The confirmed record is the source
	// of truth; a delivery failure only degrades the receipt.
	notified := true
	if o.notifier != nil {
		if err := o.notifier.Send(ctx, notify.Notification{
			Email:       rec.Email,
			FirstName:   rec.FirstName,
			NationalID:  rec.NationalID,
			DocumentURL: url,
			GroupLink:   groupLink,
		}); err != nil {
			notified = false
			o.logger.Warn("approval notification failed",
				"national_id", rec.NationalID,
				"error", err.Error(),
			)
		}
	}

	o.logger.Info("volunteer approved",
		"national_id", rec.NationalID,
		"document_url", url,
		"notified", notified,
	)
	return &Receipt{NationalID: rec.NationalID, DocumentURL: url, Notified: notified}, nil
}

// Reject deletes a pending applicant. Confirmed volunteers cannot be
// rejected through this path; the conditional delete resolves a race with a
// concurrent approval in the store.
func (o *Orchestrator) Reject(ctx context.Context, nationalID string) error {
	err := o.reject(ctx, nationalID)
	if o.metrics != nil {
		o.metrics.CountRejection(outcome(err))
	}
	return err
}

func (o *Orchestrator) reject(ctx context.Context, nationalID string) error {
	rec, err := o.volunteers.FindByNationalID(ctx, nationalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}
	if rec.IsConfirmed() {
		return dErrors.New(dErrors.CodeConflict, "confirmed volunteers cannot be rejected")
	}

	deleted, err := o.volunteers.DeleteIfPending(ctx, rec.RecordID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete applicant")
	}
	if deleted {
		o.logger.Info("volunteer rejected", "national_id", nationalID)
		return nil
	}

	// The guard failed: either an approval won the race or another admin
	// already deleted the record. Re-read to tell the two apart.
	if _, err := o.volunteers.FindByNationalID(ctx, nationalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}
	return dErrors.New(dErrors.CodeConflict, "confirmed volunteers cannot be rejected")
}

// resolveAreas fetches the record's areas concurrently. Unknown area ids are
// skipped: a stale taxonomy entry must not block approval of an otherwise
// valid applicant.
func (o *Orchestrator) resolveAreas(ctx context.Context, ids []string) ([]*areamodels.Area, error) {
	out := make([]*areamodels.Area, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			area, err := o.areas.Get(ctx, id)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					o.logger.Warn("volunteer references unknown area", "area", id)
					return nil
				}
				return err
			}
			out[i] = area
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	areas := out[:0]
	for _, a := range out {
		if a != nil {
			areas = append(areas, a)
		}
	}
	return areas, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(dErrors.CodeOf(err))
}
