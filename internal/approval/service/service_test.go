package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	approvalmetrics "kehila/internal/approval/metrics"
	"kehila/internal/approval/renderer"
	areamodels "kehila/internal/area/models"
	areastore "kehila/internal/area/store"
	"kehila/internal/notify"
	"kehila/internal/storage"
	volmodels "kehila/internal/volunteer/models"
	volstore "kehila/internal/volunteer/store/volunteer"
	dErrors "kehila/pkg/domain-errors"
	"kehila/pkg/platform/sentinel"
)

// =============================================================================
// Approval Pipeline Test Suite
// =============================================================================
// The pipeline's ordering and failure atomicity are exercised against the real
// in-memory stores; only the renderer and notifier are stubbed, since those
// wrap a subprocess and SMTP respectively.

type ApprovalSuite struct {
	suite.Suite
	volunteers *volstore.MemoryStore
	areas      *areastore.MemoryStore
	renderer   *stubRenderer
	objects    *storage.MemoryStore
	notifier   *recordingDispatcher
	service    *Orchestrator
}

func TestApprovalSuite(t *testing.T) {
	suite.Run(t, new(ApprovalSuite))
}

func (s *ApprovalSuite) SetupTest() {
	s.volunteers = volstore.NewMemoryStore()
	s.areas = areastore.NewMemoryStore()
	s.renderer = &stubRenderer{doc: []byte("%PDF-1.4 stub")}
	s.objects = storage.NewMemoryStore()
	s.notifier = &recordingDispatcher{}
	s.service = New(s.volunteers, s.areas, s.renderer, s.objects, s.notifier)

	ctx := context.Background()
	for _, a := range []struct {
		id       string
		withKids bool
		link     string
	}{
		{"hospitality", false, "https://chat.whatsapp.com/hospitality"},
		{"kids", true, "https://chat.whatsapp.com/kids"},
	} {
		area, err := areamodels.NewArea(a.id, a.withKids, a.link)
		s.Require().NoError(err)
		s.Require().NoError(s.areas.Upsert(ctx, area))
	}
}

func (s *ApprovalSuite) seedPending(nationalID string, gender volmodels.Gender, areas []string) *volmodels.VolunteerRecord {
	rec, err := volmodels.NewVolunteerRecord(nationalID, "Dana", "Levi", "0521234567", "dana@example.com", gender, areas, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.volunteers.Create(context.Background(), rec))
	return rec
}

func (s *ApprovalSuite) withPoliceForm(rec *volmodels.VolunteerRecord) {
	url := "memory://" + storage.ComplianceKey(rec.NationalID)
	rec.PoliceFormURL = &url
	s.Require().NoError(s.volunteers.Update(context.Background(), rec))
}

// =============================================================================
// Approve
// =============================================================================

func (s *ApprovalSuite) TestApprove() {
	ctx := context.Background()

	s.Run("unknown applicant returns not found", func() {
		_, err := s.service.Approve(ctx, "999999999")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(0, s.renderer.Calls())
	})

	s.Run("confirms the record and uploads under the insurance key", func() {
		s.seedPending("111111111", volmodels.GenderFemale, []string{"hospitality"})

		receipt, err := s.service.Approve(ctx, "111111111")
		s.Require().NoError(err)
		s.Equal("111111111", receipt.NationalID)
		s.Equal("memory://insurance/111111111.pdf", receipt.DocumentURL)
		s.True(receipt.Notified)

		doc, ok := s.objects.Object("insurance/111111111.pdf")
		s.True(ok)
		s.Equal([]byte("%PDF-1.4 stub"), doc)

		stored, err := s.volunteers.FindByNationalID(ctx, "111111111")
		s.Require().NoError(err)
		s.True(stored.IsConfirmed())
		s.Require().NotNil(stored.InsuranceFormURL)
		s.Equal(receipt.DocumentURL, *stored.InsuranceFormURL)
	})

	s.Run("passes applicant fields to the renderer", func() {
		s.seedPending("111111112", volmodels.GenderFemale, []string{"hospitality"})

		_, err := s.service.Approve(ctx, "111111112")
		s.Require().NoError(err)

		fields := s.renderer.Last()
		s.Equal("Dana", fields.FirstName)
		s.Equal("Levi", fields.LastName)
		s.Equal("111111112", fields.NationalID)
		s.Equal("0521234567", fields.Phone)
	})

	s.Run("sends the notification with the area group link", func() {
		s.seedPending("111111113", volmodels.GenderFemale, []string{"hospitality"})

		_, err := s.service.Approve(ctx, "111111113")
		s.Require().NoError(err)

		sent := s.notifier.Last()
		s.Equal("dana@example.com", sent.Email)
		s.Equal("Dana", sent.FirstName)
		s.Equal("https://chat.whatsapp.com/hospitality", sent.GroupLink)
		s.Equal("memory://insurance/111111113.pdf", sent.DocumentURL)
	})

	s.Run("second approval conflicts without side effects", func() {
		s.seedPending("111111114", volmodels.GenderFemale, []string{"hospitality"})

		_, err := s.service.Approve(ctx, "111111114")
		s.Require().NoError(err)
		renders, sends := s.renderer.Calls(), s.notifier.Calls()

		_, err = s.service.Approve(ctx, "111111114")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(renders, s.renderer.Calls())
		s.Equal(sends, s.notifier.Calls())
	})
}

// =============================================================================
// Precondition
// =============================================================================

func (s *ApprovalSuite) TestApprovePrecondition() {
	ctx := context.Background()

	s.Run("male applicant in a kids area without police form is rejected before any side effect", func() {
		s.seedPending("222222221", volmodels.GenderMale, []string{"kids"})

		_, err := s.service.Approve(ctx, "222222221")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(0, s.renderer.Calls())
		s.Equal(0, s.objects.Len())

		stored, err := s.volunteers.FindByNationalID(ctx, "222222221")
		s.Require().NoError(err)
		s.Equal(volmodels.StatusPending, stored.Status)
	})

	s.Run("male applicant in a kids area with police form passes", func() {
		rec := s.seedPending("222222222", volmodels.GenderMale, []string{"kids"})
		s.withPoliceForm(rec)

		receipt, err := s.service.Approve(ctx, "222222222")
		s.Require().NoError(err)
		s.Equal("memory://insurance/222222222.pdf", receipt.DocumentURL)

		_, ok := s.objects.Object("insurance/222222222.pdf")
		s.True(ok)
	})

	s.Run("female applicant in a kids area needs no police form", func() {
		s.seedPending("222222223", volmodels.GenderFemale, []string{"kids"})

		_, err := s.service.Approve(ctx, "222222223")
		s.NoError(err)
	})

	s.Run("unknown area id does not block approval", func() {
		s.seedPending("222222224", volmodels.GenderFemale, []string{"ghost-area"})

		receipt, err := s.service.Approve(ctx, "222222224")
		s.Require().NoError(err)
		s.Empty(s.notifier.Last().GroupLink)
		s.True(receipt.Notified)
	})
}

// =============================================================================
// Failure Atomicity
// =============================================================================

func (s *ApprovalSuite) TestApproveFailures() {
	ctx := context.Background()

	s.Run("render failure leaves the record pending and nothing uploaded", func() {
		s.seedPending("333333331", volmodels.GenderFemale, []string{"hospitality"})
		s.renderer.Fail(errors.New("soffice crashed"))

		_, err := s.service.Approve(ctx, "333333331")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(0, s.objects.Len())
		s.Equal(0, s.notifier.Calls())

		stored, err := s.volunteers.FindByNationalID(ctx, "333333331")
		s.Require().NoError(err)
		s.Equal(volmodels.StatusPending, stored.Status)
	})

	s.Run("render failure is retryable", func() {
		s.seedPending("333333332", volmodels.GenderFemale, []string{"hospitality"})
		s.renderer.Fail(renderer.ErrTimeout)

		_, err := s.service.Approve(ctx, "333333332")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

		s.renderer.Fail(nil)
		receipt, err := s.service.Approve(ctx, "333333332")
		s.Require().NoError(err)
		s.True(receipt.Notified)
	})

	s.Run("upload failure leaves the record pending", func() {
		s.seedPending("333333333", volmodels.GenderFemale, []string{"hospitality"})
		svc := New(s.volunteers, s.areas, s.renderer, failingObjectStore{}, s.notifier)

		sends := s.notifier.Calls()
		_, err := svc.Approve(ctx, "333333333")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(sends, s.notifier.Calls())

		stored, err := s.volunteers.FindByNationalID(ctx, "333333333")
		s.Require().NoError(err)
		s.Equal(volmodels.StatusPending, stored.Status)
	})

	s.Run("notification failure still confirms and degrades the receipt", func() {
		s.seedPending("333333334", volmodels.GenderFemale, []string{"hospitality"})
		s.notifier.Fail(errors.New("smtp unreachable"))
		defer s.notifier.Fail(nil)

		receipt, err := s.service.Approve(ctx, "333333334")
		s.Require().NoError(err)
		s.False(receipt.Notified)

		stored, err := s.volunteers.FindByNationalID(ctx, "333333334")
		s.Require().NoError(err)
		s.True(stored.IsConfirmed())
	})
}

// =============================================================================
// Concurrency
// =============================================================================

func (s *ApprovalSuite) TestApproveConcurrent() {
	ctx := context.Background()
	s.seedPending("444444441", volmodels.GenderFemale, []string{"hospitality"})

	const n = 16
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Approve(ctx, "444444441")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, successes)
	s.Equal(n-1, conflicts)
	s.Equal(1, s.notifier.Calls())

	stored, err := s.volunteers.FindByNationalID(ctx, "444444441")
	s.Require().NoError(err)
	s.True(stored.IsConfirmed())
}

// =============================================================================
// Metrics
// =============================================================================

// The duration histograms must follow the injected clock, not the wall
// clock, so a substituted time source produces exact observations.
func (s *ApprovalSuite) TestApproveDurationsFollowInjectedClock() {
	ctx := context.Background()
	s.seedPending("666666661", volmodels.GenderFemale, []string{"hospitality"})

	m := approvalmetrics.New()
	base := time.Unix(1700000000, 0)
	ticks := 0
	clock := func() time.Time {
		t := base.Add(time.Duration(ticks) * time.Second)
		ticks++
		return t
	}
	svc := New(s.volunteers, s.areas, s.renderer, s.objects, s.notifier, WithMetrics(m), WithClock(clock))

	_, err := svc.Approve(ctx, "666666661")
	s.Require().NoError(err)

	// The clock advances one second per reading: render and upload each span
	// one reading, the whole call spans five.
	s.NoError(testutil.CollectAndCompare(m.RenderDuration, strings.NewReader(`
# HELP kehila_render_duration_seconds Duration of document rendering
# TYPE kehila_render_duration_seconds histogram
kehila_render_duration_seconds_bucket{le="0.1"} 0
kehila_render_duration_seconds_bucket{le="0.25"} 0
kehila_render_duration_seconds_bucket{le="0.5"} 0
kehila_render_duration_seconds_bucket{le="1"} 1
kehila_render_duration_seconds_bucket{le="2.5"} 1
kehila_render_duration_seconds_bucket{le="5"} 1
kehila_render_duration_seconds_bucket{le="10"} 1
kehila_render_duration_seconds_bucket{le="20"} 1
kehila_render_duration_seconds_bucket{le="30"} 1
kehila_render_duration_seconds_bucket{le="+Inf"} 1
kehila_render_duration_seconds_sum 1
kehila_render_duration_seconds_count 1
`)))
	s.NoError(testutil.CollectAndCompare(m.UploadDuration, strings.NewReader(`
# HELP kehila_upload_duration_seconds Duration of document upload
# TYPE kehila_upload_duration_seconds histogram
kehila_upload_duration_seconds_bucket{le="0.05"} 0
kehila_upload_duration_seconds_bucket{le="0.1"} 0
kehila_upload_duration_seconds_bucket{le="0.25"} 0
kehila_upload_duration_seconds_bucket{le="0.5"} 0
kehila_upload_duration_seconds_bucket{le="1"} 1
kehila_upload_duration_seconds_bucket{le="2.5"} 1
kehila_upload_duration_seconds_bucket{le="5"} 1
kehila_upload_duration_seconds_bucket{le="10"} 1
kehila_upload_duration_seconds_bucket{le="+Inf"} 1
kehila_upload_duration_seconds_sum 1
kehila_upload_duration_seconds_count 1
`)))
	s.NoError(testutil.CollectAndCompare(m.ApproveDuration, strings.NewReader(`
# HELP kehila_approve_duration_seconds End to end duration of Approve
# TYPE kehila_approve_duration_seconds histogram
kehila_approve_duration_seconds_bucket{le="0.1"} 0
kehila_approve_duration_seconds_bucket{le="0.25"} 0
kehila_approve_duration_seconds_bucket{le="0.5"} 0
kehila_approve_duration_seconds_bucket{le="1"} 0
kehila_approve_duration_seconds_bucket{le="2.5"} 0
kehila_approve_duration_seconds_bucket{le="5"} 1
kehila_approve_duration_seconds_bucket{le="10"} 1
kehila_approve_duration_seconds_bucket{le="20"} 1
kehila_approve_duration_seconds_bucket{le="30"} 1
kehila_approve_duration_seconds_bucket{le="60"} 1
kehila_approve_duration_seconds_bucket{le="+Inf"} 1
kehila_approve_duration_seconds_sum 5
kehila_approve_duration_seconds_count 1
`)))
}

// =============================================================================
// Reject
// =============================================================================

func (s *ApprovalSuite) TestReject() {
	ctx := context.Background()

	s.Run("deletes a pending applicant", func() {
		s.seedPending("555555551", volmodels.GenderFemale, []string{"hospitality"})

		s.Require().NoError(s.service.Reject(ctx, "555555551"))

		_, err := s.volunteers.FindByNationalID(ctx, "555555551")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown applicant returns not found", func() {
		err := s.service.Reject(ctx, "999999999")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("confirmed volunteer cannot be rejected", func() {
		s.seedPending("555555552", volmodels.GenderFemale, []string{"hospitality"})
		_, err := s.service.Approve(ctx, "555555552")
		s.Require().NoError(err)

		err = s.service.Reject(ctx, "555555552")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := s.volunteers.FindByNationalID(ctx, "555555552")
		s.Require().NoError(err)
		s.True(stored.IsConfirmed())
	})

	s.Run("concurrent deletion resolves idempotently", func() {
		rec := s.seedPending("555555553", volmodels.GenderFemale, []string{"hospitality"})
		svc := New(&vanishingStore{MemoryStore: s.volunteers, victim: rec.RecordID}, s.areas, s.renderer, s.objects, s.notifier)

		s.NoError(svc.Reject(ctx, "555555553"))
	})
}

// =============================================================================
// Test Doubles
// =============================================================================

type stubRenderer struct {
	mu    sync.Mutex
	doc   []byte
	err   error
	calls int
	last  renderer.Fields
}

func (r *stubRenderer) Render(ctx context.Context, fields renderer.Fields) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = fields
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

func (r *stubRenderer) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *stubRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *stubRenderer) Last() renderer.Fields {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (d *recordingDispatcher) Send(ctx context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDispatcher) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *recordingDispatcher) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *recordingDispatcher) Last() notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return notify.Notification{}
	}
	return d.sent[len(d.sent)-1]
}

type failingObjectStore struct{}

func (failingObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", fmt.Errorf("bucket unavailable")
}

// vanishingStore simulates another admin deleting the record between the
// rejection's read and its conditional delete.
type vanishingStore struct {
	*volstore.MemoryStore
	victim uuid.UUID
}

func (s *vanishingStore) DeleteIfPending(ctx context.Context, recordID uuid.UUID) (bool, error) {
	if recordID == s.victim {
		_, _ = s.MemoryStore.DeleteIfPending(ctx, recordID)
	}
	return s.MemoryStore.DeleteIfPending(ctx, recordID)
}
