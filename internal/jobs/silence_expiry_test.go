package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/testhelpers"
)

func TestSilenceExpiry_RestoresExpiredIncidents(t *testing.T) {
	svc := testhelpers.NewSeededServices(t, nil)

	// inc-003 is seeded silenced until 2024-03-01T10:05:00Z
	job := NewSilenceExpiry(svc.Incidents)
	job.now = func() time.Time { return time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC) }

	restored, err := job.CheckAndTransition(t.Context())
	if err != nil {
		t.Fatalf("CheckAndTransition() error = %v", err)
	}
	if restored != 1 {
		t.Fatalf("restored = %d, want 1", restored)
	}

	inc, err := svc.Incidents.Get(t.Context(), "inc-003")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if inc.Status != models.IncidentStatusNew {
		t.Errorf("status = %s, want new", inc.Status)
	}
	if inc.SilencedUntil != nil || inc.PreviousStatus != "" {
		t.Errorf("silence fields not cleared: %+v", inc)
	}
	last := inc.History[len(inc.History)-1]
	if last.Action != models.HistorySilenceExpired {
		t.Errorf("last history action = %q", last.Action)
	}

	again, err := job.CheckAndTransition(t.Context())
	if err != nil || again != 0 {
		t.Errorf("second sweep = %d, %v; want 0, nil", again, err)
	}
}

func TestSilenceExpiry_IgnoresActiveSilences(t *testing.T) {
	svc := testhelpers.NewSeededServices(t, nil)

	job := NewSilenceExpiry(svc.Incidents)
	job.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	restored, err := job.CheckAndTransition(t.Context())
	if err != nil {
		t.Fatalf("CheckAndTransition() error = %v", err)
	}
	if restored != 0 {
		t.Errorf("restored = %d, want 0", restored)
	}
}

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireSilences(ctx context.Context, now time.Time) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestSilenceExpiry_StartStopsOnCancel(t *testing.T) {
	expirer := &countingExpirer{err: errors.New("store down")}
	job := NewSilenceExpiry(expirer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	testhelpers.Eventually(t, time.Second, func() bool { return expirer.calls.Load() >= 2 }, "repeated sweeps")
	cancel()
	testhelpers.MustCompleteWithin(t, time.Second, func() { <-done })
}

func TestSilenceExpiry_StartWithNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		expirer := &countingExpirer{}
		job := NewSilenceExpiry(expirer)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			job.Start(ctx, interval)
			close(done)
		}()

		testhelpers.Eventually(t, time.Second, func() bool { return expirer.calls.Load() >= 1 }, "initial sweep")
		cancel()
		testhelpers.MustCompleteWithin(t, time.Second, func() { <-done })
	}
}
