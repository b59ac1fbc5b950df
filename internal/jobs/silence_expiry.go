package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SilenceExpirer restores incidents whose silence has ended
type SilenceExpirer interface {
	ExpireSilences(ctx context.Context, now time.Time) (int, error)
}

// SilenceExpiry periodically returns silenced incidents to their pre-silence status
type SilenceExpiry struct {
	incidents SilenceExpirer
	now       func() time.Time
}

// NewSilenceExpiry creates a new silence expiry job
func NewSilenceExpiry(incidents SilenceExpirer) *SilenceExpiry {
	return &SilenceExpiry{incidents: incidents, now: time.Now}
}

// CheckAndTransition restores every incident whose silenced_until has passed
func (m *SilenceExpiry) CheckAndTransition(ctx context.Context) (int, error) {
	return m.incidents.ExpireSilences(ctx, m.now())
}

// DefaultSweepInterval replaces a non-positive Start interval
const DefaultSweepInterval = time.Minute

// Start runs a sweep immediately and then every interval until ctx is done
func (m *SilenceExpiry) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logrus.Warnf("Invalid silence sweep interval %v, using %v", interval, DefaultSweepInterval)
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		restored, err := m.CheckAndTransition(ctx)
		if err != nil {
			logrus.WithError(err).Error("Silence expiry sweep failed")
		} else if restored > 0 {
			logrus.Infof("Silence expiry: restored %d incidents", restored)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logrus.Debug("Silence expiry stopped")
			return
		}
	}
}
