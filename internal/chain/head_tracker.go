package chain

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mantle-yield-lab/internal/observability"
)

// DefaultHeadMaxAge is how long a tracked head is trusted without a newer one.
const DefaultHeadMaxAge = 15 * time.Second

// HeadTracker keeps the most recent head delivered by a HeadsClient.
type HeadTracker struct {
	heads  HeadsClient
	maxAge time.Duration
	now    func() time.Time
	log    logrus.FieldLogger

	mu     sync.RWMutex
	latest Head
	seenAt time.Time
}

// NewHeadTracker creates a tracker. maxAge <= 0 uses DefaultHeadMaxAge.
func NewHeadTracker(heads HeadsClient, maxAge time.Duration, log logrus.FieldLogger) *HeadTracker {
	if maxAge <= 0 {
		maxAge = DefaultHeadMaxAge
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HeadTracker{
		heads:  heads,
		maxAge: maxAge,
		now:    time.Now,
		log:    log.WithField("component", "head_tracker"),
	}
}

// Run subscribes and records heads until ctx is done or the subscription closes.
func (t *HeadTracker) Run(ctx context.Context) error {
	ch, err := t.heads.SubscribeNewHeads(ctx)
	if err != nil {
		return err
	}
	t.log.Info("subscribed to newHeads")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case head, ok := <-ch:
			if !ok {
				return nil
			}
			t.Observe(head)
		}
	}
}

// Observe records a head. Heads older than the current one are ignored.
func (t *HeadTracker) Observe(head Head) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if head.Number < t.latest.Number {
		return
	}
	t.latest = head
	t.seenAt = t.now()
	observability.UpdateHeadNumber(head.Number)
}

// Latest returns the tracked block number and whether it is still fresh.
func (t *HeadTracker) Latest() (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.seenAt.IsZero() || t.now().Sub(t.seenAt) > t.maxAge {
		return t.latest.Number, false
	}
	return t.latest.Number, true
}
