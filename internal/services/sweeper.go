package services

import (
	"context"
	"log"
	"time"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/notify"
)

type staleRequestExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time, now time.Time) ([]models.ExpiredRequest, error)
}

// Sweeper periodically force-expires pending requests that have outlived their
// window. The expiry itself is a conditional update in the store, so running
// several sweeper replicas, or racing a human decision by a millisecond, needs
// no coordination: losers of the race simply match zero rows.
type Sweeper struct {
	requests staleRequestExpirer
	events   EventPublisher
	ttl      time.Duration
	interval time.Duration
}

func NewSweeper(
	requests staleRequestExpirer,
	events EventPublisher,
	ttl time.Duration,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		requests: requests,
		events:   events,
		ttl:      ttl,
		interval: interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				log.Printf("sweeper: %v", err)
			}
		}
	}
}

// Sweep performs one pass and returns how many requests it expired.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.requests.ExpireStale(ctx, now.Add(-s.ttl), now)
	if err != nil {
		return 0, err
	}

	for _, record := range expired {
		if s.events == nil {
			continue
		}
		event := notify.NewEvent(notify.EventRequestExpired)
		event.RequestID = record.ID.String()
		s.events.Publish(record.ConsultantID, event)
	}

	return len(expired), nil
}
