package booking

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically completes expired bookings and tears down their
// access sessions.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Start runs the sweep loop in a background goroutine until the returned
// stop channel is closed or ctx is done.
func (s *Sweeper) Start(ctx context.Context) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				completed, err := s.service.SweepExpired(ctx)
				if err != nil {
					log.Printf("sweeper run_failed error=%q", err)
					continue
				}
				if completed > 0 {
					log.Printf("sweeper completed=%d", completed)
				}
			case <-stopCh:
				log.Println("sweeper stopped")
				return
			case <-ctx.Done():
				log.Println("sweeper stopped (context done)")
				return
			}
		}
	}()

	log.Printf("sweeper started interval=%s", s.interval)
	return stopCh
}
