package eonet

import (
	"context"
	"log/slog"
	"time"
)

type eventSource interface {
	OpenEvents(ctx context.Context) ([]ParsedEvent, error)
}

// Refresher keeps the feed cache warm while a live session holds it,
// so map and dashboard polls inside the session never pay a cold
// fetch. Close stops the loop and waits for it to exit.
type Refresher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(src eventSource, interval time.Duration) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := src.OpenEvents(ctx); err != nil {
					slog.Debug("feed refresh failed", "error", err)
				}
			}
		}
	}()
	return r
}

func (r *Refresher) Close() {
	r.cancel()
	<-r.done
}
