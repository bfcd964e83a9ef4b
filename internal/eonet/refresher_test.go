package eonet

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	calls atomic.Int64
}

func (c *countingSource) OpenEvents(ctx context.Context) ([]ParsedEvent, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestRefresherPollsUntilClosed(t *testing.T) {
	src := &countingSource{}
	r := NewRefresher(src, 5*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for src.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("refresher never polled the source")
		case <-time.After(5 * time.Millisecond):
		}
	}

	r.Close()
	after := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if src.calls.Load() != after {
		t.Error("refresher kept polling after Close")
	}
}

func TestRefresherCloseBeforeFirstTick(t *testing.T) {
	src := &countingSource{}
	r := NewRefresher(src, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
