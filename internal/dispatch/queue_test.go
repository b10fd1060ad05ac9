package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsSubmittedJobs(t *testing.T) {
	q := NewQueue("test", 2, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	var count atomic.Int32
	finished := make(chan struct{}, 3)
	for range 3 {
		if !q.Submit(func(context.Context) {
			count.Add(1)
			finished <- struct{}{}
		}) {
			t.Fatal("Submit() = false")
		}
	}
	for range 3 {
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count.Load() != 3 {
		t.Fatalf("count = %d", count.Load())
	}
}

func TestQueueSubmitRejectsWhenFull(t *testing.T) {
	q := NewQueue("test", 1, 1, nil)
	if !q.Submit(func(context.Context) {}) {
		t.Fatal("first Submit() = false")
	}
	if q.Submit(func(context.Context) {}) {
		t.Fatal("expected second Submit() to be rejected")
	}
}

func TestQueueSurvivesPanickingJob(t *testing.T) {
	q := NewQueue("test", 1, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	ran := make(chan struct{})
	q.Submit(func(context.Context) { panic("boom") })
	q.Submit(func(context.Context) { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}
