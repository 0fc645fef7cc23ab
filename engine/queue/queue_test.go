package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSerializedOrder(t *testing.T) {
	q := New(8)
	q.Start()
	defer q.Close()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		if err := q.Enqueue(Func(func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("execution order broken at %d: got %v", i, got)
		}
	}
}

func TestRunSyncReturnsResult(t *testing.T) {
	q := New(8)
	q.Start()
	defer q.Close()

	want := errors.New("op failed")
	if err := q.RunSync(func(ctx context.Context) error { return want }); err != want {
		t.Errorf("RunSync error = %v, want %v", err, want)
	}
	if err := q.RunSync(func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("RunSync error = %v, want nil", err)
	}
}

func TestRunSyncSerializesWithEnqueued(t *testing.T) {
	q := New(8)
	q.Start()
	defer q.Close()

	var first bool
	_ = q.Enqueue(Func(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		first = true
		return nil
	}))
	err := q.RunSync(func(ctx context.Context) error {
		if !first {
			return errors.New("ran before earlier op finished")
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	q := New(1)
	q.Start()
	q.Close()

	if err := q.Enqueue(Func(func(ctx context.Context) error { return nil })); err == nil {
		t.Error("Enqueue after Close must fail")
	}
}

func TestNilQueueRunSyncFallsThrough(t *testing.T) {
	var q *Queue
	ran := false
	if err := q.RunSync(func(ctx context.Context) error { ran = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("nil queue must run the op inline")
	}
}
