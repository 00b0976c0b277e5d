package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerPool_Process_SubmissionOrder(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 3}, zap.NewNop())

	items := make([]WorkItem[string], 6)
	for i := range items {
		id := fmt.Sprintf("table%d", i)
		delay := time.Duration(len(items)-i) * time.Millisecond
		items[i] = WorkItem[string]{ID: id, Execute: func(ctx context.Context) (string, error) {
			time.Sleep(delay)
			return id, nil
		}}
	}

	results := Process(context.Background(), pool, items, nil)

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r.ID != items[i].ID || r.Result != items[i].ID {
			t.Errorf("result %d: expected %s, got id=%s result=%s", i, items[i].ID, r.ID, r.Result)
		}
	}
}

func TestWorkerPool_Process_WithErrors(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 2}, zap.NewNop())

	expectedErr := errors.New("load failed")
	items := []WorkItem[int]{
		{ID: "a", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "b", Execute: func(ctx context.Context) (int, error) { return 0, expectedErr }},
		{ID: "c", Execute: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	results := Process(context.Background(), pool, items, nil)

	if results[0].Err != nil || results[0].Result != 1 {
		t.Errorf("a should succeed, got %+v", results[0])
	}
	if !errors.Is(results[1].Err, expectedErr) {
		t.Errorf("b should fail with expectedErr, got %v", results[1].Err)
	}
	if results[2].Err != nil || results[2].Result != 3 {
		t.Errorf("c should succeed, got %+v", results[2])
	}
}

func TestWorkerPool_Process_EmptyItems(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{}, zap.NewNop())

	if results := Process[int](context.Background(), pool, nil, nil); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestWorkerPool_DefaultsToOneWorker(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 0}, zap.NewNop())
	if pool.Workers() != 1 {
		t.Errorf("expected 1 worker, got %d", pool.Workers())
	}
}

func TestWorkerPool_Process_SingleWorkerIsSequential(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 1}, zap.NewNop())

	var running, maxRunning int32
	var order []string
	items := make([]WorkItem[struct{}], 4)
	for i := range items {
		id := fmt.Sprintf("t%d", i)
		items[i] = WorkItem[struct{}]{ID: id, Execute: func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			order = append(order, id)
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}}
	}

	Process(context.Background(), pool, items, nil)

	if maxRunning != 1 {
		t.Errorf("expected at most 1 concurrent item, got %d", maxRunning)
	}
	for i, id := range order {
		if id != items[i].ID {
			t.Errorf("position %d: expected %s, got %s", i, items[i].ID, id)
		}
	}
}

func TestWorkerPool_Process_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 2}, zap.NewNop())

	var running, maxRunning int32
	items := make([]WorkItem[struct{}], 8)
	for i := range items {
		items[i] = WorkItem[struct{}]{ID: fmt.Sprint(i), Execute: func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}}
	}

	Process(context.Background(), pool, items, nil)

	if maxRunning > 2 {
		t.Errorf("expected at most 2 concurrent items, got %d", maxRunning)
	}
}

func TestWorkerPool_Process_ContextCancellation(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var executed int32
	items := []WorkItem[string]{
		{ID: "first", Execute: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&executed, 1)
			cancel()
			return "done", nil
		}},
		{ID: "second", Execute: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&executed, 1)
			return "done", nil
		}},
	}

	results := Process(ctx, pool, items, nil)

	if results[0].Err != nil {
		t.Errorf("first item should complete, got %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, context.Canceled) {
		t.Errorf("second item should be cancelled, got %v", results[1].Err)
	}
	if executed != 1 {
		t.Errorf("expected 1 executed item, got %d", executed)
	}
}

func TestWorkerPool_Process_ProgressCallback(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{Workers: 2}, zap.NewNop())

	items := make([]WorkItem[int], 5)
	for i := range items {
		items[i] = WorkItem[int]{ID: fmt.Sprint(i), Execute: func(ctx context.Context) (int, error) { return i, nil }}
	}

	var calls []int
	Process(context.Background(), pool, items, func(completed, total int) {
		if total != 5 {
			t.Errorf("expected total 5, got %d", total)
		}
		calls = append(calls, completed)
	})

	if len(calls) != 5 {
		t.Fatalf("expected 5 progress calls, got %d", len(calls))
	}
	for i, c := range calls {
		if c != i+1 {
			t.Errorf("progress call %d: expected %d, got %d", i, i+1, c)
		}
	}
}
