package limiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ========== 基本获取/归还 ==========

func TestAcquireUnlimited(t *testing.T) {
	p := NewPool(nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := p.Acquire(ctx, "free"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := p.InFlight("free"); got != 10 {
		t.Fatalf("in flight = %d, want 10", got)
	}
}

func TestAcquireBlocksAtLimit(t *testing.T) {
	p := NewPool(map[string]int{"embedding-api": 1})
	ctx := context.Background()

	if err := p.Acquire(ctx, "embedding-api"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := p.Acquire(ctx, "embedding-api"); err != nil {
			t.Errorf("second acquire: %v", err)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while limit is held")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release("embedding-api")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire not woken after release")
	}
}

// ========== FIFO 顺序 ==========

func TestWaitersWakeInOrder(t *testing.T) {
	p := NewPool(map[string]int{"k": 1})
	ctx := context.Background()

	if err := p.Acquire(ctx, "k"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	ready := make(chan struct{}, 3)

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ready <- struct{}{}
			if err := p.Acquire(ctx, "k"); err != nil {
				t.Errorf("waiter %d: %v", n, err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			p.Release("k")
		}(i)
		<-ready
		// 等待 goroutine 进入排队，保证入队顺序与编号一致
		for {
			time.Sleep(5 * time.Millisecond)
			p.mu.Lock()
			queued := len(p.entries["k"].waiters)
			p.mu.Unlock()
			if queued == i {
				break
			}
		}
	}

	p.Release("k")
	wg.Wait()

	for i, n := range order {
		if n != i+1 {
			t.Fatalf("wake order = %v, want [1 2 3]", order)
		}
	}
}

// ========== 取消与限额调整 ==========

func TestAcquireContextCancelled(t *testing.T) {
	p := NewPool(map[string]int{"k": 1})

	if err := p.Acquire(context.Background(), "k"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Acquire(ctx, "k")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled acquire did not return")
	}

	// 取消后的等待者必须出队，否则会吞掉后续名额
	p.Release("k")
	if err := p.Acquire(context.Background(), "k"); err != nil {
		t.Fatalf("acquire after cancel: %v", err)
	}
}

func TestSetLimitWakesWaiters(t *testing.T) {
	p := NewPool(map[string]int{"k": 1})
	ctx := context.Background()

	if err := p.Acquire(ctx, "k"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := p.Acquire(ctx, "k"); err != nil {
			t.Errorf("acquire: %v", err)
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	p.SetLimit("k", 2)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken after limit raised")
	}
}

func TestDoReleasesOnError(t *testing.T) {
	p := NewPool(map[string]int{"k": 1})
	wantErr := errors.New("boom")

	err := p.Do(context.Background(), "k", func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if got := p.InFlight("k"); got != 0 {
		t.Fatalf("in flight after Do = %d, want 0", got)
	}
}
