package workerpool

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close(time.Second) })
	return p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPoolRunsEveryTask(t *testing.T) {
	for _, ordered := range []bool{false, true} {
		t.Run("ordered="+strconv.FormatBool(ordered), func(t *testing.T) {
			p := newTestPool(t, Config{Workers: 4, Ordered: ordered})

			const n = 1000
			var done atomic.Int64
			var wg sync.WaitGroup
			wg.Add(n)
			for i := 0; i < n; i++ {
				if err := p.SubmitKeyed(strconv.Itoa(i%7), func() {
					done.Add(1)
					wg.Done()
				}); err != nil {
					t.Fatalf("SubmitKeyed() error = %v", err)
				}
			}
			wg.Wait()

			if got := done.Load(); got != n {
				t.Errorf("ran %d tasks, want %d", got, n)
			}
		})
	}
}

func TestPoolFixedWorkers(t *testing.T) {
	p := newTestPool(t, Config{Workers: 3})
	if p.Size() != 3 {
		t.Errorf("Size() = %d, want 3", p.Size())
	}
	waitFor(t, func() bool { return p.Running() == 3 })
}

func TestPoolDefaultSize(t *testing.T) {
	p := newTestPool(t, Config{})
	if p.Size() < 1 {
		t.Errorf("Size() = %d, want >= 1", p.Size())
	}
}

func TestPoolInvalidSize(t *testing.T) {
	if _, err := New(Config{Workers: -1}, nil); err == nil {
		t.Error("New() with negative workers should fail")
	}
}

func TestPoolOrderedKeepsKeyOrder(t *testing.T) {
	p := newTestPool(t, Config{Workers: 8, Ordered: true})

	const n = 2000
	var mu sync.Mutex
	seen := make(map[string][]int)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		key := "conn-" + strconv.Itoa(i%5)
		seq := i
		if err := p.SubmitKeyed(key, func() {
			mu.Lock()
			seen[key] = append(seen[key], seq)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("SubmitKeyed() error = %v", err)
		}
	}
	wg.Wait()

	for key, seqs := range seen {
		for i := 1; i < len(seqs); i++ {
			if seqs[i] < seqs[i-1] {
				t.Fatalf("%s ran %d after %d", key, seqs[i], seqs[i-1])
			}
		}
	}
}

func TestPoolCloseDropsBacklog(t *testing.T) {
	p, err := New(Config{Workers: 1}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	if err := p.Submit(func() {
		close(started)
		<-release
		finished.Store(true)
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	var ran atomic.Int64
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() { ran.Add(1) }); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if got := p.Pending(); got != 10 {
		t.Fatalf("Pending() = %d, want 10", got)
	}

	closed := make(chan error, 1)
	go func() { closed <- p.Close(2 * time.Second) }()

	waitFor(t, func() bool { return p.Pending() == 0 })
	close(release)

	if err := <-closed; err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !finished.Load() {
		t.Error("in-flight unit should run to completion")
	}
	if got := ran.Load(); got != 0 {
		t.Errorf("%d queued units ran after Close, want 0", got)
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p, err := New(Config{Workers: 2}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Close(time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit() error = %v, want ErrPoolClosed", err)
	}
	if err := p.SubmitKeyed("k", func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("SubmitKeyed() error = %v, want ErrPoolClosed", err)
	}
	if err := p.Close(time.Second); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := newTestPool(t, Config{Workers: 1})

	if err := p.Submit(func() { panic("boom") }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	done := make(chan struct{})
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking unit")
	}
}
