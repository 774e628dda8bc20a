package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestDoRunsOnAWorkerAndReturnsError(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	if err := p.Do(func() error { return nil }); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	want := errors.New("boom")
	if err := p.Do(func() error { return want }); err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestDoRunsConcurrently(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	var n int32
	done := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		go func() {
			p.Do(func() error {
				atomic.AddInt32(&n, 1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if atomic.LoadInt32(&n) != 8 {
		t.Fatalf("expected 8 completed jobs, got %d", n)
	}
}
