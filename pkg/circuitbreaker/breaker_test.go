package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failingCall() error { return errors.New("downstream failure") }

func succeedingCall() error { return nil }

func newTestBreaker(timeout time.Duration) *CircuitBreaker {
	return New("test", Config{
		MaxRequests:      2,
		Timeout:          timeout,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, failingCall); err == nil {
			t.Fatal("expected call error")
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	if err := cb.Execute(ctx, succeedingCall); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, failingCall)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, succeedingCall); err != nil {
			t.Fatalf("probe call failed: %v", err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probes", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, failingCall)
	}

	time.Sleep(15 * time.Millisecond)

	cb.Execute(ctx, failingCall)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after half-open failure", cb.State())
	}
}

func TestBreakerCountsSuccesses(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	cb.Execute(ctx, succeedingCall)
	cb.Execute(ctx, succeedingCall)

	counts := cb.Counts()
	if counts.TotalSuccesses != 2 || counts.ConsecutiveSuccesses != 2 {
		t.Errorf("counts = %+v, want 2 successes", counts)
	}
}
