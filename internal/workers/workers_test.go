package workers

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"media-converter/internal/apperror"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"I/O-bound task (2.0x multiplier)", 2.0, 0, 1, availableCPU * 2},
		{"With limit lower than calculated", 2.0, 1, 1, 1},
		{"Very low multiplier", 0.01, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected within [%d, %d]",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	if got := ForCPU(0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("ForCPU(0) = %d, want %d", got, runtime.GOMAXPROCS(0))
	}
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
}

func TestToolThreads(t *testing.T) {
	original := runtime.GOMAXPROCS(4)
	defer runtime.GOMAXPROCS(original)

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"unset uses every CPU", 0, 4},
		{"negative uses every CPU", -2, 4},
		{"below available", 2, 2},
		{"equal to available", 4, 4},
		{"capped by available", 32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToolThreads(tt.requested); got != tt.want {
				t.Errorf("ToolThreads(%d) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}

func TestJobSlots(t *testing.T) {
	if got := JobSlots(3); got != 3 {
		t.Errorf("JobSlots(3) = %d, want 3", got)
	}
	if got := JobSlots(0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("JobSlots(0) = %d, want %d", got, runtime.GOMAXPROCS(0))
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(1)
	if l.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", l.Size())
	}

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Acquire = %v, want deadline exceeded", err)
	}

	release()
	release, err = l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	release()
}

func TestNilLimiterAdmitsEverything(t *testing.T) {
	var l *Limiter
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire on nil limiter: %v", err)
	}
	release()
	if l.Size() != 0 {
		t.Errorf("Size() = %d, want 0", l.Size())
	}
}

func TestAdmitReportsToolTimeout(t *testing.T) {
	l := NewLimiter(1)
	release, err := l.Admit(context.Background())
	if err != nil {
		t.Fatalf("first Admit failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Admit(ctx)
	if got := apperror.ReasonOf(err); got != apperror.ToolTimeout {
		t.Errorf("ReasonOf(Admit) = %q, want %q", got, apperror.ToolTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Admit error %v does not wrap the context error", err)
	}
}
