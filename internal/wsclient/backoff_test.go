package wsclient

import (
	"testing"
	"time"
)

func TestBackoffFormula(t *testing.T) {
	initial := time.Second
	max := 30 * time.Second

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
		{63, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(tc.attempt, initial, max); got != tc.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoffDefaultsAndNegativeAttempt(t *testing.T) {
	if got := Backoff(0, 0, 0); got != time.Second {
		t.Fatalf("expected default initial delay, got %v", got)
	}
	if got := Backoff(-3, time.Second, 30*time.Second); got != time.Second {
		t.Fatalf("negative attempt must behave like zero, got %v", got)
	}
	if got := Backoff(100, time.Second, 0); got != 30*time.Second {
		t.Fatalf("expected default cap, got %v", got)
	}
}

func TestBackoffNoOverflowOnHugeAttempt(t *testing.T) {
	if got := Backoff(1 << 20, time.Second, 30*time.Second); got != 30*time.Second {
		t.Fatalf("huge attempt must stay capped, got %v", got)
	}
}
