package retry

import (
	"testing"
	"time"
)

func TestNextRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
		ok      bool
	}{
		{attempt: 0, want: 0, ok: true},
		{attempt: 1, want: time.Second, ok: true},
		{attempt: 2, want: 5 * time.Second, ok: true},
		{attempt: 3, want: 30 * time.Second, ok: true},
		{attempt: 4, ok: false},
		{attempt: 10, ok: false},
		{attempt: -1, ok: false},
	}

	for _, tt := range tests {
		got, ok := NextRetryDelay(tt.attempt)
		if ok != tt.ok {
			t.Fatalf("NextRetryDelay(%d) ok = %v, want %v", tt.attempt, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("NextRetryDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestNextRetryAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	at := NextRetryAt(1, now)
	if at == nil {
		t.Fatal("NextRetryAt(1) = nil, want a time")
	}
	if want := now.Add(time.Second); !at.Equal(want) {
		t.Fatalf("NextRetryAt(1) = %s, want %s", at, want)
	}

	if at := NextRetryAt(4, now); at != nil {
		t.Fatalf("NextRetryAt(4) = %s, want nil", at)
	}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	if !ShouldRetry(1, 4) {
		t.Fatal("ShouldRetry(1, 4) = false, want true")
	}
	if !ShouldRetry(3, 4) {
		t.Fatal("ShouldRetry(3, 4) = false, want true")
	}
	if ShouldRetry(4, 4) {
		t.Fatal("ShouldRetry(4, 4) = true, want false")
	}
	if ShouldRetry(5, 4) {
		t.Fatal("ShouldRetry(5, 4) = true, want false")
	}
}
