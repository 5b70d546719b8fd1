package security

import (
	"testing"
	"time"
)

func TestIsExpired(t *testing.T) {
	if IsExpired(time.Time{}) {
		t.Error("zero time should never be expired")
	}
	if IsExpired(time.Now().Add(time.Hour)) {
		t.Error("future expiry reported as expired")
	}
	if !IsExpired(time.Now().Add(-time.Minute)) {
		t.Error("past expiry not reported as expired")
	}
	// Inside the grace period: not expired yet
	if IsExpired(time.Now().Add(-time.Second)) {
		t.Error("expiry within grace period reported as expired")
	}
	if !IsExpiredWithGracePeriod(time.Now().Add(-time.Second), 0) {
		t.Error("zero grace period should report past expiry as expired")
	}
}
