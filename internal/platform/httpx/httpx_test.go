package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr struct {
	code int
}

func (e statusErr) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{599, true},
		{600, false},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatalf("nil error should not be retryable")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if !IsRetryableError(fmt.Errorf("call failed: %w", statusErr{code: 503})) {
		t.Fatalf("wrapped 503 should be retryable")
	}
	if IsRetryableError(fmt.Errorf("call failed: %w", statusErr{code: 400})) {
		t.Fatalf("wrapped 400 should not be retryable")
	}
	if IsRetryableError(errors.New("validation failed")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 3*time.Second {
		t.Fatalf("got %v, want 3s", got)
	}
	if got := RetryAfterDuration(resp, time.Second, 2*time.Second); got != 2*time.Second {
		t.Fatalf("cap not applied: got %v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 10*time.Second); got != time.Second {
		t.Fatalf("fallback not used: got %v", got)
	}
	resp.Header.Set("Retry-After", "garbage")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != time.Second {
		t.Fatalf("unparseable header should fall back: got %v", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := JitterSleep(base)
		if d < 790*time.Millisecond || d > 1210*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", d)
		}
	}
	if d := JitterSleep(0); d != 0 {
		t.Fatalf("zero base should yield zero, got %v", d)
	}
}
