package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// retryPolicy is exponential backoff with jitter, capped at maxDelay.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// outcome is the result of one attempt. wait overrides the computed backoff
// when the server asked for a specific delay.
type outcome struct {
	err   error
	retry bool
	wait  time.Duration
}

func (p retryPolicy) run(ctx context.Context, attempt func() outcome) error {
	attempts := p.attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.baseDelay
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var last error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}
		res := attempt()
		if res.err == nil {
			return nil
		}
		last = res.err
		if !res.retry || i == attempts {
			break
		}
		sleep := res.wait
		if sleep <= 0 {
			sleep = withJitter(backoff)
			if p.maxDelay > 0 && sleep > p.maxDelay {
				sleep = p.maxDelay
			}
			backoff *= 2
		}
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return last
		case <-t.C:
		}
	}
	return last
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// isRetryableNetErr reports dropped connections. Timeouts count only when
// retryTimeouts is set: a local model that timed out once will time out again.
func isRetryableNetErr(err error, retryTimeouts bool) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return retryTimeouts
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}

// retryAfter reads a Retry-After header given either in seconds or as an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Truncate(time.Second)
		}
	}
	return 0
}

// withJitter spreads d by +/-20%.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 200 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if out <= 0 {
		return d
	}
	return out
}
