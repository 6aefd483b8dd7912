package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"mentor_chat/pkg/logger"
)

// Config is a capped exponential backoff. MaxRetries of zero means a single attempt.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

func NoRetry() Config {
	return Config{MaxRetries: 0}
}

// Result reports how an operation finished.
type Result struct {
	Attempts int
	Duration time.Duration
	Err      error
}

// Do runs op until it succeeds, retries are exhausted or ctx is done.
// The op receives the attempt number starting at 1.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) error, log logger.Logger) Result {
	start := time.Now()
	var result Result

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := op(ctx, attempt+1)
		if err == nil {
			result.Err = nil
			result.Duration = time.Since(start)
			return result
		}
		result.Err = err

		if attempt >= cfg.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			result.Err = ctx.Err()
			break
		}

		delay := cfg.delay(attempt)
		if log != nil {
			log.Warn("Operation failed, retrying", "attempt", attempt+1, "max_attempts", cfg.MaxRetries+1, "delay", delay, "error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Err = ctx.Err()
			result.Duration = time.Since(start)
			return result
		case <-timer.C:
		}
	}

	result.Duration = time.Since(start)
	return result
}

func (cfg Config) delay(attempt int) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	delay := float64(cfg.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		// +/-10%
		delay += (rand.Float64() - 0.5) * 0.2 * delay
	}
	if delay < 0 {
		delay = float64(cfg.BaseDelay)
	}

	return time.Duration(delay)
}
