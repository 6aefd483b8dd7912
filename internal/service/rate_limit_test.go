package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mentor_chat/pkg/logger"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRateLimitAllow(t *testing.T) {
	svc := NewRateLimitService(&fakeCounter{counts: map[string]int64{}}, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := svc.Allow(ctx, "send:u1", 2, time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := svc.Allow(ctx, "send:u1", 2, time.Minute)
	assert.False(t, ok)

	ok, _ = svc.Allow(ctx, "send:u2", 2, time.Minute)
	assert.True(t, ok)
}

func TestRateLimitFailsOpen(t *testing.T) {
	svc := NewRateLimitService(&fakeCounter{err: errors.New("redis down")}, logger.Nop())
	ok, err := svc.Allow(context.Background(), "send:u1", 1, time.Minute)
	assert.Error(t, err)
	assert.True(t, ok)
}
