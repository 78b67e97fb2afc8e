package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, Timeout: time.Minute, MonitoringPeriod: time.Minute}
	b := NewBreaker(cfg)
	now := time.Now()

	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure(now)
	b.RecordFailure(now)
	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure(now)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow(now))
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond, MonitoringPeriod: time.Minute}
	b := NewBreaker(cfg)
	now := time.Now()
	b.RecordFailure(now)
	assert.Equal(t, StateOpen, b.State())

	later := now.Add(20 * time.Millisecond)
	assert.True(t, b.Allow(later))
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess(later)
	assert.Equal(t, StateHalfOpen, b.State())
	b.RecordSuccess(later)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReturnsToOpen(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond, MonitoringPeriod: time.Minute}
	b := NewBreaker(cfg)
	now := time.Now()
	b.RecordFailure(now)
	later := now.Add(5 * time.Millisecond)
	assert.True(t, b.Allow(later))
	b.RecordFailure(later)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_FailuresAgeOutOfMonitoringWindow(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, Timeout: time.Minute, MonitoringPeriod: 50 * time.Millisecond}
	b := NewBreaker(cfg)
	now := time.Now()
	b.RecordFailure(now)
	b.RecordFailure(now.Add(100 * time.Millisecond))
	assert.Equal(t, StateClosed, b.State())
}
