package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		handler Handler
		cfg     Config
	}{
		{"no handler", nil, Config{Interval: time.Second}},
		{"no interval", func(ctx context.Context) error { return nil }, Config{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScheduler(tc.handler, tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewScheduler_DefaultsTimeout(t *testing.T) {
	s, err := NewScheduler(func(ctx context.Context) error { return nil }, Config{Interval: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.cfg.Timeout)
}

func TestScheduler_RunOnStart_ExecutesImmediately(t *testing.T) {
	var calls int32
	s, err := NewScheduler(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, Config{Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_RetriesFailingRunUpToRetryCount(t *testing.T) {
	var calls int32
	s, err := NewScheduler(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always fails")
	}, Config{Interval: time.Hour, RunOnStart: true, RetryCount: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_SurvivesHandlerPanic(t *testing.T) {
	var calls int32
	s, err := NewScheduler(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		panic("handler exploded")
	}, Config{Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s, err := NewScheduler(func(ctx context.Context) error { return nil }, Config{Interval: time.Hour})
	require.NoError(t, err)

	s.Start()
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	var calls int32
	s, err := NewScheduler(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, Config{Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	s.Start()
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}
