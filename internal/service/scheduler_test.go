package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := NewScheduler(newTestLogger())

	var runs atomic.Int32
	require.NoError(t, s.Register("tick", "@every 1s", time.Second, func(ctx context.Context) (int, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
		return 1, nil
	}))

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()
}

func TestScheduler_RejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(newTestLogger())
	err := s.Register("bad", "every now and then", time.Second, func(context.Context) (int, error) { return 0, nil })
	assert.Error(t, err)
}
