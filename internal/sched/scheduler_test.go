package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleReplacesPending(t *testing.T) {
	s := New()
	var first, second atomic.Int32
	s.Schedule("g1", 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("g1", 20*time.Millisecond, func() { second.Add(1) })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestCancel(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.Schedule("g1", 20*time.Millisecond, func() { fired.Add(1) })
	s.Cancel("g1")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	// Cancel of an unknown id is a no-op.
	s.Cancel("missing")
}

func TestCancelAll(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.Schedule("g1", 20*time.Millisecond, func() { fired.Add(1) })
	s.Schedule("g2", 20*time.Millisecond, func() { fired.Add(1) })
	s.CancelAll()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestIndependentIDs(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.Schedule("g1", 10*time.Millisecond, func() { fired.Add(1) })
	s.Schedule("g2", 10*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
}
