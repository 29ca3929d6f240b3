package workload

import (
	"context"
	"sync"
	"time"
)

// StepClock 由调用方手动推进的 Clock
// 每次 SleepUntil 会先在 Parked 通道上报到，然后等待 Tick
type StepClock struct {
	mu     sync.Mutex
	now    time.Time
	parked chan struct{}
	ticks  chan struct{}
}

// NewStepClock 创建一个手动推进的时钟
func NewStepClock() *StepClock {
	return &StepClock{
		now:    time.Unix(0, 0),
		parked: make(chan struct{}),
		ticks:  make(chan struct{}),
	}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StepClock) SleepUntil(ctx context.Context, anchor time.Time, offset time.Duration) error {
	select {
	case c.parked <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.ticks:
		c.mu.Lock()
		if t := anchor.Add(offset); t.After(c.now) {
			c.now = t
		}
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Parked 在有 goroutine 进入休眠时收到通知
func (c *StepClock) Parked() <-chan struct{} { return c.parked }

// Tick 唤醒一个正在休眠的 goroutine，ctx 取消时返回 false
func (c *StepClock) Tick(ctx context.Context) bool {
	select {
	case c.ticks <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}
