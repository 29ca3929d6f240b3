package workload

import (
	"context"
	"sync"
	"time"
)

// Workload 描述一段占用 CPU 的模拟人工工作量
type Workload struct {
	Target     time.Duration // 期望的耗时
	Iterations uint64        // 校准后对应的循环次数
}

// Simulator 把目标时长转换为工作量并执行
type Simulator interface {
	Calibrate(target time.Duration) Workload
	Occupy(w Workload)
}

// BusyLoop 通过忙等待循环模拟人工耗时
// 首次使用时校准每毫秒对应的循环次数
type BusyLoop struct {
	once   sync.Once
	perMs  uint64
	sink   uint64
	sinkMu sync.Mutex
}

// NewBusyLoop 创建一个忙等待模拟器
func NewBusyLoop() *BusyLoop {
	return &BusyLoop{}
}

// Calibrate 返回大约耗时 target 的工作量
func (b *BusyLoop) Calibrate(target time.Duration) Workload {
	b.once.Do(func() { b.perMs = b.iterationsFor(time.Millisecond) })
	ms := uint64(target / time.Millisecond)
	return Workload{Target: target, Iterations: b.perMs * ms}
}

// Occupy 执行工作量
func (b *BusyLoop) Occupy(w Workload) {
	b.sinkMu.Lock()
	b.sink ^= spin(w.Iterations)
	b.sinkMu.Unlock()
}

// iterationsFor 先倍增找到上界，再二分查找接近 target 的循环次数
func (b *BusyLoop) iterationsFor(target time.Duration) uint64 {
	lower, upper := uint64(1), uint64(1)
	for measure(upper) < target {
		upper *= 2
	}
	for lower < upper {
		mid := lower + (upper-lower)/2
		if measure(mid) < target {
			lower = mid + 1
		} else {
			upper = mid
		}
	}
	return lower
}

func measure(iters uint64) time.Duration {
	start := time.Now()
	spin(iters)
	return time.Since(start)
}

//go:noinline
func spin(iters uint64) uint64 {
	var r uint64
	for i := uint64(0); i < iters; i++ {
		r ^= i
	}
	return r
}

// Instant 立即完成的模拟器，用于测试
type Instant struct{}

func (Instant) Calibrate(target time.Duration) Workload { return Workload{Target: target} }

func (Instant) Occupy(Workload) {}

// Clock 提供当前时间和基于绝对时间点的休眠
type Clock interface {
	Now() time.Time
	// SleepUntil 休眠到 anchor+offset，ctx 取消时提前返回 ctx.Err()
	SleepUntil(ctx context.Context, anchor time.Time, offset time.Duration) error
}

// RealClock 基于系统时间的 Clock
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) SleepUntil(ctx context.Context, anchor time.Time, offset time.Duration) error {
	wait := time.Until(anchor.Add(offset))
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
