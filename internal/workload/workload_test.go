package workload

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBusyLoopCalibrateScales(t *testing.T) {
	b := NewBusyLoop()
	one := b.Calibrate(time.Millisecond)
	ten := b.Calibrate(10 * time.Millisecond)
	if one.Iterations == 0 {
		t.Fatal("预期校准后每毫秒循环次数大于 0")
	}
	if ten.Iterations != one.Iterations*10 {
		t.Errorf("预期 10ms 工作量为 1ms 的 10 倍, 得到 %d vs %d", ten.Iterations, one.Iterations)
	}
	b.Occupy(one)
}

func TestInstantDoesNotBlock(t *testing.T) {
	var sim Simulator = Instant{}
	start := time.Now()
	sim.Occupy(sim.Calibrate(time.Hour))
	if time.Since(start) > time.Second {
		t.Fatal("Instant 不应占用时间")
	}
}

func TestRealClockSleepUntilHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealClock{}.SleepUntil(ctx, time.Now(), time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("预期 context.Canceled, 得到 %v", err)
	}
}

func TestRealClockSleepUntilPastAnchor(t *testing.T) {
	start := time.Now()
	if err := (RealClock{}).SleepUntil(context.Background(), start.Add(-time.Second), 10*time.Millisecond); err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("锚点已过期时不应休眠")
	}
}

func TestStepClockParksUntilTick(t *testing.T) {
	clock := NewStepClock()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	anchor := clock.Now()
	go func() { done <- clock.SleepUntil(ctx, anchor, time.Second) }()

	select {
	case <-clock.Parked():
	case <-ctx.Done():
		t.Fatal("未收到休眠通知")
	}
	select {
	case <-done:
		t.Fatal("Tick 之前不应返回")
	default:
	}
	if !clock.Tick(ctx) {
		t.Fatal("Tick 失败")
	}
	if err := <-done; err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if got := clock.Now(); !got.Equal(anchor.Add(time.Second)) {
		t.Errorf("预期时钟推进到 %v, 得到 %v", anchor.Add(time.Second), got)
	}
}
