package engine

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdogFiresOnceWithoutHeartbeat(t *testing.T) {
	var fired atomic.Int32
	w := NewWatchdog(50*time.Millisecond, func() { fired.Add(1) })
	w.Arm()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		w.Pet()
		time.Sleep(10 * time.Millisecond)
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("持续心跳时不应触发, 得到 %d 次", got)
	}

	time.Sleep(300 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("预期触发 1 次, 得到 %d", got)
	}
	if w.Armed() {
		t.Error("触发后看门狗应处于未启动状态")
	}

	// 触发后的心跳不会重新启动倒计时
	w.Pet()
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("未重新 Arm 不应再次触发, 得到 %d", got)
	}

	w.Arm()
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Errorf("重新 Arm 后预期再次触发, 得到 %d", got)
	}
}

func TestWatchdogStop(t *testing.T) {
	var fired atomic.Int32
	w := NewWatchdog(30*time.Millisecond, func() { fired.Add(1) })
	w.Arm()
	w.Stop()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("停止后不应触发, 得到 %d", got)
	}
}

func TestWatchdogStopWaitsForExpiry(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	w := NewWatchdog(10*time.Millisecond, func() {
		close(entered)
		<-release
	})
	w.Arm()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("看门狗未触发")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("回调未返回时 Stop 不应返回")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("回调返回后 Stop 未返回")
	}
}
