package engine

import (
	"sync"
	"time"
)

// Watchdog 存活检测定时器
// 每次 Pet 重置倒计时，超时未收到心跳时调用 onExpire，每次 Arm 最多触发一次
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	armed    bool
	gen      uint64 // 每次 Arm/Pet 加一，过期的定时回调被忽略
	onExpire func()
	inflight sync.WaitGroup // 正在执行的 onExpire
}

// NewWatchdog 创建一个未启动的看门狗
func NewWatchdog(timeout time.Duration, onExpire func()) *Watchdog {
	return &Watchdog{timeout: timeout, onExpire: onExpire}
}

// Timeout 返回超时时间
func (w *Watchdog) Timeout() time.Duration { return w.timeout }

// Arm 启动 (或重新启动) 倒计时
func (w *Watchdog) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
	w.resetLocked()
}

// Pet 收到心跳，重置倒计时；未启动时忽略
func (w *Watchdog) Pet() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return
	}
	w.resetLocked()
}

// Stop 停止看门狗并等待正在执行的 onExpire 返回，之后的心跳不会重新启动它
// 不能在 onExpire 内部调用
func (w *Watchdog) Stop() {
	w.mu.Lock()
	w.armed = false
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.inflight.Wait()
}

// Armed 看门狗是否在倒计时
func (w *Watchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

func (w *Watchdog) resetLocked() {
	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if !w.armed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.armed = false
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if w.onExpire != nil {
		w.onExpire()
	}
}
