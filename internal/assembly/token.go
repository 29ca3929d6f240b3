package assembly

import "sync"

// TokenState 产线令牌的状态
type TokenState int

const (
	TokenFree   TokenState = iota // 空闲，可被获取
	TokenHeld                     // 被传送带或某个工位持有
	TokenJammed                   // 工位卡住未释放，只有停机才能清除
)

func (s TokenState) String() string {
	switch s {
	case TokenFree:
		return "free"
	case TokenHeld:
		return "held"
	case TokenJammed:
		return "jammed"
	}
	return "unknown"
}

// Lease 一次成功获取令牌的凭证，记录获取时的清除代数
type Lease struct {
	epoch uint64
}

// Token 代表传送带运动资源的排他令牌
// 它比状态锁粒度更粗，必须先于状态锁获取
type Token struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state TokenState
	epoch uint64 // 每次 Clear 加一
}

// NewToken 创建一个空闲的令牌
func NewToken() *Token {
	t := &Token{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Acquire 阻塞直到令牌空闲
// 等待期间令牌被 Clear 时返回 ErrTokenCleared，且不占有令牌
func (t *Token) Acquire() (Lease, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.epoch
	for t.state != TokenFree && t.epoch == start {
		t.cond.Wait()
	}
	if t.epoch != start {
		return Lease{}, ErrTokenCleared
	}
	t.state = TokenHeld
	return Lease{epoch: t.epoch}, nil
}

// Release 释放令牌，过期的凭证被忽略
func (t *Token) Release(l Lease) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l.epoch != t.epoch || t.state != TokenHeld {
		return
	}
	t.state = TokenFree
	t.cond.Broadcast()
}

// Withhold 不释放令牌，模拟卡死，之后所有 Acquire 都会阻塞直到 Clear
func (t *Token) Withhold(l Lease) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l.epoch != t.epoch || t.state != TokenHeld {
		return false
	}
	t.state = TokenJammed
	return true
}

// Clear 强制清除令牌，唤醒所有等待者，每个等待者恰好返回一次 ErrTokenCleared
func (t *Token) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	t.state = TokenFree
	t.cond.Broadcast()
}

// State 返回令牌当前状态
func (t *Token) State() TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
