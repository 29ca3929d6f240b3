package fsm

import (
	"fmt"
	"log/slog"
	"sync"
)

// State 定义工位 worker 的状态
type State string

// Event 定义触发状态转移的事件
type Event string

const (
	StateWaitingForRelease State = "WAITING_FOR_RELEASE"
	StateAwaitingCycle     State = "AWAITING_CYCLE"
	StateAttempting        State = "ATTEMPTING"
	StateCooling           State = "COOLING"
	StateShuttingDown      State = "SHUTTING_DOWN"
)

// States 返回 worker 的所有状态
func States() []State {
	return []State{StateWaitingForRelease, StateAwaitingCycle, StateAttempting, StateCooling, StateShuttingDown}
}

const (
	EventRelease  Event = "RELEASE"  // 监督者放行
	EventAttempt  Event = "ATTEMPT"  // 到达安装时间
	EventCool     Event = "COOL"     // 安装尝试结束
	EventTrip     Event = "TRIP"     // 看门狗触发，回到等待放行
	EventShutdown Event = "SHUTDOWN" // 操作员停机
)

// FSM 有限状态机
type FSM struct {
	mu      sync.Mutex
	current State
	// transitions 定义状态转移表: CurrentState -> Event -> NextState
	transitions map[State]map[Event]State
	// callbacks 定义进入状态后的回调: State -> func()
	callbacks map[State]func(targetID string)
	targetID  string // 关联的目标对象ID（如工位名称）
	logger    *slog.Logger
}

// NewFSM 创建一个处于等待放行状态的 worker 状态机
func NewFSM(targetID string, logger *slog.Logger) *FSM {
	if logger == nil {
		logger = slog.Default()
	}
	fsm := &FSM{
		current:     StateWaitingForRelease,
		targetID:    targetID,
		transitions: make(map[State]map[Event]State),
		callbacks:   make(map[State]func(string)),
		logger:      logger,
	}
	fsm.initTransitions()
	return fsm
}

func (f *FSM) initTransitions() {
	f.addTransition(StateWaitingForRelease, EventRelease, StateAwaitingCycle)
	f.addTransition(StateWaitingForRelease, EventShutdown, StateShuttingDown)

	f.addTransition(StateAwaitingCycle, EventAttempt, StateAttempting)
	f.addTransition(StateAwaitingCycle, EventTrip, StateWaitingForRelease)
	f.addTransition(StateAwaitingCycle, EventShutdown, StateShuttingDown)

	f.addTransition(StateAttempting, EventCool, StateCooling)
	f.addTransition(StateAttempting, EventTrip, StateWaitingForRelease)
	f.addTransition(StateAttempting, EventShutdown, StateShuttingDown)

	f.addTransition(StateCooling, EventAttempt, StateAttempting)
	f.addTransition(StateCooling, EventTrip, StateWaitingForRelease)
	f.addTransition(StateCooling, EventShutdown, StateShuttingDown)
}

func (f *FSM) addTransition(from State, event Event, to State) {
	if _, ok := f.transitions[from]; !ok {
		f.transitions[from] = make(map[Event]State)
	}
	f.transitions[from][event] = to
}

// RegisterCallback 注册状态进入时的回调
func (f *FSM) RegisterCallback(state State, callback func(targetID string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks[state] = callback
}

// Current 返回当前状态
func (f *FSM) Current() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Fire 触发事件
func (f *FSM) Fire(event Event) error {
	f.mu.Lock()

	// 查找合法的转移
	nextState, ok := f.transitions[f.current][event]
	if !ok {
		current := f.current
		f.mu.Unlock()
		return fmt.Errorf("invalid transition: cannot fire event %s from state %s", event, current)
	}

	prevState := f.current
	f.current = nextState
	cb := f.callbacks[nextState]
	f.mu.Unlock()

	f.logger.Debug("状态转移", "target", f.targetID, "from", prevState, "to", nextState, "event", event)

	// 回调在锁外执行，回调中可以再次调用 Fire
	if cb != nil {
		cb(f.targetID)
	}
	return nil
}
