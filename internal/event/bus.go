package event

import (
	"assembly-line/internal/types"
	"sync"
)

// EventType 定义事件的类型
type EventType string

// 定义所有产线事件类型
const (
	LineStarted     EventType = "LineStarted"     // 传送带开始运转
	LineStopped     EventType = "LineStopped"     // 产线停机
	BeltAdvanced    EventType = "BeltAdvanced"    // 传送带前进一格
	CarArrived      EventType = "CarArrived"      // 新车辆进入产线
	CarCompleted    EventType = "CarCompleted"    // 车辆检验合格
	CarFailed       EventType = "CarFailed"       // 车辆检验不合格
	PartInstalled   EventType = "PartInstalled"   // 部件安装成功
	InstallMissed   EventType = "InstallMissed"   // 安装未命中 (周期/空位/依赖)
	TokenWithheld   EventType = "TokenWithheld"   // 工位卡住，未释放令牌
	WatchdogTripped EventType = "WatchdogTripped" // 看门狗超时
	LineRestarted   EventType = "LineRestarted"   // 看门狗恢复后产线重启
	StatsReported   EventType = "StatsReported"   // 按需统计报告
	WorkerState     EventType = "WorkerState"     // 工位 worker 进入新状态
)

// Event 结构体定义了事件的数据负载
type Event struct {
	Type      EventType         // 事件类型
	EpisodeID string            // 运行周期 ID，每次 (重新) 启动生成一个
	Cursor    int               // 事件发生时的传送带位置
	Station   types.StationSpec // 关联的工位 (仅安装相关事件)
	Mask      types.PartMask    // 事件发生时车辆的已装部件
	Stats     types.Stats       // 事件发生时的统计快照
	Error     error             // 错误信息 (仅未命中/失败事件)
	State     string            // worker 进入的状态 (仅 WorkerState)
}

// Handler 是事件处理函数的签名
type Handler func(e Event)

// Publisher 发布事件的最小接口
type Publisher interface {
	Publish(e Event)
}

// Bus 是一个简单的内存事件总线
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler // 存储事件类型到多个处理函数的映射
	wg       sync.WaitGroup
}

// NewBus 创建一个新的事件总线实例
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe 订阅一个特定类型的事件
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish 发布一个事件，所有订阅了该事件类型的处理器都将被异步调用
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[e.Type] {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			h(e)
		}(handler)
	}
}

// Drain 等待所有已发布事件的处理器执行完毕
func (b *Bus) Drain() {
	b.wg.Wait()
}

// Discard 丢弃所有事件的发布器
type Discard struct{}

func (Discard) Publish(Event) {}
