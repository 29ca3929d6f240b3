package assembly

import (
	"assembly-line/internal/event"
	"assembly-line/internal/types"
	"assembly-line/internal/util"
	"assembly-line/internal/workload"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// 默认时序参数
const (
	DefaultBeltPeriod = 1000 * time.Millisecond
	DefaultMinDelay   = 50 * time.Millisecond
	DefaultMaxDelay   = 300 * time.Millisecond
	DefaultJamChance  = 0.01
)

// Jammer 决定一次安装之后工位是否卡住 (不释放令牌)
type Jammer interface {
	Jam(spec types.StationSpec) bool
}

// JammerFunc 函数形式的 Jammer
type JammerFunc func(spec types.StationSpec) bool

func (f JammerFunc) Jam(spec types.StationSpec) bool { return f(spec) }

// RandomJammer 以固定概率卡住
type RandomJammer struct {
	Probability float64
}

func (j RandomJammer) Jam(types.StationSpec) bool {
	return j.Probability > 0 && rand.Float64() < j.Probability
}

// Options 创建产线的参数，零值字段使用默认值
// MinDelay 和 MaxDelay 均为 0 表示安装不耗时
type Options struct {
	BeltPeriod time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Simulator  workload.Simulator
	Clock      workload.Clock
	Jammer     Jammer
	Publisher  event.Publisher
	Logger     *slog.Logger
}

// State 产线的只读快照，用于展示
type State struct {
	Running    bool           `json:"running"`
	EpisodeID  string         `json:"episode_id,omitempty"`
	Cursor     int            `json:"cursor"`
	Inspection int            `json:"inspection"`
	Mask       types.PartMask `json:"mask"`
	Token      string         `json:"token"`
	Stats      types.Stats    `json:"stats"`
}

// Line 产线聚合根：车辆、传送带、统计和令牌
// 所有对车辆/传送带/统计的访问都在 mu 之下进行
type Line struct {
	mu      sync.Mutex // 状态锁
	token   *Token     // 传送带运动令牌，先于 mu 获取
	vehicle Vehicle
	belt    *Belt
	stats   stats
	running atomic.Bool
	episode string

	startMu   sync.Mutex
	cancelRun context.CancelFunc
	wg        sync.WaitGroup // 传送带协程

	period    time.Duration
	minDelay  time.Duration
	maxDelay  time.Duration
	sim       workload.Simulator
	clock     workload.Clock
	jammer    Jammer
	publisher event.Publisher
	logger    *slog.Logger
}

// NewLine 创建一条停止状态的产线
func NewLine(opts Options) *Line {
	l := &Line{
		token:     NewToken(),
		belt:      NewBelt(),
		period:    opts.BeltPeriod,
		minDelay:  opts.MinDelay,
		maxDelay:  opts.MaxDelay,
		sim:       opts.Simulator,
		clock:     opts.Clock,
		jammer:    opts.Jammer,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
	if l.period <= 0 {
		l.period = DefaultBeltPeriod
	}
	if l.minDelay < 0 {
		l.minDelay = 0
	}
	if l.maxDelay < l.minDelay {
		l.maxDelay = l.minDelay
	}
	if l.sim == nil {
		l.sim = workload.NewBusyLoop()
	}
	if l.clock == nil {
		l.clock = workload.RealClock{}
	}
	if l.jammer == nil {
		l.jammer = RandomJammer{Probability: DefaultJamChance}
	}
	if l.publisher == nil {
		l.publisher = event.Discard{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "line")
	return l
}

// BeltPeriod 传送带前进一格的周期
func (l *Line) BeltPeriod() time.Duration { return l.period }

// Register 配置一个工位，只允许在产线停止时进行
func (l *Line) Register(part types.Part, side types.Side, position int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return ErrLineRunning
	}
	return l.belt.Register(types.StationSpec{Part: part, Side: side, Position: position})
}

// Running 产线是否在运行
func (l *Line) Running() bool { return l.running.Load() }

// Stats 在状态锁下返回统计快照
func (l *Line) Stats() types.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.snapshot()
}

// Snapshot 在状态锁下返回产线快照
func (l *Line) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Running:    l.running.Load(),
		EpisodeID:  l.episode,
		Cursor:     l.belt.Cursor(),
		Inspection: l.belt.Inspection(),
		Mask:       l.vehicle.Mask(),
		Token:      l.token.State().String(),
		Stats:      l.stats.snapshot(),
	}
}

// Stations 返回已配置的工位
func (l *Line) Stations() []types.StationSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.belt.Stations()
}

// Start 以当前时间为锚点启动传送带协程并立即返回
func (l *Line) Start(ctx context.Context) error {
	return l.StartAt(ctx, l.clock.Now())
}

// StartAt 启动传送带协程并立即返回
// 传送带先停在检验位置，第一次前进即为新车进入 (位置 0)
// 第 k 次前进发生在 anchor + k·period，与唤醒延迟无关
func (l *Line) StartAt(ctx context.Context, anchor time.Time) error {
	l.startMu.Lock()
	defer l.startMu.Unlock()
	if l.running.Load() {
		return ErrLineAlreadyRunning
	}
	// 等待上一轮的传送带协程完全退出
	l.wg.Wait()

	runCtx, cancel := context.WithCancel(ctx)
	episode, _ := util.EpisodeIDFromContext(ctx)

	l.mu.Lock()
	l.vehicle.Reset()
	l.belt.parkAtInspection()
	l.stats.recordStart()
	l.cancelRun = cancel
	l.episode = episode
	l.running.Store(true)
	snapshot := l.stats.snapshot()
	inspection := l.belt.Inspection()
	l.mu.Unlock()

	l.logger.Info("产线启动", "episode_id", episode, "inspection", inspection, "period", l.period)
	l.publisher.Publish(event.Event{Type: event.LineStarted, EpisodeID: episode, Cursor: inspection, Stats: snapshot})

	l.wg.Add(1)
	go l.conduct(runCtx, episode, anchor)
	return nil
}

// Wait 等待传送带协程退出
func (l *Line) Wait() {
	l.wg.Wait()
}

// Run 启动产线并阻塞直到停机
func (l *Line) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	l.Wait()
	return nil
}

// conduct 传送带主循环，每个周期在令牌和状态锁下前进一格
func (l *Line) conduct(ctx context.Context, episode string, anchor time.Time) {
	defer l.wg.Done()
	logger := l.logger.With("episode_id", episode)

	for next := anchor; ; next = next.Add(l.period) {
		if !l.advance(episode) {
			logger.Debug("传送带退出")
			return
		}
		if err := l.clock.SleepUntil(ctx, next, l.period); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error("传送带时钟失败，停机", "error", err)
			}
			if err := l.Shutdown(); err != nil && !errors.Is(err, ErrLineAlreadyStopped) {
				logger.Error("停机失败", "error", err)
			}
			return
		}
	}
}

// advance 获取令牌，前进一格并处理入口/检验，返回 false 表示产线已停止
func (l *Line) advance(episode string) bool {
	lease, err := l.token.Acquire()
	if err != nil {
		return false
	}
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		l.token.Release(lease)
		return false
	}

	cursor := l.belt.Advance()
	events := []event.Event{{Type: event.BeltAdvanced, EpisodeID: episode, Cursor: cursor, Mask: l.vehicle.Mask()}}
	switch {
	case l.belt.AtArrival():
		l.vehicle.Reset()
		events = append(events, event.Event{Type: event.CarArrived, EpisodeID: episode, Cursor: cursor})
	case l.belt.AtInspection():
		complete := l.vehicle.Complete()
		mask := l.vehicle.Mask()
		l.stats.recordInspection(complete)
		l.vehicle.Reset()
		e := event.Event{Type: event.CarFailed, EpisodeID: episode, Cursor: cursor, Mask: mask, Stats: l.stats.snapshot()}
		if complete {
			e.Type = event.CarCompleted
		}
		events = append(events, e)
	}
	l.mu.Unlock()
	l.token.Release(lease)

	for _, e := range events {
		l.publisher.Publish(e)
	}
	return true
}

// Trigger 让指定工位尝试安装一次
// 令牌 → 状态锁 → 读取部件 → 模拟人工 → 安装 → 解锁 → 按概率释放令牌
func (l *Line) Trigger(side types.Side, position int) error {
	if !l.running.Load() {
		return ErrLineStopped
	}
	lease, err := l.token.Acquire()
	if err != nil {
		return ErrLineStopped
	}
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		l.token.Release(lease)
		return ErrLineStopped
	}

	spec := types.StationSpec{Side: side, Position: position}
	part, err := l.belt.ReadPart(side, position)
	if err == nil {
		spec.Part = part
		if d := l.laborDelay(); d > 0 {
			l.sim.Occupy(l.sim.Calibrate(d))
		}
		err = l.vehicle.Install(part)
	}
	e := event.Event{Type: event.PartInstalled, EpisodeID: l.episode, Cursor: l.belt.Cursor(), Station: spec, Mask: l.vehicle.Mask(), Error: err}
	if err != nil {
		e.Type = event.InstallMissed
	}
	l.mu.Unlock()
	l.publisher.Publish(e)

	if l.running.Load() && l.jammer.Jam(spec) && l.token.Withhold(lease) {
		l.logger.Warn("工位卡住，令牌未释放", "episode_id", e.EpisodeID, "side", side.String(), "position", position)
		l.publisher.Publish(event.Event{Type: event.TokenWithheld, EpisodeID: e.EpisodeID, Cursor: e.Cursor, Station: spec})
		return err
	}
	l.token.Release(lease)
	return err
}

// Shutdown 停止产线：丢弃当前车辆，传送带回到 0，清除 (可能卡住的) 令牌
func (l *Line) Shutdown() error {
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		return ErrLineAlreadyStopped
	}
	l.running.Store(false)
	l.vehicle.Reset()
	l.belt.rewind()
	l.token.Clear()
	cancel := l.cancelRun
	l.cancelRun = nil
	stopped := event.Event{
		Type:      event.LineStopped,
		EpisodeID: l.episode,
		Cursor:    l.belt.Cursor(),
		Mask:      l.vehicle.Mask(),
		Stats:     l.stats.snapshot(),
	}
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.logger.Info("产线已停机", "episode_id", stopped.EpisodeID)
	l.publisher.Publish(stopped)
	return nil
}

func (l *Line) laborDelay() time.Duration {
	if l.maxDelay <= 0 {
		return 0
	}
	span := int64((l.maxDelay - l.minDelay) / time.Millisecond)
	return l.minDelay + time.Duration(rand.Int63n(span+1))*time.Millisecond
}
