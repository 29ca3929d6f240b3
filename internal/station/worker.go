package station

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/event"
	"assembly-line/internal/fsm"
	"assembly-line/internal/types"
	"assembly-line/internal/workload"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/antonmedv/expr/vm"
)

// DefaultOffset 工位相对传送带到达时间的错开量
const DefaultOffset = 50 * time.Millisecond

// DefaultCooldownPeriods 两次尝试之间间隔的传送带周期数
const DefaultCooldownPeriods = types.MaxPosition - 2

// Line 工位可触发安装的产线
type Line interface {
	Trigger(side types.Side, position int) error
}

// Heartbeat 接收工位的存活信号
type Heartbeat interface {
	Pet()
}

// Release 监督者对一个运行周期的放行
type Release struct {
	Ctx       context.Context // 运行周期的 Context，看门狗触发时被取消
	Anchor    time.Time       // 传送带启动的时间点
	EpisodeID string
}

// Ack 工位回到等待放行 (或退出) 时发送的就绪确认
type Ack struct {
	Station string
	Final   bool // 工位已退出
}

// Options 创建工位 worker 的参数
type Options struct {
	BeltPeriod      time.Duration
	Offset          time.Duration
	CooldownPeriods int
	Clock           workload.Clock
	Heartbeat       Heartbeat
	Ready           chan<- Ack
	Publisher       event.Publisher // 接收 worker 状态变化，可为空
	Logger          *slog.Logger
}

// Worker 一个工位的安装循环
type Worker struct {
	spec      types.StationSpec
	line      Line
	rule      *vm.Program
	fsm       *fsm.FSM
	release   chan Release
	ready     chan<- Ack
	clock     workload.Clock
	heartbeat Heartbeat
	period    time.Duration
	offset    time.Duration
	cooldown  time.Duration
	attempts  atomic.Uint64
	logger    *slog.Logger
}

// NewWorker 创建工位 worker，激活规则编译失败时返回错误
func NewWorker(spec types.StationSpec, line Line, opts Options) (*Worker, error) {
	rule, err := compileRule(spec)
	if err != nil {
		return nil, err
	}
	if opts.BeltPeriod <= 0 {
		opts.BeltPeriod = assembly.DefaultBeltPeriod
	}
	if opts.Offset <= 0 {
		opts.Offset = DefaultOffset
	}
	if opts.CooldownPeriods <= 0 {
		opts.CooldownPeriods = DefaultCooldownPeriods
	}
	if opts.Clock == nil {
		opts.Clock = workload.RealClock{}
	}
	if opts.Heartbeat == nil {
		opts.Heartbeat = noHeartbeat{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "station", "station", spec.String())
	machine := fsm.NewFSM(spec.String(), logger)
	if opts.Publisher != nil {
		for _, state := range fsm.States() {
			state := state
			machine.RegisterCallback(state, func(string) {
				opts.Publisher.Publish(event.Event{Type: event.WorkerState, Station: spec, State: string(state)})
			})
		}
	}
	return &Worker{
		spec:      spec,
		line:      line,
		rule:      rule,
		fsm:       machine,
		release:   make(chan Release, 1),
		ready:     opts.Ready,
		clock:     opts.Clock,
		heartbeat: opts.Heartbeat,
		period:    opts.BeltPeriod,
		offset:    opts.Offset,
		cooldown:  opts.BeltPeriod * time.Duration(opts.CooldownPeriods),
		logger:    logger,
	}, nil
}

// Spec 返回工位配置
func (w *Worker) Spec() types.StationSpec { return w.spec }

// State 返回 worker 当前状态
func (w *Worker) State() fsm.State { return w.fsm.Current() }

// Attempts 返回已执行的安装尝试次数
func (w *Worker) Attempts() uint64 { return w.attempts.Load() }

// Release 放行 worker 进入下一个运行周期
func (w *Worker) Release(r Release) {
	w.release <- r
}

// Run 工位主循环，直到 ctx 取消
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case r := <-w.release:
			w.fire(fsm.EventRelease)
			w.cycle(r)
			if ctx.Err() != nil {
				w.shutdown()
				return
			}
			w.fire(fsm.EventTrip)
			w.ack(ctx, false)
		}
	}
}

// cycle 在一个运行周期内按节拍反复尝试安装，周期结束时返回
func (w *Worker) cycle(r Release) {
	logger := w.logger.With("episode_id", r.EpisodeID)
	// 错开到车辆预计到达本工位的时间
	// 第 k 次尝试固定在 anchor + first + k·cooldown，与传送带共用同一个锚点
	next := w.period*time.Duration(w.spec.Position) + w.offset
	if err := w.clock.SleepUntil(r.Ctx, r.Anchor, next); err != nil {
		return
	}
	for cycle := 0; ; cycle++ {
		w.fire(fsm.EventAttempt)
		w.attempt(logger, cycle)
		w.fire(fsm.EventCool)
		next += w.cooldown
		if err := w.clock.SleepUntil(r.Ctx, r.Anchor, next); err != nil {
			return
		}
	}
}

func (w *Worker) attempt(logger *slog.Logger, cycle int) {
	ok, err := evaluateRule(w.rule, w.spec, cycle)
	if err != nil {
		logger.Error("规则引擎评估失败", "error", err, "rule", w.spec.Rule)
		return
	}
	if !ok {
		logger.Debug("跳过本周期", "rule", w.spec.Rule, "cycle", cycle)
		return
	}

	w.attempts.Add(1)
	err = w.line.Trigger(w.spec.Side, w.spec.Position)
	w.heartbeat.Pet()
	switch {
	case err == nil:
		logger.Debug("部件安装完成")
	case assembly.IsOperationalMiss(err):
		logger.Debug("安装未命中", "reason", err)
	case errors.Is(err, assembly.ErrLineStopped):
		logger.Debug("产线已停止")
	default:
		logger.Warn("安装失败", "error", err)
	}
}

func (w *Worker) shutdown() {
	w.fire(fsm.EventShutdown)
	if w.ready == nil {
		return
	}
	select {
	case w.ready <- Ack{Station: w.spec.String(), Final: true}:
	default:
	}
}

func (w *Worker) ack(ctx context.Context, final bool) {
	if w.ready == nil {
		return
	}
	select {
	case w.ready <- Ack{Station: w.spec.String(), Final: final}:
	case <-ctx.Done():
	}
}

func (w *Worker) fire(e fsm.Event) {
	if err := w.fsm.Fire(e); err != nil {
		w.logger.Error("状态转移失败", "error", err)
	}
}

type noHeartbeat struct{}

func (noHeartbeat) Pet() {}
