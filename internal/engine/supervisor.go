package engine

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/event"
	"assembly-line/internal/station"
	"assembly-line/internal/types"
	"assembly-line/internal/util"
	"assembly-line/internal/workload"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWatchdogFactor 看门狗超时相对传送带周期的倍数
const DefaultWatchdogFactor = 4

// Options 监督者的参数
type Options struct {
	WatchdogTimeout time.Duration // 为 0 时取 4 倍传送带周期
	WorkerOffset    time.Duration
	CooldownPeriods int
	Clock           workload.Clock
	Publisher       event.Publisher
	Logger          *slog.Logger
}

// Supervisor 负责产线的启动、看门狗监控和停滞后的重启
type Supervisor struct {
	line      *assembly.Line
	workers   []*station.Worker
	watchdog  *Watchdog
	ready     chan station.Ack
	stalls    chan struct{}
	stalled   atomic.Bool
	trips     atomic.Uint64
	clock     workload.Clock
	publisher event.Publisher
	logger    *slog.Logger

	mu            sync.Mutex
	cancelEpisode context.CancelFunc
	episodeID     string
}

// NewSupervisor 在产线上注册所有工位并为每个工位创建 worker
func NewSupervisor(line *assembly.Line, specs []types.StationSpec, opts Options) (*Supervisor, error) {
	if opts.Clock == nil {
		opts.Clock = workload.RealClock{}
	}
	if opts.Publisher == nil {
		opts.Publisher = event.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = DefaultWatchdogFactor * line.BeltPeriod()
	}

	s := &Supervisor{
		line:      line,
		ready:     make(chan station.Ack, 2*len(specs)+1),
		stalls:    make(chan struct{}, 1),
		clock:     opts.Clock,
		publisher: opts.Publisher,
		logger:    opts.Logger.With("component", "supervisor"),
	}
	s.watchdog = NewWatchdog(opts.WatchdogTimeout, s.onWatchdogExpired)

	for _, spec := range specs {
		if err := line.Register(spec.Part, spec.Side, spec.Position); err != nil {
			return nil, fmt.Errorf("注册工位 %s 失败: %w", spec, err)
		}
		w, err := station.NewWorker(spec, line, station.Options{
			BeltPeriod:      line.BeltPeriod(),
			Offset:          opts.WorkerOffset,
			CooldownPeriods: opts.CooldownPeriods,
			Clock:           opts.Clock,
			Heartbeat:       s.watchdog,
			Ready:           s.ready,
			Publisher:       opts.Publisher,
			Logger:          opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		s.workers = append(s.workers, w)
	}
	return s, nil
}

// Workers 返回所有工位 worker
func (s *Supervisor) Workers() []*station.Worker { return s.workers }

// Stalled 产线是否处于停滞恢复中
func (s *Supervisor) Stalled() bool { return s.stalled.Load() }

// Trips 看门狗触发次数
func (s *Supervisor) Trips() uint64 { return s.trips.Load() }

// EpisodeID 当前运行周期 ID
func (s *Supervisor) EpisodeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episodeID
}

// Run 启动所有 worker 和传送带，阻塞直到 ctx 取消
// 停机时等待传送带和所有 worker 退出后返回
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w *station.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	var runErr error
	for episodes := 0; ; episodes++ {
		if s.stalled.Load() {
			if !s.awaitQuiescence(ctx) {
				break
			}
			s.stalled.Store(false)
		}

		id := util.NewEpisodeID()
		episodeCtx, cancel := context.WithCancel(util.ContextWithEpisodeID(ctx, id))
		s.mu.Lock()
		s.cancelEpisode = cancel
		s.episodeID = id
		s.mu.Unlock()

		s.watchdog.Arm()
		anchor := s.clock.Now()
		if err := s.line.StartAt(episodeCtx, anchor); err != nil {
			cancel()
			runErr = fmt.Errorf("启动产线失败: %w", err)
			break
		}
		if episodes > 0 {
			s.logger.Info("产线重启", "episode_id", id, "restarts", episodes)
			s.publisher.Publish(event.Event{Type: event.LineRestarted, EpisodeID: id, Stats: s.line.Stats()})
		}
		for _, w := range s.workers {
			w.Release(station.Release{Ctx: episodeCtx, Anchor: anchor, EpisodeID: id})
		}

		select {
		case <-ctx.Done():
			cancel()
		case <-s.stalls:
			cancel()
			continue
		}
		break
	}

	s.watchdog.Stop()
	if err := s.line.Shutdown(); err != nil && !errors.Is(err, assembly.ErrLineAlreadyStopped) {
		s.logger.Error("停机失败", "error", err)
	}
	s.line.Wait()
	wg.Wait()

	stats := s.line.Stats()
	s.logger.Info("产线最终统计", "total", stats.Total(), "completed", stats.Completed, "failed", stats.Failed, "starts", stats.CyclesStarted, "watchdog_trips", s.Trips())
	s.publisher.Publish(event.Event{Type: event.StatsReported, Stats: stats})
	return runErr
}

// awaitQuiescence 等待每个 worker 的就绪确认，ctx 取消时返回 false
func (s *Supervisor) awaitQuiescence(ctx context.Context) bool {
	for n := 0; n < len(s.workers); n++ {
		select {
		case ack := <-s.ready:
			s.logger.Debug("工位就绪", "station", ack.Station)
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// onWatchdogExpired 在定时器回调中执行：停机、释放所有 worker、通知主循环
func (s *Supervisor) onWatchdogExpired() {
	s.stalled.Store(true)
	s.trips.Add(1)

	s.mu.Lock()
	cancel := s.cancelEpisode
	id := s.episodeID
	s.mu.Unlock()

	snap := s.line.Snapshot()
	s.logger.Warn("看门狗超时，产线停滞", "episode_id", id, "cursor", snap.Cursor, "token", snap.Token, "parts", snap.Mask.Names())
	s.publisher.Publish(event.Event{Type: event.WatchdogTripped, EpisodeID: id, Cursor: snap.Cursor, Mask: snap.Mask, Stats: snap.Stats})

	if err := s.line.Shutdown(); err != nil && !errors.Is(err, assembly.ErrLineAlreadyStopped) {
		s.logger.Error("停机失败", "error", err)
	}
	if cancel != nil {
		cancel()
	}
	select {
	case s.stalls <- struct{}{}:
	default:
	}
}
