package handlers

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/event"
	"assembly-line/internal/metrics"
	"assembly-line/internal/persistence"
	"assembly-line/internal/web"
	"errors"
	"log/slog"
)

// Journal 接收审计记录
type Journal interface {
	Append(e persistence.Entry) error
}

// RegisterEventHandlers 将所有事件处理器注册到事件总线
// 产线只发布事件，监控、UI、日志和审计各自订阅，互不影响
func RegisterEventHandlers(bus *event.Bus, st *web.StateTracker, journal Journal, logger *slog.Logger) {
	registerMetrics(bus)
	registerUI(bus, st)
	registerLogging(bus, logger)
	if journal != nil {
		registerJournal(bus, journal, logger)
	}
}

// --- 指标处理器 (Metrics Handler) ---
func registerMetrics(bus *event.Bus) {
	bus.Subscribe(event.CarCompleted, func(e event.Event) {
		metrics.CarsInspectedTotal.WithLabelValues("completed").Inc()
	})
	bus.Subscribe(event.CarFailed, func(e event.Event) {
		metrics.CarsInspectedTotal.WithLabelValues("failed").Inc()
	})
	bus.Subscribe(event.PartInstalled, func(e event.Event) {
		metrics.InstallAttemptsTotal.WithLabelValues(e.Station.Slot(), "installed").Inc()
	})
	bus.Subscribe(event.InstallMissed, func(e event.Event) {
		metrics.InstallAttemptsTotal.WithLabelValues(e.Station.Slot(), MissReason(e.Error)).Inc()
	})
	bus.Subscribe(event.BeltAdvanced, func(e event.Event) {
		metrics.BeltPosition.Set(float64(e.Cursor))
	})
	bus.Subscribe(event.LineStarted, func(e event.Event) {
		metrics.LineRunning.Set(1)
		metrics.LineStartsTotal.Inc()
	})
	bus.Subscribe(event.LineStopped, func(e event.Event) {
		metrics.LineRunning.Set(0)
		metrics.BeltPosition.Set(0)
	})
	bus.Subscribe(event.TokenWithheld, func(e event.Event) {
		metrics.TokenJamsTotal.Inc()
	})
	bus.Subscribe(event.WatchdogTripped, func(e event.Event) {
		metrics.WatchdogTripsTotal.Inc()
	})
}

// --- Web UI 处理器 (Web UI Handler) ---
func registerUI(bus *event.Bus, st *web.StateTracker) {
	bus.Subscribe(event.LineStarted, func(e event.Event) {
		st.Update(func(s *web.LineState) {
			s.Running = true
			s.Jammed = false
			s.EpisodeID = e.EpisodeID
			s.Stats = e.Stats
		})
	})
	bus.Subscribe(event.LineStopped, func(e event.Event) {
		st.Update(func(s *web.LineState) {
			s.Running = false
			s.Cursor = 0
			s.Parts = []string{}
		})
	})
	bus.Subscribe(event.BeltAdvanced, func(e event.Event) {
		st.Update(func(s *web.LineState) {
			s.Cursor = e.Cursor
			s.Parts = e.Mask.Names()
		})
	})
	bus.Subscribe(event.CarArrived, func(e event.Event) {
		st.Update(func(s *web.LineState) { s.Parts = []string{} })
	})
	bus.Subscribe(event.CarCompleted, func(e event.Event) {
		st.Update(func(s *web.LineState) { s.Stats = e.Stats })
	})
	bus.Subscribe(event.CarFailed, func(e event.Event) {
		st.Update(func(s *web.LineState) { s.Stats = e.Stats })
	})
	bus.Subscribe(event.PartInstalled, func(e event.Event) {
		st.RecordInstall(e.Station.Slot(), e.Mask, nil)
	})
	bus.Subscribe(event.InstallMissed, func(e event.Event) {
		st.RecordInstall(e.Station.Slot(), e.Mask, e.Error)
	})
	bus.Subscribe(event.TokenWithheld, func(e event.Event) {
		st.Update(func(s *web.LineState) { s.Jammed = true })
	})
	bus.Subscribe(event.WorkerState, func(e event.Event) {
		st.RecordWorkerState(e.Station.Slot(), e.State)
	})
	bus.Subscribe(event.WatchdogTripped, func(e event.Event) {
		st.Update(func(s *web.LineState) { s.Trips++ })
	})
}

// --- 日志处理器 (Logging Handler) ---
func registerLogging(bus *event.Bus, logger *slog.Logger) {
	bus.Subscribe(event.CarCompleted, func(e event.Event) {
		logger.Info("车辆检验合格", "episode_id", e.EpisodeID, "completed", e.Stats.Completed)
	})
	bus.Subscribe(event.CarFailed, func(e event.Event) {
		logger.Warn("车辆检验不合格", "episode_id", e.EpisodeID, "parts", e.Mask.Names(), "failed", e.Stats.Failed)
	})
	bus.Subscribe(event.CarArrived, func(e event.Event) {
		logger.Debug("新车辆进入产线", "episode_id", e.EpisodeID)
	})
}

// --- 审计处理器 (Journal Handler) ---
func registerJournal(bus *event.Bus, journal Journal, logger *slog.Logger) {
	write := func(entry persistence.Entry) {
		if err := journal.Append(entry); err != nil {
			logger.Error("写入审计日志失败", "error", err, "type", entry.Type)
		}
	}
	bus.Subscribe(event.LineStarted, func(e event.Event) {
		write(persistence.Entry{Type: persistence.EntryStart, EpisodeID: e.EpisodeID})
	})
	bus.Subscribe(event.CarCompleted, func(e event.Event) {
		write(persistence.Entry{Type: persistence.EntryInspection, EpisodeID: e.EpisodeID, Completed: true, Parts: e.Mask.Names(), Cursor: e.Cursor})
	})
	bus.Subscribe(event.CarFailed, func(e event.Event) {
		write(persistence.Entry{Type: persistence.EntryInspection, EpisodeID: e.EpisodeID, Parts: e.Mask.Names(), Cursor: e.Cursor})
	})
	bus.Subscribe(event.WatchdogTripped, func(e event.Event) {
		write(persistence.Entry{Type: persistence.EntryStall, EpisodeID: e.EpisodeID, Parts: e.Mask.Names(), Cursor: e.Cursor})
	})
}

// MissReason 将安装未命中的错误映射为指标标签
func MissReason(err error) string {
	switch {
	case errors.Is(err, assembly.ErrWrongCycleIndex):
		return "wrong_cycle"
	case errors.Is(err, assembly.ErrEmptySlot):
		return "empty_slot"
	case errors.Is(err, assembly.ErrUnmetPrerequisite):
		return "unmet_prerequisite"
	case errors.Is(err, assembly.ErrInvalidPosition):
		return "invalid_position"
	}
	return "other"
}
