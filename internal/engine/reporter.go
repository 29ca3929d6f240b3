package engine

import (
	"assembly-line/internal/event"
	"assembly-line/internal/types"
	"context"
	"log/slog"
)

// StatsSource 提供统计快照
type StatsSource interface {
	Stats() types.Stats
}

// Reporter 按需输出产线统计
// 信号处理函数和 HTTP 接口只投递请求，统计在 Run 的协程中完成
type Reporter struct {
	source    StatsSource
	requests  chan struct{}
	publisher event.Publisher
	logger    *slog.Logger
}

// NewReporter 创建一个统计报告器
func NewReporter(source StatsSource, publisher event.Publisher, logger *slog.Logger) *Reporter {
	if publisher == nil {
		publisher = event.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		source:    source,
		requests:  make(chan struct{}, 1),
		publisher: publisher,
		logger:    logger.With("component", "reporter"),
	}
}

// Request 投递一次报告请求，已有未处理的请求时合并
func (r *Reporter) Request() {
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

// Run 等待报告请求直到 ctx 取消
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.requests:
			r.Report()
		}
	}
}

// Report 立即输出一次统计
func (r *Reporter) Report() types.Stats {
	stats := r.source.Stats()
	r.logger.Info("产线统计",
		"total", stats.Total(),
		"completed", stats.Completed,
		"failed", stats.Failed,
		"success_rate", stats.SuccessRate(),
		"starts", stats.CyclesStarted,
	)
	r.publisher.Publish(event.Event{Type: event.StatsReported, Stats: stats})
	return stats
}
