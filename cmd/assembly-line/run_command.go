package main

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/config"
	"assembly-line/internal/engine"
	"assembly-line/internal/event"
	"assembly-line/internal/handlers"
	"assembly-line/internal/persistence"
	"assembly-line/internal/web"
	"assembly-line/internal/workload"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "启动装配线，直到收到 SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(root.logLevel)
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return runLine(ctx, cfg, logger)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "运行指定时长后停机 (0 表示一直运行)")
	return cmd
}

// runLine 组装所有组件并运行，直到 ctx 取消
func runLine(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 1. 初始化核心组件
	hub := web.NewHub()
	go hub.Run(ctx)
	stateTracker := web.NewStateTracker(hub)
	eventBus := event.NewBus()

	var journal handlers.Journal
	if cfg.JournalPath != "" {
		j, err := persistence.OpenJournal(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
	}
	// 日志关闭前等待所有异步事件处理完成
	defer eventBus.Drain()

	// 后台协程在 Drain 之前退出，之后不再有新的事件发布
	runCtx, cancelRun := context.WithCancel(ctx)
	var background sync.WaitGroup
	defer background.Wait()
	defer cancelRun()

	// 2. 注册事件处理器
	handlers.RegisterEventHandlers(eventBus, stateTracker, journal, logger)

	// 3. 初始化产线和监督者
	specs, err := cfg.StationSpecs()
	if err != nil {
		return err
	}
	line := assembly.NewLine(assembly.Options{
		BeltPeriod: cfg.BeltPeriod(),
		MinDelay:   cfg.MinDelay(),
		MaxDelay:   cfg.MaxDelay(),
		Simulator:  workload.NewBusyLoop(),
		Jammer:     assembly.RandomJammer{Probability: cfg.JamProbability},
		Publisher:  eventBus,
		Logger:     logger,
	})
	supervisor, err := engine.NewSupervisor(line, specs, engine.Options{
		WatchdogTimeout: cfg.WatchdogTimeout(),
		WorkerOffset:    cfg.WorkerOffset(),
		CooldownPeriods: cfg.CooldownPeriods,
		Publisher:       eventBus,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	reporter := engine.NewReporter(line, eventBus, logger)
	background.Add(2)
	go func() {
		defer background.Done()
		reporter.Run(runCtx)
	}()
	go func() {
		defer background.Done()
		watchReportSignal(runCtx, reporter)
	}()

	// 4. 启动 API 服务
	if cfg.ListenAddr != "" {
		server := &http.Server{Addr: cfg.ListenAddr, Handler: web.NewMux(line, stateTracker, hub, reporter, logger)}
		go func() {
			logger.Info("API 服务器启动", "addr", cfg.ListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("API 服务器启动失败", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("=== 汽车装配线启动 ===", "stations", len(specs), "belt_period", cfg.BeltPeriod())

	// 5. 运行直到停机
	if err := supervisor.Run(ctx); err != nil {
		return err
	}
	logger.Info("装配线已安全停机")
	return nil
}

// watchReportSignal 将 SIGUSR1 转换为报告请求
func watchReportSignal(ctx context.Context, reporter *engine.Reporter) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	defer signal.Stop(sigChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			reporter.Request()
		}
	}
}
