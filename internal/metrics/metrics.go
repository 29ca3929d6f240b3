package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 定义 Prometheus 监控指标
var (
	// CarsInspectedTotal 计数器：检验过的车辆总数
	// 按结果 (completed/failed) 分类
	CarsInspectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assembly_cars_inspected_total",
		Help: "The total number of cars that reached the inspection position",
	}, []string{"result"})

	// InstallAttemptsTotal 计数器：工位安装尝试次数
	// 按工位和结果 (installed/wrong_cycle/empty_slot/unmet_prerequisite/stopped) 分类
	InstallAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assembly_install_attempts_total",
		Help: "The total number of install attempts per station",
	}, []string{"station", "result"})

	// BeltPosition 仪表盘：传送带当前位置
	BeltPosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assembly_belt_position",
		Help: "The current belt cursor (0 = arrival)",
	})

	// LineRunning 仪表盘：产线是否在运行
	LineRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assembly_line_running",
		Help: "1 while the conductor is running",
	})

	// TokenJamsTotal 计数器：工位卡住未释放令牌的次数
	TokenJamsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assembly_token_jams_total",
		Help: "The number of times a station withheld the line token",
	})

	// WatchdogTripsTotal 计数器：看门狗超时次数
	WatchdogTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assembly_watchdog_trips_total",
		Help: "The number of liveness failures detected by the watchdog",
	})

	// LineStartsTotal 计数器：产线启动 (含重启) 次数
	LineStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assembly_line_starts_total",
		Help: "The number of times the conductor was started",
	})
)
