package config

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/types"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StationConfig 配置文件中的单个工位定义
type StationConfig struct {
	Part     string `mapstructure:"part"`     // 部件名称，如 frame
	Side     string `mapstructure:"side"`     // left 或 right
	Position int    `mapstructure:"position"` // 传送带位置 (1-based)
	Rule     string `mapstructure:"rule"`     // 可选的激活规则表达式
}

// Config 定义应用程序的配置结构
// 使用 mapstructure 标签来映射配置文件中的字段
type Config struct {
	BeltPeriodMs      int             `mapstructure:"belt_period_ms"`      // 传送带前进一格的周期
	MinDelayMs        int             `mapstructure:"min_delay_ms"`        // 安装耗时下限
	MaxDelayMs        int             `mapstructure:"max_delay_ms"`        // 安装耗时上限
	JamProbability    float64         `mapstructure:"jam_probability"`     // 每次安装后卡死令牌的概率
	WatchdogTimeoutMs int             `mapstructure:"watchdog_timeout_ms"` // 0 表示使用 4 倍周期
	WorkerOffsetMs    int             `mapstructure:"worker_offset_ms"`    // 工人相对周期锚点的偏移
	CooldownPeriods   int             `mapstructure:"cooldown_periods"`    // 成功安装后的冷却周期数
	ListenAddr        string          `mapstructure:"listen_addr"`         // HTTP 监听地址，为空则不启动
	JournalPath       string          `mapstructure:"journal_path"`        // 审计日志路径，为空则不记录
	Stations          []StationConfig `mapstructure:"stations"`            // 工位列表，为空则使用默认布局
}

// DefaultStations 默认的工位布局，每个部件一个工位
var DefaultStations = []StationConfig{
	{Part: "frame", Side: "left", Position: 1},
	{Part: "engine", Side: "left", Position: 2},
	{Part: "wheels", Side: "right", Position: 2},
	{Part: "body", Side: "left", Position: 3},
	{Part: "doors", Side: "right", Position: 4},
	{Part: "windows", Side: "right", Position: 5},
	{Part: "lights", Side: "left", Position: 4},
}

func setDefaults(v *viper.Viper) {
	// 默认值只在配置层设置，产线把 0 耗时理解为不耗时
	v.SetDefault("belt_period_ms", assembly.DefaultBeltPeriod.Milliseconds())
	v.SetDefault("min_delay_ms", assembly.DefaultMinDelay.Milliseconds())
	v.SetDefault("max_delay_ms", assembly.DefaultMaxDelay.Milliseconds())
	v.SetDefault("jam_probability", assembly.DefaultJamChance)
	v.SetDefault("watchdog_timeout_ms", 0)
	v.SetDefault("worker_offset_ms", 50)
	v.SetDefault("cooldown_periods", types.MaxPosition-2)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("journal_path", "")
}

// LoadConfig 加载配置
// path 为空时在当前目录查找 config.yaml，找不到则使用默认值
// 环境变量 ASSEMBLY_<KEY> 覆盖文件中的值
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("assembly")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // 配置文件名称 (不带扩展名)
		v.SetConfigType("yaml")   // 配置文件类型
		v.AddConfigPath(".")      // 查找配置文件的路径 (当前目录)
	}

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 将配置解析到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if len(cfg.Stations) == 0 {
		cfg.Stations = append([]StationConfig(nil), DefaultStations...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置是否合法
func (c *Config) Validate() error {
	switch {
	case c.BeltPeriodMs <= 0:
		return fmt.Errorf("belt_period_ms 必须为正数, 得到 %d", c.BeltPeriodMs)
	case c.MinDelayMs < 0 || c.MaxDelayMs < c.MinDelayMs:
		return fmt.Errorf("安装耗时范围不合法: [%d, %d]", c.MinDelayMs, c.MaxDelayMs)
	case c.MaxDelayMs >= c.BeltPeriodMs:
		return fmt.Errorf("max_delay_ms (%d) 必须小于 belt_period_ms (%d)", c.MaxDelayMs, c.BeltPeriodMs)
	case c.JamProbability < 0 || c.JamProbability > 1:
		return fmt.Errorf("jam_probability 必须在 [0, 1] 之间, 得到 %v", c.JamProbability)
	case c.WatchdogTimeoutMs < 0:
		return fmt.Errorf("watchdog_timeout_ms 不能为负数")
	case c.WorkerOffsetMs < 0 || c.WorkerOffsetMs >= c.BeltPeriodMs:
		return fmt.Errorf("worker_offset_ms 必须在 [0, belt_period_ms) 之间, 得到 %d", c.WorkerOffsetMs)
	case c.CooldownPeriods < 0:
		return fmt.Errorf("cooldown_periods 不能为负数")
	}
	_, err := c.StationSpecs()
	return err
}

// StationSpecs 将配置中的工位转换为 StationSpec
func (c *Config) StationSpecs() ([]types.StationSpec, error) {
	stations := c.Stations
	if len(stations) == 0 {
		stations = DefaultStations
	}
	specs := make([]types.StationSpec, 0, len(stations))
	for i, s := range stations {
		part, err := types.ParsePart(s.Part)
		if err != nil {
			return nil, fmt.Errorf("工位 %d: %w", i, err)
		}
		side, err := types.ParseSide(s.Side)
		if err != nil {
			return nil, fmt.Errorf("工位 %d: %w", i, err)
		}
		specs = append(specs, types.StationSpec{Part: part, Side: side, Position: s.Position, Rule: s.Rule})
	}
	return specs, nil
}

// BeltPeriod 传送带周期
func (c *Config) BeltPeriod() time.Duration { return ms(c.BeltPeriodMs) }

// MinDelay 安装耗时下限
func (c *Config) MinDelay() time.Duration { return ms(c.MinDelayMs) }

// MaxDelay 安装耗时上限
func (c *Config) MaxDelay() time.Duration { return ms(c.MaxDelayMs) }

// WatchdogTimeout 看门狗超时，0 表示由监督者按周期推算
func (c *Config) WatchdogTimeout() time.Duration { return ms(c.WatchdogTimeoutMs) }

// WorkerOffset 工人相对周期锚点的偏移
func (c *Config) WorkerOffset() time.Duration { return ms(c.WorkerOffsetMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
