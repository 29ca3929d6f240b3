package config

import (
	"assembly-line/internal/types"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 当前目录没有 config.yaml 时使用默认值
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.BeltPeriod() != time.Second {
		t.Errorf("预期周期 1s, 得到 %v", cfg.BeltPeriod())
	}
	if cfg.CooldownPeriods != types.MaxPosition-2 {
		t.Errorf("预期冷却周期 %d, 得到 %d", types.MaxPosition-2, cfg.CooldownPeriods)
	}
	specs, err := cfg.StationSpecs()
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != types.NumParts {
		t.Fatalf("预期 %d 个默认工位, 得到 %d", types.NumParts, len(specs))
	}
	if specs[0] != (types.StationSpec{Part: types.PartFrame, Side: types.SideLeft, Position: 1}) {
		t.Errorf("第一个工位不正确: %v", specs[0])
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.yaml")
	content := `
belt_period_ms: 200
max_delay_ms: 100
jam_probability: 0
stations:
  - part: frame
    side: left
    position: 1
  - part: engine
    side: r
    position: 2
    rule: "cycle % 2 == 0"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASSEMBLY_WORKER_OFFSET_MS", "20")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.BeltPeriod() != 200*time.Millisecond || cfg.MaxDelay() != 100*time.Millisecond {
		t.Errorf("文件配置未生效: %+v", cfg)
	}
	if cfg.WorkerOffset() != 20*time.Millisecond {
		t.Errorf("环境变量未生效, 偏移为 %v", cfg.WorkerOffset())
	}
	specs, err := cfg.StationSpecs()
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 || specs[1].Side != types.SideRight || specs[1].Rule == "" {
		t.Errorf("工位解析不正确: %v", specs)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("显式指定的配置文件不存在时应返回错误")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{BeltPeriodMs: 1000, MinDelayMs: 50, MaxDelayMs: 300, JamProbability: 0.01, WorkerOffsetMs: 50}
	}

	cases := map[string]func(c *Config){
		"zero period":    func(c *Config) { c.BeltPeriodMs = 0 },
		"inverted delay": func(c *Config) { c.MinDelayMs = 400 },
		"delay too long": func(c *Config) { c.MaxDelayMs = 1000 },
		"bad jam":        func(c *Config) { c.JamProbability = 1.5 },
		"bad offset":     func(c *Config) { c.WorkerOffsetMs = 1000 },
		"unknown part":   func(c *Config) { c.Stations = []StationConfig{{Part: "roof", Side: "left", Position: 1}} },
		"unknown side":   func(c *Config) { c.Stations = []StationConfig{{Part: "frame", Side: "up", Position: 1}} },
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("合法配置校验失败: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("预期校验失败")
			}
		})
	}
}

func TestLoadConfigKeepsZeroDelay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fast.yaml")
	content := `
belt_period_ms: 40
min_delay_ms: 0
max_delay_ms: 0
worker_offset_ms: 20
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	// 显式的 0 不能被默认耗时替换
	if cfg.MinDelay() != 0 || cfg.MaxDelay() != 0 {
		t.Errorf("预期安装耗时为 0, 得到 [%v, %v]", cfg.MinDelay(), cfg.MaxDelay())
	}

	// 默认耗时上限不小于短周期时应拒绝
	cfg.MaxDelayMs = 300
	if err := cfg.Validate(); err == nil {
		t.Error("max_delay_ms 超过周期时应校验失败")
	}
}
