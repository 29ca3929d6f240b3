package types

import (
	"fmt"
	"strings"
)

// Part 定义车辆的可安装部件
type Part int

const (
	PartFrame   Part = iota // 车架，无前置依赖
	PartEngine              // 发动机，依赖车架
	PartWheels              // 车轮，依赖车架
	PartBody                // 车身，依赖发动机
	PartDoors               // 车门，依赖车身
	PartWindows             // 车窗，依赖车门
	PartLights              // 车灯，依赖车身
)

// NumParts 部件种类数量
const NumParts = 7

// MaxPosition 传送带上可配置的最大工位编号 (1-based)
const MaxPosition = NumParts + 2

var partNames = [NumParts]string{"frame", "engine", "wheels", "body", "doors", "windows", "lights"}

func (p Part) String() string {
	if p < 0 || int(p) >= NumParts {
		return fmt.Sprintf("part(%d)", int(p))
	}
	return partNames[p]
}

// Valid 判断部件编号是否合法
func (p Part) Valid() bool { return p >= 0 && int(p) < NumParts }

// Flag 返回部件对应的位
func (p Part) Flag() PartMask { return PartMask(1) << uint(p) }

// ParsePart 将配置中的部件名称解析为 Part
func ParsePart(s string) (Part, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range partNames {
		if n == name {
			return Part(i), nil
		}
	}
	return 0, fmt.Errorf("unknown part %q", s)
}

// Parts 按依赖顺序返回所有部件
func Parts() []Part {
	parts := make([]Part, NumParts)
	for i := range parts {
		parts[i] = Part(i)
	}
	return parts
}

// PartMask 已安装部件的位集合
type PartMask uint32

// AllParts 所有部件均已安装时的掩码
const AllParts PartMask = 1<<NumParts - 1

// Has 判断某个部件是否已安装
func (m PartMask) Has(p Part) bool { return m&p.Flag() != 0 }

// Names 返回已安装部件的名称列表
func (m PartMask) Names() []string {
	names := []string{}
	for _, p := range Parts() {
		if m.Has(p) {
			names = append(names, p.String())
		}
	}
	return names
}

// Side 定义传送带的左右两侧
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Valid 判断侧边是否合法
func (s Side) Valid() bool { return s == SideLeft || s == SideRight }

// ParseSide 将配置中的侧边名称解析为 Side
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return SideLeft, nil
	case "right", "r":
		return SideRight, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// StationSpec 描述一个安装工位：在某个位置的某一侧安装某个部件
type StationSpec struct {
	Part     Part
	Side     Side
	Position int
	Rule     string // 激活规则表达式 (expr 语法)，为空则每个周期都尝试
}

func (s StationSpec) String() string {
	return fmt.Sprintf("%s@%s", s.Part, s.Slot())
}

// Slot 返回工位槽位的简写，如 L3、R4
func (s StationSpec) Slot() string {
	side := "?"
	switch s.Side {
	case SideLeft:
		side = "L"
	case SideRight:
		side = "R"
	}
	return fmt.Sprintf("%s%d", side, s.Position)
}

// Stats 产线统计数据的快照
type Stats struct {
	Completed     uint64 `json:"completed"`      // 检验合格的车辆数
	Failed        uint64 `json:"failed"`         // 检验不合格的车辆数
	CyclesStarted uint64 `json:"cycles_started"` // 产线启动次数
}

// Total 返回已检验的车辆总数
func (s Stats) Total() uint64 { return s.Completed + s.Failed }

// SuccessRate 返回合格率，没有检验过车辆时返回 0
func (s Stats) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total())
}
