package assembly

import (
	"assembly-line/internal/types"
	"fmt"
)

// Belt 传送带：工位表、当前位置和检验位置
type Belt struct {
	slots      [types.MaxPosition][2]*types.StationSpec
	cursor     int
	inspection int
}

// NewBelt 创建一个空的传送带，检验位置初始为 1
func NewBelt() *Belt {
	return &Belt{inspection: 1}
}

// Cursor 当前车辆所在的位置，0 为入口
func (b *Belt) Cursor() int { return b.cursor }

// Inspection 检验位置 = 最大工位编号 + 1
func (b *Belt) Inspection() int { return b.inspection }

// Stations 按位置顺序返回所有已配置的工位
func (b *Belt) Stations() []types.StationSpec {
	specs := []types.StationSpec{}
	for pos := range b.slots {
		for side := range b.slots[pos] {
			if s := b.slots[pos][side]; s != nil {
				specs = append(specs, *s)
			}
		}
	}
	return specs
}

// Register 在指定位置和侧边配置工位
func (b *Belt) Register(spec types.StationSpec) error {
	if spec.Position < 1 || spec.Position > types.MaxPosition {
		return fmt.Errorf("%w: %d not in [1,%d]", ErrInvalidPosition, spec.Position, types.MaxPosition)
	}
	if !spec.Side.Valid() || !spec.Part.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, spec)
	}
	slot := &b.slots[spec.Position-1][spec.Side]
	if *slot != nil {
		return fmt.Errorf("%w: %s taken by %s", ErrSlotOccupied, spec, *slot)
	}
	s := spec
	*slot = &s
	if spec.Position+1 > b.inspection {
		b.inspection = spec.Position + 1
	}
	return nil
}

// Advance 前进一格，到达检验位置之后回到入口
func (b *Belt) Advance() int {
	b.cursor = (b.cursor + 1) % (b.inspection + 1)
	return b.cursor
}

// ReadPart 返回当前周期该工位应安装的部件
func (b *Belt) ReadPart(side types.Side, position int) (types.Part, error) {
	if position != b.cursor {
		return 0, fmt.Errorf("%w: station %d, car at %d", ErrWrongCycleIndex, position, b.cursor)
	}
	if position < 1 || position > types.MaxPosition || !side.Valid() {
		return 0, fmt.Errorf("%w: %s %d", ErrInvalidPosition, side, position)
	}
	s := b.slots[position-1][side]
	if s == nil {
		return 0, fmt.Errorf("%w: %s %d", ErrEmptySlot, side, position)
	}
	return s.Part, nil
}

// AtArrival 当前是否为入口位置
func (b *Belt) AtArrival() bool { return b.cursor == 0 }

// AtInspection 当前是否为检验位置
func (b *Belt) AtInspection() bool { return b.cursor == b.inspection }

func (b *Belt) rewind() { b.cursor = 0 }

func (b *Belt) parkAtInspection() { b.cursor = b.inspection }
