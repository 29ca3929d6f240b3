package assembly

import (
	"assembly-line/internal/types"
	"errors"
	"testing"
)

// standardStations 标准的七工位布局
var standardStations = []types.StationSpec{
	{Part: types.PartFrame, Side: types.SideLeft, Position: 1},
	{Part: types.PartEngine, Side: types.SideLeft, Position: 2},
	{Part: types.PartWheels, Side: types.SideRight, Position: 2},
	{Part: types.PartBody, Side: types.SideLeft, Position: 3},
	{Part: types.PartDoors, Side: types.SideRight, Position: 4},
	{Part: types.PartWindows, Side: types.SideRight, Position: 5},
	{Part: types.PartLights, Side: types.SideLeft, Position: 4},
}

func TestRegisterSetsInspectionPosition(t *testing.T) {
	b := NewBelt()
	if b.Inspection() != 1 {
		t.Fatalf("空传送带预期检验位置 1, 得到 %d", b.Inspection())
	}
	for _, s := range standardStations {
		if err := b.Register(s); err != nil {
			t.Fatalf("注册 %s 失败: %v", s, err)
		}
	}
	if b.Inspection() != 6 {
		t.Errorf("预期检验位置 6, 得到 %d", b.Inspection())
	}
	if got := len(b.Stations()); got != len(standardStations) {
		t.Errorf("预期 %d 个工位, 得到 %d", len(standardStations), got)
	}
}

func TestRegisterRejectsBadSlots(t *testing.T) {
	b := NewBelt()
	if err := b.Register(types.StationSpec{Part: types.PartFrame, Side: types.SideLeft, Position: 1}); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		spec types.StationSpec
		want error
	}{
		{"occupied", types.StationSpec{Part: types.PartEngine, Side: types.SideLeft, Position: 1}, ErrSlotOccupied},
		{"zero", types.StationSpec{Part: types.PartEngine, Side: types.SideLeft, Position: 0}, ErrInvalidPosition},
		{"too far", types.StationSpec{Part: types.PartEngine, Side: types.SideLeft, Position: types.MaxPosition + 1}, ErrInvalidPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Register(tt.spec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("预期 %v, 得到 %v", tt.want, err)
			}
			if !IsConfigurationError(err) {
				t.Errorf("%v 应归类为配置错误", err)
			}
		})
	}
	if err := b.Register(types.StationSpec{Part: types.PartEngine, Side: types.SideRight, Position: 1}); err != nil {
		t.Errorf("同一位置的另一侧应可注册: %v", err)
	}
	if err := b.Register(types.StationSpec{Part: types.PartLights, Side: types.SideRight, Position: types.MaxPosition}); err != nil {
		t.Errorf("最大位置应可注册: %v", err)
	}
	if b.Inspection() != types.MaxPosition+1 {
		t.Errorf("预期检验位置 %d, 得到 %d", types.MaxPosition+1, b.Inspection())
	}
}

func TestAdvanceCyclesWithoutSkip(t *testing.T) {
	b := NewBelt()
	for _, s := range standardStations {
		if err := b.Register(s); err != nil {
			t.Fatal(err)
		}
	}
	for lap := 0; lap < 3; lap++ {
		for want := 1; want <= b.Inspection(); want++ {
			if got := b.Advance(); got != want {
				t.Fatalf("第 %d 圈预期位置 %d, 得到 %d", lap, want, got)
			}
		}
		if got := b.Advance(); got != 0 || !b.AtArrival() {
			t.Fatalf("检验之后预期回到 0, 得到 %d", got)
		}
	}
}

func TestReadPart(t *testing.T) {
	b := NewBelt()
	for _, s := range standardStations {
		if err := b.Register(s); err != nil {
			t.Fatal(err)
		}
	}
	b.Advance()
	b.Advance()

	part, err := b.ReadPart(types.SideRight, 2)
	if err != nil || part != types.PartWheels {
		t.Fatalf("预期 wheels, 得到 %s (%v)", part, err)
	}
	if _, err := b.ReadPart(types.SideLeft, 1); !errors.Is(err, ErrWrongCycleIndex) {
		t.Errorf("预期 ErrWrongCycleIndex, 得到 %v", err)
	}

	b.Advance()
	if _, err := b.ReadPart(types.SideRight, 3); !errors.Is(err, ErrEmptySlot) {
		t.Errorf("预期 ErrEmptySlot, 得到 %v", err)
	}
	if !IsOperationalMiss(ErrEmptySlot) || IsOperationalMiss(ErrSlotOccupied) {
		t.Error("错误分类不正确")
	}
}
