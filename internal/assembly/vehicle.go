package assembly

import (
	"assembly-line/internal/types"
	"fmt"
)

// prerequisites 部件的前置依赖图
var prerequisites = [types.NumParts]types.PartMask{
	types.PartFrame:   0,
	types.PartEngine:  types.PartFrame.Flag(),
	types.PartWheels:  types.PartFrame.Flag(),
	types.PartBody:    types.PartEngine.Flag(),
	types.PartDoors:   types.PartBody.Flag(),
	types.PartWindows: types.PartDoors.Flag(),
	types.PartLights:  types.PartBody.Flag(),
}

// Prerequisites 返回安装 p 之前必须已安装的部件
func Prerequisites(p types.Part) types.PartMask {
	if !p.Valid() {
		return 0
	}
	return prerequisites[p]
}

// Vehicle 传送带上正在装配的车辆
type Vehicle struct {
	mask types.PartMask
}

// Mask 返回已安装部件的掩码
func (v *Vehicle) Mask() types.PartMask { return v.mask }

// Reset 清空车辆，用于新车进入或检验结束
func (v *Vehicle) Reset() { v.mask = 0 }

// Install 安装部件，重复安装已存在的部件不会报错
func (v *Vehicle) Install(p types.Part) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrEmptySlot, p)
	}
	req := prerequisites[p]
	if v.mask&req != req {
		return fmt.Errorf("%w: %s needs %v", ErrUnmetPrerequisite, p, req.Names())
	}
	v.mask |= p.Flag()
	return nil
}

// Complete 判断车辆是否已安装全部部件
func (v *Vehicle) Complete() bool { return v.mask == types.AllParts }
