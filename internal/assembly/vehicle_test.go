package assembly

import (
	"assembly-line/internal/types"
	"errors"
	"testing"
)

func TestInstallRespectsPrerequisites(t *testing.T) {
	for _, part := range types.Parts() {
		req := Prerequisites(part)

		var missing Vehicle
		err := missing.Install(part)
		if req == 0 {
			if err != nil {
				t.Errorf("%s 无前置依赖，预期成功, 得到 %v", part, err)
			}
		} else if !errors.Is(err, ErrUnmetPrerequisite) {
			t.Errorf("%s 缺少前置依赖，预期 ErrUnmetPrerequisite, 得到 %v", part, err)
		}

		ready := Vehicle{mask: req}
		if err := ready.Install(part); err != nil {
			t.Errorf("%s 前置依赖已满足，预期成功, 得到 %v", part, err)
		}
		if !ready.Mask().Has(part) {
			t.Errorf("%s 安装后未置位", part)
		}
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	var v Vehicle
	if err := v.Install(types.PartFrame); err != nil {
		t.Fatal(err)
	}
	once := v.Mask()
	if err := v.Install(types.PartFrame); err != nil {
		t.Fatalf("重复安装不应报错: %v", err)
	}
	if v.Mask() != once {
		t.Errorf("重复安装后掩码变化: %b -> %b", once, v.Mask())
	}
}

func TestCompleteOnlyWithAllParts(t *testing.T) {
	var v Vehicle
	order := []types.Part{
		types.PartFrame, types.PartEngine, types.PartWheels, types.PartBody,
		types.PartDoors, types.PartWindows, types.PartLights,
	}
	for i, p := range order {
		if v.Complete() {
			t.Fatalf("只安装了 %d 个部件，不应判定为完成", i)
		}
		if err := v.Install(p); err != nil {
			t.Fatalf("安装 %s 失败: %v", p, err)
		}
	}
	if !v.Complete() {
		t.Fatal("所有部件已安装，预期完成")
	}

	for _, p := range order {
		partial := Vehicle{mask: types.AllParts &^ p.Flag()}
		if partial.Complete() {
			t.Errorf("缺少 %s 时不应判定为完成", p)
		}
	}

	v.Reset()
	if v.Mask() != 0 {
		t.Errorf("Reset 后预期空掩码, 得到 %b", v.Mask())
	}
}
