package station

import (
	"assembly-line/internal/types"
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// ruleEnv 构造激活规则的求值环境
func ruleEnv(spec types.StationSpec, cycle int) map[string]interface{} {
	return map[string]interface{}{
		"cycle":    cycle,
		"position": spec.Position,
		"side":     spec.Side.String(),
		"part":     spec.Part.String(),
	}
}

// compileRule 编译工位激活规则，空规则返回 nil
func compileRule(spec types.StationSpec) (*vm.Program, error) {
	if spec.Rule == "" {
		return nil, nil
	}
	program, err := expr.Compile(spec.Rule, expr.Env(ruleEnv(spec, 0)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("rule compilation failed for %s: %w", spec, err)
	}
	return program, nil
}

// evaluateRule 判断本周期是否需要尝试安装
func evaluateRule(program *vm.Program, spec types.StationSpec, cycle int) (bool, error) {
	if program == nil {
		return true, nil
	}
	result, err := expr.Run(program, ruleEnv(spec, cycle))
	if err != nil {
		return false, fmt.Errorf("rule execution failed: %w", err)
	}
	shouldExecute, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("rule result is not a boolean")
	}
	return shouldExecute, nil
}
