package assembly

import "errors"

// 配置错误：同步返回给调用方，不会自动重试
var (
	ErrSlotOccupied    = errors.New("station slot already occupied")
	ErrInvalidPosition = errors.New("invalid station position")
	ErrLineRunning     = errors.New("line is running")
)

// 运行时未命中：工位在下一个周期重试即可
var (
	ErrWrongCycleIndex   = errors.New("car is not at this position")
	ErrEmptySlot         = errors.New("no station configured at this slot")
	ErrUnmetPrerequisite = errors.New("part prerequisites not installed")
)

// 控制接口错误
var (
	ErrLineAlreadyRunning = errors.New("line already running")
	ErrLineAlreadyStopped = errors.New("line already stopped")
	ErrLineStopped        = errors.New("line stopped")
	ErrTokenCleared       = errors.New("line token cleared by shutdown")
)

// IsConfigurationError 判断是否为配置类错误
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrSlotOccupied) || errors.Is(err, ErrInvalidPosition) || errors.Is(err, ErrLineRunning)
}

// IsOperationalMiss 判断是否为可预期的安装未命中
func IsOperationalMiss(err error) bool {
	return errors.Is(err, ErrWrongCycleIndex) || errors.Is(err, ErrEmptySlot) || errors.Is(err, ErrUnmetPrerequisite)
}
