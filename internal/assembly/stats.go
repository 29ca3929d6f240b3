package assembly

import "assembly-line/internal/types"

// stats 产线计数器，只在持有状态锁时修改
type stats struct {
	completed     uint64
	failed        uint64
	cyclesStarted uint64
}

func (s *stats) recordInspection(complete bool) {
	if complete {
		s.completed++
	} else {
		s.failed++
	}
}

func (s *stats) recordStart() { s.cyclesStarted++ }

func (s *stats) snapshot() types.Stats {
	return types.Stats{
		Completed:     s.completed,
		Failed:        s.failed,
		CyclesStarted: s.cyclesStarted,
	}
}
