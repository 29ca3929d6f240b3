package web

import (
	"assembly-line/internal/types"
	"sync"
	"time"
)

// StationState 定义了用于 UI 展示的工位状态
type StationState struct {
	Station   string `json:"station"`
	Installed uint64 `json:"installed"`
	Missed    uint64 `json:"missed"`
	LastError string `json:"last_error,omitempty"`
	Worker    string `json:"worker,omitempty"` // worker 当前状态
}

// LineState 代表整条产线的实时状态快照
type LineState struct {
	Running   bool                    `json:"running"`
	EpisodeID string                  `json:"episode_id,omitempty"`
	Cursor    int                     `json:"cursor"`
	Parts     []string                `json:"parts"`
	Jammed    bool                    `json:"jammed"`
	Trips     uint64                  `json:"watchdog_trips"`
	Stats     types.Stats             `json:"stats"`
	Stations  map[string]StationState `json:"stations"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// StateTracker 负责追踪产线的实时状态，并通知前端更新
type StateTracker struct {
	mu    sync.RWMutex
	state LineState
	hub   *Hub
}

// NewStateTracker 创建一个新的 StateTracker 实例
func NewStateTracker(hub *Hub) *StateTracker {
	return &StateTracker{
		state: LineState{Parts: []string{}, Stations: make(map[string]StationState)},
		hub:   hub,
	}
}

// Update 在锁内修改状态，并向所有客户端广播最新快照
func (st *StateTracker) Update(mutate func(s *LineState)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	mutate(&st.state)
	st.state.UpdatedAt = time.Now()
	if st.hub != nil {
		st.hub.BroadcastState(st.state)
	}
}

// RecordInstall 记录一次工位安装结果
func (st *StateTracker) RecordInstall(station string, mask types.PartMask, err error) {
	st.Update(func(s *LineState) {
		view := s.Stations[station]
		view.Station = station
		if err == nil {
			view.Installed++
			s.Parts = mask.Names()
		} else {
			view.Missed++
			view.LastError = err.Error()
		}
		s.Stations[station] = view
	})
}

// RecordWorkerState 记录工位 worker 进入的状态
func (st *StateTracker) RecordWorkerState(station, state string) {
	st.Update(func(s *LineState) {
		view := s.Stations[station]
		view.Station = station
		view.Worker = state
		s.Stations[station] = view
	})
}

// GetStateSnapshot 返回当前状态的一个深拷贝副本
// 用于新客户端连接时获取一次全量数据
func (st *StateTracker) GetStateSnapshot() LineState {
	st.mu.RLock()
	defer st.mu.RUnlock()

	// 创建深拷贝以避免并发问题
	snapshot := st.state
	snapshot.Parts = append([]string{}, st.state.Parts...)
	snapshot.Stations = make(map[string]StationState, len(st.state.Stations))
	for id, s := range st.state.Stations {
		snapshot.Stations[id] = s
	}
	return snapshot
}
