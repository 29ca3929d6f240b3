package web

import (
	"assembly-line/internal/assembly"
	"assembly-line/internal/types"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeLine struct{ state assembly.State }

func (f fakeLine) Snapshot() assembly.State { return f.state }

type countingReporter struct{ n atomic.Int32 }

func (c *countingReporter) Request() { c.n.Add(1) }

func setupServer(t *testing.T) (*httptest.Server, *StateTracker, *countingReporter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)
	st := NewStateTracker(hub)
	reporter := &countingReporter{}
	line := fakeLine{state: assembly.State{Running: true, Cursor: 3, Stats: types.Stats{Completed: 2, Failed: 1}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := httptest.NewServer(NewMux(line, st, hub, reporter, logger))
	t.Cleanup(server.Close)
	return server, st, reporter
}

func TestStatsAndReportRoutes(t *testing.T) {
	server, _, reporter := setupServer(t)

	resp, err := http.Get(server.URL + "/api/stats")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()
	var stats types.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if stats.Completed != 2 || stats.Failed != 1 {
		t.Errorf("统计不正确: %+v", stats)
	}

	resp, err = http.Get(server.URL + "/api/report")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/report 预期 405, 得到 %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/api/report", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("预期 202, 得到 %d", resp.StatusCode)
	}
	if reporter.n.Load() != 1 {
		t.Errorf("预期报告请求 1 次, 得到 %d", reporter.n.Load())
	}
}

func TestStateTrackerRecordsInstalls(t *testing.T) {
	st := NewStateTracker(nil)
	mask := types.PartFrame.Flag()
	st.RecordInstall("frame@L1", mask, nil)
	st.RecordInstall("engine@L2", mask, errors.New("car is not at this position"))

	snap := st.GetStateSnapshot()
	if got := snap.Stations["frame@L1"].Installed; got != 1 {
		t.Errorf("预期安装 1 次, 得到 %d", got)
	}
	if got := snap.Stations["engine@L2"]; got.Missed != 1 || got.LastError == "" {
		t.Errorf("预期记录未命中, 得到 %+v", got)
	}
	if len(snap.Parts) != 1 || snap.Parts[0] != "frame" {
		t.Errorf("预期已装部件 [frame], 得到 %v", snap.Parts)
	}

	snap.Stations["frame@L1"] = StationState{}
	if st.GetStateSnapshot().Stations["frame@L1"].Installed != 1 {
		t.Error("快照应为深拷贝")
	}
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	server, st, _ := setupServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("连接 WebSocket 失败: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		st.Update(func(s *LineState) { s.Cursor = 4 })
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("读取消息失败: %v", err)
		}
		var state LineState
		if err := json.Unmarshal(msg, &state); err != nil {
			t.Fatalf("解析消息失败: %v", err)
		}
		if state.Cursor == 4 {
			return
		}
	}
	t.Fatal("未收到广播")
}
