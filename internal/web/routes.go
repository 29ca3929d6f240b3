package web

import (
	"assembly-line/internal/assembly"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LineView 提供产线的一致性快照
type LineView interface {
	Snapshot() assembly.State
}

// ReportRequester 接收按需统计报告请求
type ReportRequester interface {
	Request()
}

// NewMux 注册 API、WebSocket 和监控路由
func NewMux(line LineView, st *StateTracker, hub *Hub, reporter ReportRequester, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", hub.ServeWs)
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, st.GetStateSnapshot())
	})
	mux.HandleFunc("/api/line", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, line.Snapshot())
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, line.Snapshot().Stats)
	})
	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		reporter.Request()
		writeJSON(w, logger, http.StatusAccepted, map[string]string{"status": "accepted"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", "error", err)
	}
}
