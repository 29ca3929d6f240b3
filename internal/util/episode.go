package util

import (
	"context"

	"github.com/google/uuid"
)

// contextKey 是一个私有类型，用于避免 context key 的冲突
type contextKey string

const episodeIDKey contextKey = "episodeID"

// NewEpisodeID 为一次产线 (重新) 启动生成唯一 ID
// 用于在日志和事件中区分看门狗重启前后的运行周期
func NewEpisodeID() string {
	return uuid.NewString()
}

// ContextWithEpisodeID 将运行周期 ID 注入到 Context 中
func ContextWithEpisodeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, episodeIDKey, id)
}

// EpisodeIDFromContext 从 Context 中提取运行周期 ID
func EpisodeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(episodeIDKey).(string)
	return id, ok
}
