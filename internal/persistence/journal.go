package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// 日志记录类型
const (
	EntryInspection = "INSPECTION" // 一辆车到达检验位置
	EntryStall      = "STALL"      // 看门狗检测到停滞
	EntryStart      = "START"      // 产线 (重新) 启动
)

// ErrJournalLocked 日志文件已被另一个进程占用
var ErrJournalLocked = errors.New("journal is locked by another process")

// Entry 代表审计日志中的一条记录
type Entry struct {
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	EpisodeID string    `json:"episode_id,omitempty"`
	Completed bool      `json:"completed,omitempty"` // 仅检验记录
	Parts     []string  `json:"parts,omitempty"`     // 检验或停滞时车辆上的部件
	Cursor    int       `json:"cursor,omitempty"`
}

// Journal 只追加的检验审计日志 (JSON Lines)
// 产线状态不会从日志恢复，日志只用于事后统计
type Journal struct {
	file *os.File     // 日志文件句柄
	lock *flock.Flock // 防止多个产线进程写同一个文件
	mu   sync.Mutex   // 互斥锁，保证文件写入的原子性
}

// OpenJournal 创建或打开一个日志文件并加排他锁
func OpenJournal(path string) (*Journal, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("锁定日志失败: %w", err)
	}
	if !locked {
		return nil, ErrJournalLocked
	}
	// O_APPEND: 追加写入, O_CREATE: 文件不存在则创建
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Journal{file: file, lock: lock}, nil
}

// Append 写入一条记录
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// 写入数据并在末尾添加换行符
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	// 确保数据被刷新到磁盘，防止数据丢失
	return j.file.Sync()
}

// Close 关闭日志文件并释放锁
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	err := j.file.Close()
	if uerr := j.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// Summary 日志的汇总统计
type Summary struct {
	Completed uint64
	Failed    uint64
	Stalls    uint64
	Starts    uint64
	Episodes  int
	First     time.Time
	Last      time.Time
}

// Summarize 读取日志文件并汇总，损坏的行被忽略
func Summarize(path string) (Summary, error) {
	var s Summary
	file, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer file.Close()

	episodes := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// 忽略损坏的行
			continue
		}
		if s.First.IsZero() || e.Time.Before(s.First) {
			s.First = e.Time
		}
		if e.Time.After(s.Last) {
			s.Last = e.Time
		}
		if e.EpisodeID != "" {
			episodes[e.EpisodeID] = true
		}
		switch e.Type {
		case EntryInspection:
			if e.Completed {
				s.Completed++
			} else {
				s.Failed++
			}
		case EntryStall:
			s.Stalls++
		case EntryStart:
			s.Starts++
		}
	}
	if err := scanner.Err(); err != nil {
		return s, err
	}
	s.Episodes = len(episodes)
	return s, nil
}
