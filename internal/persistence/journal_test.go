package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJournalSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.journal")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("无法打开日志: %v", err)
	}

	entries := []Entry{
		{Type: EntryStart, EpisodeID: "a"},
		{Type: EntryInspection, EpisodeID: "a", Completed: true, Parts: []string{"frame"}},
		{Type: EntryInspection, EpisodeID: "a"},
		{Type: EntryStall, EpisodeID: "a", Cursor: 2},
		{Type: EntryStart, EpisodeID: "b"},
		{Type: EntryInspection, EpisodeID: "b", Completed: true},
	}
	for _, e := range entries {
		if err := j.Append(e); err != nil {
			t.Fatalf("写入日志失败: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("关闭日志失败: %v", err)
	}

	// 损坏的行被忽略
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()

	s, err := Summarize(path)
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}
	if s.Completed != 2 || s.Failed != 1 || s.Stalls != 1 || s.Starts != 2 || s.Episodes != 2 {
		t.Errorf("汇总不正确: %+v", s)
	}
	if s.First.IsZero() || s.Last.Before(s.First) {
		t.Errorf("时间范围不正确: %v - %v", s.First, s.Last)
	}
}

func TestJournalIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.journal")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if _, err := OpenJournal(path); !errors.Is(err, ErrJournalLocked) {
		t.Errorf("预期 ErrJournalLocked, 得到 %v", err)
	}
}
