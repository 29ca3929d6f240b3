package main

import (
	"assembly-line/internal/persistence"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newJournalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "journal <path>",
		Short: "汇总检验审计日志",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := persistence.Summarize(args[0])
			if err != nil {
				return fmt.Errorf("读取审计日志失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
			return nil
		},
	}
}

func renderSummary(s persistence.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"指标", "数值"})

	total := s.Completed + s.Failed
	rate := "-"
	if total > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(s.Completed)*100/float64(total))
	}
	tw.AppendRows([]table.Row{
		{"合格", strconv.FormatUint(s.Completed, 10)},
		{"不合格", strconv.FormatUint(s.Failed, 10)},
		{"合格率", rate},
		{"启动次数", strconv.FormatUint(s.Starts, 10)},
		{"看门狗停机", strconv.FormatUint(s.Stalls, 10)},
		{"运行周期", strconv.Itoa(s.Episodes)},
		{"起始时间", formatTime(s.First)},
		{"结束时间", formatTime(s.Last)},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
