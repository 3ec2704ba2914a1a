package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"diarscribe/internal/transcript"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type tableSpec struct {
	headers []string
	rows    [][]string
	aligns  []columnAlignment
	footer  []string
}

func renderTable(spec tableSpec) string {
	columns := len(spec.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(spec.headers, columns))
	for _, row := range spec.rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(spec.footer) > 0 {
		tw.AppendFooter(toRow(spec.footer, columns))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(spec.aligns) && spec.aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := range columns {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

// renderStatistics lists speakers in first-appearance order with their share
// of the recording.
func renderStatistics(doc transcript.Document) string {
	spec := tableSpec{
		headers: []string{"Speaker", "Segments", "Speaking time", "Share"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	}
	var totalSegments int
	var totalTime float64
	for _, speaker := range doc.Statistics.Speakers() {
		stats, _ := doc.Statistics.Get(speaker)
		totalSegments += stats.SegmentCount
		totalTime += stats.TotalDuration
		spec.rows = append(spec.rows, []string{
			speaker,
			strconv.Itoa(stats.SegmentCount),
			transcript.FormatTime(stats.TotalDuration),
			share(stats.TotalDuration, doc.Duration),
		})
	}
	spec.footer = []string{"Total", strconv.Itoa(totalSegments), transcript.FormatTime(totalTime), share(totalTime, doc.Duration)}
	return renderTable(spec)
}

func share(part, whole float64) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", part/whole*100)
}
