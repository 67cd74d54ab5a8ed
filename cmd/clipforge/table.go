package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// columnAlignment selects cell alignment for one renderTable column.
// Headers always render left-aligned.
type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws a rounded-border table. Alignments apply to columns in
// order; columns without one default to left. Rows shorter than the header
// are padded with empty cells.
func renderTable(headers []string, rows [][]string, aligns ...columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(paddedRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(paddedRow(row, len(headers)))
	}
	tw.SetColumnConfigs(alignConfigs(len(headers), aligns))
	return tw.Render()
}

func paddedRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

func alignConfigs(columns int, aligns []columnAlignment) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	return configs
}
