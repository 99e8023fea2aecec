package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableSpec describes a rounded table. Rows shorter than headers are padded.
type tableSpec struct {
	title   string
	headers []string
	rows    [][]string
	aligns  []columnAlignment
	footer  []string
}

func (s tableSpec) render() string {
	columns := len(s.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	if s.title != "" {
		tw.SetTitle(s.title)
	}
	tw.AppendHeader(padRow(s.headers, columns))
	for _, row := range s.rows {
		tw.AppendRow(padRow(row, columns))
	}
	if len(s.footer) > 0 {
		tw.AppendFooter(padRow(s.footer, columns))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(s.aligns) && s.aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			AlignFooter:      align,
			WidthMax:         96,
			WidthMaxEnforcer: text.Trim,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render() + "\n"
}

func padRow(values []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
