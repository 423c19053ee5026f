// Package exporter writes the files produced by a pipeline run.
//
// This package contains three main components:
//
// CSVWriter: encoded CSV reading and writing. Snapshots are stored in a
// legacy Japanese encoding (Shift_JIS by default), so every byte passes
// through a golang.org/x/text transformer. Files are replaced atomically.
//
// WorkbookWriter: renders the machine × date AggregateTable to an .xlsx
// sheet with sized columns, fixed row height and a Meiryo base font.
//
// Formatter: reopens a workbook and fills value cells by threshold band.
//
// Example usage:
//
//	writer := exporter.NewWorkbookWriter(exporter.DefaultWorkbookOptions(), logger)
//	if err := writer.Write(table, "aggregate.xlsx"); err != nil {
//		return err
//	}
//
//	formatter := exporter.NewFormatter(exporter.DefaultFormatOptions(), logger)
//	counts, err := formatter.FormatFile("aggregate.xlsx")
package exporter
