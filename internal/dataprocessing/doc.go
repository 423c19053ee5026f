// Package dataprocessing turns slot hall markup into snapshots and folds
// stored snapshots into the aggregate table.
//
// # Architecture
//
// The package is organized into two components:
//
// 1. Parser: reads the daily HTML table and extracts one MachineRecord per row
// 2. Aggregator: pivots every stored snapshot into a machine × date table
//
// # Usage
//
//	parser := dataprocessing.NewParser(logger)
//	snapshot, stats, err := parser.Extract(markup, date)
//
//	aggregator := dataprocessing.NewAggregator(logger)
//	table, stats, err := aggregator.Build(store)
package dataprocessing
