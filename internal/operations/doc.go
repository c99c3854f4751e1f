// Package operations orchestrates score runs over category workbooks.
//
// A Manager holds a Registry of steps. Each MetricStep owns one score sheet:
// it reads the persisted sheet, lets the engine append new date columns and
// backfill new entities, and saves the sheet back into the same workbook.
//
// Steps run in registration order. NewMetricRegistry puts S and Z sheets
// first, then GAP, STD and QUANT.
//
// A metric whose raw sheet is missing, or whose history is shorter than its
// window, is skipped with a warning. A save failure fails only that step;
// the rest of the file and the rest of the run continue.
//
// Example usage:
//
//	specs, _ := operations.SpecsFromConfig(cfg.Metrics)
//	eng := engine.New(engine.Config{Workers: 4, RetryEmpty: true}, logger)
//	registry, _ := operations.NewMetricRegistry(specs, eng, exporter.NewWorkbookStore(logger), logger)
//
//	manager := operations.NewManager(registry, paths, logger).
//		WithMarkets(cfg.Engine.Markets)
//	files, _ := config.LoadFileMap(paths.FileMap)
//	manifest, err := manager.RunAll(ctx, files)
//
// Every RunAll call gets a UUID run id that is also the trace id of its log
// lines, and writes a run_<id>.json manifest to the reports directory.
package operations
