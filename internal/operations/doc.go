// Package operations runs the daily ingest as an ordered set of steps.
//
// A run moves through
//
//	start -> extracted -> stored -> aggregated -> classified -> done
//
// and any step error moves it to failed with the step recorded. Nothing is
// rolled back: a snapshot written before an aggregation failure stays in the
// store and is picked up by the next run.
//
// Core Components:
//
// Pipeline: builds the four steps from the application config and executes
// them sequentially with a per-step timeout. After a successful run it can
// publish both artifacts through an upload.Uploader; upload failures are
// reported on the Result and never change the run status.
//
// Step: one unit of work reading from and writing to the OperationState.
//
// Registry: keeps the registered steps in execution order.
//
// Metrics: Prometheus collectors for runs, step durations and band counts.
//
// Example usage:
//
//	pipeline, err := operations.NewPipeline(cfg, operations.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	result, err := pipeline.Run(ctx, operations.Request{
//		Source: scraper.NewFileSource("page.html"),
//		Date:   date,
//	})
//	if err != nil {
//		log.Printf("failed at %s: %v", operations.FailedStep(err), err)
//	}
package operations
