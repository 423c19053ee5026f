// Package app wires the HTTP service: configuration, the ingestion
// pipeline with its metrics and optional uploader, the chi router and the
// server lifecycle.
//
// Typical use from a main package:
//
//	application, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
