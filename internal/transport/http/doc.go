// Package http exposes the ingestion pipeline over HTTP. Handlers stay thin:
// they parse and validate the request, call the pipeline, and render the
// result as JSON or an RFC 7807 problem.
//
// Routes, all under /api:
//
//	POST /ingest                      run the pipeline on uploaded or inline markup
//	GET  /artifacts/{kind}/{name}     download a snapshot CSV or the aggregate workbook
//	GET  /health, /health/ready       liveness and store readiness
//	GET  /version                     build information
//
// Prometheus metrics are served separately at /metrics.
package http
