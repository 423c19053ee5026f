package http

import (
	"context"

	"slotledger/internal/operations"
)

// PipelineRunner runs one ingestion. *operations.Pipeline implements it.
type PipelineRunner interface {
	Run(ctx context.Context, req operations.Request) (*operations.Result, error)
}
