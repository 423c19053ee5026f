package http

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"slotledger/internal/config"
	"slotledger/internal/validation"
	"slotledger/pkg/contracts"
)

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	storeDir        string
	snapshotPattern string
	workbookPath    string
	createDir       bool
	validator       *validation.FileValidator
	logger          *slog.Logger
	now             func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storeDir:        cfg.Store.Dir,
		snapshotPattern: cfg.Store.FilePrefix + "_*." + cfg.Store.Extension,
		workbookPath:    cfg.Workbook.Path,
		createDir:       cfg.Store.CreateDir,
		validator:       validation.NewFileValidator(logger),
		logger:          logger.With(slog.String("handler", "health")),
		now:             time.Now,
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Timestamp: h.now().UTC(),
	})
}

// ReadinessCheck handles GET /api/health/ready. The service is ready when
// the snapshot directory exists or the pipeline is allowed to create it, and
// the workbook can be written.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := HealthResponse{
		Status:    "ready",
		Version:   contracts.Version,
		Timestamp: h.now().UTC(),
		Checks:    map[string]string{},
	}

	count, err := h.validator.ValidateStoreDirectory(h.storeDir, h.snapshotPattern)
	switch {
	case err == nil:
		resp.Checks["store"] = "ok"
		resp.Checks["snapshots"] = strconv.Itoa(count)
	case errors.Is(err, validation.ErrNotExist) && h.createDir:
		resp.Checks["store"] = "missing, created on first run"
	default:
		resp.Status = "not_ready"
		resp.Checks["store"] = "missing"
		h.logger.WarnContext(ctx, "store directory unavailable",
			slog.String("store_dir", h.storeDir),
			slog.String("error", err.Error()))
	}

	if err := h.checkWorkbook(); err != nil {
		resp.Status = "not_ready"
		resp.Checks["workbook"] = err.Error()
		h.logger.WarnContext(ctx, "workbook not writable",
			slog.String("workbook_path", h.workbookPath),
			slog.String("error", err.Error()))
	} else {
		resp.Checks["workbook"] = "ok"
	}

	if resp.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}

func (h *HealthHandler) checkWorkbook() error {
	if _, err := os.Stat(h.workbookPath); err == nil {
		if err := h.validator.ValidateWorkbookFile(h.workbookPath); err != nil {
			return err
		}
	}
	return h.validator.ValidateOutputDirectory(filepath.Dir(h.workbookPath))
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
