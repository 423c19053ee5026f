package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"slotledger/internal/config"
	apierrors "slotledger/internal/errors"
	"slotledger/internal/files"
	custommw "slotledger/internal/middleware"
	"slotledger/internal/operations"
	"slotledger/internal/scraper"
	api "slotledger/pkg/contracts/api/v1"
	"slotledger/pkg/contracts/domain"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// IngestHandler serves ingestion runs and the artifacts they produce.
type IngestHandler struct {
	pipeline     PipelineRunner
	store        config.StoreConfig
	workbookPath string
	maxBytes     int64
	discovery    *files.Discovery
	validator    *custommw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIngestHandler creates an ingest handler bound to the configured store
// and workbook locations.
func NewIngestHandler(pipeline PipelineRunner, cfg *config.Config, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IngestHandler {
	return &IngestHandler{
		pipeline:     pipeline,
		store:        cfg.Store,
		workbookPath: cfg.Workbook.Path,
		maxBytes:     cfg.Server.MaxUploadBytes,
		discovery:    files.NewDiscovery(cfg.Store.FilePrefix, cfg.Store.Extension),
		validator:    custommw.NewValidator(logger),
		logger:       logger.With(slog.String("component", "ingest_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the ingest and artifact routes
func (h *IngestHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(custommw.ContentTypeValidator("multipart/form-data", "application/x-www-form-urlencoded")).
		Post("/ingest", h.Ingest)

	r.With(h.ArtifactCtx).Get("/artifacts/{kind}/{name}", h.DownloadArtifact)

	return r
}

// Ingest handles POST /api/ingest. The markup comes from the "file" part of
// a multipart form or the "markup" field; "date" (YYYY-MM-DD) defaults to
// today.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.ContentLength > h.maxBytes {
		h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.errorHandler.HandleError(w, r, h.formError(err))
		return
	}

	source, req, err := h.readSource(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.formError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	runReq := operations.Request{Source: source}
	if req.Date != "" {
		date, err := time.Parse(domain.FileDateLayout, req.Date)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("date", err.Error()))
			return
		}
		runReq.Date = date
	}
	if source == nil {
		runReq.Source = scraper.NewTextSource(req.Markup)
	}

	h.logger.InfoContext(ctx, "ingest requested",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("source", runReq.Source.Describe()),
		slog.String("date", req.Date))

	result, err := h.pipeline.Run(ctx, runReq)
	if err != nil {
		h.handleRunError(w, r, result, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// readSource picks the uploaded file when present and otherwise leaves the
// source nil for the inline markup field.
func (h *IngestHandler) readSource(r *http.Request) (scraper.Source, *api.IngestRequest, error) {
	req := &api.IngestRequest{
		Markup: r.FormValue("markup"),
		Date:   r.FormValue("date"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, req, nil
	case err != nil:
		return nil, nil, err
	}
	defer file.Close()

	markup, err := readPart(file)
	if err != nil {
		return nil, nil, err
	}
	req.HasFile = true
	return &scraper.TextSource{Markup: markup, Label: header.Filename}, req, nil
}

func readPart(file multipart.File) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *IngestHandler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierrors.PayloadTooLarge(h.maxBytes)
	}
	return apierrors.InvalidRequestWithError(err)
}

// handleRunError renders a failed run. The problem names the failed step and
// carries the partial result so callers can see which files were written.
func (h *IngestHandler) handleRunError(w http.ResponseWriter, r *http.Request, result *operations.Result, err error) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	step := operations.FailedStep(err)

	h.logger.ErrorContext(ctx, "ingest failed",
		slog.String("request_id", reqID),
		slog.String("failed_step", step),
		slog.String("error", err.Error()))

	problem := h.errorHandler.ErrorToProblem(err, r).
		WithExtension("trace_id", reqID)
	if step != "" {
		problem.WithExtension("failed_step", step)
	}
	if result != nil {
		problem.WithExtension("result", result)
	}
	render.Render(w, r, problem)
}

// ArtifactCtx validates the artifact kind and file name
func (h *IngestHandler) ArtifactCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.ArtifactRequest{
			Kind: chi.URLParam(r, "kind"),
			Name: chi.URLParam(r, "name"),
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DownloadArtifact handles GET /api/artifacts/{kind}/{name}. Snapshot names
// must follow the store naming pattern; the workbook is served only under
// its configured file name.
func (h *IngestHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	name := chi.URLParam(r, "name")

	var path, contentType string
	switch kind {
	case "snapshot":
		if _, ok := h.discovery.ParseFileName(name); !ok {
			h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("snapshot "+name))
			return
		}
		path = filepath.Join(h.store.Dir, name)
		contentType = contentTypeCSV
		if h.store.Encoding != "" {
			contentType += "; charset=" + h.store.Encoding
		}
	case "workbook":
		if name != filepath.Base(h.workbookPath) {
			h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("workbook "+name))
			return
		}
		path = h.workbookPath
		contentType = contentTypeXLSX
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError(kind+" "+name))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to open artifact", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to stat artifact", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
