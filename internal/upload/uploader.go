package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"slotledger/internal/config"
	"slotledger/internal/errors"
	"slotledger/internal/files"
)

// Uploader publishes one local file under a slash-separated destination path.
type Uploader interface {
	Upload(ctx context.Context, localPath, dest, message string) (Outcome, error)
}

// Outcome describes where an upload landed.
type Outcome struct {
	Dest     string `json:"dest"`
	Location string `json:"location"`
	Created  bool   `json:"created"`
}

// CommitMessage is the change note attached to a day's artifacts.
func CommitMessage(date time.Time) string {
	return fmt.Sprintf("Add data for %s", date.Format("2006-01-02"))
}

// New builds the uploader selected by cfg. It returns nil when uploads are
// disabled.
func New(ctx context.Context, cfg config.UploadConfig, logger *slog.Logger) (Uploader, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "directory":
		return NewDirectoryUploader(cfg.Directory, logger), nil
	case "drive":
		return NewDriveUploader(ctx, cfg.CredentialsFile, cfg.FolderID, logger)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown upload provider %q", cfg.Provider), nil)
	}
}

// DirectoryUploader mirrors artifacts into a directory tree.
type DirectoryUploader struct {
	root   string
	files  *files.Manager
	logger *slog.Logger
}

// NewDirectoryUploader creates an uploader rooted at root.
func NewDirectoryUploader(root string, logger *slog.Logger) *DirectoryUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryUploader{
		root:   root,
		files:  files.NewManager(root, logger),
		logger: logger.With(slog.String("component", "directory_uploader")),
	}
}

// Upload copies localPath to root/dest, creating parent directories.
func (u *DirectoryUploader) Upload(ctx context.Context, localPath, dest, message string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, errors.NewUploadError("upload cancelled", err)
	}

	src, err := filepath.Abs(localPath)
	if err != nil {
		return Outcome{}, errors.NewUploadError("failed to resolve artifact path", err)
	}
	rel := filepath.FromSlash(path.Clean("/" + dest))[1:]
	if rel == "" {
		return Outcome{}, errors.NewUploadError("empty destination", nil)
	}
	target := filepath.Join(u.root, rel)
	existed := u.files.FileExists(rel)

	if err := u.files.CopyFile(src, rel); err != nil {
		return Outcome{}, errors.NewUploadError("failed to copy artifact", err).
			WithContext("dest", dest)
	}

	u.logger.Info("artifact uploaded",
		slog.String("dest", dest),
		slog.String("location", target),
		slog.Bool("created", !existed),
		slog.String("message", message))
	return Outcome{Dest: dest, Location: target, Created: !existed}, nil
}
