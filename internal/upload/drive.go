package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"slotledger/internal/errors"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveUploader keeps artifacts in a Google Drive folder. Destination path
// segments become sub-folders of the root folder and are created on demand.
type DriveUploader struct {
	service *drive.Service
	rootID  string
	logger  *slog.Logger
}

// NewDriveUploader authenticates with a service account key file.
func NewDriveUploader(ctx context.Context, credentialsFile, folderID string, logger *slog.Logger) (*DriveUploader, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.NewConfigError("failed to read drive credentials", err)
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.NewConfigError("drive credentials are empty", nil)
	}
	return NewDriveUploaderWithOptions(ctx, folderID, logger,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(drive.DriveFileScope))
}

// NewDriveUploaderWithOptions builds the Drive client from explicit options.
func NewDriveUploaderWithOptions(ctx context.Context, folderID string, logger *slog.Logger, opts ...option.ClientOption) (*DriveUploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError("failed to create drive service", err)
	}
	if folderID == "" {
		folderID = "root"
	}
	return &DriveUploader{
		service: service,
		rootID:  folderID,
		logger:  logger.With(slog.String("component", "drive_uploader")),
	}, nil
}

// Upload creates dest or replaces the content of the file already there.
// The message is stored as the file description.
func (u *DriveUploader) Upload(ctx context.Context, localPath, dest, message string) (Outcome, error) {
	dest = strings.Trim(path.Clean("/"+dest), "/")
	if dest == "" {
		return Outcome{}, errors.NewUploadError("empty destination", nil)
	}

	parentID, err := u.ensureFolders(ctx, path.Dir(dest))
	if err != nil {
		return Outcome{}, errors.NewUploadError("failed to prepare drive folder", err).
			WithContext("dest", dest)
	}

	name := path.Base(dest)
	existingID, err := u.find(ctx, parentID, name, false)
	if err != nil {
		return Outcome{}, errors.NewUploadError("failed to look up drive file", err).
			WithContext("dest", dest)
	}

	content, err := os.Open(localPath)
	if err != nil {
		return Outcome{}, errors.NewUploadError("failed to open artifact", err).
			WithContext("path", localPath)
	}
	defer content.Close()

	var file *drive.File
	if existingID != "" {
		file, err = u.service.Files.Update(existingID, &drive.File{Description: message}).
			Media(content).
			Fields("id", "webViewLink").
			Context(ctx).
			Do()
	} else {
		file, err = u.service.Files.Create(&drive.File{
			Name:        name,
			Parents:     []string{parentID},
			Description: message,
		}).
			Media(content).
			Fields("id", "webViewLink").
			Context(ctx).
			Do()
	}
	if err != nil {
		return Outcome{}, errors.NewUploadError("drive upload failed", err).
			WithContext("dest", dest)
	}

	location := file.WebViewLink
	if location == "" {
		location = "drive:" + file.Id
	}
	u.logger.Info("artifact uploaded",
		slog.String("dest", dest),
		slog.String("file_id", file.Id),
		slog.Bool("created", existingID == ""),
		slog.String("message", message))
	return Outcome{Dest: dest, Location: location, Created: existingID == ""}, nil
}

// ensureFolders walks dir below the root folder, creating missing folders,
// and returns the id of the innermost one.
func (u *DriveUploader) ensureFolders(ctx context.Context, dir string) (string, error) {
	parentID := u.rootID
	if dir == "." || dir == "" {
		return parentID, nil
	}
	for _, segment := range strings.Split(dir, "/") {
		id, err := u.find(ctx, parentID, segment, true)
		if err != nil {
			return "", err
		}
		if id == "" {
			folder, err := u.service.Files.Create(&drive.File{
				Name:     segment,
				MimeType: folderMimeType,
				Parents:  []string{parentID},
			}).Fields("id").Context(ctx).Do()
			if err != nil {
				return "", fmt.Errorf("failed to create folder %q: %w", segment, err)
			}
			id = folder.Id
			u.logger.Debug("drive folder created", slog.String("name", segment), slog.String("folder_id", id))
		}
		parentID = id
	}
	return parentID, nil
}

// find returns the id of the named child of parentID, or "" when absent.
func (u *DriveUploader) find(ctx context.Context, parentID, name string, folder bool) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(parentID))
	if folder {
		q += fmt.Sprintf(" and mimeType = '%s'", folderMimeType)
	} else {
		q += fmt.Sprintf(" and mimeType != '%s'", folderMimeType)
	}

	list, err := u.service.Files.List().
		Q(q).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
