package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slotledger/pkg/contracts/domain"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// SnapshotFile is a store file whose name carries a parseable date.
type SnapshotFile struct {
	FileInfo
	Date time.Time
}

// Discovery finds snapshot files named <prefix>_<YYYY-MM-DD>.<ext>.
type Discovery struct {
	prefix    string
	extension string
}

// NewDiscovery creates a discovery for the given file prefix and extension
// (without the leading dot).
func NewDiscovery(prefix, extension string) *Discovery {
	return &Discovery{prefix: prefix, extension: strings.TrimPrefix(extension, ".")}
}

// FileName returns the snapshot file name for date.
func (d *Discovery) FileName(date time.Time) string {
	return fmt.Sprintf("%s_%s.%s", d.prefix, date.Format(domain.FileDateLayout), d.extension)
}

// ParseFileName recovers the date from a snapshot file name.
func (d *Discovery) ParseFileName(name string) (time.Time, bool) {
	stem, ok := strings.CutSuffix(name, "."+d.extension)
	if !ok {
		return time.Time{}, false
	}
	dateStr, ok := strings.CutPrefix(stem, d.prefix+"_")
	if !ok || len(dateStr) != len(domain.FileDateLayout) {
		return time.Time{}, false
	}
	date, err := time.Parse(domain.FileDateLayout, dateStr)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// FindSnapshotFiles lists every regular file in dir whose name parses as a
// snapshot file name, ordered by date. Other entries are ignored.
func (d *Discovery) FindSnapshotFiles(dir string) ([]SnapshotFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []SnapshotFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := d.ParseFileName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, SnapshotFile{
			FileInfo: FileInfo{
				Path:    filepath.Join(dir, entry.Name()),
				Name:    entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			},
			Date: date,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Date.Equal(files[j].Date) {
			return files[i].Name < files[j].Name
		}
		return files[i].Date.Before(files[j].Date)
	})

	return files, nil
}
