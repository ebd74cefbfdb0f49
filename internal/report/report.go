// Package report renders finished (or in-progress) scan sessions: the D3
// topology graph as a self-contained HTML page, a CSV export, and the
// console summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/scanning"
)

const (
	filePrefix     = "network_scan_"
	stampLayout    = "20060102_150405"
	reportDirPerm  = 0750
	reportFilePerm = 0640
)

// Format selects the artifact written by a Writer.
type Format string

const (
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// Filename returns network_scan_YYYYMMDD_HHMMSS.<ext> for t.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("%s%s.%s", filePrefix, t.Format(stampLayout), f)
}

// Writer writes session reports into a directory.
type Writer struct {
	Dir    string
	Format Format
	HTML   HTMLOptions
}

// Path returns the report path for a session that started at start.
func (w *Writer) Path(start time.Time) string {
	return filepath.Join(w.Dir, Filename(w.Format, start))
}

// Write renders session to its timestamped file and returns the path. The
// file is written to a temporary name first so readers never see a partial
// report.
func (w *Writer) Write(session *scanning.Session) (string, error) {
	if err := os.MkdirAll(w.Dir, reportDirPerm); err != nil {
		return "", errors.WrapScanError(errors.CodeDirectoryCreate, "failed to create output directory", err)
	}

	path := w.Path(session.StartTime)
	tmp, err := os.CreateTemp(w.Dir, ".nvector-*")
	if err != nil {
		return "", errors.WrapScanError(errors.CodeFilePermission, "failed to create report file", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	switch w.Format {
	case FormatCSV:
		err = WriteCSV(tmp, session)
	default:
		err = WriteHTML(tmp, session, w.HTML)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	if err := os.Chmod(tmp.Name(), reportFilePerm); err != nil {
		return "", errors.WrapScanError(errors.CodeFilePermission, "failed to set report permissions", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.WrapScanError(errors.CodeFilePermission, "failed to write report", err)
	}
	return path, nil
}
