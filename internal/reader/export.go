package reader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/metrics"
)

// ArchiveName returns the download name for an archive taken at t, e.g.
// "MyApp-20240310-120000.log.gz".
func (r *Reader) ArchiveName(t time.Time) string {
	base := filepath.Base(r.files.Active())
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%s%s.gz", strings.TrimSuffix(base, ext), t.Format("20060102-150405"), ext)
}

// ExportArchive flushes the live store, then writes the raw bytes of the
// active file followed by every backup, by ascending suffix, as one gzip
// stream to w. It returns the number of uncompressed bytes written.
func (r *Reader) ExportArchive(ctx context.Context, w io.Writer) (n int64, err error) {
	defer func() { metrics.RecordExport(n, err) }()

	if r.flusher != nil {
		if err := r.flusher.Flush(); err != nil {
			return 0, errors.Wrap(err, "flush before export")
		}
	}

	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return 0, errors.Wrap(err, "create gzip writer")
	}
	gz.ModTime = time.Now()

	for _, path := range r.files.Existing() {
		written, err := copyFile(ctx, gz, path)
		n += written
		if err != nil {
			_ = gz.Close()
			return n, err
		}
	}
	if err := gz.Close(); err != nil {
		return n, errors.Wrap(err, "finish archive")
	}
	return n, nil
}
