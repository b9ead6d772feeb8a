// Package reader reads a store's files back: it enumerates records lazily
// with filtering, follows the active file as it grows, and bundles the raw
// files into a gzip archive for download.
//
// Reading never takes the folder lock. A record being appended while it is
// read shows up as an unterminated trailing frame, which is dropped and
// counted in ScanStats.Truncated rather than surfaced.
package reader

import (
	"bufio"
	"context"
	"io"
	"iter"
	"os"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/metrics"
	"github.com/Iron-Ham/linelog/internal/record"
	"github.com/Iron-Ham/linelog/internal/store"
)

// maxLineSize bounds one physical line; single-line records carry their
// whole stack trace on one line.
const maxLineSize = 16 << 20

// Flusher pushes buffered records to disk. *store.Store implements it.
type Flusher interface {
	Flush() error
}

// Reader reads the files of one store.
type Reader struct {
	files   store.FileSet
	flusher Flusher
}

// New returns a Reader over files. flusher may be nil when no writer is live
// in this process.
func New(files store.FileSet, flusher Flusher) *Reader {
	return &Reader{files: files, flusher: flusher}
}

// Files returns the file set being read.
func (r *Reader) Files() store.FileSet {
	return r.files
}

// ScanStats describes one pass of a Scan.
type ScanStats struct {
	Files     int `json:"files"`
	Frames    int `json:"frames"`
	Records   int `json:"records"`
	Skipped   int `json:"skipped"`
	Truncated int `json:"truncated"`
}

// Scan is a restartable enumeration over a store's files. A Scan must not
// be iterated from several goroutines at once.
type Scan struct {
	reader *Reader
	ctx    context.Context
	filter Filter
	match  *matcher
	err    error
	stats  ScanStats
}

// Enumerate returns a Scan yielding records that match f. Nothing is read
// until All is ranged over. An invalid filter yields no records and is
// reported by Err.
func (r *Reader) Enumerate(ctx context.Context, f Filter) *Scan {
	m, err := f.compile()
	return &Scan{reader: r, ctx: ctx, filter: f, match: m, err: err}
}

// Stats returns the counters of the most recent pass.
func (s *Scan) Stats() ScanStats {
	return s.stats
}

// Err returns the filter error, or the first error opening or reading a
// file during the most recent pass. Cancellation is not an error.
func (s *Scan) Err() error {
	return s.err
}

// All returns the records in file order: the active file first, then
// backups by ascending suffix. Each call starts a fresh pass.
func (s *Scan) All() iter.Seq[record.Record] {
	return s.pass(s.reader.files.Existing)
}

// ActiveOnly is All restricted to the active file, which holds the most
// recent records.
func (s *Scan) ActiveOnly() iter.Seq[record.Record] {
	return s.pass(func() []string { return []string{s.reader.files.Active()} })
}

func (s *Scan) pass(paths func() []string) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		if s.match == nil {
			return
		}
		s.stats = ScanStats{}
		s.err = nil
		defer func() {
			metrics.RecordSkippedFrames(metrics.SkipMalformed, s.stats.Skipped)
			metrics.RecordSkippedFrames(metrics.SkipTruncated, s.stats.Truncated)
		}()

		for _, path := range paths() {
			if s.ctx.Err() != nil {
				return
			}
			if !s.scanFile(path, yield) {
				return
			}
		}
	}
}

// scanFile yields the matching records of one file. It returns false when
// iteration must stop.
func (s *Scan) scanFile(path string, yield func(record.Record) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		// Rotated away since Existing was listed.
		if !os.IsNotExist(err) && s.err == nil {
			s.err = errors.NewIOError("open", path, err)
		}
		return true
	}
	defer f.Close()
	s.stats.Files++

	var framer framing.Framer
	defer func() {
		s.stats.Truncated += framer.Dropped()
		if framer.Pending() {
			s.stats.Truncated++
		}
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if s.ctx.Err() != nil {
			framer.Reset()
			return false
		}
		frame, ok := framer.Push(scanner.Bytes())
		if !ok {
			continue
		}
		s.stats.Frames++

		if s.filter.Levels != 0 {
			if level, ok := framing.PeekLevel(frame); ok && !s.filter.Levels.Has(level) {
				continue
			}
		}
		rec, err := framing.Decode(frame)
		if err != nil {
			s.stats.Skipped++
			continue
		}
		if !s.match.match(rec) {
			continue
		}
		s.stats.Records++
		if !yield(rec) {
			framer.Reset()
			return false
		}
	}
	if err := scanner.Err(); err != nil && s.err == nil {
		s.err = errors.NewIOError("read", path, err)
	}
	return true
}

// Collect returns up to limit matching records (0 means all) with the
// stats of the pass.
func (r *Reader) Collect(ctx context.Context, f Filter, limit int) ([]record.Record, ScanStats, error) {
	scan := r.Enumerate(ctx, f)
	var out []record.Record
	for rec := range scan.All() {
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, scan.Stats(), scan.Err()
}

// copyFile appends the raw bytes of path to w.
func copyFile(ctx context.Context, w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.NewIOError("open", path, err)
	}
	defer f.Close()

	n, err := io.Copy(w, &ctxReader{ctx: ctx, r: f})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, ctxErr
		}
		return n, errors.NewIOError("read", path, err)
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
