// Package store implements the rotating file store: it appends encoded
// records to an active file and rotates it into numbered backups by size or
// by calendar day.
//
// Every Store targeting the same folder shares one lock from the
// process-wide filelock registry, so opening, writing, flushing and renaming
// are totally ordered across stores and goroutines. File system failures
// never escape Append; they go to a FallbackSink and the store reopens
// lazily on the next call.
package store

import (
	"bufio"
	"os"
	"time"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/filelock"
	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/metrics"
	"github.com/Iron-Ham/linelog/internal/record"
)

const writeBufferSize = 32 * 1024

// FallbackSink receives failures the store swallows.
type FallbackSink interface {
	Failure(op, path string, err error)
}

type discardSink struct{}

func (discardSink) Failure(string, string, error) {}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for day rotation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLockRegistry uses reg instead of the process-wide registry.
func WithLockRegistry(reg *filelock.Registry) Option {
	return func(s *Store) {
		s.locks = reg
	}
}

// Store appends records to a rotating set of files. It is safe for
// concurrent use.
type Store struct {
	opts  Options
	files FileSet
	sink  FallbackSink
	now   func() time.Time
	locks *filelock.Registry
	lock  *filelock.Handle

	// Guarded by lock.
	file   *os.File
	w      *bufio.Writer
	day    int64 // day ordinal of the last write on the open handle
	pos    int64 // bytes written through the open handle, buffered included
	buf    []byte
	closed bool
}

// New validates opts, creates the folder and registers the store with the
// folder lock. The active file is opened lazily by the first Append.
func New(opts Options, sink FallbackSink, options ...Option) (*Store, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = discardSink{}
	}

	if err := os.MkdirAll(opts.FolderPath, 0o755); err != nil {
		return nil, errors.NewConfigError("cannot create log folder").
			WithField("FolderPath").
			WithValue(opts.FolderPath).
			WithCause(errors.Join(errors.ErrInvalidFolder, err))
	}
	if info, err := os.Stat(opts.FolderPath); err != nil || !info.IsDir() {
		return nil, errors.NewConfigError("log folder is not a directory").
			WithField("FolderPath").
			WithValue(opts.FolderPath).
			WithCause(errors.ErrInvalidFolder)
	}

	s := &Store{
		opts:  opts,
		sink:  sink,
		now:   time.Now,
		locks: filelock.Process(),
	}
	for _, opt := range options {
		opt(s)
	}

	lock, err := s.locks.Acquire(opts.FolderPath)
	if err != nil {
		return nil, errors.NewConfigError("cannot lock log folder").
			WithField("FolderPath").
			WithValue(opts.FolderPath).
			WithCause(err)
	}
	s.lock = lock
	s.files = NewFileSet(lock.Folder(), opts.LogFilename)
	return s, nil
}

// Options returns the normalized options.
func (s *Store) Options() Options {
	return s.opts
}

// MinLevel returns the threshold loggers should apply.
func (s *Store) MinLevel() record.Level {
	return s.opts.MinLevel
}

// Files returns the naming helper for this store's files.
func (s *Store) Files() FileSet {
	return s.files
}

// Append encodes r and writes it to the active file, rotating first when a
// trigger fires. Failures are reported to the fallback sink.
func (s *Store) Append(r record.Record) {
	// LevelNone and out-of-range levels cannot be decoded again.
	if r.Level < record.LevelTrace || r.Level >= record.LevelNone {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	started := time.Now()
	if s.closed {
		s.sink.Failure("append", s.files.Active(), errors.ErrStoreClosed)
		return
	}

	today := dayOrdinal(s.now())
	if s.w == nil {
		if !s.openLocked(today) {
			return
		}
	} else if trigger := s.triggerLocked(today); trigger != "" {
		s.closeHandleLocked()
		if err := s.rotateLocked(); err != nil {
			s.sink.Failure("rotate", s.files.Active(), err)
			return
		}
		metrics.RecordRotation(trigger)
		if !s.createLocked(today) {
			return
		}
	}

	var err error
	s.buf, err = framing.Append(s.buf[:0], r, s.opts.Format)
	if err != nil {
		s.sink.Failure("encode", s.files.Active(), err)
		return
	}

	n, err := s.w.Write(s.buf)
	s.pos += int64(n)
	if err != nil {
		s.sink.Failure("write", s.files.Active(), errors.NewIOError("write", s.files.Active(), err))
		s.dropHandleLocked()
		return
	}
	s.day = today

	if r.Level >= s.opts.AutoFlushLevel {
		if err := s.w.Flush(); err != nil {
			s.sink.Failure("flush", s.files.Active(), errors.NewIOError("flush", s.files.Active(), err))
			s.dropHandleLocked()
			return
		}
	}

	metrics.RecordAppend(r.Level, n, time.Since(started))
}

// triggerLocked returns the rotation trigger for the open handle, or "".
func (s *Store) triggerLocked(today int64) string {
	if s.opts.DayToKeep > 0 && today != s.day {
		return metrics.TriggerDay
	}
	if s.opts.MaxFileSizeInByte > 0 && s.pos > s.opts.MaxFileSizeInByte {
		return metrics.TriggerSize
	}
	return ""
}

// openLocked opens the active file when no handle is held, superseding it
// first if it is from another day or already over the size limit.
func (s *Store) openLocked(today int64) bool {
	path := s.files.Active()
	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		s.sink.Failure("stat", path, errors.NewIOError("stat", path, err))
		return false
	}

	if err == nil {
		superseded := (s.opts.DayToKeep > 0 && dayOrdinal(info.ModTime()) != today) ||
			(s.opts.MaxFileSizeInByte > 0 && info.Size() > s.opts.MaxFileSizeInByte)
		if !superseded {
			return s.attachLocked(path, os.O_APPEND, dayOrdinal(info.ModTime()))
		}
		if err := s.rotateLocked(); err != nil {
			s.sink.Failure("rotate", path, err)
			return false
		}
		metrics.RecordRotation(metrics.TriggerStartup)
	}
	return s.createLocked(today)
}

// createLocked starts a fresh active file.
func (s *Store) createLocked(today int64) bool {
	return s.attachLocked(s.files.Active(), os.O_TRUNC, today)
}

func (s *Store) attachLocked(path string, mode int, day int64) bool {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		s.sink.Failure("open", path, errors.NewIOError("open", path, err))
		return false
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		s.sink.Failure("stat", path, errors.NewIOError("stat", path, err))
		return false
	}

	s.file = f
	s.w = bufio.NewWriterSize(f, writeBufferSize)
	s.pos = info.Size()
	s.day = day
	return true
}

// closeHandleLocked flushes and closes the open handle. Failures are
// reported; the handle is gone either way.
func (s *Store) closeHandleLocked() {
	if s.w == nil {
		return
	}
	path := s.files.Active()
	if err := s.w.Flush(); err != nil {
		s.sink.Failure("flush", path, errors.NewIOError("flush", path, err))
	}
	if err := s.file.Close(); err != nil {
		s.sink.Failure("close", path, errors.NewIOError("close", path, err))
	}
	s.file, s.w = nil, nil
}

// dropHandleLocked abandons the open handle after a failed write.
func (s *Store) dropHandleLocked() {
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file, s.w = nil, nil
}

// RotateBackups closes the open handle and shifts every backup up by one,
// turning the active file into backup 1 and discarding backup DayToKeep.
// With DayToKeep 0 the active file is deleted. The next Append starts a
// fresh active file. A closed store no longer holds the folder lock and
// returns ErrStoreClosed.
func (s *Store) RotateBackups() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return errors.ErrStoreClosed
	}
	s.closeHandleLocked()
	return s.rotateLocked()
}

// rotateLocked works highest index first so every rename target has just
// been vacated.
func (s *Store) rotateLocked() error {
	keep := s.opts.DayToKeep

	oldest := s.files.Backup(keep)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("remove", oldest, err)
	}

	for i := keep - 1; i >= 0; i-- {
		from := s.files.Backup(i)
		if _, err := os.Stat(from); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.NewIOError("stat", from, err)
		}
		to := s.files.Backup(i + 1)
		if err := os.Rename(from, to); err != nil {
			return errors.NewIOError("rename", from, err)
		}
	}
	return nil
}

// Flush writes buffered records to the active file.
func (s *Store) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return errors.ErrStoreClosed
	}
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		ioErr := errors.NewIOError("flush", s.files.Active(), err)
		s.sink.Failure("flush", s.files.Active(), ioErr)
		s.dropHandleLocked()
		return ioErr
	}
	return nil
}

// Close flushes and closes the active file and releases the folder lock.
// Later Appends are reported to the fallback sink and dropped.
func (s *Store) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true

	var errs []error
	if s.w != nil {
		path := s.files.Active()
		if err := s.w.Flush(); err != nil {
			errs = append(errs, errors.NewIOError("flush", path, err))
		}
		if err := s.file.Close(); err != nil {
			errs = append(errs, errors.NewIOError("close", path, err))
		}
		s.file, s.w = nil, nil
	}
	s.lock.Unlock()

	if err := s.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// dayOrdinal numbers local calendar days.
func dayOrdinal(t time.Time) int64 {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
