package reader

import (
	"bytes"
	"context"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/record"
	"github.com/Iron-Ham/linelog/internal/store"
)

// followPoll catches appends that arrive without a file system event, such
// as writes on platforms where the watcher coalesces aggressively.
const followPoll = time.Second

// follower tracks the read position in the active file across rotations.
// It keeps the file open so records flushed into it right before it is
// renamed away are still read.
type follower struct {
	files  store.FileSet
	match  *matcher
	levels LevelSet
	file   *os.File
	info   os.FileInfo
	offset int64
	carry  []byte
	framer framing.Framer
}

// Follow calls fn for every matching record appended to the active file
// after the call, until ctx is done or fn returns an error. When fromStart
// is set the current content of the active file is replayed first. A
// rotation is detected by file identity: the old file is read to its end,
// then any backups rotated out since, then the new active file from the top.
func (r *Reader) Follow(ctx context.Context, f Filter, fromStart bool, fn func(record.Record) error) error {
	m, err := f.compile()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(r.files.Folder()); err != nil {
		return errors.NewIOError("watch", r.files.Folder(), err)
	}

	fw := &follower{files: r.files, match: m, levels: f.Levels}
	defer fw.close()
	if !fromStart {
		if err := fw.open(fw.files.Active(), true); err != nil {
			return err
		}
	}
	if err := fw.poll(fn); err != nil {
		return err
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != fw.files.Active() {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if err := fw.poll(fn); err != nil {
				return err
			}

		case <-ticker.C:
			if err := fw.poll(fn); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch log folder")
		}
	}
}

// poll reads whatever was appended since the last call.
func (fw *follower) poll(fn func(record.Record) error) error {
	path := fw.files.Active()
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError("stat", path, err)
		}
		info = nil
	}

	if fw.file != nil {
		if err := fw.drain(fn); err != nil {
			return err
		}
		// A missing active file means a rotation has not been followed by
		// an append yet; keep the old file until a new one shows up.
		if info == nil || os.SameFile(fw.info, info) {
			return nil
		}
		newer := fw.rotatedSince()
		fw.close()
		for _, p := range newer {
			if err := fw.open(p, false); err != nil {
				return err
			}
			if err := fw.drain(fn); err != nil {
				return err
			}
			fw.close()
		}
	}
	if info == nil {
		return nil
	}

	if err := fw.open(path, false); err != nil {
		return err
	}
	return fw.drain(fn)
}

// rotatedSince returns the backups rotated out after the followed file,
// oldest first. It is empty when the followed file is no longer on disk.
func (fw *follower) rotatedSince() []string {
	var newer []string
	for _, p := range fw.files.Existing() {
		if p == fw.files.Active() {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if os.SameFile(fw.info, info) {
			slices.Reverse(newer)
			return newer
		}
		newer = append(newer, p)
	}
	return nil
}

// open starts following path, at its end when skip is set. A missing file
// is not an error.
func (fw *follower) open(path string, skip bool) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError("open", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.NewIOError("stat", path, err)
	}

	fw.file, fw.info = file, info
	fw.offset = 0
	if skip {
		fw.offset = info.Size()
	}
	fw.carry = fw.carry[:0]
	fw.framer.Reset()
	return nil
}

func (fw *follower) close() {
	if fw.file != nil {
		_ = fw.file.Close()
	}
	fw.file, fw.info = nil, nil
}

// drain reads the followed file from the saved offset to its end.
func (fw *follower) drain(fn func(record.Record) error) error {
	name := fw.file.Name()
	info, err := fw.file.Stat()
	if err != nil {
		return errors.NewIOError("stat", name, err)
	}
	if info.Size() < fw.offset {
		// Truncated in place.
		fw.offset = 0
		fw.carry = fw.carry[:0]
		fw.framer.Reset()
	}
	if info.Size() == fw.offset {
		return nil
	}

	if _, err := fw.file.Seek(fw.offset, io.SeekStart); err != nil {
		return errors.NewIOError("seek", name, err)
	}
	data, err := io.ReadAll(fw.file)
	if err != nil {
		return errors.NewIOError("read", name, err)
	}
	fw.offset += int64(len(data))
	fw.carry = append(fw.carry, data...)

	for {
		i := bytes.IndexByte(fw.carry, '\n')
		if i < 0 {
			break
		}
		line := fw.carry[:i]
		frame, ok := fw.framer.Push(line)
		fw.carry = fw.carry[i+1:]
		if !ok {
			continue
		}
		if fw.levels != 0 {
			if level, ok := framing.PeekLevel(frame); ok && !fw.levels.Has(level) {
				continue
			}
		}
		rec, err := framing.Decode(frame)
		if err != nil || !fw.match.match(rec) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	fw.carry = append([]byte(nil), fw.carry...)
	return nil
}
