package framing

import (
	"bytes"

	"github.com/Iron-Ham/linelog/internal/record"
)

// Framer accumulates physical lines until one ends with '}', at which point
// the buffered lines form one complete frame. It works for both layouts and
// never runs a tokenizer over the text.
//
// A line beginning with '{' while a frame is pending means the previous
// record was cut short (an interrupted write followed by a fresh append);
// the partial frame is dropped and counted.
type Framer struct {
	buf     bytes.Buffer
	dropped int
}

// Push adds one physical line (without its terminating newline). It returns
// the completed frame and true when the line closes a record. The returned
// slice is owned by the caller.
func (f *Framer) Push(line []byte) ([]byte, bool) {
	trimmed := bytes.TrimRight(line, " \t\r")
	if f.buf.Len() == 0 && len(trimmed) == 0 {
		return nil, false
	}
	if f.buf.Len() > 0 && len(trimmed) > 0 && trimmed[0] == '{' {
		f.buf.Reset()
		f.dropped++
	}

	f.buf.Write(trimmed)
	f.buf.WriteByte('\n')

	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != '}' {
		return nil, false
	}

	frame := bytes.Clone(f.buf.Bytes())
	f.buf.Reset()
	return frame, true
}

// Pending reports whether lines are buffered without a closing '}'.
func (f *Framer) Pending() bool {
	return f.buf.Len() > 0
}

// Dropped returns how many partial frames were discarded because a new
// record started before they closed.
func (f *Framer) Dropped() int {
	return f.dropped
}

// Reset discards any pending lines, e.g. at the end of a file.
func (f *Framer) Reset() {
	f.buf.Reset()
}

// Split cuts a byte stream into frames. An unterminated tail is returned
// separately and never decoded.
func Split(data []byte) (frames [][]byte, tail []byte) {
	var f Framer
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if frame, ok := f.Push(line); ok {
			frames = append(frames, frame)
		}
	}
	if f.Pending() {
		tail = bytes.Clone(f.buf.Bytes())
	}
	return frames, tail
}

var levelKey = []byte(`"Level"`)

// PeekLevel reads the Level value of a frame without decoding it. It
// returns false when the key is missing or its value is not a known level.
func PeekLevel(frame []byte) (record.Level, bool) {
	i := bytes.Index(frame, levelKey)
	if i < 0 {
		return record.LevelNone, false
	}
	rest := bytes.TrimLeft(frame[i+len(levelKey):], " \t")
	if len(rest) == 0 || rest[0] != ':' {
		return record.LevelNone, false
	}
	rest = bytes.TrimLeft(rest[1:], " \t")
	if len(rest) == 0 || rest[0] != '"' {
		return record.LevelNone, false
	}
	rest = rest[1:]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return record.LevelNone, false
	}
	level, err := record.ParseLevel(string(rest[:end]))
	if err != nil || level == record.LevelNone {
		return record.LevelNone, false
	}
	return level, true
}
