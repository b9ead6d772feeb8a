// Package framing implements the on-disk encoding of log records.
//
// Each record is one JSON object with a fixed key order. Multi-line fields
// (Context, Message, Stack) are written as arrays of single-line strings, so
// that inside a record no physical line can end with '}' except the line
// closing the object. A reader finds record boundaries by scanning lines
// (see Framer) and only decodes complete frames.
//
// Two layouts share that property: FormatIndented pretty-prints each record
// over several lines, FormatSingleLine writes one record per line.
package framing

import (
	"bytes"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/record"
)

// TimeLayout is the on-disk time format: second precision with a numeric
// zone offset, e.g. 2024-03-01T14:05:09+01:00.
const TimeLayout = "2006-01-02T15:04:05-07:00"

// Format selects the physical layout of encoded records.
type Format int

const (
	// FormatIndented spreads a record over several human-browsable lines.
	FormatIndented Format = iota
	// FormatSingleLine writes exactly one record per physical line.
	FormatSingleLine
)

// String returns the configuration name of the format.
func (f Format) String() string {
	if f == FormatSingleLine {
		return "single-line"
	}
	return "indented"
}

// ParseFormat converts a configuration name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "indented", "indent", "":
		return FormatIndented, nil
	case "single-line", "singleline", "single", "compact":
		return FormatSingleLine, nil
	default:
		return FormatIndented, errors.NewConfigError("expected indented or single-line").
			WithField("format").WithValue(s).WithCause(errors.ErrInvalidFormat)
	}
}

// lines is a multi-line text field. It encodes as an array of lines and
// decodes from either an array or a legacy single string.
type lines []string

func splitLines(s string) lines {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
}

func (l lines) text() string {
	return strings.Join(l, "\n")
}

// UnmarshalJSON accepts null, a string, or an array of strings.
func (l *lines) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = lines{strings.ReplaceAll(s, "\r", "")}
		return nil
	default:
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
}

// wireRecord fixes the key order on disk. Side is only written for client
// records and App only when true.
type wireRecord struct {
	Level    string `json:"Level"`
	Time     string `json:"Time"`
	Side     string `json:"Side,omitempty"`
	App      bool   `json:"App,omitempty"`
	Category string `json:"Category,omitempty"`
	Context  lines  `json:"Context,omitempty"`
	Message  lines  `json:"Message"`
	Stack    lines  `json:"Stack,omitempty"`
}

// readRecord mirrors wireRecord for decoding; Category is a pointer so an
// absent key can be told apart from an empty one.
type readRecord struct {
	Level    string  `json:"Level"`
	Time     string  `json:"Time"`
	Side     string  `json:"Side"`
	App      bool    `json:"App"`
	Category *string `json:"Category"`
	Context  lines   `json:"Context"`
	Message  lines   `json:"Message"`
	Stack    lines   `json:"Stack"`
}

func toWire(r record.Record) wireRecord {
	w := wireRecord{
		Level:    r.Level.String(),
		Time:     r.Time.Format(TimeLayout),
		App:      r.IsAppCategory,
		Category: r.Category,
		Context:  splitLines(r.Context),
		Message:  splitLines(r.Message),
		Stack:    splitLines(r.StackTrace),
	}
	if r.Side == record.SideClient {
		w.Side = r.Side.String()
	}
	if w.Message == nil {
		w.Message = lines{""}
	}
	return w
}

// Append encodes r in the given layout and appends it, newline-terminated,
// to dst.
func Append(dst []byte, r record.Record, format Format) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if format == FormatIndented {
		enc.SetIndent("", "  ")
	}
	// Encode terminates the value with '\n'.
	if err := enc.Encode(toWire(r)); err != nil {
		return dst, errors.Wrapf(err, "encode %s record", r.Level)
	}
	return buf.Bytes(), nil
}

// Encode returns r encoded in the given layout, newline-terminated.
func Encode(r record.Record, format Format) ([]byte, error) {
	return Append(nil, r, format)
}

// Decode parses one frame produced by Encode in either layout.
func Decode(frame []byte) (record.Record, error) {
	var w readRecord
	if err := json.Unmarshal(frame, &w); err != nil {
		return record.Record{}, errors.Wrap(errors.Join(errors.ErrMalformedRecord, err), "decode frame")
	}

	level, err := record.ParseLevel(w.Level)
	if err != nil || level == record.LevelNone {
		return record.Record{}, errors.Wrapf(errors.ErrMalformedRecord, "level %q", w.Level)
	}

	ts, err := parseTime(w.Time)
	if err != nil {
		return record.Record{}, errors.Wrapf(errors.ErrMalformedRecord, "time %q", w.Time)
	}

	r := record.Record{
		Level:      level,
		Time:       ts,
		Side:       record.SideServer,
		Context:    w.Context.text(),
		Message:    w.Message.text(),
		StackTrace: w.Stack.text(),
	}
	if strings.EqualFold(w.Side, "client") {
		r.Side = record.SideClient
	}
	if w.Category == nil {
		r.IsAppCategory = true
	} else {
		r.Category = *w.Category
		r.IsAppCategory = w.App
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
