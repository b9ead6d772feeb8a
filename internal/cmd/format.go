package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/Iron-Ham/linelog/internal/api"
	"github.com/Iron-Ham/linelog/internal/record"
	"github.com/Iron-Ham/linelog/internal/util"
)

const (
	timeLayout   = "2006-01-02 15:04:05 -07:00"
	detailIndent = "    "
)

// printer writes records for a human or, with asJSON, one JSON object per
// line.
type printer struct {
	w      io.Writer
	asJSON bool
	// width truncates the header line; zero leaves it whole.
	width int
	full  bool

	levels   map[record.Level]lipgloss.Style
	muted    lipgloss.Style
	category lipgloss.Style
	client   lipgloss.Style
}

// newPrinter returns a printer for w. Colors follow the terminal behind w,
// and header lines are fitted to its width when it is one.
func newPrinter(w io.Writer, asJSON, full bool) *printer {
	r := lipgloss.NewRenderer(w)
	p := &printer{
		w:        w,
		asJSON:   asJSON,
		full:     full,
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		category: r.NewStyle().Foreground(lipgloss.Color("6")),
		client:   r.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		levels: map[record.Level]lipgloss.Style{
			record.LevelTrace:       r.NewStyle().Foreground(lipgloss.Color("8")),
			record.LevelDebug:       r.NewStyle().Foreground(lipgloss.Color("4")),
			record.LevelInformation: r.NewStyle().Foreground(lipgloss.Color("2")),
			record.LevelWarning:     r.NewStyle().Foreground(lipgloss.Color("3")),
			record.LevelError:       r.NewStyle().Foreground(lipgloss.Color("1")),
			record.LevelCritical:    r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

// levelTag is the fixed-width label shown for a level.
func levelTag(l record.Level) string {
	switch l {
	case record.LevelTrace:
		return "TRC"
	case record.LevelDebug:
		return "DBG"
	case record.LevelInformation:
		return "INF"
	case record.LevelWarning:
		return "WRN"
	case record.LevelError:
		return "ERR"
	case record.LevelCritical:
		return "CRT"
	default:
		return "???"
	}
}

func (p *printer) print(r record.Record) error {
	if p.asJSON {
		data, err := json.Marshal(api.NewRecordJSON(r))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", data)
		return err
	}
	_, err := io.WriteString(p.w, p.format(r))
	return err
}

// format renders r as a header line followed, in full mode, by the rest of
// the message, the context and the stack trace indented below it.
func (p *printer) format(r record.Record) string {
	first, rest := util.SplitFirstLine(r.Message)

	var sb strings.Builder
	sb.WriteString(p.muted.Render(r.Time.Format(timeLayout)))
	sb.WriteByte(' ')
	sb.WriteString(p.levels[r.Level].Render(levelTag(r.Level)))
	if r.Side == record.SideClient {
		sb.WriteByte(' ')
		sb.WriteString(p.client.Render("client"))
	}
	if r.Category != "" {
		sb.WriteByte(' ')
		sb.WriteString(p.category.Render(r.Category))
	}
	sb.WriteByte(' ')
	sb.WriteString(first)

	out := util.TruncateANSI(sb.String(), p.width) + "\n"
	if !p.full {
		return out
	}

	if rest != "" {
		out += util.IndentLines(rest, detailIndent) + "\n"
	}
	if r.Context != "" {
		out += renderLines(p.muted, util.IndentLines("context: "+r.Context, detailIndent))
	}
	if r.StackTrace != "" {
		out += renderLines(p.muted, util.IndentLines(r.StackTrace, detailIndent))
	}
	return out
}

// renderLines styles each line on its own so lines are not padded to a
// common width.
func renderLines(style lipgloss.Style, s string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(s, "\n") {
		sb.WriteString(style.Render(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// parseTimeFlag accepts an RFC 3339 time or a duration meaning "that long
// before now".
func parseTimeFlag(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration %q must not be negative", v)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use a duration like 1h or an RFC 3339 time", v)
	}
	return t, nil
}
