package cmd

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Iron-Ham/linelog/internal/api"
	"github.com/Iron-Ham/linelog/internal/record"
	"github.com/Iron-Ham/linelog/internal/testutil"
)

// setupEnv points configuration at a fresh log folder through the
// environment and returns that folder.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("LINELOG_LOG_FOLDER_PATH", logs)
	t.Setenv("LINELOG_APP_ROOT_NAME", "MyApp")
	t.Setenv("LINELOG_APP_ROOT_NAMESPACE", "MyApp")
	t.Setenv("LINELOG_DIAG_LEVEL", "disabled")
	return logs
}

// execute runs a fresh command tree with args.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func writeSample(t *testing.T) {
	t.Helper()
	mustExecute(t, "write", "deployed", "v2")
	mustExecute(t, "write", "--level", "warning", "--category", "MyApp.Deploy", "rollout paused")
	mustExecute(t, "write", "--level", "error", "--category", "Vendor.Http", "--context", "host=api", "upstream down")
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	if root.Use != "linelog" {
		t.Errorf("root.Use = %q, want linelog", root.Use)
	}

	want := []string{"serve", "query", "tail", "export", "write", "config"}
	have := make(map[string]bool)
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestWriteAndQuery(t *testing.T) {
	setupEnv(t)
	writeSample(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "all records",
			args: []string{"query"},
			want: []string{"INF deployed v2", "WRN MyApp.Deploy rollout paused", "ERR Vendor.Http upstream down", "context: host=api"},
		},
		{
			name:    "level letters",
			args:    []string{"query", "--levels", "W"},
			want:    []string{"rollout paused"},
			notWant: []string{"deployed", "upstream"},
		},
		{
			name:    "minimum level",
			args:    []string{"query", "--min-level", "warning", "--full=false"},
			want:    []string{"rollout paused", "upstream down"},
			notWant: []string{"deployed", "context:"},
		},
		{
			name:    "category glob",
			args:    []string{"query", "--category", "MyApp.**"},
			want:    []string{"rollout paused"},
			notWant: []string{"upstream"},
		},
		{
			name:    "limit",
			args:    []string{"query", "-n", "1"},
			want:    []string{"deployed v2"},
			notWant: []string{"rollout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustExecute(t, tt.args...)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestQuery_JSONAndStats(t *testing.T) {
	setupEnv(t)
	writeSample(t)

	out, errOut, err := execute(t, "query", "--json", "--stats", "--side", "server")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var got []api.RecordJSON
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var r api.RecordJSON
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != 3 {
		t.Fatalf("got %d JSON records, want 3", len(got))
	}
	if got[1].Level != "Warning" || got[1].Category != "MyApp.Deploy" || !got[1].IsAppCategory {
		t.Errorf("second record = %+v", got[1])
	}
	if got[2].StackTrace == "" {
		t.Error("error record should carry a captured stack trace")
	}
	if !strings.Contains(errOut, "files=1 frames=3 records=3") {
		t.Errorf("stats = %q", errOut)
	}
}

func TestQuery_InvalidFlags(t *testing.T) {
	setupEnv(t)

	tests := [][]string{
		{"query", "--levels", "EW", "--min-level", "error"},
		{"query", "--levels", "Q"},
		{"query", "--min-level", "none"},
		{"query", "--side", "middle"},
		{"query", "--since", "last tuesday"},
		{"query", "--category", "MyApp.[x"},
		{"query", "-n", "-1"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			if _, _, err := execute(t, args...); err == nil {
				t.Errorf("%v should fail", args)
			}
		})
	}
}

func TestWrite_BelowMinimumLevel(t *testing.T) {
	logs := setupEnv(t)

	_, errOut, err := execute(t, "write", "--level", "debug", "too quiet")
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(errOut, "Record dropped") {
		t.Errorf("stderr = %q, want a drop notice", errOut)
	}
	if testutil.FileExists(t, filepath.Join(logs, "MyApp.log")) {
		t.Error("a dropped record should not create the log file")
	}
}

func TestWrite_RejectsLevelNone(t *testing.T) {
	setupEnv(t)
	if _, _, err := execute(t, "write", "--level", "none", "x"); err == nil {
		t.Error("write --level none should fail")
	}
}

func TestTail(t *testing.T) {
	setupEnv(t)
	writeSample(t)

	out := mustExecute(t, "tail", "-n", "2", "--full=false")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "rollout paused") || !strings.Contains(lines[1], "upstream down") {
		t.Errorf("tail output = %q", lines)
	}

	if out := mustExecute(t, "tail", "-n", "0"); out != "" {
		t.Errorf("tail -n 0 output = %q, want empty", out)
	}
}

func TestExport(t *testing.T) {
	logs := setupEnv(t)
	writeSample(t)

	archive := filepath.Join(t.TempDir(), "logs.gz")
	_, errOut, err := execute(t, "export", "-o", archive)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(errOut, archive) {
		t.Errorf("stderr = %q, want the archive path", errOut)
	}

	f, err := os.Open(archive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if want := testutil.ReadFile(t, filepath.Join(logs, "MyApp.log")); string(raw) != want {
		t.Errorf("archive content differs from the active file")
	}

	if _, _, err := execute(t, "export", "-o", archive); err == nil {
		t.Error("export should refuse to overwrite an existing archive")
	}
}

func TestConfigCommands(t *testing.T) {
	setupEnv(t)

	out := mustExecute(t, "config", "show")
	for _, want := range []string{"(none - using defaults)", "max_file_size: 10M", "root_name: MyApp"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}

	out = mustExecute(t, "config", "path")
	if !strings.Contains(out, "Default path:") || !strings.Contains(out, "LINELOG_") {
		t.Errorf("config path output = %q", out)
	}

	path := filepath.Join(t.TempDir(), "linelog.yaml")
	mustExecute(t, "config", "init", path)
	if _, _, err := execute(t, "config", "init", path); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}
	mustExecute(t, "config", "init", "--force", path)

	out = mustExecute(t, "--config", path, "config", "path")
	if !strings.Contains(out, "Active config: "+path) {
		t.Errorf("config path with --config = %q", out)
	}
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	setupEnv(t)
	if _, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "query"); err == nil {
		t.Error("a missing --config file should fail")
	}
}

func TestConfig_InvalidValue(t *testing.T) {
	setupEnv(t)
	t.Setenv("LINELOG_LOG_MAX_FILE_SIZE", "lots")
	if _, _, err := execute(t, "query"); err == nil {
		t.Error("an invalid max_file_size should fail")
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"1h", now.Add(-time.Hour), false},
		{"90m", now.Add(-90 * time.Minute), false},
		{"2024-03-09T08:00:00Z", time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC), false},
		{"-1h", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTimeFlag(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPrinter_Format(t *testing.T) {
	r := record.Record{
		Level:      record.LevelError,
		Time:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Side:       record.SideClient,
		Category:   "Web.Checkout",
		Context:    "browser=firefox",
		Message:    "TypeError\n(repeated 3 times)",
		StackTrace: "at a.js:1\nat b.js:2",
	}

	var buf bytes.Buffer
	full := newPrinter(&buf, false, true)
	want := "2024-03-10 12:00:00 +00:00 ERR client Web.Checkout TypeError\n" +
		"    (repeated 3 times)\n" +
		"    context: browser=firefox\n" +
		"    at a.js:1\n" +
		"    at b.js:2\n"
	if got := full.format(r); got != want {
		t.Errorf("full format =\n%q\nwant\n%q", got, want)
	}

	short := newPrinter(&buf, false, false)
	if got := short.format(r); got != "2024-03-10 12:00:00 +00:00 ERR client Web.Checkout TypeError\n" {
		t.Errorf("short format = %q", got)
	}

	short.width = 30
	if got := short.format(r); !strings.HasSuffix(got, "...\n") || len(got) > 31 {
		t.Errorf("truncated format = %q", got)
	}
}
