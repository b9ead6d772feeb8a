package logging

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/record"
)

// memSink collects appended records in memory.
type memSink struct {
	mu      sync.Mutex
	min     record.Level
	records []record.Record
}

func (s *memSink) Append(r record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *memSink) MinLevel() record.Level { return s.min }

func (s *memSink) all() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Record(nil), s.records...)
}

var testHost = Host{RootName: "MyApp", RootNamespace: "MyApp"}

var fixedNow = time.Date(2024, 3, 10, 12, 30, 45, 987654321, time.UTC)

func TestHost_Classify(t *testing.T) {
	tests := []struct {
		category  string
		wantCat   string
		wantIsApp bool
	}{
		{"", "", true},
		{"  ", "", true},
		{"MyApp", "", true},
		{"MyApp.Billing", "MyApp.Billing", true},
		{"Vendor.Http", "Vendor.Http", false},
		{"myapp.Billing", "myapp.Billing", false},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			cat, isApp := testHost.Classify(tt.category)
			if cat != tt.wantCat || isApp != tt.wantIsApp {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.category, cat, isApp, tt.wantCat, tt.wantIsApp)
			}
		})
	}

	if _, isApp := (Host{RootName: "MyApp"}).Classify("MyApp.Billing"); isApp {
		t.Error("without a root namespace only the root category is an app category")
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry(&memSink{}, testHost)

	a := reg.Logger("MyApp.Billing")
	b := reg.Logger("MyApp.Billing")
	if a != b {
		t.Error("same category should return the same logger")
	}
	if reg.Logger("") != reg.Logger("MyApp") {
		t.Error("root name and empty category should share a logger")
	}
	if reg.Root().Category() != "" || !reg.Root().IsAppCategory() {
		t.Error("root logger should have no category and be an app category")
	}

	got := reg.Categories()
	if len(got) != 2 || got[0] != "" || got[1] != "MyApp.Billing" {
		t.Errorf("Categories() = %q", got)
	}
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	var created int
	var mu sync.Mutex
	reg := NewRegistry(&memSink{}, testHost, WithFactory(func(sink Sink, category string, isApp bool) *Logger {
		mu.Lock()
		created++
		mu.Unlock()
		return NewLogger(sink, category, isApp)
	}))

	const workers = 32
	loggers := make([]*Logger, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loggers[i] = reg.Logger("MyApp.Hot")
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if loggers[i] != loggers[0] {
			t.Fatal("concurrent callers observed different loggers")
		}
	}
	if created != 1 {
		t.Errorf("factory called %d times, want 1", created)
	}
}

func TestLogger_MinLevel(t *testing.T) {
	sink := &memSink{min: record.LevelWarning}
	log := NewRegistry(sink, testHost).Logger("MyApp.Billing")

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown", nil)
	log.Log(record.LevelNone, "never", nil)

	got := sink.all()
	if len(got) != 1 || got[0].Message != "shown" {
		t.Errorf("records = %+v, want only the warning", got)
	}
	if log.Enabled(record.LevelInformation) || !log.Enabled(record.LevelCritical) {
		t.Error("Enabled should follow the sink's minimum level")
	}
}

func TestLogger_MinLevelNoneDisables(t *testing.T) {
	sink := &memSink{min: record.LevelNone}
	log := NewLogger(sink, "", true)

	log.Critical("boom", nil)
	if len(sink.all()) != 0 {
		t.Error("MinLevel None should disable logging")
	}
}

func TestLogger_UserFacingFaultsAreDropped(t *testing.T) {
	sink := &memSink{}
	log := NewLogger(sink, "MyApp.Billing", true)

	log.Error("payment declined", errors.NewUserError("card declined"))
	log.Error("wrapped", errors.Wrap(errors.NewUserError("card declined"), "charge"))

	if got := sink.all(); len(got) != 0 {
		t.Errorf("user-facing faults were written: %+v", got)
	}
}

func TestLogger_ServerRecord(t *testing.T) {
	sink := &memSink{}
	log := NewLogger(sink, "MyApp.Billing", true).
		WithContext("tenant=acme").
		WithClock(func() time.Time { return fixedNow })

	log.Info("invoice sent")

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	want := record.Record{
		Level:         record.LevelInformation,
		Time:          fixedNow.Truncate(time.Second),
		Side:          record.SideServer,
		Category:      "MyApp.Billing",
		IsAppCategory: true,
		Context:       "tenant=acme",
		Message:       "invoice sent",
	}
	if !got[0].Equal(want) {
		t.Errorf("record = %+v, want %+v", got[0], want)
	}
}

func TestLogger_StackTrace(t *testing.T) {
	tests := []struct {
		name      string
		level     record.Level
		fault     error
		wantStack func(string) bool
	}{
		{
			name:      "fault with own trace",
			level:     record.LevelWarning,
			fault:     errors.WithStack(errors.New("db down")),
			wantStack: func(s string) bool { return strings.Contains(s, "TestLogger_StackTrace") },
		},
		{
			name:      "fault without trace uses its text",
			level:     record.LevelWarning,
			fault:     errors.New("db down"),
			wantStack: func(s string) bool { return s == "db down" },
		},
		{
			name:      "error without fault captures caller",
			level:     record.LevelError,
			wantStack: func(s string) bool { return strings.HasPrefix(s, "at ") && strings.Contains(s, "logCaller") },
		},
		{
			name:      "warning without fault has no trace",
			level:     record.LevelWarning,
			wantStack: func(s string) bool { return s == "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memSink{}
			logCaller(NewLogger(sink, "", true), tt.level, tt.fault)

			got := sink.all()
			if len(got) != 1 {
				t.Fatalf("got %d records, want 1", len(got))
			}
			if !tt.wantStack(got[0].StackTrace) {
				t.Errorf("StackTrace = %q", got[0].StackTrace)
			}
		})
	}
}

// logCaller is a named frame the captured stack must start at.
//
//go:noinline
func logCaller(l *Logger, level record.Level, fault error) {
	l.Log(level, "something failed", fault)
}

func TestLogger_CapturedStackStartsAtCaller(t *testing.T) {
	sink := &memSink{}
	logCaller(NewLogger(sink, "", true), record.LevelCritical, nil)

	first, _, _ := strings.Cut(sink.all()[0].StackTrace, "\n")
	if !strings.Contains(first, "logCaller") {
		t.Errorf("first frame = %q, want logCaller", first)
	}
}

func TestLogger_MessageFallsBackToFault(t *testing.T) {
	sink := &memSink{}
	NewLogger(sink, "", true).Error("", errors.New("db down"))

	if got := sink.all()[0].Message; got != "db down" {
		t.Errorf("Message = %q, want fault text", got)
	}
}

func TestLogger_ClientFault(t *testing.T) {
	sink := &memSink{}
	log := NewRegistry(sink, testHost).Logger("MyApp.Api")

	clientTime := time.Date(2024, 3, 9, 8, 0, 0, 0, time.FixedZone("", -5*3600))
	cr := record.NewClientRecord(record.Record{
		Level:         record.LevelError,
		Time:          clientTime,
		Category:      "Web.Checkout",
		IsAppCategory: false,
		Context:       "browser=firefox",
		Message:       "TypeError: x is undefined",
		StackTrace:    "at checkout.js:10",
	})
	log.Warn("client reported", errors.NewClientFault(cr))

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.Side != record.SideClient || r.Level != record.LevelWarning {
		t.Errorf("Side/Level = %v/%v, want Client/Warning", r.Side, r.Level)
	}
	if !r.Time.Equal(clientTime) || r.Category != "Web.Checkout" || r.IsAppCategory {
		t.Errorf("record lost client metadata: %+v", r)
	}
	if r.Message != cr.Message || r.StackTrace != cr.StackTrace || r.Context != cr.Context {
		t.Errorf("record = %+v, want client's own message, stack and context", r)
	}
}

func TestCoalescer(t *testing.T) {
	sink := &memSink{}
	reg := NewRegistry(sink, testHost)
	c := NewCoalescer(reg, 0)

	mk := func(level record.Level, stack, msg string, offset time.Duration) record.ClientRecord {
		return record.NewClientRecord(record.Record{
			Level:      level,
			Time:       fixedNow.Add(offset),
			Category:   "Web.Checkout",
			Message:    msg,
			StackTrace: stack,
		})
	}

	c.Add(mk(record.LevelError, "at a.js:1", "first", 0))
	c.Add(mk(record.LevelError, "at a.js:1", "second", time.Second))
	c.Add(mk(record.LevelError, "at b.js:2", "other", 2*time.Second))
	c.Add(mk(record.LevelWarning, "at a.js:1", "warning", 3*time.Second))
	c.Add(mk(record.LevelError, "at a.js:1", "third", 4*time.Second))

	if c.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", c.Pending())
	}
	if n := c.Flush(); n != 3 {
		t.Errorf("Flush() = %d, want 3", n)
	}
	if c.Pending() != 0 {
		t.Error("Flush should empty the buffer")
	}

	got := sink.all()
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Message != "first\n(repeated 3 times)" {
		t.Errorf("merged message = %q", got[0].Message)
	}
	if !got[0].Time.Equal(fixedNow) {
		t.Errorf("merged record should keep the earliest time, got %v", got[0].Time)
	}
	for _, r := range got {
		if r.Side != record.SideClient {
			t.Errorf("record %q has side %v, want Client", r.Message, r.Side)
		}
	}
}

func TestCoalescer_FlushesAtLimit(t *testing.T) {
	sink := &memSink{}
	c := NewCoalescer(NewRegistry(sink, testHost), 2)

	for i := range 3 {
		c.Add(record.NewClientRecord(record.Record{
			Level:      record.LevelError,
			Time:       fixedNow,
			Message:    "fault",
			StackTrace: fmt.Sprintf("at %d", i),
		}))
	}

	if got := len(sink.all()); got != 2 {
		t.Errorf("records written at limit = %d, want 2", got)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	sink := &memSink{}
	reg := NewRegistry(sink, testHost)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := reg.Logger(fmt.Sprintf("MyApp.Worker%d", i))
			for j := range 100 {
				log.Info(fmt.Sprintf("iteration %d", j))
			}
		}()
	}
	wg.Wait()

	if got := len(sink.all()); got != 1000 {
		t.Errorf("got %d records, want 1000", got)
	}
}
