package record

import (
	"testing"
	"time"
)

func TestLevel_Ordering(t *testing.T) {
	levels := Levels()
	for i := 1; i < len(levels); i++ {
		if levels[i-1] >= levels[i] {
			t.Errorf("%v should sort below %v", levels[i-1], levels[i])
		}
	}
	if LevelCritical >= LevelNone {
		t.Error("LevelNone must sort above LevelCritical")
	}
}

func TestLevel_StringAndLetter(t *testing.T) {
	tests := []struct {
		level  Level
		name   string
		letter byte
	}{
		{LevelTrace, "Trace", 'T'},
		{LevelDebug, "Debug", 'D'},
		{LevelInformation, "Information", 'I'},
		{LevelWarning, "Warning", 'W'},
		{LevelError, "Error", 'E'},
		{LevelCritical, "Critical", 'C'},
		{LevelNone, "None", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.level.Letter(); got != tt.letter {
				t.Errorf("Letter() = %q, want %q", got, tt.letter)
			}
		})
	}

	if got := Level(42).String(); got != "Level(42)" {
		t.Errorf("String() for out-of-range level = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"Trace", LevelTrace, false},
		{"debug", LevelDebug, false},
		{"INFO", LevelInformation, false},
		{"Information", LevelInformation, false},
		{"warn", LevelWarning, false},
		{"Warning", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelCritical, false},
		{" critical ", LevelCritical, false},
		{"none", LevelNone, false},
		{"verbose", LevelNone, true},
		{"", LevelNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("Client"); err != nil || s != SideClient {
		t.Errorf("ParseSide(Client) = %v, %v", s, err)
	}
	if s, err := ParseSide("server"); err != nil || s != SideServer {
		t.Errorf("ParseSide(server) = %v, %v", s, err)
	}
	if _, err := ParseSide("browser"); err == nil {
		t.Error("expected error for unknown side")
	}
}

func TestRecord_Equal(t *testing.T) {
	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Record{Level: LevelError, Time: utc, Message: "boom"}
	b := a
	b.Time = utc.In(time.FixedZone("plus2", 2*3600))

	if !a.Equal(b) {
		t.Error("records at the same instant in different zones should be equal")
	}

	b.Message = "bang"
	if a.Equal(b) {
		t.Error("records with different messages should not be equal")
	}
}

func TestClientRecord_SameSource(t *testing.T) {
	base := NewClientRecord(Record{
		Level:      LevelError,
		Time:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Message:    "TypeError: x is undefined",
		StackTrace: "at render (app.js:10)\nat main (app.js:1)",
	})

	t.Run("same level and stack with different message and time", func(t *testing.T) {
		other := base
		other.Message = "TypeError: y is undefined"
		other.Time = base.Time.Add(time.Minute)
		if !base.SameSource(other) {
			t.Error("expected same source")
		}
	})

	t.Run("different stack", func(t *testing.T) {
		other := base
		other.StackTrace = "at other (lib.js:3)"
		if base.SameSource(other) {
			t.Error("expected different source")
		}
	})

	t.Run("different level", func(t *testing.T) {
		other := base
		other.Level = LevelWarning
		if base.SameSource(other) {
			t.Error("expected different source")
		}
	})
}

func TestNewClientRecord(t *testing.T) {
	c := NewClientRecord(Record{Side: SideServer})
	if c.Side != SideClient {
		t.Errorf("Side = %v, want Client", c.Side)
	}
	if c.Count != 1 {
		t.Errorf("Count = %d, want 1", c.Count)
	}
	c.Count = 0
	if c.Occurrences() != 1 {
		t.Errorf("Occurrences() = %d, want 1", c.Occurrences())
	}
}
