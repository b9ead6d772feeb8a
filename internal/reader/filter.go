package reader

import (
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/record"
)

// LevelSet is a set of levels written as their letters, e.g. "EW". The zero
// value matches every level.
type LevelSet uint8

// ParseLevelSet parses level letters (T D I W E C, any case). Empty input
// yields the empty set, which matches everything.
func ParseLevelSet(s string) (LevelSet, error) {
	var set LevelSet
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		found := false
		for _, l := range record.Levels() {
			if l.Letter() == c {
				set |= 1 << uint(l)
				found = true
				break
			}
		}
		if !found {
			return 0, errors.NewUserError("unknown level letter " + string(s[i]) + " (use T, D, I, W, E, C)").
				WithCause(errors.ErrInvalidLevel)
		}
	}
	return set, nil
}

// LevelsAtLeast returns the set of every real level >= min.
func LevelsAtLeast(min record.Level) LevelSet {
	var set LevelSet
	for _, l := range record.Levels() {
		if l >= min {
			set |= 1 << uint(l)
		}
	}
	return set
}

// Has reports whether l is in the set. The empty set has every level.
func (ls LevelSet) Has(l record.Level) bool {
	if ls == 0 {
		return true
	}
	if l < record.LevelTrace || l >= record.LevelNone {
		return false
	}
	return ls&(1<<uint(l)) != 0
}

// String returns the letters in ascending level order.
func (ls LevelSet) String() string {
	var b strings.Builder
	for _, l := range record.Levels() {
		if ls&(1<<uint(l)) != 0 {
			b.WriteByte(l.Letter())
		}
	}
	return b.String()
}

// Filter selects records during enumeration. Zero fields match everything.
type Filter struct {
	Levels LevelSet

	// Since and Until bound Time, both inclusive.
	Since time.Time
	Until time.Time

	// Category is a glob over dotted names: "MyApp.*" matches one segment,
	// "MyApp.**" any depth. Records without a category never match a
	// non-empty pattern.
	Category string

	// Side restricts to one side when non-nil.
	Side *record.Side

	// Contains is a case-insensitive substring of Message.
	Contains string
}

type matcher struct {
	f        Filter
	category glob.Glob
	contains string
}

func (f Filter) compile() (*matcher, error) {
	m := &matcher{f: f, contains: strings.ToLower(f.Contains)}
	if f.Category != "" {
		g, err := glob.Compile(f.Category, '.')
		if err != nil {
			return nil, errors.NewUserError("invalid category pattern " + f.Category).WithCause(err)
		}
		m.category = g
	}
	return m, nil
}

// Validate reports whether the filter can be used, compiling the category
// pattern.
func (f Filter) Validate() error {
	_, err := f.compile()
	return err
}

func (m *matcher) match(r record.Record) bool {
	f := m.f
	if !f.Levels.Has(r.Level) {
		return false
	}
	if !f.Since.IsZero() && r.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Time.After(f.Until) {
		return false
	}
	if f.Side != nil && r.Side != *f.Side {
		return false
	}
	if m.category != nil && (r.Category == "" || !m.category.Match(r.Category)) {
		return false
	}
	if m.contains != "" && !strings.Contains(strings.ToLower(r.Message), m.contains) {
		return false
	}
	return true
}
