package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	PresetAll       DatePreset = "all"
	PresetToday     DatePreset = "today"
	PresetThisWeek  DatePreset = "this-week"
	PresetThisMonth DatePreset = "this-month"
	PresetCustom    DatePreset = "custom"
)

type (
	DatePreset string

	// Selection holds the raw values of every independent report control
	// exactly as the UI delivers them. String fields are unparsed; an
	// empty string means the control is unset.
	Selection struct {
		Preset      DatePreset
		CustomStart string
		CustomEnd   string
		Kind        string
		AccountID   string
		CategoryID  string
		SearchText  string
	}

	// Filter is the canonical query value built from a Selection. All
	// fields are independently optional; the zero Filter means "no
	// constraint". A fresh Filter is built on every control change.
	Filter struct {
		StartDate            *Date
		EndDate              *Date
		Kind                 *Kind
		AccountID            *int64
		CategoryID           *int64
		IncludeSubcategories bool
		SearchText           string
	}
)

func (p DatePreset) Valid() bool {
	switch p {
	case PresetAll, PresetToday, PresetThisWeek, PresetThisMonth, PresetCustom:
		return true
	}
	return false
}

// BuildFilter normalizes a Selection into a Filter. It is a pure function
// of its inputs: now is injected so identical selections always produce
// structurally identical filters. Malformed ids, dates, and inverted
// custom ranges are rejected here, before any query is issued.
func BuildFilter(sel Selection, now time.Time) (Filter, error) {
	var f Filter

	preset := sel.Preset
	if preset == "" {
		preset = PresetAll
	}
	if !preset.Valid() {
		return Filter{}, fmt.Errorf("invalid date preset: %q", sel.Preset)
	}

	var customStart, customEnd *Date
	if preset == PresetCustom {
		if s := strings.TrimSpace(sel.CustomStart); s != "" {
			d, err := ParseDate(s)
			if err != nil {
				return Filter{}, fmt.Errorf("custom start: %w", err)
			}
			customStart = &d
		}
		if s := strings.TrimSpace(sel.CustomEnd); s != "" {
			d, err := ParseDate(s)
			if err != nil {
				return Filter{}, fmt.Errorf("custom end: %w", err)
			}
			customEnd = &d
		}
	}

	start, end, err := ResolvePreset(preset, now, customStart, customEnd)
	if err != nil {
		return Filter{}, err
	}
	f.StartDate = start
	f.EndDate = end

	if s := strings.TrimSpace(sel.Kind); s != "" {
		kind := Kind(s)
		if !kind.Valid() {
			return Filter{}, fmt.Errorf("%w: %q", ErrInvalidKind, s)
		}
		f.Kind = &kind
	}

	if s := strings.TrimSpace(sel.AccountID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q", ErrInvalidAccountID, s)
		}
		f.AccountID = &id
	}

	if s := strings.TrimSpace(sel.CategoryID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q", ErrInvalidCategoryID, s)
		}
		f.CategoryID = &id
		// Selecting a parent category always pulls in its children.
		f.IncludeSubcategories = true
	}

	// Whitespace-only search is treated as absent, not as "".
	f.SearchText = strings.TrimSpace(sel.SearchText)

	return f, nil
}

// Validate rejects filters that must not reach the query boundary.
func (f Filter) Validate() error {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return ErrInvertedRange
	}
	if f.Kind != nil && !f.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, *f.Kind)
	}
	return nil
}

// Key returns a canonical string form of the filter, stable across
// structurally identical filters, used as a cache key.
func (f Filter) Key() string {
	var b strings.Builder
	if f.StartDate != nil {
		b.WriteString("s=" + f.StartDate.String())
	}
	if f.EndDate != nil {
		b.WriteString("|e=" + f.EndDate.String())
	}
	if f.Kind != nil {
		b.WriteString("|k=" + string(*f.Kind))
	}
	if f.AccountID != nil {
		b.WriteString("|a=" + strconv.FormatInt(*f.AccountID, 10))
	}
	if f.CategoryID != nil {
		b.WriteString("|c=" + strconv.FormatInt(*f.CategoryID, 10))
		if f.IncludeSubcategories {
			b.WriteString("+sub")
		}
	}
	if f.SearchText != "" {
		b.WriteString("|q=" + f.SearchText)
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
