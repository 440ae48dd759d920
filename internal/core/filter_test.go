package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// Thursday 2024-06-13, used wherever week resolution matters.
var refNow = time.Date(2024, 6, 13, 15, 4, 5, 0, time.UTC)

func TestBuildFilterPresets(t *testing.T) {
	tests := []struct {
		name      string
		sel       Selection
		wantStart string
		wantEnd   string
	}{
		{
			name:      "today",
			sel:       Selection{Preset: PresetToday},
			wantStart: "2024-06-13",
			wantEnd:   "2024-06-13",
		},
		{
			name:      "this week runs monday to sunday",
			sel:       Selection{Preset: PresetThisWeek},
			wantStart: "2024-06-10",
			wantEnd:   "2024-06-16",
		},
		{
			name:      "this month covers full calendar month",
			sel:       Selection{Preset: PresetThisMonth},
			wantStart: "2024-06-01",
			wantEnd:   "2024-06-30",
		},
		{
			name:      "custom passes both bounds through",
			sel:       Selection{Preset: PresetCustom, CustomStart: "2024-01-15", CustomEnd: "2024-02-20"},
			wantStart: "2024-01-15",
			wantEnd:   "2024-02-20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := BuildFilter(tt.sel, refNow)
			if err != nil {
				t.Fatalf("BuildFilter() error: %v", err)
			}
			if f.StartDate == nil || f.StartDate.String() != tt.wantStart {
				t.Errorf("start = %v, want %s", f.StartDate, tt.wantStart)
			}
			if f.EndDate == nil || f.EndDate.String() != tt.wantEnd {
				t.Errorf("end = %v, want %s", f.EndDate, tt.wantEnd)
			}
		})
	}
}

func TestBuildFilterWeekStartsOnMonday(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart string
	}{
		{"monday maps to itself", time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), "2024-06-10"},
		{"sunday belongs to the week before", time.Date(2024, 6, 16, 8, 0, 0, 0, time.UTC), "2024-06-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := BuildFilter(Selection{Preset: PresetThisWeek}, tt.now)
			if err != nil {
				t.Fatalf("BuildFilter() error: %v", err)
			}
			if f.StartDate.String() != tt.wantStart {
				t.Errorf("week start = %s, want %s", f.StartDate, tt.wantStart)
			}
		})
	}
}

func TestBuildFilterAllAndPartialCustom(t *testing.T) {
	t.Run("all leaves both bounds unset", func(t *testing.T) {
		f, err := BuildFilter(Selection{Preset: PresetAll}, refNow)
		if err != nil {
			t.Fatalf("BuildFilter() error: %v", err)
		}
		if f.StartDate != nil || f.EndDate != nil {
			t.Errorf("expected no bounds, got start=%v end=%v", f.StartDate, f.EndDate)
		}
	})

	t.Run("custom with only end set", func(t *testing.T) {
		f, err := BuildFilter(Selection{Preset: PresetCustom, CustomEnd: "2024-03-31"}, refNow)
		if err != nil {
			t.Fatalf("BuildFilter() error: %v", err)
		}
		if f.StartDate != nil {
			t.Errorf("expected unset start, got %v", f.StartDate)
		}
		if f.EndDate == nil || f.EndDate.String() != "2024-03-31" {
			t.Errorf("end = %v, want 2024-03-31", f.EndDate)
		}
	})
}

func TestBuildFilterIDsAndSearch(t *testing.T) {
	sel := Selection{
		Preset:     PresetAll,
		Kind:       "EXPENSE",
		AccountID:  "3",
		CategoryID: "12",
		SearchText: "  groceries  ",
	}

	f, err := BuildFilter(sel, refNow)
	if err != nil {
		t.Fatalf("BuildFilter() error: %v", err)
	}
	if f.AccountID == nil || *f.AccountID != 3 {
		t.Errorf("account id = %v, want 3", f.AccountID)
	}
	if f.CategoryID == nil || *f.CategoryID != 12 {
		t.Errorf("category id = %v, want 12", f.CategoryID)
	}
	if !f.IncludeSubcategories {
		t.Error("selecting a category must include its subcategories")
	}
	if f.Kind == nil || *f.Kind != KindExpense {
		t.Errorf("kind = %v, want EXPENSE", f.Kind)
	}
	if f.SearchText != "groceries" {
		t.Errorf("search = %q, want trimmed %q", f.SearchText, "groceries")
	}
}

func TestBuildFilterRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want error
	}{
		{"non-numeric account id", Selection{AccountID: "abc"}, ErrInvalidAccountID},
		{"non-numeric category id", Selection{CategoryID: "12x"}, ErrInvalidCategoryID},
		{"unknown kind", Selection{Kind: "REFUND"}, ErrInvalidKind},
		{"bad custom date", Selection{Preset: PresetCustom, CustomStart: "13/06/2024"}, ErrInvalidDate},
		{
			"inverted custom range",
			Selection{Preset: PresetCustom, CustomStart: "2024-06-20", CustomEnd: "2024-06-10"},
			ErrInvertedRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFilter(tt.sel, refNow)
			if !errors.Is(err, tt.want) {
				t.Errorf("BuildFilter() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildFilterBlankSearchIsAbsent(t *testing.T) {
	f, err := BuildFilter(Selection{SearchText: "   "}, refNow)
	if err != nil {
		t.Fatalf("BuildFilter() error: %v", err)
	}
	if f.SearchText != "" {
		t.Errorf("whitespace-only search should be dropped, got %q", f.SearchText)
	}
}

func TestBuildFilterIsDeterministic(t *testing.T) {
	sel := Selection{
		Preset:     PresetThisWeek,
		Kind:       "INCOME",
		AccountID:  "7",
		SearchText: "rent",
	}

	a, err := BuildFilter(sel, refNow)
	if err != nil {
		t.Fatalf("BuildFilter() error: %v", err)
	}
	b, err := BuildFilter(sel, refNow)
	if err != nil {
		t.Fatalf("BuildFilter() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical selections produced different filters:\n%+v\n%+v", a, b)
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestFilterValidate(t *testing.T) {
	start := NewDate(2024, 6, 20)
	end := NewDate(2024, 6, 10)
	f := Filter{StartDate: &start, EndDate: &end}
	if err := f.Validate(); !errors.Is(err, ErrInvertedRange) {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvertedRange)
	}

	if err := (Filter{}).Validate(); err != nil {
		t.Errorf("empty filter should be valid, got %v", err)
	}
}
