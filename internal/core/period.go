package core

import (
	"fmt"
	"time"
)

// Period is a closed date range, inclusive of both bounds.
type Period struct {
	Start Date
	End   Date
}

// ResolvePreset resolves a named date preset into concrete bounds relative
// to now. Either returned bound may be nil: PresetAll sets neither, and
// PresetCustom passes through whichever of the custom bounds the user has
// set, independently.
func ResolvePreset(preset DatePreset, now time.Time, customStart, customEnd *Date) (*Date, *Date, error) {
	today := DateOf(now)

	switch preset {
	case PresetAll:
		return nil, nil, nil

	case PresetToday:
		return &today, &today, nil

	case PresetThisWeek:
		// Week starts Monday. time.Sunday is 0, so it sits six days
		// after the Monday that opened its week.
		offset := int(now.Weekday()) - 1
		if now.Weekday() == time.Sunday {
			offset = 6
		}
		start := today.AddDays(-offset)
		end := start.AddDays(6)
		return &start, &end, nil

	case PresetThisMonth:
		start := NewDate(now.Year(), int(now.Month()), 1)
		end := start.AddMonths(1).AddDays(-1)
		return &start, &end, nil

	case PresetCustom:
		if customStart != nil && customEnd != nil && customStart.After(*customEnd) {
			return nil, nil, ErrInvertedRange
		}
		return customStart, customEnd, nil
	}

	return nil, nil, fmt.Errorf("invalid date preset: %q", preset)
}

// AddMonths returns the date shifted by the given number of calendar months.
func (d Date) AddMonths(months int) Date {
	return Date{Time: d.Time.AddDate(0, months, 0)}
}

// PreviousPeriod derives the immediately preceding period of equal
// duration: the previous end is one day before start, and the previous
// window spans the same number of days, even across irregular month
// lengths.
func PreviousPeriod(start, end Date) (Period, error) {
	if start.After(end) {
		return Period{}, ErrInvertedRange
	}
	days := start.DaysUntil(end)
	prevEnd := start.AddDays(-1)
	prevStart := prevEnd.AddDays(-days)
	return Period{Start: prevStart, End: prevEnd}, nil
}
