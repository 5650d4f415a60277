package service

import (
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
)

// LoadLocation resolves an IANA timezone name. Empty names are rejected instead of silently
// falling back to UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.NewConfigurationError("timezone", "timezone must not be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &types.ConfigurationError{Key: "timezone", Err: err}
	}
	return loc, nil
}

// CalculateWindows maps now + timezone to the report windows, expressed in UTC.
//
// Every boundary is a local midnight built with time.Date in loc, so the UTC offset is the
// one in force at that local instant. Full-day windows spanning a DST change therefore last
// 23 or 25 hours in UTC while still covering exactly one local day. When local midnight is
// skipped by a transition the day starts at the transition instant.
func CalculateWindows(timezone string, now time.Time, baseline entity.BaselineMode) (entity.WindowSet, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return entity.WindowSet{}, err
	}
	if !baseline.Valid() {
		return entity.WindowSet{}, types.NewConfigurationError("baseline", "unsupported baseline mode %q", baseline)
	}
	return calculateWindowsIn(loc, timezone, now, baseline), nil
}

func calculateWindowsIn(loc *time.Location, timezone string, now time.Time, baseline entity.BaselineMode) entity.WindowSet {
	local := now.In(loc)
	y, m, d := local.Date()

	todayStart := localMidnight(loc, y, m, d)
	yesterdayStart := localMidnight(loc, y, m, d-1)
	monthStart := localMidnight(loc, y, m, 1)
	prevMonthStart := localMidnight(loc, y, m-1, 1)

	var baselineStart, baselineEnd time.Time
	switch baseline {
	case entity.BaselineSameWeekday:
		baselineStart = localMidnight(loc, y, m, d-8)
		baselineEnd = localMidnight(loc, y, m, d-7)
	default:
		baselineStart = localMidnight(loc, y, m, d-2)
		baselineEnd = yesterdayStart
	}

	nowUTC := now.UTC()

	return entity.WindowSet{
		Location: loc,
		Timezone: timezone,
		Now:      nowUTC,
		Windows: []entity.TimeWindow{
			{Label: entity.TodayPartial, StartUTC: todayStart, EndUTC: openEnd(todayStart, nowUTC), IsComplete: false},
			{Label: entity.YesterdayFull, StartUTC: yesterdayStart, EndUTC: todayStart, IsComplete: true},
			{Label: entity.BaselineFull, StartUTC: baselineStart, EndUTC: baselineEnd, IsComplete: true},
			{Label: entity.MonthToDate, StartUTC: monthStart, EndUTC: openEnd(monthStart, nowUTC), IsComplete: true},
			{Label: entity.PreviousMonthFull, StartUTC: prevMonthStart, EndUTC: monthStart, IsComplete: true},
		},
	}
}

// localMidnight returns the first instant of the local date (y, m, d). Out-of-range days and
// months (d-1, m-1) are normalized as time.Date does.
//
// Em fusos que adiantam o relógio à meia-noite (America/Santiago, America/Havana) 00:00 não
// existe e time.Date pode resolver para 23:00 do dia anterior; o dia então começa na transição.
func localMidnight(loc *time.Location, y int, m time.Month, d int) time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	target := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	lo := t
	if !localDateBefore(t, loc, target) {
		if localDateBefore(t.Add(-time.Second), loc, target) {
			return t.UTC()
		}
		// 00:00 ambíguo (relógio atrasado para a meia-noite): vale a primeira ocorrência
		lo = t.Add(-26 * time.Hour)
	}

	// Busca binária pelo primeiro instante cuja data local é target
	ty, tm, td := target.Date()
	hi := time.Date(ty, tm, td, 12, 0, 0, 0, loc)
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if localDateBefore(mid, loc, target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.UTC()
}

// localDateBefore reports whether t, read in loc, falls on a calendar date before target.
func localDateBefore(t time.Time, loc *time.Location, target time.Time) bool {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Before(target)
}

// openEnd keeps start < end when now sits exactly on the boundary.
func openEnd(start, now time.Time) time.Time {
	if !now.After(start) {
		return start.Add(time.Nanosecond)
	}
	return now
}
