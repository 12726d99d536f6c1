package timefilter

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bruadam/hvx-sub000/internal/holiday"
	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

// Pipeline applies period, hour/weekday and holiday filters to a table.
// Filters copy-and-reduce; the input table is never mutated.
type Pipeline struct {
	holidays *holiday.Source
	region   string
}

// NewPipeline creates a filter pipeline. The holiday source is shared
// across concurrent rule evaluations; its cache is safe for that.
func NewPipeline(holidays *holiday.Source, region string) *Pipeline {
	return &Pipeline{holidays: holidays, region: region}
}

// Region returns the configured holiday region.
func (p *Pipeline) Region() string {
	return p.region
}

// Apply reduces the table by period months, then hours, then weekday
// flags, then holiday exclusion, in that order. A nil period or filter
// skips its stage. A table without a time index cannot be time-filtered;
// it is returned unchanged with a warning.
func (p *Pipeline) Apply(t *timeseries.Table, period *Period, filter *Filter) *timeseries.Table {
	if t == nil {
		return nil
	}
	if !t.HasTimeIndex() {
		log.Warn().Msg("table has no timestamp index, skipping time filters")
		return t
	}

	out := t
	if !period.All() {
		out = selectRows(out, func(ts time.Time) bool {
			return containsInt(period.Months, int(ts.Month()))
		})
	}
	if filter == nil {
		return out
	}
	if len(filter.Hours) > 0 {
		out = selectRows(out, func(ts time.Time) bool {
			return containsInt(filter.Hours, ts.Hour())
		})
	}
	if filter.WeekdaysOnly || filter.ExcludeWeekends {
		out = selectRows(out, func(ts time.Time) bool {
			return !isWeekend(ts)
		})
	}
	if filter.WeekendsOnly {
		out = selectRows(out, isWeekend)
	}
	if filter.ExcludeHolidays {
		out = p.excludeHolidays(out)
	}
	return out
}

// excludeHolidays drops rows whose date is a holiday, fetching calendars
// for every year present in the already-reduced table.
func (p *Pipeline) excludeHolidays(t *timeseries.Table) *timeseries.Table {
	sets := make(map[int]map[string]struct{})
	for _, ts := range t.Timestamps() {
		year := ts.Year()
		if _, ok := sets[year]; !ok {
			sets[year] = p.holidays.HolidaysFor(year, p.region)
		}
	}
	return selectRows(t, func(ts time.Time) bool {
		_, isHoliday := sets[ts.Year()][ts.Format(holiday.DateFormat)]
		return !isHoliday
	})
}

// IsHoliday reports holiday status for a timestamp; used to derive the
// is_holiday variable for complex rules.
func (p *Pipeline) IsHoliday(ts time.Time) bool {
	return p.holidays.IsHoliday(ts, p.region)
}

func selectRows(t *timeseries.Table, match func(time.Time) bool) *timeseries.Table {
	keep := make([]bool, t.Len())
	for i, ts := range t.Timestamps() {
		keep[i] = match(ts)
	}
	return t.Select(keep)
}

func isWeekend(ts time.Time) bool {
	wd := ts.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
