package timefilter

import (
	"fmt"
	"strings"
)

// Period restricts evaluation to samples falling in a set of calendar
// months. An empty month set matches every sample.
type Period struct {
	Months []int `yaml:"months"`
}

// Filter restricts evaluation by hour-of-day, weekday/weekend membership
// and holiday status. The flags are independent and compose via AND; in
// particular weekdays_only and exclude_weekends may both appear in one
// rule file and must not override each other.
type Filter struct {
	Hours           []int `yaml:"hours"`
	WeekdaysOnly    bool  `yaml:"weekdays_only"`
	WeekendsOnly    bool  `yaml:"weekends_only"`
	ExcludeWeekends bool  `yaml:"exclude_weekends"`
	ExcludeHolidays bool  `yaml:"exclude_holidays"`
}

// All reports whether the period places no constraint on months.
func (p *Period) All() bool {
	return p == nil || len(p.Months) == 0
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParsePeriod resolves a named period from rule configuration. Supported
// forms: "all" (or empty), "heating" (Oct–Apr), "non_heating" (May–Sep),
// a single month name ("jan"), or a comma list of month names.
func ParsePeriod(name string) (*Period, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all", "all_year":
		return &Period{}, nil
	case "heating":
		return &Period{Months: []int{1, 2, 3, 4, 10, 11, 12}}, nil
	case "non_heating", "summer":
		return &Period{Months: []int{5, 6, 7, 8, 9}}, nil
	}
	var months []int
	for _, part := range strings.Split(name, ",") {
		m, ok := monthNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown period %q", name)
		}
		months = append(months, m)
	}
	return &Period{Months: months}, nil
}

var namedFilters = map[string]Filter{
	"opening_hours": {
		Hours:        []int{8, 9, 10, 11, 12, 13, 14, 15, 16},
		WeekdaysOnly: true,
	},
	"working_hours": {
		Hours:           []int{8, 9, 10, 11, 12, 13, 14, 15, 16},
		WeekdaysOnly:    true,
		ExcludeHolidays: true,
	},
	"weekdays": {WeekdaysOnly: true},
	"weekends": {WeekendsOnly: true},
}

// ParseFilter resolves a named time filter from rule configuration.
// Empty and "all" mean no filtering.
func ParseFilter(name string) (*Filter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || key == "all" {
		return nil, nil
	}
	if f, ok := namedFilters[key]; ok {
		copied := f
		copied.Hours = append([]int(nil), f.Hours...)
		return &copied, nil
	}
	return nil, fmt.Errorf("unknown time filter %q", name)
}
