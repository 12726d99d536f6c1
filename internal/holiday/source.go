package holiday

import (
	"fmt"
	"sync"
	"time"
)

// DateFormat is the canonical key format for holiday dates.
const DateFormat = "2006-01-02"

// Custom is a caller-supplied holiday date added on top of the public
// calendar for every region.
type Custom struct {
	Date string `yaml:"date"` // 2006-01-02
	Name string `yaml:"name"`
}

// Source resolves the set of non-working dates for a (region, year) pair.
// Results are memoized for the process lifetime; the key space is bounded
// by the years actually present in analyzed data, so there is no eviction.
//
// The cache is read-through and safe for concurrent use. A miss race may
// compute the same year twice; both computations produce identical sets,
// so the redundancy is harmless.
type Source struct {
	mu     sync.RWMutex
	cache  map[string]map[string]struct{}
	custom []Custom
}

// NewSource creates a holiday source with the given custom dates merged
// into every queried year's set.
func NewSource(custom []Custom) *Source {
	return &Source{
		cache:  make(map[string]map[string]struct{}),
		custom: append([]Custom(nil), custom...),
	}
}

// HolidaysFor returns the holiday date set for a year and region, keyed by
// DateFormat strings. Unknown regions yield only the custom dates: an
// unconfigured calendar degrades to "no public holidays", it does not
// abort a batch.
func (s *Source) HolidaysFor(year int, region string) map[string]struct{} {
	key := fmt.Sprintf("%s:%d", region, year)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	set := publicHolidays(year, region)
	for _, c := range s.custom {
		d, err := time.Parse(DateFormat, c.Date)
		if err != nil {
			continue
		}
		if d.Year() == year {
			set[d.Format(DateFormat)] = struct{}{}
		}
	}

	s.mu.Lock()
	s.cache[key] = set
	s.mu.Unlock()
	return set
}

// IsHoliday reports whether the date of ts falls on a holiday for region.
func (s *Source) IsHoliday(ts time.Time, region string) bool {
	set := s.HolidaysFor(ts.Year(), region)
	_, ok := set[ts.Format(DateFormat)]
	return ok
}

// publicHolidays builds the public calendar for a region. Movable feasts
// derive from Gregorian Easter.
func publicHolidays(year int, region string) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(t time.Time) {
		set[t.Format(DateFormat)] = struct{}{}
	}
	easter := easterSunday(year)

	switch region {
	case "dk":
		add(date(year, time.January, 1))       // Nytårsdag
		add(easter.AddDate(0, 0, -3))          // Skærtorsdag
		add(easter.AddDate(0, 0, -2))          // Langfredag
		add(easter)                            // Påskedag
		add(easter.AddDate(0, 0, 1))           // 2. påskedag
		add(easter.AddDate(0, 0, 26))          // Store bededag (kept for pre-2024 data)
		add(easter.AddDate(0, 0, 39))          // Kristi himmelfartsdag
		add(easter.AddDate(0, 0, 49))          // Pinsedag
		add(easter.AddDate(0, 0, 50))          // 2. pinsedag
		add(date(year, time.December, 25))     // Juledag
		add(date(year, time.December, 26))     // 2. juledag
	case "de":
		add(date(year, time.January, 1))
		add(easter.AddDate(0, 0, -2))
		add(easter.AddDate(0, 0, 1))
		add(date(year, time.May, 1))
		add(easter.AddDate(0, 0, 39))
		add(easter.AddDate(0, 0, 50))
		add(date(year, time.October, 3))
		add(date(year, time.December, 25))
		add(date(year, time.December, 26))
	}
	return set
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// easterSunday computes Gregorian Easter via the Meeus/Jones/Butcher
// algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
