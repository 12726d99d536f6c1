package rules

import (
	"strings"

	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

// featureAliases maps logical feature names to the column-name fragments
// commonly produced by sensor exports. Extend here, not at call sites.
var featureAliases = map[string][]string{
	"temperature": {"temp", "t_indoor", "indoor_temp"},
	"co2":         {"co2_ppm", "carbon_dioxide", "co₂"},
	"humidity":    {"rh", "relative_humidity", "hum"},
	"voc":         {"tvoc", "voc_ppb"},
	"illuminance": {"lux", "light"},
	"noise":       {"sound", "db", "spl"},
	"pm25":        {"pm2_5", "pm2.5", "particulate"},
}

// ResolveColumn maps a logical feature name to an actual column of the
// table. Resolution order: exact match, case-insensitive substring match
// in column order, then each known alias substring-matched the same way.
// It returns "" when nothing matches; callers treat that as "rule not
// evaluable on this table", never as an error.
func ResolveColumn(t *timeseries.Table, feature string) string {
	if t == nil || feature == "" {
		return ""
	}
	if t.HasColumn(feature) {
		return feature
	}

	columns := t.Columns()
	if name := substringMatch(columns, feature); name != "" {
		return name
	}
	for _, alias := range featureAliases[strings.ToLower(feature)] {
		if name := substringMatch(columns, alias); name != "" {
			return name
		}
	}
	return ""
}

func substringMatch(columns []string, needle string) string {
	needle = strings.ToLower(needle)
	for _, col := range columns {
		if strings.Contains(strings.ToLower(col), needle) {
			return col
		}
	}
	return ""
}
