package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/bruadam/hvx-sub000/internal/rules"
	"github.com/bruadam/hvx-sub000/internal/telemetry"
)

// Standard is a named collection of rule definitions discovered from one
// subdirectory of the standards root.
type Standard struct {
	ID       string
	Name     string
	Category string
	RuleIDs  []string
}

// standardMeta is the optional standard.yaml sitting next to a standard's
// rule files.
type standardMeta struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// Registry discovers standards from a directory hierarchy and exposes
// lookup and filtering over the parsed rules. Discovery is the only I/O
// this engine performs besides table ingestion; after Discover returns,
// all lookups are in-memory.
//
// Layout: root/<standard_id>/<rule_name>.yaml, one rule per file. The
// public rule identifier is "<standard_id>_<rule_name>".
type Registry struct {
	mu        sync.RWMutex
	root      string
	standards map[string]*Standard
	rules     map[string]*rules.Definition
	metrics   *telemetry.Metrics
}

// New creates an empty registry rooted at dir. Metrics may be nil.
func New(root string, metrics *telemetry.Metrics) *Registry {
	return &Registry{
		root:      root,
		standards: make(map[string]*Standard),
		rules:     make(map[string]*rules.Definition),
		metrics:   metrics,
	}
}

// Discover scans the root directory and registers every standard that
// yields at least one valid rule. Files that fail to parse or lack the
// required feature/parameter field are quarantined with a warning; their
// siblings are unaffected. A nonexistent root yields an empty registry so
// "no standards configured" degrades gracefully.
func (r *Registry) Discover() error {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("root", r.root).Msg("standards directory does not exist, registry is empty")
			return nil
		}
		return fmt.Errorf("scan standards root %s: %w", r.root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r.scanStandard(entry.Name())
	}
	return nil
}

// scanStandard parses all rule files of one standard subdirectory. A
// standard with zero surviving rules is not registered.
func (r *Registry) scanStandard(id string) {
	dir := filepath.Join(r.root, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("standard", id).Msg("skipping unreadable standard directory")
		return
	}

	std := &Standard{ID: id, Name: id}
	var defs []*rules.Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable rule file")
			r.metrics.FileQuarantined()
			continue
		}

		if stem == "standard" {
			var meta standardMeta
			if err := yaml.Unmarshal(data, &meta); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("ignoring malformed standard metadata")
				continue
			}
			if meta.Name != "" {
				std.Name = meta.Name
			}
			std.Category = meta.Category
			continue
		}

		ruleID := fmt.Sprintf("%s_%s", id, stem)
		def, err := rules.ParseDefinition(ruleID, data)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("quarantining invalid rule file")
			r.metrics.FileQuarantined()
			continue
		}
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		log.Warn().Str("standard", id).Msg("standard has no valid rules, not registering")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		std.RuleIDs = append(std.RuleIDs, def.ID)
		r.rules[def.ID] = def
	}
	sort.Strings(std.RuleIDs)
	r.standards[id] = std
}

// Reload clears the registry and re-runs discovery, picking up standards
// added while the process was idle.
func (r *Registry) Reload() error {
	r.mu.Lock()
	r.standards = make(map[string]*Standard)
	r.rules = make(map[string]*rules.Definition)
	r.mu.Unlock()
	return r.Discover()
}

// Standards returns the registered standards sorted by id.
func (r *Registry) Standards() []*Standard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Standard, 0, len(r.standards))
	for _, s := range r.standards {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Standard looks up one standard by id.
func (r *Registry) Standard(id string) (*Standard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.standards[id]
	return s, ok
}

// Rule looks up one rule definition by its public id.
func (r *Registry) Rule(id string) (*rules.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.rules[id]
	return def, ok
}

// Rules returns all rule ids sorted.
func (r *Registry) Rules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rules))
	for id := range r.rules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FilterRules returns rule ids matching all given filters: standard ids
// by equality, parameter by substring against the rule feature, category
// by equality against the owning standard. Empty filters match
// everything; filters that match nothing return an empty list, never an
// error.
func (r *Registry) FilterRules(standardIDs []string, parameter, category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wantStandard := make(map[string]struct{}, len(standardIDs))
	for _, id := range standardIDs {
		wantStandard[id] = struct{}{}
	}

	var out []string
	for _, std := range r.standards {
		if len(wantStandard) > 0 {
			if _, ok := wantStandard[std.ID]; !ok {
				continue
			}
		}
		if category != "" && std.Category != category {
			continue
		}
		for _, ruleID := range std.RuleIDs {
			def := r.rules[ruleID]
			if parameter != "" && !strings.Contains(strings.ToLower(def.Feature), strings.ToLower(parameter)) {
				continue
			}
			out = append(out, ruleID)
		}
	}
	sort.Strings(out)
	return out
}
