// Package manifest turns the ordered module list into the assembled document
// the optimizer consumes.
package manifest

import (
	"github.com/appneta/tbonebuild/internal/config"
)

// Condition decides whether an entry takes part in a build.
type Condition func(cfg config.Build) bool

// Always includes an entry unconditionally.
func Always(config.Build) bool { return true }

// WhenBackbone includes an entry only when backbone support is enabled.
func WhenBackbone(cfg config.Build) bool { return cfg.BackboneSupport }

// Entry is a module identifier with its inclusion predicate.
type Entry struct {
	Name string
	When Condition
}

// Manifest is the ordered list of module entries.
type Manifest []Entry

// FromProject maps the project module specs onto entries. Unknown conditions
// are rejected earlier by config.Project.Validate.
func FromProject(p config.Project) Manifest {
	m := make(Manifest, 0, len(p.Modules))
	for _, spec := range p.Modules {
		e := Entry{Name: spec.Name, When: Always}
		if spec.When == config.ConditionBackbone {
			e.When = WhenBackbone
		}
		m = append(m, e)
	}
	return m
}

// Resolve evaluates every predicate against cfg and returns the included
// module names in manifest order. Nothing is reordered or deduplicated.
func (m Manifest) Resolve(cfg config.Build) []string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		if e.When == nil || e.When(cfg) {
			names = append(names, e.Name)
		}
	}
	return names
}
