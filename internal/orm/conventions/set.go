package conventions

import (
	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// Defaults returns fresh instances of the core conventions in registration
// order.
func Defaults() []metadata.ConventionRule {
	return []metadata.ConventionRule{
		&TagConvention{},
		&PropertyDiscovery{},
		&KeyDiscovery{},
		&RelationshipDiscovery{},
		&ForeignKeyPropertyDiscovery{},
		&KeyConvention{},
		&ForeignKeyIndex{},
		&RequiredNavigation{},
		&ValueGeneration{},
	}
}

// NewDefaultSet builds the core convention set, leaving out the named
// conventions.
func NewDefaultSet(disabled ...string) *metadata.ConventionSet {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}
	set := metadata.NewConventionSet()
	for _, c := range Defaults() {
		if !skip[c.Name()] {
			set.Add(c)
		}
	}
	return set
}
