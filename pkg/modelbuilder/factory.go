package modelbuilder

import (
	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/conventions"
	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

// RelationalOptions controls the table naming conventions.
type RelationalOptions = relational.Options

// Factory creates model builders with a fixed convention set. Providers plug in
// by returning builders whose conventions they extended.
type Factory interface {
	Create() *ModelBuilder
}

// DefaultFactory builds models with the core conventions.
type DefaultFactory struct {
	// Disabled names conventions to leave out, e.g. "RelationshipDiscovery".
	Disabled []string
	// Relational adds table and column naming and the shared table validator.
	Relational *RelationalOptions
	// Logger receives convention decisions and validation warnings.
	Logger *zap.Logger
}

// Create returns a builder for a new, empty model.
func (f DefaultFactory) Create() *ModelBuilder {
	return New(f.Conventions(), metadata.WithLogger(f.Logger))
}

// Conventions returns a fresh convention set as configured.
func (f DefaultFactory) Conventions() *metadata.ConventionSet {
	set := conventions.NewDefaultSet(f.Disabled...)
	if f.Relational != nil {
		relational.Install(set, *f.Relational)
	}
	return set
}
