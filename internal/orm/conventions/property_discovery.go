// Package conventions provides the automatic rules that shape a model from the
// Go types mapped into it. Every convention configures with the Convention
// source, except TagConvention which reads struct tags as data annotations.
package conventions

import (
	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// PropertyDiscovery adds a property for every scalar exported field of a
// mapped Go type.
type PropertyDiscovery struct{}

// Name implements metadata.ConventionRule
func (*PropertyDiscovery) Name() string { return "PropertyDiscovery" }

// ProcessEntityTypeAdded implements metadata.EntityTypeAddedConvention
func (c *PropertyDiscovery) ProcessEntityTypeAdded(b *metadata.InternalEntityTypeBuilder) {
	c.discover(b)
}

// ProcessBaseTypeChanged implements metadata.BaseTypeChangedConvention. Fields
// that were inherited from the previous base type come back as declared
// properties.
func (c *PropertyDiscovery) ProcessBaseTypeChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.EntityType) {
	c.discover(b)
}

func (c *PropertyDiscovery) discover(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.IsShadow() {
		return
	}
	for _, f := range metadata.ExportedMembers(et.GoType()) {
		if metadata.IgnoredByTag(f) || !metadata.IsScalarType(f.Type) {
			continue
		}
		if et.IsIgnored(f.Name, metadata.Convention) {
			continue
		}
		if b.Property(f.Name, nil, metadata.Convention) == nil {
			et.Model().Logger().Debug("property not discovered",
				zap.String("entity_type", et.Name()),
				zap.String("field", f.Name))
		}
	}
}
