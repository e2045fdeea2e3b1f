package conventions

import (
	"strings"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// KeyDiscovery makes a property named Id or <Type>Id the primary key of a
// root entity type, unless a higher source configured the key.
type KeyDiscovery struct{}

// Name implements metadata.ConventionRule
func (*KeyDiscovery) Name() string { return "KeyDiscovery" }

// ProcessEntityTypeAdded implements metadata.EntityTypeAddedConvention
func (c *KeyDiscovery) ProcessEntityTypeAdded(b *metadata.InternalEntityTypeBuilder) {
	c.discover(b)
}

// ProcessBaseTypeChanged implements metadata.BaseTypeChangedConvention
func (c *KeyDiscovery) ProcessBaseTypeChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.EntityType) {
	c.discover(b)
}

// ProcessPropertyAdded implements metadata.PropertyAddedConvention
func (c *KeyDiscovery) ProcessPropertyAdded(b *metadata.InternalPropertyBuilder) {
	c.discover(b.Metadata().DeclaringEntityType().Builder())
}

// ProcessPropertyRemoved implements metadata.PropertyRemovedConvention
func (c *KeyDiscovery) ProcessPropertyRemoved(b *metadata.InternalEntityTypeBuilder, p *metadata.Property) {
	c.discover(b)
}

// ProcessKeyRemoved implements metadata.KeyRemovedConvention
func (c *KeyDiscovery) ProcessKeyRemoved(b *metadata.InternalEntityTypeBuilder, k *metadata.Key) {
	if b.Metadata().FindPrimaryKey() == nil {
		c.discover(b)
	}
}

func (c *KeyDiscovery) discover(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.BaseType() != nil || !metadata.Convention.Overrides(et.PrimaryKeySource()) {
		return
	}

	candidate := FindKeyCandidate(et)
	if candidate == nil {
		if pk := et.FindPrimaryKey(); pk != nil && et.PrimaryKeySource() == metadata.Convention {
			b.RemovePrimaryKey(metadata.Convention)
		}
		return
	}
	if pk := et.FindPrimaryKey(); pk != nil {
		if props := pk.Properties(); len(props) == 1 && props[0] == candidate {
			return
		}
	}
	if kb, _ := b.PrimaryKeyOn([]*metadata.Property{candidate}, metadata.Convention); kb != nil {
		et.Model().Logger().Debug("primary key discovered",
			zap.String("entity_type", et.Name()),
			zap.String("property", candidate.Name()))
	}
}

// FindKeyCandidate returns the declared property that names the key of et by
// convention. Id wins over <Type>Id; convention shadow properties never
// qualify.
func FindKeyCandidate(et *metadata.EntityType) *metadata.Property {
	typeKey := strings.ToLower(typeName(et)) + "id"
	var byType *metadata.Property
	for _, p := range et.DeclaredProperties() {
		if p.IsShadow() && p.ConfigurationSource() == metadata.Convention {
			continue
		}
		switch strings.ToLower(p.Name()) {
		case "id":
			return p
		case typeKey:
			if byType == nil {
				byType = p
			}
		}
	}
	return byType
}

// typeName is the short name conventions use for an entity type.
func typeName(et *metadata.EntityType) string {
	if t := et.GoType(); t != nil {
		return t.Name()
	}
	name := et.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
