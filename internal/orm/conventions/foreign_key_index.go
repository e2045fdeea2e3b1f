package conventions

import (
	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// ForeignKeyIndex keeps an index on the properties of every foreign key. The
// index is unique when a one-to-one relationship uses the properties, and is
// left out when a key already covers them.
type ForeignKeyIndex struct{}

// Name implements metadata.ConventionRule
func (*ForeignKeyIndex) Name() string { return "ForeignKeyIndex" }

// ProcessForeignKeyAdded implements metadata.ForeignKeyAddedConvention
func (c *ForeignKeyIndex) ProcessForeignKeyAdded(b *metadata.InternalRelationshipBuilder) {
	c.ensure(b.Metadata())
}

// ProcessForeignKeyPropertiesChanged implements
// metadata.ForeignKeyPropertiesChangedConvention
func (c *ForeignKeyIndex) ProcessForeignKeyPropertiesChanged(b *metadata.InternalRelationshipBuilder, oldProperties []*metadata.Property, oldPrincipalKey *metadata.Key) {
	if len(oldProperties) > 0 {
		c.release(oldProperties[0].DeclaringEntityType(), oldProperties)
	}
	c.ensure(b.Metadata())
}

// ProcessForeignKeyUniquenessChanged implements
// metadata.ForeignKeyUniquenessChangedConvention
func (c *ForeignKeyIndex) ProcessForeignKeyUniquenessChanged(b *metadata.InternalRelationshipBuilder) {
	c.ensure(b.Metadata())
}

// ProcessForeignKeyRemoved implements metadata.ForeignKeyRemovedConvention
func (c *ForeignKeyIndex) ProcessForeignKeyRemoved(b *metadata.InternalEntityTypeBuilder, fk *metadata.ForeignKey) {
	if b.Metadata().IsInModel() {
		c.release(b.Metadata(), fk.Properties())
	}
}

// ProcessKeyAdded implements metadata.KeyAddedConvention
func (c *ForeignKeyIndex) ProcessKeyAdded(b *metadata.InternalKeyBuilder) {
	k := b.Metadata()
	for _, t := range hierarchy(k.DeclaringEntityType()) {
		for _, fk := range t.DeclaredForeignKeys() {
			c.ensure(fk)
		}
	}
}

// ProcessKeyRemoved implements metadata.KeyRemovedConvention
func (c *ForeignKeyIndex) ProcessKeyRemoved(b *metadata.InternalEntityTypeBuilder, k *metadata.Key) {
	for _, t := range hierarchy(b.Metadata()) {
		for _, fk := range t.DeclaredForeignKeys() {
			c.ensure(fk)
		}
	}
}

func (c *ForeignKeyIndex) ensure(fk *metadata.ForeignKey) {
	if !fk.IsInModel() {
		return
	}
	props := fk.Properties()
	if len(props) == 0 {
		return
	}
	dependent := fk.DeclaringEntityType()
	idx := dependent.FindIndex(props)

	if coveredByKey(dependent, props) {
		if idx != nil && idx.ConfigurationSource() == metadata.Convention {
			idx.DeclaringEntityType().Builder().RemoveIndex(idx, metadata.Convention)
		}
		return
	}

	unique := uniqueUse(dependent, props)
	if idx == nil {
		if ib := dependent.Builder().HasIndexOn(props, metadata.Convention); ib != nil {
			ib.IsUnique(unique, metadata.Convention)
		}
		return
	}
	if idx.IsUnique() != unique {
		idx.Builder().IsUnique(unique, metadata.Convention)
	}
}

// release drops the convention index over props once no foreign key uses them.
func (c *ForeignKeyIndex) release(dependent *metadata.EntityType, props []*metadata.Property) {
	if !dependent.IsInModel() || len(props) == 0 {
		return
	}
	idx := dependent.FindIndex(props)
	if idx == nil || idx.ConfigurationSource() != metadata.Convention {
		return
	}
	for _, t := range hierarchy(idx.DeclaringEntityType()) {
		for _, fk := range t.DeclaredForeignKeys() {
			if sameProperties(fk.Properties(), props) {
				c.ensure(fk)
				return
			}
		}
	}
	idx.DeclaringEntityType().Builder().RemoveIndex(idx, metadata.Convention)
}

func coveredByKey(et *metadata.EntityType, props []*metadata.Property) bool {
	for _, k := range et.Keys() {
		keyProps := k.Properties()
		if len(keyProps) >= len(props) && sameProperties(keyProps[:len(props)], props) {
			return true
		}
	}
	return false
}

// uniqueUse reports whether a one-to-one relationship uses exactly props.
func uniqueUse(et *metadata.EntityType, props []*metadata.Property) bool {
	for _, fk := range et.ForeignKeys() {
		if fk.IsUnique() && sameProperties(fk.Properties(), props) {
			return true
		}
	}
	return false
}

// hierarchy returns et followed by every type derived from it.
func hierarchy(et *metadata.EntityType) []*metadata.EntityType {
	result := []*metadata.EntityType{et}
	for _, d := range et.DerivedTypes() {
		result = append(result, hierarchy(d)...)
	}
	return result
}
