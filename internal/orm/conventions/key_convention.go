package conventions

import (
	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// KeyConvention removes alternate keys that were synthesized for a
// relationship once no relationship references them anymore.
type KeyConvention struct{}

// Name implements metadata.ConventionRule
func (*KeyConvention) Name() string { return "KeyConvention" }

// ProcessForeignKeyRemoved implements metadata.ForeignKeyRemovedConvention
func (c *KeyConvention) ProcessForeignKeyRemoved(b *metadata.InternalEntityTypeBuilder, fk *metadata.ForeignKey) {
	c.removeIfUnused(fk.PrincipalKey())
}

// ProcessForeignKeyPropertiesChanged implements
// metadata.ForeignKeyPropertiesChangedConvention. The previous principal key
// may have lost its last reference.
func (c *KeyConvention) ProcessForeignKeyPropertiesChanged(b *metadata.InternalRelationshipBuilder, oldProperties []*metadata.Property, oldPrincipalKey *metadata.Key) {
	if oldPrincipalKey != b.Metadata().PrincipalKey() {
		c.removeIfUnused(oldPrincipalKey)
	}
}

// ProcessPrimaryKeyChanged implements metadata.PrimaryKeyChangedConvention. A
// replaced primary key that was kept for its relationships is dropped when
// they moved to the new key.
func (c *KeyConvention) ProcessPrimaryKeyChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.Key) {
	c.removeIfUnused(previous)
}

func (c *KeyConvention) removeIfUnused(k *metadata.Key) {
	if k == nil || !k.IsInModel() || k.IsPrimaryKey() {
		return
	}
	if k.ConfigurationSource() != metadata.Convention || len(k.ReferencingForeignKeys()) > 0 {
		return
	}
	et := k.DeclaringEntityType()
	if et.Builder().RemoveKey(k, metadata.Convention) {
		et.Model().Logger().Debug("unused key removed",
			zap.String("entity_type", et.Name()),
			zap.String("key", k.String()))
	}
}
