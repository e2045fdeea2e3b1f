package conventions

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// ValueGeneration marks a single integer or UUID primary key property as
// generated on add, unless the property is also a foreign key.
type ValueGeneration struct{}

// Name implements metadata.ConventionRule
func (*ValueGeneration) Name() string { return "ValueGeneration" }

// ProcessPrimaryKeyChanged implements metadata.PrimaryKeyChangedConvention
func (c *ValueGeneration) ProcessPrimaryKeyChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.Key) {
	if previous != nil {
		c.update(previous.Properties())
	}
	c.apply(b.Metadata())
}

// ProcessForeignKeyAdded implements metadata.ForeignKeyAddedConvention
func (c *ValueGeneration) ProcessForeignKeyAdded(b *metadata.InternalRelationshipBuilder) {
	c.apply(b.Metadata().DeclaringEntityType())
}

// ProcessForeignKeyPropertiesChanged implements
// metadata.ForeignKeyPropertiesChangedConvention
func (c *ValueGeneration) ProcessForeignKeyPropertiesChanged(b *metadata.InternalRelationshipBuilder, oldProperties []*metadata.Property, oldPrincipalKey *metadata.Key) {
	c.update(oldProperties)
	c.apply(b.Metadata().DeclaringEntityType())
}

// ProcessForeignKeyRemoved implements metadata.ForeignKeyRemovedConvention
func (c *ValueGeneration) ProcessForeignKeyRemoved(b *metadata.InternalEntityTypeBuilder, fk *metadata.ForeignKey) {
	if b.Metadata().IsInModel() {
		c.update(fk.Properties())
	}
}

func (c *ValueGeneration) apply(et *metadata.EntityType) {
	if !et.IsInModel() {
		return
	}
	if pk := et.FindPrimaryKey(); pk != nil {
		c.update(pk.Properties())
	}
}

// update sets the convention value generation of each live property.
func (c *ValueGeneration) update(props []*metadata.Property) {
	for _, p := range props {
		if !p.IsInModel() || p.ValueGeneratedSource().OverridesStrictly(metadata.Convention) {
			continue
		}
		want := metadata.StoreGeneratedNone
		if isGeneratedKey(p) {
			want = metadata.StoreGeneratedOnAdd
		}
		if p.ValueGenerated() != want {
			p.Builder().ValueGenerated(want, metadata.Convention)
		}
	}
}

func isGeneratedKey(p *metadata.Property) bool {
	if !p.IsPrimaryKey() || p.IsForeignKey() {
		return false
	}
	pk := p.DeclaringEntityType().FindPrimaryKey()
	if pk == nil || len(pk.Properties()) != 1 {
		return false
	}
	t := metadata.UnderlyingType(p.GoType())
	if t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
