package metadata

import (
	"fmt"
	"reflect"
)

// StoreGeneratedPattern describes when the store generates a property value
type StoreGeneratedPattern int

const (
	StoreGeneratedNone StoreGeneratedPattern = iota
	StoreGeneratedOnAdd
	StoreGeneratedOnAddOrUpdate
)

// String returns the string representation of the pattern
func (p StoreGeneratedPattern) String() string {
	switch p {
	case StoreGeneratedNone:
		return "none"
	case StoreGeneratedOnAdd:
		return "on_add"
	case StoreGeneratedOnAddOrUpdate:
		return "on_add_or_update"
	default:
		return "unknown"
	}
}

// ParseStoreGeneratedPattern converts a string to a StoreGeneratedPattern
func ParseStoreGeneratedPattern(s string) (StoreGeneratedPattern, error) {
	switch s {
	case "none", "never":
		return StoreGeneratedNone, nil
	case "on_add":
		return StoreGeneratedOnAdd, nil
	case "on_add_or_update":
		return StoreGeneratedOnAddOrUpdate, nil
	default:
		return StoreGeneratedNone, fmt.Errorf("unknown value generation: %s", s)
	}
}

// Property is a scalar member of an entity type
type Property struct {
	annotatable

	declaringType *EntityType
	name          string
	source        ConfigurationSource

	goType       reflect.Type
	goTypeSource ConfigurationSource
	isShadow     bool

	nullable       bool
	nullableSource ConfigurationSource

	concurrencyToken       bool
	concurrencyTokenSource ConfigurationSource

	maxLength       int
	maxLengthSource ConfigurationSource

	valueGenerated       StoreGeneratedPattern
	valueGeneratedSource ConfigurationSource

	keys        []*Key
	foreignKeys []*ForeignKey
	indexes     []*Index

	builder *InternalPropertyBuilder
	inModel bool
}

func newProperty(et *EntityType, name string, goType reflect.Type, shadow bool, source, typeSource ConfigurationSource) *Property {
	p := &Property{
		declaringType: et,
		name:          name,
		source:        source,
		goType:        goType,
		goTypeSource:  typeSource,
		isShadow:      shadow,
		nullable:      IsNullableType(goType),
		maxLength:     -1,
		inModel:       true,
	}
	p.builder = &InternalPropertyBuilder{property: p}
	return p
}

// Name returns the property name
func (p *Property) Name() string { return p.name }

// DeclaringEntityType returns the entity type that declares the property
func (p *Property) DeclaringEntityType() *EntityType { return p.declaringType }

// ConfigurationSource returns the source that added the property
func (p *Property) ConfigurationSource() ConfigurationSource { return p.source }

// GoType returns the property type
func (p *Property) GoType() reflect.Type { return p.goType }

// GoTypeSource returns the source that configured the property type
func (p *Property) GoTypeSource() ConfigurationSource { return p.goTypeSource }

// IsShadow reports whether the property has no backing struct field
func (p *Property) IsShadow() bool { return p.isShadow }

// IsNullable reports whether the property accepts missing values. Primary key
// properties are never nullable.
func (p *Property) IsNullable() bool {
	return p.nullable && !p.IsPrimaryKey()
}

// NullableSource returns the source of the nullability fact
func (p *Property) NullableSource() ConfigurationSource { return p.nullableSource }

// IsConcurrencyToken reports whether the property is checked on update
func (p *Property) IsConcurrencyToken() bool { return p.concurrencyToken }

// ConcurrencyTokenSource returns the source of the concurrency token fact
func (p *Property) ConcurrencyTokenSource() ConfigurationSource { return p.concurrencyTokenSource }

// MaxLength returns the configured maximum length, or -1
func (p *Property) MaxLength() int { return p.maxLength }

// MaxLengthSource returns the source of the max length fact
func (p *Property) MaxLengthSource() ConfigurationSource { return p.maxLengthSource }

// ValueGenerated returns the value generation strategy
func (p *Property) ValueGenerated() StoreGeneratedPattern { return p.valueGenerated }

// ValueGeneratedSource returns the source of the value generation fact
func (p *Property) ValueGeneratedSource() ConfigurationSource { return p.valueGeneratedSource }

// IsInModel reports whether the property is still part of its entity type
func (p *Property) IsInModel() bool { return p.inModel }

// Builder returns the internal builder for this property
func (p *Property) Builder() *InternalPropertyBuilder { return p.builder }

// ContainingKeys returns the keys that use this property
func (p *Property) ContainingKeys() []*Key { return append([]*Key(nil), p.keys...) }

// ContainingForeignKeys returns the foreign keys that use this property
func (p *Property) ContainingForeignKeys() []*ForeignKey {
	return append([]*ForeignKey(nil), p.foreignKeys...)
}

// ContainingIndexes returns the indexes that use this property
func (p *Property) ContainingIndexes() []*Index { return append([]*Index(nil), p.indexes...) }

// IsPrimaryKey reports whether the property is part of the primary key
func (p *Property) IsPrimaryKey() bool {
	for _, k := range p.keys {
		if k.IsPrimaryKey() {
			return true
		}
	}
	return false
}

// IsForeignKey reports whether the property is part of a foreign key
func (p *Property) IsForeignKey() bool { return len(p.foreignKeys) > 0 }

// IsKey reports whether the property is part of any key
func (p *Property) IsKey() bool { return len(p.keys) > 0 }

// String returns the display name of the property
func (p *Property) String() string {
	return p.declaringType.name + "." + p.name
}

func (p *Property) isUnused() bool {
	return len(p.keys) == 0 && len(p.foreignKeys) == 0 && len(p.indexes) == 0
}
