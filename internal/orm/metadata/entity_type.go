package metadata

import (
	"reflect"
	"sort"
	"strings"
)

// EntityTypeState is the lifecycle state of an entity type
type EntityTypeState int

const (
	// StateProvisional means the entity type has no primary key yet.
	StateProvisional EntityTypeState = iota
	// StateKeyed means a primary key is configured.
	StateKeyed
	// StateFinalized means the owning model is read-only.
	StateFinalized
)

// String returns the string representation of the state
func (s EntityTypeState) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateKeyed:
		return "keyed"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// EntityType represents a mapped Go struct or a shadow entity.
type EntityType struct {
	annotatable

	model  *Model
	name   string
	goType reflect.Type
	source ConfigurationSource

	baseType       *EntityType
	baseTypeSource ConfigurationSource
	derivedTypes   []*EntityType

	properties     []*Property
	propertyIndex  map[string]*Property
	ignoredMembers map[string]ConfigurationSource

	// navigation name -> target, for navigations discovery must not pair
	ambiguous map[string]*EntityType

	primaryKey       *Key
	primaryKeySource ConfigurationSource
	keys             []*Key

	foreignKeys []*ForeignKey
	referencing []*ForeignKey
	indexes     []*Index

	builder *InternalEntityTypeBuilder
	inModel bool
}

func newEntityType(m *Model, name string, goType reflect.Type, source ConfigurationSource) *EntityType {
	et := &EntityType{
		model:          m,
		name:           name,
		goType:         goType,
		source:         source,
		propertyIndex:  make(map[string]*Property),
		ignoredMembers: make(map[string]ConfigurationSource),
		inModel:        true,
	}
	et.builder = &InternalEntityTypeBuilder{entityType: et}
	return et
}

// Name returns the entity type name
func (et *EntityType) Name() string { return et.name }

// GoType returns the mapped struct type, or nil for shadow entity types
func (et *EntityType) GoType() reflect.Type { return et.goType }

// IsShadow reports whether the entity type has no Go type
func (et *EntityType) IsShadow() bool { return et.goType == nil }

// Model returns the owning model
func (et *EntityType) Model() *Model { return et.model }

// ConfigurationSource returns the source that added the entity type
func (et *EntityType) ConfigurationSource() ConfigurationSource { return et.source }

// IsInModel reports whether the entity type is still part of its model
func (et *EntityType) IsInModel() bool { return et.inModel }

// Builder returns the internal builder for this entity type
func (et *EntityType) Builder() *InternalEntityTypeBuilder { return et.builder }

// BaseType returns the base entity type, if any
func (et *EntityType) BaseType() *EntityType { return et.baseType }

// BaseTypeSource returns the source that configured the base type
func (et *EntityType) BaseTypeSource() ConfigurationSource { return et.baseTypeSource }

// DerivedTypes returns the directly derived entity types
func (et *EntityType) DerivedTypes() []*EntityType {
	return append([]*EntityType(nil), et.derivedTypes...)
}

// RootType returns the least derived type of the hierarchy
func (et *EntityType) RootType() *EntityType {
	root := et
	for root.baseType != nil {
		root = root.baseType
	}
	return root
}

// IsAssignableFrom reports whether other is et or derives from it
func (et *EntityType) IsAssignableFrom(other *EntityType) bool {
	for t := other; t != nil; t = t.baseType {
		if t == et {
			return true
		}
	}
	return false
}

// State returns the lifecycle state of the entity type
func (et *EntityType) State() EntityTypeState {
	if et.model.finalized {
		return StateFinalized
	}
	if et.FindPrimaryKey() != nil {
		return StateKeyed
	}
	return StateProvisional
}

// FindDeclaredProperty returns a property declared on this type
func (et *EntityType) FindDeclaredProperty(name string) *Property {
	return et.propertyIndex[name]
}

// FindProperty returns a declared or inherited property
func (et *EntityType) FindProperty(name string) *Property {
	for t := et; t != nil; t = t.baseType {
		if p := t.propertyIndex[name]; p != nil {
			return p
		}
	}
	return nil
}

// DeclaredProperties returns the properties declared on this type
func (et *EntityType) DeclaredProperties() []*Property {
	return append([]*Property(nil), et.properties...)
}

// Properties returns inherited properties followed by declared ones
func (et *EntityType) Properties() []*Property {
	if et.baseType == nil {
		return et.DeclaredProperties()
	}
	return append(et.baseType.Properties(), et.properties...)
}

// FindPrimaryKey returns the primary key of the hierarchy root
func (et *EntityType) FindPrimaryKey() *Key {
	return et.RootType().primaryKey
}

// PrimaryKeySource returns the source of the primary key fact
func (et *EntityType) PrimaryKeySource() ConfigurationSource {
	return et.RootType().primaryKeySource
}

// DeclaredKeys returns the keys declared on this type
func (et *EntityType) DeclaredKeys() []*Key {
	return append([]*Key(nil), et.keys...)
}

// Keys returns the keys declared on this type and its base types
func (et *EntityType) Keys() []*Key {
	if et.baseType == nil {
		return et.DeclaredKeys()
	}
	return append(et.baseType.Keys(), et.keys...)
}

// FindKey returns the key over exactly the given ordered properties
func (et *EntityType) FindKey(props []*Property) *Key {
	for _, k := range et.Keys() {
		if samePropertyList(k.properties, props) {
			return k
		}
	}
	return nil
}

// DeclaredForeignKeys returns foreign keys declared on this type
func (et *EntityType) DeclaredForeignKeys() []*ForeignKey {
	return append([]*ForeignKey(nil), et.foreignKeys...)
}

// ForeignKeys returns declared and inherited foreign keys
func (et *EntityType) ForeignKeys() []*ForeignKey {
	if et.baseType == nil {
		return et.DeclaredForeignKeys()
	}
	return append(et.baseType.ForeignKeys(), et.foreignKeys...)
}

// ReferencingForeignKeys returns foreign keys whose principal is this type or a base type
func (et *EntityType) ReferencingForeignKeys() []*ForeignKey {
	var result []*ForeignKey
	for t := et; t != nil; t = t.baseType {
		result = append(result, t.referencing...)
	}
	return result
}

// DeclaredIndexes returns the indexes declared on this type
func (et *EntityType) DeclaredIndexes() []*Index {
	return append([]*Index(nil), et.indexes...)
}

// Indexes returns declared and inherited indexes
func (et *EntityType) Indexes() []*Index {
	if et.baseType == nil {
		return et.DeclaredIndexes()
	}
	return append(et.baseType.Indexes(), et.indexes...)
}

// FindIndex returns the index over exactly the given ordered properties
func (et *EntityType) FindIndex(props []*Property) *Index {
	for _, idx := range et.Indexes() {
		if samePropertyList(idx.properties, props) {
			return idx
		}
	}
	return nil
}

// FindNavigation returns the navigation with the given name declared on this
// type or one of its base types.
func (et *EntityType) FindNavigation(name string) *Navigation {
	if name == "" {
		return nil
	}
	for t := et; t != nil; t = t.baseType {
		for _, fk := range t.foreignKeys {
			if fk.navToPrincipal == name {
				return &Navigation{name: name, declaringType: t, foreignKey: fk, onDependent: true}
			}
		}
		for _, fk := range t.referencing {
			if fk.navToDependent == name {
				return &Navigation{name: name, declaringType: t, foreignKey: fk, onDependent: false}
			}
		}
	}
	return nil
}

// Navigations returns every navigation declared on this type and its base types
func (et *EntityType) Navigations() []*Navigation {
	var result []*Navigation
	for t := et; t != nil; t = t.baseType {
		for _, fk := range t.foreignKeys {
			if fk.navToPrincipal != "" {
				result = append(result, &Navigation{name: fk.navToPrincipal, declaringType: t, foreignKey: fk, onDependent: true})
			}
		}
		for _, fk := range t.referencing {
			if fk.navToDependent != "" {
				result = append(result, &Navigation{name: fk.navToDependent, declaringType: t, foreignKey: fk, onDependent: false})
			}
		}
	}
	return result
}

// FindIgnoredSource returns the source that ignored a member name
func (et *EntityType) FindIgnoredSource(name string) ConfigurationSource {
	for t := et; t != nil; t = t.baseType {
		if s, ok := t.ignoredMembers[name]; ok {
			return s
		}
	}
	return NoSource
}

// IsAmbiguousNavigation reports whether relationship discovery left the named
// navigation unmapped because it had more than one inverse candidate. The
// mark is inherited by derived types.
func (et *EntityType) IsAmbiguousNavigation(name string) bool {
	for t := et; t != nil; t = t.baseType {
		if _, ok := t.ambiguous[name]; ok {
			return true
		}
	}
	return false
}

// AmbiguousNavigations returns the declared ambiguous navigation names, sorted
func (et *EntityType) AmbiguousNavigations() []string {
	names := make([]string, 0, len(et.ambiguous))
	for name := range et.ambiguous {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsIgnored reports whether a member is ignored for requests of source s
func (et *EntityType) IsIgnored(name string, s ConfigurationSource) bool {
	ignored := et.FindIgnoredSource(name)
	return ignored != NoSource && !s.Overrides(ignored)
}

// String returns the display name of the entity type
func (et *EntityType) String() string {
	return et.name
}

func (et *EntityType) hierarchy() []*EntityType {
	result := []*EntityType{et}
	for _, d := range et.derivedTypes {
		result = append(result, d.hierarchy()...)
	}
	return result
}

// findPropertyInHierarchy looks for a property with the given name on et, its
// base types and its derived types.
func (et *EntityType) findPropertyInHierarchy(name string) *Property {
	if p := et.FindProperty(name); p != nil {
		return p
	}
	for _, d := range et.hierarchy()[1:] {
		if p := d.propertyIndex[name]; p != nil {
			return p
		}
	}
	return nil
}

func samePropertyList(a, b []*Property) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func propertyNames(props []*Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.name
	}
	return names
}

func formatProperties(props []*Property) string {
	return "{" + strings.Join(propertyNames(props), ", ") + "}"
}
