package modelbuilder

import (
	"fmt"
	"reflect"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

// EntityTypeBuilder configures an entity type. When the entity type could not
// be added every call is a no-op; the reason is on the ModelBuilder.
type EntityTypeBuilder struct {
	mb      *ModelBuilder
	builder *metadata.InternalEntityTypeBuilder
}

// EntityTypeBuilderOf is an EntityTypeBuilder for the entity type mapped to T.
type EntityTypeBuilderOf[T any] struct {
	*EntityTypeBuilder
}

// Metadata returns the entity type, or nil when it was not added.
func (b *EntityTypeBuilder) Metadata() *metadata.EntityType {
	if b.builder == nil {
		return nil
	}
	return b.builder.Metadata()
}

func (b *EntityTypeBuilder) entityType() *metadata.EntityType {
	return b.builder.Metadata()
}

// Property configures a property backed by a field of the Go type, or an
// existing shadow property.
func (b *EntityTypeBuilder) Property(name string) *PropertyBuilder {
	if b.builder == nil {
		return &PropertyBuilder{mb: b.mb}
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: property name cannot be empty", metadata.ErrInvalidArgument))
		return &PropertyBuilder{mb: b.mb}
	}
	if !b.hasMember(name) {
		b.mb.fail(fmt.Errorf("%w: %s.%s", metadata.ErrPropertyNotFound, b.entityType().Name(), name))
		return &PropertyBuilder{mb: b.mb}
	}
	pb := b.builder.Property(name, nil, metadata.Explicit)
	if pb == nil {
		b.mb.reject("property %s.%s", b.entityType().Name(), name)
	}
	return &PropertyBuilder{mb: b.mb, builder: pb}
}

// ShadowProperty adds or configures a property that has no Go field.
func (b *EntityTypeBuilder) ShadowProperty(name string, goType reflect.Type) *PropertyBuilder {
	if b.builder == nil {
		return &PropertyBuilder{mb: b.mb}
	}
	if name == "" || goType == nil {
		b.mb.fail(fmt.Errorf("%w: shadow property needs a name and a type", metadata.ErrInvalidArgument))
		return &PropertyBuilder{mb: b.mb}
	}
	if _, ok := metadata.FindMember(b.entityType().GoType(), name); ok {
		b.mb.fail(fmt.Errorf("%w: %s.%s is a field, not a shadow property",
			metadata.ErrInvalidArgument, b.entityType().Name(), name))
		return &PropertyBuilder{mb: b.mb}
	}
	pb := b.builder.Property(name, goType, metadata.Explicit)
	if pb == nil {
		b.mb.reject("shadow property %s.%s", b.entityType().Name(), name)
	}
	return &PropertyBuilder{mb: b.mb, builder: pb}
}

// Ignore removes a property or navigation and keeps conventions from adding it.
func (b *EntityTypeBuilder) Ignore(name string) *EntityTypeBuilder {
	if b.builder == nil {
		return b
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: member name cannot be empty", metadata.ErrInvalidArgument))
		return b
	}
	if !b.builder.Ignore(name, metadata.Explicit) {
		b.mb.reject("ignore %s.%s", b.entityType().Name(), name)
	}
	return b
}

// HasKey sets the primary key.
func (b *EntityTypeBuilder) HasKey(names ...string) *KeyBuilder {
	if !b.checkMembers("primary key", names) {
		return &KeyBuilder{mb: b.mb}
	}
	kb, err := b.builder.PrimaryKey(names, metadata.Explicit)
	if err != nil {
		b.mb.fail(err)
	} else if kb == nil {
		b.mb.reject("primary key %v on %s", names, b.entityType().Name())
	}
	return &KeyBuilder{mb: b.mb, builder: kb}
}

// HasAlternateKey adds a key that is not the primary key.
func (b *EntityTypeBuilder) HasAlternateKey(names ...string) *KeyBuilder {
	if !b.checkMembers("alternate key", names) {
		return &KeyBuilder{mb: b.mb}
	}
	kb := b.builder.HasKey(names, metadata.Explicit)
	if kb == nil {
		b.mb.reject("alternate key %v on %s", names, b.entityType().Name())
	}
	return &KeyBuilder{mb: b.mb, builder: kb}
}

// HasIndex adds an index.
func (b *EntityTypeBuilder) HasIndex(names ...string) *IndexBuilder {
	if !b.checkMembers("index", names) {
		return &IndexBuilder{mb: b.mb}
	}
	ib := b.builder.HasIndex(names, metadata.Explicit)
	if ib == nil {
		b.mb.reject("index %v on %s", names, b.entityType().Name())
	}
	return &IndexBuilder{mb: b.mb, builder: ib}
}

// HasBaseType makes the named entity type the base of this one. An empty name
// removes the base type.
func (b *EntityTypeBuilder) HasBaseType(name string) *EntityTypeBuilder {
	if b.builder == nil {
		return b
	}
	var base *metadata.EntityType
	if name != "" {
		if base = b.mb.entityType(name); base == nil {
			return b
		}
	}
	if b.builder.HasBaseType(base, metadata.Explicit) == nil {
		b.mb.reject("base type %s of %s", name, b.entityType().Name())
	}
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *EntityTypeBuilder) HasAnnotation(name string, value any) *EntityTypeBuilder {
	if b.builder == nil {
		return b
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return b
	}
	if b.builder.HasAnnotation(name, value, metadata.Explicit) == nil {
		b.mb.reject("annotation %s on %s", name, b.entityType().Name())
	}
	return b
}

// ToTable maps the entity type to a table. An empty name removes the mapping.
func (b *EntityTypeBuilder) ToTable(name string) *EntityTypeBuilder {
	if b.builder == nil {
		return b
	}
	if !relational.ToTable(b.builder, name, metadata.Explicit) {
		b.mb.reject("table %s for %s", name, b.entityType().Name())
	}
	return b
}

// HasOne starts a relationship through a reference navigation field. The
// target entity type is taken from the field type and added when missing.
func (b *EntityTypeBuilder) HasOne(navigation string) *ReferenceNavigationBuilder {
	target := b.navigationTarget(navigation, false)
	if target == nil {
		return &ReferenceNavigationBuilder{mb: b.mb}
	}
	return &ReferenceNavigationBuilder{mb: b.mb, declaring: b.entityType(), target: target, navigation: navigation}
}

// HasOneTo starts a relationship to the named entity type. The navigation may
// be empty for a relationship without one on this side.
func (b *EntityTypeBuilder) HasOneTo(target, navigation string) *ReferenceNavigationBuilder {
	if b.builder == nil {
		return &ReferenceNavigationBuilder{mb: b.mb}
	}
	et := b.mb.entityType(target)
	if et == nil || !b.mb.checkNavigation(b.entityType(), navigation, false) {
		return &ReferenceNavigationBuilder{mb: b.mb}
	}
	return &ReferenceNavigationBuilder{mb: b.mb, declaring: b.entityType(), target: et, navigation: navigation}
}

// HasMany starts a relationship through a collection navigation field.
func (b *EntityTypeBuilder) HasMany(navigation string) *CollectionNavigationBuilder {
	target := b.navigationTarget(navigation, true)
	if target == nil {
		return &CollectionNavigationBuilder{mb: b.mb}
	}
	return &CollectionNavigationBuilder{mb: b.mb, declaring: b.entityType(), target: target, navigation: navigation}
}

// HasManyTo starts a one-to-many relationship to the named entity type.
func (b *EntityTypeBuilder) HasManyTo(target, navigation string) *CollectionNavigationBuilder {
	if b.builder == nil {
		return &CollectionNavigationBuilder{mb: b.mb}
	}
	et := b.mb.entityType(target)
	if et == nil || !b.mb.checkNavigation(b.entityType(), navigation, true) {
		return &CollectionNavigationBuilder{mb: b.mb}
	}
	return &CollectionNavigationBuilder{mb: b.mb, declaring: b.entityType(), target: et, navigation: navigation}
}

// hasMember reports whether name is a property or a Go field of the entity type.
func (b *EntityTypeBuilder) hasMember(name string) bool {
	et := b.entityType()
	if et.FindProperty(name) != nil {
		return true
	}
	_, ok := metadata.FindMember(et.GoType(), name)
	return ok
}

func (b *EntityTypeBuilder) checkMembers(what string, names []string) bool {
	if b.builder == nil {
		return false
	}
	et := b.entityType()
	if !b.mb.checkNames(what+" on "+et.Name(), names) {
		return false
	}
	for _, name := range names {
		if !b.hasMember(name) {
			b.mb.fail(fmt.Errorf("%w: %s.%s", metadata.ErrPropertyNotFound, et.Name(), name))
			return false
		}
	}
	return true
}

// navigationTarget resolves the entity type a navigation field points to.
func (b *EntityTypeBuilder) navigationTarget(name string, collection bool) *metadata.EntityType {
	if b.builder == nil {
		return nil
	}
	et := b.entityType()
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: navigation name cannot be empty", metadata.ErrInvalidArgument))
		return nil
	}
	if et.GoType() == nil {
		b.mb.fail(fmt.Errorf("%w: %s has no Go type; name the target entity type instead",
			metadata.ErrInvalidArgument, et.Name()))
		return nil
	}
	shape, ok := b.mb.navigationShape(et, name, collection)
	if !ok {
		return nil
	}
	target := b.mb.model.Builder().EntityOf(shape.Target, metadata.Explicit)
	if target == nil {
		b.mb.reject("entity type %v", shape.Target)
		return nil
	}
	return target.Metadata()
}

// navigationShape checks that name is a navigation field of et with the
// expected shape.
func (mb *ModelBuilder) navigationShape(et *metadata.EntityType, name string, collection bool) (metadata.NavigationShape, bool) {
	member, ok := metadata.FindMember(et.GoType(), name)
	if !ok {
		mb.fail(fmt.Errorf("%w: %s has no field named %s", metadata.ErrInvalidArgument, et.Name(), name))
		return metadata.NavigationShape{}, false
	}
	shape, ok := metadata.NavigationShapeOf(member.Type)
	if !ok {
		mb.fail(fmt.Errorf("%w: %s.%s of type %s is not a navigation",
			metadata.ErrInvalidArgument, et.Name(), name, member.Type))
		return metadata.NavigationShape{}, false
	}
	if shape.IsCollection != collection {
		want := "reference"
		if collection {
			want = "collection"
		}
		mb.fail(fmt.Errorf("%w: %s.%s is not a %s navigation", metadata.ErrInvalidArgument, et.Name(), name, want))
		return metadata.NavigationShape{}, false
	}
	return shape, true
}

// checkNavigation validates an optional navigation name on et. Entity types
// without a Go type cannot have navigations.
func (mb *ModelBuilder) checkNavigation(et *metadata.EntityType, name string, collection bool) bool {
	if name == "" {
		return true
	}
	if et.GoType() == nil {
		mb.fail(fmt.Errorf("%w: %s has no Go type and cannot have navigation %s",
			metadata.ErrInvalidArgument, et.Name(), name))
		return false
	}
	_, ok := mb.navigationShape(et, name, collection)
	return ok
}
