package modelbuilder

import (
	"fmt"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

// PropertyBuilder configures a scalar property.
type PropertyBuilder struct {
	mb      *ModelBuilder
	builder *metadata.InternalPropertyBuilder
}

// Metadata returns the property, or nil when it was not added.
func (b *PropertyBuilder) Metadata() *metadata.Property {
	if b.builder == nil {
		return nil
	}
	return b.builder.Metadata()
}

// IsRequired sets whether the property must hold a value. Only pointer, slice,
// map and interface types can be optional.
func (b *PropertyBuilder) IsRequired(required bool) *PropertyBuilder {
	if b.builder == nil {
		return b
	}
	pb, err := b.builder.IsRequired(required, metadata.Explicit)
	if err != nil {
		b.mb.fail(err)
	} else if pb == nil {
		b.mb.reject("required=%t on %s", required, b.builder.Metadata())
	}
	return b
}

// HasMaxLength limits the length of string and byte slice values.
func (b *PropertyBuilder) HasMaxLength(maxLength int) *PropertyBuilder {
	if b.builder == nil {
		return b
	}
	if maxLength <= 0 {
		b.mb.fail(fmt.Errorf("%w: max length of %s must be positive, got %d",
			metadata.ErrInvalidArgument, b.builder.Metadata(), maxLength))
		return b
	}
	if b.builder.HasMaxLength(maxLength, metadata.Explicit) == nil {
		b.mb.reject("max length on %s", b.builder.Metadata())
	}
	return b
}

// IsConcurrencyToken marks the property as checked on update.
func (b *PropertyBuilder) IsConcurrencyToken(token bool) *PropertyBuilder {
	if b.builder == nil {
		return b
	}
	if b.builder.IsConcurrencyToken(token, metadata.Explicit) == nil {
		b.mb.reject("concurrency token on %s", b.builder.Metadata())
	}
	return b
}

// ValueGenerated sets when the store generates the value.
func (b *PropertyBuilder) ValueGenerated(pattern ValueGeneration) *PropertyBuilder {
	if b.builder == nil {
		return b
	}
	if b.builder.ValueGenerated(pattern, metadata.Explicit) == nil {
		b.mb.reject("value generation %s on %s", pattern, b.builder.Metadata())
	}
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *PropertyBuilder) HasAnnotation(name string, value any) *PropertyBuilder {
	if b.builder == nil {
		return b
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return b
	}
	if b.builder.HasAnnotation(name, value, metadata.Explicit) == nil {
		b.mb.reject("annotation %s on %s", name, b.builder.Metadata())
	}
	return b
}

// HasColumnName maps the property to a column. An empty name removes the
// mapping.
func (b *PropertyBuilder) HasColumnName(name string) *PropertyBuilder {
	if b.builder != nil && !relational.HasColumnName(b.builder, name, metadata.Explicit) {
		b.mb.reject("column name on %s", b.builder.Metadata())
	}
	return b
}

// HasColumnType sets the store type of the column.
func (b *PropertyBuilder) HasColumnType(storeType string) *PropertyBuilder {
	if b.builder != nil && !relational.HasColumnType(b.builder, storeType, metadata.Explicit) {
		b.mb.reject("column type on %s", b.builder.Metadata())
	}
	return b
}

// HasDefaultValue sets the value the database uses when none is inserted. A
// nil value removes it.
func (b *PropertyBuilder) HasDefaultValue(value any) *PropertyBuilder {
	if b.builder != nil && !relational.HasDefaultValue(b.builder, value, metadata.Explicit) {
		b.mb.reject("default value on %s", b.builder.Metadata())
	}
	return b
}

// KeyBuilder configures a primary or alternate key.
type KeyBuilder struct {
	mb      *ModelBuilder
	builder *metadata.InternalKeyBuilder
}

// Metadata returns the key, or nil when it was not added.
func (b *KeyBuilder) Metadata() *metadata.Key {
	if b.builder == nil {
		return nil
	}
	return b.builder.Metadata()
}

// HasKeyName sets the constraint name of the key.
func (b *KeyBuilder) HasKeyName(name string) *KeyBuilder {
	if b.builder != nil && !relational.HasKeyName(b.builder, name, metadata.Explicit) {
		b.mb.reject("name of key %s", b.builder.Metadata())
	}
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *KeyBuilder) HasAnnotation(name string, value any) *KeyBuilder {
	if b.builder == nil {
		return b
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return b
	}
	if b.builder.HasAnnotation(name, value, metadata.Explicit) == nil {
		b.mb.reject("annotation %s on key %s", name, b.builder.Metadata())
	}
	return b
}

// IndexBuilder configures an index.
type IndexBuilder struct {
	mb      *ModelBuilder
	builder *metadata.InternalIndexBuilder
}

// Metadata returns the index, or nil when it was not added.
func (b *IndexBuilder) Metadata() *metadata.Index {
	if b.builder == nil {
		return nil
	}
	return b.builder.Metadata()
}

// IsUnique sets whether the index enforces uniqueness.
func (b *IndexBuilder) IsUnique(unique bool) *IndexBuilder {
	if b.builder != nil && b.builder.IsUnique(unique, metadata.Explicit) == nil {
		b.mb.reject("uniqueness of index %s", b.builder.Metadata())
	}
	return b
}

// HasDatabaseName sets the name of the index in the database.
func (b *IndexBuilder) HasDatabaseName(name string) *IndexBuilder {
	if b.builder != nil && !relational.HasDatabaseName(b.builder, name, metadata.Explicit) {
		b.mb.reject("name of index %s", b.builder.Metadata())
	}
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *IndexBuilder) HasAnnotation(name string, value any) *IndexBuilder {
	if b.builder == nil {
		return b
	}
	if name == "" {
		b.mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return b
	}
	if b.builder.HasAnnotation(name, value, metadata.Explicit) == nil {
		b.mb.reject("annotation %s on index %s", name, b.builder.Metadata())
	}
	return b
}
