// Package relational adds table mapping on top of the core model: table,
// column and constraint names, default values, the conventions that name
// them and the finalize-time checks for shared tables.
package relational

import (
	"strings"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	ustrings "github.com/modelforge/modelforge/internal/util/strings"
)

// Annotation names
const (
	TableNameAnnotation    = "Relational:TableName"
	ColumnNameAnnotation   = "Relational:ColumnName"
	ColumnTypeAnnotation   = "Relational:ColumnType"
	DefaultValueAnnotation = "Relational:DefaultValue"
	KeyNameAnnotation      = "Relational:KeyName"
	IndexNameAnnotation    = "Relational:IndexName"
)

// TableName returns the table an entity type maps to. Derived types without
// a table of their own share the table of their base type.
func TableName(et *metadata.EntityType) string {
	for t := et; t != nil; t = t.BaseType() {
		if name, ok := t.AnnotationValue(TableNameAnnotation).(string); ok && name != "" {
			return name
		}
	}
	return et.RootType().Name()
}

// ColumnName returns the column a property maps to
func ColumnName(p *metadata.Property) string {
	if name, ok := p.AnnotationValue(ColumnNameAnnotation).(string); ok && name != "" {
		return name
	}
	return p.Name()
}

// ColumnType returns the store type configured for a property, or "" when
// the provider picks one.
func ColumnType(p *metadata.Property) string {
	t, _ := p.AnnotationValue(ColumnTypeAnnotation).(string)
	return t
}

// DefaultValue returns the database default of a property
func DefaultValue(p *metadata.Property) (any, bool) {
	ann := p.FindAnnotation(DefaultValueAnnotation)
	if ann == nil {
		return nil, false
	}
	return ann.Value, true
}

// KeyName returns the constraint name of a key. Unnamed keys get pk_<table>
// or ak_<table>_<columns>.
func KeyName(k *metadata.Key) string {
	if name, ok := k.AnnotationValue(KeyNameAnnotation).(string); ok && name != "" {
		return name
	}
	table := TableName(k.DeclaringEntityType())
	if k.IsPrimaryKey() {
		return ustrings.JoinSnake("pk", table)
	}
	return ustrings.JoinSnake("ak", table, columnList(k.Properties()))
}

// IndexName returns the database name of an index
func IndexName(idx *metadata.Index) string {
	if name, ok := idx.AnnotationValue(IndexNameAnnotation).(string); ok && name != "" {
		return name
	}
	return ustrings.JoinSnake("ix", TableName(idx.DeclaringEntityType()), columnList(idx.Properties()))
}

// ForeignKeyConstraintName returns fk_<table>_<principal table>_<columns>
func ForeignKeyConstraintName(fk *metadata.ForeignKey) string {
	return ustrings.JoinSnake("fk",
		TableName(fk.DeclaringEntityType()),
		TableName(fk.PrincipalEntityType()),
		columnList(fk.Properties()))
}

func columnList(props []*metadata.Property) string {
	cols := make([]string, len(props))
	for i, p := range props {
		cols[i] = ColumnName(p)
	}
	return strings.Join(cols, "_")
}

// ToTable maps the entity type to a table. An empty name clears the mapping.
func ToTable(b *metadata.InternalEntityTypeBuilder, name string, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(TableNameAnnotation, nilIfEmpty(name), source) != nil
}

// HasColumnName maps the property to a column
func HasColumnName(b *metadata.InternalPropertyBuilder, name string, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(ColumnNameAnnotation, nilIfEmpty(name), source) != nil
}

// HasColumnType sets the store type of the property's column
func HasColumnType(b *metadata.InternalPropertyBuilder, storeType string, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(ColumnTypeAnnotation, nilIfEmpty(storeType), source) != nil
}

// HasDefaultValue sets the database default of the property's column. A nil
// value removes the default.
func HasDefaultValue(b *metadata.InternalPropertyBuilder, value any, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(DefaultValueAnnotation, value, source) != nil
}

// HasKeyName names the key constraint
func HasKeyName(b *metadata.InternalKeyBuilder, name string, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(KeyNameAnnotation, nilIfEmpty(name), source) != nil
}

// HasDatabaseName names the index
func HasDatabaseName(b *metadata.InternalIndexBuilder, name string, source metadata.ConfigurationSource) bool {
	return b.HasAnnotation(IndexNameAnnotation, nilIfEmpty(name), source) != nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
