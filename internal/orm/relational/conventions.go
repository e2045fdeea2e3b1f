package relational

import (
	"reflect"

	"github.com/go-openapi/inflect"
	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/conventions"
	"github.com/modelforge/modelforge/internal/orm/metadata"
	ustrings "github.com/modelforge/modelforge/internal/util/strings"
)

// Tabler is implemented by Go entity types that name their own table.
type Tabler interface {
	TableName() string
}

var tablerType = reflect.TypeOf((*Tabler)(nil)).Elem()

// Options configures the relational conventions.
type Options struct {
	// PluralizeTables names tables after the plural of the entity type name
	PluralizeTables bool
	// Irregular adds singular to plural pairs the default rules get wrong
	Irregular map[string]string
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{PluralizeTables: true}
}

// Install registers the relational conventions and validator on set.
func Install(set *metadata.ConventionSet, opts Options) *metadata.ConventionSet {
	return set.
		Add(NewTableNameConvention(opts)).
		Add(&ColumnNameConvention{}).
		AddValidator(&Validator{})
}

// TableNameConvention maps each root entity type to a snake_cased table,
// pluralized unless disabled. Derived types share the table of their root.
type TableNameConvention struct {
	pluralize bool
	rules     *inflect.Ruleset
}

// NewTableNameConvention creates the convention from opts
func NewTableNameConvention(opts Options) *TableNameConvention {
	rules := inflect.NewDefaultRuleset()
	for singular, plural := range opts.Irregular {
		rules.AddIrregular(singular, plural)
	}
	return &TableNameConvention{pluralize: opts.PluralizeTables, rules: rules}
}

// Name implements metadata.ConventionRule
func (*TableNameConvention) Name() string { return "TableName" }

// ProcessEntityTypeAdded implements metadata.EntityTypeAddedConvention
func (c *TableNameConvention) ProcessEntityTypeAdded(b *metadata.InternalEntityTypeBuilder) {
	c.apply(b)
}

// ProcessBaseTypeChanged implements metadata.BaseTypeChangedConvention
func (c *TableNameConvention) ProcessBaseTypeChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.EntityType) {
	c.apply(b)
}

func (c *TableNameConvention) apply(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.BaseType() != nil {
		b.HasAnnotation(TableNameAnnotation, nil, metadata.Convention)
		return
	}
	if goType := et.GoType(); goType != nil && goType.Implements(tablerType) {
		if name := reflect.Zero(goType).Interface().(Tabler).TableName(); name != "" {
			b.HasAnnotation(TableNameAnnotation, name, metadata.DataAnnotation)
			return
		}
	}
	b.HasAnnotation(TableNameAnnotation, c.TableNameFor(et.Name()), metadata.Convention)
}

// TableNameFor returns the convention table name of an entity type name
func (c *TableNameConvention) TableNameFor(entityTypeName string) string {
	name := entityTypeName
	if c.pluralize {
		name = c.rules.Pluralize(name)
	}
	return ustrings.ToSnakeCase(name)
}

// ColumnNameConvention maps properties to snake_cased columns. The column
// and type options of the model tag override the convention:
//
//	model:"column=email_address,type=citext"
type ColumnNameConvention struct{}

// Name implements metadata.ConventionRule
func (*ColumnNameConvention) Name() string { return "ColumnName" }

// ProcessPropertyAdded implements metadata.PropertyAddedConvention
func (*ColumnNameConvention) ProcessPropertyAdded(b *metadata.InternalPropertyBuilder) {
	p := b.Metadata()
	et := p.DeclaringEntityType()
	if !p.IsShadow() && et.GoType() != nil {
		if f, ok := metadata.FindMember(et.GoType(), p.Name()); ok {
			opts := conventions.ParseTag(f)
			if column, ok := opts.Get("column"); ok && column != "" {
				HasColumnName(b, column, metadata.DataAnnotation)
				applyColumnType(b, opts)
				return
			}
			applyColumnType(b, opts)
		}
	}
	if !HasColumnName(b, ustrings.ToSnakeCase(p.Name()), metadata.Convention) {
		et.Model().Logger().Debug("column name kept",
			zap.String("property", p.String()),
			zap.String("column", ColumnName(p)))
	}
}

func applyColumnType(b *metadata.InternalPropertyBuilder, opts conventions.TagOptions) {
	if storeType, ok := opts.Get("type"); ok && storeType != "" {
		HasColumnType(b, storeType, metadata.DataAnnotation)
	}
}
