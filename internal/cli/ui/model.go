package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

// RenderModel renders one row per entity type
//
// Example output:
//
//	Model 4f0c…  (3 entity types)
//	──────────────────────────────
//	ENTITY  TABLE  KEY  BASE  RELATIONSHIPS
//	Blog    blogs  Id         Posts → Post
func RenderModel(w io.Writer, m *metadata.Model, noColor bool) {
	ets := m.EntityTypes()
	Header(w, fmt.Sprintf("Model %s  (%d entity types)", m.ModelID(), len(ets)), noColor)

	table := NewTable(w, []string{"ENTITY", "TABLE", "KEY", "BASE", "RELATIONSHIPS"}, noColor)
	for _, et := range ets {
		base := ""
		if et.BaseType() != nil {
			base = et.BaseType().Name()
		}
		var navs []string
		for _, nav := range et.Navigations() {
			navs = append(navs, navigationSummary(nav))
		}
		table.AddRow(et.Name(), relational.TableName(et), keySummary(et.FindPrimaryKey()), base, strings.Join(navs, ", "))
	}
	table.Render()
}

// RenderEntityType renders the full description of one entity type
func RenderEntityType(w io.Writer, et *metadata.EntityType, noColor bool) {
	Header(w, "Entity type "+et.Name(), noColor)

	kv := NewKeyValueTable(w, noColor)
	goType := "(shadow)"
	if !et.IsShadow() {
		goType = et.GoType().String()
	}
	kv.AddRow("Go type", goType)
	kv.AddRow("Source", et.ConfigurationSource().String())
	if table := relational.TableName(et); table != "" {
		kv.AddRow("Table", table)
	}
	if et.BaseType() != nil {
		kv.AddRow("Base type", et.BaseType().Name())
	}
	if derived := et.DerivedTypes(); len(derived) > 0 {
		names := make([]string, len(derived))
		for i, d := range derived {
			names[i] = d.Name()
		}
		kv.AddRow("Derived types", strings.Join(names, ", "))
	}
	kv.AddRow("Primary key", keySummary(et.FindPrimaryKey()))
	kv.Render()

	fmt.Fprintln(w)
	props := NewTable(w, []string{"PROPERTY", "TYPE", "COLUMN", "NULLABLE", "GENERATED", "SOURCE"}, noColor)
	for _, p := range et.Properties() {
		name := p.Name()
		if p.IsShadow() {
			name += " (shadow)"
		}
		props.AddRow(name, typeName(p), relational.ColumnName(p), yesNo(p.IsNullable()), p.ValueGenerated().String(), p.ConfigurationSource().String())
	}
	props.Render()

	if fks := et.ForeignKeys(); len(fks) > 0 {
		fmt.Fprintln(w)
		table := NewTable(w, []string{"FOREIGN KEY", "PRINCIPAL", "UNIQUE", "REQUIRED", "ON DELETE"}, noColor)
		for _, fk := range fks {
			table.AddRow(
				propertyList(fk.Properties()),
				fk.PrincipalEntityType().Name()+keySummarySuffix(fk.PrincipalKey()),
				yesNo(fk.IsUnique()),
				yesNo(fk.IsRequired()),
				fk.DeleteBehavior().String(),
			)
		}
		table.Render()
	}

	if indexes := et.Indexes(); len(indexes) > 0 {
		fmt.Fprintln(w)
		table := NewTable(w, []string{"INDEX", "NAME", "UNIQUE"}, noColor)
		for _, idx := range indexes {
			table.AddRow(propertyList(idx.Properties()), relational.IndexName(idx), yesNo(idx.IsUnique()))
		}
		table.Render()
	}

	if navs := et.Navigations(); len(navs) > 0 {
		fmt.Fprintln(w)
		var items []string
		for _, nav := range navs {
			items = append(items, navigationSummary(nav))
		}
		Bullets(w, items, noColor)
	}
}

func navigationSummary(nav *metadata.Navigation) string {
	target := nav.TargetEntityType().Name()
	if nav.IsCollection() {
		target = "[]" + target
	}
	return nav.Name() + " → " + target
}

func keySummary(k *metadata.Key) string {
	if k == nil {
		return "-"
	}
	return propertyList(k.Properties())
}

func keySummarySuffix(k *metadata.Key) string {
	if k == nil || k.IsPrimaryKey() {
		return ""
	}
	return "(" + propertyList(k.Properties()) + ")"
}

func propertyList(props []*metadata.Property) string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name()
	}
	return strings.Join(names, ", ")
}

func typeName(p *metadata.Property) string {
	if p.GoType() == nil {
		return "?"
	}
	return p.GoType().String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
