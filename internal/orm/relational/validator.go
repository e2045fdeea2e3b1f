package relational

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// Validator checks the table mapping of a model at finalization. Shared
// tables only become an error here so that partially configured models can
// pass through every intermediate state.
type Validator struct{}

// Validate implements metadata.ModelValidator
func (v *Validator) Validate(m *metadata.Model, report *metadata.ValidationReport) {
	tables := make(map[string][]*metadata.EntityType)
	for _, et := range m.EntityTypes() {
		table := TableName(et)
		tables[table] = append(tables[table], et)
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, table := range names {
		ets := tables[table]
		validateSharedTable(table, ets, report)
		validateColumns(table, ets, report)
		validateIndexNames(table, ets, report)
	}
	for _, et := range m.EntityTypes() {
		warnBoolDefaults(et, report)
	}
}

// validateSharedTable requires the root types mapped to one table to be
// linked through their primary keys and to agree on the key name.
func validateSharedTable(table string, ets []*metadata.EntityType, report *metadata.ValidationReport) {
	var roots []*metadata.EntityType
	seen := make(map[*metadata.EntityType]bool)
	for _, et := range ets {
		root := et.RootType()
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	if len(roots) < 2 {
		return
	}

	first := roots[0]
	for _, other := range roots[1:] {
		if !linkedByPrimaryKeys(first, other) {
			report.AddError(other.Name(), "",
				fmt.Sprintf("entity types %s and %s share table %s but are not linked by a relationship between their primary keys",
					first.Name(), other.Name(), table),
				"map one of them to another table or configure a one-to-one relationship on the primary keys")
		}

		pk, otherPK := first.FindPrimaryKey(), other.FindPrimaryKey()
		if pk == nil || otherPK == nil {
			continue
		}
		if name, otherName := KeyName(pk), KeyName(otherPK); name != otherName {
			report.AddError(other.Name(), "",
				fmt.Sprintf("key %s on %s and key %s on %s are mapped to table %s but have different names",
					name, first.Name(), otherName, other.Name(), table),
				"use the same key name for every entity type sharing the table")
		}
	}
}

func linkedByPrimaryKeys(a, b *metadata.EntityType) bool {
	for _, fk := range append(a.ForeignKeys(), b.ForeignKeys()...) {
		dependent, principal := fk.DeclaringEntityType().RootType(), fk.PrincipalEntityType().RootType()
		if !(dependent == a && principal == b) && !(dependent == b && principal == a) {
			continue
		}
		if !fk.IsUnique() || fk.PrincipalKey() != principal.FindPrimaryKey() {
			continue
		}
		if pk := dependent.FindPrimaryKey(); pk != nil && sameProperties(fk.Properties(), pk.Properties()) {
			return true
		}
	}
	return false
}

// validateColumns rejects two properties of one entity type on the same
// column and columns shared with incompatible types.
func validateColumns(table string, ets []*metadata.EntityType, report *metadata.ValidationReport) {
	columns := make(map[string]*metadata.Property)
	seen := make(map[*metadata.Property]bool)
	for _, et := range ets {
		for _, p := range et.Properties() {
			if seen[p] {
				continue
			}
			seen[p] = true
			column := ColumnName(p)
			prev, ok := columns[column]
			if !ok {
				columns[column] = p
				continue
			}

			switch {
			case et.FindProperty(prev.Name()) == prev:
				report.AddError(et.Name(), p.Name(),
					fmt.Sprintf("properties %s and %s are both mapped to column %s in table %s",
						prev, p, column, table),
					"give one of them another column name")
			case !metadata.TypesCompatible(prev.GoType(), p.GoType()):
				report.AddError(et.Name(), p.Name(),
					fmt.Sprintf("column %s in table %s is mapped by %s (%s) and %s (%s)",
						column, table, prev, typeString(prev.GoType()), p, typeString(p.GoType())),
					"use the same type or map them to different columns")
			case ColumnType(prev) != ColumnType(p):
				report.Warn("column %s in table %s is shared by %s and %s without an agreed column type",
					column, table, prev, p)
			}
		}
	}
}

// validateIndexNames rejects one index name used for different columns of a
// table.
func validateIndexNames(table string, ets []*metadata.EntityType, report *metadata.ValidationReport) {
	byName := make(map[string]*metadata.Index)
	for _, et := range ets {
		for _, idx := range et.DeclaredIndexes() {
			name := IndexName(idx)
			prev, ok := byName[name]
			if !ok {
				byName[name] = idx
				continue
			}
			if columnList(prev.Properties()) != columnList(idx.Properties()) {
				report.AddError(et.Name(), "",
					fmt.Sprintf("index name %s in table %s is used for %s and %s", name, table, prev, idx),
					"give the indexes different names")
			}
		}
	}
}

// warnBoolDefaults flags non-nullable bool columns with a store default
// other than false: inserting false would be indistinguishable from not
// setting the value.
func warnBoolDefaults(et *metadata.EntityType, report *metadata.ValidationReport) {
	for _, p := range et.DeclaredProperties() {
		t := p.GoType()
		if t == nil || t.Kind() != reflect.Bool || p.IsNullable() {
			continue
		}
		value, ok := DefaultValue(p)
		if !ok || value == false {
			continue
		}
		report.Warn("bool property %s has the database default %v; inserting false will store the default instead",
			p, value)
	}
}

func sameProperties(a, b []*metadata.Property) bool {
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

func typeString(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	return t.String()
}
