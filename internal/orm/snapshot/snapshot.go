// Package snapshot describes a finalized model as deterministic JSON. The
// same model always produces the same bytes, so snapshots can be diffed and
// cached.
package snapshot

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

// FormatVersion is the version of the snapshot layout
const FormatVersion = 1

// ErrNotFinalized is returned when a snapshot of a mutable model is requested.
var ErrNotFinalized = errors.New("snapshot: model is not finalized")

// Snapshot is the serializable description of a finalized model
type Snapshot struct {
	Version         int            `json:"version"`
	ModelID         uuid.UUID      `json:"model_id"`
	EntityTypes     []EntityType   `json:"entity_types"`
	DependencyOrder []string       `json:"dependency_order"`
	Annotations     map[string]any `json:"annotations,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// EntityType describes one entity type
type EntityType struct {
	Name        string         `json:"name"`
	GoType      string         `json:"go_type,omitempty"`
	BaseType    string         `json:"base_type,omitempty"`
	Table       string         `json:"table,omitempty"`
	Properties  []Property     `json:"properties"`
	PrimaryKey  *Key           `json:"primary_key,omitempty"`
	Keys        []Key          `json:"keys,omitempty"`
	ForeignKeys []ForeignKey   `json:"foreign_keys,omitempty"`
	Indexes     []Index        `json:"indexes,omitempty"`
	Navigations []Navigation   `json:"navigations,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// Property describes a scalar property
type Property struct {
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	Shadow           bool           `json:"shadow,omitempty"`
	Nullable         bool           `json:"nullable"`
	MaxLength        int            `json:"max_length,omitempty"`
	ConcurrencyToken bool           `json:"concurrency_token,omitempty"`
	ValueGenerated   string         `json:"value_generated"`
	Column           string         `json:"column,omitempty"`
	Annotations      map[string]any `json:"annotations,omitempty"`
}

// Key describes a primary or alternate key
type Key struct {
	Name       string   `json:"name,omitempty"`
	Properties []string `json:"properties"`
}

// ForeignKey describes a relationship from the dependent side
type ForeignKey struct {
	Name                  string   `json:"name,omitempty"`
	Properties            []string `json:"properties"`
	PrincipalEntityType   string   `json:"principal_entity_type"`
	PrincipalKey          []string `json:"principal_key"`
	Unique                bool     `json:"unique"`
	Required              bool     `json:"required"`
	DeleteBehavior        string   `json:"delete_behavior"`
	NavigationToPrincipal string   `json:"navigation_to_principal,omitempty"`
	NavigationToDependent string   `json:"navigation_to_dependent,omitempty"`
}

// Index describes an index
type Index struct {
	Name       string   `json:"name,omitempty"`
	Properties []string `json:"properties"`
	Unique     bool     `json:"unique"`
}

// Navigation describes a navigation declared on an entity type
type Navigation struct {
	Name        string `json:"name"`
	Target      string `json:"target"`
	Collection  bool   `json:"collection"`
	OnDependent bool   `json:"on_dependent"`
	Inverse     string `json:"inverse,omitempty"`
}

// Options controls what a snapshot contains.
type Options struct {
	// Relational adds table, column and constraint names
	Relational bool
}

// Build describes a finalized model
func Build(m *metadata.Model, opts Options) (*Snapshot, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if !m.IsFinalized() {
		return nil, ErrNotFinalized
	}

	order, err := m.DependencyOrder()
	if err != nil {
		// Required cycles are a warning at finalization; fall back to name order.
		order = nil
		for _, et := range m.EntityTypes() {
			order = append(order, et.Name())
		}
	}

	s := &Snapshot{
		Version:         FormatVersion,
		ModelID:         m.ModelID(),
		DependencyOrder: order,
		Annotations:     annotations(m.Annotations()),
		Warnings:        m.Warnings(),
	}
	for _, et := range m.EntityTypes() {
		s.EntityTypes = append(s.EntityTypes, entityType(et, opts))
	}
	return s, nil
}

func entityType(et *metadata.EntityType, opts Options) EntityType {
	out := EntityType{
		Name:        et.Name(),
		GoType:      typeName(et.GoType()),
		Annotations: annotations(et.Annotations()),
	}
	if base := et.BaseType(); base != nil {
		out.BaseType = base.Name()
	}
	if opts.Relational {
		out.Table = relational.TableName(et)
	}

	for _, p := range et.DeclaredProperties() {
		out.Properties = append(out.Properties, property(p, opts))
	}
	for _, k := range et.DeclaredKeys() {
		key := Key{Properties: propertyNames(k.Properties())}
		if opts.Relational {
			key.Name = relational.KeyName(k)
		}
		if k.IsPrimaryKey() {
			out.PrimaryKey = &key
			continue
		}
		out.Keys = append(out.Keys, key)
	}
	for _, fk := range et.DeclaredForeignKeys() {
		out.ForeignKeys = append(out.ForeignKeys, foreignKey(fk, opts))
	}
	for _, idx := range et.DeclaredIndexes() {
		index := Index{Properties: propertyNames(idx.Properties()), Unique: idx.IsUnique()}
		if opts.Relational {
			index.Name = relational.IndexName(idx)
		}
		out.Indexes = append(out.Indexes, index)
	}
	for _, n := range et.Navigations() {
		if n.DeclaringEntityType() != et {
			continue
		}
		nav := Navigation{
			Name:        n.Name(),
			Target:      n.TargetEntityType().Name(),
			Collection:  n.IsCollection(),
			OnDependent: n.IsOnDependent(),
		}
		if inverse := n.Inverse(); inverse != nil {
			nav.Inverse = inverse.Name()
		}
		out.Navigations = append(out.Navigations, nav)
	}
	sort.Slice(out.Navigations, func(i, j int) bool { return out.Navigations[i].Name < out.Navigations[j].Name })
	return out
}

func property(p *metadata.Property, opts Options) Property {
	out := Property{
		Name:             p.Name(),
		Type:             typeName(p.GoType()),
		Shadow:           p.IsShadow(),
		Nullable:         p.IsNullable(),
		ConcurrencyToken: p.IsConcurrencyToken(),
		ValueGenerated:   p.ValueGenerated().String(),
		Annotations:      annotations(p.Annotations()),
	}
	if p.MaxLength() >= 0 {
		out.MaxLength = p.MaxLength()
	}
	if opts.Relational {
		out.Column = relational.ColumnName(p)
	}
	return out
}

func foreignKey(fk *metadata.ForeignKey, opts Options) ForeignKey {
	out := ForeignKey{
		Properties:            propertyNames(fk.Properties()),
		PrincipalEntityType:   fk.PrincipalEntityType().Name(),
		PrincipalKey:          propertyNames(fk.PrincipalKey().Properties()),
		Unique:                fk.IsUnique(),
		Required:              fk.IsRequired(),
		DeleteBehavior:        fk.DeleteBehavior().String(),
		NavigationToPrincipal: fk.NavigationToPrincipalName(),
		NavigationToDependent: fk.NavigationToDependentName(),
	}
	if opts.Relational {
		out.Name = relational.ForeignKeyConstraintName(fk)
	}
	return out
}

func annotations(anns []*metadata.Annotation) map[string]any {
	if len(anns) == 0 {
		return nil
	}
	out := make(map[string]any, len(anns))
	for _, ann := range anns {
		out[ann.Name] = ann.Value
	}
	return out
}

func propertyNames(props []*metadata.Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name()
	}
	return names
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
