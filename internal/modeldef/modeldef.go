// Package modeldef reads model definition files. A definition describes
// entity types without Go types (every property is a shadow property) and is
// applied through the public model builders, so it has the same authority as
// code calling them.
//
//	entities:
//	  - name: Blog
//	    properties:
//	      - {name: Id, type: int}
//	      - {name: Url, type: string, max_length: 200}
//	  - name: Post
//	    properties:
//	      - {name: Id, type: int}
//	      - {name: BlogId, type: int}
//	relationships:
//	  - {principal: Blog, dependent: Post, foreign_key: BlogId, on_delete: cascade}
package modeldef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/utils"
)

// Document is the content of one or more model definition files
type Document struct {
	Entities      []Entity       `yaml:"entities"`
	Relationships []Relationship `yaml:"relationships"`
	Ignore        Names          `yaml:"ignore,omitempty"`
	Annotations   map[string]any `yaml:"annotations,omitempty"`
}

// Entity describes one entity type
type Entity struct {
	Name          string         `yaml:"name"`
	Table         string         `yaml:"table,omitempty"`
	Base          string         `yaml:"base,omitempty"`
	Properties    []Property     `yaml:"properties"`
	Key           Names          `yaml:"key,omitempty"`
	AlternateKeys []Names        `yaml:"alternate_keys,omitempty"`
	Indexes       []Index        `yaml:"indexes,omitempty"`
	Ignore        Names          `yaml:"ignore,omitempty"`
	Annotations   map[string]any `yaml:"annotations,omitempty"`
}

// Property describes one property. Type names are listed in ParseType.
type Property struct {
	Name             string         `yaml:"name"`
	Type             string         `yaml:"type"`
	Required         *bool          `yaml:"required,omitempty"`
	MaxLength        int            `yaml:"max_length,omitempty"`
	ConcurrencyToken bool           `yaml:"concurrency_token,omitempty"`
	ValueGenerated   string         `yaml:"value_generated,omitempty"`
	Column           string         `yaml:"column,omitempty"`
	ColumnType       string         `yaml:"column_type,omitempty"`
	Default          any            `yaml:"default,omitempty"`
	Annotations      map[string]any `yaml:"annotations,omitempty"`
}

// Index describes one index
type Index struct {
	Properties Names  `yaml:"properties"`
	Unique     bool   `yaml:"unique,omitempty"`
	Name       string `yaml:"name,omitempty"`
}

// Relationship describes a relationship between two entity types.
// Unique makes it one-to-one; otherwise the principal has many dependents.
type Relationship struct {
	Principal    string         `yaml:"principal"`
	Dependent    string         `yaml:"dependent"`
	Unique       bool           `yaml:"unique,omitempty"`
	ForeignKey   Names          `yaml:"foreign_key,omitempty"`
	PrincipalKey Names          `yaml:"principal_key,omitempty"`
	Required     *bool          `yaml:"required,omitempty"`
	OnDelete     string         `yaml:"on_delete,omitempty"`
	Annotations  map[string]any `yaml:"annotations,omitempty"`
}

// Names is a list of member names written either as a single string or as a
// sequence.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler for Names.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*n = Names{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*n = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a name or a list of names", node.Line)
	}
}

// MarshalYAML implements yaml.Marshaler for Names.
func (n Names) MarshalYAML() (any, error) {
	if len(n) == 1 {
		return n[0], nil
	}
	return []string(n), nil
}

// Parse decodes and checks a model definition. Unknown fields are errors.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads the model definitions at path, a file or a directory of
// .yaml/.yml files, and merges them into one document.
func Load(path string) (*Document, error) {
	files, err := utils.FindModelFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find model definitions: %w", err)
	}

	merged := &Document{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		doc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		merged.merge(doc)
	}
	if err := merged.Check(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (d *Document) merge(other *Document) {
	d.Entities = append(d.Entities, other.Entities...)
	d.Relationships = append(d.Relationships, other.Relationships...)
	d.Ignore = append(d.Ignore, other.Ignore...)
	for k, v := range other.Annotations {
		if d.Annotations == nil {
			d.Annotations = make(map[string]any)
		}
		d.Annotations[k] = v
	}
}

// Check reports every structural problem of the document at once. Problems
// that need the model, such as unknown property names, are found when the
// document is applied.
func (d *Document) Check() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	seen := make(map[string]bool)
	for i, e := range d.Entities {
		if e.Name == "" {
			fail("entities[%d]: name is required", i)
			continue
		}
		if seen[e.Name] {
			fail("entity %s is defined twice", e.Name)
		}
		seen[e.Name] = true

		props := make(map[string]bool)
		for j, p := range e.Properties {
			if p.Name == "" {
				fail("entity %s: properties[%d]: name is required", e.Name, j)
				continue
			}
			if props[p.Name] {
				fail("entity %s: property %s is defined twice", e.Name, p.Name)
			}
			props[p.Name] = true
			if _, err := ParseType(p.Type); err != nil {
				fail("entity %s: property %s: %v", e.Name, p.Name, err)
			}
			if p.ValueGenerated != "" {
				if _, err := metadata.ParseStoreGeneratedPattern(p.ValueGenerated); err != nil {
					fail("entity %s: property %s: %v", e.Name, p.Name, err)
				}
			}
			if p.MaxLength < 0 {
				fail("entity %s: property %s: max_length cannot be negative", e.Name, p.Name)
			}
		}
		if e.Base != "" && len(e.Key) > 0 {
			fail("entity %s: a derived entity type takes the key of its base type", e.Name)
		}
		for j, idx := range e.Indexes {
			if len(idx.Properties) == 0 {
				fail("entity %s: indexes[%d]: properties are required", e.Name, j)
			}
		}
	}

	for i, r := range d.Relationships {
		if r.Principal == "" || r.Dependent == "" {
			fail("relationships[%d]: principal and dependent are required", i)
			continue
		}
		if r.OnDelete != "" {
			if _, err := metadata.ParseDeleteBehavior(r.OnDelete); err != nil {
				fail("relationship %s -> %s: %v", r.Dependent, r.Principal, err)
			}
		}
		if r.Unique && len(r.ForeignKey) == 0 && len(r.PrincipalKey) == 0 {
			fail("relationship %s -> %s: a one-to-one relationship needs foreign_key or principal_key to pick the dependent",
				r.Dependent, r.Principal)
		}
	}

	return errors.Join(errs...)
}
