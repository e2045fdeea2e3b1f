package metadata

import (
	"reflect"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Model is the root of the metadata graph. It owns every entity type.
type Model struct {
	annotatable

	id                  uuid.UUID
	entityTypes         map[string]*EntityType
	entityTypesByGoType map[reflect.Type]*EntityType
	ignored             map[string]ConfigurationSource

	conventions *ConventionSet
	dispatcher  *dispatcher
	logger      *zap.Logger
	builder     *InternalModelBuilder

	finalized   bool
	warnings    []string
	deferredErr error
}

// ModelOption configures a Model
type ModelOption func(*Model)

// WithLogger sets the logger used for convention decisions and warnings.
func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates an empty model driven by the given convention set. A nil set
// disables conventions.
func NewModel(conventions *ConventionSet, opts ...ModelOption) *Model {
	m := &Model{
		id:                  uuid.New(),
		entityTypes:         make(map[string]*EntityType),
		entityTypesByGoType: make(map[reflect.Type]*EntityType),
		ignored:             make(map[string]ConfigurationSource),
		conventions:         conventions,
		logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dispatcher = newDispatcher(m)
	m.builder = &InternalModelBuilder{model: m}
	return m
}

// ModelID returns the identity of this model instance.
func (m *Model) ModelID() uuid.UUID {
	return m.id
}

// Builder returns the internal builder of the model
func (m *Model) Builder() *InternalModelBuilder {
	return m.builder
}

// Conventions returns the convention set driving this model
func (m *Model) Conventions() *ConventionSet {
	return m.conventions
}

// Logger returns the model logger
func (m *Model) Logger() *zap.Logger {
	return m.logger
}

// IsFinalized reports whether the model is read-only
func (m *Model) IsFinalized() bool {
	return m.finalized
}

// Warnings returns the warnings accumulated during finalization
func (m *Model) Warnings() []string {
	return append([]string(nil), m.warnings...)
}

// FindEntityType returns the entity type with the given name
func (m *Model) FindEntityType(name string) *EntityType {
	return m.entityTypes[name]
}

// FindEntityTypeByGoType returns the entity type mapped to a Go struct type
func (m *Model) FindEntityTypeByGoType(t reflect.Type) *EntityType {
	st, ok := StructType(t)
	if !ok {
		return nil
	}
	return m.entityTypesByGoType[st]
}

// EntityTypes returns all entity types sorted by name
func (m *Model) EntityTypes() []*EntityType {
	result := make([]*EntityType, 0, len(m.entityTypes))
	for _, et := range m.entityTypes {
		result = append(result, et)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// FindIgnoredSource returns the source that ignored an entity type name
func (m *Model) FindIgnoredSource(name string) ConfigurationSource {
	return m.ignored[name]
}

// IsIgnored reports whether an entity type name is ignored for requests of source s.
func (m *Model) IsIgnored(name string, s ConfigurationSource) bool {
	ignored, ok := m.ignored[name]
	return ok && ignored != NoSource && !s.Overrides(ignored)
}

// ForeignKeys returns every foreign key in the model, ordered by dependent name.
func (m *Model) ForeignKeys() []*ForeignKey {
	var result []*ForeignKey
	for _, et := range m.EntityTypes() {
		result = append(result, et.foreignKeys...)
	}
	return result
}

// DependencyOrder returns entity type names with principals before their
// required dependents.
func (m *Model) DependencyOrder() ([]string, error) {
	return NewDependencyGraph(m).TopologicalSort()
}

func (m *Model) entityTypeName(goType reflect.Type) string {
	name := goType.Name()
	if existing, ok := m.entityTypes[name]; ok && existing.goType != goType {
		return goType.String()
	}
	return name
}

func (m *Model) recordError(err error) {
	if m.deferredErr == nil {
		m.deferredErr = err
	}
}

func (m *Model) addEntityType(name string, goType reflect.Type, source ConfigurationSource) *EntityType {
	et := newEntityType(m, name, goType, source)
	m.entityTypes[name] = et
	if goType != nil {
		m.entityTypesByGoType[goType] = et
	}
	delete(m.ignored, name)
	m.dispatcher.enqueue(entityTypeAddedEvent{entityType: et})
	return et
}

func (m *Model) detachEntityType(et *EntityType) {
	delete(m.entityTypes, et.name)
	if et.goType != nil && m.entityTypesByGoType[et.goType] == et {
		delete(m.entityTypesByGoType, et.goType)
	}
	et.inModel = false
	m.dispatcher.enqueue(entityTypeRemovedEvent{model: m, entityType: et})
}
