package metadata

import (
	"reflect"

	"go.uber.org/zap"
)

// InternalModelBuilder is the single mutation gate for entity types.
type InternalModelBuilder struct {
	model *Model
}

// Metadata returns the model being built
func (b *InternalModelBuilder) Metadata() *Model { return b.model }

func (b *InternalModelBuilder) live() bool { return true }

// Entity adds or finds a shadow entity type by name.
func (b *InternalModelBuilder) Entity(name string, source ConfigurationSource) *InternalEntityTypeBuilder {
	return withConventions(b.model, func() *InternalEntityTypeBuilder {
		return b.entity(name, nil, source)
	})
}

// EntityOf adds or finds the entity type mapped to a Go struct type.
func (b *InternalModelBuilder) EntityOf(goType reflect.Type, source ConfigurationSource) *InternalEntityTypeBuilder {
	st, ok := StructType(goType)
	if !ok {
		return nil
	}
	return withConventions(b.model, func() *InternalEntityTypeBuilder {
		return b.entity("", st, source)
	})
}

func (b *InternalModelBuilder) entity(name string, goType reflect.Type, source ConfigurationSource) *InternalEntityTypeBuilder {
	m := b.model
	var et *EntityType
	if goType != nil {
		et = m.entityTypesByGoType[goType]
		if et == nil {
			// A shadow entity type declared by name first takes over the Go type.
			if shadow := m.entityTypes[goType.Name()]; shadow != nil && shadow.goType == nil {
				shadow.goType = goType
				shadow.source = Max(shadow.source, source)
				m.entityTypesByGoType[goType] = shadow
				m.dispatcher.enqueue(entityTypeAddedEvent{entityType: shadow})
				return shadow.builder
			}
			name = m.entityTypeName(goType)
		}
	} else {
		et = m.entityTypes[name]
	}

	if et != nil {
		et.source = Max(et.source, source)
		return et.builder
	}
	if name == "" {
		return nil
	}
	if m.IsIgnored(name, source) {
		m.logger.Debug("entity type is ignored",
			zap.String("entity_type", name),
			zap.Stringer("source", source))
		return nil
	}
	return m.addEntityType(name, goType, source).builder
}

// Ignore removes the named entity type, if present, and prevents lower sources
// from adding it again.
func (b *InternalModelBuilder) Ignore(name string, source ConfigurationSource) bool {
	return withConventionsBool(b.model, func() bool {
		return b.ignore(name, nil, source)
	})
}

// IgnoreType ignores the entity type mapped to a Go struct type.
func (b *InternalModelBuilder) IgnoreType(goType reflect.Type, source ConfigurationSource) bool {
	st, ok := StructType(goType)
	if !ok {
		return false
	}
	return withConventionsBool(b.model, func() bool {
		name := st.Name()
		if et := b.model.entityTypesByGoType[st]; et != nil {
			name = et.name
		}
		return b.ignore(name, st, source)
	})
}

func (b *InternalModelBuilder) ignore(name string, goType reflect.Type, source ConfigurationSource) bool {
	m := b.model
	if name == "" {
		return false
	}
	if et := m.entityTypes[name]; et != nil {
		if !source.Overrides(et.source) {
			return false
		}
		if goType == nil {
			goType = et.goType
		}
		b.removeEntityType(et)
	}
	if s := removalSource(source); s != NoSource {
		m.ignored[name] = Max(m.ignored[name], s)
	}
	m.logger.Debug("entity type ignored",
		zap.String("entity_type", name),
		zap.Stringer("source", source))
	m.dispatcher.enqueue(entityTypeIgnoredEvent{model: m, name: name, goType: goType})
	return true
}

// RemoveEntityType removes et together with the relationships that reference it.
func (b *InternalModelBuilder) RemoveEntityType(et *EntityType, source ConfigurationSource) bool {
	return withConventionsBool(b.model, func() bool {
		if et == nil || et.model != b.model || !et.inModel {
			return false
		}
		if !source.Overrides(et.source) {
			return false
		}
		b.removeEntityType(et)
		return true
	})
}

// removeEntityType detaches et without arbitration.
func (b *InternalModelBuilder) removeEntityType(et *EntityType) {
	for _, fk := range clone(et.referencing) {
		fk.declaringType.builder.detachForeignKey(fk)
	}
	for _, fk := range clone(et.foreignKeys) {
		et.builder.detachForeignKey(fk)
	}
	for _, d := range clone(et.derivedTypes) {
		d.builder.reparent(et.baseType)
	}
	if et.baseType != nil {
		et.baseType.derivedTypes = removeItem(et.baseType.derivedTypes, et)
	}

	for _, p := range et.properties {
		p.inModel = false
	}
	for _, k := range et.keys {
		k.inModel = false
	}
	for _, idx := range et.indexes {
		idx.inModel = false
	}
	b.model.detachEntityType(et)
}

func removeItem[T comparable](list []T, item T) []T {
	for i, x := range list {
		if x == item {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func containsItem[T comparable](list []T, item T) bool {
	for _, x := range list {
		if x == item {
			return true
		}
	}
	return false
}

// HasAnnotation sets an annotation on the model.
func (b *InternalModelBuilder) HasAnnotation(name string, value any, source ConfigurationSource) bool {
	return withConventionsBool(b.model, func() bool {
		return name != "" && b.model.setAnnotation(name, value, source)
	})
}
