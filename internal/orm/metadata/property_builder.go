package metadata

import "reflect"

// InternalPropertyBuilder arbitrates changes to a property.
type InternalPropertyBuilder struct {
	property *Property
}

// Metadata returns the property being built
func (b *InternalPropertyBuilder) Metadata() *Property { return b.property }

func (b *InternalPropertyBuilder) live() bool { return b.property.inModel }

func (b *InternalPropertyBuilder) model() *Model { return b.property.declaringType.model }

// HasGoType changes the type of a shadow property.
func (b *InternalPropertyBuilder) HasGoType(goType reflect.Type, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		if goType == nil {
			return nil
		}
		return b.update(goType, source)
	})
}

// update raises the property's source and applies a type change when allowed.
// Go-backed properties keep the type of their field.
func (b *InternalPropertyBuilder) update(goType reflect.Type, source ConfigurationSource) *InternalPropertyBuilder {
	p := b.property
	if goType != nil && goType != p.goType {
		if !p.isShadow || !source.Overrides(p.goTypeSource) {
			return nil
		}
		p.goType = goType
		p.goTypeSource = source
		if p.nullableSource == NoSource {
			p.nullable = IsNullableType(goType)
		}
	} else if goType != nil {
		p.goTypeSource = Max(p.goTypeSource, source)
	}
	p.source = Max(p.source, source)
	return b
}

// IsRequired sets whether the property must hold a value. Making a key property
// or a non-nullable Go type optional is a conflict when done explicitly.
func (b *InternalPropertyBuilder) IsRequired(required bool, source ConfigurationSource) (*InternalPropertyBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalPropertyBuilder, error) {
		return b.isRequired(required, source)
	})
}

func (b *InternalPropertyBuilder) isRequired(required bool, source ConfigurationSource) (*InternalPropertyBuilder, error) {
	p := b.property
	nullable := !required
	if nullable {
		var reason string
		switch {
		case p.IsKey():
			reason = "a key property cannot be optional"
		case !IsNullableType(p.goType):
			reason = "type " + p.goType.String() + " cannot represent a missing value"
		}
		if reason != "" {
			if source == Explicit {
				return nil, newConflict(p.declaringType.name, p.name, "%s", reason)
			}
			return nil, nil
		}
	}

	if p.nullable == nullable {
		p.nullableSource = Max(p.nullableSource, source)
		return b, nil
	}
	if !source.Overrides(p.nullableSource) {
		return nil, nil
	}
	p.nullable = nullable
	p.nullableSource = source
	b.model().dispatcher.enqueue(propertyNullabilityChangedEvent{property: p})
	return b, nil
}

// IsConcurrencyToken marks the property as checked on update.
func (b *InternalPropertyBuilder) IsConcurrencyToken(token bool, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		p := b.property
		if p.concurrencyToken == token {
			p.concurrencyTokenSource = Max(p.concurrencyTokenSource, source)
			return b
		}
		if !source.Overrides(p.concurrencyTokenSource) {
			return nil
		}
		p.concurrencyToken = token
		p.concurrencyTokenSource = source
		return b
	})
}

// HasMaxLength sets the maximum length; -1 means unbounded.
func (b *InternalPropertyBuilder) HasMaxLength(maxLength int, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		p := b.property
		if maxLength < -1 {
			return nil
		}
		if p.maxLength == maxLength {
			p.maxLengthSource = Max(p.maxLengthSource, source)
			return b
		}
		if !source.Overrides(p.maxLengthSource) {
			return nil
		}
		p.maxLength = maxLength
		p.maxLengthSource = source
		return b
	})
}

// ValueGenerated sets when the store generates the value.
func (b *InternalPropertyBuilder) ValueGenerated(pattern StoreGeneratedPattern, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		p := b.property
		if p.valueGenerated == pattern {
			p.valueGeneratedSource = Max(p.valueGeneratedSource, source)
			return b
		}
		if !source.Overrides(p.valueGeneratedSource) {
			return nil
		}
		p.valueGenerated = pattern
		p.valueGeneratedSource = source
		return b
	})
}

// HasAnnotation sets an annotation on the property.
func (b *InternalPropertyBuilder) HasAnnotation(name string, value any, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		if name == "" || !b.property.setAnnotation(name, value, source) {
			return nil
		}
		return b
	})
}

// InternalKeyBuilder arbitrates changes to a key.
type InternalKeyBuilder struct {
	key *Key
}

// Metadata returns the key being built
func (b *InternalKeyBuilder) Metadata() *Key { return b.key }

func (b *InternalKeyBuilder) live() bool { return b.key.inModel }

// HasAnnotation sets an annotation on the key.
func (b *InternalKeyBuilder) HasAnnotation(name string, value any, source ConfigurationSource) *InternalKeyBuilder {
	return withConventions(b.key.declaringType.model, func() *InternalKeyBuilder {
		if name == "" || !b.key.setAnnotation(name, value, source) {
			return nil
		}
		return b
	})
}

// InternalIndexBuilder arbitrates changes to an index.
type InternalIndexBuilder struct {
	index *Index
}

// Metadata returns the index being built
func (b *InternalIndexBuilder) Metadata() *Index { return b.index }

func (b *InternalIndexBuilder) live() bool { return b.index.inModel }

// IsUnique sets whether the index enforces uniqueness.
func (b *InternalIndexBuilder) IsUnique(unique bool, source ConfigurationSource) *InternalIndexBuilder {
	return withConventions(b.index.declaringType.model, func() *InternalIndexBuilder {
		idx := b.index
		if idx.unique == unique {
			idx.uniqueSource = Max(idx.uniqueSource, source)
			return b
		}
		if !source.Overrides(idx.uniqueSource) {
			return nil
		}
		idx.unique = unique
		idx.uniqueSource = source
		return b
	})
}

// HasAnnotation sets an annotation on the index.
func (b *InternalIndexBuilder) HasAnnotation(name string, value any, source ConfigurationSource) *InternalIndexBuilder {
	return withConventions(b.index.declaringType.model, func() *InternalIndexBuilder {
		if name == "" || !b.index.setAnnotation(name, value, source) {
			return nil
		}
		return b
	})
}
