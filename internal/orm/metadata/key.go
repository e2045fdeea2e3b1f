package metadata

// Key is a primary or alternate key of an entity type
type Key struct {
	annotatable

	declaringType *EntityType
	properties    []*Property
	source        ConfigurationSource
	referencing   []*ForeignKey

	builder *InternalKeyBuilder
	inModel bool
}

// DeclaringEntityType returns the entity type that declares the key
func (k *Key) DeclaringEntityType() *EntityType { return k.declaringType }

// Properties returns the ordered key properties
func (k *Key) Properties() []*Property { return append([]*Property(nil), k.properties...) }

// ConfigurationSource returns the source that added the key
func (k *Key) ConfigurationSource() ConfigurationSource { return k.source }

// IsPrimaryKey reports whether the key is the primary key of its entity type
func (k *Key) IsPrimaryKey() bool { return k.declaringType.primaryKey == k }

// ReferencingForeignKeys returns the foreign keys that target this key
func (k *Key) ReferencingForeignKeys() []*ForeignKey {
	return append([]*ForeignKey(nil), k.referencing...)
}

// IsInModel reports whether the key is still part of its entity type
func (k *Key) IsInModel() bool { return k.inModel }

// Builder returns the internal builder for this key
func (k *Key) Builder() *InternalKeyBuilder { return k.builder }

// String returns the display form of the key
func (k *Key) String() string {
	return k.declaringType.name + formatProperties(k.properties)
}
