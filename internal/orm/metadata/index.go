package metadata

// Index is an ordered set of properties indexed for lookup
type Index struct {
	annotatable

	declaringType *EntityType
	properties    []*Property
	source        ConfigurationSource

	unique       bool
	uniqueSource ConfigurationSource

	builder *InternalIndexBuilder
	inModel bool
}

// DeclaringEntityType returns the entity type that declares the index
func (i *Index) DeclaringEntityType() *EntityType { return i.declaringType }

// Properties returns the ordered index properties
func (i *Index) Properties() []*Property { return append([]*Property(nil), i.properties...) }

// ConfigurationSource returns the source that added the index
func (i *Index) ConfigurationSource() ConfigurationSource { return i.source }

// IsUnique reports whether the index enforces uniqueness
func (i *Index) IsUnique() bool { return i.unique }

// UniqueSource returns the source of the uniqueness fact
func (i *Index) UniqueSource() ConfigurationSource { return i.uniqueSource }

// IsInModel reports whether the index is still part of its entity type
func (i *Index) IsInModel() bool { return i.inModel }

// Builder returns the internal builder for this index
func (i *Index) Builder() *InternalIndexBuilder { return i.builder }

// String returns the display form of the index
func (i *Index) String() string {
	return i.declaringType.name + formatProperties(i.properties)
}
