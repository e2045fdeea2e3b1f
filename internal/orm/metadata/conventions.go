package metadata

import "reflect"

// ConventionRule is an automatic rule that reacts to structural changes of the
// model. A convention registers for a trigger by implementing the matching
// Process* interface below. Every convention must be idempotent.
//
// A convention set identifies conventions by Name: registering a second
// convention with a registered name is a no-op, and Remove or Replace match
// by name.
type ConventionRule interface {
	Name() string
}

// EntityTypeAddedConvention reacts to a new entity type.
type EntityTypeAddedConvention interface {
	ConventionRule
	ProcessEntityTypeAdded(b *InternalEntityTypeBuilder)
}

// EntityTypeIgnoredConvention reacts to an entity type name being ignored.
type EntityTypeIgnoredConvention interface {
	ConventionRule
	ProcessEntityTypeIgnored(b *InternalModelBuilder, name string, goType reflect.Type)
}

// EntityTypeRemovedConvention reacts to an entity type leaving the model.
type EntityTypeRemovedConvention interface {
	ConventionRule
	ProcessEntityTypeRemoved(b *InternalModelBuilder, et *EntityType)
}

// BaseTypeChangedConvention reacts to a changed base type.
type BaseTypeChangedConvention interface {
	ConventionRule
	ProcessBaseTypeChanged(b *InternalEntityTypeBuilder, previous *EntityType)
}

// EntityTypeMemberIgnoredConvention reacts to a member being ignored.
type EntityTypeMemberIgnoredConvention interface {
	ConventionRule
	ProcessEntityTypeMemberIgnored(b *InternalEntityTypeBuilder, name string)
}

// PropertyAddedConvention reacts to a new property.
type PropertyAddedConvention interface {
	ConventionRule
	ProcessPropertyAdded(b *InternalPropertyBuilder)
}

// PropertyRemovedConvention reacts to a removed property.
type PropertyRemovedConvention interface {
	ConventionRule
	ProcessPropertyRemoved(b *InternalEntityTypeBuilder, p *Property)
}

// PropertyNullabilityChangedConvention reacts to a nullability change.
type PropertyNullabilityChangedConvention interface {
	ConventionRule
	ProcessPropertyNullabilityChanged(b *InternalPropertyBuilder)
}

// KeyAddedConvention reacts to a new key.
type KeyAddedConvention interface {
	ConventionRule
	ProcessKeyAdded(b *InternalKeyBuilder)
}

// KeyRemovedConvention reacts to a removed key.
type KeyRemovedConvention interface {
	ConventionRule
	ProcessKeyRemoved(b *InternalEntityTypeBuilder, k *Key)
}

// PrimaryKeyChangedConvention reacts to a primary key being set, replaced or removed.
type PrimaryKeyChangedConvention interface {
	ConventionRule
	ProcessPrimaryKeyChanged(b *InternalEntityTypeBuilder, previous *Key)
}

// ForeignKeyAddedConvention reacts to a new relationship.
type ForeignKeyAddedConvention interface {
	ConventionRule
	ProcessForeignKeyAdded(b *InternalRelationshipBuilder)
}

// ForeignKeyRemovedConvention reacts to a removed relationship.
type ForeignKeyRemovedConvention interface {
	ConventionRule
	ProcessForeignKeyRemoved(b *InternalEntityTypeBuilder, fk *ForeignKey)
}

// ForeignKeyPropertiesChangedConvention reacts to changed foreign key
// properties or a changed principal key.
type ForeignKeyPropertiesChangedConvention interface {
	ConventionRule
	ProcessForeignKeyPropertiesChanged(b *InternalRelationshipBuilder, oldProperties []*Property, oldPrincipalKey *Key)
}

// ForeignKeyUniquenessChangedConvention reacts to a relationship becoming
// one-to-one or one-to-many.
type ForeignKeyUniquenessChangedConvention interface {
	ConventionRule
	ProcessForeignKeyUniquenessChanged(b *InternalRelationshipBuilder)
}

// ForeignKeyRequirednessChangedConvention reacts to a requiredness change.
type ForeignKeyRequirednessChangedConvention interface {
	ConventionRule
	ProcessForeignKeyRequirednessChanged(b *InternalRelationshipBuilder)
}

// PrincipalEndChangedConvention reacts to a relationship being inverted.
type PrincipalEndChangedConvention interface {
	ConventionRule
	ProcessPrincipalEndChanged(b *InternalRelationshipBuilder)
}

// NavigationAddedConvention reacts to a navigation being bound.
type NavigationAddedConvention interface {
	ConventionRule
	ProcessNavigationAdded(b *InternalRelationshipBuilder, nav *Navigation)
}

// NavigationRemovedConvention reacts to a navigation being unbound.
type NavigationRemovedConvention interface {
	ConventionRule
	ProcessNavigationRemoved(b *InternalEntityTypeBuilder, target *EntityType, name string)
}

// IndexAddedConvention reacts to a new index.
type IndexAddedConvention interface {
	ConventionRule
	ProcessIndexAdded(b *InternalIndexBuilder)
}

// IndexRemovedConvention reacts to a removed index.
type IndexRemovedConvention interface {
	ConventionRule
	ProcessIndexRemoved(b *InternalEntityTypeBuilder, idx *Index)
}

// ModelFinalizingConvention runs once before the model is validated and locked.
type ModelFinalizingConvention interface {
	ConventionRule
	ProcessModelFinalizing(b *InternalModelBuilder)
}

// ModelValidator checks a fully built model. Validators report problems and
// never mutate the model.
type ModelValidator interface {
	Validate(m *Model, report *ValidationReport)
}

// ConventionSet is the ordered registry of conventions per trigger.
type ConventionSet struct {
	registered []ConventionRule


	EntityTypeAdded               []EntityTypeAddedConvention
	EntityTypeIgnored             []EntityTypeIgnoredConvention
	EntityTypeRemoved             []EntityTypeRemovedConvention
	BaseTypeChanged               []BaseTypeChangedConvention
	EntityTypeMemberIgnored       []EntityTypeMemberIgnoredConvention
	PropertyAdded                 []PropertyAddedConvention
	PropertyRemoved               []PropertyRemovedConvention
	PropertyNullabilityChanged    []PropertyNullabilityChangedConvention
	KeyAdded                      []KeyAddedConvention
	KeyRemoved                    []KeyRemovedConvention
	PrimaryKeyChanged             []PrimaryKeyChangedConvention
	ForeignKeyAdded               []ForeignKeyAddedConvention
	ForeignKeyRemoved             []ForeignKeyRemovedConvention
	ForeignKeyPropertiesChanged   []ForeignKeyPropertiesChangedConvention
	ForeignKeyUniquenessChanged   []ForeignKeyUniquenessChangedConvention
	ForeignKeyRequirednessChanged []ForeignKeyRequirednessChangedConvention
	PrincipalEndChanged           []PrincipalEndChangedConvention
	NavigationAdded               []NavigationAddedConvention
	NavigationRemoved             []NavigationRemovedConvention
	IndexAdded                    []IndexAddedConvention
	IndexRemoved                  []IndexRemovedConvention
	ModelFinalizing               []ModelFinalizingConvention

	Validators []ModelValidator
}

// NewConventionSet creates an empty convention set
func NewConventionSet() *ConventionSet {
	return &ConventionSet{}
}

// Add registers c for every trigger it implements, after the conventions
// already registered for that trigger.
func (s *ConventionSet) Add(c ConventionRule) *ConventionSet {
	if c == nil || s.Contains(c) {
		return s
	}
	s.registered = append(s.registered, c)
	s.EntityTypeAdded = addTo(s.EntityTypeAdded, c)
	s.EntityTypeIgnored = addTo(s.EntityTypeIgnored, c)
	s.EntityTypeRemoved = addTo(s.EntityTypeRemoved, c)
	s.BaseTypeChanged = addTo(s.BaseTypeChanged, c)
	s.EntityTypeMemberIgnored = addTo(s.EntityTypeMemberIgnored, c)
	s.PropertyAdded = addTo(s.PropertyAdded, c)
	s.PropertyRemoved = addTo(s.PropertyRemoved, c)
	s.PropertyNullabilityChanged = addTo(s.PropertyNullabilityChanged, c)
	s.KeyAdded = addTo(s.KeyAdded, c)
	s.KeyRemoved = addTo(s.KeyRemoved, c)
	s.PrimaryKeyChanged = addTo(s.PrimaryKeyChanged, c)
	s.ForeignKeyAdded = addTo(s.ForeignKeyAdded, c)
	s.ForeignKeyRemoved = addTo(s.ForeignKeyRemoved, c)
	s.ForeignKeyPropertiesChanged = addTo(s.ForeignKeyPropertiesChanged, c)
	s.ForeignKeyUniquenessChanged = addTo(s.ForeignKeyUniquenessChanged, c)
	s.ForeignKeyRequirednessChanged = addTo(s.ForeignKeyRequirednessChanged, c)
	s.PrincipalEndChanged = addTo(s.PrincipalEndChanged, c)
	s.NavigationAdded = addTo(s.NavigationAdded, c)
	s.NavigationRemoved = addTo(s.NavigationRemoved, c)
	s.IndexAdded = addTo(s.IndexAdded, c)
	s.IndexRemoved = addTo(s.IndexRemoved, c)
	s.ModelFinalizing = addTo(s.ModelFinalizing, c)
	return s
}

// Remove unregisters c from every trigger.
func (s *ConventionSet) Remove(c ConventionRule) *ConventionSet {
	return s.Replace(c, nil)
}

// Replace puts replacement at the position of old for every trigger both
// implement. Triggers only old implements lose old; triggers only the
// replacement implements get it appended. A nil replacement removes old.
// Replacing a convention that is not registered does nothing.
func (s *ConventionSet) Replace(old, replacement ConventionRule) *ConventionSet {
	if old == nil || !s.Contains(old) {
		return s
	}
	if replacement != nil && replacement.Name() != old.Name() && s.Contains(replacement) {
		s.Remove(replacement)
	}
	registered := make([]ConventionRule, 0, len(s.registered))
	for _, c := range s.registered {
		switch {
		case c.Name() != old.Name():
			registered = append(registered, c)
		case replacement != nil:
			registered = append(registered, replacement)
		}
	}
	s.registered = registered

	s.EntityTypeAdded = replaceIn(s.EntityTypeAdded, old, replacement)
	s.EntityTypeIgnored = replaceIn(s.EntityTypeIgnored, old, replacement)
	s.EntityTypeRemoved = replaceIn(s.EntityTypeRemoved, old, replacement)
	s.BaseTypeChanged = replaceIn(s.BaseTypeChanged, old, replacement)
	s.EntityTypeMemberIgnored = replaceIn(s.EntityTypeMemberIgnored, old, replacement)
	s.PropertyAdded = replaceIn(s.PropertyAdded, old, replacement)
	s.PropertyRemoved = replaceIn(s.PropertyRemoved, old, replacement)
	s.PropertyNullabilityChanged = replaceIn(s.PropertyNullabilityChanged, old, replacement)
	s.KeyAdded = replaceIn(s.KeyAdded, old, replacement)
	s.KeyRemoved = replaceIn(s.KeyRemoved, old, replacement)
	s.PrimaryKeyChanged = replaceIn(s.PrimaryKeyChanged, old, replacement)
	s.ForeignKeyAdded = replaceIn(s.ForeignKeyAdded, old, replacement)
	s.ForeignKeyRemoved = replaceIn(s.ForeignKeyRemoved, old, replacement)
	s.ForeignKeyPropertiesChanged = replaceIn(s.ForeignKeyPropertiesChanged, old, replacement)
	s.ForeignKeyUniquenessChanged = replaceIn(s.ForeignKeyUniquenessChanged, old, replacement)
	s.ForeignKeyRequirednessChanged = replaceIn(s.ForeignKeyRequirednessChanged, old, replacement)
	s.PrincipalEndChanged = replaceIn(s.PrincipalEndChanged, old, replacement)
	s.NavigationAdded = replaceIn(s.NavigationAdded, old, replacement)
	s.NavigationRemoved = replaceIn(s.NavigationRemoved, old, replacement)
	s.IndexAdded = replaceIn(s.IndexAdded, old, replacement)
	s.IndexRemoved = replaceIn(s.IndexRemoved, old, replacement)
	s.ModelFinalizing = replaceIn(s.ModelFinalizing, old, replacement)
	return s
}

// AddValidator registers a finalize-time validator.
func (s *ConventionSet) AddValidator(v ModelValidator) *ConventionSet {
	s.Validators = append(s.Validators, v)
	return s
}

// Contains reports whether a convention named like c is registered.
func (s *ConventionSet) Contains(c ConventionRule) bool {
	for _, registered := range s.registered {
		if registered.Name() == c.Name() {
			return true
		}
	}
	return false
}

// Names returns the names of registered conventions in registration order.
// A replacement takes the position of the convention it replaced.
func (s *ConventionSet) Names() []string {
	names := make([]string, 0, len(s.registered))
	for _, c := range s.registered {
		names = append(names, c.Name())
	}
	return names
}

// Clone returns a copy whose lists can be changed independently.
func (s *ConventionSet) Clone() *ConventionSet {
	c := *s
	c.registered = clone(s.registered)
	c.EntityTypeAdded = clone(s.EntityTypeAdded)
	c.EntityTypeIgnored = clone(s.EntityTypeIgnored)
	c.EntityTypeRemoved = clone(s.EntityTypeRemoved)
	c.BaseTypeChanged = clone(s.BaseTypeChanged)
	c.EntityTypeMemberIgnored = clone(s.EntityTypeMemberIgnored)
	c.PropertyAdded = clone(s.PropertyAdded)
	c.PropertyRemoved = clone(s.PropertyRemoved)
	c.PropertyNullabilityChanged = clone(s.PropertyNullabilityChanged)
	c.KeyAdded = clone(s.KeyAdded)
	c.KeyRemoved = clone(s.KeyRemoved)
	c.PrimaryKeyChanged = clone(s.PrimaryKeyChanged)
	c.ForeignKeyAdded = clone(s.ForeignKeyAdded)
	c.ForeignKeyRemoved = clone(s.ForeignKeyRemoved)
	c.ForeignKeyPropertiesChanged = clone(s.ForeignKeyPropertiesChanged)
	c.ForeignKeyUniquenessChanged = clone(s.ForeignKeyUniquenessChanged)
	c.ForeignKeyRequirednessChanged = clone(s.ForeignKeyRequirednessChanged)
	c.PrincipalEndChanged = clone(s.PrincipalEndChanged)
	c.NavigationAdded = clone(s.NavigationAdded)
	c.NavigationRemoved = clone(s.NavigationRemoved)
	c.IndexAdded = clone(s.IndexAdded)
	c.IndexRemoved = clone(s.IndexRemoved)
	c.ModelFinalizing = clone(s.ModelFinalizing)
	c.Validators = clone(s.Validators)
	return &c
}

func addTo[C ConventionRule](list []C, c ConventionRule) []C {
	if typed, ok := c.(C); ok {
		return append(list, typed)
	}
	return list
}

func replaceIn[C ConventionRule](list []C, old, replacement ConventionRule) []C {
	typed, implements := replacement.(C)
	result := make([]C, 0, len(list)+1)
	replaced := false
	for _, c := range list {
		if c.Name() != old.Name() {
			result = append(result, c)
			continue
		}
		if implements {
			result = append(result, typed)
			replaced = true
		}
	}
	if implements && !replaced && replacement != nil {
		result = append(result, typed)
	}
	return result
}

func clone[T any](list []T) []T {
	if list == nil {
		return nil
	}
	return append([]T(nil), list...)
}
