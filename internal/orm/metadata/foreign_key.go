package metadata

import (
	"fmt"
	"strings"
)

// DeleteBehavior describes what happens to dependents when a principal is deleted
type DeleteBehavior int

const (
	DeleteClientSetNull DeleteBehavior = iota
	DeleteRestrict
	DeleteSetNull
	DeleteCascade
	DeleteNoAction
)

// String returns the string representation of the delete behavior
func (d DeleteBehavior) String() string {
	switch d {
	case DeleteClientSetNull:
		return "client_set_null"
	case DeleteRestrict:
		return "restrict"
	case DeleteSetNull:
		return "set_null"
	case DeleteCascade:
		return "cascade"
	case DeleteNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// ParseDeleteBehavior converts a string to a DeleteBehavior
func ParseDeleteBehavior(s string) (DeleteBehavior, error) {
	switch s {
	case "client_set_null":
		return DeleteClientSetNull, nil
	case "restrict":
		return DeleteRestrict, nil
	case "set_null":
		return DeleteSetNull, nil
	case "cascade":
		return DeleteCascade, nil
	case "no_action":
		return DeleteNoAction, nil
	default:
		return 0, fmt.Errorf("unknown delete behavior: %s", s)
	}
}

// ForeignKey is a relationship between a dependent and a principal entity type
type ForeignKey struct {
	annotatable

	declaringType *EntityType
	principalType *EntityType
	source        ConfigurationSource

	properties       []*Property
	propertiesSource ConfigurationSource

	principalKey       *Key
	principalKeySource ConfigurationSource

	navToPrincipal       string
	navToPrincipalSource ConfigurationSource
	navToDependent       string
	navToDependentSource ConfigurationSource

	unique       bool
	uniqueSource ConfigurationSource

	required       bool
	requiredSource ConfigurationSource

	deleteBehavior       DeleteBehavior
	deleteBehaviorSource ConfigurationSource

	principalEndSource ConfigurationSource

	builder *InternalRelationshipBuilder
	inModel bool
}

// DeclaringEntityType returns the dependent entity type
func (fk *ForeignKey) DeclaringEntityType() *EntityType { return fk.declaringType }

// PrincipalEntityType returns the principal entity type
func (fk *ForeignKey) PrincipalEntityType() *EntityType { return fk.principalType }

// ConfigurationSource returns the source that added the relationship
func (fk *ForeignKey) ConfigurationSource() ConfigurationSource { return fk.source }

// Properties returns the dependent-side properties
func (fk *ForeignKey) Properties() []*Property { return append([]*Property(nil), fk.properties...) }

// PropertiesSource returns the source of the foreign key properties fact
func (fk *ForeignKey) PropertiesSource() ConfigurationSource { return fk.propertiesSource }

// PrincipalKey returns the referenced key
func (fk *ForeignKey) PrincipalKey() *Key { return fk.principalKey }

// PrincipalKeySource returns the source of the principal key fact
func (fk *ForeignKey) PrincipalKeySource() ConfigurationSource { return fk.principalKeySource }

// NavigationToPrincipalName returns the navigation name on the dependent, or ""
func (fk *ForeignKey) NavigationToPrincipalName() string { return fk.navToPrincipal }

// NavigationToPrincipalSource returns the source of the dependent navigation fact
func (fk *ForeignKey) NavigationToPrincipalSource() ConfigurationSource {
	return fk.navToPrincipalSource
}

// NavigationToDependentName returns the navigation name on the principal, or ""
func (fk *ForeignKey) NavigationToDependentName() string { return fk.navToDependent }

// NavigationToDependentSource returns the source of the principal navigation fact
func (fk *ForeignKey) NavigationToDependentSource() ConfigurationSource {
	return fk.navToDependentSource
}

// DependentToPrincipal returns the navigation declared on the dependent
func (fk *ForeignKey) DependentToPrincipal() *Navigation {
	if fk.navToPrincipal == "" {
		return nil
	}
	return &Navigation{name: fk.navToPrincipal, declaringType: fk.declaringType, foreignKey: fk, onDependent: true}
}

// PrincipalToDependent returns the navigation declared on the principal
func (fk *ForeignKey) PrincipalToDependent() *Navigation {
	if fk.navToDependent == "" {
		return nil
	}
	return &Navigation{name: fk.navToDependent, declaringType: fk.principalType, foreignKey: fk, onDependent: false}
}

// IsUnique reports whether the relationship is one-to-one
func (fk *ForeignKey) IsUnique() bool { return fk.unique }

// UniqueSource returns the source of the uniqueness fact
func (fk *ForeignKey) UniqueSource() ConfigurationSource { return fk.uniqueSource }

// IsRequired reports whether a dependent must have a principal. When not
// configured it follows the nullability of the foreign key properties.
func (fk *ForeignKey) IsRequired() bool {
	if fk.requiredSource != NoSource {
		return fk.required
	}
	if len(fk.properties) == 0 {
		return false
	}
	for _, p := range fk.properties {
		if p.IsNullable() {
			return false
		}
	}
	return true
}

// RequiredSource returns the source of the requiredness fact
func (fk *ForeignKey) RequiredSource() ConfigurationSource { return fk.requiredSource }

// DeleteBehavior returns the configured delete behavior, defaulting to cascade
// for required relationships and client-side nulling for optional ones.
func (fk *ForeignKey) DeleteBehavior() DeleteBehavior {
	if fk.deleteBehaviorSource != NoSource {
		return fk.deleteBehavior
	}
	if fk.IsRequired() {
		return DeleteCascade
	}
	return DeleteClientSetNull
}

// DeleteBehaviorSource returns the source of the delete behavior fact
func (fk *ForeignKey) DeleteBehaviorSource() ConfigurationSource { return fk.deleteBehaviorSource }

// PrincipalEndSource returns the source that decided which side is principal
func (fk *ForeignKey) PrincipalEndSource() ConfigurationSource { return fk.principalEndSource }

// IsSelfReferencing reports whether both ends are in the same hierarchy
func (fk *ForeignKey) IsSelfReferencing() bool {
	return fk.declaringType.RootType() == fk.principalType.RootType()
}

// IsInModel reports whether the relationship is still part of the model
func (fk *ForeignKey) IsInModel() bool { return fk.inModel }

// Builder returns the internal builder for this relationship
func (fk *ForeignKey) Builder() *InternalRelationshipBuilder { return fk.builder }

// String returns the display form of the relationship
func (fk *ForeignKey) String() string {
	var b strings.Builder
	b.WriteString(fk.declaringType.name)
	b.WriteString(formatProperties(fk.properties))
	b.WriteString(" -> ")
	b.WriteString(fk.principalType.name)
	if fk.principalKey != nil {
		b.WriteString(formatProperties(fk.principalKey.properties))
	}
	return b.String()
}

// Navigation is a read-only view of one end of a relationship
type Navigation struct {
	name          string
	declaringType *EntityType
	foreignKey    *ForeignKey
	onDependent   bool
}

// Name returns the navigation name
func (n *Navigation) Name() string { return n.name }

// DeclaringEntityType returns the entity type that declares the navigation
func (n *Navigation) DeclaringEntityType() *EntityType { return n.declaringType }

// ForeignKey returns the relationship the navigation belongs to
func (n *Navigation) ForeignKey() *ForeignKey { return n.foreignKey }

// IsOnDependent reports whether the navigation points to the principal
func (n *Navigation) IsOnDependent() bool { return n.onDependent }

// IsCollection reports whether the navigation holds many entities
func (n *Navigation) IsCollection() bool { return !n.onDependent && !n.foreignKey.unique }

// TargetEntityType returns the entity type the navigation points to
func (n *Navigation) TargetEntityType() *EntityType {
	if n.onDependent {
		return n.foreignKey.principalType
	}
	return n.foreignKey.declaringType
}

// ConfigurationSource returns the source that configured the navigation
func (n *Navigation) ConfigurationSource() ConfigurationSource {
	if n.onDependent {
		return n.foreignKey.navToPrincipalSource
	}
	return n.foreignKey.navToDependentSource
}

// Inverse returns the navigation at the other end, if any
func (n *Navigation) Inverse() *Navigation {
	if n.onDependent {
		return n.foreignKey.PrincipalToDependent()
	}
	return n.foreignKey.DependentToPrincipal()
}

// String returns the display form of the navigation
func (n *Navigation) String() string {
	return n.declaringType.name + "." + n.name
}
