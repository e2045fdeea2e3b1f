package metadata

import (
	"fmt"
	"reflect"
)

type entityTypeAddedEvent struct{ entityType *EntityType }

func (e entityTypeAddedEvent) live() bool { return e.entityType.inModel }
func (e entityTypeAddedEvent) String() string {
	return "EntityTypeAdded(" + e.entityType.name + ")"
}
func (e entityTypeAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.EntityTypeAdded {
		if !e.live() {
			return
		}
		c.ProcessEntityTypeAdded(e.entityType.builder)
	}
}

type entityTypeIgnoredEvent struct {
	model  *Model
	name   string
	goType reflect.Type
}

func (e entityTypeIgnoredEvent) live() bool { return true }
func (e entityTypeIgnoredEvent) String() string {
	return "EntityTypeIgnored(" + e.name + ")"
}
func (e entityTypeIgnoredEvent) dispatch(set *ConventionSet) {
	for _, c := range set.EntityTypeIgnored {
		c.ProcessEntityTypeIgnored(e.model.builder, e.name, e.goType)
	}
}

type entityTypeRemovedEvent struct {
	model      *Model
	entityType *EntityType
}

func (e entityTypeRemovedEvent) live() bool { return true }
func (e entityTypeRemovedEvent) String() string {
	return "EntityTypeRemoved(" + e.entityType.name + ")"
}
func (e entityTypeRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.EntityTypeRemoved {
		c.ProcessEntityTypeRemoved(e.model.builder, e.entityType)
	}
}

type baseTypeChangedEvent struct {
	entityType *EntityType
	previous   *EntityType
}

func (e baseTypeChangedEvent) live() bool { return e.entityType.inModel }
func (e baseTypeChangedEvent) String() string {
	return "BaseTypeChanged(" + e.entityType.name + ")"
}
func (e baseTypeChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.BaseTypeChanged {
		if !e.live() {
			return
		}
		c.ProcessBaseTypeChanged(e.entityType.builder, e.previous)
	}
}

type memberIgnoredEvent struct {
	entityType *EntityType
	name       string
}

func (e memberIgnoredEvent) live() bool { return e.entityType.inModel }
func (e memberIgnoredEvent) String() string {
	return "EntityTypeMemberIgnored(" + e.entityType.name + "." + e.name + ")"
}
func (e memberIgnoredEvent) dispatch(set *ConventionSet) {
	for _, c := range set.EntityTypeMemberIgnored {
		if !e.live() {
			return
		}
		c.ProcessEntityTypeMemberIgnored(e.entityType.builder, e.name)
	}
}

type propertyAddedEvent struct{ property *Property }

func (e propertyAddedEvent) live() bool { return e.property.inModel }
func (e propertyAddedEvent) String() string {
	return "PropertyAdded(" + e.property.String() + ")"
}
func (e propertyAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.PropertyAdded {
		if !e.live() {
			return
		}
		c.ProcessPropertyAdded(e.property.builder)
	}
}

type propertyRemovedEvent struct {
	entityType *EntityType
	property   *Property
}

func (e propertyRemovedEvent) live() bool { return e.entityType.inModel }
func (e propertyRemovedEvent) String() string {
	return "PropertyRemoved(" + e.property.String() + ")"
}
func (e propertyRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.PropertyRemoved {
		if !e.live() {
			return
		}
		c.ProcessPropertyRemoved(e.entityType.builder, e.property)
	}
}

type propertyNullabilityChangedEvent struct{ property *Property }

func (e propertyNullabilityChangedEvent) live() bool { return e.property.inModel }
func (e propertyNullabilityChangedEvent) String() string {
	return "PropertyNullabilityChanged(" + e.property.String() + ")"
}
func (e propertyNullabilityChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.PropertyNullabilityChanged {
		if !e.live() {
			return
		}
		c.ProcessPropertyNullabilityChanged(e.property.builder)
	}
}

type keyAddedEvent struct{ key *Key }

func (e keyAddedEvent) live() bool { return e.key.inModel }
func (e keyAddedEvent) String() string {
	return "KeyAdded(" + e.key.String() + ")"
}
func (e keyAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.KeyAdded {
		if !e.live() {
			return
		}
		c.ProcessKeyAdded(e.key.builder)
	}
}

type keyRemovedEvent struct {
	entityType *EntityType
	key        *Key
}

func (e keyRemovedEvent) live() bool { return e.entityType.inModel }
func (e keyRemovedEvent) String() string {
	return "KeyRemoved(" + e.key.String() + ")"
}
func (e keyRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.KeyRemoved {
		if !e.live() {
			return
		}
		c.ProcessKeyRemoved(e.entityType.builder, e.key)
	}
}

type primaryKeyChangedEvent struct {
	entityType *EntityType
	previous   *Key
}

func (e primaryKeyChangedEvent) live() bool { return e.entityType.inModel }
func (e primaryKeyChangedEvent) String() string {
	return "PrimaryKeyChanged(" + e.entityType.name + ")"
}
func (e primaryKeyChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.PrimaryKeyChanged {
		if !e.live() {
			return
		}
		c.ProcessPrimaryKeyChanged(e.entityType.builder, e.previous)
	}
}

type foreignKeyAddedEvent struct{ foreignKey *ForeignKey }

func (e foreignKeyAddedEvent) live() bool { return e.foreignKey.inModel }
func (e foreignKeyAddedEvent) String() string {
	return "ForeignKeyAdded(" + e.foreignKey.String() + ")"
}
func (e foreignKeyAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ForeignKeyAdded {
		if !e.live() {
			return
		}
		c.ProcessForeignKeyAdded(e.foreignKey.builder)
	}
}

type foreignKeyRemovedEvent struct {
	entityType *EntityType
	foreignKey *ForeignKey
}

// live holds while either end remains, so the principal can clean up after a
// removed dependent.
func (e foreignKeyRemovedEvent) live() bool {
	return e.entityType.inModel || e.foreignKey.principalType.inModel
}
func (e foreignKeyRemovedEvent) String() string {
	return "ForeignKeyRemoved(" + e.foreignKey.String() + ")"
}
func (e foreignKeyRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ForeignKeyRemoved {
		if !e.live() {
			return
		}
		c.ProcessForeignKeyRemoved(e.entityType.builder, e.foreignKey)
	}
}

type foreignKeyPropertiesChangedEvent struct {
	foreignKey      *ForeignKey
	oldProperties   []*Property
	oldPrincipalKey *Key
}

func (e foreignKeyPropertiesChangedEvent) live() bool { return e.foreignKey.inModel }
func (e foreignKeyPropertiesChangedEvent) String() string {
	return "ForeignKeyPropertiesChanged(" + e.foreignKey.String() + ")"
}
func (e foreignKeyPropertiesChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ForeignKeyPropertiesChanged {
		if !e.live() {
			return
		}
		c.ProcessForeignKeyPropertiesChanged(e.foreignKey.builder, e.oldProperties, e.oldPrincipalKey)
	}
}

type foreignKeyUniquenessChangedEvent struct{ foreignKey *ForeignKey }

func (e foreignKeyUniquenessChangedEvent) live() bool { return e.foreignKey.inModel }
func (e foreignKeyUniquenessChangedEvent) String() string {
	return "ForeignKeyUniquenessChanged(" + e.foreignKey.String() + ")"
}
func (e foreignKeyUniquenessChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ForeignKeyUniquenessChanged {
		if !e.live() {
			return
		}
		c.ProcessForeignKeyUniquenessChanged(e.foreignKey.builder)
	}
}

type foreignKeyRequirednessChangedEvent struct{ foreignKey *ForeignKey }

func (e foreignKeyRequirednessChangedEvent) live() bool { return e.foreignKey.inModel }
func (e foreignKeyRequirednessChangedEvent) String() string {
	return "ForeignKeyRequirednessChanged(" + e.foreignKey.String() + ")"
}
func (e foreignKeyRequirednessChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ForeignKeyRequirednessChanged {
		if !e.live() {
			return
		}
		c.ProcessForeignKeyRequirednessChanged(e.foreignKey.builder)
	}
}

type principalEndChangedEvent struct{ foreignKey *ForeignKey }

func (e principalEndChangedEvent) live() bool { return e.foreignKey.inModel }
func (e principalEndChangedEvent) String() string {
	return "PrincipalEndChanged(" + e.foreignKey.String() + ")"
}
func (e principalEndChangedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.PrincipalEndChanged {
		if !e.live() {
			return
		}
		c.ProcessPrincipalEndChanged(e.foreignKey.builder)
	}
}

type navigationAddedEvent struct {
	foreignKey  *ForeignKey
	onDependent bool
	name        string
}

// live also requires the navigation to still be bound under the same name.
func (e navigationAddedEvent) live() bool {
	if !e.foreignKey.inModel {
		return false
	}
	if e.onDependent {
		return e.foreignKey.navToPrincipal == e.name
	}
	return e.foreignKey.navToDependent == e.name
}
func (e navigationAddedEvent) String() string {
	return fmt.Sprintf("NavigationAdded(%s, %s)", e.foreignKey, e.name)
}
func (e navigationAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.NavigationAdded {
		if !e.live() {
			return
		}
		nav := e.foreignKey.PrincipalToDependent()
		if e.onDependent {
			nav = e.foreignKey.DependentToPrincipal()
		}
		c.ProcessNavigationAdded(e.foreignKey.builder, nav)
	}
}

type navigationRemovedEvent struct {
	entityType *EntityType
	target     *EntityType
	name       string
}

func (e navigationRemovedEvent) live() bool { return e.entityType.inModel }
func (e navigationRemovedEvent) String() string {
	return "NavigationRemoved(" + e.entityType.name + "." + e.name + ")"
}
func (e navigationRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.NavigationRemoved {
		if !e.live() {
			return
		}
		c.ProcessNavigationRemoved(e.entityType.builder, e.target, e.name)
	}
}

type indexAddedEvent struct{ index *Index }

func (e indexAddedEvent) live() bool { return e.index.inModel }
func (e indexAddedEvent) String() string {
	return "IndexAdded(" + e.index.String() + ")"
}
func (e indexAddedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.IndexAdded {
		if !e.live() {
			return
		}
		c.ProcessIndexAdded(e.index.builder)
	}
}

type indexRemovedEvent struct {
	entityType *EntityType
	index      *Index
}

func (e indexRemovedEvent) live() bool { return e.entityType.inModel }
func (e indexRemovedEvent) String() string {
	return "IndexRemoved(" + e.index.String() + ")"
}
func (e indexRemovedEvent) dispatch(set *ConventionSet) {
	for _, c := range set.IndexRemoved {
		if !e.live() {
			return
		}
		c.ProcessIndexRemoved(e.entityType.builder, e.index)
	}
}
