package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// tempIDName names the shadow key synthesized on principals without a primary key.
const tempIDName = "TempId"

// InternalRelationshipBuilder arbitrates changes to a foreign key and its
// navigations.
type InternalRelationshipBuilder struct {
	foreignKey *ForeignKey
}

// Metadata returns the foreign key being built
func (b *InternalRelationshipBuilder) Metadata() *ForeignKey { return b.foreignKey }

func (b *InternalRelationshipBuilder) live() bool { return b.foreignKey.inModel }

func (b *InternalRelationshipBuilder) model() *Model { return b.foreignKey.declaringType.model }

// HasRelationship finds or creates the relationship in which this entity type is
// the dependent of principal, binding the given navigation names. An existing
// relationship found through a navigation is inverted when it points the other
// way.
func (b *InternalEntityTypeBuilder) HasRelationship(principal *EntityType, navToPrincipal, navToDependent string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		return b.hasRelationship(principal, navToPrincipal, navToDependent, source)
	})
}

func (b *InternalEntityTypeBuilder) hasRelationship(principal *EntityType, navToPrincipal, navToDependent string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	dependent := b.entityType
	if principal == nil || !principal.inModel || principal.model != dependent.model {
		return nil, fmt.Errorf("%w: principal of relationship on %s", ErrEntityTypeNotFound, dependent.name)
	}
	if !dependent.inModel {
		return nil, nil
	}

	fk, invert := b.findRelationship(principal, navToPrincipal, navToDependent)
	if fk == nil {
		pending := &ForeignKey{declaringType: dependent, principalType: principal}
		pending.builder = &InternalRelationshipBuilder{foreignKey: pending}
		if navToPrincipal != "" {
			if ok, err := pending.builder.checkNavigation(navToPrincipal, true, source); !ok {
				return nil, err
			}
		}
		if navToDependent != "" {
			if ok, err := pending.builder.checkNavigation(navToDependent, false, source); !ok {
				return nil, err
			}
		}
		fk = b.createRelationship(principal, source)
	} else {
		fk.source = Max(fk.source, source)
		if invert {
			rb, err := fk.builder.invert(source)
			if rb == nil {
				return nil, err
			}
		}
	}

	rb := fk.builder
	var err error
	if navToPrincipal != "" {
		if rb, err = rb.hasNavigation(navToPrincipal, true, source); rb == nil {
			return nil, err
		}
	}
	if navToDependent != "" {
		if rb, err = rb.hasNavigation(navToDependent, false, source); rb == nil {
			return nil, err
		}
	}
	return rb, nil
}

// findRelationship looks up an existing relationship between this entity type
// and principal through the given navigations. invert is true when the match
// has this entity type as its principal.
func (b *InternalEntityTypeBuilder) findRelationship(principal *EntityType, navToPrincipal, navToDependent string) (fk *ForeignKey, invert bool) {
	dependent := b.entityType
	if navToPrincipal != "" {
		if nav := dependent.FindNavigation(navToPrincipal); nav != nil && connects(nav.foreignKey, dependent, principal) {
			return nav.foreignKey, !nav.onDependent
		}
	}
	if navToDependent != "" {
		if nav := principal.FindNavigation(navToDependent); nav != nil && connects(nav.foreignKey, dependent, principal) {
			return nav.foreignKey, nav.onDependent
		}
	}
	if navToPrincipal == "" && navToDependent == "" {
		for _, candidate := range dependent.foreignKeys {
			if candidate.principalType == principal && candidate.navToPrincipal == "" && candidate.navToDependent == "" {
				return candidate, false
			}
		}
	}
	return nil, false
}

func connects(fk *ForeignKey, a, b *EntityType) bool {
	return (fk.declaringType == a && fk.principalType == b) ||
		(fk.declaringType == b && fk.principalType == a)
}

func (b *InternalEntityTypeBuilder) createRelationship(principal *EntityType, source ConfigurationSource) *ForeignKey {
	dependent := b.entityType
	fk := &ForeignKey{
		declaringType: dependent,
		principalType: principal,
		source:        source,
		inModel:       true,
	}
	fk.builder = &InternalRelationshipBuilder{foreignKey: fk}
	dependent.foreignKeys = append(dependent.foreignKeys, fk)
	principal.referencing = append(principal.referencing, fk)

	fk.builder.setPrincipalKey(defaultPrincipalKey(principal), NoSource)
	fk.builder.replaceProperties(fk.builder.defaultProperties(), NoSource)

	b.model().logger.Debug("relationship added",
		zap.String("foreign_key", fk.String()),
		zap.Stringer("source", source))
	b.model().dispatcher.enqueue(foreignKeyAddedEvent{foreignKey: fk})
	return fk
}

// defaultPrincipalKey returns the primary key of principal, or a shadow key
// synthesized by convention when there is none yet.
func defaultPrincipalKey(principal *EntityType) *Key {
	if pk := principal.FindPrimaryKey(); pk != nil {
		return pk
	}
	root := principal.RootType()
	for _, k := range root.keys {
		if isTemporaryKey(k) {
			return k
		}
	}
	pb := root.builder.property(uniqueMemberName(root, tempIDName), reflect.TypeOf(0), Convention)
	if pb == nil {
		return nil
	}
	kb := root.builder.hasKey([]*Property{pb.property}, Convention)
	if kb == nil {
		return nil
	}
	return kb.key
}

func isTemporaryKey(k *Key) bool {
	if len(k.properties) != 1 || k.source != Convention {
		return false
	}
	p := k.properties[0]
	return p.isShadow && p.source == Convention && strings.HasPrefix(p.name, tempIDName)
}

// defaultProperties returns the convention foreign key properties for the
// current principal key: <navigation or principal name><key property>, typed
// as the nullable form of the key property.
func (b *InternalRelationshipBuilder) defaultProperties() []*Property {
	fk := b.foreignKey
	if fk.principalKey == nil {
		return nil
	}
	dependent := fk.declaringType
	prefix := fk.navToPrincipal
	if prefix == "" {
		prefix = shortName(fk.principalType.name)
	}

	props := make([]*Property, 0, len(fk.principalKey.properties))
	for _, kp := range fk.principalKey.properties {
		name := kp.name
		if !strings.HasPrefix(strings.ToLower(kp.name), strings.ToLower(prefix)) {
			name = prefix + kp.name
		}
		goType := NullableOf(kp.goType)
		if p := b.reusableProperty(name, goType); p != nil {
			props = append(props, p)
			continue
		}
		pb := dependent.builder.property(uniqueMemberName(dependent, name), goType, Convention)
		if pb == nil {
			return nil
		}
		props = append(props, pb.property)
	}
	return props
}

// reusableProperty returns a current convention shadow property of this
// foreign key that already has the wanted name and type.
func (b *InternalRelationshipBuilder) reusableProperty(name string, goType reflect.Type) *Property {
	for _, p := range b.foreignKey.properties {
		if !p.inModel || !p.isShadow || p.source != Convention || p.goType != goType {
			continue
		}
		suffix, ok := strings.CutPrefix(p.name, name)
		if ok && strings.Trim(suffix, "0123456789") == "" {
			return p
		}
	}
	return nil
}

func shortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// replaceProperties swaps the foreign key properties without arbitration and
// drops convention shadow properties that became unused.
func (b *InternalRelationshipBuilder) replaceProperties(props []*Property, source ConfigurationSource) {
	fk := b.foreignKey
	old := fk.properties
	for _, p := range old {
		p.foreignKeys = removeItem(p.foreignKeys, fk)
	}
	fk.properties = clone(props)
	for _, p := range props {
		p.foreignKeys = append(p.foreignKeys, fk)
	}
	fk.propertiesSource = source
	removeUnusedShadowProperties(old)
}

func (b *InternalRelationshipBuilder) setPrincipalKey(key *Key, source ConfigurationSource) {
	fk := b.foreignKey
	if fk.principalKey != nil {
		fk.principalKey.referencing = removeItem(fk.principalKey.referencing, fk)
	}
	fk.principalKey = key
	if key != nil {
		key.referencing = append(key.referencing, fk)
	}
	fk.principalKeySource = source
}

// resetProperties falls back to convention foreign key properties.
func (b *InternalRelationshipBuilder) resetProperties() {
	fk := b.foreignKey
	old := fk.properties
	props := b.defaultProperties()
	fk.propertiesSource = NoSource
	if samePropertyList(old, props) {
		return
	}
	b.replaceProperties(props, NoSource)
	b.model().dispatcher.enqueue(foreignKeyPropertiesChangedEvent{
		foreignKey:      fk,
		oldProperties:   old,
		oldPrincipalKey: fk.principalKey,
	})
}

// resetPrincipalKey falls back to the default principal key.
func (b *InternalRelationshipBuilder) resetPrincipalKey() {
	fk := b.foreignKey
	oldKey := fk.principalKey
	key := defaultPrincipalKey(fk.principalType)
	fk.principalKeySource = NoSource
	if key == oldKey {
		return
	}
	b.setPrincipalKey(key, NoSource)

	oldProps := fk.properties
	if fk.propertiesSource == NoSource {
		props := b.defaultProperties()
		if !samePropertyList(oldProps, props) {
			b.replaceProperties(props, NoSource)
		}
	}
	b.model().dispatcher.enqueue(foreignKeyPropertiesChangedEvent{
		foreignKey:      fk,
		oldProperties:   oldProps,
		oldPrincipalKey: oldKey,
	})
}

// HasNavigationToPrincipal binds or, with an empty name, removes the
// navigation on the dependent.
func (b *InternalRelationshipBuilder) HasNavigationToPrincipal(name string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		return b.hasNavigation(name, true, source)
	})
}

// HasNavigationToDependent binds or, with an empty name, removes the
// navigation on the principal.
func (b *InternalRelationshipBuilder) HasNavigationToDependent(name string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		return b.hasNavigation(name, false, source)
	})
}

func (b *InternalRelationshipBuilder) navigationState(onDependent bool) (string, ConfigurationSource) {
	fk := b.foreignKey
	if onDependent {
		return fk.navToPrincipal, fk.navToPrincipalSource
	}
	return fk.navToDependent, fk.navToDependentSource
}

func (b *InternalRelationshipBuilder) setNavigationState(onDependent bool, name string, source ConfigurationSource) {
	fk := b.foreignKey
	if onDependent {
		fk.navToPrincipal, fk.navToPrincipalSource = name, source
		return
	}
	fk.navToDependent, fk.navToDependentSource = name, source
}

// ends returns the entity type declaring the navigation and its target.
func (b *InternalRelationshipBuilder) ends(onDependent bool) (declaring, target *EntityType) {
	fk := b.foreignKey
	if onDependent {
		return fk.declaringType, fk.principalType
	}
	return fk.principalType, fk.declaringType
}

func (b *InternalRelationshipBuilder) hasNavigation(name string, onDependent bool, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	fk := b.foreignKey
	current, currentSource := b.navigationState(onDependent)
	if name == current {
		if name == "" {
			if source.Overrides(currentSource) {
				b.setNavigationState(onDependent, "", Max(currentSource, removalSource(source)))
			}
		} else {
			b.setNavigationState(onDependent, name, Max(currentSource, source))
		}
		return b, nil
	}
	if !source.Overrides(currentSource) {
		return nil, nil
	}
	if name == "" {
		b.removeNavigation(onDependent, source)
		return b, nil
	}

	if ok, err := b.checkNavigation(name, onDependent, source); !ok {
		return nil, err
	}
	declaring, _ := b.ends(onDependent)
	b.releaseMemberName(declaring, name, source)
	if current != "" {
		b.unbindNavigation(onDependent, NoSource)
	}
	if !onDependent {
		if shape, ok := navigationMemberShape(declaring, name); ok && fk.unique == shape.IsCollection {
			b.isUnique(!shape.IsCollection, source)
		}
	}

	b.setNavigationState(onDependent, name, source)
	delete(declaring.ignoredMembers, name)
	b.model().logger.Debug("navigation bound",
		zap.String("navigation", declaring.name+"."+name),
		zap.String("foreign_key", fk.String()),
		zap.Stringer("source", source))
	b.model().dispatcher.enqueue(navigationAddedEvent{foreignKey: fk, onDependent: onDependent, name: name})

	if onDependent && fk.propertiesSource == NoSource {
		b.resetProperties()
	}
	return b, nil
}

// checkNavigation decides whether name can be bound as a navigation of this
// relationship. Explicit requests that can never succeed are conflicts.
func (b *InternalRelationshipBuilder) checkNavigation(name string, onDependent bool, source ConfigurationSource) (bool, error) {
	fk := b.foreignKey
	declaring, target := b.ends(onDependent)
	reject := func(format string, args ...any) (bool, error) {
		if source == Explicit {
			return false, newConflict(declaring.name, name, format, args...)
		}
		return false, nil
	}

	if declaring.IsIgnored(name, source) {
		return false, nil
	}
	if declaring.goType != nil {
		member, ok := FindMember(declaring.goType, name)
		if !ok {
			return reject("%s has no field named %s", declaring.goType, name)
		}
		shape, ok := NavigationShapeOf(member.Type)
		if !ok {
			return reject("field of type %s is not a navigation", member.Type)
		}
		targetType := declaring.model.FindEntityTypeByGoType(shape.Target)
		if targetType == nil || !targetType.IsAssignableFrom(target) {
			return reject("field of type %s cannot point to %s", member.Type, target.name)
		}
		if onDependent && shape.IsCollection {
			return reject("collection navigation cannot point to the principal %s", target.name)
		}
		if !onDependent && fk.unique == shape.IsCollection && !source.Overrides(fk.uniqueSource) {
			return false, nil
		}
	}

	if p := declaring.FindProperty(name); p != nil && !p.declaringType.builder.canRemoveProperty(p, source) {
		return false, nil
	}
	if nav := declaring.FindNavigation(name); nav != nil {
		if nav.foreignKey == fk {
			if nav.onDependent != onDependent {
				return reject("navigation is already used by the other end of %s", fk)
			}
		} else {
			navSource := nav.ConfigurationSource()
			if navSource == Explicit && source == Explicit {
				return false, newConflict(declaring.name, name,
					"navigation is already configured for relationship %s", nav.foreignKey)
			}
			if !source.Overrides(navSource) {
				return false, nil
			}
		}
	}
	return true, nil
}

// releaseMemberName frees name on declaring: a property with that name is
// removed and a navigation bound to another relationship is unbound.
func (b *InternalRelationshipBuilder) releaseMemberName(declaring *EntityType, name string, source ConfigurationSource) {
	if p := declaring.FindProperty(name); p != nil {
		p.declaringType.builder.removeProperty(p, source)
	}
	nav := declaring.FindNavigation(name)
	if nav == nil || nav.foreignKey == b.foreignKey {
		return
	}
	other := nav.foreignKey
	other.builder.unbindNavigation(nav.onDependent, NoSource)
	if other.source == Convention && other.navToPrincipal == "" && other.navToDependent == "" &&
		other.propertiesSource <= Convention {
		other.declaringType.builder.detachForeignKey(other)
	}
}

// removeNavigation unbinds a navigation. A hard removal keeps the member
// blocked for lower sources.
func (b *InternalRelationshipBuilder) removeNavigation(onDependent bool, source ConfigurationSource) {
	name, _ := b.navigationState(onDependent)
	if name == "" {
		return
	}
	s := removalSource(source)
	if s != NoSource {
		declaring, _ := b.ends(onDependent)
		declaring.ignoredMembers[name] = Max(declaring.ignoredMembers[name], s)
	}
	b.unbindNavigation(onDependent, s)
}

// unbindNavigation clears a navigation name and records s as its source.
func (b *InternalRelationshipBuilder) unbindNavigation(onDependent bool, s ConfigurationSource) {
	name, _ := b.navigationState(onDependent)
	if name == "" {
		return
	}
	declaring, target := b.ends(onDependent)
	b.setNavigationState(onDependent, "", s)
	b.model().dispatcher.enqueue(navigationRemovedEvent{entityType: declaring, target: target, name: name})

	if onDependent && b.foreignKey.propertiesSource == NoSource {
		b.resetProperties()
	}
}

// navigationMemberShape returns the shape of a navigation field on et.
func navigationMemberShape(et *EntityType, name string) (NavigationShape, bool) {
	member, ok := FindMember(et.goType, name)
	if !ok {
		return NavigationShape{}, false
	}
	return NavigationShapeOf(member.Type)
}

// IsUnique makes the relationship one-to-one or one-to-many. A principal
// navigation whose shape no longer fits is removed.
func (b *InternalRelationshipBuilder) IsUnique(unique bool, source ConfigurationSource) *InternalRelationshipBuilder {
	return withConventions(b.model(), func() *InternalRelationshipBuilder {
		return b.isUnique(unique, source)
	})
}

func (b *InternalRelationshipBuilder) isUnique(unique bool, source ConfigurationSource) *InternalRelationshipBuilder {
	fk := b.foreignKey
	if fk.unique == unique {
		fk.uniqueSource = Max(fk.uniqueSource, source)
		return b
	}
	if !source.Overrides(fk.uniqueSource) {
		return nil
	}
	if fk.navToDependent != "" {
		if shape, ok := navigationMemberShape(fk.principalType, fk.navToDependent); ok && shape.IsCollection == unique {
			if !source.Overrides(fk.navToDependentSource) {
				return nil
			}
			b.removeNavigation(false, source)
		}
	}
	fk.unique = unique
	fk.uniqueSource = source
	b.model().dispatcher.enqueue(foreignKeyUniquenessChangedEvent{foreignKey: fk})
	return b
}

// IsRequired sets whether every dependent must have a principal.
func (b *InternalRelationshipBuilder) IsRequired(required bool, source ConfigurationSource) *InternalRelationshipBuilder {
	return withConventions(b.model(), func() *InternalRelationshipBuilder {
		fk := b.foreignKey
		if fk.requiredSource != NoSource && fk.required == required {
			fk.requiredSource = Max(fk.requiredSource, source)
			return b
		}
		if !source.Overrides(fk.requiredSource) {
			return nil
		}
		changed := fk.IsRequired() != required
		fk.required = required
		fk.requiredSource = source
		if changed {
			b.model().dispatcher.enqueue(foreignKeyRequirednessChangedEvent{foreignKey: fk})
		}
		return b
	})
}

// OnDelete sets the delete behavior.
func (b *InternalRelationshipBuilder) OnDelete(behavior DeleteBehavior, source ConfigurationSource) *InternalRelationshipBuilder {
	return withConventions(b.model(), func() *InternalRelationshipBuilder {
		fk := b.foreignKey
		if fk.deleteBehaviorSource != NoSource && fk.deleteBehavior == behavior {
			fk.deleteBehaviorSource = Max(fk.deleteBehaviorSource, source)
			return b
		}
		if !source.Overrides(fk.deleteBehaviorSource) {
			return nil
		}
		fk.deleteBehavior = behavior
		fk.deleteBehaviorSource = source
		return b
	})
}

// HasForeignKey sets the dependent properties. Missing names are added, as
// shadow properties typed after the principal key when no field matches.
func (b *InternalRelationshipBuilder) HasForeignKey(names []string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		props := b.resolveForeignKeyProperties(names, source)
		if props == nil {
			return nil, nil
		}
		return b.hasForeignKey(props, source)
	})
}

// HasForeignKeyOn sets the dependent properties on dependent, inverting the
// relationship when dependent is currently its principal.
func (b *InternalRelationshipBuilder) HasForeignKeyOn(dependent *EntityType, names []string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		rb, err := b.orientDependent(dependent, source)
		if rb == nil {
			return nil, err
		}
		props := rb.resolveForeignKeyProperties(names, source)
		if props == nil {
			return nil, nil
		}
		return rb.hasForeignKey(props, source)
	})
}

// HasForeignKeyProperties sets dependent properties the caller already holds.
func (b *InternalRelationshipBuilder) HasForeignKeyProperties(props []*Property, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		if !b.foreignKey.declaringType.builder.ownsAll(props) {
			return nil, nil
		}
		return b.hasForeignKey(props, source)
	})
}

// ResetForeignKeyProperties drops configured dependent properties and goes back
// to the convention shadow properties.
func (b *InternalRelationshipBuilder) ResetForeignKeyProperties(source ConfigurationSource) *InternalRelationshipBuilder {
	return withConventions(b.model(), func() *InternalRelationshipBuilder {
		if !source.Overrides(b.foreignKey.propertiesSource) {
			return nil
		}
		b.resetProperties()
		return b
	})
}

func (b *InternalRelationshipBuilder) orientDependent(dependent *EntityType, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	fk := b.foreignKey
	switch dependent {
	case fk.declaringType:
		return b, nil
	case fk.principalType:
		return b.invert(source)
	default:
		return nil, fmt.Errorf("%w: %v is not an end of relationship %s", ErrInvalidArgument, dependent, fk)
	}
}

func (b *InternalRelationshipBuilder) resolveForeignKeyProperties(names []string, source ConfigurationSource) []*Property {
	fk := b.foreignKey
	if len(names) == 0 {
		return nil
	}
	dependent := fk.declaringType
	props := make([]*Property, 0, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		if p := dependent.FindProperty(name); p != nil {
			if p.builder.update(nil, source) == nil {
				return nil
			}
			props = append(props, p)
			continue
		}
		var goType reflect.Type
		if _, hasMember := FindMember(dependent.goType, name); !hasMember &&
			fk.principalKey != nil && i < len(fk.principalKey.properties) {
			goType = NullableOf(fk.principalKey.properties[i].goType)
		}
		pb := dependent.builder.property(name, goType, source)
		if pb == nil {
			return nil
		}
		props = append(props, pb.property)
	}
	return props
}

func (b *InternalRelationshipBuilder) hasForeignKey(props []*Property, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	fk := b.foreignKey
	if samePropertyList(fk.properties, props) {
		fk.propertiesSource = Max(fk.propertiesSource, source)
		return b, nil
	}
	if !source.Overrides(fk.propertiesSource) {
		return nil, nil
	}
	if fk.principalKey != nil && len(fk.principalKey.properties) != len(props) &&
		fk.principalKeySource == Explicit && source == Explicit {
		return nil, newConflict(fk.declaringType.name, strings.Join(propertyNames(props), ", "),
			"foreign key has %d properties but principal key %s has %d",
			len(props), fk.principalKey, len(fk.principalKey.properties))
	}

	old := fk.properties
	b.replaceProperties(props, source)
	b.model().dispatcher.enqueue(foreignKeyPropertiesChangedEvent{
		foreignKey:      fk,
		oldProperties:   old,
		oldPrincipalKey: fk.principalKey,
	})
	return b, nil
}

// HasPrincipalKey sets the referenced key. Properties that do not form a key
// yet get an alternate key added by convention.
func (b *InternalRelationshipBuilder) HasPrincipalKey(names []string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		props := b.foreignKey.principalType.builder.resolveProperties(names, source)
		if props == nil {
			return nil, nil
		}
		return b.hasPrincipalKey(props, source)
	})
}

// HasPrincipalKeyOn sets the referenced key on principal, inverting the
// relationship when principal is currently its dependent.
func (b *InternalRelationshipBuilder) HasPrincipalKeyOn(principal *EntityType, names []string, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		fk := b.foreignKey
		rb := b
		switch principal {
		case fk.principalType:
		case fk.declaringType:
			var err error
			if rb, err = b.invert(source); rb == nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %v is not an end of relationship %s", ErrInvalidArgument, principal, fk)
		}
		props := principal.builder.resolveProperties(names, source)
		if props == nil {
			return nil, nil
		}
		return rb.hasPrincipalKey(props, source)
	})
}

func (b *InternalRelationshipBuilder) hasPrincipalKey(props []*Property, source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	fk := b.foreignKey
	if fk.principalKey != nil && samePropertyList(fk.principalKey.properties, props) {
		fk.principalKeySource = Max(fk.principalKeySource, source)
		return b, nil
	}
	if !source.Overrides(fk.principalKeySource) {
		return nil, nil
	}
	if fk.propertiesSource == Explicit && source == Explicit && len(fk.properties) != len(props) {
		return nil, newConflict(fk.principalType.name, strings.Join(propertyNames(props), ", "),
			"principal key has %d properties but foreign key %s has %d",
			len(props), formatProperties(fk.properties), len(fk.properties))
	}

	key := fk.principalType.FindKey(props)
	if key == nil {
		kb := fk.principalType.RootType().builder.hasKey(props, Convention)
		if kb == nil {
			return nil, nil
		}
		key = kb.key
	}

	oldKey, oldProps := fk.principalKey, fk.properties
	b.setPrincipalKey(key, source)
	if fk.propertiesSource == NoSource {
		if props := b.defaultProperties(); !samePropertyList(oldProps, props) {
			b.replaceProperties(props, NoSource)
		}
	}
	b.model().dispatcher.enqueue(foreignKeyPropertiesChangedEvent{
		foreignKey:      fk,
		oldProperties:   oldProps,
		oldPrincipalKey: oldKey,
	})
	return b, nil
}

// Invert swaps the principal and dependent ends. Navigations and their
// sources swap with the ends; uniqueness, requiredness and delete behavior keep
// their values and sources; foreign key properties and the principal key go
// back to their defaults. Inverting a relationship whose foreign key or
// principal key was configured explicitly is a conflict.
func (b *InternalRelationshipBuilder) Invert(source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalRelationshipBuilder, error) {
		return b.invert(source)
	})
}

func (b *InternalRelationshipBuilder) invert(source ConfigurationSource) (*InternalRelationshipBuilder, error) {
	fk := b.foreignKey
	if fk.propertiesSource == Explicit || fk.principalKeySource == Explicit {
		if source == Explicit {
			return nil, newConflict(fk.declaringType.name, "",
				"relationship %s cannot be inverted because its foreign key or principal key was configured explicitly", fk)
		}
		return nil, nil
	}
	if !source.Overrides(fk.principalEndSource) ||
		!source.Overrides(fk.propertiesSource) ||
		!source.Overrides(fk.principalKeySource) {
		return nil, nil
	}
	if fk.navToDependent != "" {
		if shape, ok := navigationMemberShape(fk.principalType, fk.navToDependent); ok && shape.IsCollection {
			if source == Explicit {
				return nil, newConflict(fk.principalType.name, fk.navToDependent,
					"relationship %s cannot be inverted because the collection navigation would point to a principal", fk)
			}
			return nil, nil
		}
	}

	oldDependent, oldPrincipal := fk.declaringType, fk.principalType
	oldProps, oldKey := fk.properties, fk.principalKey

	oldDependent.foreignKeys = removeItem(oldDependent.foreignKeys, fk)
	oldPrincipal.referencing = removeItem(oldPrincipal.referencing, fk)
	for _, p := range oldProps {
		p.foreignKeys = removeItem(p.foreignKeys, fk)
	}
	fk.properties = nil
	b.setPrincipalKey(nil, NoSource)

	fk.declaringType, fk.principalType = oldPrincipal, oldDependent
	fk.navToPrincipal, fk.navToDependent = fk.navToDependent, fk.navToPrincipal
	fk.navToPrincipalSource, fk.navToDependentSource = fk.navToDependentSource, fk.navToPrincipalSource
	fk.declaringType.foreignKeys = append(fk.declaringType.foreignKeys, fk)
	fk.principalType.referencing = append(fk.principalType.referencing, fk)

	b.setPrincipalKey(defaultPrincipalKey(fk.principalType), NoSource)
	b.replaceProperties(b.defaultProperties(), NoSource)
	fk.principalEndSource = source
	removeUnusedShadowProperties(oldProps)

	b.model().logger.Debug("relationship inverted",
		zap.String("foreign_key", fk.String()),
		zap.Stringer("source", source))
	b.model().dispatcher.enqueue(principalEndChangedEvent{foreignKey: fk})
	b.model().dispatcher.enqueue(foreignKeyPropertiesChangedEvent{
		foreignKey:      fk,
		oldProperties:   oldProps,
		oldPrincipalKey: oldKey,
	})
	return b, nil
}

// HasAnnotation sets an annotation on the relationship.
func (b *InternalRelationshipBuilder) HasAnnotation(name string, value any, source ConfigurationSource) *InternalRelationshipBuilder {
	return withConventions(b.model(), func() *InternalRelationshipBuilder {
		if name == "" || !b.foreignKey.setAnnotation(name, value, source) {
			return nil
		}
		return b
	})
}
