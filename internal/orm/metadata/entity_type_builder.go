package metadata

import (
	"fmt"
	"reflect"
	"strconv"

	"go.uber.org/zap"
)

// InternalEntityTypeBuilder arbitrates every change to an entity type and the
// metadata it declares.
type InternalEntityTypeBuilder struct {
	entityType *EntityType
}

// Metadata returns the entity type being built
func (b *InternalEntityTypeBuilder) Metadata() *EntityType { return b.entityType }

// ModelBuilder returns the builder of the owning model
func (b *InternalEntityTypeBuilder) ModelBuilder() *InternalModelBuilder {
	return b.entityType.model.builder
}

func (b *InternalEntityTypeBuilder) live() bool { return b.entityType.inModel }

func (b *InternalEntityTypeBuilder) model() *Model { return b.entityType.model }

// Property adds or finds a property. For Go-backed members goType may be nil;
// shadow properties need a type.
func (b *InternalEntityTypeBuilder) Property(name string, goType reflect.Type, source ConfigurationSource) *InternalPropertyBuilder {
	return withConventions(b.model(), func() *InternalPropertyBuilder {
		return b.property(name, goType, source)
	})
}

func (b *InternalEntityTypeBuilder) property(name string, goType reflect.Type, source ConfigurationSource) *InternalPropertyBuilder {
	et := b.entityType
	if name == "" || !et.inModel {
		return nil
	}
	if existing := et.FindProperty(name); existing != nil {
		return existing.builder.update(goType, source)
	}
	if et.IsIgnored(name, source) || et.FindNavigation(name) != nil {
		return nil
	}

	typeSource := NoSource
	if goType != nil {
		typeSource = source
	}
	member, hasMember := FindMember(et.goType, name)
	if hasMember {
		if _, isNavigation := NavigationShapeOf(member.Type); isNavigation {
			return nil
		}
		if goType == nil {
			goType = member.Type
		} else if goType != member.Type {
			return nil
		}
	} else if goType == nil {
		return nil
	}

	// A property declared on a derived type moves up to this type.
	for _, d := range et.hierarchy()[1:] {
		if p := d.propertyIndex[name]; p != nil {
			if !d.builder.canRemoveProperty(p, source) {
				return nil
			}
			d.builder.removeProperty(p, source)
		}
	}

	p := newProperty(et, name, goType, !hasMember, source, typeSource)
	et.properties = append(et.properties, p)
	et.propertyIndex[name] = p
	delete(et.ignoredMembers, name)
	b.model().dispatcher.enqueue(propertyAddedEvent{property: p})
	return p.builder
}

// Ignore removes the named property or navigation and records the ignore with
// source. Ignoring with Convention is soft.
func (b *InternalEntityTypeBuilder) Ignore(name string, source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		return b.ignore(name, source)
	})
}

func (b *InternalEntityTypeBuilder) ignore(name string, source ConfigurationSource) bool {
	et := b.entityType
	if name == "" || !et.inModel {
		return false
	}
	if ignored := et.ignoredMembers[name]; ignored != NoSource && !source.Overrides(ignored) {
		return true
	}

	if p := et.FindProperty(name); p != nil {
		if !p.declaringType.builder.canRemoveProperty(p, source) {
			return false
		}
		p.declaringType.builder.removeProperty(p, source)
	} else if nav := et.FindNavigation(name); nav != nil {
		if !source.Overrides(nav.ConfigurationSource()) {
			return false
		}
		nav.foreignKey.builder.removeNavigation(nav.onDependent, source)
	}
	for _, d := range et.hierarchy()[1:] {
		if p := d.propertyIndex[name]; p != nil && d.builder.canRemoveProperty(p, source) {
			d.builder.removeProperty(p, source)
		}
	}

	if s := removalSource(source); s != NoSource {
		et.ignoredMembers[name] = Max(et.ignoredMembers[name], s)
	}
	b.model().dispatcher.enqueue(memberIgnoredEvent{entityType: et, name: name})
	return true
}

// RemoveProperty removes a declared property together with the keys and
// indexes that use it. Foreign keys using it fall back to convention properties.
func (b *InternalEntityTypeBuilder) RemoveProperty(p *Property, source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		if p == nil || p.declaringType != b.entityType || !p.inModel {
			return false
		}
		if !b.canRemoveProperty(p, source) {
			return false
		}
		b.removeProperty(p, source)
		return true
	})
}

func (b *InternalEntityTypeBuilder) canRemoveProperty(p *Property, source ConfigurationSource) bool {
	if !source.Overrides(p.source) {
		return false
	}
	for _, k := range p.keys {
		if !k.declaringType.builder.canRemoveKey(k, source) {
			return false
		}
	}
	for _, fk := range p.foreignKeys {
		if !source.Overrides(fk.propertiesSource) {
			return false
		}
	}
	for _, idx := range p.indexes {
		if !source.Overrides(idx.source) {
			return false
		}
	}
	return true
}

// removeProperty detaches p. Callers check canRemoveProperty first.
func (b *InternalEntityTypeBuilder) removeProperty(p *Property, source ConfigurationSource) {
	et := b.entityType
	for _, idx := range clone(p.indexes) {
		idx.declaringType.builder.detachIndex(idx)
	}
	for _, k := range clone(p.keys) {
		k.declaringType.builder.removeKey(k, source)
	}

	et.properties = removeItem(et.properties, p)
	delete(et.propertyIndex, p.name)
	p.inModel = false

	for _, fk := range clone(p.foreignKeys) {
		fk.builder.resetProperties()
	}
	b.model().dispatcher.enqueue(propertyRemovedEvent{entityType: et, property: p})
}

// HasBaseType sets or, with a nil base, clears the base type.
func (b *InternalEntityTypeBuilder) HasBaseType(base *EntityType, source ConfigurationSource) *InternalEntityTypeBuilder {
	return withConventions(b.model(), func() *InternalEntityTypeBuilder {
		return b.hasBaseType(base, source)
	})
}

func (b *InternalEntityTypeBuilder) hasBaseType(base *EntityType, source ConfigurationSource) *InternalEntityTypeBuilder {
	et := b.entityType
	if et.baseType == base {
		if base != nil {
			et.baseTypeSource = Max(et.baseTypeSource, source)
		}
		return b
	}
	if !source.Overrides(et.baseTypeSource) {
		return nil
	}

	var duplicates []*Property
	if base != nil {
		if !base.inModel || base.model != et.model {
			return nil
		}
		if et.IsAssignableFrom(base) {
			return nil
		}
		for _, p := range et.properties {
			if base.FindProperty(p.name) == nil {
				continue
			}
			if !b.canRemoveProperty(p, source) {
				return nil
			}
			duplicates = append(duplicates, p)
		}
		for _, k := range et.keys {
			if !b.canRemoveKey(k, source) {
				return nil
			}
		}
	}

	previous := et.baseType
	b.setBaseType(base)
	if base == nil {
		et.baseTypeSource = removalSource(source)
	} else {
		et.baseTypeSource = source
		// Keys belong to the root of the hierarchy.
		for _, k := range clone(et.keys) {
			b.removeKey(k, source)
		}
		et.primaryKeySource = NoSource
		for _, p := range duplicates {
			if p.inModel {
				b.removeProperty(p, source)
			}
		}
	}

	baseName := ""
	if base != nil {
		baseName = base.name
	}
	b.model().logger.Debug("base type changed",
		zap.String("entity_type", et.name),
		zap.String("base_type", baseName),
		zap.Stringer("source", source))
	b.model().dispatcher.enqueue(baseTypeChangedEvent{entityType: et, previous: previous})
	return b
}

// reparent moves et under base without arbitration. Used when the previous
// base type leaves the model.
func (b *InternalEntityTypeBuilder) reparent(base *EntityType) {
	et := b.entityType
	previous := et.baseType
	b.setBaseType(base)
	b.model().dispatcher.enqueue(baseTypeChangedEvent{entityType: et, previous: previous})
}

// setBaseType links et under base and releases references to properties that
// are no longer inherited.
func (b *InternalEntityTypeBuilder) setBaseType(base *EntityType) {
	et := b.entityType
	previous := et.baseType
	if previous != nil {
		previous.derivedTypes = removeItem(previous.derivedTypes, et)
	}

	lost := make(map[*Property]bool)
	if previous != nil {
		for _, p := range previous.Properties() {
			lost[p] = true
		}
	}
	et.baseType = base
	if base != nil {
		base.derivedTypes = append(base.derivedTypes, et)
		for _, p := range base.Properties() {
			delete(lost, p)
		}
	}
	if len(lost) == 0 {
		return
	}

	for _, t := range et.hierarchy() {
		for _, idx := range clone(t.indexes) {
			if usesAny(idx.properties, lost) {
				t.builder.detachIndex(idx)
			}
		}
		for _, fk := range clone(t.foreignKeys) {
			if usesAny(fk.properties, lost) {
				fk.builder.resetProperties()
			}
		}
	}
}

func usesAny(props []*Property, set map[*Property]bool) bool {
	for _, p := range props {
		if set[p] {
			return true
		}
	}
	return false
}

// PrimaryKey sets the primary key over the named properties. Properties backed
// by Go fields are added when missing.
func (b *InternalEntityTypeBuilder) PrimaryKey(names []string, source ConfigurationSource) (*InternalKeyBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalKeyBuilder, error) {
		props := b.resolveProperties(names, source)
		if props == nil {
			return nil, nil
		}
		return b.primaryKey(props, source)
	})
}

// PrimaryKeyOn sets the primary key over properties the caller already holds.
func (b *InternalEntityTypeBuilder) PrimaryKeyOn(props []*Property, source ConfigurationSource) (*InternalKeyBuilder, error) {
	return withConventionsErr(b.model(), func() (*InternalKeyBuilder, error) {
		if !b.ownsAll(props) {
			return nil, nil
		}
		return b.primaryKey(props, source)
	})
}

func (b *InternalEntityTypeBuilder) primaryKey(props []*Property, source ConfigurationSource) (*InternalKeyBuilder, error) {
	et := b.entityType
	if et.baseType != nil {
		return nil, nil
	}
	if current := et.primaryKey; current != nil && samePropertyList(current.properties, props) {
		et.primaryKeySource = Max(et.primaryKeySource, source)
		current.source = Max(current.source, source)
		return current.builder, nil
	}
	if !source.Overrides(et.primaryKeySource) {
		return nil, nil
	}
	for _, p := range props {
		if p.declaringType != et {
			return nil, nil
		}
		if p.nullable && p.nullableSource == Explicit {
			if source == Explicit {
				return nil, newConflict(et.name, p.name,
					"property is configured as optional and cannot be part of the primary key")
			}
			return nil, nil
		}
	}

	key := et.FindKey(props)
	if key == nil {
		key = b.addKey(props, source)
	} else {
		key.source = Max(key.source, source)
	}
	previous := et.primaryKey
	et.primaryKey = key
	et.primaryKeySource = source

	b.updateReferencingForeignKeys()
	if previous != nil && previous.inModel && len(previous.referencing) == 0 && source.Overrides(previous.source) {
		b.detachKey(previous)
	}

	b.model().logger.Debug("primary key set",
		zap.String("key", key.String()),
		zap.Stringer("source", source))
	b.model().dispatcher.enqueue(primaryKeyChangedEvent{entityType: et, previous: previous})
	return key.builder, nil
}

// RemovePrimaryKey clears the primary key. The previous key stays as an
// alternate key while relationships still reference it.
func (b *InternalEntityTypeBuilder) RemovePrimaryKey(source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		et := b.entityType
		if et.baseType != nil || !source.Overrides(et.primaryKeySource) {
			return false
		}
		previous := et.primaryKey
		et.primaryKey = nil
		et.primaryKeySource = removalSource(source)
		if previous == nil {
			return true
		}
		b.updateReferencingForeignKeys()
		if len(previous.referencing) == 0 && source.Overrides(previous.source) {
			b.detachKey(previous)
			removeUnusedShadowProperties(previous.properties)
		}
		b.model().dispatcher.enqueue(primaryKeyChangedEvent{entityType: et, previous: previous})
		return true
	})
}

// updateReferencingForeignKeys points relationships that use the default
// principal key at the current one.
func (b *InternalEntityTypeBuilder) updateReferencingForeignKeys() {
	for _, t := range b.entityType.hierarchy() {
		for _, fk := range clone(t.referencing) {
			if fk.principalKeySource == NoSource {
				fk.builder.resetPrincipalKey()
			}
		}
	}
}

// HasKey adds or finds an alternate key.
func (b *InternalEntityTypeBuilder) HasKey(names []string, source ConfigurationSource) *InternalKeyBuilder {
	return withConventions(b.model(), func() *InternalKeyBuilder {
		props := b.resolveProperties(names, source)
		if props == nil {
			return nil
		}
		return b.hasKey(props, source)
	})
}

// HasKeyOn adds or finds an alternate key over properties the caller holds.
func (b *InternalEntityTypeBuilder) HasKeyOn(props []*Property, source ConfigurationSource) *InternalKeyBuilder {
	return withConventions(b.model(), func() *InternalKeyBuilder {
		if !b.ownsAll(props) {
			return nil
		}
		return b.hasKey(props, source)
	})
}

func (b *InternalEntityTypeBuilder) hasKey(props []*Property, source ConfigurationSource) *InternalKeyBuilder {
	et := b.entityType
	if et.baseType != nil || len(props) == 0 {
		return nil
	}
	for _, p := range props {
		if p.declaringType != et {
			return nil
		}
	}
	if k := et.FindKey(props); k != nil {
		k.source = Max(k.source, source)
		return k.builder
	}
	return b.addKey(props, source).builder
}

func (b *InternalEntityTypeBuilder) addKey(props []*Property, source ConfigurationSource) *Key {
	et := b.entityType
	k := &Key{
		declaringType: et,
		properties:    clone(props),
		source:        source,
		inModel:       true,
	}
	k.builder = &InternalKeyBuilder{key: k}
	et.keys = append(et.keys, k)
	for _, p := range props {
		p.keys = append(p.keys, k)
	}
	b.model().dispatcher.enqueue(keyAddedEvent{key: k})
	return k
}

// RemoveKey removes a key. Relationships that used it move to the default
// principal key.
func (b *InternalEntityTypeBuilder) RemoveKey(k *Key, source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		if k == nil || k.declaringType != b.entityType || !k.inModel {
			return false
		}
		return b.removeKey(k, source)
	})
}

func (b *InternalEntityTypeBuilder) canRemoveKey(k *Key, source ConfigurationSource) bool {
	if !source.Overrides(k.source) {
		return false
	}
	if k.IsPrimaryKey() && !source.Overrides(b.entityType.primaryKeySource) {
		return false
	}
	for _, fk := range k.referencing {
		if !source.Overrides(fk.principalKeySource) {
			return false
		}
	}
	return true
}

func (b *InternalEntityTypeBuilder) removeKey(k *Key, source ConfigurationSource) bool {
	if !b.canRemoveKey(k, source) {
		return false
	}
	et := b.entityType
	wasPrimary := et.primaryKey == k
	if wasPrimary {
		et.primaryKey = nil
		et.primaryKeySource = removalSource(source)
	}
	referencing := clone(k.referencing)
	b.detachKey(k)
	for _, fk := range referencing {
		fk.principalKeySource = NoSource
		fk.builder.resetPrincipalKey()
	}
	removeUnusedShadowProperties(k.properties)
	if wasPrimary {
		b.model().dispatcher.enqueue(primaryKeyChangedEvent{entityType: et, previous: k})
	}
	return true
}

// detachKey unlinks k from its entity type and properties.
func (b *InternalEntityTypeBuilder) detachKey(k *Key) {
	et := b.entityType
	et.keys = removeItem(et.keys, k)
	for _, p := range k.properties {
		p.keys = removeItem(p.keys, k)
	}
	for _, fk := range k.referencing {
		if fk.principalKey == k {
			fk.principalKey = nil
		}
	}
	k.referencing = nil
	k.inModel = false
	b.model().dispatcher.enqueue(keyRemovedEvent{entityType: et, key: k})
}

// HasIndex adds or finds an index.
func (b *InternalEntityTypeBuilder) HasIndex(names []string, source ConfigurationSource) *InternalIndexBuilder {
	return withConventions(b.model(), func() *InternalIndexBuilder {
		props := b.resolveProperties(names, source)
		if props == nil {
			return nil
		}
		return b.hasIndex(props, source)
	})
}

// HasIndexOn adds or finds an index over properties the caller holds.
func (b *InternalEntityTypeBuilder) HasIndexOn(props []*Property, source ConfigurationSource) *InternalIndexBuilder {
	return withConventions(b.model(), func() *InternalIndexBuilder {
		if !b.ownsAll(props) {
			return nil
		}
		return b.hasIndex(props, source)
	})
}

func (b *InternalEntityTypeBuilder) hasIndex(props []*Property, source ConfigurationSource) *InternalIndexBuilder {
	et := b.entityType
	if len(props) == 0 {
		return nil
	}
	if idx := et.FindIndex(props); idx != nil {
		idx.source = Max(idx.source, source)
		return idx.builder
	}
	idx := &Index{
		declaringType: et,
		properties:    clone(props),
		source:        source,
		inModel:       true,
	}
	idx.builder = &InternalIndexBuilder{index: idx}
	et.indexes = append(et.indexes, idx)
	for _, p := range props {
		p.indexes = append(p.indexes, idx)
	}
	b.model().dispatcher.enqueue(indexAddedEvent{index: idx})
	return idx.builder
}

// RemoveIndex removes a declared index and the convention shadow properties
// it leaves unused.
func (b *InternalEntityTypeBuilder) RemoveIndex(idx *Index, source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		if idx == nil || idx.declaringType != b.entityType || !idx.inModel {
			return false
		}
		if !source.Overrides(idx.source) {
			return false
		}
		b.detachIndex(idx)
		removeUnusedShadowProperties(idx.properties)
		return true
	})
}

func (b *InternalEntityTypeBuilder) detachIndex(idx *Index) {
	et := b.entityType
	et.indexes = removeItem(et.indexes, idx)
	for _, p := range idx.properties {
		p.indexes = removeItem(p.indexes, idx)
	}
	idx.inModel = false
	b.model().dispatcher.enqueue(indexRemovedEvent{entityType: et, index: idx})
}

// RemoveForeignKey removes a relationship declared on this entity type.
func (b *InternalEntityTypeBuilder) RemoveForeignKey(fk *ForeignKey, source ConfigurationSource) bool {
	return withConventionsBool(b.model(), func() bool {
		if fk == nil || fk.declaringType != b.entityType || !fk.inModel {
			return false
		}
		if !source.Overrides(fk.source) {
			return false
		}
		b.detachForeignKey(fk)
		return true
	})
}

// detachForeignKey unlinks fk from both ends without arbitration.
func (b *InternalEntityTypeBuilder) detachForeignKey(fk *ForeignKey) {
	et := b.entityType
	et.foreignKeys = removeItem(et.foreignKeys, fk)
	fk.principalType.referencing = removeItem(fk.principalType.referencing, fk)
	if fk.principalKey != nil {
		fk.principalKey.referencing = removeItem(fk.principalKey.referencing, fk)
	}
	for _, p := range fk.properties {
		p.foreignKeys = removeItem(p.foreignKeys, fk)
	}
	fk.inModel = false

	b.model().logger.Debug("relationship removed", zap.String("foreign_key", fk.String()))
	b.model().dispatcher.enqueue(foreignKeyRemovedEvent{entityType: et, foreignKey: fk})
	removeUnusedShadowProperties(fk.properties)
}

// HasAnnotation sets an annotation on the entity type.
func (b *InternalEntityTypeBuilder) HasAnnotation(name string, value any, source ConfigurationSource) *InternalEntityTypeBuilder {
	return withConventions(b.model(), func() *InternalEntityTypeBuilder {
		if name == "" || !b.entityType.setAnnotation(name, value, source) {
			return nil
		}
		return b
	})
}

// MarkAmbiguousNavigation records that the named navigation to target must not
// be paired by relationship discovery. It reports whether the mark is new.
func (b *InternalEntityTypeBuilder) MarkAmbiguousNavigation(name string, target *EntityType) bool {
	et := b.entityType
	if et.model.finalized || !et.inModel || name == "" {
		return false
	}
	if _, ok := et.ambiguous[name]; ok {
		return false
	}
	if et.ambiguous == nil {
		et.ambiguous = make(map[string]*EntityType)
	}
	et.ambiguous[name] = target
	return true
}

// ClearAmbiguousNavigations removes the marks of navigations to target and
// reports whether any was removed.
func (b *InternalEntityTypeBuilder) ClearAmbiguousNavigations(target *EntityType) bool {
	et := b.entityType
	if et.model.finalized {
		return false
	}
	removed := false
	for name, t := range et.ambiguous {
		if t == target {
			delete(et.ambiguous, name)
			removed = true
		}
	}
	return removed
}

// resolveProperties finds the named properties, raising their source, and adds
// Go-backed ones that are missing. It returns nil if any name cannot be resolved or repeats.
func (b *InternalEntityTypeBuilder) resolveProperties(names []string, source ConfigurationSource) []*Property {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	props := make([]*Property, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		pb := b.property(name, nil, source)
		if pb == nil {
			return nil
		}
		props = append(props, pb.property)
	}
	return props
}

// ownsAll reports whether every property is live and visible from this type.
func (b *InternalEntityTypeBuilder) ownsAll(props []*Property) bool {
	if len(props) == 0 {
		return false
	}
	for _, p := range props {
		if p == nil || !p.inModel || !p.declaringType.IsAssignableFrom(b.entityType) {
			return false
		}
	}
	return true
}

// isMemberNameAvailable reports whether a convention may create a shadow
// property with the given name.
func (et *EntityType) isMemberNameAvailable(name string) bool {
	if et.findPropertyInHierarchy(name) != nil || et.FindNavigation(name) != nil {
		return false
	}
	if et.FindIgnoredSource(name) != NoSource {
		return false
	}
	_, hasMember := FindMember(et.goType, name)
	return !hasMember
}

// uniqueMemberName appends the smallest numeric suffix that makes name free.
func uniqueMemberName(et *EntityType, name string) string {
	candidate := name
	for i := 1; !et.isMemberNameAvailable(candidate); i++ {
		candidate = name + strconv.Itoa(i)
	}
	return candidate
}

// removeUnusedShadowProperties drops convention-created shadow properties that
// nothing references anymore.
func removeUnusedShadowProperties(props []*Property) {
	for _, p := range props {
		if p.inModel && p.isShadow && p.source == Convention && p.isUnused() {
			p.declaringType.builder.removeProperty(p, Convention)
		}
	}
}

func (b *InternalEntityTypeBuilder) String() string {
	return fmt.Sprintf("InternalEntityTypeBuilder(%s)", b.entityType.name)
}
