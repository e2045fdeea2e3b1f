package conventions

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// RelationshipDiscovery turns navigation-shaped fields into relationships. The
// shape of a field and of its inverse decides which side is the principal and
// whether the relationship is one-to-one. A navigation with more than one
// inverse candidate is marked ambiguous and stays unmapped until a
// navigation between the two entity types is configured explicitly.
type RelationshipDiscovery struct{}

// Name implements metadata.ConventionRule
func (*RelationshipDiscovery) Name() string { return "RelationshipDiscovery" }

// ProcessEntityTypeAdded implements metadata.EntityTypeAddedConvention
func (c *RelationshipDiscovery) ProcessEntityTypeAdded(b *metadata.InternalEntityTypeBuilder) {
	c.discover(b)
}

// ProcessBaseTypeChanged implements metadata.BaseTypeChangedConvention
func (c *RelationshipDiscovery) ProcessBaseTypeChanged(b *metadata.InternalEntityTypeBuilder, previous *metadata.EntityType) {
	c.discover(b)
}

// ProcessNavigationAdded implements metadata.NavigationAddedConvention. An
// explicitly configured navigation resolves the ambiguities between its two
// entity types.
func (c *RelationshipDiscovery) ProcessNavigationAdded(b *metadata.InternalRelationshipBuilder, nav *metadata.Navigation) {
	if !nav.ConfigurationSource().OverridesStrictly(metadata.Convention) {
		return
	}
	et, target := nav.DeclaringEntityType(), nav.TargetEntityType()
	cleared := et.Builder().ClearAmbiguousNavigations(target)
	if target.Builder().ClearAmbiguousNavigations(et) {
		cleared = true
	}
	if !cleared {
		return
	}
	c.discover(et.Builder())
	if target != et {
		c.discover(target.Builder())
	}
}

// ProcessNavigationRemoved implements metadata.NavigationRemovedConvention.
// Relationships this convention created are dropped once no navigation is left.
func (c *RelationshipDiscovery) ProcessNavigationRemoved(b *metadata.InternalEntityTypeBuilder, target *metadata.EntityType, name string) {
	et := b.Metadata()
	candidates := append(et.DeclaredForeignKeys(), target.DeclaredForeignKeys()...)
	for _, fk := range candidates {
		if !fk.IsInModel() || !connects(fk, et, target) {
			continue
		}
		if fk.ConfigurationSource() != metadata.Convention ||
			fk.NavigationToPrincipalName() != "" || fk.NavigationToDependentName() != "" ||
			fk.PropertiesSource().OverridesStrictly(metadata.Convention) {
			continue
		}
		fk.DeclaringEntityType().Builder().RemoveForeignKey(fk, metadata.Convention)
	}
}

func (c *RelationshipDiscovery) discover(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.IsShadow() {
		return
	}
	logger := et.Model().Logger()

	for _, f := range metadata.ExportedMembers(et.GoType()) {
		if !et.IsInModel() {
			return
		}
		shape, ok := metadata.NavigationShapeOf(f.Type)
		if !ok || !isCandidate(et, f) {
			continue
		}
		targetBuilder := b.ModelBuilder().EntityOf(shape.Target, metadata.Convention)
		if targetBuilder == nil {
			continue
		}
		target := targetBuilder.Metadata()

		inverses := inverseCandidates(et, f.Name, target)
		if len(inverses) > 1 {
			markAmbiguous(b, f.Name, target, inverses)
			continue
		}

		inverseName := ""
		inverseIsCollection := false
		if len(inverses) == 1 {
			inverse := inverses[0]
			// The inverse must point back at this field alone.
			back := inverseCandidates(target, inverse.Name, et)
			switch {
			case len(back) == 1 && back[0].Name == f.Name:
				inverseName = inverse.Name
				invShape, _ := metadata.NavigationShapeOf(inverse.Type)
				inverseIsCollection = invShape.IsCollection
			case len(back) > 1:
				markAmbiguous(targetBuilder, inverse.Name, et, back)
			}
		}

		var err error
		switch {
		case shape.IsCollection && inverseName != "" && inverseIsCollection:
			logger.Info("many-to-many navigations are not mapped",
				zap.String("navigation", et.Name()+"."+f.Name),
				zap.String("inverse", target.Name()+"."+inverseName))
			continue
		case shape.IsCollection:
			_, err = targetBuilder.HasRelationship(et, inverseName, f.Name, metadata.Convention)
		default:
			_, err = b.HasRelationship(target, f.Name, inverseName, metadata.Convention)
		}
		if err != nil {
			logger.Debug("relationship not discovered",
				zap.String("navigation", et.Name()+"."+f.Name),
				zap.Error(err))
			continue
		}
		logger.Debug("relationship discovered",
			zap.String("navigation", et.Name()+"."+f.Name),
			zap.String("target", target.Name()),
			zap.String("inverse", inverseName))
	}
}

// isCandidate reports whether a navigation field of et is still free for
// discovery.
func isCandidate(et *metadata.EntityType, f reflect.StructField) bool {
	if metadata.IgnoredByTag(f) || et.FindIgnoredSource(f.Name) != metadata.NoSource ||
		et.IsAmbiguousNavigation(f.Name) {
		return false
	}
	return et.FindNavigation(f.Name) == nil && et.FindProperty(f.Name) == nil
}

// markAmbiguous keeps the named navigation of b from being paired and warns
// the first time.
func markAmbiguous(b *metadata.InternalEntityTypeBuilder, name string, target *metadata.EntityType, inverses []reflect.StructField) {
	et := b.Metadata()
	if !b.MarkAmbiguousNavigation(name, target) {
		return
	}
	et.Model().Logger().Warn("navigation has more than one inverse candidate and was not mapped",
		zap.String("navigation", et.Name()+"."+name),
		zap.Strings("candidates", fieldNames(inverses)))
}

// inverseCandidates returns the free navigation fields of target that point
// back at et, leaving out the field itself for self-references.
func inverseCandidates(et *metadata.EntityType, name string, target *metadata.EntityType) []reflect.StructField {
	if target.IsShadow() || et.IsShadow() {
		return nil
	}
	var result []reflect.StructField
	for _, f := range metadata.ExportedMembers(target.GoType()) {
		if target == et && f.Name == name {
			continue
		}
		shape, ok := metadata.NavigationShapeOf(f.Type)
		if !ok || shape.Target != et.GoType() || !isCandidate(target, f) {
			continue
		}
		result = append(result, f)
	}
	return result
}

func connects(fk *metadata.ForeignKey, a, b *metadata.EntityType) bool {
	dependent, principal := fk.DeclaringEntityType(), fk.PrincipalEntityType()
	return (dependent == a && principal == b) || (dependent == b && principal == a)
}

func fieldNames(fields []reflect.StructField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
