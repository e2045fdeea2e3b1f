package conventions

import (
	"strings"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// ForeignKeyPropertyDiscovery binds a relationship to dependent properties
// whose names and types match the principal key: <navigation><key property>,
// <principal type><key property> or, for single-property keys, <navigation>Id
// and <principal type>Id. A one-to-one relationship whose matching properties
// live on the principal is inverted.
type ForeignKeyPropertyDiscovery struct{}

// Name implements metadata.ConventionRule
func (*ForeignKeyPropertyDiscovery) Name() string { return "ForeignKeyPropertyDiscovery" }

// ProcessForeignKeyAdded implements metadata.ForeignKeyAddedConvention
func (c *ForeignKeyPropertyDiscovery) ProcessForeignKeyAdded(b *metadata.InternalRelationshipBuilder) {
	c.discover(b)
}

// ProcessNavigationAdded implements metadata.NavigationAddedConvention
func (c *ForeignKeyPropertyDiscovery) ProcessNavigationAdded(b *metadata.InternalRelationshipBuilder, nav *metadata.Navigation) {
	c.discover(b)
}

// ProcessForeignKeyPropertiesChanged implements
// metadata.ForeignKeyPropertiesChangedConvention
func (c *ForeignKeyPropertyDiscovery) ProcessForeignKeyPropertiesChanged(b *metadata.InternalRelationshipBuilder, oldProperties []*metadata.Property, oldPrincipalKey *metadata.Key) {
	c.discover(b)
}

// ProcessForeignKeyUniquenessChanged implements
// metadata.ForeignKeyUniquenessChangedConvention
func (c *ForeignKeyPropertyDiscovery) ProcessForeignKeyUniquenessChanged(b *metadata.InternalRelationshipBuilder) {
	c.discover(b)
}

// ProcessPropertyAdded implements metadata.PropertyAddedConvention. A new
// property can match relationships of its entity type and of derived types.
func (c *ForeignKeyPropertyDiscovery) ProcessPropertyAdded(b *metadata.InternalPropertyBuilder) {
	p := b.Metadata()
	if p.IsShadow() && p.ConfigurationSource() == metadata.Convention {
		return
	}
	et := p.DeclaringEntityType()
	for _, fk := range et.Model().ForeignKeys() {
		if fk.IsInModel() && et.IsAssignableFrom(fk.DeclaringEntityType()) {
			c.discover(fk.Builder())
		}
	}
}

func (c *ForeignKeyPropertyDiscovery) discover(b *metadata.InternalRelationshipBuilder) {
	fk := b.Metadata()
	if !fk.IsInModel() || fk.PropertiesSource().OverridesStrictly(metadata.Convention) {
		return
	}
	key := fk.PrincipalKey()
	if key == nil {
		return
	}
	dependent, principal := fk.DeclaringEntityType(), fk.PrincipalEntityType()

	props := MatchForeignKeyProperties(dependent, principal, fk.NavigationToPrincipalName(), key, fk.IsUnique())
	if props == nil {
		if c.shouldInvert(fk) {
			if rb, _ := b.Invert(metadata.Convention); rb != nil {
				dependent.Model().Logger().Debug("relationship inverted to match foreign key properties",
					zap.String("foreign_key", fk.String()))
			}
			return
		}
		if fk.PropertiesSource() == metadata.Convention {
			b.ResetForeignKeyProperties(metadata.Convention)
		}
		return
	}
	if sameProperties(props, fk.Properties()) {
		return
	}
	if rb, _ := b.HasForeignKeyProperties(props, metadata.Convention); rb != nil {
		dependent.Model().Logger().Debug("foreign key properties discovered",
			zap.String("foreign_key", fk.String()))
	}
}

// shouldInvert reports whether a one-to-one relationship finds its foreign key
// properties on the principal side.
func (c *ForeignKeyPropertyDiscovery) shouldInvert(fk *metadata.ForeignKey) bool {
	if !fk.IsUnique() || fk.PrincipalEndSource().OverridesStrictly(metadata.Convention) ||
		fk.PrincipalKeySource().OverridesStrictly(metadata.Convention) || fk.IsSelfReferencing() {
		return false
	}
	dependentKey := fk.DeclaringEntityType().FindPrimaryKey()
	if dependentKey == nil {
		return false
	}
	return MatchForeignKeyProperties(fk.PrincipalEntityType(), fk.DeclaringEntityType(),
		fk.NavigationToDependentName(), dependentKey, true) != nil
}

// MatchForeignKeyProperties returns the properties of dependent that match key
// by name and type, or nil. Convention shadow properties never match; primary
// key properties only match one-to-one relationships.
func MatchForeignKeyProperties(dependent, principal *metadata.EntityType, navigation string, key *metadata.Key, unique bool) []*metadata.Property {
	var prefixes []string
	if navigation != "" {
		prefixes = append(prefixes, navigation)
	}
	prefixes = append(prefixes, typeName(principal))

	keyProps := key.Properties()
	for _, prefix := range prefixes {
		if props := matchWithPrefix(dependent, prefix, keyProps, unique); props != nil {
			return props
		}
	}
	return nil
}

func matchWithPrefix(dependent *metadata.EntityType, prefix string, keyProps []*metadata.Property, unique bool) []*metadata.Property {
	props := make([]*metadata.Property, 0, len(keyProps))
	used := make(map[*metadata.Property]bool)
	for _, kp := range keyProps {
		names := []string{prefix + kp.Name()}
		if strings.HasPrefix(strings.ToLower(kp.Name()), strings.ToLower(prefix)) {
			names = append(names, kp.Name())
		}
		if len(keyProps) == 1 {
			names = append(names, prefix+"Id")
		}

		var match *metadata.Property
		for _, name := range names {
			p := findPropertyFold(dependent, name)
			if p == nil || p == kp || used[p] || !metadata.TypesCompatible(p.GoType(), kp.GoType()) {
				continue
			}
			if p.IsPrimaryKey() && !unique {
				continue
			}
			match = p
			break
		}
		if match == nil {
			return nil
		}
		used[match] = true
		props = append(props, match)
	}
	return props
}

func findPropertyFold(et *metadata.EntityType, name string) *metadata.Property {
	if p := et.FindProperty(name); p != nil && !isConventionShadow(p) {
		return p
	}
	for _, p := range et.Properties() {
		if strings.EqualFold(p.Name(), name) && !isConventionShadow(p) {
			return p
		}
	}
	return nil
}

func isConventionShadow(p *metadata.Property) bool {
	return p.IsShadow() && p.ConfigurationSource() == metadata.Convention
}

func sameProperties(a, b []*metadata.Property) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
