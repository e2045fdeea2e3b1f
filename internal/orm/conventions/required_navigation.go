package conventions

import (
	"reflect"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// RequiredNavigation makes a relationship required when its navigation to the
// principal is a struct value rather than a pointer.
type RequiredNavigation struct{}

// Name implements metadata.ConventionRule
func (*RequiredNavigation) Name() string { return "RequiredNavigation" }

// ProcessForeignKeyAdded implements metadata.ForeignKeyAddedConvention
func (c *RequiredNavigation) ProcessForeignKeyAdded(b *metadata.InternalRelationshipBuilder) {
	c.apply(b)
}

// ProcessNavigationAdded implements metadata.NavigationAddedConvention
func (c *RequiredNavigation) ProcessNavigationAdded(b *metadata.InternalRelationshipBuilder, nav *metadata.Navigation) {
	if nav.IsOnDependent() {
		c.apply(b)
	}
}

// ProcessPrincipalEndChanged implements metadata.PrincipalEndChangedConvention
func (c *RequiredNavigation) ProcessPrincipalEndChanged(b *metadata.InternalRelationshipBuilder) {
	c.apply(b)
}

func (c *RequiredNavigation) apply(b *metadata.InternalRelationshipBuilder) {
	fk := b.Metadata()
	name := fk.NavigationToPrincipalName()
	if name == "" || fk.IsRequired() {
		return
	}
	member, ok := metadata.FindMember(fk.DeclaringEntityType().GoType(), name)
	if !ok || member.Type.Kind() != reflect.Struct {
		return
	}
	b.IsRequired(true, metadata.Convention)
}
