package modelbuilder

import (
	"fmt"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// ReferenceNavigationBuilder is returned by HasOne and completed by WithMany or
// WithOne.
type ReferenceNavigationBuilder struct {
	mb         *ModelBuilder
	declaring  *metadata.EntityType
	target     *metadata.EntityType
	navigation string
}

// WithMany makes the relationship one-to-many with the declaring entity type as
// the dependent. inverse names the collection on the target and may be empty.
func (b *ReferenceNavigationBuilder) WithMany(inverse string) *ReferenceCollectionBuilder {
	out := &ReferenceCollectionBuilder{relationship{mb: b.mb}}
	if b.declaring == nil || !b.mb.checkNavigation(b.target, inverse, true) {
		return out
	}
	rb, err := b.declaring.Builder().HasRelationship(b.target, b.navigation, inverse, metadata.Explicit)
	out.builder = b.mb.relationshipResult(rb, err, "relationship %s.%s", b.declaring.Name(), b.navigation)
	out.isUnique(false)
	return out
}

// WithOne makes the relationship one-to-one. inverse names the reference on
// the target and may be empty. Which end is the dependent is left to
// conventions until HasForeignKey or HasPrincipalKey decides it.
func (b *ReferenceNavigationBuilder) WithOne(inverse string) *ReferenceReferenceBuilder {
	out := &ReferenceReferenceBuilder{relationship{mb: b.mb}}
	if b.declaring == nil || !b.mb.checkNavigation(b.target, inverse, false) {
		return out
	}
	var (
		rb  *metadata.InternalRelationshipBuilder
		err error
	)
	if b.declaringIsPrincipal(inverse) {
		rb, err = b.target.Builder().HasRelationship(b.declaring, inverse, b.navigation, metadata.Explicit)
	} else {
		rb, err = b.declaring.Builder().HasRelationship(b.target, b.navigation, inverse, metadata.Explicit)
	}
	out.builder = b.mb.relationshipResult(rb, err, "relationship %s.%s", b.declaring.Name(), b.navigation)
	out.isUnique(true)
	return out
}

// declaringIsPrincipal reports whether an existing relationship reached through
// either navigation already has the declaring entity type as its principal.
func (b *ReferenceNavigationBuilder) declaringIsPrincipal(inverse string) bool {
	if b.navigation != "" {
		if nav := b.declaring.FindNavigation(b.navigation); nav != nil && connects(nav.ForeignKey(), b.declaring, b.target) {
			return !nav.IsOnDependent()
		}
	}
	if inverse != "" {
		if nav := b.target.FindNavigation(inverse); nav != nil && connects(nav.ForeignKey(), b.declaring, b.target) {
			return nav.IsOnDependent()
		}
	}
	return false
}

func connects(fk *metadata.ForeignKey, a, b *metadata.EntityType) bool {
	dependent, principal := fk.DeclaringEntityType(), fk.PrincipalEntityType()
	return (dependent == a && principal == b) || (dependent == b && principal == a)
}

// CollectionNavigationBuilder is returned by HasMany and completed by WithOne.
type CollectionNavigationBuilder struct {
	mb         *ModelBuilder
	declaring  *metadata.EntityType
	target     *metadata.EntityType
	navigation string
}

// WithOne makes the relationship one-to-many with the target as the dependent.
// inverse names the reference on the target and may be empty.
func (b *CollectionNavigationBuilder) WithOne(inverse string) *ReferenceCollectionBuilder {
	out := &ReferenceCollectionBuilder{relationship{mb: b.mb}}
	if b.declaring == nil || !b.mb.checkNavigation(b.target, inverse, false) {
		return out
	}
	rb, err := b.target.Builder().HasRelationship(b.declaring, inverse, b.navigation, metadata.Explicit)
	out.builder = b.mb.relationshipResult(rb, err, "relationship %s.%s", b.declaring.Name(), b.navigation)
	out.isUnique(false)
	return out
}

// ReferenceCollectionBuilder configures a one-to-many relationship.
type ReferenceCollectionBuilder struct {
	relationship
}

// HasForeignKey sets the foreign key properties on the dependent. Names
// without a matching field become shadow properties.
func (b *ReferenceCollectionBuilder) HasForeignKey(names ...string) *ReferenceCollectionBuilder {
	b.hasForeignKey(nil, names)
	return b
}

// HasPrincipalKey sets the key on the principal the foreign key references.
func (b *ReferenceCollectionBuilder) HasPrincipalKey(names ...string) *ReferenceCollectionBuilder {
	b.hasPrincipalKey(nil, names)
	return b
}

// IsRequired sets whether every dependent must have a principal.
func (b *ReferenceCollectionBuilder) IsRequired(required bool) *ReferenceCollectionBuilder {
	b.isRequired(required)
	return b
}

// OnDelete sets what happens to dependents when the principal is deleted.
func (b *ReferenceCollectionBuilder) OnDelete(behavior DeleteBehavior) *ReferenceCollectionBuilder {
	b.onDelete(behavior)
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *ReferenceCollectionBuilder) HasAnnotation(name string, value any) *ReferenceCollectionBuilder {
	b.hasAnnotation(name, value)
	return b
}

// ReferenceReferenceBuilder configures a one-to-one relationship. Foreign and
// principal keys name the entity type they belong to, which also fixes the
// dependent end.
type ReferenceReferenceBuilder struct {
	relationship
}

// HasForeignKey makes dependent the dependent end and sets its foreign key
// properties.
func (b *ReferenceReferenceBuilder) HasForeignKey(dependent string, names ...string) *ReferenceReferenceBuilder {
	if b.builder == nil {
		return b
	}
	if et := b.mb.entityType(dependent); et != nil {
		b.hasForeignKey(et, names)
	}
	return b
}

// HasPrincipalKey makes principal the principal end and sets the referenced key.
func (b *ReferenceReferenceBuilder) HasPrincipalKey(principal string, names ...string) *ReferenceReferenceBuilder {
	if b.builder == nil {
		return b
	}
	if et := b.mb.entityType(principal); et != nil {
		b.hasPrincipalKey(et, names)
	}
	return b
}

// IsRequired sets whether every dependent must have a principal.
func (b *ReferenceReferenceBuilder) IsRequired(required bool) *ReferenceReferenceBuilder {
	b.isRequired(required)
	return b
}

// OnDelete sets what happens to the dependent when the principal is deleted.
func (b *ReferenceReferenceBuilder) OnDelete(behavior DeleteBehavior) *ReferenceReferenceBuilder {
	b.onDelete(behavior)
	return b
}

// HasAnnotation sets an annotation. A nil value removes it.
func (b *ReferenceReferenceBuilder) HasAnnotation(name string, value any) *ReferenceReferenceBuilder {
	b.hasAnnotation(name, value)
	return b
}

// relationship holds the operations shared by both relationship builders.
type relationship struct {
	mb      *ModelBuilder
	builder *metadata.InternalRelationshipBuilder
}

// Metadata returns the foreign key, or nil when the relationship was not added.
func (r *relationship) Metadata() *metadata.ForeignKey {
	if r.builder == nil {
		return nil
	}
	return r.builder.Metadata()
}

func (mb *ModelBuilder) relationshipResult(rb *metadata.InternalRelationshipBuilder, err error, format string, args ...any) *metadata.InternalRelationshipBuilder {
	if err != nil {
		mb.fail(err)
		return nil
	}
	if rb == nil {
		mb.reject(format, args...)
	}
	return rb
}

func (r *relationship) isUnique(unique bool) {
	if r.builder != nil && r.builder.IsUnique(unique, metadata.Explicit) == nil {
		r.mb.reject("uniqueness of %s", r.builder.Metadata())
	}
}

func (r *relationship) hasForeignKey(dependent *metadata.EntityType, names []string) {
	if r.builder == nil || !r.mb.checkNames("foreign key", names) {
		return
	}
	var (
		rb  *metadata.InternalRelationshipBuilder
		err error
	)
	if dependent != nil {
		rb, err = r.builder.HasForeignKeyOn(dependent, names, metadata.Explicit)
	} else {
		rb, err = r.builder.HasForeignKey(names, metadata.Explicit)
	}
	r.mb.relationshipResult(rb, err, "foreign key %v of %s", names, r.builder.Metadata())
}

func (r *relationship) hasPrincipalKey(principal *metadata.EntityType, names []string) {
	if r.builder == nil || !r.mb.checkNames("principal key", names) {
		return
	}
	target := principal
	if target == nil {
		target = r.builder.Metadata().PrincipalEntityType()
	}
	for _, name := range names {
		if target.FindProperty(name) == nil {
			if _, ok := metadata.FindMember(target.GoType(), name); !ok {
				r.mb.fail(fmt.Errorf("%w: %s.%s", metadata.ErrPropertyNotFound, target.Name(), name))
				return
			}
		}
	}
	var (
		rb  *metadata.InternalRelationshipBuilder
		err error
	)
	if principal != nil {
		rb, err = r.builder.HasPrincipalKeyOn(principal, names, metadata.Explicit)
	} else {
		rb, err = r.builder.HasPrincipalKey(names, metadata.Explicit)
	}
	r.mb.relationshipResult(rb, err, "principal key %v of %s", names, r.builder.Metadata())
}

func (r *relationship) isRequired(required bool) {
	if r.builder != nil && r.builder.IsRequired(required, metadata.Explicit) == nil {
		r.mb.reject("required=%t on %s", required, r.builder.Metadata())
	}
}

func (r *relationship) onDelete(behavior DeleteBehavior) {
	if r.builder != nil && r.builder.OnDelete(behavior, metadata.Explicit) == nil {
		r.mb.reject("delete behavior %s on %s", behavior, r.builder.Metadata())
	}
}

func (r *relationship) hasAnnotation(name string, value any) {
	if r.builder == nil {
		return
	}
	if name == "" {
		r.mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return
	}
	if r.builder.HasAnnotation(name, value, metadata.Explicit) == nil {
		r.mb.reject("annotation %s on %s", name, r.builder.Metadata())
	}
}
