package modeldef

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/pkg/modelbuilder"
)

// Apply configures mb from the document and returns the errors mb recorded.
// Entity types and their properties are added before base types and
// relationships so definitions may refer to each other in any order.
func (d *Document) Apply(mb *modelbuilder.ModelBuilder) error {
	builders := make(map[string]*modelbuilder.EntityTypeBuilder, len(d.Entities))
	for _, e := range d.Entities {
		eb := mb.Entity(e.Name)
		builders[e.Name] = eb
		for _, p := range e.Properties {
			applyProperty(eb, p)
		}
	}

	for _, e := range d.Entities {
		if e.Base != "" {
			builders[e.Name].HasBaseType(e.Base)
		}
	}

	for _, e := range d.Entities {
		eb := builders[e.Name]
		if e.Table != "" {
			eb.ToTable(e.Table)
		}
		if len(e.Key) > 0 {
			eb.HasKey(e.Key...)
		}
		for _, names := range e.AlternateKeys {
			eb.HasAlternateKey(names...)
		}
		for _, idx := range e.Indexes {
			ib := eb.HasIndex(idx.Properties...).IsUnique(idx.Unique)
			if idx.Name != "" {
				ib.HasDatabaseName(idx.Name)
			}
		}
		for name, value := range e.Annotations {
			eb.HasAnnotation(name, value)
		}
	}

	var errs []error
	for _, r := range d.Relationships {
		if err := applyRelationship(mb, r); err != nil {
			errs = append(errs, err)
		}
	}

	for _, e := range d.Entities {
		for _, name := range e.Ignore {
			builders[e.Name].Ignore(name)
		}
	}
	for _, name := range d.Ignore {
		mb.Ignore(name)
	}
	for name, value := range d.Annotations {
		mb.HasAnnotation(name, value)
	}

	return errors.Join(append(errs, mb.Err())...)
}

func applyProperty(eb *modelbuilder.EntityTypeBuilder, p Property) {
	goType, err := ParseType(p.Type)
	if err != nil {
		// Check already reported it
		return
	}
	pb := eb.ShadowProperty(p.Name, goType)
	if p.Required != nil {
		pb.IsRequired(*p.Required)
	}
	if p.MaxLength > 0 {
		pb.HasMaxLength(p.MaxLength)
	}
	if p.ConcurrencyToken {
		pb.IsConcurrencyToken(true)
	}
	if p.ValueGenerated != "" {
		if pattern, err := metadata.ParseStoreGeneratedPattern(p.ValueGenerated); err == nil {
			pb.ValueGenerated(pattern)
		}
	}
	if p.Column != "" {
		pb.HasColumnName(p.Column)
	}
	if p.ColumnType != "" {
		pb.HasColumnType(p.ColumnType)
	}
	if p.Default != nil {
		pb.HasDefaultValue(p.Default)
	}
	for name, value := range p.Annotations {
		pb.HasAnnotation(name, value)
	}
}

func applyRelationship(mb *modelbuilder.ModelBuilder, r Relationship) error {
	// Entity would add a missing end instead of reporting it
	for _, name := range []string{r.Principal, r.Dependent} {
		if mb.Model().FindEntityType(name) == nil {
			return fmt.Errorf("relationship %s -> %s: %w: %s", r.Dependent, r.Principal, metadata.ErrEntityTypeNotFound, name)
		}
	}

	var fk *metadata.ForeignKey
	if r.Unique {
		rb := mb.Entity(r.Dependent).HasOneTo(r.Principal, "").WithOne("")
		if len(r.ForeignKey) > 0 {
			rb.HasForeignKey(r.Dependent, r.ForeignKey...)
		}
		if len(r.PrincipalKey) > 0 {
			rb.HasPrincipalKey(r.Principal, r.PrincipalKey...)
		}
		if r.Required != nil {
			rb.IsRequired(*r.Required)
		}
		if behavior, ok := deleteBehavior(r.OnDelete); ok {
			rb.OnDelete(behavior)
		}
		for name, value := range r.Annotations {
			rb.HasAnnotation(name, value)
		}
		fk = rb.Metadata()
	} else {
		rb := mb.Entity(r.Principal).HasManyTo(r.Dependent, "").WithOne("")
		if len(r.ForeignKey) > 0 {
			rb.HasForeignKey(r.ForeignKey...)
		}
		if len(r.PrincipalKey) > 0 {
			rb.HasPrincipalKey(r.PrincipalKey...)
		}
		if r.Required != nil {
			rb.IsRequired(*r.Required)
		}
		if behavior, ok := deleteBehavior(r.OnDelete); ok {
			rb.OnDelete(behavior)
		}
		for name, value := range r.Annotations {
			rb.HasAnnotation(name, value)
		}
		fk = rb.Metadata()
	}

	if fk != nil {
		mb.Model().Logger().Debug("relationship defined", zap.Stringer("foreign_key", fk))
	}
	return nil
}

func deleteBehavior(s string) (metadata.DeleteBehavior, bool) {
	if s == "" {
		return 0, false
	}
	behavior, err := metadata.ParseDeleteBehavior(s)
	return behavior, err == nil
}
