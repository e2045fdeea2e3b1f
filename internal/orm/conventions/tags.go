package conventions

import (
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// TagName is the struct tag read by TagConvention.
const TagName = "model"

// TagOptions holds the parsed options of a `model:"..."` struct tag. Flags
// appear as bare words, values as key=value.
type TagOptions map[string]string

// ParseTag parses the model tag of a struct field.
func ParseTag(f reflect.StructField) TagOptions {
	opts := TagOptions{}
	raw, ok := f.Tag.Lookup(TagName)
	if !ok {
		return opts
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		opts[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return opts
}

// Has reports whether the flag or key is present
func (o TagOptions) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Get returns the value of key
func (o TagOptions) Get(key string) (string, bool) {
	v, ok := o[key]
	return v, ok
}

// TagConvention applies struct tags as data annotations:
//
//	model:"-"                     ignore the field
//	model:"key"                   primary key member, in field order
//	model:"required"              non-nullable
//	model:"maxlen=64"             maximum length
//	model:"concurrency"           concurrency token
//	model:"index" / "unique"      single-property index
//	model:"generated=on_add"      value generation
type TagConvention struct{}

// Name implements metadata.ConventionRule
func (*TagConvention) Name() string { return "TagConvention" }

// ProcessEntityTypeAdded implements metadata.EntityTypeAddedConvention
func (c *TagConvention) ProcessEntityTypeAdded(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.IsShadow() {
		return
	}
	for _, f := range metadata.ExportedMembers(et.GoType()) {
		if metadata.IgnoredByTag(f) && et.FindIgnoredSource(f.Name) == metadata.NoSource {
			b.Ignore(f.Name, metadata.DataAnnotation)
		}
	}
	c.applyKey(b)
}

// ProcessPropertyAdded implements metadata.PropertyAddedConvention
func (c *TagConvention) ProcessPropertyAdded(b *metadata.InternalPropertyBuilder) {
	p := b.Metadata()
	et := p.DeclaringEntityType()
	if p.IsShadow() || et.IsShadow() {
		return
	}
	f, ok := metadata.FindMember(et.GoType(), p.Name())
	if !ok {
		return
	}
	opts := ParseTag(f)
	if len(opts) == 0 {
		return
	}
	logger := et.Model().Logger()

	if opts.Has("required") {
		b.IsRequired(true, metadata.DataAnnotation)
	}
	if opts.Has("optional") {
		b.IsRequired(false, metadata.DataAnnotation)
	}
	if v, ok := opts.Get("maxlen"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("invalid maxlen tag", zap.String("property", p.String()), zap.String("value", v))
		} else {
			b.HasMaxLength(n, metadata.DataAnnotation)
		}
	}
	if opts.Has("concurrency") {
		b.IsConcurrencyToken(true, metadata.DataAnnotation)
	}
	if v, ok := opts.Get("generated"); ok {
		pattern, err := metadata.ParseStoreGeneratedPattern(v)
		if err != nil {
			logger.Warn("invalid generated tag", zap.String("property", p.String()), zap.Error(err))
		} else {
			b.ValueGenerated(pattern, metadata.DataAnnotation)
		}
	}
	if opts.Has("index") || opts.Has("unique") {
		if ib := et.Builder().HasIndexOn([]*metadata.Property{p}, metadata.DataAnnotation); ib != nil && opts.Has("unique") {
			ib.IsUnique(true, metadata.DataAnnotation)
		}
	}
	if opts.Has("key") {
		c.applyKey(et.Builder())
	}
}

// applyKey sets the primary key once every key-tagged field is a property.
func (c *TagConvention) applyKey(b *metadata.InternalEntityTypeBuilder) {
	et := b.Metadata()
	if et.BaseType() != nil {
		return
	}
	var props []*metadata.Property
	for _, f := range metadata.ExportedMembers(et.GoType()) {
		if !ParseTag(f).Has("key") {
			continue
		}
		p := et.FindDeclaredProperty(f.Name)
		if p == nil {
			return
		}
		props = append(props, p)
	}
	if len(props) == 0 {
		return
	}
	if pk := et.FindPrimaryKey(); pk != nil && sameProperties(pk.Properties(), props) &&
		!metadata.DataAnnotation.OverridesStrictly(et.PrimaryKeySource()) {
		return
	}
	b.PrimaryKeyOn(props, metadata.DataAnnotation)
}
