package modelbuilder

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/modelforge/modelforge/internal/orm/metadata"
	"github.com/modelforge/modelforge/internal/orm/relational"
)

type Tag struct {
	Id   int
	Name string
}

type Blog struct {
	Id    int
	Name  string
	Posts []*Post
}

type Post struct {
	Id     int
	Title  string
	BlogId int
	Blog   *Blog
}

type User struct {
	Id      int
	Email   string
	Profile *Profile
}

type Profile struct {
	Id     int
	UserId int
	User   *User
}

type Product struct {
	Id  int
	Sku string
}

type LineItem struct {
	Id         int
	ProductSku string
	Product    *Product
}

var intType = reflect.TypeOf(0)

func propertyNames(props []*metadata.Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name()
	}
	return names
}

func TestConventionKey(t *testing.T) {
	mb := DefaultFactory{}.Create()
	tag := Entity[Tag](mb)

	pk := tag.Metadata().FindPrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, []string{"Id"}, propertyNames(pk.Properties()))
	assert.Equal(t, metadata.Convention, tag.Metadata().PrimaryKeySource())
	assert.Same(t, tag.Metadata(), mb.EntityOf(reflect.TypeOf(&Tag{})).Metadata())
}

func TestExplicitKeyBeatsConvention(t *testing.T) {
	mb := DefaultFactory{}.Create()
	tag := Entity[Tag](mb)
	tag.HasKey("Name")
	require.NoError(t, mb.Err())

	m, err := mb.FinalizeModel()
	require.NoError(t, err)
	et := m.FindEntityType("Tag")
	assert.Equal(t, []string{"Name"}, propertyNames(et.FindPrimaryKey().Properties()))
	assert.Equal(t, metadata.Explicit, et.PrimaryKeySource())
	id := et.FindProperty("Id")
	require.NotNil(t, id)
	assert.False(t, id.IsPrimaryKey())
	assert.Len(t, et.Keys(), 1)
}

func TestHasMany_WithOne(t *testing.T) {
	mb := DefaultFactory{}.Create()
	rel := Entity[Blog](mb).
		HasMany("Posts").
		WithOne("Blog").
		HasForeignKey("BlogId").
		OnDelete(DeleteRestrict).
		IsRequired(true)
	require.NoError(t, mb.Err())

	fk := rel.Metadata()
	require.NotNil(t, fk)
	assert.Equal(t, "Post", fk.DeclaringEntityType().Name())
	assert.Equal(t, "Blog", fk.PrincipalEntityType().Name())
	assert.Equal(t, []string{"BlogId"}, propertyNames(fk.Properties()))
	assert.Equal(t, metadata.Explicit, fk.PropertiesSource())
	assert.Equal(t, DeleteRestrict, fk.DeleteBehavior())
	assert.False(t, fk.IsUnique())
	assert.Equal(t, "Blog", fk.NavigationToPrincipalName())
	assert.Equal(t, "Posts", fk.NavigationToDependentName())
	assert.Len(t, mb.Model().FindEntityType("Post").ForeignKeys(), 1)
}

func TestHasOne_WithMany_ShadowForeignKey(t *testing.T) {
	mb := DefaultFactory{}.Create()
	rel := Entity[Post](mb).HasOne("Blog").WithMany("Posts").HasForeignKey("OwnerId")
	require.NoError(t, mb.Err())

	fk := rel.Metadata()
	assert.Equal(t, []string{"OwnerId"}, propertyNames(fk.Properties()))
	post := mb.Model().FindEntityType("Post")
	owner := post.FindProperty("OwnerId")
	require.NotNil(t, owner)
	assert.True(t, owner.IsShadow())
	assert.False(t, post.FindProperty("BlogId").IsForeignKey())
}

// Configuring the same navigation one-to-one after one-to-many drops the
// collection on the principal.
func TestWithOne_ReplacesCollection(t *testing.T) {
	mb := DefaultFactory{}.Create()
	post := Entity[Post](mb)
	post.HasOne("Blog").WithMany("Posts")
	post.HasOne("Blog").WithOne("")
	require.NoError(t, mb.Err())

	fk := post.Metadata().FindNavigation("Blog").ForeignKey()
	assert.True(t, fk.IsUnique())
	assert.Equal(t, "Post", fk.DeclaringEntityType().Name())
	assert.Empty(t, fk.NavigationToDependentName())
	blog := mb.Model().FindEntityType("Blog")
	assert.Nil(t, blog.FindNavigation("Posts"))
	assert.True(t, blog.IsIgnored("Posts", metadata.DataAnnotation))

	_, err := mb.FinalizeModel()
	require.NoError(t, err)
}

func TestWithOne_KeepsDiscoveredDependent(t *testing.T) {
	mb := DefaultFactory{}.Create()
	rel := Entity[User](mb).HasOne("Profile").WithOne("User").HasForeignKey("Profile", "UserId")
	require.NoError(t, mb.Err())

	fk := rel.Metadata()
	assert.Equal(t, "Profile", fk.DeclaringEntityType().Name())
	assert.Equal(t, []string{"UserId"}, propertyNames(fk.Properties()))
	assert.Equal(t, metadata.Explicit, fk.PropertiesSource())
	assert.Equal(t, "Profile", fk.NavigationToDependentName())
	assert.Nil(t, mb.Model().FindEntityType("User").FindProperty("ProfileId"))
}

func TestWithOne_InvertingExplicitForeignKeyConflicts(t *testing.T) {
	mb := DefaultFactory{}.Create()
	user := Entity[User](mb)
	user.HasOne("Profile").WithOne("User").HasForeignKey("Profile", "UserId")
	require.NoError(t, mb.Err())

	user.HasOne("Profile").WithOne("User").HasForeignKey("User", "ProfileId")
	err := mb.Err()
	require.Error(t, err)
	assert.True(t, metadata.IsConflict(err))

	_, err = mb.FinalizeModel()
	assert.True(t, metadata.IsConflict(err))
	assert.False(t, mb.Model().IsFinalized())
}

func TestHasPrincipalKey(t *testing.T) {
	mb := DefaultFactory{}.Create()
	rel := Entity[LineItem](mb).
		HasOne("Product").
		WithMany("").
		HasPrincipalKey("Sku").
		HasForeignKey("ProductSku")
	require.NoError(t, mb.Err())

	fk := rel.Metadata()
	assert.Equal(t, []string{"Sku"}, propertyNames(fk.PrincipalKey().Properties()))
	assert.Equal(t, []string{"ProductSku"}, propertyNames(fk.Properties()))
	assert.False(t, fk.PrincipalKey().IsPrimaryKey())

	_, err := mb.FinalizeModel()
	require.NoError(t, err)
}

func TestPropertyBuilder(t *testing.T) {
	mb := DefaultFactory{Relational: &RelationalOptions{PluralizeTables: true}}.Create()
	tag := Entity[Tag](mb).ToTable("labels")
	name := tag.Property("Name").
		HasMaxLength(40).
		IsConcurrencyToken(true).
		HasColumnName("label").
		HasColumnType("citext").
		HasDefaultValue("untitled").
		HasAnnotation("Search:Weight", 2)
	tag.Property("Id").ValueGenerated(ValueGeneratedNever)
	tag.HasKey("Id").HasKeyName("labels_pkey")
	tag.HasIndex("Name").IsUnique(true).HasDatabaseName("labels_name_key")
	require.NoError(t, mb.Err())

	p := name.Metadata()
	assert.Equal(t, 40, p.MaxLength())
	assert.Equal(t, metadata.Explicit, p.MaxLengthSource())
	assert.True(t, p.IsConcurrencyToken())
	assert.Equal(t, "label", relational.ColumnName(p))
	assert.Equal(t, "citext", relational.ColumnType(p))
	value, ok := relational.DefaultValue(p)
	assert.True(t, ok)
	assert.Equal(t, "untitled", value)
	assert.Equal(t, 2, p.AnnotationValue("Search:Weight"))

	et := tag.Metadata()
	assert.Equal(t, "labels", relational.TableName(et))
	assert.Equal(t, metadata.StoreGeneratedNone, et.FindProperty("Id").ValueGenerated())
	assert.Equal(t, "labels_pkey", relational.KeyName(et.FindPrimaryKey()))
	idx := et.FindIndex([]*metadata.Property{p})
	require.NotNil(t, idx)
	assert.True(t, idx.IsUnique())
	assert.Equal(t, "labels_name_key", relational.IndexName(idx))
}

func TestIsRequired_NonNullableTypeConflicts(t *testing.T) {
	mb := DefaultFactory{}.Create()
	Entity[Tag](mb).Property("Name").IsRequired(false)

	assert.True(t, metadata.IsConflict(mb.Err()))
}

func TestShadowEntityType(t *testing.T) {
	mb := DefaultFactory{}.Create()
	audit := mb.Entity("AuditEntry")
	audit.ShadowProperty("Id", intType)
	audit.ShadowProperty("Action", reflect.TypeOf("")).HasMaxLength(32)
	audit.HasOneTo("Tag", "")
	require.Error(t, mb.Err(), "Tag is not in the model yet")

	mb = DefaultFactory{}.Create()
	Entity[Tag](mb)
	audit = mb.Entity("AuditEntry")
	audit.ShadowProperty("Id", intType)
	rel := audit.HasOneTo("Tag", "").WithMany("")
	require.NoError(t, mb.Err())

	fk := rel.Metadata()
	assert.Equal(t, "AuditEntry", fk.DeclaringEntityType().Name())
	assert.Equal(t, []string{"TagId"}, propertyNames(fk.Properties()))
	assert.Equal(t, []string{"Id"}, propertyNames(audit.Metadata().FindPrimaryKey().Properties()))
}

func TestIgnore(t *testing.T) {
	mb := DefaultFactory{}.Create()
	blog := Entity[Blog](mb)
	require.NotNil(t, mb.Model().FindEntityType("Post"))

	mb.Ignore("Post")
	require.NoError(t, mb.Err())
	assert.Nil(t, mb.Model().FindEntityType("Post"))
	assert.Nil(t, blog.Metadata().FindNavigation("Posts"))

	blog.Ignore("Name")
	assert.Nil(t, blog.Metadata().FindProperty("Name"))

	mb.IgnoreType(reflect.TypeOf(Tag{}))
	assert.True(t, mb.Model().IsIgnored("Tag", metadata.DataAnnotation))
	require.NoError(t, mb.Err())
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name      string
		configure func(mb *ModelBuilder)
		want      error
	}{
		{"empty entity name", func(mb *ModelBuilder) { mb.Entity("") }, metadata.ErrInvalidArgument},
		{"non-struct type", func(mb *ModelBuilder) { mb.EntityOf(intType) }, metadata.ErrInvalidArgument},
		{"missing property", func(mb *ModelBuilder) { Entity[Tag](mb).Property("Missing") }, metadata.ErrPropertyNotFound},
		{"empty key", func(mb *ModelBuilder) { Entity[Tag](mb).HasKey() }, metadata.ErrInvalidArgument},
		{"repeated index property", func(mb *ModelBuilder) { Entity[Tag](mb).HasIndex("Name", "Name") }, metadata.ErrInvalidArgument},
		{"key on missing property", func(mb *ModelBuilder) { Entity[Tag](mb).HasAlternateKey("Code") }, metadata.ErrPropertyNotFound},
		{"scalar as navigation", func(mb *ModelBuilder) { Entity[Post](mb).HasOne("Title") }, metadata.ErrInvalidArgument},
		{"collection as reference", func(mb *ModelBuilder) { Entity[Blog](mb).HasOne("Posts") }, metadata.ErrInvalidArgument},
		{"reference as collection", func(mb *ModelBuilder) { Entity[Post](mb).HasMany("Blog") }, metadata.ErrInvalidArgument},
		{"wrong inverse shape", func(mb *ModelBuilder) { Entity[Post](mb).HasOne("Blog").WithOne("Posts") }, metadata.ErrInvalidArgument},
		{"unknown target", func(mb *ModelBuilder) { Entity[Post](mb).HasOneTo("Missing", "") }, metadata.ErrEntityTypeNotFound},
		{"unknown base type", func(mb *ModelBuilder) { Entity[Tag](mb).HasBaseType("Missing") }, metadata.ErrEntityTypeNotFound},
		{"shadow property shadows a field", func(mb *ModelBuilder) { Entity[Tag](mb).ShadowProperty("Name", intType) }, metadata.ErrInvalidArgument},
		{"navigation on shadow entity", func(mb *ModelBuilder) { mb.Entity("Audit").HasOne("Tag") }, metadata.ErrInvalidArgument},
		{"zero max length", func(mb *ModelBuilder) { Entity[Tag](mb).Property("Name").HasMaxLength(0) }, metadata.ErrInvalidArgument},
		{"empty annotation name", func(mb *ModelBuilder) { mb.HasAnnotation("", 1) }, metadata.ErrInvalidArgument},
		{"empty foreign key", func(mb *ModelBuilder) { Entity[Post](mb).HasOne("Blog").WithMany("Posts").HasForeignKey() }, metadata.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := DefaultFactory{}.Create()
			tt.configure(mb)

			require.Len(t, mb.errs, 1)
			assert.ErrorIs(t, mb.Err(), tt.want)

			m, err := mb.FinalizeModel()
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, mb.Model().IsFinalized())
		})
	}
}

func TestChainAfterErrorIsNoop(t *testing.T) {
	mb := DefaultFactory{}.Create()
	mb.Entity("").
		Property("Name").
		IsRequired(true).
		HasMaxLength(10)
	mb.Entity("").HasOne("Blog").WithMany("Posts").HasForeignKey("BlogId").OnDelete(DeleteCascade)

	assert.Len(t, mb.errs, 2)
	assert.Empty(t, mb.Model().EntityTypes())
}

func TestFinalizedModelIsReadOnly(t *testing.T) {
	mb := DefaultFactory{}.Create()
	tag := Entity[Tag](mb)
	_, err := mb.FinalizeModel()
	require.NoError(t, err)

	tag.Property("Name").HasMaxLength(10)
	assert.ErrorIs(t, mb.Err(), metadata.ErrModelReadOnly)
	assert.Equal(t, -1, tag.Metadata().FindProperty("Name").MaxLength())

	mb.Entity("Other")
	assert.Nil(t, mb.Model().FindEntityType("Other"))
}

func TestDefaultFactory(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := DefaultFactory{
		Disabled:   []string{"RelationshipDiscovery"},
		Relational: &RelationalOptions{},
		Logger:     zap.New(core),
	}

	names := f.Conventions().Names()
	assert.NotContains(t, names, "RelationshipDiscovery")
	assert.Contains(t, names, "TableName")

	mb := f.Create()
	blog := Entity[Blog](mb)
	assert.Nil(t, mb.Model().FindEntityType("Post"))
	assert.Equal(t, "blog", relational.TableName(blog.Metadata()))

	_, err := mb.FinalizeModel()
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("model finalized").Len())

	var _ Factory = f
}
