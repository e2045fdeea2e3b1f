package relational

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge/modelforge/internal/orm/conventions"
	"github.com/modelforge/modelforge/internal/orm/metadata"
)

type Blog struct {
	Id    int
	Title string
	Posts []*Post
}

type Post struct {
	Id     int
	BlogId int
	Blog   *Blog
}

type Category struct {
	Id   int
	Name string
}

type BlogPost struct {
	Id int
}

type Subscriber struct {
	Id    int
	Email string `model:"column=email_address,type=citext"`
}

type Invoice struct {
	Id int
}

func (Invoice) TableName() string { return "billing_invoices" }

var (
	intType    = reflect.TypeOf(0)
	stringType = reflect.TypeOf("")
	boolType   = reflect.TypeOf(false)
)

func newRelationalModel(opts Options) *metadata.Model {
	return metadata.NewModel(Install(conventions.NewDefaultSet(), opts))
}

func entityOf(t *testing.T, m *metadata.Model, v any) *metadata.EntityType {
	t.Helper()
	b := m.Builder().EntityOf(reflect.TypeOf(v), metadata.Explicit)
	require.NotNil(t, b)
	return b.Metadata()
}

func shadowEntity(t *testing.T, m *metadata.Model, name string) *metadata.InternalEntityTypeBuilder {
	t.Helper()
	b := m.Builder().Entity(name, metadata.Explicit)
	require.NotNil(t, b)
	require.NotNil(t, b.Property("Id", intType, metadata.Explicit))
	_, err := b.PrimaryKey([]string{"Id"}, metadata.Explicit)
	require.NoError(t, err)
	return b
}

func TestTableNameConvention(t *testing.T) {
	tests := []struct {
		value     any
		plural    string
		singular  string
		fromTable bool
	}{
		{value: Blog{}, plural: "blogs", singular: "blog"},
		{value: Category{}, plural: "categories", singular: "category"},
		{value: BlogPost{}, plural: "blog_posts", singular: "blog_post"},
		{value: Invoice{}, plural: "billing_invoices", singular: "billing_invoices", fromTable: true},
	}

	for _, tt := range tests {
		name := reflect.TypeOf(tt.value).Name()
		t.Run(name, func(t *testing.T) {
			et := entityOf(t, newRelationalModel(DefaultOptions()), tt.value)
			assert.Equal(t, tt.plural, TableName(et))

			ann := et.FindAnnotation(TableNameAnnotation)
			require.NotNil(t, ann)
			if tt.fromTable {
				assert.Equal(t, metadata.DataAnnotation, ann.Source)
			} else {
				assert.Equal(t, metadata.Convention, ann.Source)
			}

			et = entityOf(t, newRelationalModel(Options{}), tt.value)
			assert.Equal(t, tt.singular, TableName(et))
		})
	}
}

func TestTableName_ExplicitWins(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	et := entityOf(t, m, Blog{})

	require.True(t, ToTable(et.Builder(), "weblogs", metadata.Explicit))
	assert.Equal(t, "weblogs", TableName(et))

	assert.False(t, ToTable(et.Builder(), "journal", metadata.Convention))
	assert.Equal(t, "weblogs", TableName(et))

	require.True(t, ToTable(et.Builder(), "", metadata.Explicit))
	assert.Equal(t, "Blog", TableName(et), "without a mapping the entity type name is used")
}

func TestTableName_DerivedTypesShareRootTable(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	animal := shadowEntity(t, m, "Animal")
	dog := m.Builder().Entity("Dog", metadata.Explicit)
	require.Equal(t, "dogs", TableName(dog.Metadata()))

	require.NotNil(t, dog.HasBaseType(animal.Metadata(), metadata.Explicit))
	assert.Equal(t, "animals", TableName(dog.Metadata()))

	require.NotNil(t, dog.HasBaseType(nil, metadata.Explicit))
	assert.Equal(t, "dogs", TableName(dog.Metadata()))
}

func TestColumnNameConvention(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	blog := entityOf(t, m, Blog{})
	post := m.FindEntityType("Post")
	require.NotNil(t, post)

	assert.Equal(t, "id", ColumnName(blog.FindProperty("Id")))
	assert.Equal(t, "blog_id", ColumnName(post.FindProperty("BlogId")))

	sub := entityOf(t, m, Subscriber{})
	email := sub.FindProperty("Email")
	assert.Equal(t, "email_address", ColumnName(email))
	assert.Equal(t, "citext", ColumnType(email))
	assert.Equal(t, metadata.DataAnnotation, email.FindAnnotation(ColumnNameAnnotation).Source)

	require.True(t, HasColumnName(email.Builder(), "mail", metadata.Explicit))
	assert.Equal(t, "mail", ColumnName(email))
}

func TestConstraintNames(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	blog := entityOf(t, m, Blog{})
	post := m.FindEntityType("Post")
	fk := post.DeclaredForeignKeys()[0]

	assert.Equal(t, "pk_blogs", KeyName(blog.FindPrimaryKey()))
	assert.Equal(t, "ix_posts_blog_id", IndexName(post.FindIndex(fk.Properties())))
	assert.Equal(t, "fk_posts_blogs_blog_id", ForeignKeyConstraintName(fk))

	titleKey := blog.Builder().HasKey([]string{"Title"}, metadata.Explicit)
	require.NotNil(t, titleKey)
	assert.Equal(t, "ak_blogs_title", KeyName(titleKey.Metadata()))

	require.True(t, HasKeyName(titleKey, "uq_blog_title", metadata.Explicit))
	assert.Equal(t, "uq_blog_title", KeyName(titleKey.Metadata()))

	idx := post.FindIndex(fk.Properties())
	require.True(t, HasDatabaseName(idx.Builder(), "posts_by_blog", metadata.Explicit))
	assert.Equal(t, "posts_by_blog", IndexName(idx))
}

// sharedTable maps two shadow entity types linked through their primary
// keys to one table.
func sharedTable(t *testing.T) (*metadata.Model, *metadata.InternalEntityTypeBuilder, *metadata.InternalEntityTypeBuilder) {
	t.Helper()
	m := newRelationalModel(DefaultOptions())
	order := shadowEntity(t, m, "Order")
	details := shadowEntity(t, m, "OrderDetails")

	rb, err := details.HasRelationship(order.Metadata(), "", "", metadata.Explicit)
	require.NoError(t, err)
	require.NotNil(t, rb.IsUnique(true, metadata.Explicit))
	_, err = rb.HasForeignKey([]string{"Id"}, metadata.Explicit)
	require.NoError(t, err)

	require.True(t, ToTable(order, "Table", metadata.Explicit))
	require.True(t, ToTable(details, "Table", metadata.Explicit))
	return m, order, details
}

func TestValidator_SharedTableKeyNameMismatch(t *testing.T) {
	m, order, details := sharedTable(t)

	require.True(t, HasKeyName(order.Metadata().FindPrimaryKey().Builder(), "PK_Table", metadata.Explicit))
	require.True(t, HasKeyName(details.Metadata().FindPrimaryKey().Builder(), "Key", metadata.Explicit))
	assert.False(t, m.IsFinalized(), "building never validates")

	_, err := m.Builder().FinalizeModel()
	require.ErrorIs(t, err, metadata.ErrValidation)
	var verrs *metadata.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs.Errors, 1)
	assert.Equal(t, "OrderDetails", verrs.Errors[0].EntityType)
	assert.Contains(t, verrs.Errors[0].Message, "PK_Table")
	assert.Contains(t, verrs.Errors[0].Message, "different names")

	require.True(t, HasKeyName(details.Metadata().FindPrimaryKey().Builder(), "PK_Table", metadata.Explicit))
	_, err = m.Builder().FinalizeModel()
	assert.NoError(t, err)
}

func TestValidator_SharedTableNeedsPrimaryKeyLink(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	a := shadowEntity(t, m, "Customer")
	b := shadowEntity(t, m, "Supplier")
	require.True(t, ToTable(a, "parties", metadata.Explicit))
	require.True(t, ToTable(b, "parties", metadata.Explicit))

	_, err := m.Builder().FinalizeModel()
	require.ErrorIs(t, err, metadata.ErrValidation)
	assert.Contains(t, err.Error(), "not linked by a relationship between their primary keys")
}

func TestValidator_Columns(t *testing.T) {
	t.Run("duplicate column in one entity type", func(t *testing.T) {
		m := newRelationalModel(DefaultOptions())
		b := shadowEntity(t, m, "Person")
		first := b.Property("FirstName", stringType, metadata.Explicit)
		last := b.Property("LastName", stringType, metadata.Explicit)
		require.True(t, HasColumnName(first, "name", metadata.Explicit))
		require.True(t, HasColumnName(last, "name", metadata.Explicit))

		_, err := m.Builder().FinalizeModel()
		require.ErrorIs(t, err, metadata.ErrValidation)
		assert.Contains(t, err.Error(), "both mapped to column name")
	})

	t.Run("incompatible shared column", func(t *testing.T) {
		m, order, details := sharedTable(t)
		require.NotNil(t, order.Property("Status", stringType, metadata.Explicit))
		require.NotNil(t, details.Property("Status", intType, metadata.Explicit))

		_, err := m.Builder().FinalizeModel()
		require.ErrorIs(t, err, metadata.ErrValidation)
		assert.Contains(t, err.Error(), "column status in table Table is mapped by")
	})

	t.Run("shared column without agreed type warns", func(t *testing.T) {
		m, order, details := sharedTable(t)
		status := order.Property("Status", stringType, metadata.Explicit)
		require.NotNil(t, details.Property("Status", stringType, metadata.Explicit))
		require.True(t, HasColumnType(status, "varchar(20)", metadata.Explicit))

		_, err := m.Builder().FinalizeModel()
		require.NoError(t, err)
		require.Len(t, m.Warnings(), 1)
		assert.Contains(t, m.Warnings()[0], "without an agreed column type")
	})
}

func TestValidator_IndexNames(t *testing.T) {
	m := newRelationalModel(DefaultOptions())
	b := shadowEntity(t, m, "Person")
	require.NotNil(t, b.Property("Email", stringType, metadata.Explicit))
	require.NotNil(t, b.Property("Phone", stringType, metadata.Explicit))
	email := b.HasIndex([]string{"Email"}, metadata.Explicit)
	phone := b.HasIndex([]string{"Phone"}, metadata.Explicit)
	require.True(t, HasDatabaseName(email, "ix_contact", metadata.Explicit))
	require.True(t, HasDatabaseName(phone, "ix_contact", metadata.Explicit))

	_, err := m.Builder().FinalizeModel()
	require.ErrorIs(t, err, metadata.ErrValidation)
	assert.Contains(t, err.Error(), "index name ix_contact")
}

func TestValidator_BoolDefaults(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		nullable bool
		warns    bool
	}{
		{name: "true default", value: true, warns: true},
		{name: "false default", value: false},
		{name: "no default"},
		{name: "nullable bool", value: true, nullable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRelationalModel(DefaultOptions())
			b := shadowEntity(t, m, "Feature")
			goType := boolType
			if tt.nullable {
				goType = reflect.PointerTo(boolType)
			}
			active := b.Property("Active", goType, metadata.Explicit)
			require.NotNil(t, active)
			if tt.value != nil {
				require.True(t, HasDefaultValue(active, tt.value, metadata.Explicit))
			}

			_, err := m.Builder().FinalizeModel()
			require.NoError(t, err)
			if tt.warns {
				require.Len(t, m.Warnings(), 1)
				assert.Contains(t, m.Warnings()[0], "bool property Feature.Active")
			} else {
				assert.Empty(t, m.Warnings())
			}
		})
	}
}
