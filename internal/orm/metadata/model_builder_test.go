package metadata

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intType       = reflect.TypeOf(0)
	stringType    = reflect.TypeOf("")
	stringPtrType = reflect.TypeOf((*string)(nil))
	intPtrType    = reflect.TypeOf((*int)(nil))
)

// newShadowEntity adds a shadow entity type with an int primary key named Id.
func newShadowEntity(t *testing.T, mb *InternalModelBuilder, name string) *InternalEntityTypeBuilder {
	t.Helper()
	b := mb.Entity(name, Explicit)
	require.NotNil(t, b)
	require.NotNil(t, b.Property("Id", intType, Explicit))
	_, err := b.PrimaryKey([]string{"Id"}, Explicit)
	require.NoError(t, err)
	return b
}

func TestModelBuilder_EntityIsIdempotent(t *testing.T) {
	mb := NewModel(nil).Builder()

	first := mb.Entity("Blog", Convention)
	require.NotNil(t, first)
	second := mb.Entity("Blog", Explicit)

	assert.Same(t, first, second)
	assert.Equal(t, Explicit, first.Metadata().ConfigurationSource())
	assert.Len(t, mb.Metadata().EntityTypes(), 1)
}

func TestModelBuilder_EntityOfUsesGoTypeName(t *testing.T) {
	type invoice struct {
		Id    int
		Total float64
	}
	mb := NewModel(nil).Builder()

	b := mb.EntityOf(reflect.TypeOf(&invoice{}), Explicit)
	require.NotNil(t, b)
	assert.Equal(t, "invoice", b.Metadata().Name())
	assert.Equal(t, reflect.TypeOf(invoice{}), b.Metadata().GoType())
	assert.False(t, b.Metadata().IsShadow())
	assert.Same(t, b.Metadata(), mb.Metadata().FindEntityTypeByGoType(reflect.TypeOf(invoice{})))

	assert.Nil(t, mb.EntityOf(reflect.TypeOf(0), Explicit))
}

func TestModelBuilder_Ignore(t *testing.T) {
	tests := []struct {
		name        string
		ignoreWith  ConfigurationSource
		addWith     ConfigurationSource
		wantAdded   bool
		wantIgnored ConfigurationSource
	}{
		{"convention ignore is soft", Convention, Convention, true, NoSource},
		{"data annotation ignore blocks convention", DataAnnotation, Convention, false, DataAnnotation},
		{"explicit ignore blocks data annotation", Explicit, DataAnnotation, false, Explicit},
		{"explicit add lifts explicit ignore", Explicit, Explicit, true, NoSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := NewModel(nil).Builder()
			require.NotNil(t, mb.Entity("Blog", Convention))

			assert.True(t, mb.Ignore("Blog", tt.ignoreWith))
			assert.Nil(t, mb.Metadata().FindEntityType("Blog"))

			added := mb.Entity("Blog", tt.addWith)
			assert.Equal(t, tt.wantAdded, added != nil)
			assert.Equal(t, tt.wantIgnored, mb.Metadata().FindIgnoredSource("Blog"))
		})
	}
}

func TestModelBuilder_IgnoreRejectsLowerSource(t *testing.T) {
	mb := NewModel(nil).Builder()
	require.NotNil(t, mb.Entity("Blog", Explicit))

	assert.False(t, mb.Ignore("Blog", Convention))
	assert.NotNil(t, mb.Metadata().FindEntityType("Blog"))
}

func TestModelBuilder_RemoveEntityTypeDropsRelationships(t *testing.T) {
	mb := NewModel(nil).Builder()
	blog := newShadowEntity(t, mb, "Blog")
	post := newShadowEntity(t, mb, "Post")

	rb, err := post.HasRelationship(blog.Metadata(), "Blog", "Posts", Explicit)
	require.NoError(t, err)
	require.NotNil(t, rb)
	fk := rb.Metadata()

	assert.True(t, mb.RemoveEntityType(blog.Metadata(), Explicit))
	assert.False(t, fk.IsInModel())
	assert.Empty(t, post.Metadata().ForeignKeys())
	assert.Nil(t, post.Metadata().FindNavigation("Blog"))
}

func TestModelBuilder_HasAnnotation(t *testing.T) {
	mb := NewModel(nil).Builder()

	assert.True(t, mb.HasAnnotation("schema", "app", Explicit))
	assert.False(t, mb.HasAnnotation("schema", "other", Convention))
	assert.Equal(t, "app", mb.Metadata().AnnotationValue("schema"))

	assert.True(t, mb.HasAnnotation("schema", nil, Explicit))
	assert.Nil(t, mb.Metadata().FindAnnotation("schema"))
}

func TestEntityTypeBuilder_PropertyFacetArbitration(t *testing.T) {
	mb := NewModel(nil).Builder()
	pb := mb.Entity("Post", Explicit).Property("Title", stringType, Explicit)
	require.NotNil(t, pb)

	steps := []struct {
		value  int
		source ConfigurationSource
		wantOK bool
		want   int
	}{
		{100, Convention, true, 100},
		{200, DataAnnotation, true, 200},
		{50, Convention, false, 200},
		{200, Convention, true, 200},
		{300, Explicit, true, 300},
		{10, DataAnnotation, false, 300},
	}

	for _, step := range steps {
		got := pb.HasMaxLength(step.value, step.source)
		assert.Equal(t, step.wantOK, got != nil, "HasMaxLength(%d, %s)", step.value, step.source)
		assert.Equal(t, step.want, pb.Metadata().MaxLength())
	}
	assert.Equal(t, Explicit, pb.Metadata().MaxLengthSource())
}

func TestEntityTypeBuilder_ShadowPropertyNeedsType(t *testing.T) {
	b := NewModel(nil).Builder().Entity("Post", Explicit)

	assert.Nil(t, b.Property("Title", nil, Explicit))

	pb := b.Property("Title", stringType, Convention)
	require.NotNil(t, pb)
	assert.True(t, pb.Metadata().IsShadow())
	assert.Equal(t, Convention, pb.Metadata().ConfigurationSource())

	// Finding again raises the source.
	assert.Same(t, pb, b.Property("Title", nil, Explicit))
	assert.Equal(t, Explicit, pb.Metadata().ConfigurationSource())
}

func TestEntityTypeBuilder_IgnoreMember(t *testing.T) {
	b := NewModel(nil).Builder().Entity("Post", Explicit)
	require.NotNil(t, b.Property("Notes", stringType, Convention))

	assert.True(t, b.Ignore("Notes", Convention))
	assert.Nil(t, b.Metadata().FindProperty("Notes"))
	assert.NotNil(t, b.Property("Notes", stringType, Convention), "convention ignore is soft")

	assert.True(t, b.Ignore("Notes", DataAnnotation))
	assert.True(t, b.Metadata().IsIgnored("Notes", Convention))
	assert.Nil(t, b.Property("Notes", stringType, Convention))

	assert.NotNil(t, b.Property("Notes", stringType, DataAnnotation))
	assert.Equal(t, NoSource, b.Metadata().FindIgnoredSource("Notes"))
}

func TestEntityTypeBuilder_IgnoreRejectsLowerSource(t *testing.T) {
	b := NewModel(nil).Builder().Entity("Post", Explicit)
	require.NotNil(t, b.Property("Title", stringType, Explicit))

	assert.False(t, b.Ignore("Title", Convention))
	assert.NotNil(t, b.Metadata().FindProperty("Title"))
}

func TestEntityTypeBuilder_PrimaryKey(t *testing.T) {
	t.Run("explicit key replaces convention key", func(t *testing.T) {
		b := NewModel(nil).Builder().Entity("Order", Explicit)
		require.NotNil(t, b.Property("Id", intType, Convention))
		require.NotNil(t, b.Property("Number", stringType, Explicit))

		conventionKey, err := b.PrimaryKey([]string{"Id"}, Convention)
		require.NoError(t, err)
		require.NotNil(t, conventionKey)

		explicitKey, err := b.PrimaryKey([]string{"Number"}, Explicit)
		require.NoError(t, err)
		require.NotNil(t, explicitKey)

		et := b.Metadata()
		assert.Same(t, explicitKey.Metadata(), et.FindPrimaryKey())
		assert.False(t, conventionKey.Metadata().IsInModel())
		assert.Len(t, et.DeclaredKeys(), 1)
		assert.Equal(t, StateKeyed, et.State())
	})

	t.Run("convention cannot replace explicit key", func(t *testing.T) {
		b := NewModel(nil).Builder().Entity("Order", Explicit)
		require.NotNil(t, b.Property("Id", intType, Convention))
		require.NotNil(t, b.Property("Number", stringType, Explicit))

		_, err := b.PrimaryKey([]string{"Number"}, Explicit)
		require.NoError(t, err)

		kb, err := b.PrimaryKey([]string{"Id"}, Convention)
		assert.NoError(t, err)
		assert.Nil(t, kb)
		assert.Equal(t, "Number", b.Metadata().FindPrimaryKey().Properties()[0].Name())
	})

	t.Run("optional property conflicts", func(t *testing.T) {
		b := NewModel(nil).Builder().Entity("Order", Explicit)
		pb := b.Property("Code", stringPtrType, Explicit)
		require.NotNil(t, pb)
		_, err := pb.IsRequired(false, Explicit)
		require.NoError(t, err)

		kb, err := b.PrimaryKey([]string{"Code"}, Explicit)
		assert.Nil(t, kb)
		assert.True(t, IsConflict(err))

		kb, err = b.PrimaryKey([]string{"Code"}, Convention)
		assert.Nil(t, kb)
		assert.NoError(t, err)
	})

	t.Run("remove primary key", func(t *testing.T) {
		b := NewModel(nil).Builder().Entity("Order", Explicit)
		require.NotNil(t, b.Property("Id", intType, Explicit))
		_, err := b.PrimaryKey([]string{"Id"}, Explicit)
		require.NoError(t, err)

		assert.False(t, b.RemovePrimaryKey(Convention))
		assert.True(t, b.RemovePrimaryKey(Explicit))
		assert.Nil(t, b.Metadata().FindPrimaryKey())
		assert.Empty(t, b.Metadata().DeclaredKeys())
		assert.Equal(t, StateProvisional, b.Metadata().State())
	})
}

func TestPropertyBuilder_IsRequired(t *testing.T) {
	b := NewModel(nil).Builder().Entity("Order", Explicit)
	count := b.Property("Count", intType, Explicit)
	note := b.Property("Note", stringPtrType, Explicit)
	require.NotNil(t, count)
	require.NotNil(t, note)

	_, err := count.IsRequired(false, Explicit)
	assert.True(t, IsConflict(err))

	pb, err := count.IsRequired(false, Convention)
	assert.NoError(t, err)
	assert.Nil(t, pb)

	assert.True(t, note.Metadata().IsNullable())
	_, err = note.IsRequired(true, DataAnnotation)
	require.NoError(t, err)
	assert.False(t, note.Metadata().IsNullable())

	pb, err = note.IsRequired(false, Convention)
	assert.NoError(t, err)
	assert.Nil(t, pb)
	assert.False(t, note.Metadata().IsNullable())
}

func TestEntityTypeBuilder_HasBaseType(t *testing.T) {
	mb := NewModel(nil).Builder()
	animal := newShadowEntity(t, mb, "Animal")
	dog := mb.Entity("Dog", Explicit)
	require.NotNil(t, dog.Property("Id", intType, Convention))
	require.NotNil(t, dog.Property("Breed", stringType, Explicit))

	require.NotNil(t, dog.HasBaseType(animal.Metadata(), Explicit))

	assert.Same(t, animal.Metadata(), dog.Metadata().BaseType())
	assert.Nil(t, dog.Metadata().FindDeclaredProperty("Id"))
	assert.Same(t, animal.Metadata().FindProperty("Id"), dog.Metadata().FindProperty("Id"))
	assert.Same(t, animal.Metadata().FindPrimaryKey(), dog.Metadata().FindPrimaryKey())
	assert.Equal(t, []*EntityType{dog.Metadata()}, animal.Metadata().DerivedTypes())

	// A hierarchy cannot contain a cycle.
	assert.Nil(t, animal.HasBaseType(dog.Metadata(), Explicit))

	// Keys belong to the root.
	_, err := dog.PrimaryKey([]string{"Breed"}, Explicit)
	assert.NoError(t, err)
	assert.Same(t, animal.Metadata().FindPrimaryKey(), dog.Metadata().FindPrimaryKey())
}

func TestEntityTypeBuilder_PropertyMovesToBaseType(t *testing.T) {
	mb := NewModel(nil).Builder()
	animal := newShadowEntity(t, mb, "Animal")
	dog := mb.Entity("Dog", Explicit)
	require.NotNil(t, dog.HasBaseType(animal.Metadata(), Explicit))
	require.NotNil(t, dog.Property("Name", stringType, Explicit))

	assert.Nil(t, animal.Property("Name", stringType, Convention))
	assert.NotNil(t, dog.Metadata().FindDeclaredProperty("Name"))

	require.NotNil(t, animal.Property("Name", stringType, Explicit))
	assert.Nil(t, dog.Metadata().FindDeclaredProperty("Name"))
	assert.Same(t, animal.Metadata().FindDeclaredProperty("Name"), dog.Metadata().FindProperty("Name"))
}

func TestEntityTypeBuilder_KeysAndIndexesAreUniquePerPropertyList(t *testing.T) {
	tests := []struct {
		name       string
		first      []string
		second     []string
		wantCount  int
		wantSource ConfigurationSource
	}{
		{"same list raises source", []string{"Region", "Number"}, []string{"Region", "Number"}, 1, Explicit},
		{"reordered list is distinct", []string{"Region", "Number"}, []string{"Number", "Region"}, 2, Convention},
		{"prefix is distinct", []string{"Region", "Number"}, []string{"Region"}, 2, Convention},
	}

	newOrder := func(t *testing.T) *InternalEntityTypeBuilder {
		b := NewModel(nil).Builder().Entity("Order", Explicit)
		require.NotNil(t, b.Property("Region", stringType, Explicit))
		require.NotNil(t, b.Property("Number", intType, Explicit))
		return b
	}

	for _, tt := range tests {
		t.Run("key "+tt.name, func(t *testing.T) {
			b := newOrder(t)
			first := b.HasKey(tt.first, Convention)
			require.NotNil(t, first)
			second := b.HasKey(tt.second, Explicit)
			require.NotNil(t, second)

			assert.Len(t, b.Metadata().DeclaredKeys(), tt.wantCount)
			assert.Equal(t, tt.wantSource, first.Metadata().ConfigurationSource())
			assert.Equal(t, tt.wantCount == 1, first.Metadata() == second.Metadata())
		})

		t.Run("index "+tt.name, func(t *testing.T) {
			b := newOrder(t)
			first := b.HasIndex(tt.first, Convention)
			require.NotNil(t, first)
			second := b.HasIndex(tt.second, Explicit)
			require.NotNil(t, second)

			assert.Len(t, b.Metadata().DeclaredIndexes(), tt.wantCount)
			assert.Equal(t, tt.wantSource, first.Metadata().ConfigurationSource())
			assert.Equal(t, tt.wantCount == 1, first.Metadata() == second.Metadata())
		})
	}

	t.Run("repeated property is rejected", func(t *testing.T) {
		b := newOrder(t)
		assert.Nil(t, b.HasKey([]string{"Region", "Region"}, Explicit))
		assert.Nil(t, b.HasIndex([]string{"Number", "Number"}, Explicit))
		assert.Empty(t, b.Metadata().DeclaredKeys())
		assert.Empty(t, b.Metadata().DeclaredIndexes())
	})
}

func TestEntityTypeBuilder_PropertyNamesAreUniqueInHierarchy(t *testing.T) {
	tests := []struct {
		name          string
		derivedSource ConfigurationSource
		baseSource    ConfigurationSource
		wantMoved     bool
	}{
		{"lower source on base is rejected", Explicit, Convention, false},
		{"higher source on base moves it up", Convention, Explicit, true},
		{"equal source on base moves it up", DataAnnotation, DataAnnotation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := NewModel(nil).Builder()
			animal := newShadowEntity(t, mb, "Animal")
			dog := mb.Entity("Dog", Explicit)
			require.NotNil(t, dog.HasBaseType(animal.Metadata(), Explicit))
			require.NotNil(t, dog.Property("Name", stringType, tt.derivedSource))

			pb := animal.Property("Name", stringType, tt.baseSource)
			assert.Equal(t, tt.wantMoved, pb != nil)

			declaredOnBase := animal.Metadata().FindDeclaredProperty("Name")
			declaredOnDog := dog.Metadata().FindDeclaredProperty("Name")
			if tt.wantMoved {
				assert.NotNil(t, declaredOnBase)
				assert.Nil(t, declaredOnDog)
			} else {
				assert.Nil(t, declaredOnBase)
				assert.NotNil(t, declaredOnDog)
			}
			// One declaration, whichever type holds it.
			assert.NotNil(t, dog.Metadata().FindProperty("Name"))
		})
	}

	t.Run("derived type reuses the inherited property", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		animal := newShadowEntity(t, mb, "Animal")
		dog := mb.Entity("Dog", Explicit)
		require.NotNil(t, dog.HasBaseType(animal.Metadata(), Explicit))

		pb := dog.Property("Id", intType, Explicit)
		require.NotNil(t, pb)
		assert.Same(t, animal.Metadata().FindDeclaredProperty("Id"), pb.Metadata())
		assert.Nil(t, dog.Metadata().FindDeclaredProperty("Id"))
	})

	t.Run("derived type reuses the inherited index", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		animal := newShadowEntity(t, mb, "Animal")
		require.NotNil(t, animal.Property("Name", stringType, Explicit))
		baseIndex := animal.HasIndex([]string{"Name"}, Convention)
		require.NotNil(t, baseIndex)

		dog := mb.Entity("Dog", Explicit)
		require.NotNil(t, dog.HasBaseType(animal.Metadata(), Explicit))

		ib := dog.HasIndex([]string{"Name"}, Explicit)
		require.NotNil(t, ib)
		assert.Same(t, baseIndex.Metadata(), ib.Metadata())
		assert.Empty(t, dog.Metadata().DeclaredIndexes())
		assert.Equal(t, Explicit, baseIndex.Metadata().ConfigurationSource())
	})
}

type stampConvention struct{}

func (stampConvention) Name() string { return "Stamp" }

func (stampConvention) ProcessEntityTypeAdded(b *InternalEntityTypeBuilder) {
	b.Property("CreatedAt", reflect.TypeOf(time.Time{}), Convention)
}

type dropTemporaryConvention struct{}

func (dropTemporaryConvention) Name() string { return "DropTemporary" }

func (dropTemporaryConvention) ProcessEntityTypeAdded(b *InternalEntityTypeBuilder) {
	if b.Metadata().Name() == "Temp" {
		b.ModelBuilder().RemoveEntityType(b.Metadata(), Convention)
	}
}

type recordingConvention struct{ seen []string }

func (*recordingConvention) Name() string { return "Recording" }

func (c *recordingConvention) ProcessEntityTypeAdded(b *InternalEntityTypeBuilder) {
	c.seen = append(c.seen, b.Metadata().Name())
}

func TestDispatcher_ConventionsRunBeforeCallReturns(t *testing.T) {
	m := NewModel(NewConventionSet().Add(stampConvention{}))

	b := m.Builder().Entity("Post", Explicit)
	require.NotNil(t, b)

	p := b.Metadata().FindProperty("CreatedAt")
	require.NotNil(t, p)
	assert.Equal(t, Convention, p.ConfigurationSource())
}

func TestDispatcher_SkipsRemovedMetadata(t *testing.T) {
	recorder := &recordingConvention{}
	m := NewModel(NewConventionSet().Add(dropTemporaryConvention{}).Add(recorder))
	mb := m.Builder()

	assert.Nil(t, mb.Entity("Temp", Convention))
	assert.NotNil(t, mb.Entity("Kept", Convention))

	assert.Equal(t, []string{"Kept"}, recorder.seen)
	assert.Nil(t, m.FindEntityType("Temp"))
}

func TestConventionSet_AddRemoveReplace(t *testing.T) {
	recorder := &recordingConvention{}
	set := NewConventionSet().Add(stampConvention{}).Add(recorder)

	assert.Equal(t, []string{"Stamp", "Recording"}, set.Names())
	assert.True(t, set.Contains(recorder))

	set.Replace(stampConvention{}, dropTemporaryConvention{})
	assert.Equal(t, []string{"DropTemporary", "Recording"}, set.Names())

	set.Remove(recorder)
	assert.False(t, set.Contains(recorder))
	assert.Len(t, set.EntityTypeAdded, 1)
}

func TestConventionSet_NamesInRegistrationOrder(t *testing.T) {
	set := NewConventionSet().
		Add(&finalizingConvention{}).
		Add(stampConvention{}).
		Add(&recordingConvention{})

	assert.Equal(t, []string{"Finalizing", "Stamp", "Recording"}, set.Names())

	set.Add(&finalizingConvention{calls: 1})
	assert.Len(t, set.ModelFinalizing, 1, "a name is registered once")

	clone := set.Clone()
	clone.Remove(stampConvention{})
	assert.Equal(t, []string{"Finalizing", "Recording"}, clone.Names())
	assert.Equal(t, []string{"Finalizing", "Stamp", "Recording"}, set.Names())

	assert.Same(t, set, set.Replace(dropTemporaryConvention{}, stampConvention{}),
		"replacing an unregistered convention does nothing")
	assert.Equal(t, []string{"Finalizing", "Stamp", "Recording"}, set.Names())
}
