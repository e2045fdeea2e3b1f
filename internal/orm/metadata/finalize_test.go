package metadata

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeModel_LocksModel(t *testing.T) {
	m := NewModel(nil)
	mb := m.Builder()
	blogB := newShadowEntity(t, mb, "Blog")
	postB := newShadowEntity(t, mb, "Post")
	rb, err := postB.HasRelationship(blogB.Metadata(), "Blog", "Posts", Explicit)
	require.NoError(t, err)

	finalized, err := mb.FinalizeModel()
	require.NoError(t, err)
	assert.Same(t, m, finalized)
	assert.True(t, m.IsFinalized())
	assert.Equal(t, StateFinalized, blogB.Metadata().State())

	assert.Nil(t, mb.Entity("Comment", Explicit))
	assert.False(t, mb.Ignore("Blog", Explicit))
	assert.False(t, mb.HasAnnotation("schema", "app", Explicit))
	assert.Nil(t, blogB.Property("Name", stringType, Explicit))

	_, err = blogB.PrimaryKey([]string{"Id"}, Explicit)
	assert.ErrorIs(t, err, ErrModelReadOnly)
	_, err = rb.Invert(Explicit)
	assert.ErrorIs(t, err, ErrModelReadOnly)
	assert.Nil(t, rb.IsUnique(true, Explicit))
	assert.False(t, rb.Metadata().IsUnique())

	again, err := mb.FinalizeModel()
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestFinalizeModel_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		build   func(t *testing.T, mb *InternalModelBuilder)
		entity  string
		message string
	}{
		{
			name: "missing primary key",
			build: func(t *testing.T, mb *InternalModelBuilder) {
				require.NotNil(t, mb.Entity("Orphan", Explicit))
			},
			entity:  "Orphan",
			message: "no primary key",
		},
		{
			name: "optional alternate key",
			build: func(t *testing.T, mb *InternalModelBuilder) {
				b := newShadowEntity(t, mb, "Account")
				require.NotNil(t, b.Property("Code", stringPtrType, Explicit))
				require.NotNil(t, b.HasKey([]string{"Code"}, Explicit))
			},
			entity:  "Account",
			message: "cannot be optional",
		},
		{
			name: "foreign key type mismatch",
			build: func(t *testing.T, mb *InternalModelBuilder) {
				blogB := newShadowEntity(t, mb, "Blog")
				postB := newShadowEntity(t, mb, "Post")
				require.NotNil(t, postB.Property("BlogRef", stringType, Explicit))
				rb, err := postB.HasRelationship(blogB.Metadata(), "", "", Explicit)
				require.NoError(t, err)
				_, err = rb.HasForeignKey([]string{"BlogRef"}, Explicit)
				require.NoError(t, err)
			},
			entity:  "Post",
			message: "not compatible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(nil)
			tt.build(t, m.Builder())

			finalized, err := m.Builder().FinalizeModel()
			assert.Nil(t, finalized)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.NotEmpty(t, verrs.Errors)
			assert.Equal(t, tt.entity, verrs.Errors[0].EntityType)
			assert.Contains(t, verrs.Errors[0].Message, tt.message)

			assert.False(t, m.IsFinalized(), "a failed model stays mutable")
		})
	}
}

func TestFinalizeModel_RetryAfterFix(t *testing.T) {
	m := NewModel(nil)
	b := m.Builder().Entity("Orphan", Explicit)

	_, err := m.Builder().FinalizeModel()
	require.Error(t, err)

	require.NotNil(t, b.Property("Id", intType, Explicit))
	_, err = b.PrimaryKey([]string{"Id"}, Explicit)
	require.NoError(t, err)

	_, err = m.Builder().FinalizeModel()
	assert.NoError(t, err)
}

type loopConvention struct{}

func (loopConvention) Name() string { return "Loop" }

func (loopConvention) ProcessPropertyAdded(b *InternalPropertyBuilder) {
	p := b.Metadata()
	owner := p.DeclaringEntityType().Builder()
	if owner.RemoveProperty(p, Convention) {
		owner.Property(p.Name(), p.GoType(), Convention)
	}
}

func TestFinalizeModel_ConventionLoop(t *testing.T) {
	m := NewModel(NewConventionSet().Add(loopConvention{}))
	b := newShadowEntity(t, m.Builder(), "Counter")

	b.Property("Value", intType, Convention)

	_, err := m.Builder().FinalizeModel()
	assert.ErrorIs(t, err, ErrConventionLoop)
	assert.False(t, m.IsFinalized())
}

type finalizingConvention struct{ calls int }

func (*finalizingConvention) Name() string { return "Finalizing" }

func (c *finalizingConvention) ProcessModelFinalizing(b *InternalModelBuilder) {
	c.calls++
	b.HasAnnotation("finalized-by", "test", Convention)
}

type warningValidator struct{}

func (warningValidator) Validate(m *Model, report *ValidationReport) {
	for _, et := range m.EntityTypes() {
		if strings.HasPrefix(et.Name(), "Legacy") {
			report.Warn("entity type %s uses a legacy name", et.Name())
		}
	}
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(m *Model, report *ValidationReport) {
	report.AddError("", "", "rejected", "")
}

func TestFinalizeModel_ConventionSetHooks(t *testing.T) {
	c := &finalizingConvention{}
	set := NewConventionSet().Add(c).AddValidator(warningValidator{})
	m := NewModel(set)
	newShadowEntity(t, m.Builder(), "LegacyOrder")

	_, err := m.Builder().FinalizeModel()
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "test", m.AnnotationValue("finalized-by"))
	assert.Equal(t, []string{"entity type LegacyOrder uses a legacy name"}, m.Warnings())

	m = NewModel(NewConventionSet().AddValidator(rejectingValidator{}))
	newShadowEntity(t, m.Builder(), "Order")
	_, err = m.Builder().FinalizeModel()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFinalizeModel_WarnsOnRequiredCycle(t *testing.T) {
	m := NewModel(nil)
	mb := m.Builder()
	a := newShadowEntity(t, mb, "Author")
	b := newShadowEntity(t, mb, "Book")

	ab, err := a.HasRelationship(b.Metadata(), "", "", Explicit)
	require.NoError(t, err)
	require.NotNil(t, ab.IsRequired(true, Explicit))
	ba, err := b.HasRelationship(a.Metadata(), "", "", Explicit)
	require.NoError(t, err)
	require.NotNil(t, ba.IsRequired(true, Explicit))

	_, err = mb.FinalizeModel()
	require.NoError(t, err)
	require.Len(t, m.Warnings(), 1)
	assert.Contains(t, m.Warnings()[0], "cycle")
}
