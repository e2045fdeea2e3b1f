// Package modelbuilder is the public fluent API for configuring a model.
//
// Every call is applied as explicit configuration, so it wins over struct tags
// and conventions. Members are named by their Go field names and checked
// against the entity's Go type when it has one.
//
// Mistakes do not panic and do not break the chain. Invalid arguments,
// configuration conflicts and calls that could not be applied are recorded on
// the ModelBuilder; Err reports them as soon as they happen and FinalizeModel
// returns them before validating:
//
//	mb := modelbuilder.DefaultFactory{}.Create()
//	modelbuilder.Entity[Post](mb).
//		HasOne("Blog").
//		WithMany("Posts").
//		HasForeignKey("BlogId").
//		OnDelete(modelbuilder.DeleteRestrict)
//	model, err := mb.FinalizeModel()
//
// A ModelBuilder must only be used from one goroutine. The finalized model is
// read-only and safe to share.
package modelbuilder

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// ErrNotApplied is recorded when the model refused an explicit call, for
// example because the entity type or member was ignored.
var ErrNotApplied = errors.New("modelbuilder: configuration was not applied")

// DeleteBehavior describes what happens to dependents when a principal is deleted.
type DeleteBehavior = metadata.DeleteBehavior

// Delete behaviors
const (
	DeleteClientSetNull = metadata.DeleteClientSetNull
	DeleteRestrict      = metadata.DeleteRestrict
	DeleteSetNull       = metadata.DeleteSetNull
	DeleteCascade       = metadata.DeleteCascade
	DeleteNoAction      = metadata.DeleteNoAction
)

// ValueGeneration describes when the store generates a property value.
type ValueGeneration = metadata.StoreGeneratedPattern

// Value generation patterns
const (
	ValueGeneratedNever         = metadata.StoreGeneratedNone
	ValueGeneratedOnAdd         = metadata.StoreGeneratedOnAdd
	ValueGeneratedOnAddOrUpdate = metadata.StoreGeneratedOnAddOrUpdate
)

// ModelBuilder configures one model.
type ModelBuilder struct {
	model *metadata.Model
	errs  []error
}

// New creates a builder for an empty model driven by conventions. A nil set
// disables conventions.
func New(conventions *metadata.ConventionSet, opts ...metadata.ModelOption) *ModelBuilder {
	return &ModelBuilder{model: metadata.NewModel(conventions, opts...)}
}

// Model returns the model being built
func (mb *ModelBuilder) Model() *metadata.Model {
	return mb.model
}

// Err returns every error recorded so far, joined, or nil.
func (mb *ModelBuilder) Err() error {
	return errors.Join(mb.errs...)
}

// Entity adds or finds an entity type without a Go type. Its properties must
// be declared with ShadowProperty.
func (mb *ModelBuilder) Entity(name string) *EntityTypeBuilder {
	if name == "" {
		mb.fail(fmt.Errorf("%w: entity type name cannot be empty", metadata.ErrInvalidArgument))
		return &EntityTypeBuilder{mb: mb}
	}
	b := mb.model.Builder().Entity(name, metadata.Explicit)
	if b == nil {
		mb.reject("entity type %s", name)
	}
	return &EntityTypeBuilder{mb: mb, builder: b}
}

// EntityOf adds or finds the entity type mapped to a Go struct type. Pointer
// types are accepted.
func (mb *ModelBuilder) EntityOf(goType reflect.Type) *EntityTypeBuilder {
	if _, ok := metadata.StructType(goType); !ok {
		mb.fail(fmt.Errorf("%w: %v is not a struct type", metadata.ErrInvalidArgument, goType))
		return &EntityTypeBuilder{mb: mb}
	}
	b := mb.model.Builder().EntityOf(goType, metadata.Explicit)
	if b == nil {
		mb.reject("entity type %v", goType)
	}
	return &EntityTypeBuilder{mb: mb, builder: b}
}

// Entity adds or finds the entity type mapped to T.
func Entity[T any](mb *ModelBuilder) *EntityTypeBuilderOf[T] {
	return &EntityTypeBuilderOf[T]{EntityTypeBuilder: mb.EntityOf(reflect.TypeOf((*T)(nil)).Elem())}
}

// Ignore removes the named entity type and keeps conventions from adding it.
func (mb *ModelBuilder) Ignore(name string) *ModelBuilder {
	if name == "" {
		mb.fail(fmt.Errorf("%w: entity type name cannot be empty", metadata.ErrInvalidArgument))
		return mb
	}
	if !mb.model.Builder().Ignore(name, metadata.Explicit) {
		mb.reject("ignore %s", name)
	}
	return mb
}

// IgnoreType removes the entity type mapped to a Go struct type.
func (mb *ModelBuilder) IgnoreType(goType reflect.Type) *ModelBuilder {
	if _, ok := metadata.StructType(goType); !ok {
		mb.fail(fmt.Errorf("%w: %v is not a struct type", metadata.ErrInvalidArgument, goType))
		return mb
	}
	if !mb.model.Builder().IgnoreType(goType, metadata.Explicit) {
		mb.reject("ignore %v", goType)
	}
	return mb
}

// HasAnnotation sets a model annotation. A nil value removes it.
func (mb *ModelBuilder) HasAnnotation(name string, value any) *ModelBuilder {
	if name == "" {
		mb.fail(fmt.Errorf("%w: annotation name cannot be empty", metadata.ErrInvalidArgument))
		return mb
	}
	if !mb.model.Builder().HasAnnotation(name, value, metadata.Explicit) {
		mb.reject("annotation %s", name)
	}
	return mb
}

// FinalizeModel validates the model and makes it read-only. Errors recorded by
// earlier calls are returned first, without validating.
func (mb *ModelBuilder) FinalizeModel() (*metadata.Model, error) {
	if err := mb.Err(); err != nil {
		return nil, err
	}
	return mb.model.Builder().FinalizeModel()
}

func (mb *ModelBuilder) fail(err error) {
	if err == nil {
		return
	}
	mb.model.Logger().Debug("configuration error", zap.Error(err))
	mb.errs = append(mb.errs, err)
}

func (mb *ModelBuilder) reject(format string, args ...any) {
	if mb.model.IsFinalized() {
		mb.fail(metadata.ErrModelReadOnly)
		return
	}
	mb.fail(fmt.Errorf("%w: %s", ErrNotApplied, fmt.Sprintf(format, args...)))
}

// entityType resolves an entity type by name for calls that refer to one.
func (mb *ModelBuilder) entityType(name string) *metadata.EntityType {
	if name == "" {
		mb.fail(fmt.Errorf("%w: entity type name cannot be empty", metadata.ErrInvalidArgument))
		return nil
	}
	et := mb.model.FindEntityType(name)
	if et == nil {
		mb.fail(fmt.Errorf("%w: %s", metadata.ErrEntityTypeNotFound, name))
	}
	return et
}

// checkNames rejects an empty list and empty or repeated names.
func (mb *ModelBuilder) checkNames(what string, names []string) bool {
	if len(names) == 0 {
		mb.fail(fmt.Errorf("%w: %s needs at least one property", metadata.ErrInvalidArgument, what))
		return false
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			mb.fail(fmt.Errorf("%w: %s has an empty property name", metadata.ErrInvalidArgument, what))
			return false
		}
		if seen[name] {
			mb.fail(fmt.Errorf("%w: %s lists %s twice", metadata.ErrInvalidArgument, what, name))
			return false
		}
		seen[name] = true
	}
	return true
}
