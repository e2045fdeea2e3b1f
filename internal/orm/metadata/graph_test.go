package metadata

import (
	"strings"
	"testing"
)

// requireRelationship makes dependent require principal through a shadow foreign key.
func requireRelationship(t *testing.T, dependent, principal *InternalEntityTypeBuilder) *ForeignKey {
	t.Helper()
	rb, err := dependent.HasRelationship(principal.Metadata(), "", "", Explicit)
	if err != nil || rb == nil {
		t.Fatalf("HasRelationship(%s -> %s) failed: %v", dependent.Metadata().Name(), principal.Metadata().Name(), err)
	}
	if rb.IsRequired(true, Explicit) == nil {
		t.Fatalf("IsRequired rejected on %s", rb.Metadata())
	}
	return rb.Metadata()
}

func TestDependencyGraph(t *testing.T) {
	t.Run("simple dependency chain", func(t *testing.T) {
		// Comment -> Post -> User
		mb := NewModel(nil).Builder()
		user := newShadowEntity(t, mb, "User")
		post := newShadowEntity(t, mb, "Post")
		comment := newShadowEntity(t, mb, "Comment")
		requireRelationship(t, post, user)
		requireRelationship(t, comment, post)

		graph := NewDependencyGraph(mb.Metadata())

		postDeps := graph.Dependencies("Post")
		if len(postDeps) != 1 || postDeps[0] != "User" {
			t.Errorf("Post should depend on User, got %v", postDeps)
		}

		userDeps := graph.Dependencies("User")
		if len(userDeps) != 0 {
			t.Errorf("User should have no dependencies, got %v", userDeps)
		}

		userDependents := graph.Dependents("User")
		if len(userDependents) != 1 || userDependents[0] != "Post" {
			t.Errorf("User should have Post as dependent, got %v", userDependents)
		}

		order, err := graph.TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort failed: %v", err)
		}
		want := []string{"User", "Post", "Comment"}
		if strings.Join(order, ",") != strings.Join(want, ",") {
			t.Errorf("order = %v, want %v", order, want)
		}
	})

	t.Run("optional relationships are not edges", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		user := newShadowEntity(t, mb, "User")
		post := newShadowEntity(t, mb, "Post")
		if _, err := post.HasRelationship(user.Metadata(), "", "", Explicit); err != nil {
			t.Fatal(err)
		}

		graph := NewDependencyGraph(mb.Metadata())
		if deps := graph.Dependencies("Post"); len(deps) != 0 {
			t.Errorf("optional relationship should not be a dependency, got %v", deps)
		}

		order, err := mb.Metadata().DependencyOrder()
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(order, ",") != "Post,User" {
			t.Errorf("independent types should sort by name, got %v", order)
		}
	})

	t.Run("ties are broken by name", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		a := newShadowEntity(t, mb, "A")
		b := newShadowEntity(t, mb, "B")
		newShadowEntity(t, mb, "C")
		requireRelationship(t, b, a)

		order, err := NewDependencyGraph(mb.Metadata()).TopologicalSort()
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(order, ",") != "A,B,C" {
			t.Errorf("order = %v, want [A B C]", order)
		}
	})

	t.Run("self reference is ignored", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		employee := newShadowEntity(t, mb, "Employee")
		rb, err := employee.HasRelationship(employee.Metadata(), "Manager", "Reports", Explicit)
		if err != nil {
			t.Fatal(err)
		}
		rb.IsRequired(true, Explicit)

		graph := NewDependencyGraph(mb.Metadata())
		if cycles := graph.DetectCycles(); len(cycles) != 0 {
			t.Errorf("self reference should not be a cycle, got %v", cycles)
		}
	})

	t.Run("circular dependency", func(t *testing.T) {
		mb := NewModel(nil).Builder()
		a := newShadowEntity(t, mb, "A")
		b := newShadowEntity(t, mb, "B")
		c := newShadowEntity(t, mb, "C")
		requireRelationship(t, a, b)
		requireRelationship(t, b, c)
		requireRelationship(t, c, a)

		graph := NewDependencyGraph(mb.Metadata())
		cycles := graph.DetectCycles()
		if len(cycles) != 1 {
			t.Fatalf("expected 1 cycle, got %v", cycles)
		}
		if len(cycles[0]) != 3 {
			t.Errorf("cycle should contain 3 entity types, got %v", cycles[0])
		}

		_, err := graph.TopologicalSort()
		if err == nil {
			t.Fatal("expected error for circular dependency")
		}
		if !strings.Contains(err.Error(), "circular dependency") {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.Contains(err.Error(), "A -> B -> C -> A") {
			t.Errorf("error should describe the cycle, got %v", err)
		}
	})
}
