package metadata

import "sort"

// Annotation is a named value attached to a metadata node
type Annotation struct {
	Name   string
	Value  any
	Source ConfigurationSource
}

// annotatable is embedded by every metadata node.
type annotatable struct {
	annotations map[string]*Annotation
}

// FindAnnotation returns the annotation with the given name, or nil.
func (a *annotatable) FindAnnotation(name string) *Annotation {
	if a.annotations == nil {
		return nil
	}
	return a.annotations[name]
}

// AnnotationValue returns the value of the named annotation, or nil.
func (a *annotatable) AnnotationValue(name string) any {
	if ann := a.FindAnnotation(name); ann != nil {
		return ann.Value
	}
	return nil
}

// Annotations returns all annotations sorted by name.
func (a *annotatable) Annotations() []*Annotation {
	result := make([]*Annotation, 0, len(a.annotations))
	for _, ann := range a.annotations {
		result = append(result, ann)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// setAnnotation applies arbitration. A nil value removes the annotation.
func (a *annotatable) setAnnotation(name string, value any, source ConfigurationSource) bool {
	existing := a.FindAnnotation(name)
	if existing != nil && !source.Overrides(existing.Source) {
		return false
	}
	if value == nil {
		if existing != nil {
			delete(a.annotations, name)
		}
		return true
	}
	if a.annotations == nil {
		a.annotations = make(map[string]*Annotation)
	}
	if existing != nil {
		existing.Value = value
		existing.Source = Max(existing.Source, source)
		return true
	}
	a.annotations[name] = &Annotation{Name: name, Value: value, Source: source}
	return true
}
