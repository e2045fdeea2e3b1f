package metadata

import (
	"fmt"
	"strings"
)

// ValidationReport collects the errors and warnings of one finalization.
type ValidationReport struct {
	errors   []*ValidationError
	warnings []string
}

// AddError records a validation error
func (r *ValidationReport) AddError(entityType, member, message, hint string) {
	r.errors = append(r.errors, &ValidationError{
		EntityType: entityType,
		Member:     member,
		Message:    message,
		Hint:       hint,
	})
}

// Warn records a non-fatal finding
func (r *ValidationReport) Warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Errors returns the recorded errors
func (r *ValidationReport) Errors() []*ValidationError {
	return append([]*ValidationError(nil), r.errors...)
}

// Warnings returns the recorded warnings
func (r *ValidationReport) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// HasErrors reports whether any error was recorded
func (r *ValidationReport) HasErrors() bool {
	return len(r.errors) > 0
}

// Err returns the recorded errors as *ValidationErrors, or nil.
func (r *ValidationReport) Err() error {
	if len(r.errors) == 0 {
		return nil
	}
	return &ValidationErrors{Errors: r.Errors()}
}

// CoreValidator checks the invariants every finalized model must hold,
// whatever provider consumes it.
type CoreValidator struct{}

// Validate implements ModelValidator
func (CoreValidator) Validate(m *Model, report *ValidationReport) {
	for _, et := range m.EntityTypes() {
		validateKeys(et, report)
	}
	for _, fk := range m.ForeignKeys() {
		validateForeignKey(fk, report)
		warnUniquifiedProperties(fk, report)
	}
	if cycles := NewDependencyGraph(m).DetectCycles(); len(cycles) > 0 {
		report.Warn("required relationships form a cycle: %s", formatCycles(cycles))
	}
}

func validateKeys(et *EntityType, report *ValidationReport) {
	if et.baseType == nil && et.primaryKey == nil {
		report.AddError(et.name, "", "entity type has no primary key",
			"add an Id field or configure the key with PrimaryKey")
	}
	if et.baseType != nil && len(et.keys) > 0 {
		report.AddError(et.name, "", "keys can only be declared on the root of a hierarchy",
			fmt.Sprintf("configure the key on %s", et.RootType().name))
	}
	for _, k := range et.keys {
		for _, p := range k.properties {
			if p.nullable && !k.IsPrimaryKey() {
				report.AddError(et.name, p.name,
					fmt.Sprintf("property is part of key %s and cannot be optional", k),
					"make the property required or use a non-pointer type")
			}
		}
	}
}

func validateForeignKey(fk *ForeignKey, report *ValidationReport) {
	dependent, principal := fk.declaringType, fk.principalType
	if !principal.inModel || principal.model != dependent.model {
		report.AddError(dependent.name, fk.navToPrincipal,
			fmt.Sprintf("relationship %s points at %s, which is not part of the model", fk, principal.name), "")
		return
	}
	if fk.principalKey == nil || !fk.principalKey.inModel {
		report.AddError(dependent.name, strings.Join(propertyNames(fk.properties), ", "),
			fmt.Sprintf("relationship %s has no principal key", fk),
			fmt.Sprintf("configure a primary key on %s", principal.name))
		return
	}
	keyProps := fk.principalKey.properties
	if len(keyProps) != len(fk.properties) {
		report.AddError(dependent.name, strings.Join(propertyNames(fk.properties), ", "),
			fmt.Sprintf("foreign key %s has %d properties but principal key %s has %d",
				formatProperties(fk.properties), len(fk.properties), fk.principalKey, len(keyProps)), "")
		return
	}
	for i, p := range fk.properties {
		if !TypesCompatible(p.goType, keyProps[i].goType) {
			report.AddError(dependent.name, p.name,
				fmt.Sprintf("type %v is not compatible with principal key property %s of type %v",
					p.goType, keyProps[i], keyProps[i].goType), "")
		}
	}
}

// warnUniquifiedProperties reports shadow foreign key properties that got a
// numeric suffix because their natural name was taken.
func warnUniquifiedProperties(fk *ForeignKey, report *ValidationReport) {
	if fk.declaringType.goType == nil {
		return
	}
	for _, p := range fk.properties {
		if !p.isShadow || p.source != Convention {
			continue
		}
		base := strings.TrimRight(p.name, "0123456789")
		if base == p.name || base == "" {
			continue
		}
		if _, taken := FindMember(fk.declaringType.goType, base); taken || fk.declaringType.FindProperty(base) != nil {
			report.Warn("shadow property %s was created for relationship %s because %s is already in use",
				p, fk, base)
		}
	}
}
