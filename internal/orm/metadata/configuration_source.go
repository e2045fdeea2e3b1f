// Package metadata provides the mutable model graph used while building an ORM
// model and the internal builders that arbitrate every change to it.
//
// Every fact in the graph (an entity type's existence, a property's type, a
// relationship's navigation name, ...) records the ConfigurationSource that set
// it. A builder call succeeds only when its source overrides the recorded one.
// Building is single-threaded: callers must not mutate a Model from more than one
// goroutine. Once FinalizeModel succeeds the graph is read-only and may be read
// concurrently.
package metadata

import "fmt"

// ConfigurationSource tags a fact with the authority that configured it.
type ConfigurationSource int

const (
	// NoSource marks a fact that was never configured.
	NoSource ConfigurationSource = iota
	// Convention is used by automatic conventions.
	Convention
	// DataAnnotation is used by declarative configuration such as struct tags
	// and the TableName method.
	DataAnnotation
	// Explicit is used by the public fluent builders.
	Explicit
)

// String returns the string representation of the configuration source
func (s ConfigurationSource) String() string {
	switch s {
	case NoSource:
		return "none"
	case Convention:
		return "convention"
	case DataAnnotation:
		return "data_annotation"
	case Explicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// ParseConfigurationSource converts a string to a ConfigurationSource
func ParseConfigurationSource(s string) (ConfigurationSource, error) {
	switch s {
	case "none", "":
		return NoSource, nil
	case "convention":
		return Convention, nil
	case "data_annotation":
		return DataAnnotation, nil
	case "explicit":
		return Explicit, nil
	default:
		return NoSource, fmt.Errorf("unknown configuration source: %s", s)
	}
}

// Overrides reports whether a change requested with s may replace a fact
// recorded with other.
func (s ConfigurationSource) Overrides(other ConfigurationSource) bool {
	return s >= other
}

// OverridesStrictly reports whether s has a strictly higher priority than other.
func (s ConfigurationSource) OverridesStrictly(other ConfigurationSource) bool {
	return s > other
}

// Max returns the higher of the two sources.
func Max(a, b ConfigurationSource) ConfigurationSource {
	if a > b {
		return a
	}
	return b
}

type removalKind int

const (
	softRemoval removalKind = iota
	hardRemoval
)

// removalPolicy decides what a removal leaves behind. A soft removal clears the
// fact's source so a convention may configure it again. A hard removal keeps the
// removing source on the now-absent fact so lower sources cannot bring it back.
var removalPolicy = map[ConfigurationSource]removalKind{
	NoSource:       softRemoval,
	Convention:     softRemoval,
	DataAnnotation: hardRemoval,
	Explicit:       hardRemoval,
}

// removalSource returns the source recorded on a fact removed with s.
func removalSource(s ConfigurationSource) ConfigurationSource {
	if removalPolicy[s] == hardRemoval {
		return s
	}
	return NoSource
}

// IsHardRemoval reports whether removing a fact with s blocks lower sources from
// configuring it again.
func IsHardRemoval(s ConfigurationSource) bool {
	return removalPolicy[s] == hardRemoval
}
