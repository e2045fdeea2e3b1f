package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationSource_Overrides(t *testing.T) {
	sources := []ConfigurationSource{NoSource, Convention, DataAnnotation, Explicit}
	for i, s := range sources {
		for j, other := range sources {
			assert.Equal(t, i >= j, s.Overrides(other), "%s overrides %s", s, other)
			assert.Equal(t, i > j, s.OverridesStrictly(other), "%s strictly overrides %s", s, other)
		}
	}
}

func TestConfigurationSource_Max(t *testing.T) {
	assert.Equal(t, Explicit, Max(Convention, Explicit))
	assert.Equal(t, DataAnnotation, Max(DataAnnotation, NoSource))
	assert.Equal(t, Convention, Max(Convention, Convention))
}

func TestRemovalSource(t *testing.T) {
	tests := []struct {
		source ConfigurationSource
		want   ConfigurationSource
		hard   bool
	}{
		{NoSource, NoSource, false},
		{Convention, NoSource, false},
		{DataAnnotation, DataAnnotation, true},
		{Explicit, Explicit, true},
	}

	for _, tt := range tests {
		t.Run(tt.source.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, removalSource(tt.source))
			assert.Equal(t, tt.hard, IsHardRemoval(tt.source))
		})
	}
}

func TestParseConfigurationSource(t *testing.T) {
	for _, s := range []ConfigurationSource{NoSource, Convention, DataAnnotation, Explicit} {
		parsed, err := ParseConfigurationSource(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseConfigurationSource("fluent")
	assert.Error(t, err)
}
