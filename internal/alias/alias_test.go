package alias_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/travelintel/dealengine/internal/alias"
)

func TestExpandDestinationMetroGroup(t *testing.T) {
	assert.ElementsMatch(t, []string{"JFK", "LGA", "EWR"}, alias.ExpandDestination("NYC"))
	assert.ElementsMatch(t, []string{"JFK", "LGA", "EWR"}, alias.ExpandDestination("nyc"))
}

func TestExpandDestinationPlainCode(t *testing.T) {
	assert.Equal(t, []string{"LAX"}, alias.ExpandDestination("LAX"))
	assert.Equal(t, []string{"SFO"}, alias.ExpandDestination(" sfo "))
}

func TestResolveCode(t *testing.T) {
	code, ok := alias.ResolveCode("dubai")
	assert.True(t, ok)
	assert.Equal(t, "DXB", code)

	code, ok = alias.ResolveCode("New York")
	assert.True(t, ok)
	assert.Equal(t, "NYC", code)

	// A bare 3-letter code resolves to itself even when no city maps to it.
	code, ok = alias.ResolveCode("jfk")
	assert.True(t, ok)
	assert.Equal(t, "JFK", code)

	_, ok = alias.ResolveCode("not a real place")
	assert.False(t, ok)
}

func TestCityMatchesDestination(t *testing.T) {
	assert.True(t, alias.CityMatchesDestination("New York City", "NYC"))
	assert.True(t, alias.CityMatchesDestination("NEW YORK", "NYC"))
	assert.False(t, alias.CityMatchesDestination("Newark", "NYC"))
	assert.False(t, alias.CityMatchesDestination("Chicago", "NYC"))
}

func TestIsAirportCode(t *testing.T) {
	assert.True(t, alias.IsAirportCode("LAX"))
	assert.False(t, alias.IsAirportCode("LAXX"))
	assert.False(t, alias.IsAirportCode("la"))
	assert.False(t, alias.IsAirportCode("l4x"))
}

func TestIsKnownAlias(t *testing.T) {
	assert.True(t, alias.IsKnownAlias("london"))
	assert.True(t, alias.IsKnownAlias("LON"))
	assert.False(t, alias.IsKnownAlias("atlantis"))
}
