package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/travelintel/dealengine/internal/intent"
)

func TestValidateRejectsStopwordDestination(t *testing.T) {
	r := intent.Result{
		Intent:   intent.IntentSearchFlights,
		Entities: intent.Entities{Destination: "FLIGHTS"},
	}
	assert.False(t, intent.Validate(r, "cheap flights to dubai"))
}

func TestValidateRejectsUnknownAlias(t *testing.T) {
	r := intent.Result{Entities: intent.Entities{Destination: "XANADU12"}}
	assert.False(t, intent.Validate(r, "take me to xanadu12"))
}

func TestValidateRejectsDestinationNotInMessage(t *testing.T) {
	// DXB is a valid code but the user never mentioned Dubai.
	r := intent.Result{Entities: intent.Entities{Destination: "DXB"}}
	assert.False(t, intent.Validate(r, "cheap flights to london"))
}

func TestValidateRejectsOverlongEntity(t *testing.T) {
	r := intent.Result{Entities: intent.Entities{Origin: "a place name far too long to be real"}}
	assert.False(t, intent.Validate(r, "from a place name far too long to be real to london"))
}

func TestValidateAcceptsCodePresentInMessage(t *testing.T) {
	r := intent.Result{Entities: intent.Entities{Origin: "LAX", Destination: "DXB"}}
	assert.True(t, intent.Validate(r, "flights from LAX to DXB next week"))
}

func TestValidateAcceptsCityNameForResolvedCode(t *testing.T) {
	r := intent.Result{Entities: intent.Entities{Destination: "DXB"}}
	assert.True(t, intent.Validate(r, "cheap flights to dubai"))
}

func TestValidateAcceptsEmptyEntities(t *testing.T) {
	assert.True(t, intent.Validate(intent.Result{}, "hello"))
}
