package core

import "strings"

// fulfillmentCenters maps trading-partner destination party codes to display
// names. Covers the EU fulfillment centers this seller ships to; an unknown
// code still forms a group and falls back to suffix/city/raw-code naming.
var fulfillmentCenters = map[string]string{
	"WRO1": "Wrocław 1",
	"WRO2": "Wrocław 2",
	"WRO5": "Wrocław 5",
	"POZ1": "Poznań 1",
	"SZZ1": "Szczecin 1",
	"LCJ2": "Łódź 2",
	"KTW1": "Katowice 1",
	"BER3": "Berlin 3",
	"LEJ1": "Leipzig 1",
	"FRA3": "Frankfurt 3",
	"DTM1": "Dortmund 1",
	"DTM2": "Dortmund 2",
	"HAM2": "Hamburg 2",
	"MUC3": "Munich 3",
	"STR1": "Stuttgart 1",
	"CDG7": "Paris CDG 7",
	"ORY1": "Paris Orly 1",
	"LYS1": "Lyon 1",
	"MXP5": "Milan MXP 5",
	"FCO1": "Rome FCO 1",
	"BCN1": "Barcelona 1",
	"MAD4": "Madrid 4",
	"PRG2": "Prague 2",
}

var destinationSeparators = func(r rune) bool {
	return r == '-' || r == '_' || r == '/' || r == ' ' || r == '.'
}

// destinationName resolves a human-readable name for a raw destination party
// id: exact table hit, then the last recognizable token of the id, then the
// address city, and finally the raw code itself.
func destinationName(rawPartyID string, dest Destination) string {
	code := strings.ToUpper(strings.TrimSpace(rawPartyID))
	if name, ok := fulfillmentCenters[code]; ok {
		return name
	}

	tokens := strings.FieldsFunc(code, destinationSeparators)
	for i := len(tokens) - 1; i >= 0; i-- {
		if name, ok := fulfillmentCenters[tokens[i]]; ok {
			return name
		}
	}

	if dest.City != "" {
		return dest.City
	}
	if code != "" {
		return code
	}
	return "unknown destination"
}
