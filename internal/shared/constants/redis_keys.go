package constants

import "time"

// Redis key layout for the reservation engine.
// Pattern: gatepass:{module}:{identifier}
//
// The hold mirror keys are the live claim layer consulted by availability
// reads; Postgres stays the durable ground truth. Both are written by the
// hold manager only.

const KeyPrefix = "gatepass"

// Hold mirror keys
const (
	// unit_hold:<unitID> -> "<sessionID>:<holdID>", TTL = hold lifetime
	keyUnitHold = KeyPrefix + ":unit_hold:"
	// hold:<holdID> -> hash {session_id, show_id, unit_count}, TTL = hold lifetime
	keyHold = KeyPrefix + ":hold:"
	// hold_units:<holdID> -> set of unit IDs, TTL = hold lifetime
	keyHoldUnits = KeyPrefix + ":hold_units:"
)

// Cache keys
const (
	keyAvailability = KeyPrefix + ":availability:show:"
	keyShowDetail   = KeyPrefix + ":shows:detail:"
)

// Cache TTLs
const (
	TTLAvailability = 15 * time.Second
	TTLShowDetail   = 5 * time.Minute
)

func UnitHoldKey(unitID string) string {
	return keyUnitHold + unitID
}

func HoldKey(holdID string) string {
	return keyHold + holdID
}

func HoldUnitsKey(holdID string) string {
	return keyHoldUnits + holdID
}

func AvailabilityKey(showID string) string {
	return keyAvailability + showID
}

func ShowDetailKey(showID string) string {
	return keyShowDetail + showID
}
