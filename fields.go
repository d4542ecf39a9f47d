package relay

import "github.com/zoobzio/capitan"

// Field keys for relay events.
var (
	// KeyAge is the wound-wait age of the transaction.
	KeyAge = capitan.NewIntKey("age")

	// KeyEntries is the number of state entries in the transaction.
	KeyEntries = capitan.NewIntKey("entries")

	// KeyElement is the name of the element involved.
	KeyElement = capitan.NewStringKey("element")

	// KeyEndpoint is the name of the endpoint involved.
	KeyEndpoint = capitan.NewStringKey("endpoint")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)
