package movement

import "errors"

// Common errors returned by the movement parser.
var (
	// ErrNoMovements indicates the page has no resultTable region, so it
	// is not a movement result page at all.
	ErrNoMovements = errors.New("no movement table found in page")

	// ErrMalformedPage indicates the page could not be tokenized as HTML.
	ErrMalformedPage = errors.New("malformed result page")
)
