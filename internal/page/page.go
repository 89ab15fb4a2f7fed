// Package page defines the contracts between extraction logic and whatever
// renders the page. Extraction code only sees these interfaces; a real
// browser session and a statically parsed document both satisfy them, which
// keeps every extractor testable against fixture HTML.
package page

import (
	"context"
	"errors"
	"time"
)

// ErrNoSuchElement reports that a locator matched nothing. Resolution treats
// it as an ordinary miss and moves on to the next locator; every other error
// coming out of a Source is an infrastructure fault.
var ErrNoSuchElement = errors.New("no such element")

// Node is anything elements can be looked up in: a loaded document or a
// previously found element (scoped lookups).
type Node interface {
	// Find returns the first element matching loc. A pattern that matches
	// nothing returns ErrNoSuchElement.
	Find(loc Locator) (Element, error)

	// FindAll returns every element matching loc, in document order. No
	// match is an empty slice, not an error.
	FindAll(loc Locator) ([]Element, error)
}

// Element is a single element of a rendered document.
type Element interface {
	Node

	// Text returns the text content of the element.
	Text() (string, error)

	// Attribute returns the named attribute. An attribute the element does
	// not carry reads as "" without error.
	Attribute(name string) (string, error)

	// ScrollIntoView brings the element into the viewport so lazy content
	// near it gets a chance to render. Sources without a viewport treat it
	// as a no-op.
	ScrollIntoView() error
}

// Source is one loaded, queryable page session. Hosts construct sources and
// own their lifecycle; extraction code receives them ready to query.
type Source interface {
	Node

	// Load navigates the session to url and blocks until the document is
	// usable for lookups.
	Load(ctx context.Context, url string) error

	// WaitForAny blocks until at least one of the locators matches or the
	// timeout elapses. The bool reports whether a match appeared; running
	// out of time is not an error.
	WaitForAny(ctx context.Context, locs []Locator, timeout time.Duration) (bool, error)

	Close() error
}
