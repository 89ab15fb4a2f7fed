// Package scraper assembles product records and walks result listings. It
// owns the locator tables for mercadolivre.com.br and the policy around
// them: ordered fallbacks per field, degrade to explicit absence on misses,
// abort only when the page source itself malfunctions.
package scraper

import "errors"

var (
	// ErrProductNotAvailable reports a page that never produced its
	// essential elements, or a capture that ended with neither title nor
	// price. The listing is gone, region-blocked, or not a product page;
	// retrying the same URL will not help.
	ErrProductNotAvailable = errors.New("product page not available")
)

// DefaultItemLimit and DefaultPageLimit bound a listing traversal when the
// caller does not say otherwise.
const (
	DefaultItemLimit = 10
	DefaultPageLimit = 1
)
