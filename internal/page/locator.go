package page

import "fmt"

// Strategy selects how a Locator pattern is evaluated against a document.
type Strategy string

const (
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// Locator describes one way to find an element: a lookup strategy, a pattern,
// and optionally the attribute to read instead of the element text. Locators
// are plain data so page templates can be described in tables; chains of
// locators are tried strictly in declaration order.
type Locator struct {
	Strategy Strategy
	Pattern  string
	Attr     string
}

// CSS builds a locator evaluated as a CSS selector.
func CSS(pattern string) Locator {
	return Locator{Strategy: ByCSS, Pattern: pattern}
}

// XPath builds a locator evaluated as an XPath expression.
func XPath(pattern string) Locator {
	return Locator{Strategy: ByXPath, Pattern: pattern}
}

// Attr builds a CSS locator that reads the named attribute of the matched
// element instead of its text.
func Attr(pattern, attr string) Locator {
	return Locator{Strategy: ByCSS, Pattern: pattern, Attr: attr}
}

// Meta targets an OpenGraph-style meta tag and reads its content attribute.
func Meta(property string) Locator {
	return Attr(fmt.Sprintf("meta[property=%q]", property), "content")
}

// WithAttr returns a copy of the locator that reads the named attribute.
func (l Locator) WithAttr(attr string) Locator {
	l.Attr = attr
	return l
}

// String renders the locator for logs and provenance fields, e.g.
// "css:h1.ui-pdp-title" or "css:a.ui-pdp-seller__link@href".
func (l Locator) String() string {
	s := string(l.Strategy) + ":" + l.Pattern
	if l.Attr != "" {
		s += "@" + l.Attr
	}
	return s
}
