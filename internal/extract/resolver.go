// Package extract implements the building blocks of field extraction: the
// locator-chain resolver, the value normalizers, and the structured-data
// reconciler. Everything here works against the page capability interfaces,
// never against a concrete browser.
package extract

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/meli-tools/meli-scraper/internal/page"
)

// Field is one extracted value together with its provenance: the locator (or
// reconciliation source) that produced it. A field that no locator resolved
// keeps Found false and is rendered as an explicit null downstream.
type Field struct {
	Value  string
	Found  bool
	Source string
}

// FieldFrom tags a value produced outside a locator chain, such as a
// structured-data fallback or a URL-derived identifier.
func FieldFrom(value, source string) Field {
	return Field{Value: value, Found: true, Source: source}
}

// Resolver walks locator chains in priority order and keeps the first
// non-empty value. Misses are expected and silent; only capability faults
// become errors.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("component", "resolver")}
}

// Resolve tries each locator in order against node. A locator that matches
// nothing, or whose element yields an empty value, is a miss and the chain
// continues. Any other failure aborts the chain with *InfrastructureError.
// A chain that exhausts without a hit returns an absent Field and no error.
func (r *Resolver) Resolve(node page.Node, locs []page.Locator) (Field, error) {
	for _, loc := range locs {
		el, err := node.Find(loc)
		if errors.Is(err, page.ErrNoSuchElement) {
			continue
		}
		if err != nil {
			return Field{}, &InfrastructureError{Op: "find", Locator: loc.String(), Err: err}
		}

		val, err := readValue(el, loc)
		if err != nil {
			return Field{}, &InfrastructureError{Op: "read", Locator: loc.String(), Err: err}
		}
		if val == "" {
			continue
		}

		r.logger.Debug("locator hit", "locator", loc.String(), "value", truncate(val, 60))
		return Field{Value: val, Found: true, Source: loc.String()}, nil
	}
	return Field{}, nil
}

// ResolveIn scopes resolution to a previously found element. Same contract
// as Resolve; it exists to make per-row extraction sites read naturally.
func (r *Resolver) ResolveIn(el page.Element, locs []page.Locator) (Field, error) {
	return r.Resolve(el, locs)
}

func readValue(el page.Element, loc page.Locator) (string, error) {
	if loc.Attr != "" {
		v, err := el.Attribute(loc.Attr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(v), nil
	}
	v, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
