package extract

import (
	"encoding/json"
	"log/slog"

	"github.com/meli-tools/meli-scraper/internal/page"
)

var jsonLDLocator = page.CSS(`script[type="application/ld+json"]`)

// ProductData is a parsed JSON-LD Product block. It backfills fields the
// locator chains could not resolve; a value extracted from the document
// always wins over a ProductData value.
type ProductData map[string]any

// ProductJSONLD scans the embedded structured-data blocks of a page and
// returns the first one typed "Product". Blocks that fail to parse are
// skipped. Pages without a product block, and pages whose structured data
// cannot be scanned at all, yield nil: structured data is a fallback and its
// absence is never fatal.
func ProductJSONLD(node page.Node, logger *slog.Logger) ProductData {
	blocks, err := node.FindAll(jsonLDLocator)
	if err != nil {
		logger.Warn("structured data scan failed", "error", err)
		return nil
	}
	for _, block := range blocks {
		raw, err := block.Text()
		if err != nil {
			logger.Warn("structured data block unreadable", "error", err)
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			logger.Debug("skipping malformed structured data block", "error", err)
			continue
		}
		if t, _ := data["@type"].(string); t == "Product" {
			return ProductData(data)
		}
	}
	return nil
}

// Name returns the product name, when present and non-empty.
func (p ProductData) Name() (string, bool) { return p.str("name") }

// Model returns the declared model, when present and non-empty.
func (p ProductData) Model() (string, bool) { return p.str("model") }

// Brand handles both shapes the site emits: a bare string and a nested
// {"name": ...} object.
func (p ProductData) Brand() (string, bool) {
	switch b := p["brand"].(type) {
	case string:
		if b != "" {
			return b, true
		}
	case map[string]any:
		if name, ok := b["name"].(string); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// Images returns the image entries; the field may be a single URL or a list.
func (p ProductData) Images() []string {
	switch img := p["image"].(type) {
	case string:
		if img != "" {
			return []string{img}
		}
	case []any:
		var urls []string
		for _, v := range img {
			if s, ok := v.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	}
	return nil
}

func (p ProductData) str(key string) (string, bool) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
