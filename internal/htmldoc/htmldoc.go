// Package htmldoc implements the page contracts over statically parsed HTML.
// It is the source of choice for fixture-driven tests and for pages that
// render server-side; CSS lookups go through cascadia, XPath through
// htmlquery, both over the same x/net/html tree.
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/meli-tools/meli-scraper/internal/page"
)

// Loader supplies the HTML body for a URL. Hosts plug in HTTPLoader for live
// pages; tests use MapLoader with fixture documents.
type Loader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, url string) (string, error)

func (f LoaderFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// MapLoader serves fixture documents keyed by URL.
type MapLoader map[string]string

func (m MapLoader) Fetch(_ context.Context, url string) (string, error) {
	body, ok := m[url]
	if !ok {
		return "", fmt.Errorf("no document for %s", url)
	}
	return body, nil
}

// HTTPLoader fetches documents with a plain HTTP client. It sees exactly
// what the server sends; nothing is executed client-side.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
}

func (h *HTTPLoader) Fetch(ctx context.Context, url string) (string, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

var errNotLoaded = errors.New("no document loaded")

// Session is a page.Source over statically parsed documents. Load replaces
// the whole tree, which is how a browser navigation behaves from the
// extractor's point of view.
type Session struct {
	loader Loader
	root   *html.Node
	url    string
}

func NewSession(loader Loader) *Session {
	return &Session{loader: loader}
}

func (s *Session) Load(ctx context.Context, url string) error {
	body, err := s.loader.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	s.root = root
	s.url = url
	return nil
}

// WaitForAny resolves immediately: a static document is complete the moment
// it is parsed, so presence now is presence forever.
func (s *Session) WaitForAny(_ context.Context, locs []page.Locator, _ time.Duration) (bool, error) {
	for _, loc := range locs {
		_, err := s.Find(loc)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, page.ErrNoSuchElement) {
			return false, err
		}
	}
	return false, nil
}

func (s *Session) Find(loc page.Locator) (page.Element, error) {
	if s.root == nil {
		return nil, errNotLoaded
	}
	return findFirst(s.root, loc)
}

func (s *Session) FindAll(loc page.Locator) ([]page.Element, error) {
	if s.root == nil {
		return nil, errNotLoaded
	}
	return findEvery(s.root, loc)
}

func (s *Session) Close() error { return nil }

// Document is a parsed HTML fragment usable directly as a page.Node, which
// keeps extractor tests one Parse call away from assertions.
type Document struct {
	root *html.Node
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

func ParseString(body string) (*Document, error) {
	return Parse(strings.NewReader(body))
}

func (d *Document) Find(loc page.Locator) (page.Element, error) {
	return findFirst(d.root, loc)
}

func (d *Document) FindAll(loc page.Locator) ([]page.Element, error) {
	return findEvery(d.root, loc)
}

type element struct {
	node *html.Node
	sel  *goquery.Selection
}

func newElement(n *html.Node) *element {
	return &element{node: n, sel: goquery.NewDocumentFromNode(n).Selection}
}

func (e *element) Find(loc page.Locator) (page.Element, error) {
	return findFirst(e.node, loc)
}

func (e *element) FindAll(loc page.Locator) ([]page.Element, error) {
	return findEvery(e.node, loc)
}

func (e *element) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *element) Attribute(name string) (string, error) {
	v, _ := e.sel.Attr(name)
	return v, nil
}

func (e *element) ScrollIntoView() error { return nil }

func findFirst(root *html.Node, loc page.Locator) (page.Element, error) {
	switch loc.Strategy {
	case page.ByCSS:
		sel, err := cascadia.Parse(loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("css pattern %q: %w", loc.Pattern, err)
		}
		n := cascadia.Query(root, sel)
		if n == nil {
			return nil, page.ErrNoSuchElement
		}
		return newElement(n), nil
	case page.ByXPath:
		n, err := htmlquery.Query(root, loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("xpath %q: %w", loc.Pattern, err)
		}
		if n == nil {
			return nil, page.ErrNoSuchElement
		}
		return newElement(n), nil
	default:
		return nil, fmt.Errorf("unknown locator strategy %q", loc.Strategy)
	}
}

func findEvery(root *html.Node, loc page.Locator) ([]page.Element, error) {
	var nodes []*html.Node
	switch loc.Strategy {
	case page.ByCSS:
		sel, err := cascadia.Parse(loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("css pattern %q: %w", loc.Pattern, err)
		}
		nodes = cascadia.QueryAll(root, sel)
	case page.ByXPath:
		found, err := htmlquery.QueryAll(root, loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("xpath %q: %w", loc.Pattern, err)
		}
		nodes = found
	default:
		return nil, fmt.Errorf("unknown locator strategy %q", loc.Strategy)
	}

	els := make([]page.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, newElement(n))
	}
	return els, nil
}
