package htmldoc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meli-tools/meli-scraper/internal/page"
)

const fixturePage = `<!DOCTYPE html>
<html>
<head>
	<meta property="og:title" content="Galaxy A54 128GB">
</head>
<body>
	<h1 class="ui-pdp-title">Samsung Galaxy A54 5G 128 GB Preto</h1>
	<ul>
		<li class="option">Preto</li>
		<li class="option selected">Branco</li>
		<li class="option">Verde</li>
	</ul>
	<div class="card">
		<span class="label">inside card</span>
	</div>
	<span class="label">outside card</span>
	<a class="next" href="/page/2">Seguinte</a>
</body>
</html>`

func TestDocumentFind(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	tests := []struct {
		name     string
		locator  page.Locator
		expected string
	}{
		{
			name:     "CSS by class",
			locator:  page.CSS("h1.ui-pdp-title"),
			expected: "Samsung Galaxy A54 5G 128 GB Preto",
		},
		{
			name:     "XPath with class predicate",
			locator:  page.XPath("//h1[contains(@class,'ui-pdp-title')]"),
			expected: "Samsung Galaxy A54 5G 128 GB Preto",
		},
		{
			name:     "CSS compound class",
			locator:  page.CSS("li.option.selected"),
			expected: "Branco",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := doc.Find(tt.locator)
			require.NoError(t, err)

			text, err := el.Text()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestDocumentFindMiss(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	_, err = doc.Find(page.CSS("h2.absent"))
	assert.ErrorIs(t, err, page.ErrNoSuchElement)

	_, err = doc.Find(page.XPath("//h2[contains(@class,'absent')]"))
	assert.ErrorIs(t, err, page.ErrNoSuchElement)
}

func TestDocumentFindBadPattern(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	_, err = doc.Find(page.CSS("li["))
	require.Error(t, err)
	assert.NotErrorIs(t, err, page.ErrNoSuchElement)

	_, err = doc.Find(page.Locator{Strategy: "jquery", Pattern: "h1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, page.ErrNoSuchElement)
}

func TestDocumentFindAll(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	items, err := doc.FindAll(page.CSS("li.option"))
	require.NoError(t, err)
	require.Len(t, items, 3)

	first, err := items[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "Preto", first)

	none, err := doc.FindAll(page.CSS("li.absent"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestElementScopedLookup(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	card, err := doc.Find(page.CSS("div.card"))
	require.NoError(t, err)

	label, err := card.Find(page.CSS("span.label"))
	require.NoError(t, err)

	text, err := label.Text()
	require.NoError(t, err)
	assert.Equal(t, "inside card", text)

	labels, err := card.FindAll(page.CSS("span.label"))
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestElementAttribute(t *testing.T) {
	doc, err := ParseString(fixturePage)
	require.NoError(t, err)

	next, err := doc.Find(page.CSS("a.next"))
	require.NoError(t, err)

	href, err := next.Attribute("href")
	require.NoError(t, err)
	assert.Equal(t, "/page/2", href)

	// An attribute the element does not carry reads as empty, not as an error.
	missing, err := next.Attribute("data-zoom")
	require.NoError(t, err)
	assert.Empty(t, missing)

	meta, err := doc.Find(page.Meta("og:title"))
	require.NoError(t, err)
	content, err := meta.Attribute("content")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy A54 128GB", content)
}

func TestSessionLoadAndQuery(t *testing.T) {
	loader := MapLoader{
		"https://example.test/p/MLB1": fixturePage,
	}
	session := NewSession(loader)
	defer session.Close()

	_, err := session.Find(page.CSS("h1"))
	assert.Error(t, err, "queries before Load must fail")

	require.NoError(t, session.Load(context.Background(), "https://example.test/p/MLB1"))

	el, err := session.Find(page.CSS("h1.ui-pdp-title"))
	require.NoError(t, err)
	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "Samsung Galaxy A54 5G 128 GB Preto", text)

	err = session.Load(context.Background(), "https://example.test/unknown")
	assert.Error(t, err)
}

func TestSessionWaitForAny(t *testing.T) {
	session := NewSession(MapLoader{"https://example.test/p/MLB1": fixturePage})
	require.NoError(t, session.Load(context.Background(), "https://example.test/p/MLB1"))

	found, err := session.WaitForAny(context.Background(), []page.Locator{
		page.CSS("h2.absent"),
		page.CSS("h1.ui-pdp-title"),
	}, time.Second)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = session.WaitForAny(context.Background(), []page.Locator{
		page.CSS("h2.absent"),
	}, time.Second)
	require.NoError(t, err)
	assert.False(t, found)
}
