package scraper

import (
	"regexp"

	"github.com/meli-tools/meli-scraper/internal/page"
)

// Locator tables for mercadolivre.com.br. These are configuration, not
// logic: when the site ships a new template, the fix lands here and the
// extraction code stays untouched. Order within a chain is the fallback
// priority, current markup first, older and meta-tag variants after.

// readinessLocators are the elements whose appearance means the product page
// actually rendered. None of them showing up is how a dead or blocked
// listing presents.
var readinessLocators = []page.Locator{
	page.CSS("h1.ui-pdp-title"),
	page.CSS("span.price-tag-fraction"),
	page.CSS("section.ui-pdp-gallery"),
}

var titleLocators = []page.Locator{
	page.CSS("h1.ui-pdp-title"),
	page.XPath("//h1[contains(@class,'ui-pdp-title')]"),
	page.Meta("og:title"),
}

// priceFractionLocators feed the pt-BR amount parser; the meta tag carries a
// machine-readable decimal and is kept last as the stable fallback.
var priceFractionLocators = []page.Locator{
	page.CSS("span.price-tag-fraction"),
	page.Attr("meta[itemprop='price']", "content"),
}

var priceCentsLocators = []page.Locator{
	page.CSS("span.price-tag-cents"),
	page.CSS("span.andes-money-amount__cents"),
}

var originalPriceLocators = []page.Locator{
	page.CSS("s.ui-pdp-price__original-value span.andes-money-amount__fraction"),
	page.CSS("s.andes-money-amount--previous span.andes-money-amount__fraction"),
}

var installmentsLocators = []page.Locator{
	page.CSS("div.ui-pdp-price__subtitles"),
	page.CSS("p.ui-pdp-price__subtitles"),
	page.XPath("//p[contains(@class,'ui-pdp-price__subtitles')]"),
}

// installmentsPattern picks count and per-installment amount out of copy
// like "em 12x R$ 104,08 sem juros" or "em 10x de R$ 39,90".
var installmentsPattern = regexp.MustCompile(`(?i)em\s+(\d+)\s*x\s*(?:de\s+)?(?:R\$)?\s*([0-9.,]+)`)

const interestFreeMarker = "sem juros"

var stockMessageLocators = []page.Locator{
	page.CSS("span.ui-pdp-stock-information__title"),
	page.XPath("//p[contains(@class,'ui-pdp-stock')]"),
}

var (
	variationsSectionLocator = page.CSS("section.ui-pdp-variations")
	variationNameLocator     = page.CSS("span.ui-pdp-variations__subtitle")
	variationOptionLocator   = page.CSS("li.ui-pdp-variations__item")
	variationSelectedLocator = page.CSS("li.ui-pdp-variations__item--selected")
)

var sellerNameLocators = []page.Locator{
	page.CSS("a.ui-pdp-seller__link"),
	page.XPath("//a[contains(@href,'/perfil/')]"),
}

var sellerProfileLocators = []page.Locator{
	page.Attr("a.ui-pdp-seller__link", "href"),
	page.XPath("//a[contains(@href,'/perfil/')]").WithAttr("href"),
}

var sellerReputationLocators = []page.Locator{
	page.CSS("span.ui-pdp-seller__reputation-title"),
}

var ratingAverageLocators = []page.Locator{
	page.CSS("span.ui-pdp-review__rating"),
	page.Attr("meta[itemprop='ratingValue']", "content"),
}

var ratingCountLocators = []page.Locator{
	page.CSS("span.ui-review-preview__quantity"),
	page.Attr("meta[itemprop='ratingCount']", "content"),
}

var qnaCountLocators = []page.Locator{
	page.CSS("section.ui-pdp-questions span"),
	page.XPath("//a[contains(.,'Perguntas')]/span"),
}

var descriptionLocators = []page.Locator{
	page.CSS("div.ui-pdp-description__content"),
	page.CSS("p.ui-pdp-description__content"),
	page.CSS("article[data-testid='description']"),
}

var (
	specsTableLocator = page.CSS("table.ui-pdp-specs__table")
	specsRowLocator   = page.CSS("tr")
	specsKeyLocator   = page.CSS("th")
	specsValueLocator = page.CSS("td")
)

var (
	gallerySectionLocator = page.CSS("section.ui-pdp-gallery")
	galleryImageLocator   = page.CSS("figure.ui-pdp-gallery__figure img")
)

// galleryImageAttrs is the per-image attribute fallback chain; the zoom URL
// is the full-resolution asset, src the lazy-loaded thumbnail.
var galleryImageAttrs = []string{"data-zoom", "data-src", "src"}

var breadcrumbLocator = page.CSS("nav.andes-breadcrumb ol li")

// Spec-sheet keys the assembler mines for identity fields.
const (
	brandAttributeKey = "Marca"
	modelAttributeKey = "Modelo"
)

// productIDPattern matches the marketplace item id in canonical product
// URLs, e.g. MLB3828812801.
var productIDPattern = regexp.MustCompile(`MLB\d+`)

// Search listing tables.

var searchItemLocator = page.CSS("li.ui-search-layout__item")

var searchTitleLocators = []page.Locator{
	page.CSS("h2.ui-search-item__title"),
}

var searchLinkLocators = []page.Locator{
	page.Attr("a.ui-search-item__group__element", "href"),
	page.Attr("a.ui-search-link", "href"),
}

var searchPriceLocators = []page.Locator{
	page.CSS("span.andes-money-amount__fraction"),
}

var nextPageLocators = []page.Locator{
	page.Attr("a.andes-pagination__link--next", "href"),
	page.XPath("//li[contains(@class,'andes-pagination__button--next')]/a").WithAttr("href"),
}
