package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meli-tools/meli-scraper/internal/extract"
	"github.com/meli-tools/meli-scraper/internal/htmldoc"
	"github.com/meli-tools/meli-scraper/internal/models"
	"github.com/meli-tools/meli-scraper/internal/page"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrapeFixture(t *testing.T, url, html string) (*models.ProductRecord, error) {
	t.Helper()
	session := htmldoc.NewSession(htmldoc.MapLoader{url: html})
	defer session.Close()

	ps := NewProductScraper(testLogger(), time.Second)
	return ps.Scrape(context.Background(), session, url)
}

const productPage = `<!DOCTYPE html>
<html>
<head>
	<script type="application/ld+json">
	{"@context":"https://schema.org","@type":"Product","name":"Structured Name","brand":{"@type":"Brand","name":"Structured Brand"},"model":"SM-STRUCT","image":["https://http2.mlstatic.com/D_LD-1.jpg"]}
	</script>
</head>
<body>
	<nav class="andes-breadcrumb">
		<ol>
			<li>Celulares e Telefones</li>
			<li>Celulares e Smartphones</li>
		</ol>
	</nav>
	<h1 class="ui-pdp-title">Samsung Galaxy A54 5G 128 GB Preto</h1>
	<s class="ui-pdp-price__original-value"><span class="andes-money-amount__fraction">1.899</span></s>
	<span class="price-tag-fraction">1.529</span>
	<span class="price-tag-cents">90</span>
	<div class="ui-pdp-price__subtitles">em 12x R$ 127,49 sem juros</div>
	<span class="ui-pdp-stock-information__title">Estoque disponível</span>
	<section class="ui-pdp-variations">
		<span class="ui-pdp-variations__subtitle">Cor</span>
		<ul>
			<li class="ui-pdp-variations__item ui-pdp-variations__item--selected">Preto</li>
			<li class="ui-pdp-variations__item">Branco</li>
			<li class="ui-pdp-variations__item">Verde Lima</li>
		</ul>
	</section>
	<a class="ui-pdp-seller__link" href="https://www.mercadolivre.com.br/perfil/TECHSTORE">TECHSTORE</a>
	<span class="ui-pdp-seller__reputation-title">MercadoLíder Platinum</span>
	<span class="ui-pdp-review__rating">4,8</span>
	<span class="ui-review-preview__quantity">(3.026)</span>
	<section class="ui-pdp-questions"><span>128 perguntas</span></section>
	<div class="ui-pdp-description__content">Celular com tela Super AMOLED de 6,4 polegadas.</div>
	<table class="ui-pdp-specs__table">
		<tr><th>Marca</th><td>Samsung</td></tr>
		<tr><th>Modelo</th><td>SM-A546E</td></tr>
		<tr><th>Memória interna</th><td>128 GB</td></tr>
		<tr><td>linha sem cabeçalho</td></tr>
	</table>
	<section class="ui-pdp-gallery">
		<figure class="ui-pdp-gallery__figure"><img data-zoom="https://http2.mlstatic.com/D_1-F.jpg" src="https://http2.mlstatic.com/D_1-T.jpg"></figure>
		<figure class="ui-pdp-gallery__figure"><img src="https://http2.mlstatic.com/D_2-T.jpg"></figure>
		<figure class="ui-pdp-gallery__figure"><img data-zoom="https://http2.mlstatic.com/D_1-F.jpg" src="https://http2.mlstatic.com/D_1-T2.jpg"></figure>
	</section>
</body>
</html>`

func TestScrapeCompleteProductPage(t *testing.T) {
	url := "https://www.mercadolivre.com.br/samsung-galaxy-a54/p/MLB22546333"
	rec, err := scrapeFixture(t, url, productPage)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, url, rec.SourceURL)
	assert.False(t, rec.CapturedAt.IsZero())

	t.Run("Product identity", func(t *testing.T) {
		require.NotNil(t, rec.Product.Title)
		assert.Equal(t, "Samsung Galaxy A54 5G 128 GB Preto", *rec.Product.Title)

		require.NotNil(t, rec.Product.Brand)
		assert.Equal(t, "Samsung", *rec.Product.Brand, "spec sheet must win over structured data")
		require.NotNil(t, rec.Product.Model)
		assert.Equal(t, "SM-A546E", *rec.Product.Model)

		require.NotNil(t, rec.Product.MLProductID)
		assert.Equal(t, "MLB22546333", *rec.Product.MLProductID)
		assert.Nil(t, rec.Product.ListingID)

		assert.Equal(t, []string{"Celulares e Telefones", "Celulares e Smartphones"}, rec.Product.Breadcrumbs)

		require.NotNil(t, rec.Product.Description)
		assert.Equal(t, "Celular com tela Super AMOLED de 6,4 polegadas.", *rec.Product.Description)
	})

	t.Run("Pricing", func(t *testing.T) {
		require.NotNil(t, rec.Pricing.Price)
		assert.Equal(t, 1529.90, *rec.Pricing.Price)
		assert.Equal(t, "BRL", rec.Pricing.Currency)

		require.NotNil(t, rec.Pricing.OriginalPrice)
		assert.Equal(t, 1899.0, *rec.Pricing.OriginalPrice)

		require.NotNil(t, rec.Pricing.Installments.Count)
		assert.Equal(t, 12, *rec.Pricing.Installments.Count)
		require.NotNil(t, rec.Pricing.Installments.Amount)
		assert.Equal(t, 127.49, *rec.Pricing.Installments.Amount)
		require.NotNil(t, rec.Pricing.Installments.InterestFree)
		assert.True(t, *rec.Pricing.Installments.InterestFree)
	})

	t.Run("Availability", func(t *testing.T) {
		require.NotNil(t, rec.Availability.InStock)
		assert.True(t, *rec.Availability.InStock)
		require.NotNil(t, rec.Availability.StockMessage)
		assert.Equal(t, "Estoque disponível", *rec.Availability.StockMessage)
	})

	t.Run("Variations", func(t *testing.T) {
		assert.Equal(t, map[string]string{"Cor": "Preto"}, rec.Product.Variations.Active)
		assert.Equal(t, map[string][]string{
			"Cor": {"Preto", "Branco", "Verde Lima"},
		}, rec.Product.Variations.Options)
	})

	t.Run("Seller", func(t *testing.T) {
		require.NotNil(t, rec.Seller.Name)
		assert.Equal(t, "TECHSTORE", *rec.Seller.Name)
		require.NotNil(t, rec.Seller.ProfileURL)
		assert.Equal(t, "https://www.mercadolivre.com.br/perfil/TECHSTORE", *rec.Seller.ProfileURL)
		require.NotNil(t, rec.Seller.ReputationBadge)
		assert.Equal(t, "MercadoLíder Platinum", *rec.Seller.ReputationBadge)
		assert.Nil(t, rec.Seller.IsOfficialStore)
		assert.Nil(t, rec.Seller.Location)
	})

	t.Run("Social proof", func(t *testing.T) {
		require.NotNil(t, rec.SocialProof.RatingAverage)
		assert.Equal(t, 4.8, *rec.SocialProof.RatingAverage)
		require.NotNil(t, rec.SocialProof.RatingCount)
		assert.Equal(t, 3026, *rec.SocialProof.RatingCount)
		require.NotNil(t, rec.SocialProof.QnACount)
		assert.Equal(t, 128, *rec.SocialProof.QnACount)
	})

	t.Run("Attributes", func(t *testing.T) {
		assert.Equal(t, map[string]string{
			"Marca":           "Samsung",
			"Modelo":          "SM-A546E",
			"Memória interna": "128 GB",
		}, rec.Product.Attributes)
	})

	t.Run("Images deduplicated in document order", func(t *testing.T) {
		assert.Equal(t, []string{
			"https://http2.mlstatic.com/D_1-F.jpg",
			"https://http2.mlstatic.com/D_2-T.jpg",
		}, rec.Product.Images)
	})

	t.Run("Shipping stays explicit null", func(t *testing.T) {
		assert.Nil(t, rec.Shipping.IsFull)
		assert.Nil(t, rec.Shipping.FreeShipping)
		assert.Nil(t, rec.Shipping.ShippingMessage)
		assert.Nil(t, rec.Shipping.EstimatedDelivery)
	})
}

func TestScrapeStructuredDataBackfill(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head>
	<script type="application/ld+json">
	{"@type":"Product","name":"Cartucho HP 667 Tricolor","brand":"HP","model":"667","image":"https://http2.mlstatic.com/D_667-F.jpg"}
	</script>
</head>
<body>
	<span class="price-tag-fraction">79</span>
	<span class="price-tag-cents">90</span>
</body>
</html>`

	rec, err := scrapeFixture(t, "https://www.mercadolivre.com.br/cartucho/p/MLB18005510", html)
	require.NoError(t, err)

	require.NotNil(t, rec.Product.Title)
	assert.Equal(t, "Cartucho HP 667 Tricolor", *rec.Product.Title)
	require.NotNil(t, rec.Product.Brand)
	assert.Equal(t, "HP", *rec.Product.Brand)
	require.NotNil(t, rec.Product.Model)
	assert.Equal(t, "667", *rec.Product.Model)
	assert.Equal(t, []string{"https://http2.mlstatic.com/D_667-F.jpg"}, rec.Product.Images)

	require.NotNil(t, rec.Pricing.Price)
	assert.Equal(t, 79.90, *rec.Pricing.Price)
}

func TestScrapeSoldOutListing(t *testing.T) {
	html := `<html><body>
		<h1 class="ui-pdp-title">Produto raro</h1>
		<span class="ui-pdp-stock-information__title">Produto esgotado</span>
	</body></html>`

	rec, err := scrapeFixture(t, "https://www.mercadolivre.com.br/raro/p/MLB1", html)
	require.NoError(t, err)

	require.NotNil(t, rec.Availability.InStock)
	assert.False(t, *rec.Availability.InStock)
	require.NotNil(t, rec.Availability.StockMessage)
	assert.Equal(t, "Produto esgotado", *rec.Availability.StockMessage)
	assert.Nil(t, rec.Pricing.Price)
}

func TestScrapeDegradesToExplicitNulls(t *testing.T) {
	html := `<html><body>
		<h1 class="ui-pdp-title">Anúncio mínimo</h1>
	</body></html>`

	rec, err := scrapeFixture(t, "https://example.test/minimal", html)
	require.NoError(t, err)

	assert.Nil(t, rec.Availability.InStock, "no stock copy means unknown, not in stock")
	assert.Nil(t, rec.Availability.StockMessage)
	assert.Nil(t, rec.Product.Brand)
	assert.Nil(t, rec.Product.Description)
	assert.Nil(t, rec.Product.MLProductID)
	assert.Nil(t, rec.Pricing.Price)
	assert.Nil(t, rec.Pricing.OriginalPrice)
	assert.Nil(t, rec.SocialProof.RatingAverage)

	assert.NotNil(t, rec.Product.Breadcrumbs)
	assert.Empty(t, rec.Product.Breadcrumbs)
	assert.NotNil(t, rec.Product.Attributes)
	assert.NotNil(t, rec.Product.Images)
	assert.NotNil(t, rec.Product.Variations.Options)
}

func TestScrapeProductNotAvailable(t *testing.T) {
	t.Run("Page never renders product elements", func(t *testing.T) {
		html := `<html><body><p>Página não encontrada</p></body></html>`

		_, err := scrapeFixture(t, "https://example.test/gone", html)
		assert.ErrorIs(t, err, ErrProductNotAvailable)
	})

	t.Run("Neither title nor price extracted", func(t *testing.T) {
		html := `<html><body><section class="ui-pdp-gallery"></section></body></html>`

		_, err := scrapeFixture(t, "https://example.test/empty", html)
		assert.ErrorIs(t, err, ErrProductNotAvailable)
	})
}

func TestScrapeLoadFailure(t *testing.T) {
	session := htmldoc.NewSession(htmldoc.MapLoader{})
	defer session.Close()

	ps := NewProductScraper(testLogger(), time.Second)
	_, err := ps.Scrape(context.Background(), session, "https://example.test/unreachable")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotAvailable)
}

type faultySource struct {
	err error
}

func (f *faultySource) Load(context.Context, string) error {
	return nil
}

func (f *faultySource) WaitForAny(context.Context, []page.Locator, time.Duration) (bool, error) {
	return true, nil
}

func (f *faultySource) Find(page.Locator) (page.Element, error) {
	return nil, f.err
}

func (f *faultySource) FindAll(page.Locator) ([]page.Element, error) {
	return nil, f.err
}

func (f *faultySource) Close() error {
	return nil
}

func TestScrapeSourceFaultEscalates(t *testing.T) {
	src := &faultySource{err: errors.New("target page, context or browser has been closed")}

	ps := NewProductScraper(testLogger(), time.Second)
	_, err := ps.Scrape(context.Background(), src, "https://example.test/broken")

	require.Error(t, err)
	var infra *extract.InfrastructureError
	assert.ErrorAs(t, err, &infra)
}

func TestParseInstallments(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		count        int
		amount       float64
		interestFree bool
		absent       bool
	}{
		{
			name:         "Interest free plan",
			text:         "em 12x R$ 104,08 sem juros",
			count:        12,
			amount:       104.08,
			interestFree: true,
		},
		{
			name:   "Plan with interest",
			text:   "em 10x R$ 39,90",
			count:  10,
			amount: 39.90,
		},
		{
			name:         "Copy with de between count and amount",
			text:         "em 6x de R$ 250 sem juros",
			count:        6,
			amount:       250,
			interestFree: true,
		},
		{
			name:   "No plan in copy",
			text:   "Pagamento à vista no Pix",
			absent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := parseInstallments(tt.text)

			if tt.absent {
				assert.Nil(t, inst.Count)
				assert.Nil(t, inst.Amount)
				assert.Nil(t, inst.InterestFree)
				return
			}

			require.NotNil(t, inst.Count)
			assert.Equal(t, tt.count, *inst.Count)
			require.NotNil(t, inst.Amount)
			assert.Equal(t, tt.amount, *inst.Amount)
			require.NotNil(t, inst.InterestFree)
			assert.Equal(t, tt.interestFree, *inst.InterestFree)
		})
	}
}
