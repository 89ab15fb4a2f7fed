package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meli-tools/meli-scraper/internal/extract"
	"github.com/meli-tools/meli-scraper/internal/models"
	"github.com/meli-tools/meli-scraper/internal/page"
)

// DefaultReadyTimeout bounds the wait for a product page to render its
// essential elements before the capture gives up.
const DefaultReadyTimeout = 20 * time.Second

// ProductScraper captures one product page into a ProductRecord. Individual
// fields degrade to explicit nulls when the page does not carry them; the
// capture as a whole fails only when the page never renders or when neither
// title nor price could be extracted.
type ProductScraper struct {
	resolver     *extract.Resolver
	readyTimeout time.Duration
	logger       *slog.Logger
}

func NewProductScraper(logger *slog.Logger, readyTimeout time.Duration) *ProductScraper {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &ProductScraper{
		resolver:     extract.NewResolver(logger),
		readyTimeout: readyTimeout,
		logger:       logger.With("component", "product_scraper"),
	}
}

// Scrape loads url in src and assembles the record. It returns
// ErrProductNotAvailable when the page never becomes a product page, and an
// *extract.InfrastructureError (wrapped) when the source itself breaks
// mid-capture.
func (ps *ProductScraper) Scrape(ctx context.Context, src page.Source, url string) (*models.ProductRecord, error) {
	logger := ps.logger.With("capture_id", uuid.NewString(), "url", url)
	logger.Info("starting product capture")

	if err := src.Load(ctx, url); err != nil {
		return nil, fmt.Errorf("load product page: %w", err)
	}

	ready, err := src.WaitForAny(ctx, readinessLocators, ps.readyTimeout)
	if err != nil {
		return nil, fmt.Errorf("wait for product page: %w", err)
	}
	if !ready {
		return nil, fmt.Errorf("%w: page never rendered its essential elements", ErrProductNotAvailable)
	}

	structured := extract.ProductJSONLD(src, logger)
	rec := models.NewProductRecord(url)

	if err := ps.extractTitle(src, structured, rec, logger); err != nil {
		return nil, err
	}
	if err := ps.extractPricing(src, rec, logger); err != nil {
		return nil, err
	}
	if err := ps.extractAvailability(src, rec); err != nil {
		return nil, err
	}
	ps.extractVariations(src, rec, logger)
	if err := ps.extractSeller(src, rec); err != nil {
		return nil, err
	}
	if err := ps.extractSocialProof(src, rec, logger); err != nil {
		return nil, err
	}
	if err := ps.extractDescription(src, rec, logger); err != nil {
		return nil, err
	}
	ps.extractAttributes(src, rec, logger)
	ps.extractBrandModel(structured, rec, logger)
	ps.extractImages(src, structured, rec, logger)
	ps.extractBreadcrumbs(src, rec, logger)

	if id := productIDPattern.FindString(url); id != "" {
		rec.Product.MLProductID = &id
	}

	if rec.Product.Title == nil && rec.Pricing.Price == nil {
		return nil, fmt.Errorf("%w: neither title nor price could be extracted", ErrProductNotAvailable)
	}

	logger.Info("product capture complete",
		"title_found", rec.Product.Title != nil,
		"price_found", rec.Pricing.Price != nil,
		"images", len(rec.Product.Images),
		"attributes", len(rec.Product.Attributes),
	)
	return rec, nil
}

func (ps *ProductScraper) extractTitle(src page.Source, structured extract.ProductData, rec *models.ProductRecord, logger *slog.Logger) error {
	title, err := ps.resolve(src, titleLocators, "title")
	if err != nil {
		return err
	}
	if !title.Found {
		if name, ok := structured.Name(); ok {
			title = extract.FieldFrom(name, "json-ld:name")
			logger.Debug("structured data fallback", "field", "title")
		}
	}
	if title.Found {
		rec.Product.Title = &title.Value
	}
	return nil
}

func (ps *ProductScraper) extractPricing(src page.Source, rec *models.ProductRecord, logger *slog.Logger) error {
	fraction, err := ps.resolve(src, priceFractionLocators, "price")
	if err != nil {
		return err
	}
	if fraction.Found {
		amount, err := extract.Amount(fraction.Value)
		if err != nil {
			logger.Debug("price not parseable", "raw", fraction.Value, "error", err)
		} else {
			rec.Pricing.Price = &amount
		}
	}

	cents, err := ps.resolve(src, priceCentsLocators, "price cents")
	if err != nil {
		return err
	}
	if rec.Pricing.Price != nil && cents.Found {
		if v, ok := extract.CompositeAmount(*rec.Pricing.Price, cents.Value); ok {
			*rec.Pricing.Price = v
		}
	}

	original, err := ps.resolve(src, originalPriceLocators, "original price")
	if err != nil {
		return err
	}
	if original.Found {
		if amount, err := extract.Amount(original.Value); err == nil {
			rec.Pricing.OriginalPrice = &amount
		}
	}

	installments, err := ps.resolve(src, installmentsLocators, "installments")
	if err != nil {
		return err
	}
	if installments.Found {
		rec.Pricing.Installments = parseInstallments(installments.Value)
	}
	return nil
}

// parseInstallments picks the plan out of copy like "em 12x R$ 104,08 sem
// juros". Copy that does not mention a plan leaves every field null.
func parseInstallments(text string) models.Installments {
	var inst models.Installments
	m := installmentsPattern.FindStringSubmatch(text)
	if m == nil {
		return inst
	}
	if n, err := extract.Count(m[1]); err == nil {
		inst.Count = &n
	}
	if amount, err := extract.Amount(m[2]); err == nil {
		inst.Amount = &amount
	}
	free := strings.Contains(strings.ToLower(text), interestFreeMarker)
	inst.InterestFree = &free
	return inst
}

func (ps *ProductScraper) extractAvailability(src page.Source, rec *models.ProductRecord) error {
	msg, err := ps.resolve(src, stockMessageLocators, "stock message")
	if err != nil {
		return err
	}
	if !msg.Found {
		// No stock copy on the page: availability stays unknown.
		return nil
	}
	rec.Availability.StockMessage = &msg.Value
	inStock := !extract.SoldOut(msg.Value)
	rec.Availability.InStock = &inStock
	return nil
}

func (ps *ProductScraper) extractVariations(src page.Source, rec *models.ProductRecord, logger *slog.Logger) {
	ps.scrollTo(src, logger, variationsSectionLocator)

	sections, err := src.FindAll(variationsSectionLocator)
	if err != nil {
		logger.Warn("variation lookup failed", "error", err)
		return
	}
	for _, section := range sections {
		nameEl, err := section.Find(variationNameLocator)
		if err != nil {
			if !errors.Is(err, page.ErrNoSuchElement) {
				logger.Warn("variation group unreadable", "error", err)
			}
			continue
		}
		name := elementText(nameEl)
		if name == "" {
			continue
		}

		items, err := section.FindAll(variationOptionLocator)
		if err != nil {
			logger.Warn("variation options unreadable", "group", name, "error", err)
			continue
		}
		options := []string{}
		for _, item := range items {
			if txt := elementText(item); txt != "" {
				options = append(options, txt)
			}
		}
		rec.Product.Variations.Options[name] = options

		selected, err := section.Find(variationSelectedLocator)
		switch {
		case errors.Is(err, page.ErrNoSuchElement):
			// Group rendered without a preselected option.
		case err != nil:
			logger.Warn("selected variation unreadable", "group", name, "error", err)
		default:
			if txt := elementText(selected); txt != "" {
				rec.Product.Variations.Active[name] = txt
			}
		}
	}
}

func (ps *ProductScraper) extractSeller(src page.Source, rec *models.ProductRecord) error {
	name, err := ps.resolve(src, sellerNameLocators, "seller name")
	if err != nil {
		return err
	}
	if name.Found {
		rec.Seller.Name = &name.Value
	}

	profile, err := ps.resolve(src, sellerProfileLocators, "seller profile")
	if err != nil {
		return err
	}
	if profile.Found {
		rec.Seller.ProfileURL = &profile.Value
	}

	reputation, err := ps.resolve(src, sellerReputationLocators, "seller reputation")
	if err != nil {
		return err
	}
	if reputation.Found {
		rec.Seller.ReputationBadge = &reputation.Value
	}
	return nil
}

func (ps *ProductScraper) extractSocialProof(src page.Source, rec *models.ProductRecord, logger *slog.Logger) error {
	rating, err := ps.resolve(src, ratingAverageLocators, "rating average")
	if err != nil {
		return err
	}
	if rating.Found {
		if v, err := extract.Decimal(rating.Value); err == nil {
			rec.SocialProof.RatingAverage = &v
		} else {
			logger.Debug("rating not parseable", "raw", rating.Value, "error", err)
		}
	}

	count, err := ps.resolve(src, ratingCountLocators, "rating count")
	if err != nil {
		return err
	}
	if count.Found {
		if n, err := extract.Count(count.Value); err == nil {
			rec.SocialProof.RatingCount = &n
		}
	}

	qna, err := ps.resolve(src, qnaCountLocators, "qna count")
	if err != nil {
		return err
	}
	if qna.Found {
		if n, err := extract.Count(qna.Value); err == nil {
			rec.SocialProof.QnACount = &n
		}
	}
	return nil
}

func (ps *ProductScraper) extractDescription(src page.Source, rec *models.ProductRecord, logger *slog.Logger) error {
	ps.scrollTo(src, logger, descriptionLocators...)

	desc, err := ps.resolve(src, descriptionLocators, "description")
	if err != nil {
		return err
	}
	if desc.Found {
		rec.Product.Description = &desc.Value
	}
	return nil
}

// extractAttributes walks the spec sheet tables row by row; a row missing
// its header or value cell is skipped, never fatal.
func (ps *ProductScraper) extractAttributes(src page.Source, rec *models.ProductRecord, logger *slog.Logger) {
	ps.scrollTo(src, logger, specsTableLocator)

	tables, err := src.FindAll(specsTableLocator)
	if err != nil {
		logger.Warn("spec table lookup failed", "error", err)
		return
	}
	for _, table := range tables {
		rows, err := table.FindAll(specsRowLocator)
		if err != nil {
			logger.Warn("spec rows unreadable", "error", err)
			continue
		}
		for _, row := range rows {
			keyEl, err := row.Find(specsKeyLocator)
			if err != nil {
				continue
			}
			valEl, err := row.Find(specsValueLocator)
			if err != nil {
				continue
			}
			key := elementText(keyEl)
			val := elementText(valEl)
			if key == "" || val == "" {
				continue
			}
			rec.Product.Attributes[key] = val
		}
	}
}

// extractBrandModel prefers the spec sheet; structured data only fills what
// the document did not carry.
func (ps *ProductScraper) extractBrandModel(structured extract.ProductData, rec *models.ProductRecord, logger *slog.Logger) {
	if v, ok := rec.Product.Attributes[brandAttributeKey]; ok && v != "" {
		rec.Product.Brand = &v
	} else if brand, ok := structured.Brand(); ok {
		rec.Product.Brand = &brand
		logger.Debug("structured data fallback", "field", "brand")
	}

	if v, ok := rec.Product.Attributes[modelAttributeKey]; ok && v != "" {
		rec.Product.Model = &v
	} else if model, ok := structured.Model(); ok {
		rec.Product.Model = &model
		logger.Debug("structured data fallback", "field", "model")
	}
}

func (ps *ProductScraper) extractImages(src page.Source, structured extract.ProductData, rec *models.ProductRecord, logger *slog.Logger) {
	ps.scrollTo(src, logger, gallerySectionLocator)

	imgs, err := src.FindAll(galleryImageLocator)
	if err != nil {
		logger.Warn("gallery lookup failed", "error", err)
	} else {
		seen := make(map[string]bool)
		for _, img := range imgs {
			var u string
			for _, attr := range galleryImageAttrs {
				v, err := img.Attribute(attr)
				if err != nil {
					break
				}
				if v = strings.TrimSpace(v); v != "" {
					u = v
					break
				}
			}
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			rec.Product.Images = append(rec.Product.Images, u)
		}
	}

	if len(rec.Product.Images) == 0 {
		if urls := structured.Images(); len(urls) > 0 {
			rec.Product.Images = append(rec.Product.Images, urls...)
			logger.Debug("structured data fallback", "field", "images", "count", len(urls))
		}
	}
}

func (ps *ProductScraper) extractBreadcrumbs(src page.Source, rec *models.ProductRecord, logger *slog.Logger) {
	crumbs, err := src.FindAll(breadcrumbLocator)
	if err != nil {
		logger.Warn("breadcrumb lookup failed", "error", err)
		return
	}
	for _, crumb := range crumbs {
		if txt := elementText(crumb); txt != "" {
			rec.Product.Breadcrumbs = append(rec.Product.Breadcrumbs, txt)
		}
	}
}

// resolve labels resolver failures with the field being extracted so an
// infrastructure error names what it interrupted.
func (ps *ProductScraper) resolve(node page.Node, locs []page.Locator, field string) (extract.Field, error) {
	f, err := ps.resolver.Resolve(node, locs)
	if err != nil {
		return extract.Field{}, fmt.Errorf("%s: %w", field, err)
	}
	return f, nil
}

// scrollTo brings the first matching section into view so lazy content near
// it hydrates. Scrolling is opportunistic: any failure is logged and
// swallowed, the capture reads whatever is there.
func (ps *ProductScraper) scrollTo(src page.Source, logger *slog.Logger, locs ...page.Locator) {
	for _, loc := range locs {
		el, err := src.Find(loc)
		if errors.Is(err, page.ErrNoSuchElement) {
			continue
		}
		if err != nil {
			logger.Debug("scroll target lookup failed", "locator", loc.String(), "error", err)
			return
		}
		if err := el.ScrollIntoView(); err != nil {
			logger.Debug("scroll failed", "locator", loc.String(), "error", err)
		}
		return
	}
}

func elementText(el page.Element) string {
	txt, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(txt)
}
