// Package models holds the published record shapes. Optional fields are
// pointers and are marshaled without omitempty on purpose: a consumer must
// be able to tell "extractor looked and found nothing" (explicit null) from
// a field that simply is not part of the schema.
package models

import "time"

// ProductRecord is the envelope published for one product page capture.
type ProductRecord struct {
	SourceURL    string       `json:"source_url"`
	CapturedAt   time.Time    `json:"captured_at"`
	Product      ProductInfo  `json:"product"`
	Pricing      Pricing      `json:"pricing"`
	Availability Availability `json:"availability"`
	Seller       Seller       `json:"seller"`
	Shipping     Shipping     `json:"shipping"`
	SocialProof  SocialProof  `json:"social_proof"`
}

type ProductInfo struct {
	Title       *string           `json:"title"`
	Brand       *string           `json:"brand"`
	Model       *string           `json:"model"`
	MLProductID *string           `json:"ml_product_id"`
	ListingID   *string           `json:"listing_id"`
	Breadcrumbs []string          `json:"breadcrumbs"`
	Description *string           `json:"description"`
	Attributes  map[string]string `json:"attributes"`
	Images      []string          `json:"images"`
	Variations  Variations        `json:"variations"`
}

// Variations maps a variation group name ("Cor", "Tamanho") to its rendered
// options, plus the option marked selected on the captured page.
type Variations struct {
	Active  map[string]string   `json:"active"`
	Options map[string][]string `json:"options"`
}

type Pricing struct {
	Price         *float64     `json:"price"`
	Currency      string       `json:"currency"`
	OriginalPrice *float64     `json:"original_price"`
	Installments  Installments `json:"installments"`
}

type Installments struct {
	Count        *int     `json:"count"`
	Amount       *float64 `json:"amount"`
	InterestFree *bool    `json:"interest_free"`
}

// Availability is three-state: both fields nil means the page said nothing
// either way, which is different from in stock or sold out.
type Availability struct {
	InStock      *bool   `json:"in_stock"`
	StockMessage *string `json:"stock_message"`
}

type Seller struct {
	Name            *string `json:"name"`
	ProfileURL      *string `json:"profile_url"`
	IsOfficialStore *bool   `json:"is_official_store"`
	ReputationBadge *string `json:"reputation_badge"`
	Location        *string `json:"location"`
}

// Shipping is part of the published schema but not yet extracted; every
// capture carries it as explicit nulls.
type Shipping struct {
	IsFull            *bool   `json:"is_full"`
	FreeShipping      *bool   `json:"free_shipping"`
	ShippingMessage   *string `json:"shipping_message"`
	EstimatedDelivery *string `json:"estimated_delivery"`
}

type SocialProof struct {
	RatingAverage *float64 `json:"rating_average"`
	RatingCount   *int     `json:"rating_count"`
	QnACount      *int     `json:"qna_count"`
}

// NewProductRecord returns a record with the capture timestamp set and every
// collection initialized, so an empty capture still marshals as [] and {}
// rather than null.
func NewProductRecord(sourceURL string) *ProductRecord {
	return &ProductRecord{
		SourceURL:  sourceURL,
		CapturedAt: time.Now().UTC().Truncate(time.Second),
		Product: ProductInfo{
			Breadcrumbs: []string{},
			Attributes:  map[string]string{},
			Images:      []string{},
			Variations:  NewVariations(),
		},
		Pricing: Pricing{Currency: "BRL"},
	}
}

func NewVariations() Variations {
	return Variations{
		Active:  map[string]string{},
		Options: map[string][]string{},
	}
}
