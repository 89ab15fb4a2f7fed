package models

// SearchResultItem is one entry collected from a results listing. Price
// stays the raw display string: listing cards render promotional prices in
// several shapes and the product page is the authority on the real amount.
type SearchResultItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Price string `json:"price"`
}
