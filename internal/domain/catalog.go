package domain

// CatalogItem is a product as listed by a source, in the canonical export schema.
type CatalogItem struct {
	Barcode   string `json:"barcode" csv:"barcode"`
	ID        string `json:"pid" csv:"pid"`
	ProductNo string `json:"pno" csv:"pno"`
	Name      string `json:"name" csv:"name"`
	Price     int64  `json:"price" csv:"price"`
	Spec      string `json:"spec" csv:"spec"`
	Unit      string `json:"unit" csv:"unit"`
	Keywords  string `json:"keywords" csv:"keywords"`
}

// CatalogFields is the fixed CSV column order.
var CatalogFields = []string{"barcode", "pid", "pno", "name", "price", "spec", "unit", "keywords"}

// ListingPage is one page of a leaf category listing.
type ListingPage struct {
	Items []CatalogItem `json:"items"`
	Total int           `json:"total"` // Total reported by the backend for the whole leaf
}
