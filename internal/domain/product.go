package domain

// Product is a single marketplace item returned by the affiliate search.
type Product struct {
	ID           string  `json:"productId"`
	Name         string  `json:"productName"`
	Price        int     `json:"productPrice"`
	ImageURL     string  `json:"productImage"`
	URL          string  `json:"productUrl"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"reviewCount"`
	IsRocket     bool    `json:"isRocket"`
	CategoryName string  `json:"categoryName"`
}

// PriceRange summarises one price tier of a product set.
type PriceRange struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Count int `json:"count"`
}

// PriceRangeInfo holds the low/mid/high tier summaries of a product set.
type PriceRangeInfo struct {
	Low  PriceRange `json:"low"`
	Mid  PriceRange `json:"mid"`
	High PriceRange `json:"high"`
}
