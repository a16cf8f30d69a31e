// Package selector ranks a raw product list into a bounded, price-diversified subset.
package selector

import (
	"math"
	"sort"

	"ReviewPublisher/internal/domain"
)

// PriceDistribution is the share of the target count drawn from each tier.
type PriceDistribution struct {
	Low  float64 `yaml:"low" json:"low"`
	Mid  float64 `yaml:"mid" json:"mid"`
	High float64 `yaml:"high" json:"high"`
}

// Options tunes product selection. A zero rating threshold means "use the
// default"; a negative one disables that filter.
type Options struct {
	TargetCount       int               `yaml:"targetCount" json:"targetCount"`
	MinRating         float64           `yaml:"minRating" json:"minRating"`
	FallbackMinRating float64           `yaml:"fallbackMinRating" json:"fallbackMinRating"`
	Distribution      PriceDistribution `yaml:"priceDistribution" json:"priceDistribution"`
}

// DefaultOptions returns the stock selection settings.
func DefaultOptions() Options {
	return Options{
		TargetCount:       7,
		MinRating:         4.0,
		FallbackMinRating: 3.5,
		Distribution:      PriceDistribution{Low: 0.3, Mid: 0.4, High: 0.3},
	}
}

// WithDefaults fills zero fields of o from DefaultOptions. Negative rating
// thresholds are kept.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.TargetCount <= 0 {
		o.TargetCount = def.TargetCount
	}
	if o.MinRating == 0 {
		o.MinRating = def.MinRating
	}
	if o.FallbackMinRating == 0 {
		o.FallbackMinRating = def.FallbackMinRating
	}
	if o.Distribution == (PriceDistribution{}) {
		o.Distribution = def.Distribution
	}
	return o
}

type tiers struct {
	low, mid, high []domain.Product
}

// SelectProducts filters by rating (relaxing the threshold when inventory is
// thin), picks the most reviewed items per price tier and returns them
// cheapest first.
func SelectProducts(products []domain.Product, opts Options) []domain.Product {
	opts = opts.WithDefaults()
	products = uniqueByID(products)
	if len(products) == 0 {
		return []domain.Product{}
	}

	filtered := filterByRating(products, opts.MinRating)
	if len(filtered) < opts.TargetCount {
		filtered = filterByRating(products, opts.FallbackMinRating)
	}
	if len(filtered) < opts.TargetCount {
		filtered = products
	}

	target := opts.TargetCount
	if len(filtered) < target {
		target = len(filtered)
	}

	return selectWithPriceDiversity(filtered, target, opts.Distribution)
}

// CalculatePriceRanges summarises each price tier of products. It returns nil
// for an empty input.
func CalculatePriceRanges(products []domain.Product) *domain.PriceRangeInfo {
	if len(products) == 0 {
		return nil
	}

	t := classify(products)
	return &domain.PriceRangeInfo{
		Low:  summarize(t.low),
		Mid:  summarize(t.mid),
		High: summarize(t.high),
	}
}

func selectWithPriceDiversity(products []domain.Product, target int, dist PriceDistribution) []domain.Product {
	t := classify(products)

	lowQuota := int(math.Round(float64(target) * dist.Low))
	midQuota := int(math.Round(float64(target) * dist.Mid))
	highQuota := target - lowQuota - midQuota
	if highQuota < 0 {
		highQuota = 0
	}

	selected := make([]domain.Product, 0, target)
	selected = append(selected, take(sortByReviewCount(t.low), lowQuota)...)
	selected = append(selected, take(sortByReviewCount(t.mid), midQuota)...)
	selected = append(selected, take(sortByReviewCount(t.high), highQuota)...)
	if len(selected) > target {
		selected = selected[:target]
	}

	if len(selected) < target {
		picked := make(map[string]struct{}, len(selected))
		for _, p := range selected {
			picked[p.ID] = struct{}{}
		}
		for _, p := range sortByReviewCount(products) {
			if len(selected) >= target {
				break
			}
			if _, ok := picked[p.ID]; ok {
				continue
			}
			picked[p.ID] = struct{}{}
			selected = append(selected, p)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Price < selected[j].Price
	})
	return selected
}

// classify splits products into three equal-width price buckets over the
// observed span. Boundary prices go to the lower tier.
func classify(products []domain.Product) tiers {
	if len(products) == 0 {
		return tiers{}
	}

	minPrice, maxPrice := products[0].Price, products[0].Price
	for _, p := range products[1:] {
		if p.Price < minPrice {
			minPrice = p.Price
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}

	span := float64(maxPrice - minPrice)
	lowCut := float64(minPrice) + span/3
	highCut := float64(minPrice) + span*2/3

	var t tiers
	for _, p := range products {
		price := float64(p.Price)
		switch {
		case price <= lowCut:
			t.low = append(t.low, p)
		case price <= highCut:
			t.mid = append(t.mid, p)
		default:
			t.high = append(t.high, p)
		}
	}
	return t
}

func summarize(items []domain.Product) domain.PriceRange {
	if len(items) == 0 {
		return domain.PriceRange{}
	}
	r := domain.PriceRange{Min: items[0].Price, Max: items[0].Price, Count: len(items)}
	for _, p := range items[1:] {
		if p.Price < r.Min {
			r.Min = p.Price
		}
		if p.Price > r.Max {
			r.Max = p.Price
		}
	}
	return r
}

func filterByRating(products []domain.Product, minRating float64) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Rating >= minRating {
			out = append(out, p)
		}
	}
	return out
}

func sortByReviewCount(products []domain.Product) []domain.Product {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReviewCount > sorted[j].ReviewCount
	})
	return sorted
}

func take(products []domain.Product, n int) []domain.Product {
	if n <= 0 {
		return nil
	}
	if n > len(products) {
		n = len(products)
	}
	return products[:n]
}

func uniqueByID(products []domain.Product) []domain.Product {
	seen := make(map[string]struct{}, len(products))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
