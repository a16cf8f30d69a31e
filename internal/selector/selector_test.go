package selector

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/domain"
)

func product(id string, price int, rating float64, reviews int) domain.Product {
	return domain.Product{ID: id, Name: "item " + id, Price: price, Rating: rating, ReviewCount: reviews}
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestSelectProductsEmpty(t *testing.T) {
	t.Parallel()

	got := SelectProducts(nil, DefaultOptions())
	assert.Empty(t, got)
	assert.Nil(t, CalculatePriceRanges(nil))
}

func TestSelectProductsPicksByTierAndSortsByPrice(t *testing.T) {
	t.Parallel()

	// span 1000..10000, cuts at 4000 and 7000
	products := []domain.Product{
		product("l1", 1000, 4.5, 10),
		product("l2", 2000, 4.5, 50),
		product("l3", 3000, 4.5, 30),
		product("l4", 4000, 4.5, 5),
		product("m1", 5000, 4.5, 100),
		product("m2", 6000, 4.5, 80),
		product("m3", 7000, 4.5, 60),
		product("m4", 6500, 4.5, 1),
		product("h1", 8000, 4.5, 40),
		product("h2", 9000, 4.5, 70),
		product("h3", 10000, 4.5, 20),
	}

	got := SelectProducts(products, DefaultOptions())

	// quotas for 7: low 2, mid 3, high 2
	assert.ElementsMatch(t, []string{"l2", "l3", "m1", "m2", "m3", "h2", "h1"}, ids(got))
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Price < got[j].Price }))
}

func TestSelectProductsRelaxesRating(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		product("a", 1000, 4.8, 10),
		product("b", 2000, 4.1, 10),
		product("c", 3000, 3.6, 10),
		product("d", 4000, 3.7, 10),
		product("e", 5000, 3.9, 10),
		product("f", 6000, 3.5, 10),
		product("g", 7000, 3.8, 10),
		product("h", 8000, 2.0, 900),
	}

	got := SelectProducts(products, DefaultOptions())

	require.Len(t, got, 7)
	assert.NotContains(t, ids(got), "h", "fallback rating must still exclude items below it")
	var relaxed bool
	for _, p := range got {
		if p.Rating < 4.0 {
			relaxed = true
			assert.GreaterOrEqual(t, p.Rating, 3.5)
		}
	}
	assert.True(t, relaxed)
}

func TestSelectProductsFallsBackToUnfiltered(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		product("a", 1000, 1.0, 1),
		product("b", 2000, 2.0, 2),
		product("c", 3000, 0, 3),
	}

	got := SelectProducts(products, DefaultOptions())
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestSelectProductsNegativeRatingDisablesFilter(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		product("c", 1000, 1.0, 900),
		product("a", 1100, 4.5, 1),
		product("b", 3000, 4.6, 5),
	}

	got := SelectProducts(products, Options{TargetCount: 2})
	assert.ElementsMatch(t, []string{"a", "b"}, ids(got))

	got = SelectProducts(products, Options{TargetCount: 2, MinRating: -1, FallbackMinRating: -1})
	assert.ElementsMatch(t, []string{"c", "b"}, ids(got))
}

func TestSelectProductsTopsUpFromSkewedTiers(t *testing.T) {
	t.Parallel()

	// everything but one item sits in the low tier
	products := []domain.Product{
		product("a", 100, 4.5, 1),
		product("b", 110, 4.5, 2),
		product("c", 120, 4.5, 3),
		product("d", 130, 4.5, 4),
		product("e", 140, 4.5, 5),
		product("f", 150, 4.5, 6),
		product("g", 160, 4.5, 7),
		product("z", 10000, 4.5, 8),
	}

	got := SelectProducts(products, DefaultOptions())

	require.Len(t, got, 7)
	assert.Contains(t, ids(got), "z")
	assert.NotContains(t, ids(got), "a", "top-up takes the most reviewed leftovers")
}

func TestSelectProductsSamePrice(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		product("a", 500, 4.5, 1),
		product("b", 500, 4.5, 3),
		product("c", 500, 4.5, 2),
	}

	got := SelectProducts(products, Options{TargetCount: 2})
	assert.ElementsMatch(t, []string{"b", "c"}, ids(got))
}

func TestSelectProductsProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(20)
		products := make([]domain.Product, n)
		for i := range products {
			products[i] = product(
				fmt.Sprintf("p%d", i),
				rng.Intn(100000)+100,
				float64(rng.Intn(51))/10,
				rng.Intn(5000),
			)
		}
		target := rng.Intn(12) + 1

		got := SelectProducts(products, Options{TargetCount: target})

		want := target
		if n < want {
			want = n
		}
		require.Len(t, got, want, "iteration %d", iter)

		seen := map[string]bool{}
		for i, p := range got {
			require.False(t, seen[p.ID], "duplicate %s", p.ID)
			seen[p.ID] = true
			if i > 0 {
				require.LessOrEqual(t, got[i-1].Price, p.Price)
			}
		}

		ranges := CalculatePriceRanges(products)
		if n == 0 {
			require.Nil(t, ranges)
			continue
		}
		require.NotNil(t, ranges)
		require.Equal(t, n, ranges.Low.Count+ranges.Mid.Count+ranges.High.Count)
	}
}

func TestCalculatePriceRanges(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		product("a", 1000, 4, 1),
		product("b", 4000, 4, 1),
		product("c", 5000, 4, 1),
		product("d", 10000, 4, 1),
	}

	got := CalculatePriceRanges(products)
	require.NotNil(t, got)
	assert.Equal(t, domain.PriceRange{Min: 1000, Max: 4000, Count: 2}, got.Low)
	assert.Equal(t, domain.PriceRange{Min: 5000, Max: 5000, Count: 1}, got.Mid)
	assert.Equal(t, domain.PriceRange{Min: 10000, Max: 10000, Count: 1}, got.High)
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	text := Recommendations(&domain.PriceRangeInfo{
		Low:  domain.PriceRange{Min: 12900, Max: 19800, Count: 2},
		High: domain.PriceRange{Min: 159000, Max: 159000, Count: 1},
	})

	assert.Contains(t, text, "12,900원 ~ 19,800원")
	assert.Contains(t, text, "159,000원")
	assert.NotContains(t, text, "Mid-range")
	assert.Empty(t, Recommendations(nil))
}
