package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/domain"
)

var products = []domain.Product{
	{ID: "1", Name: "Earbuds A", Price: 19900, ImageURL: "https://img.example.com/a.jpg", URL: "https://link.example.com/a", Rating: 4.5, ReviewCount: 120, IsRocket: true},
	{ID: "2", Name: "Earbuds <B>", Price: 59000, ImageURL: "https://img.example.com/b.jpg", URL: "https://link.example.com/b", Rating: 4.1, ReviewCount: 30},
}

func TestFillPlaceholders(t *testing.T) {
	t.Parallel()

	body := `<img src="{{PRODUCT_IMAGE_1}}"><a href="{{PRODUCT_LINK_2}}">buy</a>`
	got := FillPlaceholders(body, products)

	assert.Equal(t, `<img src="https://img.example.com/a.jpg"><a href="https://link.example.com/b">buy</a>`, got)
	assert.Equal(t, body, FillPlaceholders(body, nil))
}

func TestComparisonTable(t *testing.T) {
	t.Parallel()

	table := ComparisonTable(products)

	assert.Contains(t, table, `<table class="product-comparison">`)
	assert.Contains(t, table, "19,900원")
	assert.Contains(t, table, "Earbuds &lt;B&gt;")
	assert.Contains(t, table, "https://img.example.com/b.jpg")
	assert.Equal(t, 2, strings.Count(table, "<tr><td>"))
	assert.Empty(t, ComparisonTable(nil))
}

func TestReplaceImageURLs(t *testing.T) {
	t.Parallel()

	body := AppendComparisonTable(`<p>intro</p><img src="https://img.example.com/a.jpg" alt="a">`, products)
	got, err := ReplaceImageURLs(body, map[string]string{
		"https://img.example.com/a.jpg": "https://blog.example.com/wp-content/uploads/a.webp",
	})
	require.NoError(t, err)

	assert.NotContains(t, got, "https://img.example.com/a.jpg")
	assert.Equal(t, 2, strings.Count(got, "https://blog.example.com/wp-content/uploads/a.webp"))
	assert.Contains(t, got, "https://img.example.com/b.jpg")
}

func TestRemoveImages(t *testing.T) {
	t.Parallel()

	body := AppendComparisonTable(`<div class="product-card"><img src="https://img.example.com/b.jpg"/><h3>B</h3></div>`, products)
	got, err := RemoveImages(body, []string{"https://img.example.com/b.jpg"})
	require.NoError(t, err)

	assert.NotContains(t, got, "https://img.example.com/b.jpg")
	assert.Contains(t, got, "https://img.example.com/a.jpg")
	assert.Contains(t, got, "<h3>B</h3>")
	assert.Contains(t, got, "https://link.example.com/b")
}

func TestStripExternalImages(t *testing.T) {
	t.Parallel()

	body := `<p>x</p><img src="https://img.example.com/a.jpg"><img src="//cdn.example.com/b.png"><img src="/uploads/local.png">`
	got, err := StripExternalImages(body)
	require.NoError(t, err)

	assert.NotContains(t, got, "img.example.com")
	assert.NotContains(t, got, "cdn.example.com")
	assert.Contains(t, got, "/uploads/local.png")
	assert.Contains(t, got, "<p>x</p>")
}

func TestRewriteKeepsLeadingHeadMarkup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		keep []string
	}{
		{
			name: "block comments",
			body: `<!-- wp:paragraph --><p>intro</p><!-- /wp:paragraph --><img src="https://img.example.com/b.jpg">`,
			keep: []string{"<!-- wp:paragraph -->", "<p>intro</p>", "<!-- /wp:paragraph -->"},
		},
		{
			name: "style block",
			body: `<style>.card{border:1px solid #ddd}</style><p>intro</p><img src="https://img.example.com/b.jpg">`,
			keep: []string{"<style>.card{border:1px solid #ddd}</style>", "<p>intro</p>"},
		},
		{
			name: "title",
			body: `<title>Best earbuds</title><p>intro</p><img src="https://img.example.com/b.jpg">`,
			keep: []string{"<title>Best earbuds</title>", "<p>intro</p>"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			removed, err := RemoveImages(tc.body, []string{"https://img.example.com/b.jpg"})
			require.NoError(t, err)
			assert.NotContains(t, removed, "img.example.com")

			replaced, err := ReplaceImageURLs(tc.body, map[string]string{"https://img.example.com/b.jpg": "/uploads/b.jpg"})
			require.NoError(t, err)
			assert.Contains(t, replaced, `<img src="/uploads/b.jpg"/>`)

			stripped, err := StripExternalImages(tc.body)
			require.NoError(t, err)

			for _, want := range tc.keep {
				assert.Contains(t, removed, want)
				assert.Contains(t, replaced, want)
				assert.Contains(t, stripped, want)
			}
		})
	}
}
