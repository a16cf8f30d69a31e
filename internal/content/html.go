// Package content post-processes generated post HTML.
package content

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/selector"
)

const (
	imagePlaceholder = "{{PRODUCT_IMAGE_%d}}"
	linkPlaceholder  = "{{PRODUCT_LINK_%d}}"
)

// FillPlaceholders substitutes the 1-based product image and link
// placeholders the generation prompt asks the model to emit.
func FillPlaceholders(body string, products []domain.Product) string {
	pairs := make([]string, 0, len(products)*4)
	for i, p := range products {
		pairs = append(pairs,
			fmt.Sprintf(imagePlaceholder, i+1), p.ImageURL,
			fmt.Sprintf(linkPlaceholder, i+1), p.URL,
		)
	}
	if len(pairs) == 0 {
		return body
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// ComparisonTable renders the product listing appended to every post. It is
// built locally so the listing does not depend on generation quality.
func ComparisonTable(products []domain.Product) string {
	if len(products) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<h2>Product comparison</h2>`)
	b.WriteString(`<table class="product-comparison"><thead><tr>`)
	b.WriteString(`<th>#</th><th>Image</th><th>Product</th><th>Price</th><th>Rating</th><th>Reviews</th><th>Shipping</th><th>Link</th>`)
	b.WriteString(`</tr></thead><tbody>`)
	for i, p := range products {
		b.WriteString("<tr>")
		b.WriteString("<td>" + strconv.Itoa(i+1) + "</td>")
		if p.ImageURL != "" {
			b.WriteString(`<td><img src="` + html.EscapeString(p.ImageURL) + `" alt="` + html.EscapeString(p.Name) + `" width="80" /></td>`)
		} else {
			b.WriteString("<td></td>")
		}
		b.WriteString("<td>" + html.EscapeString(p.Name) + "</td>")
		b.WriteString("<td>" + selector.FormatPrice(p.Price) + "</td>")
		b.WriteString("<td>" + strconv.FormatFloat(p.Rating, 'f', 1, 64) + "</td>")
		b.WriteString("<td>" + strconv.Itoa(p.ReviewCount) + "</td>")
		if p.IsRocket {
			b.WriteString("<td>Rocket</td>")
		} else {
			b.WriteString("<td>Standard</td>")
		}
		b.WriteString(`<td><a href="` + html.EscapeString(p.URL) + `" target="_blank" rel="noopener noreferrer sponsored">View</a></td>`)
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// AppendComparisonTable returns body followed by the comparison table.
func AppendComparisonTable(body string, products []domain.Product) string {
	table := ComparisonTable(products)
	if table == "" {
		return body
	}
	return body + "\n" + table
}

// ReplaceImageURLs rewrites img sources found in replacements.
func ReplaceImageURLs(body string, replacements map[string]string) (string, error) {
	if len(replacements) == 0 {
		return body, nil
	}
	return rewrite(body, func(doc *goquery.Selection) {
		doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			if next, ok := replacements[src]; ok {
				img.SetAttr("src", next)
			}
		})
	})
}

// RemoveImages drops every img whose source is in urls. Product cards wrapping
// the image keep their remaining text and links.
func RemoveImages(body string, urls []string) (string, error) {
	if len(urls) == 0 {
		return body, nil
	}
	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u != "" {
			drop[u] = struct{}{}
		}
	}
	return rewrite(body, func(doc *goquery.Selection) {
		doc.Find("img").FilterFunction(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			_, ok := drop[src]
			return ok
		}).Remove()
	})
}

// StripExternalImages drops every img that points at an absolute http(s) URL.
func StripExternalImages(body string) (string, error) {
	return rewrite(body, func(doc *goquery.Selection) {
		doc.Find("img").FilterFunction(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			return isExternal(src)
		}).Remove()
	})
}

func isExternal(src string) bool {
	src = strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "//")
}

// rewrite parses body as a fragment in body context so leading style, title
// and comment nodes stay in place, applies fn and renders the nodes back.
func rewrite(body string, fn func(*goquery.Selection)) (string, error) {
	nodes, err := xhtml.ParseFragment(strings.NewReader(body), &xhtml.Node{
		Type:     xhtml.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	})
	if err != nil {
		return body, fmt.Errorf("parse content: %w", err)
	}

	root := &xhtml.Node{Type: xhtml.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	fn(goquery.NewDocumentFromNode(root).Selection)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := xhtml.Render(&buf, c); err != nil {
			return body, fmt.Errorf("render content: %w", err)
		}
	}
	return buf.String(), nil
}
