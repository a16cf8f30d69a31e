package llm

import (
	"fmt"
	"strings"

	"ReviewPublisher/internal/content"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/selector"
)

// SystemPrompt is the reviewer persona shared by every provider.
const SystemPrompt = `You are a product review blogger with ten years of experience.
You write vivid, concrete reviews as if you had used every product yourself.
You relate to the reader's problem and weigh pros and cons fairly.
Write in friendly, conversational Korean and back claims with specific numbers and examples.`

const userPromptTemplate = `## Keyword
%s

## Products
%s

## Price tiers
%s

## Requirements
Write a 2500 to 3000 character blog post with this structure:

### 1. Introduction (about 300 characters)
- Empathise with the reader's problem and mention your own experience.

### 2. Buying guide (about 200 characters)
- Say which reader each price tier suits and list the key checkpoints.

### 3. Product reviews (350 to 400 characters each)
For every product:
- A short description
- Three pros and one or two cons as bullet points
- The product card HTML below

### 4. Conclusion (about 200 characters)
- A choice guide by budget and use case.

## Product card HTML
Include every product in exactly this form (N is the 1-based product number):
<div class="product-card">
  <img src="{{PRODUCT_IMAGE_N}}" alt="product name" />
  <h3>product name</h3>
  <p class="price">price</p>
  <a href="{{PRODUCT_LINK_N}}" target="_blank" rel="noopener noreferrer">View on Coupang</a>
</div>

## Rules
- Use only h2, h3, p, ul, li and div tags.
- Do not add a comparison table; one is appended automatically.

## Output format
Answer with these delimited sections and nothing else:

---TITLE---
Post title (includes the keyword and the year, 30 to 60 characters)
---CONTENT---
HTML body
---FOCUS_KEYWORD---
Focus keyword
---META_DESCRIPTION---
Meta description (at most 150 characters, includes the keyword)
---END---`

// BuildPrompt renders the user prompt for one keyword.
func BuildPrompt(req ports.GenerateRequest) string {
	var products strings.Builder
	for i, p := range req.Products {
		fmt.Fprintf(&products, "Product %d:\n", i+1)
		fmt.Fprintf(&products, "- Name: %s\n", p.Name)
		fmt.Fprintf(&products, "- Price: %s\n", selector.FormatPrice(p.Price))
		fmt.Fprintf(&products, "- Rating: %.1f (%d reviews)\n", p.Rating, p.ReviewCount)
		fmt.Fprintf(&products, "- Image placeholder: {{PRODUCT_IMAGE_%d}}\n", i+1)
		fmt.Fprintf(&products, "- Link placeholder: {{PRODUCT_LINK_%d}}\n", i+1)
		if p.IsRocket {
			products.WriteString("- Rocket delivery: yes\n")
		}
		if p.CategoryName != "" {
			fmt.Fprintf(&products, "- Category: %s\n", p.CategoryName)
		}
		products.WriteString("\n")
	}

	tiers := selector.Recommendations(req.PriceRanges)
	if tiers == "" {
		tiers = "No price tier information."
	}

	return fmt.Sprintf(userPromptTemplate, req.Keyword, strings.TrimSpace(products.String()), tiers)
}

// finalize fills placeholders and attaches the request context to a parsed post.
func finalize(post domain.BlogPost, req ports.GenerateRequest) domain.BlogPost {
	post.Content = content.FillPlaceholders(post.Content, req.Products)
	post.Keyword = req.Keyword
	post.Products = req.Products
	return post
}
