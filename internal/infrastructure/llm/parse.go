package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ReviewPublisher/internal/domain"
)

var (
	jsonBlock    = regexp.MustCompile(`(?s)\{.*\}`)
	sectionMark  = regexp.MustCompile(`---(TITLE|CONTENT|FOCUS_KEYWORD|META_DESCRIPTION|END)---`)
	htmlEnvelope = regexp.MustCompile(`(?is)^\s*(?:` + "```" + `html)?\s*(?:<html>)?(.*?)(?:</html>)?\s*(?:` + "```" + `)?\s*$`)
)

type jsonPost struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	FocusKeyword    string `json:"focusKeyword"`
	MetaDescription string `json:"metaDescription"`
}

// ParseResponse turns raw model output into a post. Delimited sections are
// tried first, then the first JSON object; missing fields fall back to
// defaults derived from the keyword.
func ParseResponse(text, keyword string, productCount int) domain.BlogPost {
	parsed, ok := parseSections(text)
	if !ok {
		parsed, ok = parseJSON(text)
	}
	if !ok {
		parsed = jsonPost{}
	}

	post := domain.BlogPost{
		Title:           strings.TrimSpace(parsed.Title),
		Content:         strings.TrimSpace(parsed.Content),
		FocusKeyword:    strings.TrimSpace(parsed.FocusKeyword),
		MetaDescription: strings.TrimSpace(parsed.MetaDescription),
	}
	if post.Title == "" {
		post.Title = fmt.Sprintf("%s TOP %d", keyword, productCount)
	}
	if post.Content == "" {
		post.Content = strings.TrimSpace(text)
	}
	if post.FocusKeyword == "" {
		post.FocusKeyword = keyword
	}
	if post.MetaDescription == "" {
		post.MetaDescription = fmt.Sprintf("We compared the best %s products side by side.", keyword)
	}
	return post
}

func parseSections(text string) (jsonPost, bool) {
	marks := sectionMark.FindAllStringSubmatchIndex(text, -1)
	if len(marks) == 0 {
		return jsonPost{}, false
	}

	sections := make(map[string]string, len(marks))
	for i, m := range marks {
		name := text[m[2]:m[3]]
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		sections[name] = strings.TrimSpace(text[m[1]:end])
	}

	body := sections["CONTENT"]
	if sub := htmlEnvelope.FindStringSubmatch(body); sub != nil {
		body = sub[1]
	}

	post := jsonPost{
		Title:           sections["TITLE"],
		Content:         body,
		FocusKeyword:    sections["FOCUS_KEYWORD"],
		MetaDescription: sections["META_DESCRIPTION"],
	}
	return post, post.Title != "" || post.Content != ""
}

func parseJSON(text string) (jsonPost, bool) {
	block := jsonBlock.FindString(text)
	if block == "" {
		return jsonPost{}, false
	}
	var post jsonPost
	if err := json.Unmarshal([]byte(block), &post); err != nil {
		return jsonPost{}, false
	}
	return post, true
}
