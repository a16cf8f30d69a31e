package selector

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ReviewPublisher/internal/domain"
)

var wonPrinter = message.NewPrinter(language.Korean)

// FormatPrice renders a whole-won price with thousands separators.
func FormatPrice(price int) string {
	return wonPrinter.Sprintf("%d원", price)
}

// Recommendations describes who each non-empty price tier suits, one line per tier.
func Recommendations(ranges *domain.PriceRangeInfo) string {
	if ranges == nil {
		return ""
	}

	var lines []string
	if ranges.Low.Count > 0 {
		lines = append(lines, "- Budget ("+FormatPrice(ranges.Low.Min)+" ~ "+FormatPrice(ranges.Low.Max)+"): for readers who value price above all")
	}
	if ranges.Mid.Count > 0 {
		lines = append(lines, "- Mid-range ("+FormatPrice(ranges.Mid.Min)+" ~ "+FormatPrice(ranges.Mid.Max)+"): balanced price and quality")
	}
	if ranges.High.Count > 0 {
		lines = append(lines, "- Premium ("+FormatPrice(ranges.High.Min)+" ~ "+FormatPrice(ranges.High.Max)+"): for readers who want the best build quality")
	}
	return strings.Join(lines, "\n")
}
