package transform

import "strings"

// Category names assigned during enrichment.
const (
	CategoryComputers = "Computers"
	CategoryAccessory = "Accessories"
	CategoryOffice    = "Office Equipment"
	CategoryOther     = "Other"
)

// categoryRule maps a set of product keywords to a category. Rules are
// evaluated in order and the first keyword match wins, so more specific
// rules must come before broader ones.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{keywords: []string{"laptop", "monitor", "tablet"}, category: CategoryComputers},
	{keywords: []string{"keyboard", "mouse", "headphones"}, category: CategoryAccessory},
	{keywords: []string{"printer", "scanner"}, category: CategoryOffice},
}

// Categorize returns the category for a product name. Matching is
// case-insensitive and substring-based: "Wireless Mouse" matches the
// "mouse" keyword. Products matching no rule fall into CategoryOther.
func Categorize(product string) string {
	name := strings.ToLower(product)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// MarginPct returns the estimated gross margin percentage for a category.
func MarginPct(category string) int {
	switch category {
	case CategoryComputers:
		return 20
	case CategoryAccessory:
		return 30
	default:
		return 15
	}
}
