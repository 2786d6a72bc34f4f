package types

import "strings"

// Category classifies a registered function by the kind of business action
// it performs. The category drives execution priority and the default
// middleware a function receives at registration.
type Category string

const (
	CategoryBooking        Category = "booking"
	CategoryInquiry        Category = "inquiry"
	CategoryConsultation   Category = "consultation"
	CategoryRecommendation Category = "recommendation"
	CategoryInformation    Category = "information"
	CategoryManagement     Category = "management"
	CategoryUtility        Category = "utility"
)

// Priority returns the execution priority for steps of this category.
// Booking actions run before inquiries, which run before consultations;
// everything else shares a baseline priority.
func (c Category) Priority() int {
	switch c {
	case CategoryBooking:
		return 90
	case CategoryInquiry:
		return 80
	case CategoryConsultation:
		return 70
	default:
		return 50
	}
}

// categoryRules maps name substrings to categories. Rules are evaluated
// in order; the first rule with a matching substring wins.
var categoryRules = []struct {
	substrings []string
	category   Category
}{
	{[]string{"book", "schedule", "appointment"}, CategoryBooking},
	{[]string{"check", "availability", "inquiry"}, CategoryInquiry},
	{[]string{"consult", "advice", "assess"}, CategoryConsultation},
	{[]string{"suggest", "recommend", "tips"}, CategoryRecommendation},
	{[]string{"info", "get", "provide"}, CategoryInformation},
	{[]string{"cancel", "update", "manage"}, CategoryManagement},
}

// CategorizeName infers a category from a function name using substring
// rules. It is a deterministic, pure fallback for catalogs that do not
// declare an explicit category; declared categories always take precedence.
func CategorizeName(name string) Category {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}
	return CategoryUtility
}
