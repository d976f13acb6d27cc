package domain

import "strings"

// Category is the closed set of expense categories shared by extraction,
// validation and storage. Values outside the set normalize to CategoryOther.
type Category string

const (
	CategoryMeals     Category = "Meals"
	CategoryTravel    Category = "Travel"
	CategoryOffice    Category = "Office"
	CategorySoftware  Category = "Software"
	CategoryRent      Category = "Rent"
	CategoryUtilities Category = "Utilities"
	CategoryOther     Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryMeals,
	CategoryTravel,
	CategoryOffice,
	CategorySoftware,
	CategoryRent,
	CategoryUtilities,
	CategoryOther,
}

// ParseCategory returns the matching category for s, or CategoryOther and
// false when s is not a member of the set. Matching is exact on the stored
// form after trimming whitespace; "Cafe" is not "Meals".
func ParseCategory(s string) (Category, bool) {
	trimmed := strings.TrimSpace(s)
	for _, c := range Categories {
		if string(c) == trimmed {
			return c, true
		}
	}
	return CategoryOther, false
}

// IsValidCategory reports whether s is a member of the closed set.
func IsValidCategory(s string) bool {
	_, ok := ParseCategory(s)
	return ok
}

// CategoryStrings returns the categories as plain strings, in order.
func CategoryStrings() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}
