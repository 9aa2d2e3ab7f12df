// Package categories defines the closed spending-category taxonomy shared by
// the statistics, behavior and simulation engines.
package categories

import "strings"

// Category is a member of the fixed category set. The set is closed:
// anything a categorizer produces outside it is coerced to Other.
type Category string

const (
	Groceries      Category = "GROCERIES"
	Utilities      Category = "UTILITIES"
	Rent           Category = "RENT"
	Healthcare     Category = "HEALTHCARE"
	Transportation Category = "TRANSPORTATION"
	Entertainment  Category = "ENTERTAINMENT"
	Dining         Category = "DINING"
	Shopping       Category = "SHOPPING"
	Travel         Category = "TRAVEL"
	Other          Category = "OTHER"

	// Savings is a pseudo-category: never produced by categorization and
	// never carried in a behavior model, but always a valid sink in
	// reallocation requests.
	Savings Category = "SAVINGS"
)

var essential = map[Category]bool{
	Groceries:      true,
	Utilities:      true,
	Rent:           true,
	Healthcare:     true,
	Transportation: true,
}

var discretionary = map[Category]bool{
	Entertainment: true,
	Dining:        true,
	Shopping:      true,
	Travel:        true,
}

// All returns every real category, essentials first. Savings is excluded;
// it only exists as a reallocation sink.
func All() []Category {
	return []Category{
		Groceries, Utilities, Rent, Healthcare, Transportation,
		Entertainment, Dining, Shopping, Travel, Other,
	}
}

// IsValid reports whether c is a member of the closed set (Savings excluded).
func IsValid(c Category) bool {
	for _, known := range All() {
		if c == known {
			return true
		}
	}
	return false
}

// IsEssential reports whether c is an essential category (hard to cut).
func IsEssential(c Category) bool { return essential[c] }

// IsDiscretionary reports whether c is a discretionary category.
func IsDiscretionary(c Category) bool { return discretionary[c] }

// Coerce normalizes an arbitrary label to a member of the closed set,
// falling back to Other for anything unrecognized.
func Coerce(label string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(label)))
	if IsValid(c) {
		return c
	}
	return Other
}

// DefaultPriors returns the base elasticity per category: essentials low,
// discretionary high, Other in between. Callers may override via config.
func DefaultPriors() map[Category]float64 {
	return map[Category]float64{
		Groceries:      0.15,
		Utilities:      0.10,
		Rent:           0.05,
		Healthcare:     0.12,
		Transportation: 0.25,
		Entertainment:  0.75,
		Dining:         0.70,
		Shopping:       0.65,
		Travel:         0.80,
		Other:          0.40,
	}
}

// MerchantKeywords maps categories to lowercase substrings used by the
// rule-based categorizer. Matching runs against the normalized merchant
// string first, then against the normalized raw message.
var MerchantKeywords = map[Category][]string{
	Groceries:      {"grocery", "supermarket", "food mart", "fresh", "bigbasket", "grofers"},
	Utilities:      {"electric", "water", "gas", "internet", "broadband", "airtel", "jio"},
	Rent:           {"rent", "housing", "apartment", "lease"},
	Healthcare:     {"hospital", "clinic", "pharmacy", "medical", "apollo", "practo"},
	Transportation: {"uber", "ola", "metro", "petrol", "fuel", "rapido"},
	Dining:         {"restaurant", "cafe", "swiggy", "zomato", "dining", "dominos", "mcdonald"},
	Shopping:       {"mall", "store", "shop", "amazon", "flipkart", "myntra"},
	Entertainment:  {"movie", "netflix", "spotify", "game", "hotstar", "prime"},
	Travel:         {"hotel", "flight", "travel", "booking", "makemytrip", "goibibo"},
}
