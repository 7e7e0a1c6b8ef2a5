// Package classifier maps free-text messages to business categories using
// an ordered keyword rule table.
package classifier

import "strings"

// Category is a business-category tag.
type Category string

const (
	CategoryProhibited Category = "prohibited"
	CategoryHealthcare Category = "healthcare"
	CategoryBeauty     Category = "beauty"
	CategoryRetail     Category = "retail"
	CategoryRestaurant Category = "restaurant"
	CategoryFitness    Category = "fitness"
	CategoryAutomotive Category = "automotive"
	CategoryLegal      Category = "legal"
	CategoryRealEstate Category = "real_estate"
	CategoryGeneral    Category = "general"
)

// Result is the outcome of classifying a message.
type Result struct {
	Category   Category
	Prohibited bool
}

// rule pairs a category with its trigger phrases. Rules are evaluated in
// order; the first rule with a matching trigger wins.
type rule struct {
	category Category
	triggers []string
}

// prohibitedTriggers short-circuit classification regardless of any other
// match in the message.
var prohibitedTriggers = []string{
	"casino", "gambling", "betting", "poker", "lottery",
	"adult content", "adult entertainment", "escort", "strip club",
	"cannabis", "marijuana", "cbd", "vape", "tobacco", "controlled substance",
	"firearm", "gun shop", "ammunition", "weapons",
}

var defaultRules = []rule{
	{CategoryHealthcare, []string{"clinic", "doctor", "dentist", "medical", "health", "therapy", "chiropract", "pharmacy", "wellness"}},
	{CategoryBeauty, []string{"salon", "spa", "medspa", "barber", "nails", "lashes", "skincare", "botox", "facial", "hair"}},
	{CategoryRestaurant, []string{"restaurant", "cafe", "coffee", "bakery", "catering", "food truck", "bar and grill", "menu"}},
	{CategoryFitness, []string{"gym", "fitness", "yoga", "pilates", "crossfit", "personal train", "martial arts"}},
	{CategoryAutomotive, []string{"auto repair", "car wash", "mechanic", "dealership", "detailing", "tire", "oil change"}},
	{CategoryLegal, []string{"law firm", "attorney", "lawyer", "legal", "notary", "paralegal"}},
	{CategoryRealEstate, []string{"real estate", "realtor", "property", "brokerage", "landlord", "mortgage"}},
	{CategoryRetail, []string{"store", "shop", "boutique", "retail", "ecommerce", "e-commerce", "merchandise", "inventory"}},
}

// Classifier assigns business categories from a static rule table.
type Classifier struct {
	rules []rule
}

// New creates a classifier with the default rule table.
func New() *Classifier {
	return &Classifier{rules: defaultRules}
}

// Classify returns exactly one category for the given text. The prohibited
// trigger set is evaluated before all other rules; when nothing matches the
// result is CategoryGeneral.
func (c *Classifier) Classify(text string) Result {
	normalized := strings.ToLower(text)

	for _, trigger := range prohibitedTriggers {
		if strings.Contains(normalized, trigger) {
			return Result{Category: CategoryProhibited, Prohibited: true}
		}
	}

	for _, r := range c.rules {
		for _, trigger := range r.triggers {
			if strings.Contains(normalized, trigger) {
				return Result{Category: r.category}
			}
		}
	}

	return Result{Category: CategoryGeneral}
}
