package resolve

import "github.com/crestline-am/docintake/internal/core/domain"

// categoryKeywords boost assets whose class vocabulary shows up in the email.
// The bonus is capped, so these are a nudge, not a match by themselves.
var categoryKeywords = map[domain.AssetCategory][]string{
	domain.CategoryRealEstate: {
		"property", "tenant", "lease", "rent", "building", "occupancy", "landlord",
	},
	domain.CategoryPrivateCredit: {
		"loan", "borrower", "lender", "facility", "interest", "covenant", "principal",
	},
	domain.CategoryPrivateEquity: {
		"fund", "portfolio", "investor", "equity", "capital", "valuation", "lp",
	},
	domain.CategoryInfrastructure: {
		"project", "construction", "energy", "utility", "concession", "commissioning",
	},
}
