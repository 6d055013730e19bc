package domain

// AssetCategory is the asset class an asset (and its documents) belongs to.
type AssetCategory string

const (
	CategoryRealEstate     AssetCategory = "real_estate"
	CategoryPrivateCredit  AssetCategory = "private_credit"
	CategoryPrivateEquity  AssetCategory = "private_equity"
	CategoryInfrastructure AssetCategory = "infrastructure"
)

// CategoryOrder is the stable iteration order used wherever "all categories"
// must be walked deterministically.
var CategoryOrder = []AssetCategory{
	CategoryRealEstate,
	CategoryPrivateCredit,
	CategoryPrivateEquity,
	CategoryInfrastructure,
}

// CategoryPolicy is the admission policy for one asset class.
type CategoryPolicy struct {
	AllowedExtensions []string
	MaxSizeMB         int64
	QuarantineDays    int
	VersionRetention  int
}

var categoryPolicies = map[AssetCategory]CategoryPolicy{
	CategoryRealEstate: {
		AllowedExtensions: []string{".pdf", ".xlsx", ".xls", ".docx", ".doc", ".csv"},
		MaxSizeMB:         50,
		QuarantineDays:    30,
		VersionRetention:  10,
	},
	CategoryPrivateCredit: {
		AllowedExtensions: []string{".pdf", ".xlsx", ".xls", ".docx", ".doc", ".csv"},
		MaxSizeMB:         100,
		QuarantineDays:    30,
		VersionRetention:  10,
	},
	CategoryPrivateEquity: {
		AllowedExtensions: []string{".pdf", ".xlsx", ".xls", ".docx", ".doc", ".pptx", ".ppt"},
		MaxSizeMB:         100,
		QuarantineDays:    30,
		VersionRetention:  10,
	},
	CategoryInfrastructure: {
		AllowedExtensions: []string{".pdf", ".xlsx", ".xls", ".docx", ".doc", ".csv", ".dwg"},
		MaxSizeMB:         200,
		QuarantineDays:    30,
		VersionRetention:  10,
	},
}

// PolicyFor returns the admission policy for a category. The second return is
// false for categories without a registered policy.
func PolicyFor(category AssetCategory) (CategoryPolicy, bool) {
	p, ok := categoryPolicies[category]
	return p, ok
}

func (c AssetCategory) Valid() bool {
	_, ok := categoryPolicies[c]
	return ok
}
