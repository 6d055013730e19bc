package classify

import (
	"github.com/crestline-am/docintake/internal/core/domain"
)

// LabelPatterns declares the regex patterns that identify one document
// category. Order matters: ties keep the first label in table order.
type LabelPatterns struct {
	Label    domain.DocumentCategory `yaml:"label"`
	Patterns []string                `yaml:"patterns"`
}

// CategoryTable is the ordered classification rule set for one asset class.
type CategoryTable struct {
	Category domain.AssetCategory `yaml:"category"`
	Labels   []LabelPatterns      `yaml:"labels"`
}

// TableSet is the full declarative rule set. It is plain data so rule changes
// never touch scoring control flow.
type TableSet struct {
	Categories []CategoryTable `yaml:"categories"`
}

// DefaultTables returns the built-in rule set. Labels deliberately keep few,
// broad patterns: per-label scores are normalized by pattern count, so a long
// pattern list dilutes a single strong hit.
func DefaultTables() TableSet {
	return TableSet{Categories: []CategoryTable{
		{
			Category: domain.CategoryRealEstate,
			Labels: []LabelPatterns{
				{Label: "rent_roll", Patterns: []string{`rent[\s_-]*roll`}},
				{Label: "lease_agreement", Patterns: []string{`lease[\s_-]*(agreement|amendment|abstract)`}},
				{Label: "financial_statement", Patterns: []string{
					`financial[\s_-]*statement`,
					`(balance[\s_-]*sheet|income[\s_-]*statement|profit[\s_-]*(and|&)[\s_-]*loss)`,
				}},
				{Label: "appraisal", Patterns: []string{`(appraisal|valuation[\s_-]*report)`}},
				{Label: "insurance_certificate", Patterns: []string{
					`(certificate[\s_-]*of[\s_-]*insurance|insurance[\s_-]*(certificate|policy)|\bacord\b)`,
				}},
			},
		},
		{
			Category: domain.CategoryPrivateCredit,
			Labels: []LabelPatterns{
				{Label: "loan_agreement", Patterns: []string{`(loan|credit|facility)[\s_-]*agreement`}},
				{Label: "compliance_certificate", Patterns: []string{
					`(compliance[\s_-]*certificate|covenant)`,
				}},
				{Label: "borrowing_base", Patterns: []string{`borrowing[\s_-]*base`}},
				{Label: "interest_notice", Patterns: []string{`(interest|payment)[\s_-]*notice`}},
				{Label: "financial_statement", Patterns: []string{
					`financial[\s_-]*statement`,
					`(balance[\s_-]*sheet|income[\s_-]*statement)`,
				}},
			},
		},
		{
			Category: domain.CategoryPrivateEquity,
			Labels: []LabelPatterns{
				{Label: "capital_call", Patterns: []string{`(capital[\s_-]*call|drawdown[\s_-]*notice)`}},
				{Label: "distribution_notice", Patterns: []string{`distribution[\s_-]*(notice|letter)?`}},
				{Label: "quarterly_report", Patterns: []string{
					`quarter(ly)?[\s_-]*report`,
					`\bq[1-4][\s_-]*(report|update)`,
				}},
				{Label: "investor_letter", Patterns: []string{`(investor|lp)[\s_-]*(letter|update)`}},
				{Label: "financial_statement", Patterns: []string{`financial[\s_-]*statement`}},
			},
		},
		{
			Category: domain.CategoryInfrastructure,
			Labels: []LabelPatterns{
				{Label: "construction_report", Patterns: []string{`(construction|progress)[\s_-]*report`}},
				{Label: "engineering_report", Patterns: []string{`(engineering|inspection)[\s_-]*report`}},
				{Label: "operations_report", Patterns: []string{`operat(ing|ions)[\s_-]*report`}},
				{Label: "financial_statement", Patterns: []string{`financial[\s_-]*statement`}},
			},
		},
	}}
}
