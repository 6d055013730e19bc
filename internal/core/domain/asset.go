package domain

import (
	"strings"
	"time"
)

// Asset is an identity record from the asset registry. The pipeline only
// reads assets; registration and edits happen upstream.
type Asset struct {
	ID         string        `json:"id"`
	DealName   string        `json:"deal_name"`
	FullName   string        `json:"full_name"`
	Category   AssetCategory `json:"category"`
	FolderPath string        `json:"folder_path"`
	Aliases    []string      `json:"aliases,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// MatchNames returns every string the resolver should try to recognize this
// asset by: deal name, full name, then explicit aliases.
func (a *Asset) MatchNames() []string {
	names := make([]string, 0, len(a.Aliases)+2)
	if a.DealName != "" {
		names = append(names, a.DealName)
	}
	if a.FullName != "" {
		names = append(names, a.FullName)
	}
	names = append(names, a.Aliases...)
	return names
}

// SenderMapping associates a normalized sender address with an asset. A
// sender may map to several assets and vice versa.
type SenderMapping struct {
	ID               string    `json:"id"`
	SenderEmail      string    `json:"sender_email"`
	AssetID          string    `json:"asset_id"`
	Confidence       float64   `json:"confidence"`
	DocumentTypes    []string  `json:"document_types,omitempty"`
	EmailCount       int       `json:"email_count"`
	LastActivityDate time.Time `json:"last_activity_date"`
	CreatedAt        time.Time `json:"created_at"`
}

// NormalizeSenderEmail lower-cases and trims an address so mapping lookups
// are canonical.
func NormalizeSenderEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
