package domain

import "time"

// Attachment is one raw file lifted out of an email by the upstream mail
// connector.
type Attachment struct {
	Filename string
	Content  []byte
}

// EmailContext carries the message metadata the pipeline classifies and
// resolves against.
type EmailContext struct {
	SenderEmail string    `json:"sender_email"`
	SenderName  string    `json:"sender_name,omitempty"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Date        time.Time `json:"date"`
}

// EmailEnvelope is the queue message for one received email: context plus
// the blob-store keys its attachments were staged under.
type EmailEnvelope struct {
	EmailID     string        `json:"email_id"`
	Context     EmailContext  `json:"context"`
	Attachments []StagedFile  `json:"attachments"`
	KnownAsset  string        `json:"known_asset_id,omitempty"`
	Category    AssetCategory `json:"known_category,omitempty"`
}

// StagedFile points at attachment bytes already written to the blob store.
type StagedFile struct {
	Filename   string `json:"filename"`
	StorageKey string `json:"storage_key"`
}
