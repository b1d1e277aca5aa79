package model

import "time"

// Category classifies a document against a fixed allow-list. Persisted as
// text; anything outside the list is rejected before ingestion starts.
type Category string

const (
	CategoryMedical        Category = "medical"
	CategoryCarePlan       Category = "care_plan"
	CategoryLegal          Category = "legal"
	CategoryFinancial      Category = "financial"
	CategoryConsent        Category = "consent"
	CategoryIdentification Category = "identification"
	CategoryCorrespondence Category = "correspondence"
	CategoryOther          Category = "other"
)

// ParseCategory returns the Category for s, or false when s is not in the
// allow-list.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryMedical, CategoryCarePlan, CategoryLegal, CategoryFinancial,
		CategoryConsent, CategoryIdentification, CategoryCorrespondence, CategoryOther:
		return c, true
	}
	return "", false
}

// Document is a fully validated, persisted record of an ingested file.
// It is only ever created by the ingestion pipeline after every stage has
// passed; there is no draft state. StoragePath, Size, MIME and Digest are
// immutable after creation. Metadata edits touch only title, description,
// category, tags, expiry and the confidential flag.
type Document struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Category     Category   `json:"category"`
	StoragePath  string     `json:"-"`
	Filename     string     `json:"filename"`
	Size         int64      `json:"size"`
	MIME         string     `json:"mime"`
	Digest       string     `json:"digest"`
	FacilityID   string     `json:"facility_id"`
	ResidentID   string     `json:"resident_id,omitempty"`
	UploaderID   string     `json:"uploader_id"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Confidential bool       `json:"confidential"`
	Tags         []string   `json:"tags,omitempty"`
	Version      int        `json:"version"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
