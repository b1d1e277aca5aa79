package model

// Package model contains domain models/data structures shared across layers.
// No business logic here.

// Facility is the tenancy boundary every document belongs to. Lookups are
// owned by the facility administration subsystem; ingestion only reads.
type Facility struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Resident is a person admitted to a facility. Ingestion reads it solely to
// cross-check the facility association of resident-scoped documents.
type Resident struct {
	ID         string `json:"id"`
	FacilityID string `json:"facility_id"`
}

// Scope is the requester's facility scope as resolved by the authorization
// layer. The zero value is unrestricted (admin); otherwise the requester may
// only act within the single named facility.
type Scope struct {
	FacilityID string
}

// Unrestricted reports whether the scope allows access to every facility.
func (s Scope) Unrestricted() bool { return s.FacilityID == "" }
