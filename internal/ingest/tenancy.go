package ingest

import (
	"context"
	"database/sql"
	"errors"

	"caredocs/internal/model"
)

// Directory provides the facility and resident lookups owned by the
// administration subsystem. Absence is signalled with sql.ErrNoRows, the
// repository layer's convention.
type Directory interface {
	Facility(ctx context.Context, id string) (*model.Facility, error)
	Resident(ctx context.Context, id string) (*model.Resident, error)
}

// TenancyChecker cross-validates the declared facility/resident association
// of an upload against the directory and the requester's scope.
type TenancyChecker struct {
	dir Directory
}

func NewTenancyChecker(dir Directory) *TenancyChecker {
	return &TenancyChecker{dir: dir}
}

// Resolve determines the facility a document belongs to.
//
// A declared resident wins: the document's facility is the resident's, and a
// conflicting declared facility is a hard FacilityMismatch rather than a
// silent override. Without a resident, the declared facility is used, then
// the requester scope's own facility. The resolved facility must exist, be
// active, and lie within the requester's scope.
func (c *TenancyChecker) Resolve(ctx context.Context, facilityID, residentID string, scope model.Scope) (string, error) {
	resolved := facilityID

	if residentID != "" {
		res, err := c.dir.Resident(ctx, residentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrResidentNotFound
			}
			return "", StorageError("resident lookup", err)
		}
		if facilityID != "" && facilityID != res.FacilityID {
			return "", ErrFacilityMismatch
		}
		resolved = res.FacilityID
	}

	if resolved == "" {
		if scope.Unrestricted() {
			return "", ErrMissingFacility
		}
		resolved = scope.FacilityID
	}

	if !scope.Unrestricted() && resolved != scope.FacilityID {
		return "", ErrAccessDenied
	}

	fac, err := c.dir.Facility(ctx, resolved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrFacilityNotFound
		}
		return "", StorageError("facility lookup", err)
	}
	if !fac.Active {
		return "", ErrFacilityNotFound
	}

	return resolved, nil
}
