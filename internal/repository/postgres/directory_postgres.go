package postgres

import (
	"context"
	"database/sql"

	"caredocs/internal/model"
)

// DirectoryPostgres reads facility and resident rows owned by the
// administration subsystem. Ingestion never writes to these tables.
type DirectoryPostgres struct {
	db *sql.DB
}

func NewDirectoryPostgres(db *sql.DB) *DirectoryPostgres {
	return &DirectoryPostgres{db: db}
}

// Facility returns a facility by id, or sql.ErrNoRows.
func (r *DirectoryPostgres) Facility(ctx context.Context, id string) (*model.Facility, error) {
	const q = `SELECT id, name, active FROM facilities WHERE id = $1`
	var f model.Facility
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.Name, &f.Active); err != nil {
		return nil, err
	}
	return &f, nil
}

// Resident returns a resident by id, or sql.ErrNoRows.
func (r *DirectoryPostgres) Resident(ctx context.Context, id string) (*model.Resident, error) {
	const q = `SELECT id, facility_id FROM residents WHERE id = $1`
	var res model.Resident
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&res.ID, &res.FacilityID); err != nil {
		return nil, err
	}
	return &res, nil
}
