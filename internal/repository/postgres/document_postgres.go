package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"caredocs/internal/model"
	"caredocs/internal/repository"
)

// Names of the partial unique indexes that implement the dedup reserve.
// They must match the migration exactly; a conflict on any other constraint
// is a plain error, not a duplicate.
const (
	residentDigestIndex = "uq_documents_resident_digest"
	facilityDigestIndex = "uq_documents_facility_digest"
)

const documentColumns = `id, title, description, category, storage_path, filename, size, mime, digest,
		facility_id, resident_id, uploader_id, expiry_date, confidential, tags, version, active,
		created_at, updated_at`

// DocumentPostgres is the PostgreSQL implementation of
// repository.DocumentRepository. Parameterized SQL only.
type DocumentPostgres struct {
	db *sql.DB
}

func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a document row. The partial unique indexes on
// (resident_id, digest) and (facility_id, digest) make the insert the
// atomic dedup check-and-reserve; a unique violation on either index is
// translated to *repository.DigestConflictError carrying the surviving
// row's id.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, description, category, storage_path, filename, size, mime,
			digest, facility_id, resident_id, uploader_id, expiry_date, confidential, tags, version,
			active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING ` + documentColumns

	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		string(doc.Category),
		doc.StoragePath,
		doc.Filename,
		doc.Size,
		doc.MIME,
		doc.Digest,
		doc.FacilityID,
		nullString(doc.ResidentID),
		doc.UploaderID,
		nullTime(doc.ExpiryDate),
		doc.Confidential,
		tags,
		doc.Version,
		doc.Active,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	out, err := scanDocument(row)
	if err != nil {
		if isDigestConflict(err) {
			existing, lookupErr := r.findDuplicateID(ctx, doc)
			if lookupErr != nil && !errors.Is(lookupErr, sql.ErrNoRows) {
				return nil, lookupErr
			}
			return nil, &repository.DigestConflictError{ExistingID: existing}
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single active document.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND active
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// UpdateMetadata rewrites the mutable columns and bumps version. Content
// columns (storage_path, size, mime, digest) are deliberately absent from
// the statement.
func (r *DocumentPostgres) UpdateMetadata(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $2, description = $3, category = $4, tags = $5, expiry_date = $6,
			confidential = $7, version = version + 1, updated_at = now()
		WHERE id = $1 AND active
		RETURNING ` + documentColumns

	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		string(doc.Category),
		tags,
		nullTime(doc.ExpiryDate),
		doc.Confidential,
	)
	return scanDocument(row)
}

// Delete removes a document row. sql.ErrNoRows when nothing matched.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// findDuplicateID resolves the surviving row of a digest conflict within
// the document's dedup scope.
func (r *DocumentPostgres) findDuplicateID(ctx context.Context, doc *model.Document) (string, error) {
	var (
		q    string
		args []any
	)
	if doc.ResidentID != "" {
		q = `SELECT id FROM documents WHERE resident_id = $1 AND digest = $2 AND active`
		args = []any{doc.ResidentID, doc.Digest}
	} else {
		q = `SELECT id FROM documents WHERE facility_id = $1 AND resident_id IS NULL AND digest = $2 AND active`
		args = []any{doc.FacilityID, doc.Digest}
	}
	var id string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func isDigestConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return pgErr.ConstraintName == residentDigestIndex || pgErr.ConstraintName == facilityDigestIndex
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		category   string
		residentID sql.NullString
		expiry     sql.NullTime
		tagsRaw    []byte
	)
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&category,
		&d.StoragePath,
		&d.Filename,
		&d.Size,
		&d.MIME,
		&d.Digest,
		&d.FacilityID,
		&residentID,
		&d.UploaderID,
		&expiry,
		&d.Confidential,
		&tagsRaw,
		&d.Version,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Category = model.Category(category)
	if residentID.Valid {
		d.ResidentID = residentID.String
	}
	if expiry.Valid {
		t := expiry.Time
		d.ExpiryDate = &t
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
