package repository

import (
	"context"
	"fmt"

	"caredocs/internal/model"
)

// DigestConflictError is returned by Create when the document's content
// digest is already reserved within its dedup scope. The reservation is a
// storage-layer unique constraint, so two concurrent identical uploads race
// safely: exactly one insert wins and the loser receives this error with
// the winning row's id.
type DigestConflictError struct {
	ExistingID string
}

func (e *DigestConflictError) Error() string {
	return fmt.Sprintf("content digest already reserved by document %s", e.ExistingID)
}

// DocumentRepository defines persistence for document records.
type DocumentRepository interface {
	// Create inserts a fully validated document record. The insert doubles
	// as the dedup check-and-reserve: a unique-constraint conflict on the
	// (scope, digest) pair comes back as *DigestConflictError.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns an active document by id, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// UpdateMetadata persists the mutable fields (title, description,
	// category, tags, expiry, confidential), bumps version and updated_at,
	// and returns the stored record. Content columns are never touched.
	UpdateMetadata(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes a document row by id. Returns sql.ErrNoRows when no
	// row was deleted.
	Delete(ctx context.Context, id string) error
}
