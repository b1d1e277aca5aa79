package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"caredocs/internal/model"
	"caredocs/internal/repository"
)

var documentTestColumns = []string{
	"id", "title", "description", "category", "storage_path", "filename", "size", "mime", "digest",
	"facility_id", "resident_id", "uploader_id", "expiry_date", "confidential", "tags", "version", "active",
	"created_at", "updated_at",
}

func sampleDocument() *model.Document {
	now := time.Now().UTC()
	return &model.Document{
		ID:          "doc-uuid",
		Title:       "Care plan review",
		Description: "Quarterly review",
		Category:    model.CategoryCarePlan,
		StoragePath: "documents/fac-1/doc-uuid.pdf",
		Filename:    "review.pdf",
		Size:        2048,
		MIME:        "application/pdf",
		Digest:      "abc123",
		FacilityID:  "fac-1",
		ResidentID:  "res-1",
		UploaderID:  "user-1",
		Tags:        []string{"care", "q3"},
		Version:     1,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func documentRows(doc *model.Document) *sqlmock.Rows {
	return sqlmock.NewRows(documentTestColumns).AddRow(
		doc.ID, doc.Title, doc.Description, string(doc.Category), doc.StoragePath, doc.Filename,
		doc.Size, doc.MIME, doc.Digest, doc.FacilityID, doc.ResidentID, doc.UploaderID,
		nil, doc.Confidential, []byte(`["care","q3"]`), doc.Version, doc.Active,
		doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		doc := sampleDocument()

		mock.ExpectQuery("INSERT INTO documents").
			WithArgs(
				doc.ID, doc.Title, doc.Description, string(doc.Category), doc.StoragePath,
				doc.Filename, doc.Size, doc.MIME, doc.Digest, doc.FacilityID,
				sqlmock.AnyArg(), doc.UploaderID, sqlmock.AnyArg(), doc.Confidential,
				sqlmock.AnyArg(), doc.Version, doc.Active, doc.CreatedAt, doc.UpdatedAt,
			).
			WillReturnRows(documentRows(doc))

		result, err := repo.Create(ctx, doc)

		assert.NoError(t, err)
		assert.NotNil(t, result)
		assert.Equal(t, doc.ID, result.ID)
		assert.Equal(t, doc.ResidentID, result.ResidentID)
		assert.Equal(t, []string{"care", "q3"}, result.Tags)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("digest conflict in resident scope", func(t *testing.T) {
		doc := sampleDocument()

		mock.ExpectQuery("INSERT INTO documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: residentDigestIndex})
		mock.ExpectQuery("SELECT id FROM documents WHERE resident_id").
			WithArgs(doc.ResidentID, doc.Digest).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-uuid"))

		result, err := repo.Create(ctx, doc)

		assert.Nil(t, result)
		var conflict *repository.DigestConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Equal(t, "existing-uuid", conflict.ExistingID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("digest conflict in facility scope", func(t *testing.T) {
		doc := sampleDocument()
		doc.ResidentID = ""

		mock.ExpectQuery("INSERT INTO documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: facilityDigestIndex})
		mock.ExpectQuery("SELECT id FROM documents WHERE facility_id").
			WithArgs(doc.FacilityID, doc.Digest).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-uuid"))

		result, err := repo.Create(ctx, doc)

		assert.Nil(t, result)
		var conflict *repository.DigestConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Equal(t, "existing-uuid", conflict.ExistingID)
	})

	t.Run("unique violation on another constraint stays a plain error", func(t *testing.T) {
		doc := sampleDocument()

		mock.ExpectQuery("INSERT INTO documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_pkey"})

		result, err := repo.Create(ctx, doc)

		assert.Nil(t, result)
		var conflict *repository.DigestConflictError
		assert.False(t, errors.As(err, &conflict))
	})
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		doc := sampleDocument()

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(doc.ID).
			WillReturnRows(documentRows(doc))

		result, err := repo.FindByID(ctx, doc.ID)

		assert.NoError(t, err)
		assert.NotNil(t, result)
		assert.Equal(t, doc.ID, result.ID)
		assert.Equal(t, doc.Digest, result.Digest)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		result, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, result)
	})
}

func TestDocumentPostgres_UpdateMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	doc := sampleDocument()
	doc.Title = "Updated title"
	doc.Version = 2

	mock.ExpectQuery("UPDATE documents").
		WithArgs(
			doc.ID, doc.Title, doc.Description, string(doc.Category),
			sqlmock.AnyArg(), sqlmock.AnyArg(), doc.Confidential,
		).
		WillReturnRows(documentRows(doc))

	result, err := repo.UpdateMetadata(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "Updated title", result.Title)
	assert.Equal(t, 2, result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("doc-uuid").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "doc-uuid"))
	})

	t.Run("nothing matched", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, "missing"), sql.ErrNoRows)
	})
}
