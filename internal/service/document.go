package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"caredocs/internal/ingest"
	"caredocs/internal/model"
	"caredocs/internal/repository"
	"caredocs/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
	ErrReaderNil  = errors.New("reader is nil")
)

// IngestInput is the client-declared metadata accompanying an upload.
// Filename and DeclaredMIME are untrusted; the pipeline proves the real
// content type from the bytes.
type IngestInput struct {
	Title        string
	Description  string
	Category     string
	Filename     string
	DeclaredMIME string
	FacilityID   string
	ResidentID   string
	UploaderID   string
	ExpiryDate   *time.Time
	Confidential bool
	Tags         []string
}

// MetadataUpdate carries the mutable fields of a document. Content, digest
// and storage path are immutable after ingestion and have no place here.
type MetadataUpdate struct {
	Title        string
	Description  string
	Category     string
	ExpiryDate   *time.Time
	Confidential bool
	Tags         []string
}

// DocumentService defines the document ingestion use cases.
type DocumentService interface {
	// Ingest runs the full pipeline: stage, sniff, validate type, resolve
	// tenancy, hash, reserve the digest, commit bytes and record. On any
	// rejection the staged bytes are cleaned up before returning.
	Ingest(ctx context.Context, r io.Reader, in IngestInput, scope model.Scope) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// UpdateMetadata edits the mutable fields of a document.
	UpdateMetadata(ctx context.Context, id string, in MetadataUpdate) (*model.Document, error)

	// Remove deletes the record and its canonical bytes together. Missing
	// bytes are surfaced as a logged warning, never as a failure.
	Remove(ctx context.Context, id string) error

	// PresignDownload returns a time-limited URL for the document's bytes.
	PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error)
}

type documentService struct {
	stager  *ingest.Stager
	policy  *ingest.Policy
	tenancy *ingest.TenancyChecker
	store   storage.Store
	repo    repository.DocumentRepository
}

// NewDocumentService wires the ingestion pipeline. The policy is injected so
// allow-lists stay immutable per instance rather than read from globals.
func NewDocumentService(stager *ingest.Stager, policy *ingest.Policy, tenancy *ingest.TenancyChecker, store storage.Store, repo repository.DocumentRepository) DocumentService {
	return &documentService{
		stager:  stager,
		policy:  policy,
		tenancy: tenancy,
		store:   store,
		repo:    repo,
	}
}

func (s *documentService) Ingest(ctx context.Context, r io.Reader, in IngestInput, scope model.Scope) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title", ingest.ErrMissingRequiredField)
	}
	if in.Filename == "" {
		return nil, fmt.Errorf("%w: filename", ingest.ErrMissingRequiredField)
	}
	if in.UploaderID == "" {
		return nil, fmt.Errorf("%w: uploader", ingest.ErrMissingRequiredField)
	}
	category, ok := model.ParseCategory(in.Category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ingest.ErrInvalidCategory, in.Category)
	}

	staged, err := s.stager.Stage(ctx, r)
	if err != nil {
		return nil, err
	}
	// The single cleanup point for the whole pipeline. Every exit path runs
	// it exactly once; after a successful commit the canonical bytes live in
	// the object store and the staging copy is just as dead. A cleanup
	// failure is logged and never replaces the pipeline's own error.
	defer func() {
		if derr := staged.Discard(); derr != nil {
			logWarn("stage_cleanup_failed", derr)
		}
	}()

	ext := filepath.Ext(in.Filename)

	// Sniffing (and the policy verdict it feeds) and hashing read the same
	// staged bytes independently, so they run in parallel.
	var (
		g      errgroup.Group
		sniff  ingest.SniffResult
		digest string
	)
	g.Go(func() error {
		head, herr := staged.Head(ingest.SniffHeadSize)
		if herr != nil {
			return ingest.StorageError("read staged head", herr)
		}
		sniff = ingest.Sniff(head)
		return s.policy.Validate(ext, in.DeclaredMIME, sniff)
	})
	g.Go(func() error {
		f, oerr := staged.Open()
		if oerr != nil {
			return ingest.StorageError("open staged file", oerr)
		}
		defer f.Close()
		var derr error
		digest, derr = ingest.Digest(f)
		if derr != nil {
			return ingest.StorageError("hash staged file", derr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Tenancy resolves before the dedup reserve on purpose: the facility
	// scope key of the reservation is the resolved facility, not the
	// declared one.
	facilityID, err := s.tenancy.Resolve(ctx, in.FacilityID, in.ResidentID, scope)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mime := sniff.MIME
	if mime == "" {
		mime = in.DeclaredMIME
	}
	if mime == "" {
		mime = "application/octet-stream"
	}

	// Canonical key is per-record, never digest-derived: a dedup loser
	// rolling back its own object must not be able to delete the winner's.
	canonicalName := uuid.New().String() + ext
	key := path.Join("documents", facilityID, canonicalName)

	f, err := staged.Open()
	if err != nil {
		return nil, ingest.StorageError("open staged file", err)
	}
	objInfo, err := s.store.Put(ctx, key, f, storage.PutOptions{
		Size:        staged.Size,
		ContentType: mime,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	f.Close()
	if err != nil {
		return nil, ingest.StorageError("upload to storage", err)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Description:  in.Description,
		Category:     category,
		StoragePath:  objInfo.Key,
		Filename:     canonicalName,
		Size:         objInfo.Size,
		MIME:         mime,
		Digest:       digest,
		FacilityID:   facilityID,
		ResidentID:   in.ResidentID,
		UploaderID:   in.UploaderID,
		ExpiryDate:   in.ExpiryDate,
		Confidential: in.Confidential,
		Tags:         in.Tags,
		Version:      1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Either way the just-uploaded object is ours alone to remove.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logWarn("canonical_rollback_failed", delErr)
		}
		var conflict *repository.DigestConflictError
		if errors.As(err, &conflict) {
			return nil, &ingest.DuplicateContentError{ExistingID: conflict.ExistingID}
		}
		return nil, ingest.StorageError("persist document record", err)
	}
	return stored, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// UpdateMetadata edits title, description, category, tags, expiry and the
// confidential flag.
func (s *documentService) UpdateMetadata(ctx context.Context, id string, in MetadataUpdate) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title", ingest.ErrMissingRequiredField)
	}
	category, ok := model.ParseCategory(in.Category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ingest.ErrInvalidCategory, in.Category)
	}

	doc := &model.Document{
		ID:           id,
		Title:        in.Title,
		Description:  in.Description,
		Category:     category,
		ExpiryDate:   in.ExpiryDate,
		Confidential: in.Confidential,
		Tags:         in.Tags,
	}
	stored, err := s.repo.UpdateMetadata(ctx, doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stored, nil
}

// Remove deletes the record and its bytes. A byte-store failure (object
// already gone, backend hiccup) is logged as a warning and does not block
// the metadata deletion.
func (s *documentService) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		logWarn("canonical_delete_failed", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

// PresignDownload returns a time-limited URL for the stored bytes.
func (s *documentService) PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, doc.StoragePath, expiry)
}

func logWarn(event string, err error) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "warn",
		"component": "service",
		"event":     event,
		"error":     err.Error(),
	}
	if b, merr := json.Marshal(entry); merr == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
