// Package notes manages teacher-uploaded study material: the document goes
// to file storage, its locators and metadata go to mongo.
package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"github.com/patshala/backend/pkg/file"
	"github.com/patshala/backend/pkg/logger"
	"github.com/patshala/backend/pkg/sanitizer"
	"github.com/patshala/backend/pkg/validator"
)

// DefaultMaxFileSize caps uploads at 10 MiB.
const DefaultMaxFileSize = 10 << 20

var allowedMIMETypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
}

// ErrMissingFile means the multipart form carried no document.
var ErrMissingFile = errors.New("no file attached")

// ErrInvalidKind means the requested content type is not served.
var ErrInvalidKind = errors.New("invalid content type")

// Kind selects which document collection a listing reads. Uploads always
// produce notes; question papers are maintained out of band.
type Kind string

const (
	KindNotes Kind = "notes"
	KindPYQ   Kind = "pyq"
)

// Valid reports whether the kind names a served collection.
func (k Kind) Valid() bool {
	return k == KindNotes || k == KindPYQ
}

// SubjectAll is the client sentinel for an unfiltered listing.
const SubjectAll = "All"

// Note is one stored document.
type Note struct {
	ID          uuid.UUID
	Subject     string
	Title       string
	UploadedBy  string
	ViewURL     string
	DownloadURL string
	UploadedAt  time.Time
}

// UploadInput carries the upload form. UploadedBy is the teacher's name
// taken from the session, not the form.
type UploadInput struct {
	Subject    string
	Title      string
	UploadedBy string
	File       *multipart.FileHeader
}

// Repository persists note metadata. Insert always writes to the notes
// collection; List reads the collection named by kind.
type Repository interface {
	Insert(ctx context.Context, n *Note) error
	List(ctx context.Context, kind Kind, subject string) ([]Note, error)
}

// Service coordinates file storage and the metadata repository.
type Service struct {
	repo    Repository
	files   file.Storage
	log     *slog.Logger
	maxSize int64
	now     func() time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMaxFileSize overrides the upload size cap.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) {
		s.maxSize = n
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds the notes service.
func NewService(repo Repository, files file.Storage, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		files:   files,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSize: DefaultMaxFileSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates and stores the document, then records its metadata.
// The storage path is namespaced by subject so listings map onto prefixes.
func (s *Service) Upload(ctx context.Context, input UploadInput) (*Note, error) {
	input.Subject = sanitizer.CollapseWhitespace(input.Subject)
	input.Title = sanitizer.CollapseWhitespace(input.Title)

	if err := validator.Apply(
		validator.RequiredString("subject", input.Subject),
		validator.RequiredString("title", input.Title),
	); err != nil {
		return nil, err
	}
	if input.File == nil {
		return nil, ErrMissingFile
	}

	if err := file.ValidateSize(input.File, s.maxSize); err != nil {
		return nil, err
	}
	if err := file.ValidateMIMEType(input.File, allowedMIMETypes...); err != nil {
		return nil, err
	}

	id := uuid.New()
	path := fmt.Sprintf("%s/%s_%s",
		sanitizer.SubjectKey(input.Subject),
		id.String(),
		sanitizer.FileName(file.SanitizeFilename(input.File.Filename)),
	)

	stored, err := s.files.Save(ctx, input.File, path)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	viewURL := s.files.URL(stored.RelativePath)
	note := &Note{
		ID:          id,
		Subject:     input.Subject,
		Title:       input.Title,
		UploadedBy:  input.UploadedBy,
		ViewURL:     viewURL,
		DownloadURL: viewURL + "?download=true",
		UploadedAt:  s.now(),
	}

	if err := s.repo.Insert(ctx, note); err != nil {
		// Orphaned blobs are worse than a retried upload.
		if delErr := s.files.Delete(ctx, stored.RelativePath); delErr != nil {
			s.log.Error("failed to clean up document after metadata failure",
				logger.Component("notes"),
				slog.String("path", stored.RelativePath),
				logger.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to record note: %w", err)
	}

	s.log.Info("note uploaded",
		logger.Component("notes"),
		slog.String("subject", note.Subject),
		slog.String("uploaded_by", note.UploadedBy),
	)

	return note, nil
}

// List returns stored documents of the given kind, optionally filtered by
// subject. Subject matching is exact after whitespace normalization; an
// empty subject or SubjectAll returns everything.
func (s *Service) List(ctx context.Context, kind Kind, subject string) ([]Note, error) {
	if err := validator.Apply(
		validator.RequiredString("type", string(kind)),
	); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	subject = sanitizer.CollapseWhitespace(subject)
	if subject == SubjectAll {
		subject = ""
	}

	notes, err := s.repo.List(ctx, kind, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return notes, nil
}
