// Package core implements the doglog service layer: every pet, vet, link and
// photo operation the HTTP API exposes, wrapped with tracing, metrics, audit
// and logging.
package core

import (
	"context"
	"errors"
	"time"

	"doglog/internal/blob"
	"doglog/internal/docstore"
	"doglog/internal/repository"
	"doglog/pkg/domain"
)

// Operation names used for spans, metrics and audit entries.
const (
	OpCreatePet    = "create_pet"
	OpGetPet       = "get_pet"
	OpListPets     = "list_pets"
	OpUpdatePet    = "update_pet"
	OpArchivePet   = "archive_pet"
	OpUnarchivePet = "unarchive_pet"
	OpDeletePet    = "delete_pet"

	OpCreateVet    = "create_vet"
	OpGetVet       = "get_vet"
	OpListVets     = "list_vets"
	OpUpdateVet    = "update_vet"
	OpArchiveVet   = "archive_vet"
	OpUnarchiveVet = "unarchive_vet"
	OpDeleteVet    = "delete_vet"

	OpLinkVet       = "link_vet"
	OpUnlinkVet     = "unlink_vet"
	OpSetPrimaryVet = "set_primary_vet"
	OpSetVetRole    = "set_vet_role"
	OpPetVets       = "list_pet_vets"
	OpVetPets       = "list_vet_pets"

	OpUploadPetPhoto = "upload_pet_photo"
	OpOpenPetPhoto   = "open_pet_photo"
	OpPetPhotoInfo   = "pet_photo_info"
	OpPetPhotoURL    = "pet_photo_url"
	OpDeletePetPhoto = "delete_pet_photo"
)

type auditMeta struct {
	entity domain.EntityType
	action AuditAction
}

// auditedOperations lists the mutating operations; anything absent is a read.
var auditedOperations = map[string]auditMeta{
	OpCreatePet:      {domain.EntityPet, ActionCreate},
	OpUpdatePet:      {domain.EntityPet, ActionUpdate},
	OpArchivePet:     {domain.EntityPet, ActionArchive},
	OpUnarchivePet:   {domain.EntityPet, ActionUnarchive},
	OpDeletePet:      {domain.EntityPet, ActionDelete},
	OpCreateVet:      {domain.EntityVet, ActionCreate},
	OpUpdateVet:      {domain.EntityVet, ActionUpdate},
	OpArchiveVet:     {domain.EntityVet, ActionArchive},
	OpUnarchiveVet:   {domain.EntityVet, ActionUnarchive},
	OpDeleteVet:      {domain.EntityVet, ActionDelete},
	OpLinkVet:        {domain.EntityPetVetLink, ActionLink},
	OpUnlinkVet:      {domain.EntityPetVetLink, ActionUnlink},
	OpSetPrimaryVet:  {domain.EntityPetVetLink, ActionUpdate},
	OpSetVetRole:     {domain.EntityPetVetLink, ActionUpdate},
	OpUploadPetPhoto: {domain.EntityPetPhoto, ActionCreate},
	OpDeletePetPhoto: {domain.EntityPetPhoto, ActionDelete},
}

// DefaultMaxPhotoBytes caps photo uploads when WithMaxPhotoBytes is not given.
const DefaultMaxPhotoBytes int64 = 5 << 20

// Service exposes the pet, vet and link operations over a document store.
type Service struct {
	store docstore.Store
	pets  *repository.PetRepository
	vets  *repository.VetRepository
	links *repository.PetVetRepository

	blobs         blob.Store
	cache         ListCache
	maxPhotoBytes int64

	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditRecorder sets where audit entries go.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithCache enables caching of pet lists.
func WithCache(cache ListCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithBlobStore sets the photo store. The default keeps photos in memory.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.blobs = store
		}
	}
}

// WithMaxPhotoBytes caps the size of uploaded photos.
func WithMaxPhotoBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPhotoBytes = n
		}
	}
}

// NewService constructs a service backed by the supplied document store.
func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		blobs:         blob.NewMemory(),
		cache:         noopCache{},
		maxPhotoBytes: DefaultMaxPhotoBytes,
		logger:        noopLogger{},
		clock:         systemClock{},
		audit:         noopAuditRecorder{},
		metrics:       noopMetricsRecorder{},
		tracer:        noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	now := func() time.Time { return s.clock.Now() }
	s.pets = repository.NewPetRepository(store, now)
	s.vets = repository.NewVetRepository(store, now)
	s.links = repository.NewPetVetRepository(store, now)
	return s
}

// Store returns the underlying document store.
func (s *Service) Store() docstore.Store { return s.store }

// Blobs returns the photo store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// MaxPhotoBytes returns the upload size cap.
func (s *Service) MaxPhotoBytes() int64 { return s.maxPhotoBytes }

// run executes one operation: fn returns the affected entity id for audit.
func (s *Service) run(ctx context.Context, op, ownerID string, fn func(context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	entityID, err := fn(ctx)
	err = commitConflict(op, entityID, err)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "owner_id", ownerID, "entity_id", entityID, "duration", duration)
	case IsClientError(err):
		s.logger.Warn("operation rejected", "operation", op, "owner_id", ownerID, "entity_id", entityID, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "owner_id", ownerID, "entity_id", entityID, "error", err)
	}
	s.recordAudit(ctx, op, ownerID, entityID, duration, err)
	return err
}

func (s *Service) recordAudit(ctx context.Context, op, ownerID, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		OwnerID:   ownerID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// commitConflict turns an ErrAlreadyExists that escaped the repositories into
// a DuplicateError. Firestore only reports create conflicts at commit.
func commitConflict(op, entityID string, err error) error {
	var dup domain.DuplicateError
	if err == nil || !errors.Is(err, docstore.ErrAlreadyExists) || errors.As(err, &dup) {
		return err
	}
	entity := domain.EntityPet
	if meta, ok := auditedOperations[op]; ok {
		entity = meta.entity
	}
	return domain.DuplicateError{Entity: entity, Field: "id", Value: entityID}
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	var (
		nf  domain.NotFoundError
		dup domain.DuplicateError
		val domain.ValidationError
		inv domain.InvariantError
		arc domain.ArchivedError
	)
	return errors.As(err, &nf) || errors.As(err, &dup) || errors.As(err, &val) ||
		errors.As(err, &inv) || errors.As(err, &arc)
}
