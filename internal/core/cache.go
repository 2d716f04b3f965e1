package core

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"doglog/pkg/domain"
)

// ListCache stores encoded list results. Implementations live in internal/cache.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, string, []byte) error         { return nil }
func (noopCache) Delete(context.Context, ...string) error           { return nil }

var cachedStatuses = []domain.ArchiveStatus{domain.StatusActive, domain.StatusArchived, domain.StatusAll}

// Cached lists are stored under the owner's current generation. Invalidation
// moves the owner to a fresh generation, so a list read before the move can
// only be written under a generation nobody reads again.
func petsGenKey(ownerID string) string {
	return "petsgen:" + ownerID
}

func petsCacheKey(ownerID, gen string, status domain.ArchiveStatus) string {
	return "pets:" + ownerID + ":" + gen + ":" + string(status)
}

// petsGeneration returns the owner's current generation, starting one when
// none is cached. ok is false when the cache cannot be used.
func (s *Service) petsGeneration(ctx context.Context, ownerID string) (gen string, ok bool) {
	if _, off := s.cache.(noopCache); off {
		return "", false
	}
	raw, found, err := s.cache.Get(ctx, petsGenKey(ownerID))
	if err != nil {
		s.logger.Warn("pets cache read failed", "owner_id", ownerID, "error", err)
		return "", false
	}
	if found && len(raw) > 0 {
		return string(raw), true
	}
	gen = uuid.NewString()
	if err := s.cache.Set(ctx, petsGenKey(ownerID), []byte(gen)); err != nil {
		s.logger.Warn("pets cache write failed", "owner_id", ownerID, "error", err)
		return "", false
	}
	return gen, true
}

// cachedPets returns the cached list; cache failures count as misses.
func (s *Service) cachedPets(ctx context.Context, ownerID, gen string, status domain.ArchiveStatus) ([]domain.Pet, bool) {
	raw, ok, err := s.cache.Get(ctx, petsCacheKey(ownerID, gen, status))
	if err != nil {
		s.logger.Warn("pets cache read failed", "owner_id", ownerID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var pets []domain.Pet
	if err := json.Unmarshal(raw, &pets); err != nil {
		s.logger.Warn("pets cache entry corrupt", "owner_id", ownerID, "error", err)
		return nil, false
	}
	return pets, true
}

func (s *Service) storePets(ctx context.Context, ownerID, gen string, status domain.ArchiveStatus, pets []domain.Pet) {
	raw, err := json.Marshal(pets)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, petsCacheKey(ownerID, gen, status), raw); err != nil {
		s.logger.Warn("pets cache write failed", "owner_id", ownerID, "error", err)
	}
}

// invalidatePets moves the owner to a new generation and drops the lists of
// the old one. If the new generation cannot be written the generation key is
// deleted instead, which also orphans every cached list.
func (s *Service) invalidatePets(ctx context.Context, ownerID string) {
	if _, off := s.cache.(noopCache); off {
		return
	}
	genKey := petsGenKey(ownerID)
	old, found, err := s.cache.Get(ctx, genKey)
	if err != nil {
		found = false
	}
	if err := s.cache.Set(ctx, genKey, []byte(uuid.NewString())); err != nil {
		s.logger.Warn("pets cache invalidation failed", "owner_id", ownerID, "error", err)
		if err := s.cache.Delete(ctx, genKey); err != nil {
			s.logger.Error("pets cache generation stuck", "owner_id", ownerID, "error", err)
		}
	}
	if !found || len(old) == 0 {
		return
	}
	keys := make([]string, 0, len(cachedStatuses))
	for _, st := range cachedStatuses {
		keys = append(keys, petsCacheKey(ownerID, string(old), st))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("pets cache cleanup failed", "owner_id", ownerID, "error", err)
	}
}
