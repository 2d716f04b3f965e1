package core

import (
	"context"

	"doglog/pkg/domain"
)

// CreatePet stores a new pet owned by ownerID.
func (s *Service) CreatePet(ctx context.Context, ownerID string, pet domain.Pet) (domain.Pet, error) {
	var created domain.Pet
	err := s.run(ctx, OpCreatePet, ownerID, func(ctx context.Context) (string, error) {
		pet.OwnerID = ownerID
		pet.PhotoKey = ""
		var err error
		created, err = s.pets.Create(ctx, pet)
		return created.ID, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return created, err
}

// GetPet returns one of the owner's pets.
func (s *Service) GetPet(ctx context.Context, ownerID, id string) (domain.Pet, error) {
	var pet domain.Pet
	err := s.run(ctx, OpGetPet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		pet, err = s.pets.Get(ctx, ownerID, id)
		return id, err
	})
	return pet, err
}

// ListPets returns the owner's pets with the given archive status, ordered by name.
func (s *Service) ListPets(ctx context.Context, ownerID string, status domain.ArchiveStatus) ([]domain.Pet, error) {
	var pets []domain.Pet
	err := s.run(ctx, OpListPets, ownerID, func(ctx context.Context) (string, error) {
		gen, cacheable := s.petsGeneration(ctx, ownerID)
		if cacheable {
			if cached, ok := s.cachedPets(ctx, ownerID, gen, status); ok {
				pets = cached
				return "", nil
			}
		}
		var err error
		pets, err = s.pets.ListByOwner(ctx, ownerID, status)
		if err == nil && cacheable {
			s.storePets(ctx, ownerID, gen, status, pets)
		}
		return "", err
	})
	return pets, err
}

// UpdatePet applies mutate to a pet. The photo key is managed by the photo
// operations and cannot be changed here.
func (s *Service) UpdatePet(ctx context.Context, ownerID, id string, mutate func(*domain.Pet) error) (domain.Pet, error) {
	var updated domain.Pet
	err := s.run(ctx, OpUpdatePet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		updated, err = s.pets.Update(ctx, ownerID, id, func(p *domain.Pet) error {
			photo := p.PhotoKey
			if err := mutate(p); err != nil {
				return err
			}
			p.PhotoKey = photo
			return nil
		})
		return id, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return updated, err
}

// ArchivePet soft-deletes a pet. Archiving an archived pet is a no-op.
func (s *Service) ArchivePet(ctx context.Context, ownerID, id string) (domain.Pet, error) {
	var pet domain.Pet
	err := s.run(ctx, OpArchivePet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		pet, err = s.pets.Archive(ctx, ownerID, id)
		return id, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return pet, err
}

// UnarchivePet restores a pet unless an active pet took its name or microchip.
func (s *Service) UnarchivePet(ctx context.Context, ownerID, id string) (domain.Pet, error) {
	var pet domain.Pet
	err := s.run(ctx, OpUnarchivePet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		pet, err = s.pets.Unarchive(ctx, ownerID, id)
		return id, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return pet, err
}

// DeletePet permanently removes a pet, its vet links and its photo.
func (s *Service) DeletePet(ctx context.Context, ownerID, id string) error {
	err := s.run(ctx, OpDeletePet, ownerID, func(ctx context.Context) (string, error) {
		purged, err := s.pets.Purge(ctx, ownerID, id)
		if err != nil {
			return id, err
		}
		s.removePetBlobs(ctx, ownerID, purged.ID)
		return id, nil
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return err
}
