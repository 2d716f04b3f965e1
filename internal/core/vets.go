package core

import (
	"context"

	"doglog/pkg/domain"
)

// CreateVet stores a new vet contact owned by ownerID.
func (s *Service) CreateVet(ctx context.Context, ownerID string, vet domain.Vet) (domain.Vet, error) {
	var created domain.Vet
	err := s.run(ctx, OpCreateVet, ownerID, func(ctx context.Context) (string, error) {
		vet.OwnerID = ownerID
		var err error
		created, err = s.vets.Create(ctx, vet)
		return created.ID, err
	})
	return created, err
}

// GetVet returns one of the owner's vets.
func (s *Service) GetVet(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var vet domain.Vet
	err := s.run(ctx, OpGetVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		vet, err = s.vets.Get(ctx, ownerID, id)
		return id, err
	})
	return vet, err
}

// ListVets returns the owner's vets with the given archive status.
func (s *Service) ListVets(ctx context.Context, ownerID string, status domain.ArchiveStatus) ([]domain.Vet, error) {
	var vets []domain.Vet
	err := s.run(ctx, OpListVets, ownerID, func(ctx context.Context) (string, error) {
		var err error
		vets, err = s.vets.ListByOwner(ctx, ownerID, status)
		return "", err
	})
	return vets, err
}

// UpdateVet applies mutate to a vet, moving its uniqueness lock if needed.
func (s *Service) UpdateVet(ctx context.Context, ownerID, id string, mutate func(*domain.Vet) error) (domain.Vet, error) {
	var updated domain.Vet
	err := s.run(ctx, OpUpdateVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		updated, err = s.vets.Update(ctx, ownerID, id, mutate)
		return id, err
	})
	return updated, err
}

// ArchiveVet soft-deletes a vet and unlinks it from every pet.
func (s *Service) ArchiveVet(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var vet domain.Vet
	err := s.run(ctx, OpArchiveVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		vet, err = s.vets.Archive(ctx, ownerID, id)
		return id, err
	})
	return vet, err
}

// UnarchiveVet restores a vet if its uniqueness key is still free.
func (s *Service) UnarchiveVet(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var vet domain.Vet
	err := s.run(ctx, OpUnarchiveVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		vet, err = s.vets.Unarchive(ctx, ownerID, id)
		return id, err
	})
	return vet, err
}

// DeleteVet permanently removes a vet and its links.
func (s *Service) DeleteVet(ctx context.Context, ownerID, id string) error {
	return s.run(ctx, OpDeleteVet, ownerID, func(ctx context.Context) (string, error) {
		_, err := s.vets.Purge(ctx, ownerID, id)
		return id, err
	})
}
