package core

import (
	"context"

	"doglog/internal/repository"
	"doglog/pkg/domain"
)

// PetVet is a link together with the linked vet.
type PetVet struct {
	Link domain.PetVetLink `json:"link"`
	Vet  domain.Vet        `json:"vet"`
}

// VetPet is a link together with the linked pet.
type VetPet struct {
	Link domain.PetVetLink `json:"link"`
	Pet  domain.Pet        `json:"pet"`
}

// LinkVet links a vet to a pet. The first link of a pet is always primary.
func (s *Service) LinkVet(ctx context.Context, ownerID, petID, vetID string, role domain.VetRole) (domain.PetVetLink, error) {
	var link domain.PetVetLink
	err := s.run(ctx, OpLinkVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		link, err = s.links.Link(ctx, ownerID, petID, vetID, role)
		return domain.LinkID(petID, vetID), err
	})
	return link, err
}

// UnlinkVet removes a link, promoting the oldest remaining vet when the primary goes.
func (s *Service) UnlinkVet(ctx context.Context, ownerID, petID, vetID string) error {
	return s.run(ctx, OpUnlinkVet, ownerID, func(ctx context.Context) (string, error) {
		return domain.LinkID(petID, vetID), s.links.Unlink(ctx, ownerID, petID, vetID)
	})
}

// SetPrimaryVet makes vetID the pet's primary vet.
func (s *Service) SetPrimaryVet(ctx context.Context, ownerID, petID, vetID string) (domain.PetVetLink, error) {
	var link domain.PetVetLink
	err := s.run(ctx, OpSetPrimaryVet, ownerID, func(ctx context.Context) (string, error) {
		var err error
		link, err = s.links.SetPrimary(ctx, ownerID, petID, vetID)
		return domain.LinkID(petID, vetID), err
	})
	return link, err
}

// SetVetRole changes the role of a link while keeping exactly one primary.
func (s *Service) SetVetRole(ctx context.Context, ownerID, petID, vetID string, role domain.VetRole) (domain.PetVetLink, error) {
	var link domain.PetVetLink
	err := s.run(ctx, OpSetVetRole, ownerID, func(ctx context.Context) (string, error) {
		var err error
		link, err = s.links.SetRole(ctx, ownerID, petID, vetID, role)
		return domain.LinkID(petID, vetID), err
	})
	return link, err
}

// PetVets returns the pet's vets, primary first, then by link age.
func (s *Service) PetVets(ctx context.Context, ownerID, petID string) ([]PetVet, error) {
	var out []PetVet
	err := s.run(ctx, OpPetVets, ownerID, func(ctx context.Context) (string, error) {
		if _, err := s.pets.Get(ctx, ownerID, petID); err != nil {
			return petID, err
		}
		links, err := s.links.ListForPet(ctx, ownerID, petID)
		if err != nil || len(links) == 0 {
			return petID, err
		}
		vets, err := s.vets.ListByOwner(ctx, ownerID, domain.StatusAll)
		if err != nil {
			return petID, err
		}
		byID := make(map[string]domain.Vet, len(vets))
		for _, v := range vets {
			byID[v.ID] = v
		}
		out = make([]PetVet, 0, len(links))
		for _, l := range links {
			if v, ok := byID[l.VetID]; ok {
				out = append(out, PetVet{Link: l, Vet: v})
			}
		}
		return petID, nil
	})
	return out, err
}

// VetPets returns the pets linked to a vet ordered by pet name.
func (s *Service) VetPets(ctx context.Context, ownerID, vetID string) ([]VetPet, error) {
	var out []VetPet
	err := s.run(ctx, OpVetPets, ownerID, func(ctx context.Context) (string, error) {
		if _, err := s.vets.Get(ctx, ownerID, vetID); err != nil {
			return vetID, err
		}
		links, err := s.links.ListForVet(ctx, ownerID, vetID)
		if err != nil || len(links) == 0 {
			return vetID, err
		}
		pets, err := s.pets.ListByOwner(ctx, ownerID, domain.StatusAll)
		if err != nil {
			return vetID, err
		}
		linkByPet := make(map[string]domain.PetVetLink, len(links))
		for _, l := range links {
			linkByPet[l.PetID] = l
		}
		repository.SortPets(pets)
		out = make([]VetPet, 0, len(links))
		for _, p := range pets {
			if l, ok := linkByPet[p.ID]; ok {
				out = append(out, VetPet{Link: l, Pet: p})
			}
		}
		return vetID, nil
	})
	return out, err
}
