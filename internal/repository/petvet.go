package repository

import (
	"context"
	"fmt"
	"sort"

	"doglog/internal/docstore"
	"doglog/pkg/domain"
)

// PetVetRepository manages links between pets and vets. Every pet with at
// least one link has exactly one primary link.
type PetVetRepository struct {
	*Repository[domain.PetVetLink, *domain.PetVetLink]
	pets *Repository[domain.Pet, *domain.Pet]
	vets *Repository[domain.Vet, *domain.Vet]
}

// NewPetVetRepository constructs a PetVetRepository.
func NewPetVetRepository(store docstore.Store, now Clock) *PetVetRepository {
	return &PetVetRepository{
		Repository: NewRepository[domain.PetVetLink, *domain.PetVetLink](store, CollectionPetVets, domain.EntityPetVetLink, now),
		pets:       NewRepository[domain.Pet, *domain.Pet](store, CollectionPets, domain.EntityPet, now),
		vets:       NewRepository[domain.Vet, *domain.Vet](store, CollectionVets, domain.EntityVet, now),
	}
}

// Link connects a pet to a vet. The first link of a pet is always primary;
// linking another vet as primary demotes the current primary.
func (r *PetVetRepository) Link(ctx context.Context, ownerID, petID, vetID string, role domain.VetRole) (domain.PetVetLink, error) {
	if role == "" {
		role = domain.VetRoleSecondary
	}
	link := domain.PetVetLink{OwnerID: ownerID, PetID: petID, VetID: vetID, Role: role}
	if err := link.Validate(); err != nil {
		return domain.PetVetLink{}, err
	}
	link.ID = domain.LinkID(petID, vetID)
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		pet, err := r.pets.GetTx(tx, ownerID, petID)
		if err != nil {
			return err
		}
		if pet.IsArchived {
			return domain.ArchivedError{Entity: domain.EntityPet, ID: petID}
		}
		vet, err := r.vets.GetTx(tx, ownerID, vetID)
		if err != nil {
			return err
		}
		if vet.IsArchived {
			return domain.ArchivedError{Entity: domain.EntityVet, ID: vetID}
		}
		existing, err := r.linksForPetTx(tx, ownerID, petID)
		if err != nil {
			return err
		}
		for _, l := range existing {
			if l.VetID == vetID {
				return domain.DuplicateError{Entity: domain.EntityPetVetLink, Field: "vetId", Value: vetID}
			}
		}
		if len(existing) == 0 {
			link.Role = domain.VetRolePrimary
		}
		if link.Role == domain.VetRolePrimary {
			if err := r.demoteTx(tx, existing); err != nil {
				return err
			}
		}
		return r.CreateTx(tx, &link)
	})
	if err != nil {
		return domain.PetVetLink{}, err
	}
	return link, nil
}

// Unlink removes the link. When it was primary, the oldest remaining link is promoted.
func (r *PetVetRepository) Unlink(ctx context.Context, ownerID, petID, vetID string) error {
	return r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		links, err := r.linksForPetTx(tx, ownerID, petID)
		if err != nil {
			return err
		}
		target, rest, ok := splitLink(links, vetID)
		if !ok {
			return r.notFound(domain.LinkID(petID, vetID))
		}
		if err := r.DeleteTx(tx, target.ID); err != nil {
			return err
		}
		if target.Role == domain.VetRolePrimary {
			return r.promoteOldestTx(tx, rest)
		}
		return nil
	})
}

// SetPrimary makes the link primary, demoting the previous primary.
func (r *PetVetRepository) SetPrimary(ctx context.Context, ownerID, petID, vetID string) (domain.PetVetLink, error) {
	return r.SetRole(ctx, ownerID, petID, vetID, domain.VetRolePrimary)
}

// SetRole changes the role of a link. Demoting the primary promotes the
// oldest other link; demoting a pet's only link is rejected.
func (r *PetVetRepository) SetRole(ctx context.Context, ownerID, petID, vetID string, role domain.VetRole) (domain.PetVetLink, error) {
	if !role.Valid() {
		return domain.PetVetLink{}, domain.ValidationError{Entity: domain.EntityPetVetLink, Problems: []domain.FieldProblem{{Field: "role", Message: "must be primary or secondary"}}}
	}
	var out domain.PetVetLink
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		links, err := r.linksForPetTx(tx, ownerID, petID)
		if err != nil {
			return err
		}
		target, rest, ok := splitLink(links, vetID)
		if !ok {
			return r.notFound(domain.LinkID(petID, vetID))
		}
		out = target
		if target.Role == role {
			return nil
		}
		if role == domain.VetRolePrimary {
			if err := r.demoteTx(tx, rest); err != nil {
				return err
			}
		} else {
			if len(rest) == 0 {
				return domain.InvariantError{Rule: domain.RulePrimaryVet, Message: fmt.Sprintf("pet %s must keep a primary vet", petID)}
			}
			if err := r.promoteOldestTx(tx, rest); err != nil {
				return err
			}
		}
		out.Role = role
		return r.PutTx(tx, &out)
	})
	if err != nil {
		return domain.PetVetLink{}, err
	}
	return out, nil
}

// ListForPet lists the pet's links, primary first, then oldest first.
func (r *PetVetRepository) ListForPet(ctx context.Context, ownerID, petID string) ([]domain.PetVetLink, error) {
	links, err := r.List(ctx, ownerID, docstore.Where("petId", docstore.OpEqual, petID))
	if err != nil {
		return nil, err
	}
	SortLinks(links)
	return links, nil
}

// ListForVet lists the links to a vet, oldest first.
func (r *PetVetRepository) ListForVet(ctx context.Context, ownerID, vetID string) ([]domain.PetVetLink, error) {
	links, err := r.List(ctx, ownerID, docstore.Where("vetId", docstore.OpEqual, vetID))
	if err != nil {
		return nil, err
	}
	sortByAge(links)
	return links, nil
}

// Primary returns the pet's primary link, if any.
func (r *PetVetRepository) Primary(ctx context.Context, ownerID, petID string) (domain.PetVetLink, bool, error) {
	links, err := r.List(ctx, ownerID,
		docstore.Where("petId", docstore.OpEqual, petID),
		docstore.Where("role", docstore.OpEqual, string(domain.VetRolePrimary)))
	if err != nil {
		return domain.PetVetLink{}, false, err
	}
	if len(links) == 0 {
		return domain.PetVetLink{}, false, nil
	}
	return links[0], true, nil
}

func (r *PetVetRepository) linksForPetTx(tx docstore.Tx, ownerID, petID string) ([]domain.PetVetLink, error) {
	return r.QueryTx(tx, ownerID, docstore.Where("petId", docstore.OpEqual, petID))
}

// demoteTx turns every primary among links into a secondary.
func (r *PetVetRepository) demoteTx(tx docstore.Tx, links []domain.PetVetLink) error {
	for i := range links {
		if links[i].Role != domain.VetRolePrimary {
			continue
		}
		links[i].Role = domain.VetRoleSecondary
		if err := r.PutTx(tx, &links[i]); err != nil {
			return err
		}
	}
	return nil
}

// promoteOldestTx makes the oldest of links primary. links must not contain a primary.
func (r *PetVetRepository) promoteOldestTx(tx docstore.Tx, links []domain.PetVetLink) error {
	next, ok := ElectPrimary(links)
	if !ok {
		return nil
	}
	next.Role = domain.VetRolePrimary
	return r.PutTx(tx, &next)
}

// ElectPrimary picks the link to promote: oldest createdAt, ties broken by vet id.
func ElectPrimary(links []domain.PetVetLink) (domain.PetVetLink, bool) {
	if len(links) == 0 {
		return domain.PetVetLink{}, false
	}
	sorted := append([]domain.PetVetLink(nil), links...)
	sortByAge(sorted)
	return sorted[0], true
}

// SortLinks orders links primary first, then by age.
func SortLinks(links []domain.PetVetLink) {
	sort.SliceStable(links, func(i, j int) bool {
		pi, pj := links[i].Role == domain.VetRolePrimary, links[j].Role == domain.VetRolePrimary
		if pi != pj {
			return pi
		}
		return olderThan(links[i], links[j])
	})
}

func sortByAge(links []domain.PetVetLink) {
	sort.SliceStable(links, func(i, j int) bool { return olderThan(links[i], links[j]) })
}

func olderThan(a, b domain.PetVetLink) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.VetID < b.VetID
}

func splitLink(links []domain.PetVetLink, vetID string) (domain.PetVetLink, []domain.PetVetLink, bool) {
	var (
		target domain.PetVetLink
		found  bool
	)
	rest := make([]domain.PetVetLink, 0, len(links))
	for _, l := range links {
		if l.VetID == vetID {
			target, found = l, true
			continue
		}
		rest = append(rest, l)
	}
	return target, rest, found
}
