package repository

import (
	"context"
	"sort"

	"doglog/internal/docstore"
	"doglog/pkg/domain"
)

// PetRepository stores pets. Among an owner's active pets the name key is
// unique, as is any non-empty microchip id.
type PetRepository struct {
	*ArchivableRepository[domain.Pet, *domain.Pet]
	links *Repository[domain.PetVetLink, *domain.PetVetLink]
}

// NewPetRepository constructs a PetRepository.
func NewPetRepository(store docstore.Store, now Clock) *PetRepository {
	return &PetRepository{
		ArchivableRepository: NewArchivableRepository[domain.Pet, *domain.Pet](store, CollectionPets, domain.EntityPet, now),
		links:                NewRepository[domain.PetVetLink, *domain.PetVetLink](store, CollectionPetVets, domain.EntityPetVetLink, now),
	}
}

// ListByOwner lists the owner's pets in status ordered by name.
func (r *PetRepository) ListByOwner(ctx context.Context, ownerID string, status domain.ArchiveStatus) ([]domain.Pet, error) {
	pets, err := r.ListByStatus(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	SortPets(pets)
	return pets, nil
}

// SortPets orders pets by name key, then id.
func SortPets(pets []domain.Pet) {
	sort.SliceStable(pets, func(i, j int) bool {
		if pets[i].NameKey != pets[j].NameKey {
			return pets[i].NameKey < pets[j].NameKey
		}
		return pets[i].ID < pets[j].ID
	})
}

// Create validates and stores a new active pet.
func (r *PetRepository) Create(ctx context.Context, pet domain.Pet) (domain.Pet, error) {
	pet.ID = ""
	pet.Archive = domain.Archive{}
	pet.Normalize()
	if err := pet.Validate(r.Now()); err != nil {
		return domain.Pet{}, err
	}
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := r.checkUniqueTx(tx, pet); err != nil {
			return err
		}
		return r.CreateTx(tx, &pet)
	})
	if err != nil {
		return domain.Pet{}, err
	}
	return pet, nil
}

// Update applies mutate to a stored pet, then re-normalizes, validates and
// re-checks uniqueness. Archive state is changed only through Archive/Unarchive.
func (r *PetRepository) Update(ctx context.Context, ownerID, id string, mutate func(*domain.Pet) error) (domain.Pet, error) {
	var updated domain.Pet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		next := current
		if err := mutate(&next); err != nil {
			return err
		}
		next.Base, next.Archive, next.OwnerID = current.Base, current.Archive, current.OwnerID
		next.Normalize()
		if err := next.Validate(r.Now()); err != nil {
			return err
		}
		if !next.IsArchived {
			if err := r.checkUniqueTx(tx, next); err != nil {
				return err
			}
		}
		if err := r.PutTx(tx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Pet{}, err
	}
	return updated, nil
}

// Unarchive restores a pet if no active pet took its name or microchip meanwhile.
func (r *PetRepository) Unarchive(ctx context.Context, ownerID, id string) (domain.Pet, error) {
	var out domain.Pet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		out = current
		if !current.IsArchived {
			return nil
		}
		if err := r.checkUniqueTx(tx, current); err != nil {
			return err
		}
		_, err = r.UnarchiveTx(tx, &out)
		return err
	})
	if err != nil {
		return domain.Pet{}, err
	}
	return out, nil
}

// Purge physically deletes the pet and every link to it, returning the deleted pet.
func (r *PetRepository) Purge(ctx context.Context, ownerID, id string) (domain.Pet, error) {
	var purged domain.Pet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		links, err := r.links.QueryTx(tx, ownerID, docstore.Where("petId", docstore.OpEqual, id))
		if err != nil {
			return err
		}
		for _, l := range links {
			if err := r.links.DeleteTx(tx, l.ID); err != nil {
				return err
			}
		}
		purged = current
		return r.DeleteTx(tx, id)
	})
	if err != nil {
		return domain.Pet{}, err
	}
	return purged, nil
}

func (r *PetRepository) checkUniqueTx(tx docstore.Tx, pet domain.Pet) error {
	active := docstore.Where("isArchived", docstore.OpEqual, false)
	clash, err := r.QueryTx(tx, pet.OwnerID, docstore.Where("nameKey", docstore.OpEqual, pet.NameKey), active)
	if err != nil {
		return err
	}
	if other(clash, pet.ID) {
		return domain.DuplicateError{Entity: domain.EntityPet, Field: "name", Value: pet.Name}
	}
	if pet.MicrochipID == "" {
		return nil
	}
	clash, err = r.QueryTx(tx, pet.OwnerID, docstore.Where("microchipId", docstore.OpEqual, pet.MicrochipID), active)
	if err != nil {
		return err
	}
	if other(clash, pet.ID) {
		return domain.DuplicateError{Entity: domain.EntityPet, Field: "microchipId", Value: pet.MicrochipID}
	}
	return nil
}

func other(pets []domain.Pet, selfID string) bool {
	for _, p := range pets {
		if p.ID != selfID {
			return true
		}
	}
	return false
}
