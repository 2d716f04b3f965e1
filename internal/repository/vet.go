package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"doglog/internal/docstore"
	"doglog/pkg/domain"
)

// VetRepository stores vets. An active vet holds a lock document in
// CollectionVetKeys whose id is "<ownerId>:<uniqueKey>", so two active vets
// of one owner never share a clinic/name/phone key.
type VetRepository struct {
	*ArchivableRepository[domain.Vet, *domain.Vet]
	links *PetVetRepository
}

// NewVetRepository constructs a VetRepository.
func NewVetRepository(store docstore.Store, now Clock) *VetRepository {
	return &VetRepository{
		ArchivableRepository: NewArchivableRepository[domain.Vet, *domain.Vet](store, CollectionVets, domain.EntityVet, now),
		links:                NewPetVetRepository(store, now),
	}
}

// ListByOwner lists the owner's vets in status ordered by clinic then vet name.
func (r *VetRepository) ListByOwner(ctx context.Context, ownerID string, status domain.ArchiveStatus) ([]domain.Vet, error) {
	vets, err := r.ListByStatus(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	SortVets(vets)
	return vets, nil
}

// SortVets orders vets by normalized clinic name, vet name, then id.
func SortVets(vets []domain.Vet) {
	sort.SliceStable(vets, func(i, j int) bool {
		ci, cj := domain.NormalizeName(vets[i].ClinicName), domain.NormalizeName(vets[j].ClinicName)
		if ci != cj {
			return ci < cj
		}
		ni, nj := domain.NormalizeName(vets[i].VetName), domain.NormalizeName(vets[j].VetName)
		if ni != nj {
			return ni < nj
		}
		return vets[i].ID < vets[j].ID
	})
}

// Create validates a new vet and stores it together with its key lock.
func (r *VetRepository) Create(ctx context.Context, vet domain.Vet) (domain.Vet, error) {
	vet.ID = ""
	vet.Archive = domain.Archive{}
	vet.Normalize()
	if err := vet.Validate(); err != nil {
		return domain.Vet{}, err
	}
	vet.ID = r.Store().NewID()
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := r.checkKeyFreeTx(tx, vet); err != nil {
			return err
		}
		if err := r.CreateTx(tx, &vet); err != nil {
			return err
		}
		return r.lockTx(tx, vet)
	})
	if err != nil {
		return domain.Vet{}, err
	}
	return vet, nil
}

// Update applies mutate and moves the key lock when the uniqueness key changes.
func (r *VetRepository) Update(ctx context.Context, ownerID, id string, mutate func(*domain.Vet) error) (domain.Vet, error) {
	var updated domain.Vet
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
		if err := next.Validate(); err != nil {
			return err
		}
		moveLock := !next.IsArchived && next.UniqueKey != current.UniqueKey
		if moveLock {
			if err := r.checkKeyFreeTx(tx, next); err != nil {
				return err
			}
			if err := r.unlockTx(tx, current); err != nil {
				return err
			}
			if err := r.lockTx(tx, next); err != nil {
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
		return domain.Vet{}, err
	}
	return updated, nil
}

// Archive soft-deletes the vet, releases its key and unlinks it from every
// pet, promoting a new primary where it was one.
func (r *VetRepository) Archive(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var out domain.Vet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		out = current
		if current.IsArchived {
			return nil
		}
		plan, err := r.planDetachTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := plan.apply(tx, r.links); err != nil {
			return err
		}
		if err := r.unlockTx(tx, current); err != nil {
			return err
		}
		_, err = r.ArchiveTx(tx, &out)
		return err
	})
	if err != nil {
		return domain.Vet{}, err
	}
	return out, nil
}

// Unarchive restores the vet if its key is still free.
func (r *VetRepository) Unarchive(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var out domain.Vet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		out = current
		if !current.IsArchived {
			return nil
		}
		if err := r.checkKeyFreeTx(tx, current); err != nil {
			return err
		}
		if err := r.lockTx(tx, current); err != nil {
			return err
		}
		_, err = r.UnarchiveTx(tx, &out)
		return err
	})
	if err != nil {
		return domain.Vet{}, err
	}
	return out, nil
}

// Purge physically deletes the vet, its key lock and its links.
func (r *VetRepository) Purge(ctx context.Context, ownerID, id string) (domain.Vet, error) {
	var purged domain.Vet
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		plan, err := r.planDetachTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := plan.apply(tx, r.links); err != nil {
			return err
		}
		if !current.IsArchived {
			if err := r.unlockTx(tx, current); err != nil {
				return err
			}
		}
		purged = current
		return r.DeleteTx(tx, id)
	})
	if err != nil {
		return domain.Vet{}, err
	}
	return purged, nil
}

func (r *VetRepository) checkKeyFreeTx(tx docstore.Tx, vet domain.Vet) error {
	doc, err := tx.Get(CollectionVetKeys, domain.VetKeyID(vet.OwnerID, vet.UniqueKey))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read vet key: %w", err)
	}
	var lock domain.VetKey
	if err := doc.Decode(&lock); err != nil {
		return err
	}
	if lock.VetID == vet.ID {
		return nil
	}
	return domain.DuplicateError{Entity: domain.EntityVet, Field: "uniqueKey"}
}

func (r *VetRepository) lockTx(tx docstore.Tx, vet domain.Vet) error {
	lock := domain.VetKey{OwnerID: vet.OwnerID, VetID: vet.ID, Key: vet.UniqueKey, CreatedAt: r.Now()}
	if err := tx.Set(CollectionVetKeys, domain.VetKeyID(vet.OwnerID, vet.UniqueKey), lock); err != nil {
		return fmt.Errorf("write vet key: %w", err)
	}
	return nil
}

func (r *VetRepository) unlockTx(tx docstore.Tx, vet domain.Vet) error {
	if err := tx.Delete(CollectionVetKeys, domain.VetKeyID(vet.OwnerID, vet.UniqueKey)); err != nil {
		return fmt.Errorf("release vet key: %w", err)
	}
	return nil
}

// detachPlan holds the reads needed to remove a vet from every pet.
type detachPlan struct {
	removed  []domain.PetVetLink
	siblings map[string][]domain.PetVetLink
}

func (r *VetRepository) planDetachTx(tx docstore.Tx, ownerID, vetID string) (detachPlan, error) {
	removed, err := r.links.QueryTx(tx, ownerID, docstore.Where("vetId", docstore.OpEqual, vetID))
	if err != nil {
		return detachPlan{}, err
	}
	plan := detachPlan{removed: removed, siblings: make(map[string][]domain.PetVetLink)}
	for _, l := range removed {
		if l.Role != domain.VetRolePrimary {
			continue
		}
		all, err := r.links.linksForPetTx(tx, ownerID, l.PetID)
		if err != nil {
			return detachPlan{}, err
		}
		_, rest, _ := splitLink(all, vetID)
		plan.siblings[l.PetID] = rest
	}
	return plan, nil
}

func (p detachPlan) apply(tx docstore.Tx, links *PetVetRepository) error {
	for _, l := range p.removed {
		if err := links.DeleteTx(tx, l.ID); err != nil {
			return err
		}
	}
	for _, l := range p.removed {
		if l.Role != domain.VetRolePrimary {
			continue
		}
		if err := links.promoteOldestTx(tx, p.siblings[l.PetID]); err != nil {
			return err
		}
	}
	return nil
}
