package repository

import (
	"context"

	"doglog/internal/docstore"
	"doglog/pkg/domain"
)

// ArchivableRecord is the constraint for entities supporting soft delete.
type ArchivableRecord[T any] interface {
	Record[T]
	ArchiveState() *domain.Archive
}

// ArchivableRepository adds archive state handling to Repository.
type ArchivableRepository[T any, P ArchivableRecord[T]] struct {
	*Repository[T, P]
}

// NewArchivableRepository constructs an archivable repository for collection.
func NewArchivableRepository[T any, P ArchivableRecord[T]](store docstore.Store, collection string, entity domain.EntityType, now Clock) *ArchivableRepository[T, P] {
	return &ArchivableRepository[T, P]{Repository: NewRepository[T, P](store, collection, entity, now)}
}

// StatusFilters returns the filters selecting records in status.
func StatusFilters(status domain.ArchiveStatus) []docstore.Filter {
	switch status {
	case domain.StatusArchived:
		return []docstore.Filter{docstore.Where("isArchived", docstore.OpEqual, true)}
	case domain.StatusAll:
		return nil
	default:
		return []docstore.Filter{docstore.Where("isArchived", docstore.OpEqual, false)}
	}
}

// ListByStatus lists the owner's records in status.
func (r *ArchivableRepository[T, P]) ListByStatus(ctx context.Context, ownerID string, status domain.ArchiveStatus) ([]T, error) {
	return r.List(ctx, ownerID, StatusFilters(status)...)
}

// ListActive lists the owner's records that are not archived.
func (r *ArchivableRepository[T, P]) ListActive(ctx context.Context, ownerID string) ([]T, error) {
	return r.ListByStatus(ctx, ownerID, domain.StatusActive)
}

// ListArchived lists the owner's archived records.
func (r *ArchivableRepository[T, P]) ListArchived(ctx context.Context, ownerID string) ([]T, error) {
	return r.ListByStatus(ctx, ownerID, domain.StatusArchived)
}

// Archive soft-deletes the record. Archiving an archived record is a no-op.
func (r *ArchivableRepository[T, P]) Archive(ctx context.Context, ownerID, id string) (T, error) {
	return r.setArchived(ctx, ownerID, id, true)
}

// Unarchive restores the record. Unarchiving an active record is a no-op.
func (r *ArchivableRepository[T, P]) Unarchive(ctx context.Context, ownerID, id string) (T, error) {
	return r.setArchived(ctx, ownerID, id, false)
}

func (r *ArchivableRepository[T, P]) setArchived(ctx context.Context, ownerID, id string, archived bool) (T, error) {
	var out T
	err := r.Store().RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		if archived {
			_, err = r.ArchiveTx(tx, &current)
		} else {
			_, err = r.UnarchiveTx(tx, &current)
		}
		out = current
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// ArchiveTx marks v archived and writes it. It reports whether anything changed.
func (r *ArchivableRepository[T, P]) ArchiveTx(tx docstore.Tx, v *T) (bool, error) {
	state := P(v).ArchiveState()
	if state.IsArchived {
		return false, nil
	}
	now := r.Now()
	state.IsArchived = true
	state.ArchivedAt = &now
	return true, r.PutTx(tx, v)
}

// UnarchiveTx clears the archive state of v and writes it. It reports whether anything changed.
func (r *ArchivableRepository[T, P]) UnarchiveTx(tx docstore.Tx, v *T) (bool, error) {
	state := P(v).ArchiveState()
	if !state.IsArchived {
		return false, nil
	}
	state.IsArchived = false
	state.ArchivedAt = nil
	return true, r.PutTx(tx, v)
}
