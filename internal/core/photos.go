package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"doglog/internal/blob"
	"doglog/pkg/domain"
)

// Photo content types accepted for upload, detected from the data itself.
var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PetBlobPrefix is the key prefix under which every blob of a pet is stored.
func PetBlobPrefix(ownerID, petID string) string {
	return "pets/" + ownerID + "/" + petID + "/"
}

// PhotoKey returns the blob key of a pet's photo.
func PhotoKey(ownerID, petID string) string {
	return PetBlobPrefix(ownerID, petID) + "photo"
}

func photoProblem(msg string) error {
	return domain.ValidationError{Entity: domain.EntityPetPhoto, Problems: []domain.FieldProblem{{Field: "photo", Message: msg}}}
}

// UploadPetPhoto stores r as the photo of an active pet, replacing any previous one.
func (s *Service) UploadPetPhoto(ctx context.Context, ownerID, petID string, r io.Reader) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, OpUploadPetPhoto, ownerID, func(ctx context.Context) (string, error) {
		data, err := io.ReadAll(io.LimitReader(r, s.maxPhotoBytes+1))
		if err != nil {
			return petID, fmt.Errorf("read photo: %w", err)
		}
		if len(data) == 0 {
			return petID, photoProblem("is empty")
		}
		if int64(len(data)) > s.maxPhotoBytes {
			return petID, photoProblem(fmt.Sprintf("exceeds %d bytes", s.maxPhotoBytes))
		}
		contentType := http.DetectContentType(data)
		if !allowedPhotoTypes[contentType] {
			return petID, photoProblem("must be a jpeg, png, gif or webp image, got " + contentType)
		}
		pet, err := s.pets.Get(ctx, ownerID, petID)
		if err != nil {
			return petID, err
		}
		if pet.IsArchived {
			return petID, domain.ArchivedError{Entity: domain.EntityPet, ID: petID}
		}
		key := PhotoKey(ownerID, petID)
		info, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"ownerid": ownerID, "petid": petID},
		})
		if err != nil {
			return petID, fmt.Errorf("store photo: %w", err)
		}
		// the update also confirms the pet survived the upload
		_, err = s.pets.Update(ctx, ownerID, petID, func(p *domain.Pet) error {
			p.PhotoKey = key
			return nil
		})
		if err != nil {
			var nf domain.NotFoundError
			if pet.PhotoKey != key || errors.As(err, &nf) {
				s.discardBlob(ctx, petID, key)
			}
		}
		return petID, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return info, err
}

// photoKeyFor returns the stored photo key of the pet or a NotFoundError.
func (s *Service) photoKeyFor(ctx context.Context, ownerID, petID string) (string, error) {
	pet, err := s.pets.Get(ctx, ownerID, petID)
	if err != nil {
		return "", err
	}
	if pet.PhotoKey == "" {
		return "", domain.NotFoundError{Entity: domain.EntityPetPhoto, ID: petID}
	}
	return pet.PhotoKey, nil
}

// discardBlob deletes a blob no record points to; failures are only logged.
func (s *Service) discardBlob(ctx context.Context, petID, key string) {
	if _, err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("orphaned pet blob left behind", "pet_id", petID, "key", key, "error", err)
	}
}

// removePetBlobs deletes every blob under the pet's prefix, including
// leftovers of interrupted uploads.
func (s *Service) removePetBlobs(ctx context.Context, ownerID, petID string) {
	infos, err := s.blobs.List(ctx, PetBlobPrefix(ownerID, petID))
	if err != nil {
		s.logger.Warn("pet blob listing failed", "pet_id", petID, "error", err)
		return
	}
	for _, info := range infos {
		s.discardBlob(ctx, petID, info.Key)
	}
}

// PetPhotoInfo returns the photo's metadata without opening its content.
func (s *Service) PetPhotoInfo(ctx context.Context, ownerID, petID string) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, OpPetPhotoInfo, ownerID, func(ctx context.Context) (string, error) {
		key, err := s.photoKeyFor(ctx, ownerID, petID)
		if err != nil {
			return petID, err
		}
		info, err = s.blobs.Head(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			return petID, domain.NotFoundError{Entity: domain.EntityPetPhoto, ID: petID}
		}
		return petID, err
	})
	return info, err
}

// OpenPetPhoto returns the photo's metadata and content. The caller closes the reader.
func (s *Service) OpenPetPhoto(ctx context.Context, ownerID, petID string) (blob.Info, io.ReadCloser, error) {
	var (
		info blob.Info
		rc   io.ReadCloser
	)
	err := s.run(ctx, OpOpenPetPhoto, ownerID, func(ctx context.Context) (string, error) {
		key, err := s.photoKeyFor(ctx, ownerID, petID)
		if err != nil {
			return petID, err
		}
		info, rc, err = s.blobs.Get(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			return petID, domain.NotFoundError{Entity: domain.EntityPetPhoto, ID: petID}
		}
		return petID, err
	})
	return info, rc, err
}

// PetPhotoURL returns a time-limited direct URL to the photo. Drivers without
// signed URLs return an error matching blob.ErrUnsupported.
func (s *Service) PetPhotoURL(ctx context.Context, ownerID, petID string, expiry time.Duration) (string, error) {
	var url string
	err := s.run(ctx, OpPetPhotoURL, ownerID, func(ctx context.Context) (string, error) {
		key, err := s.photoKeyFor(ctx, ownerID, petID)
		if err != nil {
			return petID, err
		}
		url, err = s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: expiry})
		return petID, err
	})
	return url, err
}

// DeletePetPhoto removes the photo and clears the pet's photo key.
func (s *Service) DeletePetPhoto(ctx context.Context, ownerID, petID string) error {
	err := s.run(ctx, OpDeletePetPhoto, ownerID, func(ctx context.Context) (string, error) {
		key, err := s.photoKeyFor(ctx, ownerID, petID)
		if err != nil {
			return petID, err
		}
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			return petID, fmt.Errorf("delete photo: %w", err)
		}
		_, err = s.pets.Update(ctx, ownerID, petID, func(p *domain.Pet) error {
			p.PhotoKey = ""
			return nil
		})
		return petID, err
	})
	if err == nil {
		s.invalidatePets(ctx, ownerID)
	}
	return err
}
