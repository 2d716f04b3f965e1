// Package domain defines the persistent entities, value types, and error
// types shared by the doglog repositories, services, and HTTP adapters.
package domain

import "time"

// EntityType identifies the type of record stored in the document store.
type EntityType string

// Supported entity type identifiers used in errors, audit entries, and collection names.
const (
	// EntityPet identifies a pet record.
	EntityPet EntityType = "pet"
	// EntityVet identifies a veterinarian contact record.
	EntityVet EntityType = "vet"
	// EntityPetVetLink identifies the join record between a pet and a vet.
	EntityPetVetLink EntityType = "pet_vet_link"
	// EntityVetKey identifies a vet uniqueness lock document.
	EntityVetKey EntityType = "vet_key"
	// EntityPetPhoto identifies the photo blob attached to a pet.
	EntityPetPhoto EntityType = "pet_photo"
)

// Species enumerates the kinds of pets the application tracks.
type Species string

// Canonical species values.
const (
	SpeciesDog     Species = "dog"
	SpeciesCat     Species = "cat"
	SpeciesBird    Species = "bird"
	SpeciesRabbit  Species = "rabbit"
	SpeciesReptile Species = "reptile"
	SpeciesOther   Species = "other"
)

// Valid reports whether s is a known species.
func (s Species) Valid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRabbit, SpeciesReptile, SpeciesOther:
		return true
	}
	return false
}

// Sex enumerates the recorded sex of a pet.
type Sex string

// Canonical sex values.
const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Valid reports whether s is a known sex value.
func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	}
	return false
}

// VetRole describes how a veterinarian relates to a pet.
type VetRole string

// Link roles. Every linked pet has exactly one primary vet.
const (
	VetRolePrimary   VetRole = "primary"
	VetRoleSecondary VetRole = "secondary"
)

// Valid reports whether r is a known role.
func (r VetRole) Valid() bool {
	return r == VetRolePrimary || r == VetRoleSecondary
}

// ArchiveStatus selects archived, active, or all records in list operations.
type ArchiveStatus string

// List filters for archivable entities.
const (
	StatusActive   ArchiveStatus = "active"
	StatusArchived ArchiveStatus = "archived"
	StatusAll      ArchiveStatus = "all"
)

// ParseArchiveStatus maps a query value to a status, defaulting to active.
func ParseArchiveStatus(v string) (ArchiveStatus, bool) {
	switch ArchiveStatus(v) {
	case "", StatusActive:
		return StatusActive, true
	case StatusArchived:
		return StatusArchived, true
	case StatusAll:
		return StatusAll, true
	}
	return "", false
}

// Base contains common fields for all stored documents.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta exposes the base fields to generic repositories.
func (b *Base) Meta() *Base { return b }

// Archive carries the soft-delete state of an archivable entity.
type Archive struct {
	IsArchived bool       `json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// ArchiveState exposes the archive fields to generic repositories.
func (a *Archive) ArchiveState() *Archive { return a }

// Pet is an animal owned by a signed-in user.
type Pet struct {
	Base
	Archive
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	NameKey     string     `json:"nameKey"`
	Species     Species    `json:"species"`
	Breed       string     `json:"breed,omitempty"`
	Sex         Sex        `json:"sex"`
	BirthDate   *time.Time `json:"birthDate,omitempty"`
	Color       string     `json:"color,omitempty"`
	MicrochipID string     `json:"microchipId,omitempty"`
	WeightKg    *float64   `json:"weightKg,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	PhotoKey    string     `json:"photoKey,omitempty"`
}

// Vet is a veterinarian or clinic contact kept by a user.
type Vet struct {
	Base
	Archive
	OwnerID      string `json:"ownerId"`
	ClinicName   string `json:"clinicName"`
	VetName      string `json:"vetName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Notes        string `json:"notes,omitempty"`
	UniqueKey    string `json:"uniqueKey"`
}

// PetVetLink joins a pet to one of its owner's vets.
type PetVetLink struct {
	Base
	OwnerID string  `json:"ownerId"`
	PetID   string  `json:"petId"`
	VetID   string  `json:"vetId"`
	Role    VetRole `json:"role"`
}

// Owner returns the uid that owns the pet.
func (p Pet) Owner() string { return p.OwnerID }

// Owner returns the uid that owns the vet.
func (v Vet) Owner() string { return v.OwnerID }

// Owner returns the uid that owns the link.
func (l PetVetLink) Owner() string { return l.OwnerID }

// LinkID returns the deterministic document id of the pet/vet pair.
func LinkID(petID, vetID string) string {
	return petID + "_" + vetID
}

// VetKey is the lock document that reserves a vet uniqueness key for one owner.
type VetKey struct {
	OwnerID   string    `json:"ownerId"`
	VetID     string    `json:"vetId"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

// VetKeyID returns the lock document id for an owner and uniqueness key.
func VetKeyID(ownerID, key string) string {
	return ownerID + ":" + key
}

// User is the local shape of an authenticated identity.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoUrl,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}
