package domain

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLength  = 100
	maxNotesLength = 4000
)

// Normalize trims user-supplied fields and fills derived keys.
func (p *Pet) Normalize() {
	trimFields(&p.Name, &p.Breed, &p.Color, &p.MicrochipID, &p.Notes)
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	p.NameKey = NormalizeName(p.Name)
	p.MicrochipID = strings.ToUpper(strings.ReplaceAll(p.MicrochipID, " ", ""))
	p.Species = Species(strings.ToLower(string(p.Species)))
	p.Sex = Sex(strings.ToLower(string(p.Sex)))
	if p.Sex == "" {
		p.Sex = SexUnknown
	}
	if p.BirthDate != nil {
		// the calendar day as written, whatever the offset
		y, m, d := p.BirthDate.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		p.BirthDate = &day
	}
}

// Validate checks a normalized pet. now bounds the birth date.
func (p Pet) Validate(now time.Time) error {
	probs := problems{entity: EntityPet}
	if p.OwnerID == "" {
		probs.add("ownerId", "is required")
	}
	switch {
	case p.Name == "":
		probs.add("name", "is required")
	case utf8.RuneCountInString(p.Name) > maxNameLength:
		probs.add("name", "is too long")
	}
	if !p.Species.Valid() {
		probs.add("species", "must be one of dog, cat, bird, rabbit, reptile, other")
	}
	if !p.Sex.Valid() {
		probs.add("sex", "must be one of male, female, unknown")
	}
	if p.BirthDate != nil && p.BirthDate.After(now) {
		probs.add("birthDate", "cannot be in the future")
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		probs.add("weightKg", "must be positive")
	}
	if utf8.RuneCountInString(p.Notes) > maxNotesLength {
		probs.add("notes", "is too long")
	}
	return probs.err()
}

// Normalize trims user-supplied fields and fills the uniqueness key.
func (v *Vet) Normalize() {
	trimFields(&v.ClinicName, &v.VetName, &v.Phone, &v.Email, &v.Website,
		&v.AddressLine1, &v.AddressLine2, &v.City, &v.State, &v.PostalCode, &v.Notes)
	v.Email = strings.ToLower(v.Email)
	v.UniqueKey = VetUniqueKey(*v)
}

// Validate checks a normalized vet.
func (v Vet) Validate() error {
	probs := problems{entity: EntityVet}
	if v.OwnerID == "" {
		probs.add("ownerId", "is required")
	}
	if v.ClinicName == "" && v.VetName == "" {
		probs.add("clinicName", "clinic name or vet name is required")
	}
	if utf8.RuneCountInString(v.ClinicName) > maxNameLength {
		probs.add("clinicName", "is too long")
	}
	if utf8.RuneCountInString(v.VetName) > maxNameLength {
		probs.add("vetName", "is too long")
	}
	if v.Phone != "" && len(DigitsOnly(v.Phone)) < 5 {
		probs.add("phone", "must contain at least 5 digits")
	}
	if v.Email != "" {
		if addr, err := mail.ParseAddress(v.Email); err != nil || addr.Address != v.Email {
			probs.add("email", "is not a valid address")
		}
	}
	if v.Website != "" {
		u, err := url.Parse(v.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			probs.add("website", "must be an http or https URL")
		}
	}
	if utf8.RuneCountInString(v.Notes) > maxNotesLength {
		probs.add("notes", "is too long")
	}
	return probs.err()
}

// Validate checks a link before it is written.
func (l PetVetLink) Validate() error {
	probs := problems{entity: EntityPetVetLink}
	if l.OwnerID == "" {
		probs.add("ownerId", "is required")
	}
	if l.PetID == "" {
		probs.add("petId", "is required")
	}
	if l.VetID == "" {
		probs.add("vetId", "is required")
	}
	if !l.Role.Valid() {
		probs.add("role", "must be primary or secondary")
	}
	return probs.err()
}
