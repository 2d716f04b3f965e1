package domain

import (
	"errors"
	"testing"
	"time"
)

func problemFields(t *testing.T, err error) map[string]bool {
	t.Helper()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := make(map[string]bool, len(verr.Problems))
	for _, p := range verr.Problems {
		fields[p.Field] = true
	}
	return fields
}

func TestPetNormalizeFillsDerivedFields(t *testing.T) {
	birth := time.Date(2020, 5, 4, 13, 30, 0, 0, time.UTC)
	p := Pet{Name: "  Rex   the\tDog ", Species: "DOG", MicrochipID: " 985 1120 ", BirthDate: &birth}
	p.Normalize()
	if p.Name != "Rex the Dog" {
		t.Fatalf("unexpected name %q", p.Name)
	}
	if p.NameKey != "rex the dog" {
		t.Fatalf("unexpected name key %q", p.NameKey)
	}
	if p.Species != SpeciesDog || p.Sex != SexUnknown {
		t.Fatalf("unexpected species/sex %q/%q", p.Species, p.Sex)
	}
	if p.MicrochipID != "9851120" {
		t.Fatalf("unexpected microchip %q", p.MicrochipID)
	}
	if p.BirthDate.Hour() != 0 {
		t.Fatalf("expected birth date truncated to day, got %v", p.BirthDate)
	}
}

func TestPetNormalizeKeepsCalendarDay(t *testing.T) {
	for _, raw := range []string{"2020-01-01T23:00:00-05:00", "2020-01-01T00:30:00+09:00", "2020-01-01T12:00:00Z"} {
		birth, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		p := Pet{Name: "Rex", Species: SpeciesDog, BirthDate: &birth}
		p.Normalize()
		want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		if !p.BirthDate.Equal(want) || p.BirthDate.Location() != time.UTC {
			t.Fatalf("%s: got %v want %v", raw, p.BirthDate, want)
		}
	}
}

func TestPetValidateReportsEveryProblem(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	weight := -1.0
	p := Pet{Species: "dragon", Sex: "none", BirthDate: &future, WeightKg: &weight}
	fields := problemFields(t, p.Validate(now))
	for _, f := range []string{"ownerId", "name", "species", "sex", "birthDate", "weightKg"} {
		if !fields[f] {
			t.Fatalf("expected problem for %s, got %v", f, fields)
		}
	}

	ok := Pet{OwnerID: "u1", Name: "Rex", Species: SpeciesDog, Sex: SexMale}
	if err := ok.Validate(now); err != nil {
		t.Fatalf("expected valid pet: %v", err)
	}
}

func TestVetValidate(t *testing.T) {
	v := Vet{OwnerID: "u1", Phone: "12", Email: "not-an-email", Website: "ftp://clinic"}
	fields := problemFields(t, v.Validate())
	for _, f := range []string{"clinicName", "phone", "email", "website"} {
		if !fields[f] {
			t.Fatalf("expected problem for %s, got %v", f, fields)
		}
	}

	good := Vet{OwnerID: "u1", VetName: "Dr. Who", Email: "who@example.com", Website: "https://clinic.example"}
	good.Normalize()
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid vet: %v", err)
	}
}

func TestVetUniqueKeyIgnoresFormatting(t *testing.T) {
	a := Vet{ClinicName: "Happy Paws", VetName: "Dr  Smith", Phone: "(555) 123-4567"}
	b := Vet{ClinicName: " happy paws ", VetName: "dr smith", Phone: "555.123.4567"}
	if VetUniqueKey(a) != VetUniqueKey(b) {
		t.Fatalf("expected equal keys for formatting variants")
	}
	c := b
	c.Phone = "555 123 4568"
	if VetUniqueKey(b) == VetUniqueKey(c) {
		t.Fatalf("expected different key for a different phone")
	}
}

func TestLinkValidateAndIDs(t *testing.T) {
	if err := (PetVetLink{Role: "owner"}).Validate(); err == nil {
		t.Fatalf("expected invalid link")
	}
	if got := LinkID("p1", "v1"); got != "p1_v1" {
		t.Fatalf("unexpected link id %q", got)
	}
	if got := VetKeyID("u1", "abc"); got != "u1:abc" {
		t.Fatalf("unexpected key id %q", got)
	}
}

func TestParseArchiveStatus(t *testing.T) {
	cases := map[string]ArchiveStatus{"": StatusActive, "active": StatusActive, "archived": StatusArchived, "all": StatusAll}
	for in, want := range cases {
		got, ok := ParseArchiveStatus(in)
		if !ok || got != want {
			t.Fatalf("ParseArchiveStatus(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseArchiveStatus("deleted"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (NotFoundError{Entity: EntityPet, ID: "p1"}).Error(); got != "pet p1 not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (DuplicateError{Entity: EntityVet, Field: "uniqueKey"}).Error(); got != "vet with the same uniqueKey already exists" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (ArchivedError{Entity: EntityVet, ID: "v1"}).Error(); got != "vet v1 is archived" {
		t.Fatalf("unexpected message %q", got)
	}
}
