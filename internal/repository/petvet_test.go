package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"doglog/pkg/domain"
)

type linkFixture struct {
	pets  *PetRepository
	vets  *VetRepository
	links *PetVetRepository
	pet   domain.Pet
	vetA  domain.Vet
	vetB  domain.Vet
	vetC  domain.Vet
}

func newLinkFixture(t *testing.T) linkFixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore()
	clock := newStepClock()
	f := linkFixture{
		pets:  NewPetRepository(store, clock.Now),
		vets:  NewVetRepository(store, clock.Now),
		links: NewPetVetRepository(store, clock.Now),
	}
	var err error
	if f.pet, err = f.pets.Create(ctx, domain.Pet{OwnerID: "u1", Name: "Rex", Species: domain.SpeciesDog}); err != nil {
		t.Fatalf("create pet: %v", err)
	}
	for _, v := range []struct {
		dst  *domain.Vet
		name string
	}{{&f.vetA, "A"}, {&f.vetB, "B"}, {&f.vetC, "C"}} {
		if *v.dst, err = f.vets.Create(ctx, domain.Vet{OwnerID: "u1", ClinicName: v.name}); err != nil {
			t.Fatalf("create vet %s: %v", v.name, err)
		}
	}
	return f
}

func (f linkFixture) assertSinglePrimary(t *testing.T, wantVet string) {
	t.Helper()
	links, err := f.links.ListForPet(context.Background(), "u1", f.pet.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	primaries := 0
	for _, l := range links {
		if l.Role == domain.VetRolePrimary {
			primaries++
		}
	}
	if primaries != 1 || links[0].VetID != wantVet {
		t.Fatalf("expected single primary %s, got %+v", wantVet, links)
	}
}

func TestLinkFirstIsPrimaryAndPrimaryDemotes(t *testing.T) {
	ctx := context.Background()
	f := newLinkFixture(t)

	first, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetA.ID, domain.VetRoleSecondary)
	if err != nil {
		t.Fatalf("link a: %v", err)
	}
	if first.Role != domain.VetRolePrimary || first.ID != domain.LinkID(f.pet.ID, f.vetA.ID) {
		t.Fatalf("expected forced primary with deterministic id, got %+v", first)
	}
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetB.ID, ""); err != nil {
		t.Fatalf("link b: %v", err)
	}
	f.assertSinglePrimary(t, f.vetA.ID)

	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetC.ID, domain.VetRolePrimary); err != nil {
		t.Fatalf("link c: %v", err)
	}
	f.assertSinglePrimary(t, f.vetC.ID)

	var dup domain.DuplicateError
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetA.ID, ""); !errors.As(err, &dup) {
		t.Fatalf("expected duplicate link, got %v", err)
	}
	var nf domain.NotFoundError
	if _, err := f.links.Link(ctx, "u2", f.pet.ID, f.vetA.ID, ""); !errors.As(err, &nf) {
		t.Fatalf("expected other owner to get not found, got %v", err)
	}
	var verr domain.ValidationError
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetA.ID, "owner"); !errors.As(err, &verr) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestLinkRejectsArchivedPet(t *testing.T) {
	ctx := context.Background()
	f := newLinkFixture(t)
	if _, err := f.pets.Archive(ctx, "u1", f.pet.ID); err != nil {
		t.Fatalf("archive pet: %v", err)
	}
	var archErr domain.ArchivedError
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetA.ID, ""); !errors.As(err, &archErr) || archErr.Entity != domain.EntityPet {
		t.Fatalf("expected archived pet error, got %v", err)
	}
}

func TestUnlinkPrimaryPromotesOldest(t *testing.T) {
	ctx := context.Background()
	f := newLinkFixture(t)
	for _, v := range []string{f.vetA.ID, f.vetB.ID, f.vetC.ID} {
		if _, err := f.links.Link(ctx, "u1", f.pet.ID, v, ""); err != nil {
			t.Fatalf("link %s: %v", v, err)
		}
	}
	if err := f.links.Unlink(ctx, "u1", f.pet.ID, f.vetA.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	f.assertSinglePrimary(t, f.vetB.ID)

	if err := f.links.Unlink(ctx, "u1", f.pet.ID, f.vetC.ID); err != nil {
		t.Fatalf("unlink secondary: %v", err)
	}
	f.assertSinglePrimary(t, f.vetB.ID)

	var nf domain.NotFoundError
	if err := f.links.Unlink(ctx, "u1", f.pet.ID, f.vetC.ID); !errors.As(err, &nf) {
		t.Fatalf("expected missing link, got %v", err)
	}
}

func TestSetRoleKeepsExactlyOnePrimary(t *testing.T) {
	ctx := context.Background()
	f := newLinkFixture(t)
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetA.ID, ""); err != nil {
		t.Fatalf("link a: %v", err)
	}

	var inv domain.InvariantError
	if _, err := f.links.SetRole(ctx, "u1", f.pet.ID, f.vetA.ID, domain.VetRoleSecondary); !errors.As(err, &inv) || inv.Rule != domain.RulePrimaryVet {
		t.Fatalf("expected invariant error demoting sole link, got %v", err)
	}

	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetB.ID, ""); err != nil {
		t.Fatalf("link b: %v", err)
	}
	if _, err := f.links.Link(ctx, "u1", f.pet.ID, f.vetC.ID, ""); err != nil {
		t.Fatalf("link c: %v", err)
	}
	promoted, err := f.links.SetPrimary(ctx, "u1", f.pet.ID, f.vetC.ID)
	if err != nil || promoted.Role != domain.VetRolePrimary {
		t.Fatalf("set primary: %+v %v", promoted, err)
	}
	f.assertSinglePrimary(t, f.vetC.ID)

	same, err := f.links.SetPrimary(ctx, "u1", f.pet.ID, f.vetC.ID)
	if err != nil || same.Role != domain.VetRolePrimary {
		t.Fatalf("expected no-op for current primary: %v", err)
	}

	demoted, err := f.links.SetRole(ctx, "u1", f.pet.ID, f.vetC.ID, domain.VetRoleSecondary)
	if err != nil || demoted.Role != domain.VetRoleSecondary {
		t.Fatalf("demote: %+v %v", demoted, err)
	}
	f.assertSinglePrimary(t, f.vetA.ID)

	var verr domain.ValidationError
	if _, err := f.links.SetRole(ctx, "u1", f.pet.ID, f.vetC.ID, "boss"); !errors.As(err, &verr) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
	var nf domain.NotFoundError
	if _, err := f.links.SetPrimary(ctx, "u1", f.pet.ID, "nope"); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestElectPrimaryBreaksTiesByVetID(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	links := []domain.PetVetLink{
		{Base: domain.Base{CreatedAt: at.Add(time.Hour)}, VetID: "a"},
		{Base: domain.Base{CreatedAt: at}, VetID: "z"},
		{Base: domain.Base{CreatedAt: at}, VetID: "m"},
	}
	got, ok := ElectPrimary(links)
	if !ok || got.VetID != "m" {
		t.Fatalf("expected m, got %+v", got)
	}
	if links[0].VetID != "a" {
		t.Fatalf("expected input order untouched")
	}
	if _, ok := ElectPrimary(nil); ok {
		t.Fatalf("expected no election for empty links")
	}
}
