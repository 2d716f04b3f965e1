package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"doglog/pkg/domain"
)

// field records whether a JSON member was present so PATCH can tell an
// omitted member from an explicit null.
type field[T any] struct {
	Set   bool
	Value *T
}

func (f *field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// apply sets *dst when the member was present; null resets it to the zero value.
func (f field[T]) apply(dst *T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		var zero T
		*dst = zero
		return
	}
	*dst = *f.Value
}

// applyPtr is apply for optional domain fields.
func (f field[T]) applyPtr(dst **T) {
	if f.Set {
		*dst = f.Value
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return badRequest{msg: "content type must be application/json"}
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest{msg: "request body is empty"}
		}
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return badRequest{msg: err.Error()}
		}
		return err
	}
	if dec.More() {
		return badRequest{msg: "request body must contain a single JSON object"}
	}
	return nil
}

// date accepts YYYY-MM-DD or RFC 3339.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return domain.ValidationError{Entity: domain.EntityPet, Problems: []domain.FieldProblem{{
		Field: "birthDate", Message: fmt.Sprintf("%q is not a date (YYYY-MM-DD)", s),
	}}}
}

type petInput struct {
	Name        field[string]         `json:"name"`
	Species     field[domain.Species] `json:"species"`
	Breed       field[string]         `json:"breed"`
	Sex         field[domain.Sex]     `json:"sex"`
	BirthDate   field[date]           `json:"birthDate"`
	Color       field[string]         `json:"color"`
	MicrochipID field[string]         `json:"microchipId"`
	WeightKg    field[float64]        `json:"weightKg"`
	Notes       field[string]         `json:"notes"`
}

func (in petInput) applyTo(p *domain.Pet) {
	in.Name.apply(&p.Name)
	in.Species.apply(&p.Species)
	in.Breed.apply(&p.Breed)
	in.Sex.apply(&p.Sex)
	if in.BirthDate.Set {
		p.BirthDate = nil
		if in.BirthDate.Value != nil {
			t := in.BirthDate.Value.Time
			p.BirthDate = &t
		}
	}
	in.Color.apply(&p.Color)
	in.MicrochipID.apply(&p.MicrochipID)
	in.WeightKg.applyPtr(&p.WeightKg)
	in.Notes.apply(&p.Notes)
}

type vetInput struct {
	ClinicName   field[string] `json:"clinicName"`
	VetName      field[string] `json:"vetName"`
	Phone        field[string] `json:"phone"`
	Email        field[string] `json:"email"`
	Website      field[string] `json:"website"`
	AddressLine1 field[string] `json:"addressLine1"`
	AddressLine2 field[string] `json:"addressLine2"`
	City         field[string] `json:"city"`
	State        field[string] `json:"state"`
	PostalCode   field[string] `json:"postalCode"`
	Notes        field[string] `json:"notes"`
}

func (in vetInput) applyTo(v *domain.Vet) {
	in.ClinicName.apply(&v.ClinicName)
	in.VetName.apply(&v.VetName)
	in.Phone.apply(&v.Phone)
	in.Email.apply(&v.Email)
	in.Website.apply(&v.Website)
	in.AddressLine1.apply(&v.AddressLine1)
	in.AddressLine2.apply(&v.AddressLine2)
	in.City.apply(&v.City)
	in.State.apply(&v.State)
	in.PostalCode.apply(&v.PostalCode)
	in.Notes.apply(&v.Notes)
}

type linkInput struct {
	VetID string         `json:"vetId"`
	Role  domain.VetRole `json:"role"`
}

type roleInput struct {
	Role domain.VetRole `json:"role"`
}

func statusParam(r *http.Request) (domain.ArchiveStatus, error) {
	status, ok := domain.ParseArchiveStatus(r.URL.Query().Get("status"))
	if !ok {
		return "", badRequest{msg: "status must be active, archived or all"}
	}
	return status, nil
}
