package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"doglog/pkg/domain"
)

func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request) {
	status, err := statusParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pets, err := s.svc.ListPets(r.Context(), owner(r), status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if pets == nil {
		pets = []domain.Pet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pets": pets})
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var in petInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var pet domain.Pet
	in.applyTo(&pet)
	created, err := s.svc.CreatePet(r.Context(), owner(r), pet)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/pets/"+created.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"pet": created})
}

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	pet, err := s.svc.GetPet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pet": pet})
}

func (s *Server) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	var in petInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pet, err := s.svc.UpdatePet(r.Context(), owner(r), mux.Vars(r)["id"], func(p *domain.Pet) error {
		in.applyTo(p)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pet": pet})
}

// handleDeletePet archives by default; ?purge=true deletes permanently.
func (s *Server) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	purge, err := purgeParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if purge {
		if err := s.svc.DeletePet(r.Context(), owner(r), id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.handleArchivePet(w, r)
}

func (s *Server) handleArchivePet(w http.ResponseWriter, r *http.Request) {
	pet, err := s.svc.ArchivePet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pet": pet})
}

func (s *Server) handleUnarchivePet(w http.ResponseWriter, r *http.Request) {
	pet, err := s.svc.UnarchivePet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pet": pet})
}

func purgeParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("purge")
	if raw == "" {
		return false, nil
	}
	purge, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest{msg: "purge must be true or false"}
	}
	return purge, nil
}
