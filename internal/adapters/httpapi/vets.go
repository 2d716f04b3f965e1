package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"doglog/internal/core"
	"doglog/pkg/domain"
)

func (s *Server) handleListVets(w http.ResponseWriter, r *http.Request) {
	status, err := statusParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	vets, err := s.svc.ListVets(r.Context(), owner(r), status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if vets == nil {
		vets = []domain.Vet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vets": vets})
}

func (s *Server) handleCreateVet(w http.ResponseWriter, r *http.Request) {
	var in vetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var vet domain.Vet
	in.applyTo(&vet)
	created, err := s.svc.CreateVet(r.Context(), owner(r), vet)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/vets/"+created.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"vet": created})
}

func (s *Server) handleGetVet(w http.ResponseWriter, r *http.Request) {
	vet, err := s.svc.GetVet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vet": vet})
}

func (s *Server) handleUpdateVet(w http.ResponseWriter, r *http.Request) {
	var in vetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	vet, err := s.svc.UpdateVet(r.Context(), owner(r), mux.Vars(r)["id"], func(v *domain.Vet) error {
		in.applyTo(v)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vet": vet})
}

// handleDeleteVet archives by default; ?purge=true deletes permanently.
func (s *Server) handleDeleteVet(w http.ResponseWriter, r *http.Request) {
	purge, err := purgeParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !purge {
		s.handleArchiveVet(w, r)
		return
	}
	if err := s.svc.DeleteVet(r.Context(), owner(r), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchiveVet(w http.ResponseWriter, r *http.Request) {
	vet, err := s.svc.ArchiveVet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vet": vet})
}

func (s *Server) handleUnarchiveVet(w http.ResponseWriter, r *http.Request) {
	vet, err := s.svc.UnarchiveVet(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vet": vet})
}

func (s *Server) handleVetPets(w http.ResponseWriter, r *http.Request) {
	pets, err := s.svc.VetPets(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if pets == nil {
		pets = []core.VetPet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pets": pets})
}

func (s *Server) handlePetVets(w http.ResponseWriter, r *http.Request) {
	vets, err := s.svc.PetVets(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if vets == nil {
		vets = []core.PetVet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vets": vets})
}

func (s *Server) handleLinkVet(w http.ResponseWriter, r *http.Request) {
	var in linkInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if in.VetID == "" {
		s.writeServiceError(w, r, badRequest{msg: "vetId is required"})
		return
	}
	link, err := s.svc.LinkVet(r.Context(), owner(r), mux.Vars(r)["id"], in.VetID, in.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"link": link})
}

func (s *Server) handleUnlinkVet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.UnlinkVet(r.Context(), owner(r), vars["id"], vars["vetId"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPrimaryVet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	link, err := s.svc.SetPrimaryVet(r.Context(), owner(r), vars["id"], vars["vetId"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"link": link})
}

func (s *Server) handleSetVetRole(w http.ResponseWriter, r *http.Request) {
	var in roleInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	link, err := s.svc.SetVetRole(r.Context(), owner(r), vars["id"], vars["vetId"], in.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"link": link})
}
