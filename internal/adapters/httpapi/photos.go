package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"doglog/internal/blob"
)

const (
	multipartMemory = 8 << 20
	// room for multipart boundaries and part headers on top of the photo
	multipartOverhead = 64 << 10
)

func (s *Server) handlePutPhoto(w http.ResponseWriter, r *http.Request) {
	limit := s.svc.MaxPhotoBytes() + multipartOverhead
	if r.ContentLength > limit {
		s.writeServiceError(w, r, &http.MaxBytesError{Limit: limit})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	body := io.Reader(r.Body)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				s.writeServiceError(w, r, err)
				return
			}
			s.writeServiceError(w, r, badRequest{msg: "invalid multipart body"})
			return
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			s.writeServiceError(w, r, badRequest{msg: "multipart body must contain a photo file"})
			return
		}
		defer file.Close()
		body = file
	}
	info, err := s.svc.UploadPetPhoto(r.Context(), owner(r), mux.Vars(r)["id"], body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photo": info})
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	if match := r.Header.Get("If-None-Match"); match != "" {
		info, err := s.svc.PetPhotoInfo(r.Context(), owner(r), mux.Vars(r)["id"])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if info.ETag != "" && match == strconv.Quote(info.ETag) {
			w.Header().Set("ETag", match)
			w.Header().Set("Cache-Control", "private, max-age=60")
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	info, rc, err := s.svc.OpenPetPhoto(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()
	h := w.Header()
	h.Set("Cache-Control", "private, max-age=60")
	if info.ETag != "" {
		h.Set("ETag", strconv.Quote(info.ETag))
	}
	if info.ContentType != "" {
		h.Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if !info.LastModified.IsZero() {
		h.Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("photo stream interrupted", "path", r.URL.Path, "error", err)
	}
}

// handlePhotoURL returns a signed URL, or the API photo path when the blob
// driver cannot sign.
func (s *Server) handlePhotoURL(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	url, err := s.svc.PetPhotoURL(r.Context(), owner(r), id, s.photoURLExpiry)
	if errors.Is(err, blob.ErrUnsupported) {
		writeJSON(w, http.StatusOK, map[string]any{"url": "/api/v1/pets/" + id + "/photo", "signed": false})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":       url,
		"signed":    true,
		"expiresAt": s.now().Add(s.photoURLExpiry).UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePetPhoto(r.Context(), owner(r), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
