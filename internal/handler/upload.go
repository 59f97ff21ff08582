package handler

import (
	"encoding/json"
	"net/http"
)

// UploadImage handles POST /uploads/images. The body carries the image as a
// data: URL plus a name used to build the storage key; the response is the
// public URL of the stored (recompressed) image.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DataURL string `json:"dataUrl"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if body.DataURL == "" {
		respondBadRequest(w, "missing dataUrl field")
		return
	}

	url, err := s.trips.UploadImage(r.Context(), body.DataURL, body.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
