package handler

import (
	"fmt"
	"io"
	"net/http"
)

// GetExport handles GET /trip/export. The response is served as a file
// download so browsers save it instead of rendering it.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.trips.Export()
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PostImport handles POST /trip/import. The body is a previously exported
// file; on success the imported trip replaces the current one.
func (s *Server) PostImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondBadRequest(w, "unable to read request body")
		return
	}

	trip, err := s.trips.Import(body)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}
