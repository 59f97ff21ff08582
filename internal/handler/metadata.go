package handler

import "net/http"

// GetMetadata handles GET /metadata?url=... and returns a title/description/
// image preview for the given page. Unreachable pages degrade to a
// title-only result inside the fetcher, so this endpoint never fails on
// someone else's server being down.
func (s *Server) GetMetadata(w http.ResponseWriter, r *http.Request) {
	if s.meta == nil {
		respondUnavailable(w, "metadata scraping is not configured")
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondBadRequest(w, "missing url query parameter")
		return
	}

	meta := s.meta.Fetch(r.Context(), rawURL)
	respondJSON(w, http.StatusOK, meta)
}
