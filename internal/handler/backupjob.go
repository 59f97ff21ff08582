package handler

import (
	"crypto/subtle"
	"net/http"
)

// RunBackup handles POST /internal/backup: one off-site snapshot of the trip
// document, on demand. The endpoint is meant to be hit by a scheduler, so it
// is guarded by a shared token (header x-backup-token or ?token=) instead of
// the regular identity flow. An empty configured token disables the guard.
func (s *Server) RunBackup(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		respondUnavailable(w, "snapshot storage is not configured")
		return
	}
	if !s.backupAuthorized(r) {
		respondJSON(w, http.StatusUnauthorized, errorResponse{errorDetail{"unauthorized", "missing or wrong backup token"}})
		return
	}

	url, err := s.snapshots.Run(r.Context(), s.tripID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) backupAuthorized(r *http.Request) bool {
	if s.backupToken == "" {
		return true
	}
	token := r.Header.Get("x-backup-token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.backupToken)) == 1
}
