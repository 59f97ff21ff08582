package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// decodeEntry reads the request body as one tagged entry.
func decodeEntry(r *http.Request) (domain.Entry, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalEntry(body)
}

// respondEntryDecodeError distinguishes an unknown entry type (422, carries
// the offending tag) from plain malformed JSON (400).
func respondEntryDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrValidation) {
		respondError(w, err)
		return
	}
	respondBadRequest(w, "invalid entry body")
}

// CreateEntry handles POST /trip/days/{dayID}/entries. The body is one
// tagged entry object; the id is assigned server-side when absent.
func (s *Server) CreateEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := decodeEntry(r)
	if err != nil {
		respondEntryDecodeError(w, err)
		return
	}

	created, err := s.trips.AddEntry(r.Context(), chi.URLParam(r, "dayID"), entry)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdateEntry handles PUT /trip/days/{dayID}/entries/{entryID}.
// The body replaces the entry wholesale; its id must match the path.
func (s *Server) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := decodeEntry(r)
	if err != nil {
		respondEntryDecodeError(w, err)
		return
	}
	if entry.EntryID() != chi.URLParam(r, "entryID") {
		respondBadRequest(w, "entry id in body does not match path")
		return
	}

	updated, err := s.trips.UpdateEntry(r.Context(), chi.URLParam(r, "dayID"), entry)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteEntry handles DELETE /trip/days/{dayID}/entries/{entryID}.
func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := s.trips.DeleteEntry(r.Context(), chi.URLParam(r, "dayID"), chi.URLParam(r, "entryID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveEntry handles POST /trip/days/{dayID}/entries/move.
func (s *Server) MoveEntry(w http.ResponseWriter, r *http.Request) {
	var body moveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.trips.MoveEntry(chi.URLParam(r, "dayID"), body.From, body.To); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleReaction handles POST /trip/days/{dayID}/entries/{entryID}/reactions.
// Body: {"reaction": "like"|"dislike"}. Responds with the new counters.
func (s *Server) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reaction domain.ReactionKind `json:"reaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	reactions, err := s.trips.ToggleReaction(chi.URLParam(r, "dayID"), chi.URLParam(r, "entryID"), body.Reaction)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reactions)
}
