package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// GetTrip handles GET /trip.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.Trip()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// GetStatus handles GET /trip/status. It reports the save pipeline's state
// so the UI can show "saving…" and surface persistent save failures.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.trips.Status())
}

// GetHashtags handles GET /trip/hashtags.
func (s *Server) GetHashtags(w http.ResponseWriter, r *http.Request) {
	tags := s.trips.Hashtags()
	if tags == nil {
		tags = []domain.HashtagCount{}
	}
	respondJSON(w, http.StatusOK, tags)
}

// CreateDay handles POST /trip/days.
func (s *Server) CreateDay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	day, err := s.trips.AddDay(body.Title)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, day)
}

// UpdateDay handles PATCH /trip/days/{dayID}. Absent fields keep their
// current values.
func (s *Server) UpdateDay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    *string `json:"title"`
		Duration *int    `json:"duration"`
		Color    *string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	day, err := s.trips.UpdateDay(chi.URLParam(r, "dayID"), domain.DayUpdate{
		Title:    body.Title,
		Duration: body.Duration,
		Color:    body.Color,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, day)
}

// DeleteDay handles DELETE /trip/days/{dayID}.
func (s *Server) DeleteDay(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.DeleteDay(r.Context(), chi.URLParam(r, "dayID")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveRequest is the body of both move endpoints.
type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MoveDay handles POST /trip/days/move.
func (s *Server) MoveDay(w http.ResponseWriter, r *http.Request) {
	var body moveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.trips.MoveDay(body.From, body.To); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
