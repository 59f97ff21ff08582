package service

import (
	"fmt"

	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/impex"
)

// Export serializes the current trip into a downloadable file.
func (s *TripService) Export() ([]byte, string, error) {
	trip, err := s.Trip()
	if err != nil {
		return nil, "", fmt.Errorf("service.TripService.Export: %w", err)
	}

	data, filename, err := impex.Export(trip)
	if err != nil {
		return nil, "", fmt.Errorf("service.TripService.Export: %w", err)
	}
	return data, filename, nil
}

// Import replaces the whole trip with the one in an export file. All or
// nothing: a file that does not parse leaves the current state untouched.
// Returns domain.ErrInvalidFormat for unusable files.
func (s *TripService) Import(data []byte) (*domain.Trip, error) {
	trip, err := impex.Import(data)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Import: %w", err)
	}

	// The document id is fixed per deployment; an export from another
	// deployment still lands on this trip's document.
	trip.ID = s.tripID

	err = s.mutate(func(t *domain.Trip) error {
		*t = *trip
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Import: %w", err)
	}

	s.log.Info("trip replaced by import", "trip_id", s.tripID, "days", len(trip.Days))
	return trip, nil
}
