package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// pointerDocument is the minimal primary-store document written when even
// full content offloading cannot bring the trip under the size ceiling. It
// retains the header fields so listings stay meaningful, while the full
// payload lives behind payloadUrl. A pointer document is small by
// construction, so the primary write always succeeds.
type pointerDocument struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	DateRange  string            `json:"dateRange"`
	StartDate  string            `json:"startDate"`
	EndDate    string            `json:"endDate"`
	Days       []json.RawMessage `json:"days"`
	PayloadURL string            `json:"payloadUrl"`
}

func newPointerDocument(t *domain.Trip, payloadURL string) pointerDocument {
	return pointerDocument{
		ID:         t.ID,
		Title:      t.Title,
		DateRange:  t.DateRange,
		StartDate:  t.StartDate,
		EndDate:    t.EndDate,
		Days:       []json.RawMessage{},
		PayloadURL: payloadURL,
	}
}

// PayloadURL reports whether doc is a pointer document and, if so, where its
// full payload lives. A document qualifies when it carries a non-empty
// payloadUrl and no days.
func PayloadURL(doc json.RawMessage) (string, bool) {
	var p pointerDocument
	if err := json.Unmarshal(doc, &p); err != nil {
		return "", false
	}
	if p.PayloadURL == "" || len(p.Days) > 0 {
		return "", false
	}
	return p.PayloadURL, true
}

// DecodeTrip parses a primary-store document that is already known not to be
// a pointer document.
func DecodeTrip(doc json.RawMessage) (*domain.Trip, error) {
	var trip domain.Trip
	if err := json.Unmarshal(doc, &trip); err != nil {
		return nil, fmt.Errorf("gateway.DecodeTrip: %w: %w", err, domain.ErrInvalidFormat)
	}
	return &trip, nil
}
