// Package impex serializes the trip to a downloadable JSON file and parses
// uploaded files back into a trip. Import is all-or-nothing: a file that does
// not parse leaves the current trip untouched.
package impex

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// FormatVersion is written into every export and accepted leniently on
// import: unknown versions still parse as long as the trip does.
const FormatVersion = "1.0"

// File is the export file format.
type File struct {
	Trip       *domain.Trip `json:"trip"`
	ExportDate time.Time    `json:"exportDate"`
	Version    string       `json:"version"`
}

// Export serializes the trip as an indented export file and returns the
// payload plus a date-stamped download filename.
func Export(trip *domain.Trip) ([]byte, string, error) {
	file := File{
		Trip:       trip,
		ExportDate: time.Now().UTC(),
		Version:    FormatVersion,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("impex.Export: %w", err)
	}

	filename := fmt.Sprintf("tripboard-export-%s.json", time.Now().Format("2006-01-02"))
	return data, filename, nil
}

// Import parses an export file and returns its trip. Malformed JSON or a
// missing trip key fail with domain.ErrInvalidFormat.
func Import(data []byte) (*domain.Trip, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("impex.Import: %w: %w", err, domain.ErrInvalidFormat)
	}
	if file.Trip == nil {
		return nil, fmt.Errorf("impex.Import: file has no trip: %w", domain.ErrInvalidFormat)
	}
	if file.Trip.ID == "" {
		return nil, fmt.Errorf("impex.Import: trip has no id: %w", domain.ErrInvalidFormat)
	}
	return file.Trip, nil
}
