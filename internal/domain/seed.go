package domain

// SeedTrip returns the demo itinerary shown when no stored trip exists.
// It is also written back to the document store on first connect so every
// client starts from the same document.
func SeedTrip() *Trip {
	return &Trip{
		ID:        "andalusien-2025",
		Title:     "Andalusien 2025",
		DateRange: "27. August - 11. September",
		StartDate: "2025-08-27",
		EndDate:   "2025-09-11",
		Days: []Day{
			{ID: "station-cadiz", Title: "Cádiz", Duration: 4, Color: "orange", Entries: Entries{}},
			{ID: "station-marbella", Title: "Marbella", Duration: 4, Color: "blue", Entries: Entries{}},
			{ID: "station-torrox", Title: "Torrox", Duration: 7, Color: "green", Entries: Entries{}},
		},
	}
}
