package domain

// Mutators are the only sanctioned way to change a Trip. They mutate the
// receiver in place; the service layer serializes calls and owns persistence.
// Every mutator that targets the pre-trip station creates it on demand,
// prepended to the day list.

// DayUpdate carries the optional fields of a day edit. Nil pointers leave
// the current value untouched.
type DayUpdate struct {
	Title    *string
	Duration *int
	Color    *string
}

// AddDay appends a new station and returns it.
func (t *Trip) AddDay(title string) Day {
	day := Day{
		ID:       NewDayID(),
		Title:    title,
		Duration: 1,
		Color:    DefaultDayColor,
		Entries:  Entries{},
	}
	t.Days = append(t.Days, day)
	return day
}

// UpdateDay applies a partial edit to a station. Color keys are normalized.
// Reports whether the day existed.
func (t *Trip) UpdateDay(dayID string, upd DayUpdate) bool {
	day := t.FindDay(dayID)
	if day == nil {
		return false
	}
	if upd.Title != nil {
		day.Title = *upd.Title
	}
	if upd.Duration != nil {
		day.Duration = *upd.Duration
	}
	if upd.Color != nil {
		day.Color = NormalizeColor(*upd.Color)
	}
	return true
}

// DeleteDay removes a station and returns it for blob cleanup.
func (t *Trip) DeleteDay(dayID string) (Day, bool) {
	for i := range t.Days {
		if t.Days[i].ID == dayID {
			removed := t.Days[i]
			t.Days = append(t.Days[:i], t.Days[i+1:]...)
			return removed, true
		}
	}
	return Day{}, false
}

// AddEntry appends an entry to the given station. Targeting PreTripDayID
// creates the pre-trip station on demand, prepended to the list.
// Reports whether a station accepted the entry.
func (t *Trip) AddEntry(dayID string, e Entry) bool {
	if day := t.FindDay(dayID); day != nil {
		day.Entries = append(day.Entries, e)
		return true
	}
	if dayID == PreTripDayID {
		t.Days = append([]Day{{
			ID:      PreTripDayID,
			Title:   preTripDayTitle,
			Color:   DefaultDayColor,
			Entries: Entries{e},
		}}, t.Days...)
		return true
	}
	return false
}

// UpdateEntry replaces the entry with the same id inside the given station.
// Like AddEntry, it creates the pre-trip station on demand.
func (t *Trip) UpdateEntry(dayID string, updated Entry) bool {
	day := t.FindDay(dayID)
	if day == nil {
		if dayID == PreTripDayID {
			return t.AddEntry(dayID, updated)
		}
		return false
	}
	for i, e := range day.Entries {
		if e.EntryID() == updated.EntryID() {
			day.Entries[i] = updated
			return true
		}
	}
	return false
}

// DeleteEntry removes an entry and returns it so the caller can best-effort
// delete its referenced blobs.
func (t *Trip) DeleteEntry(dayID, entryID string) (Entry, bool) {
	day := t.FindDay(dayID)
	if day == nil {
		return nil, false
	}
	for i, e := range day.Entries {
		if e.EntryID() == entryID {
			day.Entries = append(day.Entries[:i], day.Entries[i+1:]...)
			return e, true
		}
	}
	return nil, false
}

// MoveDay reorders the station list via Move's clamping splice.
func (t *Trip) MoveDay(from, to int) {
	t.Days = Move(t.Days, from, to)
}

// MoveEntry reorders one station's entries. Reports whether the day existed.
func (t *Trip) MoveEntry(dayID string, from, to int) bool {
	day := t.FindDay(dayID)
	if day == nil {
		return false
	}
	day.Entries = Move(day.Entries, from, to)
	return true
}

// ToggleEntryReaction applies a like/dislike press to a content entry.
// Separator entries carry no reactions; targeting one reports false.
func (t *Trip) ToggleEntryReaction(dayID, entryID string, kind ReactionKind) bool {
	e := t.FindEntry(dayID, entryID)
	if e == nil {
		return false
	}
	r, ok := EntryReactions(e)
	if !ok {
		return false
	}
	*r = r.Toggle(kind)
	return true
}
