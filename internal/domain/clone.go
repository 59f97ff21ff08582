package domain

import "encoding/json"

// Clone returns a deep copy of the trip via a JSON round trip. The entry
// union makes a field-by-field copy error-prone; the document is small
// enough that serializing is the simpler correct choice.
func (t *Trip) Clone() (*Trip, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out Trip
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
