package domain

import (
	"encoding/json"
	"fmt"
)

// EntryType discriminates the Entry union on the wire.
type EntryType string

const (
	EntryTypeInfo         EntryType = "INFO"
	EntryTypeNote         EntryType = "NOTE"
	EntryTypeDaySeparator EntryType = "DAY_SEPARATOR"
	EntryTypeSeparator    EntryType = "SEPARATOR"
)

// Category classifies content entries. The wire values are the document
// format's original (German) keys; constants carry the English names.
type Category string

const (
	CategoryInformation Category = "INFORMATION"
	CategoryRoute       Category = "ROUTE"
	CategoryExcursion   Category = "AUSFLUG"
	CategoryFood        Category = "ESSEN"
	CategoryLodging     Category = "UEBERNACHTEN"
	CategoryQuestion    Category = "FRAGE"
)

// SeparatorStyle is the cosmetic style tag of a SeparatorEntry.
type SeparatorStyle string

const (
	SeparatorLine    SeparatorStyle = "line"
	SeparatorSection SeparatorStyle = "section"
	SeparatorDivider SeparatorStyle = "divider"
)

// Attachment is a file referenced by a content entry. The blob behind URL is
// owned by the object store, not by the in-memory model.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Entry is the closed sum over the four entry variants. The isEntry method is
// unexported so no type outside this package can satisfy the interface;
// switches over the concrete types are therefore exhaustive with a
// default-case error.
type Entry interface {
	EntryID() string
	EntryType() EntryType
	isEntry()
}

// InfoEntry is a content entry produced from a scraped URL. Content holds
// rich text (HTML); when ContentURL is set the content has been offloaded to
// blob storage and Content is empty until reconstituted.
type InfoEntry struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Content     string      `json:"content,omitempty"`
	ContentURL  string      `json:"contentUrl,omitempty"`
	URL         string      `json:"url,omitempty"`
	Category    Category    `json:"category,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	Reactions   *Reactions  `json:"reactions,omitempty"`
	Status      string      `json:"status,omitempty"` // loading | loaded | error
	Description string      `json:"description,omitempty"`
	Domain      string      `json:"domain,omitempty"`
}

// NoteEntry is a user-written content entry. Same offload rules as InfoEntry.
type NoteEntry struct {
	ID         string      `json:"id"`
	Title      string      `json:"title,omitempty"`
	Content    string      `json:"content,omitempty"`
	ContentURL string      `json:"contentUrl,omitempty"`
	URL        string      `json:"url,omitempty"`
	Category   Category    `json:"category,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Reactions  *Reactions  `json:"reactions,omitempty"`
}

// DaySeparatorEntry marks a calendar day within a station's entry list.
// Well-formed data has at most one separator per date per day; the core does
// not enforce this.
type DaySeparatorEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"` // "2006-01-02"
}

// SeparatorEntry is a purely cosmetic divider with no scheduling semantics.
type SeparatorEntry struct {
	ID    string         `json:"id"`
	Title string         `json:"title,omitempty"`
	Style SeparatorStyle `json:"style"`
}

func (e *InfoEntry) EntryID() string          { return e.ID }
func (e *InfoEntry) EntryType() EntryType     { return EntryTypeInfo }
func (e *InfoEntry) isEntry()                 {}
func (e *NoteEntry) EntryID() string          { return e.ID }
func (e *NoteEntry) EntryType() EntryType     { return EntryTypeNote }
func (e *NoteEntry) isEntry()                 {}
func (e *DaySeparatorEntry) EntryID() string  { return e.ID }
func (e *DaySeparatorEntry) EntryType() EntryType { return EntryTypeDaySeparator }
func (e *DaySeparatorEntry) isEntry()         {}
func (e *SeparatorEntry) EntryID() string     { return e.ID }
func (e *SeparatorEntry) EntryType() EntryType { return EntryTypeSeparator }
func (e *SeparatorEntry) isEntry()            {}

// typedEnvelope injects the "type" discriminator next to the variant's own
// fields when marshaling.
func typedEnvelope(t EntryType, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	m["type"] = tag
	return json.Marshal(m)
}

func (e *InfoEntry) MarshalJSON() ([]byte, error) {
	type plain InfoEntry
	return typedEnvelope(EntryTypeInfo, (*plain)(e))
}

func (e *NoteEntry) MarshalJSON() ([]byte, error) {
	type plain NoteEntry
	return typedEnvelope(EntryTypeNote, (*plain)(e))
}

func (e *DaySeparatorEntry) MarshalJSON() ([]byte, error) {
	type plain DaySeparatorEntry
	return typedEnvelope(EntryTypeDaySeparator, (*plain)(e))
}

func (e *SeparatorEntry) MarshalJSON() ([]byte, error) {
	type plain SeparatorEntry
	return typedEnvelope(EntryTypeSeparator, (*plain)(e))
}

// UnmarshalEntry decodes one entry from its tagged JSON form.
// Unknown type tags are a format error, wrapped in ErrValidation so handlers
// map them to 422.
func UnmarshalEntry(data []byte) (Entry, error) {
	var probe struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("domain.UnmarshalEntry: %w", err)
	}

	switch probe.Type {
	case EntryTypeInfo:
		var e InfoEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("domain.UnmarshalEntry: %w", err)
		}
		return &e, nil
	case EntryTypeNote:
		var e NoteEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("domain.UnmarshalEntry: %w", err)
		}
		return &e, nil
	case EntryTypeDaySeparator:
		var e DaySeparatorEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("domain.UnmarshalEntry: %w", err)
		}
		return &e, nil
	case EntryTypeSeparator:
		var e SeparatorEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("domain.UnmarshalEntry: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("%w: unknown entry type %q", ErrValidation, probe.Type)
	}
}

// Entries is a slice of Entry with polymorphic JSON decoding.
type Entries []Entry

func (es *Entries) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Entries, 0, len(raws))
	for _, raw := range raws {
		e, err := UnmarshalEntry(raw)
		if err != nil {
			return err
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

// ContentFields returns pointers to the content and contentUrl fields of a
// content entry. ok is false for separator variants, which carry no content.
// The gateway uses this to offload and reconstitute without duplicating the
// type switch.
func ContentFields(e Entry) (content, contentURL *string, ok bool) {
	switch v := e.(type) {
	case *InfoEntry:
		return &v.Content, &v.ContentURL, true
	case *NoteEntry:
		return &v.Content, &v.ContentURL, true
	case *DaySeparatorEntry, *SeparatorEntry:
		return nil, nil, false
	default:
		return nil, nil, false
	}
}

// BlobRefs returns the object-store URLs referenced by an entry (image,
// attachment, offloaded content). Used for best-effort blob cleanup when the
// entry is deleted.
func BlobRefs(e Entry) []string {
	var refs []string
	add := func(u string) {
		if u != "" {
			refs = append(refs, u)
		}
	}
	switch v := e.(type) {
	case *InfoEntry:
		add(v.ImageURL)
		add(v.ContentURL)
		if v.Attachment != nil {
			add(v.Attachment.URL)
		}
	case *NoteEntry:
		add(v.ImageURL)
		add(v.ContentURL)
		if v.Attachment != nil {
			add(v.Attachment.URL)
		}
	case *DaySeparatorEntry, *SeparatorEntry:
	}
	return refs
}

// EntryReactions returns the reactions of a content entry, creating the zero
// value on first access. ok is false for separator variants.
func EntryReactions(e Entry) (r *Reactions, ok bool) {
	switch v := e.(type) {
	case *InfoEntry:
		if v.Reactions == nil {
			v.Reactions = &Reactions{}
		}
		return v.Reactions, true
	case *NoteEntry:
		if v.Reactions == nil {
			v.Reactions = &Reactions{}
		}
		return v.Reactions, true
	default:
		return nil, false
	}
}
